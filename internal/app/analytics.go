package app

import (
	"context"
	"sort"
	"time"

	"prepmaster-service/internal/domain"
	"prepmaster-service/internal/scoring"
)

// AnalyticsQuery selects the results class analytics run over.
type AnalyticsQuery struct {
	Class   int
	Subject string
	From    time.Time
	To      time.Time
}

type topicKey struct {
	subject string
	topic   string
}

type topicTotals struct {
	sum      float64
	count    int
	students map[string]struct{}
}

// accumulator folds results into per-(subject, topic) averages. Adding the
// same result id twice has no effect.
type accumulator struct {
	seen     map[string]struct{}
	totalPct float64
	results  int
	topics   map[topicKey]*topicTotals
}

func newAccumulator() *accumulator {
	return &accumulator{
		seen:   make(map[string]struct{}),
		topics: make(map[topicKey]*topicTotals),
	}
}

func (a *accumulator) add(subject string, r domain.Result) bool {
	if r.ID != "" {
		if _, ok := a.seen[r.ID]; ok {
			return false
		}
		a.seen[r.ID] = struct{}{}
	}
	a.results++
	a.totalPct += r.PercentageScore
	for _, ch := range r.ChapterWiseAnalysis {
		key := topicKey{subject: subject, topic: ch.Topic}
		tt, ok := a.topics[key]
		if !ok {
			tt = &topicTotals{students: make(map[string]struct{})}
			a.topics[key] = tt
		}
		tt.sum += ch.PercentageScore
		tt.count++
		tt.students[r.StudentID] = struct{}{}
	}
	return true
}

func (a *accumulator) average() float64 {
	if a.results == 0 {
		return 0
	}
	return scoring.Round2(a.totalPct / float64(a.results))
}

func (a *accumulator) topicAverages() []domain.TopicAverage {
	out := make([]domain.TopicAverage, 0, len(a.topics))
	for key, tt := range a.topics {
		out = append(out, domain.TopicAverage{
			Subject:       key.subject,
			Topic:         key.topic,
			AverageScore:  scoring.Round2(tt.sum / float64(tt.count)),
			TotalStudents: len(tt.students),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Subject != out[j].Subject {
			return out[i].Subject < out[j].Subject
		}
		return out[i].Topic < out[j].Topic
	})
	return out
}

// ClassAnalytics aggregates results of tests matching the query. Admin only.
func (s *Service) ClassAnalytics(ctx context.Context, caller Caller, q AnalyticsQuery) (domain.ClassAnalytics, error) {
	if !caller.IsAdmin() {
		return domain.ClassAnalytics{}, domain.ErrForbidden
	}
	tests, err := s.tests.ListTests(ctx, TestFilter{Subject: q.Subject, Class: q.Class})
	if err != nil {
		return domain.ClassAnalytics{}, err
	}
	acc := newAccumulator()
	if len(tests) > 0 {
		subjects := make(map[string]string, len(tests))
		ids := make([]string, 0, len(tests))
		for _, t := range tests {
			subjects[t.ID] = t.Subject
			ids = append(ids, t.ID)
		}
		results, err := s.results.ListResults(ctx, ResultFilter{TestIDs: ids, From: q.From, To: q.To})
		if err != nil {
			return domain.ClassAnalytics{}, err
		}
		for _, r := range results {
			acc.add(subjects[r.TestID], r)
		}
	}
	return domain.ClassAnalytics{
		TotalResults:  acc.results,
		AverageScore:  acc.average(),
		TopicAverages: acc.topicAverages(),
		GeneratedAt:   s.now(),
	}, nil
}
