package app

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"prepmaster-service/internal/domain"
	"prepmaster-service/internal/events"
	"prepmaster-service/internal/scoring"
)

// ResultView is a stored result together with metrics derived on read.
type ResultView struct {
	domain.Result
	PerformanceMetrics domain.PerformanceMetrics `json:"performanceMetrics"`
}

// SubmittedEvent is the payload published after a result is stored.
type SubmittedEvent struct {
	ResultID        string  `json:"resultId"`
	StudentID       string  `json:"studentId"`
	TestID          string  `json:"testId"`
	Subject         string  `json:"subject"`
	TotalScore      int     `json:"totalScore"`
	PercentageScore float64 `json:"percentageScore"`
}

// SubmitTest scores the caller's responses and stores the result.
func (s *Service) SubmitTest(ctx context.Context, caller Caller, testID string, responses []domain.Response) (domain.Result, error) {
	test, err := s.resolved.GetTest(ctx, testID)
	if err != nil {
		return domain.Result{}, err
	}
	if !caller.IsAdmin() && !test.IsAssigned(caller.UserID) {
		s.observeRejected(domain.ErrNotAssigned)
		return domain.Result{}, domain.ErrNotAssigned
	}

	now := s.now()
	if err := checkWindow(test, now); err != nil {
		s.observeRejected(err)
		return domain.Result{}, err
	}

	result := s.engine.ScoreSubmission(test, responses, now)
	result.ID = s.newID()
	result.StudentID = caller.UserID

	if err := s.results.CreateResult(ctx, result); err != nil {
		return domain.Result{}, err
	}
	s.metrics.ObserveSubmission(string(result.Status), result.PercentageScore)
	s.log.Info("test submitted",
		zap.String("result_id", result.ID),
		zap.String("test_id", testID),
		zap.String("student_id", caller.UserID),
		zap.Int("total_score", result.TotalScore),
		zap.Float64("percentage", result.PercentageScore),
	)

	evt := SubmittedEvent{
		ResultID:        result.ID,
		StudentID:       result.StudentID,
		TestID:          result.TestID,
		Subject:         test.Subject,
		TotalScore:      result.TotalScore,
		PercentageScore: result.PercentageScore,
	}
	if err := s.publisher.Publish(ctx, events.ResultSubmitted, evt); err != nil {
		s.log.Warn("publish result event", zap.String("result_id", result.ID), zap.Error(err))
	}

	s.publishToFeed(ctx, test.Subject, result)
	return result, nil
}

// checkWindow enforces startTime <= now <= endTime.
func checkWindow(test domain.Test, now time.Time) error {
	switch test.StatusAt(now) {
	case domain.TestUpcoming:
		return domain.ErrTestNotStarted
	case domain.TestCompleted:
		return domain.ErrTestEnded
	default:
		return nil
	}
}

func (s *Service) observeRejected(reason error) {
	switch {
	case errors.Is(reason, domain.ErrTestNotStarted):
		s.metrics.ObserveSubmission("not_started", 0)
	case errors.Is(reason, domain.ErrTestEnded):
		s.metrics.ObserveSubmission("ended", 0)
	case errors.Is(reason, domain.ErrNotAssigned):
		s.metrics.ObserveSubmission("not_assigned", 0)
	}
}

// ListMyResults returns the caller's results, newest first.
func (s *Service) ListMyResults(ctx context.Context, caller Caller) ([]domain.Result, error) {
	return s.results.ListResults(ctx, ResultFilter{StudentID: caller.UserID})
}

// GetResult returns one result with its performance metrics. Students may
// only read their own.
func (s *Service) GetResult(ctx context.Context, caller Caller, id string) (ResultView, error) {
	r, err := s.results.GetResult(ctx, id)
	if err != nil {
		return ResultView{}, err
	}
	if !caller.IsAdmin() && r.StudentID != caller.UserID {
		return ResultView{}, domain.ErrForbidden
	}
	return ResultView{Result: r, PerformanceMetrics: scoring.Performance(r)}, nil
}
