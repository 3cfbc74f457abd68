// Package scoring turns a submitted test into a scored result with
// chapter-wise analysis and feedback. Everything here is pure: no I/O,
// no clock, no shared state.
package scoring

import (
	"math"
	"time"

	"prepmaster-service/internal/domain"
)

// Engine scores submissions against a fixed set of thresholds.
// The zero value is not useful; use NewEngine.
type Engine struct {
	thresholds Thresholds
}

func NewEngine(t Thresholds) Engine {
	return Engine{thresholds: t}
}

// Thresholds returns the classification bounds the engine was built with.
func (e Engine) Thresholds() Thresholds {
	return e.thresholds
}

// ScoreSubmission scores responses against test. The caller owns the
// time-window check and the result id.
func (e Engine) ScoreSubmission(test domain.Test, responses []domain.Response, submittedAt time.Time) domain.Result {
	return ScoreSubmission(test, responses, submittedAt, e.thresholds)
}

// topicAggregate holds running totals for one topic.
type topicAggregate struct {
	questions     int
	correct       int
	marksPossible int
	marksObtained int
}

// ScoreSubmission is the single-pass scoring transform. It never fails:
// malformed inputs degrade to numeric edge cases in the returned result.
func ScoreSubmission(test domain.Test, responses []domain.Response, submittedAt time.Time, th Thresholds) domain.Result {
	index := questionIndex(test.Questions)

	scored := make([]domain.ScoredResponse, 0, len(responses))
	aggregates := make(map[string]*topicAggregate)
	var topicOrder []string
	totalScore := 0

	for _, resp := range responses {
		question, ok := resolveQuestion(index, resp.QuestionID)
		if !ok {
			continue
		}

		correct := resp.Answer == question.CorrectAnswer
		obtained := 0
		if correct {
			obtained = question.Marks
		}
		totalScore += obtained

		scored = append(scored, domain.ScoredResponse{
			QuestionID:     question.ID,
			SelectedAnswer: resp.Answer,
			IsCorrect:      correct,
			MarksObtained:  obtained,
		})

		agg, ok := aggregates[question.Topic]
		if !ok {
			agg = &topicAggregate{}
			aggregates[question.Topic] = agg
			topicOrder = append(topicOrder, question.Topic)
		}
		agg.questions++
		if correct {
			agg.correct++
		}
		agg.marksPossible += question.Marks
		agg.marksObtained += obtained
	}

	chapters := make([]domain.ChapterAnalysis, 0, len(topicOrder))
	for _, topic := range topicOrder {
		agg := aggregates[topic]
		chapters = append(chapters, domain.ChapterAnalysis{
			Topic:           topic,
			TotalQuestions:  agg.questions,
			CorrectAnswers:  agg.correct,
			PercentageScore: topicPercentage(agg.marksObtained, agg.marksPossible),
		})
	}

	return domain.Result{
		TestID:              test.ID,
		Responses:           scored,
		TotalScore:          totalScore,
		PercentageScore:     overallPercentage(totalScore, test.TotalMarks),
		TimeTaken:           ElapsedMinutes(test.StartTime, submittedAt),
		SubmittedAt:         submittedAt,
		ChapterWiseAnalysis: chapters,
		Status:              domain.StatusCompleted,
		Feedback:            DeriveFeedback(chapters, th),
	}
}

func questionIndex(questions []domain.Question) map[string]domain.Question {
	index := make(map[string]domain.Question, len(questions))
	for _, q := range questions {
		index[q.ID] = q
	}
	return index
}

// resolveQuestion looks a response up among the test's own questions.
// Responses for questions outside the test are dropped without error.
func resolveQuestion(index map[string]domain.Question, questionID string) (domain.Question, bool) {
	q, ok := index[questionID]
	return q, ok
}

// topicPercentage reports 0 for a topic with no possible marks.
func topicPercentage(obtained, possible int) float64 {
	if possible == 0 {
		return 0
	}
	return PercentOf(float64(obtained), float64(possible))
}

// overallPercentage divides by totalMarks as configured on the test. A zero
// or inconsistent total is not corrected and yields a non-finite or
// out-of-range percentage.
func overallPercentage(totalScore, totalMarks int) float64 {
	return PercentOf(float64(totalScore), float64(totalMarks))
}

// PercentOf returns obtained/total as a percentage rounded to 2 decimals.
func PercentOf(obtained, total float64) float64 {
	return Round2(obtained / total * 100)
}

// Round2 rounds half up to two decimal places. Non-finite values pass through.
func Round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return math.Floor(v*100+0.5) / 100
}

// ElapsedMinutes returns whole minutes between start and at, rounded half
// up and never negative.
func ElapsedMinutes(start, at time.Time) int {
	minutes := at.Sub(start).Minutes()
	if minutes < 0 {
		return 0
	}
	return int(math.Floor(minutes + 0.5))
}
