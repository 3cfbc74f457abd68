package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"prepmaster-service/internal/domain"
)

// TestInput is the admin-supplied body of a test.
type TestInput struct {
	Title       string    `json:"title"`
	Subject     string    `json:"subject"`
	Class       int       `json:"class"`
	Topics      []string  `json:"topics"`
	QuestionIDs []string  `json:"questionIds"`
	AssignedTo  []string  `json:"assignedTo"`
	Duration    int       `json:"duration"`
	TotalMarks  int       `json:"totalMarks"`
	StartTime   time.Time `json:"startTime"`
	EndTime     time.Time `json:"endTime"`
}

func (s *Service) validateTest(ctx context.Context, in TestInput) error {
	verr := &domain.ValidationError{}
	if strings.TrimSpace(in.Title) == "" {
		verr.Add("title", "Title is required")
	}
	if !domain.IsValidSubject(in.Subject) {
		verr.Add("subject", "Invalid subject")
	}
	if !domain.IsValidClass(in.Class) {
		verr.Add("class", "Invalid class")
	}
	if in.Duration < s.minDuration || in.Duration > s.maxDuration {
		verr.Add("duration", fmt.Sprintf("Duration must be between %d and %d minutes", s.minDuration, s.maxDuration))
	}
	if in.TotalMarks < 1 {
		verr.Add("totalMarks", "Total marks must be a positive number")
	}
	if in.StartTime.IsZero() || in.EndTime.IsZero() || !in.StartTime.Before(in.EndTime) {
		verr.Add("endTime", "End time must be after start time")
	}
	if len(in.QuestionIDs) > 0 {
		if _, err := s.questions.GetQuestions(ctx, in.QuestionIDs); err != nil {
			if !errors.Is(err, domain.ErrQuestionNotFound) {
				return err
			}
			verr.Add("questionIds", "Unknown question id")
		}
	}
	return verr.OrNil()
}

func (in TestInput) apply(t *domain.Test) {
	t.Title = strings.TrimSpace(in.Title)
	t.Subject = in.Subject
	t.Class = in.Class
	t.Topics = in.Topics
	t.QuestionIDs = in.QuestionIDs
	t.AssignedTo = in.AssignedTo
	t.Duration = in.Duration
	t.TotalMarks = in.TotalMarks
	t.StartTime = in.StartTime
	t.EndTime = in.EndTime
}

// CreateTest schedules a new test. Admin only.
func (s *Service) CreateTest(ctx context.Context, caller Caller, in TestInput) (domain.Test, error) {
	if !caller.IsAdmin() {
		return domain.Test{}, domain.ErrForbidden
	}
	if err := s.validateTest(ctx, in); err != nil {
		return domain.Test{}, err
	}
	t := domain.Test{
		ID:        s.newID(),
		CreatedBy: caller.UserID,
		CreatedAt: s.now(),
	}
	in.apply(&t)
	if err := s.tests.CreateTest(ctx, t); err != nil {
		return domain.Test{}, err
	}
	s.log.Info("test created", zap.String("test_id", t.ID), zap.String("subject", t.Subject), zap.Int("questions", len(t.QuestionIDs)))
	return t, nil
}

// ListTests applies role scoping: students only see tests assigned to them
// for their own class.
func (s *Service) ListTests(ctx context.Context, caller Caller, filter TestFilter) ([]domain.Test, error) {
	if !caller.IsAdmin() {
		filter.AssignedTo = caller.UserID
		filter.Class = caller.Class
	}
	if filter.Status != "" {
		filter.At = s.now()
	}
	return s.tests.ListTests(ctx, filter)
}

// GetTest returns a resolved test. Students must be assigned, and see answer
// keys only once the test has ended.
func (s *Service) GetTest(ctx context.Context, caller Caller, id string) (domain.Test, error) {
	t, err := s.resolved.GetTest(ctx, id)
	if err != nil {
		return domain.Test{}, err
	}
	if caller.IsAdmin() {
		return t, nil
	}
	if !t.IsAssigned(caller.UserID) {
		return domain.Test{}, domain.ErrNotAssigned
	}
	if t.StatusAt(s.now()) != domain.TestCompleted {
		t.Questions = redactAnswers(t.Questions)
	}
	return t, nil
}

func redactAnswers(questions []domain.Question) []domain.Question {
	out := make([]domain.Question, len(questions))
	for i, q := range questions {
		q.CorrectAnswer = ""
		q.Explanation = ""
		if len(q.Options) > 0 {
			opts := make([]domain.Option, len(q.Options))
			for j, o := range q.Options {
				o.IsCorrect = false
				opts[j] = o
			}
			q.Options = opts
		}
		out[i] = q
	}
	return out
}

// UpdateTest edits a test that has not started yet. Admin only.
func (s *Service) UpdateTest(ctx context.Context, caller Caller, id string, in TestInput) (domain.Test, error) {
	if !caller.IsAdmin() {
		return domain.Test{}, domain.ErrForbidden
	}
	t, err := s.tests.GetTest(ctx, id)
	if err != nil {
		return domain.Test{}, err
	}
	if !s.now().Before(t.StartTime) {
		return domain.Test{}, domain.ErrTestLocked
	}
	if err := s.validateTest(ctx, in); err != nil {
		return domain.Test{}, err
	}
	in.apply(&t)
	if err := s.tests.UpdateTest(ctx, t); err != nil {
		return domain.Test{}, err
	}
	s.invalidate(ctx, id)
	s.log.Info("test updated", zap.String("test_id", id))
	return t, nil
}

// DeleteTest removes a test that has not started yet. Admin only.
func (s *Service) DeleteTest(ctx context.Context, caller Caller, id string) error {
	if !caller.IsAdmin() {
		return domain.ErrForbidden
	}
	t, err := s.tests.GetTest(ctx, id)
	if err != nil {
		return err
	}
	if !s.now().Before(t.StartTime) {
		return domain.ErrTestLocked
	}
	if err := s.tests.DeleteTest(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	s.log.Info("test deleted", zap.String("test_id", id))
	return nil
}
