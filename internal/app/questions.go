package app

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"prepmaster-service/internal/domain"
)

// QuestionInput is the admin-supplied body of a question.
type QuestionInput struct {
	Type          domain.QuestionType `json:"type"`
	Text          string              `json:"text"`
	Options       []domain.Option     `json:"options"`
	CorrectAnswer string              `json:"correctAnswer"`
	Explanation   string              `json:"explanation"`
	Marks         int                 `json:"marks"`
	Difficulty    domain.Difficulty   `json:"difficulty"`
	Subject       string              `json:"subject"`
	Class         int                 `json:"class"`
	Topic         string              `json:"topic"`
	ImageURL      string              `json:"imageUrl"`
}

func (in QuestionInput) validate(prefix string, verr *domain.ValidationError) {
	if !domain.IsValidQuestionType(in.Type) {
		verr.Add(prefix+"type", "Invalid question type")
	}
	if strings.TrimSpace(in.Text) == "" {
		verr.Add(prefix+"text", "Question text is required")
	}
	if in.Type == domain.QuestionMCQ && len(in.Options) == 0 {
		verr.Add(prefix+"options", "Options must be a non-empty array")
	}
	if strings.TrimSpace(in.CorrectAnswer) == "" {
		verr.Add(prefix+"correctAnswer", "Correct answer is required")
	}
	if in.Marks < 1 {
		verr.Add(prefix+"marks", "Marks must be a positive number")
	}
	if !domain.IsValidDifficulty(in.Difficulty) {
		verr.Add(prefix+"difficulty", "Invalid difficulty level")
	}
	if !domain.IsValidSubject(in.Subject) {
		verr.Add(prefix+"subject", "Invalid subject")
	}
	if !domain.IsValidClass(in.Class) {
		verr.Add(prefix+"class", "Invalid class")
	}
	if strings.TrimSpace(in.Topic) == "" {
		verr.Add(prefix+"topic", "Topic is required")
	}
}

func (in QuestionInput) apply(q *domain.Question) {
	q.Type = in.Type
	q.Text = in.Text
	q.Options = in.Options
	q.CorrectAnswer = in.CorrectAnswer
	q.Explanation = in.Explanation
	q.Marks = in.Marks
	q.Difficulty = in.Difficulty
	q.Subject = in.Subject
	q.Class = in.Class
	q.Topic = strings.TrimSpace(in.Topic)
	q.ImageURL = in.ImageURL
}

func (s *Service) newQuestion(caller Caller, in QuestionInput) domain.Question {
	now := s.now()
	q := domain.Question{
		ID:           s.newID(),
		Source:       domain.SourceCustom,
		CreatedBy:    caller.UserID,
		CreatedAt:    now,
		LastModified: now,
	}
	in.apply(&q)
	return q
}

// CreateQuestion adds a custom question to the bank. Admin only.
func (s *Service) CreateQuestion(ctx context.Context, caller Caller, in QuestionInput) (domain.Question, error) {
	if !caller.IsAdmin() {
		return domain.Question{}, domain.ErrForbidden
	}
	verr := &domain.ValidationError{}
	in.validate("", verr)
	if err := verr.OrNil(); err != nil {
		return domain.Question{}, err
	}
	q := s.newQuestion(caller, in)
	if err := s.questions.CreateQuestions(ctx, []domain.Question{q}); err != nil {
		return domain.Question{}, err
	}
	s.log.Info("question created", zap.String("question_id", q.ID), zap.String("topic", q.Topic))
	return q, nil
}

// BulkImportQuestions validates every item before storing any. Admin only.
func (s *Service) BulkImportQuestions(ctx context.Context, caller Caller, inputs []QuestionInput) ([]domain.Question, error) {
	if !caller.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	verr := &domain.ValidationError{}
	if len(inputs) == 0 {
		verr.Add("questions", "Questions must be a non-empty array")
	}
	for i, in := range inputs {
		in.validate(fmt.Sprintf("questions[%d].", i), verr)
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	questions := make([]domain.Question, 0, len(inputs))
	for _, in := range inputs {
		questions = append(questions, s.newQuestion(caller, in))
	}
	if err := s.questions.CreateQuestions(ctx, questions); err != nil {
		return nil, err
	}
	s.log.Info("questions imported", zap.Int("count", len(questions)))
	return questions, nil
}

func (s *Service) ListQuestions(ctx context.Context, filter QuestionFilter) ([]domain.Question, error) {
	return s.questions.ListQuestions(ctx, filter)
}

func (s *Service) GetQuestion(ctx context.Context, id string) (domain.Question, error) {
	return s.questions.GetQuestion(ctx, id)
}

// UpdateQuestion replaces a question's content. Questions referenced by an
// ongoing test are frozen so in-flight attempts keep their answer key.
func (s *Service) UpdateQuestion(ctx context.Context, caller Caller, id string, in QuestionInput) (domain.Question, error) {
	if !caller.IsAdmin() {
		return domain.Question{}, domain.ErrForbidden
	}
	verr := &domain.ValidationError{}
	in.validate("", verr)
	if err := verr.OrNil(); err != nil {
		return domain.Question{}, err
	}

	q, err := s.questions.GetQuestion(ctx, id)
	if err != nil {
		return domain.Question{}, err
	}
	tests, err := s.tests.TestsWithQuestion(ctx, id)
	if err != nil {
		return domain.Question{}, err
	}
	now := s.now()
	for _, t := range tests {
		if t.StatusAt(now) == domain.TestOngoing {
			return domain.Question{}, domain.ErrQuestionLocked
		}
	}

	in.apply(&q)
	q.LastModified = now
	if err := s.questions.UpdateQuestion(ctx, q); err != nil {
		return domain.Question{}, err
	}
	for _, t := range tests {
		s.invalidate(ctx, t.ID)
	}
	s.log.Info("question updated", zap.String("question_id", q.ID), zap.String("topic", q.Topic))
	return q, nil
}

// DeleteQuestion removes a question no test refers to. Admin only.
func (s *Service) DeleteQuestion(ctx context.Context, caller Caller, id string) error {
	if !caller.IsAdmin() {
		return domain.ErrForbidden
	}
	if _, err := s.questions.GetQuestion(ctx, id); err != nil {
		return err
	}
	tests, err := s.tests.TestsWithQuestion(ctx, id)
	if err != nil {
		return err
	}
	if len(tests) > 0 {
		return domain.ErrQuestionInUse
	}
	return s.questions.DeleteQuestion(ctx, id)
}

// invalidate drops a cached resolved test; failures only cost a stale read
// until the cache TTL expires.
func (s *Service) invalidate(ctx context.Context, testID string) {
	if s.resolved == nil {
		return
	}
	if err := s.resolved.Invalidate(ctx, testID); err != nil {
		s.log.Warn("invalidate cached test", zap.String("test_id", testID), zap.Error(err))
	}
}
