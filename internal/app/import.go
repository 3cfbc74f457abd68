package app

import (
	"context"
	"fmt"
	"html"
	"strings"

	"go.uber.org/zap"

	"prepmaster-service/internal/domain"
)

const (
	defaultImportAmount = 10
	maxImportAmount     = 50
)

// ImportQuery selects questions from the external bank and places them in
// the local catalogue. Topic defaults to the provider's category.
type ImportQuery struct {
	Amount     int
	Difficulty domain.Difficulty
	Category   string
	Subject    string
	Class      int
	Topic      string
}

func (q *ImportQuery) normalize() error {
	verr := &domain.ValidationError{}
	if q.Amount == 0 {
		q.Amount = defaultImportAmount
	}
	if q.Amount < 1 || q.Amount > maxImportAmount {
		verr.Add("amount", fmt.Sprintf("Amount must be between 1 and %d", maxImportAmount))
	}
	if q.Difficulty != "" && !domain.IsValidDifficulty(q.Difficulty) {
		verr.Add("difficulty", "Invalid difficulty level")
	}
	if !domain.IsValidSubject(q.Subject) {
		verr.Add("subject", "Invalid subject")
	}
	if !domain.IsValidClass(q.Class) {
		verr.Add("class", "Invalid class")
	}
	return verr.OrNil()
}

// ImportExternalQuestions fetches questions from the configured provider and
// stores them as MCQs whose first option "a" is the correct one. Admin only.
func (s *Service) ImportExternalQuestions(ctx context.Context, caller Caller, q ImportQuery) ([]domain.Question, error) {
	if !caller.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	if s.provider == nil {
		return nil, domain.ErrImportUnavailable
	}
	if err := q.normalize(); err != nil {
		return nil, err
	}

	items, err := s.provider.FetchQuestions(ctx, q)
	if err != nil {
		return nil, err
	}

	verr := &domain.ValidationError{}
	questions := make([]domain.Question, 0, len(items))
	for i, item := range items {
		in := externalToInput(item, q)
		in.validate(fmt.Sprintf("questions[%d].", i), verr)
		qq := s.newQuestion(caller, in)
		qq.Source = domain.SourceOpenTDB
		questions = append(questions, qq)
	}
	if err := verr.OrNil(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstream, err)
	}
	if len(questions) == 0 {
		return questions, nil
	}
	if err := s.questions.CreateQuestions(ctx, questions); err != nil {
		return nil, err
	}
	s.log.Info("questions imported from provider",
		zap.Int("count", len(questions)),
		zap.String("subject", q.Subject),
		zap.String("category", q.Category),
	)
	return questions, nil
}

func externalToInput(item ExternalQuestion, q ImportQuery) QuestionInput {
	options := []domain.Option{{ID: "a", Text: html.UnescapeString(item.CorrectAnswer), IsCorrect: true}}
	for i, wrong := range item.IncorrectAnswers {
		options = append(options, domain.Option{
			ID:   string(rune('b' + i)),
			Text: html.UnescapeString(wrong),
		})
	}
	topic := strings.TrimSpace(q.Topic)
	if topic == "" {
		topic = html.UnescapeString(item.Category)
	}
	return QuestionInput{
		Type:          domain.QuestionMCQ,
		Text:          html.UnescapeString(item.Question),
		Options:       options,
		CorrectAnswer: "a",
		Marks:         1,
		Difficulty:    domain.Difficulty(item.Difficulty),
		Subject:       q.Subject,
		Class:         q.Class,
		Topic:         topic,
	}
}
