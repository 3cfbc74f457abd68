package app

import (
	"context"
	"fmt"

	"prepmaster-service/internal/domain"
)

// StoreTestLoader resolves tests straight from the stores. It is the backing
// loader the caching TestRepository implementations sit in front of.
type StoreTestLoader struct {
	tests     TestStore
	questions QuestionStore
}

func NewStoreTestLoader(tests TestStore, questions QuestionStore) *StoreTestLoader {
	return &StoreTestLoader{tests: tests, questions: questions}
}

func (l *StoreTestLoader) LoadTest(ctx context.Context, testID string) (domain.Test, error) {
	test, err := l.tests.GetTest(ctx, testID)
	if err != nil {
		return domain.Test{}, err
	}
	questions, err := l.questions.GetQuestions(ctx, test.QuestionIDs)
	if err != nil {
		return domain.Test{}, fmt.Errorf("resolve questions of test %s: %w", testID, err)
	}
	test.Questions = questions
	return test, nil
}
