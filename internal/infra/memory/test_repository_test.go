package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"prepmaster-service/internal/app"
	"prepmaster-service/internal/domain"
)

func TestTestRepositoryCaches(t *testing.T) {
	loader := &countingLoader{TestLoader: seededLoader(t)}
	repo := NewTestRepository(loader, time.Minute)

	test, err := repo.GetTest(context.Background(), "test-1")
	if err != nil {
		t.Fatalf("get test: %v", err)
	}
	if len(test.Questions) != 1 || test.Questions[0].CorrectAnswer != "4" {
		t.Fatalf("expected resolved questions, got %+v", test.Questions)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls)
	}

	if _, err := repo.GetTest(context.Background(), "test-1"); err != nil {
		t.Fatalf("get test 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls)
	}
}

func TestTestRepositoryInvalidate(t *testing.T) {
	loader := &countingLoader{TestLoader: seededLoader(t)}
	repo := NewTestRepository(loader, time.Minute)
	ctx := context.Background()

	if _, err := repo.GetTest(ctx, "test-1"); err != nil {
		t.Fatalf("get test: %v", err)
	}
	if err := repo.Invalidate(ctx, "test-1"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, err := repo.GetTest(ctx, "test-1"); err != nil {
		t.Fatalf("get test after invalidate: %v", err)
	}
	if loader.calls != 2 {
		t.Fatalf("expected reload after invalidate, loader calls %d", loader.calls)
	}
}

func TestTestRepositoryExpires(t *testing.T) {
	loader := &countingLoader{TestLoader: seededLoader(t)}
	repo := NewTestRepository(loader, time.Minute)
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	repo.clock = func() time.Time { return now }

	if _, err := repo.GetTest(context.Background(), "test-1"); err != nil {
		t.Fatalf("get test: %v", err)
	}
	now = now.Add(2 * time.Minute)
	if _, err := repo.GetTest(context.Background(), "test-1"); err != nil {
		t.Fatalf("get test: %v", err)
	}
	if loader.calls != 2 {
		t.Fatalf("expected reload after ttl, loader calls %d", loader.calls)
	}
}

func TestTestRepositoryMissing(t *testing.T) {
	repo := NewTestRepository(seededLoader(t), time.Minute)
	if _, err := repo.GetTest(context.Background(), "nope"); !errors.Is(err, domain.ErrTestNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

type countingLoader struct {
	app.TestLoader
	calls int
}

func (l *countingLoader) LoadTest(ctx context.Context, testID string) (domain.Test, error) {
	l.calls++
	return l.TestLoader.LoadTest(ctx, testID)
}

func seededLoader(t *testing.T) app.TestLoader {
	t.Helper()
	store := NewStore()
	ctx := context.Background()
	if err := store.CreateQuestions(ctx, []domain.Question{sampleQuestion("q1")}); err != nil {
		t.Fatalf("seed questions: %v", err)
	}
	if err := store.CreateTest(ctx, sampleTest("test-1", "q1")); err != nil {
		t.Fatalf("seed test: %v", err)
	}
	return app.NewStoreTestLoader(store, store)
}

func sampleQuestion(id string) domain.Question {
	return domain.Question{
		ID:            id,
		Type:          domain.QuestionShortAnswer,
		Text:          "What is 2 + 2?",
		CorrectAnswer: "4",
		Marks:         1,
		Difficulty:    domain.DifficultyEasy,
		Subject:       "Maths",
		Class:         8,
		Topic:         "Arithmetic",
		Source:        domain.SourceCustom,
	}
}

func sampleTest(id string, questionIDs ...string) domain.Test {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	return domain.Test{
		ID:          id,
		Title:       "Weekly quiz",
		Subject:     "Maths",
		Class:       8,
		QuestionIDs: questionIDs,
		AssignedTo:  []string{"s1"},
		Duration:    30,
		TotalMarks:  len(questionIDs),
		StartTime:   start,
		EndTime:     start.Add(time.Hour),
	}
}
