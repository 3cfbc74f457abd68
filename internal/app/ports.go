package app

import (
	"context"
	"time"

	"prepmaster-service/internal/domain"
)

// QuestionFilter narrows ListQuestions. Zero values match everything.
type QuestionFilter struct {
	Subject    string
	Class      int
	Topic      string
	Difficulty domain.Difficulty
	Type       domain.QuestionType
	Source     domain.Source
}

// Match reports whether q satisfies the filter.
func (f QuestionFilter) Match(q domain.Question) bool {
	return (f.Subject == "" || q.Subject == f.Subject) &&
		(f.Class == 0 || q.Class == f.Class) &&
		(f.Topic == "" || q.Topic == f.Topic) &&
		(f.Difficulty == "" || q.Difficulty == f.Difficulty) &&
		(f.Type == "" || q.Type == f.Type) &&
		(f.Source == "" || q.Source == f.Source)
}

// TestFilter narrows ListTests. AssignedTo restricts to tests assigned to a
// user; Status is evaluated against At.
type TestFilter struct {
	Subject    string
	Class      int
	AssignedTo string
	Status     domain.TestStatus
	At         time.Time
}

func (f TestFilter) Match(t domain.Test) bool {
	if f.Subject != "" && t.Subject != f.Subject {
		return false
	}
	if f.Class != 0 && t.Class != f.Class {
		return false
	}
	if f.AssignedTo != "" && !t.IsAssigned(f.AssignedTo) {
		return false
	}
	if f.Status != "" && t.StatusAt(f.At) != f.Status {
		return false
	}
	return true
}

// ResultFilter narrows ListResults. An empty TestIDs matches every test.
type ResultFilter struct {
	StudentID string
	TestIDs   []string
	From      time.Time
	To        time.Time
}

func (f ResultFilter) Match(r domain.Result) bool {
	if f.StudentID != "" && r.StudentID != f.StudentID {
		return false
	}
	if len(f.TestIDs) > 0 {
		found := false
		for _, id := range f.TestIDs {
			if id == r.TestID {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if !f.From.IsZero() && r.SubmittedAt.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && r.SubmittedAt.After(f.To) {
		return false
	}
	return true
}

// QuestionStore persists the question bank.
type QuestionStore interface {
	// CreateQuestions stores all questions or none of them.
	CreateQuestions(ctx context.Context, questions []domain.Question) error
	GetQuestion(ctx context.Context, id string) (domain.Question, error)
	// GetQuestions returns questions in ids order, failing with
	// domain.ErrQuestionNotFound if any id is unknown.
	GetQuestions(ctx context.Context, ids []string) ([]domain.Question, error)
	// ListQuestions returns matches newest first.
	ListQuestions(ctx context.Context, filter QuestionFilter) ([]domain.Question, error)
	UpdateQuestion(ctx context.Context, q domain.Question) error
	DeleteQuestion(ctx context.Context, id string) error
}

// TestStore persists tests in their stored (unresolved) form.
type TestStore interface {
	CreateTest(ctx context.Context, t domain.Test) error
	GetTest(ctx context.Context, id string) (domain.Test, error)
	// ListTests returns matches ordered by start time ascending.
	ListTests(ctx context.Context, filter TestFilter) ([]domain.Test, error)
	UpdateTest(ctx context.Context, t domain.Test) error
	DeleteTest(ctx context.Context, id string) error
	TestsWithQuestion(ctx context.Context, questionID string) ([]domain.Test, error)
}

// ResultStore persists results. Results are append-only.
type ResultStore interface {
	CreateResult(ctx context.Context, r domain.Result) error
	GetResult(ctx context.Context, id string) (domain.Result, error)
	// ListResults returns matches newest submission first.
	ListResults(ctx context.Context, filter ResultFilter) ([]domain.Result, error)
}

// UserStore persists accounts.
type UserStore interface {
	CreateUser(ctx context.Context, u domain.User) error
	GetUser(ctx context.Context, id string) (domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)
	UpdateUser(ctx context.Context, u domain.User) error
}

// TestLoader resolves a stored test together with its questions.
type TestLoader interface {
	LoadTest(ctx context.Context, testID string) (domain.Test, error)
}

// TestRepository serves resolved tests, usually from a cache in front of a TestLoader.
type TestRepository interface {
	GetTest(ctx context.Context, testID string) (domain.Test, error)
	Invalidate(ctx context.Context, testID string) error
}

// FeedRepository keeps live analytics feeds and routes new results to them.
type FeedRepository interface {
	// Acquire returns the feed of a test, creating it if needed, with one
	// hold taken atomically with the lookup.
	Acquire(testID string) *Feed
	// Release drops one hold and forgets the feed once it is idle. It
	// reports whether the feed was dropped.
	Release(testID string) bool
	Get(testID string) (*Feed, bool)
	// Publish records a stored result in the feed of its test, wherever
	// that feed is watched.
	Publish(ctx context.Context, subject string, r domain.Result)
}

// ExternalQuestion is a multiple-choice item as an outside question bank
// publishes it.
type ExternalQuestion struct {
	Category         string
	Difficulty       string
	Question         string
	CorrectAnswer    string
	IncorrectAnswers []string
}

// QuestionProvider fetches ready-made questions from an outside bank.
type QuestionProvider interface {
	FetchQuestions(ctx context.Context, q ImportQuery) ([]ExternalQuestion, error)
}
