package memory

import (
	"context"
	"sort"
	"sync"

	"prepmaster-service/internal/app"
	"prepmaster-service/internal/domain"
)

// Store keeps every entity in process memory. It implements the question,
// test, result and user stores and is meant for tests and local demos.
type Store struct {
	mu        sync.RWMutex
	questions map[string]domain.Question
	tests     map[string]domain.Test
	results   map[string]domain.Result
	users     map[string]domain.User
	emails    map[string]string
}

func NewStore() *Store {
	return &Store{
		questions: make(map[string]domain.Question),
		tests:     make(map[string]domain.Test),
		results:   make(map[string]domain.Result),
		users:     make(map[string]domain.User),
		emails:    make(map[string]string),
	}
}

func (s *Store) CreateQuestions(_ context.Context, questions []domain.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, q := range questions {
		s.questions[q.ID] = cloneQuestion(q)
	}
	return nil
}

func (s *Store) GetQuestion(_ context.Context, id string) (domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.questions[id]
	if !ok {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	return cloneQuestion(q), nil
}

func (s *Store) GetQuestions(_ context.Context, ids []string) ([]domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Question, 0, len(ids))
	for _, id := range ids {
		q, ok := s.questions[id]
		if !ok {
			return nil, domain.ErrQuestionNotFound
		}
		out = append(out, cloneQuestion(q))
	}
	return out, nil
}

func (s *Store) ListQuestions(_ context.Context, filter app.QuestionFilter) ([]domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Question, 0)
	for _, q := range s.questions {
		if filter.Match(q) {
			out = append(out, cloneQuestion(q))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) UpdateQuestion(_ context.Context, q domain.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.questions[q.ID]; !ok {
		return domain.ErrQuestionNotFound
	}
	s.questions[q.ID] = cloneQuestion(q)
	return nil
}

func (s *Store) DeleteQuestion(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.questions[id]; !ok {
		return domain.ErrQuestionNotFound
	}
	delete(s.questions, id)
	return nil
}

func (s *Store) CreateTest(_ context.Context, t domain.Test) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tests[t.ID] = cloneTest(t)
	return nil
}

func (s *Store) GetTest(_ context.Context, id string) (domain.Test, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tests[id]
	if !ok {
		return domain.Test{}, domain.ErrTestNotFound
	}
	return cloneTest(t), nil
}

func (s *Store) ListTests(_ context.Context, filter app.TestFilter) ([]domain.Test, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Test, 0)
	for _, t := range s.tests {
		if filter.Match(t) {
			out = append(out, cloneTest(t))
		}
	}
	sortTests(out)
	return out, nil
}

func (s *Store) UpdateTest(_ context.Context, t domain.Test) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tests[t.ID]; !ok {
		return domain.ErrTestNotFound
	}
	s.tests[t.ID] = cloneTest(t)
	return nil
}

func (s *Store) DeleteTest(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tests[id]; !ok {
		return domain.ErrTestNotFound
	}
	delete(s.tests, id)
	return nil
}

func (s *Store) TestsWithQuestion(_ context.Context, questionID string) ([]domain.Test, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Test, 0)
	for _, t := range s.tests {
		if t.HasQuestion(questionID) {
			out = append(out, cloneTest(t))
		}
	}
	sortTests(out)
	return out, nil
}

func sortTests(tests []domain.Test) {
	sort.Slice(tests, func(i, j int) bool {
		if !tests[i].StartTime.Equal(tests[j].StartTime) {
			return tests[i].StartTime.Before(tests[j].StartTime)
		}
		return tests[i].ID < tests[j].ID
	})
}

func (s *Store) CreateResult(_ context.Context, r domain.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[r.ID] = cloneResult(r)
	return nil
}

func (s *Store) GetResult(_ context.Context, id string) (domain.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.results[id]
	if !ok {
		return domain.Result{}, domain.ErrResultNotFound
	}
	return cloneResult(r), nil
}

func (s *Store) ListResults(_ context.Context, filter app.ResultFilter) ([]domain.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Result, 0)
	for _, r := range s.results {
		if filter.Match(r) {
			out = append(out, cloneResult(r))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].SubmittedAt.Equal(out[j].SubmittedAt) {
			return out[i].SubmittedAt.After(out[j].SubmittedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) CreateUser(_ context.Context, u domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.emails[u.Email]; ok {
		return domain.ErrEmailTaken
	}
	s.users[u.ID] = u
	s.emails[u.Email] = u.ID
	return nil
}

func (s *Store) GetUser(_ context.Context, id string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return u, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.emails[email]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return s.users[id], nil
}

func (s *Store) UpdateUser(_ context.Context, u domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.users[u.ID]
	if !ok {
		return domain.ErrUserNotFound
	}
	if prev.Email != u.Email {
		if _, taken := s.emails[u.Email]; taken {
			return domain.ErrEmailTaken
		}
		delete(s.emails, prev.Email)
		s.emails[u.Email] = u.ID
	}
	s.users[u.ID] = u
	return nil
}

func cloneQuestion(q domain.Question) domain.Question {
	q.Options = append([]domain.Option(nil), q.Options...)
	return q
}

func cloneTest(t domain.Test) domain.Test {
	t.Topics = append([]string(nil), t.Topics...)
	t.QuestionIDs = append([]string(nil), t.QuestionIDs...)
	t.AssignedTo = append([]string(nil), t.AssignedTo...)
	if t.Questions != nil {
		qs := make([]domain.Question, len(t.Questions))
		for i, q := range t.Questions {
			qs[i] = cloneQuestion(q)
		}
		t.Questions = qs
	}
	return t
}

func cloneResult(r domain.Result) domain.Result {
	r.Responses = append([]domain.ScoredResponse(nil), r.Responses...)
	r.ChapterWiseAnalysis = append([]domain.ChapterAnalysis(nil), r.ChapterWiseAnalysis...)
	r.Feedback.Strengths = append([]string{}, r.Feedback.Strengths...)
	r.Feedback.Weaknesses = append([]string{}, r.Feedback.Weaknesses...)
	r.Feedback.Recommendations = append([]string{}, r.Feedback.Recommendations...)
	return r
}

var (
	_ app.QuestionStore  = (*Store)(nil)
	_ app.TestStore      = (*Store)(nil)
	_ app.ResultStore    = (*Store)(nil)
	_ app.UserStore      = (*Store)(nil)
	_ app.TestRepository = (*TestRepository)(nil)
	_ app.FeedRepository = (*FeedStore)(nil)
)
