package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"prepmaster-service/internal/app"
	"prepmaster-service/internal/domain"
)

const uniqueViolation = "23505"

// Store persists entities in Postgres. Questions, tests and results keep
// their full document in a JSONB data column next to the indexed columns
// used for filtering.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// where accumulates AND-ed conditions with positional arguments.
type where struct {
	conds []string
	args  []interface{}
}

func (w *where) add(cond string, arg interface{}) {
	w.args = append(w.args, arg)
	w.conds = append(w.conds, strings.ReplaceAll(cond, "?", fmt.Sprintf("$%d", len(w.args))))
}

func (w *where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

func (s *Store) CreateQuestions(ctx context.Context, questions []domain.Question) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, q := range questions {
		raw, err := json.Marshal(q)
		if err != nil {
			return fmt.Errorf("marshal question: %w", err)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO questions (id, subject, class, topic, created_at, data) VALUES ($1, $2, $3, $4, $5, $6)`,
			q.ID, q.Subject, q.Class, q.Topic, q.CreatedAt, raw,
		); err != nil {
			return fmt.Errorf("insert question: %w", err)
		}
	}
	return tx.Commit(ctx)
}

func (s *Store) GetQuestion(ctx context.Context, id string) (domain.Question, error) {
	var q domain.Question
	err := s.getDocument(ctx, `SELECT data FROM questions WHERE id=$1`, id, &q)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	return q, err
}

func (s *Store) GetQuestions(ctx context.Context, ids []string) ([]domain.Question, error) {
	rows, err := s.pool.Query(ctx, `SELECT data FROM questions WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	found, err := scanDocuments[domain.Question](rows)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]domain.Question, len(found))
	for _, q := range found {
		byID[q.ID] = q
	}
	out := make([]domain.Question, 0, len(ids))
	for _, id := range ids {
		q, ok := byID[id]
		if !ok {
			return nil, domain.ErrQuestionNotFound
		}
		out = append(out, q)
	}
	return out, nil
}

func (s *Store) ListQuestions(ctx context.Context, filter app.QuestionFilter) ([]domain.Question, error) {
	w := &where{}
	if filter.Subject != "" {
		w.add("subject = ?", filter.Subject)
	}
	if filter.Class != 0 {
		w.add("class = ?", filter.Class)
	}
	if filter.Topic != "" {
		w.add("topic = ?", filter.Topic)
	}
	if filter.Difficulty != "" {
		w.add("data->>'difficulty' = ?", string(filter.Difficulty))
	}
	if filter.Type != "" {
		w.add("data->>'type' = ?", string(filter.Type))
	}
	if filter.Source != "" {
		w.add("data->>'source' = ?", string(filter.Source))
	}
	rows, err := s.pool.Query(ctx, `SELECT data FROM questions`+w.String()+` ORDER BY created_at DESC, id`, w.args...)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	return scanDocuments[domain.Question](rows)
}

func (s *Store) UpdateQuestion(ctx context.Context, q domain.Question) error {
	raw, err := json.Marshal(q)
	if err != nil {
		return fmt.Errorf("marshal question: %w", err)
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE questions SET subject=$2, class=$3, topic=$4, data=$5 WHERE id=$1`,
		q.ID, q.Subject, q.Class, q.Topic, raw,
	)
	if err != nil {
		return fmt.Errorf("update question: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrQuestionNotFound
	}
	return nil
}

func (s *Store) DeleteQuestion(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM questions WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete question: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrQuestionNotFound
	}
	return nil
}

func (s *Store) CreateTest(ctx context.Context, t domain.Test) error {
	t.Questions = nil
	raw, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal test: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO tests (id, subject, class, start_time, end_time, question_ids, assigned_to, data)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		t.ID, t.Subject, t.Class, t.StartTime, t.EndTime, nonNil(t.QuestionIDs), nonNil(t.AssignedTo), raw,
	)
	if err != nil {
		return fmt.Errorf("insert test: %w", err)
	}
	return nil
}

func (s *Store) GetTest(ctx context.Context, id string) (domain.Test, error) {
	var t domain.Test
	err := s.getDocument(ctx, `SELECT data FROM tests WHERE id=$1`, id, &t)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Test{}, domain.ErrTestNotFound
	}
	return t, err
}

func (s *Store) ListTests(ctx context.Context, filter app.TestFilter) ([]domain.Test, error) {
	w := &where{}
	if filter.Subject != "" {
		w.add("subject = ?", filter.Subject)
	}
	if filter.Class != 0 {
		w.add("class = ?", filter.Class)
	}
	if filter.AssignedTo != "" {
		w.add("? = ANY(assigned_to)", filter.AssignedTo)
	}
	switch filter.Status {
	case domain.TestUpcoming:
		w.add("start_time > ?", filter.At)
	case domain.TestOngoing:
		w.add("start_time <= ?", filter.At)
		w.add("end_time >= ?", filter.At)
	case domain.TestCompleted:
		w.add("end_time < ?", filter.At)
	}
	return s.queryTests(ctx, `SELECT data FROM tests`+w.String()+` ORDER BY start_time, id`, w.args...)
}

func (s *Store) UpdateTest(ctx context.Context, t domain.Test) error {
	t.Questions = nil
	raw, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal test: %w", err)
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE tests SET subject=$2, class=$3, start_time=$4, end_time=$5, question_ids=$6, assigned_to=$7, data=$8 WHERE id=$1`,
		t.ID, t.Subject, t.Class, t.StartTime, t.EndTime, nonNil(t.QuestionIDs), nonNil(t.AssignedTo), raw,
	)
	if err != nil {
		return fmt.Errorf("update test: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTestNotFound
	}
	return nil
}

func (s *Store) DeleteTest(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM tests WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete test: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTestNotFound
	}
	return nil
}

func (s *Store) TestsWithQuestion(ctx context.Context, questionID string) ([]domain.Test, error) {
	return s.queryTests(ctx, `SELECT data FROM tests WHERE $1 = ANY(question_ids) ORDER BY start_time, id`, questionID)
}

func (s *Store) queryTests(ctx context.Context, sql string, args ...interface{}) ([]domain.Test, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list tests: %w", err)
	}
	return scanDocuments[domain.Test](rows)
}

func (s *Store) CreateResult(ctx context.Context, r domain.Result) error {
	raw, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO results (id, student_id, test_id, submitted_at, data) VALUES ($1, $2, $3, $4, $5)`,
		r.ID, r.StudentID, r.TestID, r.SubmittedAt, raw,
	)
	if err != nil {
		return fmt.Errorf("insert result: %w", err)
	}
	return nil
}

func (s *Store) GetResult(ctx context.Context, id string) (domain.Result, error) {
	var r domain.Result
	err := s.getDocument(ctx, `SELECT data FROM results WHERE id=$1`, id, &r)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Result{}, domain.ErrResultNotFound
	}
	return r, err
}

func (s *Store) ListResults(ctx context.Context, filter app.ResultFilter) ([]domain.Result, error) {
	w := &where{}
	if filter.StudentID != "" {
		w.add("student_id = ?", filter.StudentID)
	}
	if len(filter.TestIDs) > 0 {
		w.add("test_id = ANY(?)", filter.TestIDs)
	}
	if !filter.From.IsZero() {
		w.add("submitted_at >= ?", filter.From)
	}
	if !filter.To.IsZero() {
		w.add("submitted_at <= ?", filter.To)
	}
	rows, err := s.pool.Query(ctx, `SELECT data FROM results`+w.String()+` ORDER BY submitted_at DESC, id`, w.args...)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	return scanDocuments[domain.Result](rows)
}

func (s *Store) CreateUser(ctx context.Context, u domain.User) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (id, name, email, password_hash, role, class, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		u.ID, u.Name, u.Email, u.PasswordHash, string(u.Role), u.Class, u.CreatedAt,
	)
	if isUniqueViolation(err) {
		return domain.ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, id string) (domain.User, error) {
	return s.getUser(ctx, `id=$1`, id)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	return s.getUser(ctx, `email=$1`, email)
}

func (s *Store) getUser(ctx context.Context, cond string, arg string) (domain.User, error) {
	var (
		u    domain.User
		role string
	)
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, email, password_hash, role, class, created_at FROM users WHERE `+cond, arg,
	).Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &role, &u.Class, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("load user: %w", err)
	}
	u.Role = domain.Role(role)
	return u, nil
}

func (s *Store) UpdateUser(ctx context.Context, u domain.User) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET name=$2, email=$3, password_hash=$4, role=$5, class=$6 WHERE id=$1`,
		u.ID, u.Name, u.Email, u.PasswordHash, string(u.Role), u.Class,
	)
	if isUniqueViolation(err) {
		return domain.ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (s *Store) getDocument(ctx context.Context, sql, id string, dst interface{}) error {
	var raw []byte
	if err := s.pool.QueryRow(ctx, sql, id).Scan(&raw); err != nil {
		return err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("unmarshal document %s: %w", id, err)
	}
	return nil
}

func scanDocuments[T any](rows pgx.Rows) ([]T, error) {
	defer rows.Close()
	out := make([]T, 0)
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var doc T
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("unmarshal document: %w", err)
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

// Ping verifies connectivity, bounded by timeout.
func (s *Store) Ping(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return s.pool.Ping(ctx)
}

var (
	_ app.QuestionStore = (*Store)(nil)
	_ app.TestStore     = (*Store)(nil)
	_ app.ResultStore   = (*Store)(nil)
	_ app.UserStore     = (*Store)(nil)
)
