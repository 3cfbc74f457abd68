package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"prepmaster-service/internal/domain"
)

// TestLoader loads a test and its questions from JSONB in one round trip.
type TestLoader struct {
	pool *pgxpool.Pool
}

func NewTestLoader(pool *pgxpool.Pool) *TestLoader {
	return &TestLoader{pool: pool}
}

const loadTestSQL = `
SELECT t.data,
       COALESCE(jsonb_agg(q.data ORDER BY array_position(t.question_ids, q.id)) FILTER (WHERE q.id IS NOT NULL), '[]'::jsonb)
FROM tests t
LEFT JOIN questions q ON q.id = ANY(t.question_ids)
WHERE t.id = $1
GROUP BY t.id`

func (l *TestLoader) LoadTest(ctx context.Context, testID string) (domain.Test, error) {
	var rawTest, rawQuestions []byte
	err := l.pool.QueryRow(ctx, loadTestSQL, testID).Scan(&rawTest, &rawQuestions)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Test{}, domain.ErrTestNotFound
	}
	if err != nil {
		return domain.Test{}, fmt.Errorf("load test: %w", err)
	}
	var test domain.Test
	if err := json.Unmarshal(rawTest, &test); err != nil {
		return domain.Test{}, fmt.Errorf("unmarshal test: %w", err)
	}
	var questions []domain.Question
	if err := json.Unmarshal(rawQuestions, &questions); err != nil {
		return domain.Test{}, fmt.Errorf("unmarshal questions: %w", err)
	}
	byID := make(map[string]domain.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}
	test.Questions = make([]domain.Question, 0, len(test.QuestionIDs))
	for _, id := range test.QuestionIDs {
		q, ok := byID[id]
		if !ok {
			return domain.Test{}, fmt.Errorf("resolve questions of test %s: %w", testID, domain.ErrQuestionNotFound)
		}
		test.Questions = append(test.Questions, q)
	}
	return test, nil
}
