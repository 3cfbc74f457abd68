package opentdb

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"prepmaster-service/internal/app"
	"prepmaster-service/internal/domain"
)

func TestFetchQuestionsSendsQueryAndParses(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = map[string]string{
			"amount":     r.URL.Query().Get("amount"),
			"difficulty": r.URL.Query().Get("difficulty"),
			"category":   r.URL.Query().Get("category"),
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"response_code":0,"results":[{
			"category":"Science: Computers","type":"multiple","difficulty":"easy",
			"question":"What does &quot;CPU&quot; stand for?",
			"correct_answer":"Central Processing Unit",
			"incorrect_answers":["Central Process Unit","Computer Personal Unit","Central Processor Unit"]}]}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)
	items, err := client.FetchQuestions(context.Background(), app.ImportQuery{
		Amount: 5, Difficulty: domain.DifficultyEasy, Category: "18",
	})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if got["amount"] != "5" || got["difficulty"] != "easy" || got["category"] != "18" {
		t.Fatalf("unexpected query %v", got)
	}
	if len(items) != 1 {
		t.Fatalf("expected one item, got %d", len(items))
	}
	item := items[0]
	if item.CorrectAnswer != "Central Processing Unit" || len(item.IncorrectAnswers) != 3 || item.Category != "Science: Computers" {
		t.Fatalf("unexpected item %+v", item)
	}
}

func TestFetchQuestionsOmitsEmptyFilters(t *testing.T) {
	var rawQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rawQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(`{"response_code":0,"results":[]}`))
	}))
	defer srv.Close()

	items, err := NewClient(srv.URL, time.Second).FetchQuestions(context.Background(), app.ImportQuery{Amount: 3})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if rawQuery != "amount=3" || len(items) != 0 {
		t.Fatalf("unexpected query %q items %d", rawQuery, len(items))
	}
}

func TestFetchQuestionsReportsUpstreamFailures(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"status": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		},
		"response code": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"response_code":1,"results":[]}`))
		},
		"malformed": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`not json`))
		},
	}
	for name, handler := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(handler)
			defer srv.Close()
			_, err := NewClient(srv.URL, time.Second).FetchQuestions(context.Background(), app.ImportQuery{Amount: 1})
			if !errors.Is(err, domain.ErrUpstream) {
				t.Fatalf("expected upstream error, got %v", err)
			}
		})
	}
}
