package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMiddlewareCountsRequests(t *testing.T) {
	m := New()
	handler := m.Middleware(func(*http.Request) string { return "/api/tests" })(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/tests", nil))

	if got := testutil.ToFloat64(m.RequestCounter.WithLabelValues("GET", "/api/tests", "418")); got != 1 {
		t.Fatalf("expected 1 request counted, got %v", got)
	}
}

func TestObserveSubmissionAndHandler(t *testing.T) {
	m := New()
	m.ObserveSubmission("completed", 72.5)
	m.ObserveSubmission("rejected", 0)

	if got := testutil.ToFloat64(m.SubmissionCounter.WithLabelValues("completed")); got != 1 {
		t.Fatalf("expected one completed submission, got %v", got)
	}

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()
	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("scrape: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "prepmaster_submissions_total") {
		t.Fatalf("expected submissions metric in scrape output")
	}
}
