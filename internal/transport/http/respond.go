package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"prepmaster-service/internal/domain"
)

type errResp struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errResp{Error: msg})
}

// statusOf maps domain errors to HTTP status codes.
func statusOf(err error) int {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized), errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden), errors.Is(err, domain.ErrNotAssigned):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrTestNotFound), errors.Is(err, domain.ErrQuestionNotFound),
		errors.Is(err, domain.ErrResultNotFound), errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrTestNotStarted), errors.Is(err, domain.ErrTestEnded),
		errors.Is(err, domain.ErrTestLocked), errors.Is(err, domain.ErrQuestionLocked),
		errors.Is(err, domain.ErrQuestionInUse), errors.Is(err, domain.ErrEmailTaken):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrImportUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		verr := &domain.ValidationError{}
		verr.Add("body", "Malformed JSON body")
		return verr
	}
	return nil
}

// queryInt returns 0 for a missing value.
func queryInt(r *http.Request, key string) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		verr := &domain.ValidationError{}
		verr.Add(key, "Must be a number")
		return 0, verr
	}
	return n, nil
}

// queryTime accepts RFC 3339 timestamps or plain dates.
func queryTime(r *http.Request, key string) (time.Time, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	verr := &domain.ValidationError{}
	verr.Add(key, "Must be a date")
	return time.Time{}, verr
}
