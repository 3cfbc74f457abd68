package domain

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrTestNotFound is returned when a test id cannot be resolved.
	ErrTestNotFound = errors.New("test not found")
	// ErrQuestionNotFound indicates a question id is unknown.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrResultNotFound indicates a result id is unknown.
	ErrResultNotFound = errors.New("result not found")
	// ErrUserNotFound indicates a user id or email is unknown.
	ErrUserNotFound = errors.New("user not found")
	// ErrTestNotStarted rejects submissions before the test window opens.
	ErrTestNotStarted = errors.New("test has not started yet")
	// ErrTestEnded rejects submissions after the test window closes.
	ErrTestEnded = errors.New("test has already ended")
	// ErrTestLocked rejects edits to a test that has started.
	ErrTestLocked = errors.New("cannot modify an ongoing or completed test")
	// ErrQuestionLocked rejects edits to a question used by an ongoing test.
	ErrQuestionLocked = errors.New("question is used in an ongoing test")
	// ErrQuestionInUse rejects deletion of a question referenced by a test.
	ErrQuestionInUse = errors.New("question is used in tests")
	// ErrNotAssigned is returned when a student submits a test not assigned to them.
	ErrNotAssigned = errors.New("test not assigned to user")
	// ErrForbidden is returned when the caller lacks access to a resource.
	ErrForbidden = errors.New("access denied")
	// ErrUnauthorized is returned when no valid credentials were presented.
	ErrUnauthorized = errors.New("authentication required")
	// ErrInvalidCredentials is returned on a failed login.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrEmailTaken is returned when registering an existing email.
	ErrEmailTaken = errors.New("email already registered")
	// ErrImportUnavailable is returned when no external question bank is configured.
	ErrImportUnavailable = errors.New("question import is not configured")
	// ErrUpstream wraps failures of the external question bank.
	ErrUpstream = errors.New("error fetching questions from provider")
)

// ValidationError carries per-field messages for a rejected request.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add records a message for field, keeping the first one reported.
func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, ok := e.Fields[field]; !ok {
		e.Fields[field] = msg
	}
}

// OrNil returns e as an error only when a field was reported.
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}
