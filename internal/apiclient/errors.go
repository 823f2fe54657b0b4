package apiclient

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/stemsi/edutest/internal/session"
)

// ErrUnauthorized matches any 401 from the API.
var ErrUnauthorized = errors.New("unauthorized")

// APIError is a non-2xx response. It matches session failure kinds with
// errors.Is once an operation has classified it.
type APIError struct {
	Status  int
	Method  string
	Path    string
	Code    string
	Message string
	Kind    error
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, msg)
}

func (e *APIError) Unwrap() []error {
	var errs []error
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Status == http.StatusUnauthorized {
		errs = append(errs, ErrUnauthorized)
	}
	return errs
}

// UserMessage is the server's message, shown to the student as-is.
func (e *APIError) UserMessage() string {
	return e.Message
}

// TransportError is a failure to reach the API or read its answer.
type TransportError struct {
	Method string
	Path   string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
}

func (e *TransportError) Unwrap() []error {
	return []error{session.ErrNetwork, e.Err}
}

// Codes the API may put in the error body.
const (
	codeInvalidPassword   = "INVALID_PASSWORD"
	codeAttemptsExhausted = "ATTEMPTS_EXHAUSTED"
	codeMaxAttempts       = "MAX_ATTEMPTS_REACHED"
	codeTestNotActive     = "TEST_NOT_ACTIVE"
)

// classifyStart assigns a start failure kind: the body code first, then the
// message wording, then the status.
func classifyStart(err error) error {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return err
	}

	switch apiErr.Code {
	case codeInvalidPassword:
		apiErr.Kind = session.ErrInvalidPassword
		return apiErr
	case codeAttemptsExhausted, codeMaxAttempts:
		apiErr.Kind = session.ErrAttemptsExhausted
		return apiErr
	case codeTestNotActive:
		apiErr.Kind = session.ErrTestNotActive
		return apiErr
	}

	msg := strings.ToLower(apiErr.Message)
	switch {
	case strings.Contains(msg, "password"):
		apiErr.Kind = session.ErrInvalidPassword
	case strings.Contains(msg, "attempt"):
		apiErr.Kind = session.ErrAttemptsExhausted
	case apiErr.Status == http.StatusUnauthorized, apiErr.Status >= http.StatusInternalServerError:
		apiErr.Kind = session.ErrNetwork
	default:
		apiErr.Kind = session.ErrTestNotActive
	}
	return apiErr
}

// classifySubmit treats any 4xx as a rejection and everything else as a network failure.
func classifySubmit(err error) error {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return err
	}
	if apiErr.Status < http.StatusInternalServerError {
		apiErr.Kind = session.ErrServerRejected
	} else {
		apiErr.Kind = session.ErrNetwork
	}
	return apiErr
}
