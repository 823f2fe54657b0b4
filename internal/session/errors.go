package session

import (
	"errors"
	"fmt"
)

// Failure kinds. StartError and SubmitError match them with errors.Is.
var (
	ErrInvalidPassword   = errors.New("invalid test password")
	ErrAttemptsExhausted = errors.New("maximum attempts reached")
	ErrTestNotActive     = errors.New("test is not active")
	ErrNetwork           = errors.New("network error")
	ErrServerRejected    = errors.New("submission rejected")
)

// Engine misuse.
var (
	ErrInvalidTransition = errors.New("invalid session transition")
	ErrAnswersFrozen     = errors.New("answers can no longer be changed")
	ErrUnknownQuestion   = errors.New("question is not part of this test")
	ErrClosed            = errors.New("session closed")
	ErrNoSession         = errors.New("no session for test")
)

// userMessager is implemented by service errors that carry a message meant for the student.
type userMessager interface {
	UserMessage() string
}

// StartError reports a failed start. Kind is one of ErrInvalidPassword,
// ErrAttemptsExhausted, ErrTestNotActive or ErrNetwork.
type StartError struct {
	Kind    error
	Message string
	Err     error
}

func (e *StartError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("start test: %v: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("start test: %v", e.Kind)
}

func (e *StartError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// SubmitError reports a failed submission. Kind is ErrNetwork or ErrServerRejected.
type SubmitError struct {
	Kind    error
	Auto    bool
	Message string
	Err     error
}

func (e *SubmitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("submit test: %v: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("submit test: %v", e.Kind)
}

func (e *SubmitError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newStartError(err error) *StartError {
	var se *StartError
	if errors.As(err, &se) {
		return se
	}
	kind := ErrNetwork
	for _, k := range []error{ErrInvalidPassword, ErrAttemptsExhausted, ErrTestNotActive} {
		if errors.Is(err, k) {
			kind = k
			break
		}
	}
	return &StartError{Kind: kind, Message: messageOf(err, MsgStartFailed), Err: err}
}

func newSubmitError(err error, auto bool) *SubmitError {
	var se *SubmitError
	if errors.As(err, &se) {
		return se
	}
	kind := ErrNetwork
	if errors.Is(err, ErrServerRejected) {
		kind = ErrServerRejected
	}
	return &SubmitError{Kind: kind, Auto: auto, Message: messageOf(err, MsgSubmitFailed), Err: err}
}

func messageOf(err error, fallback string) string {
	var um userMessager
	if errors.As(err, &um) && um.UserMessage() != "" {
		return um.UserMessage()
	}
	return fallback
}
