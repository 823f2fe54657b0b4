package session

import (
	"time"

	"github.com/stemsi/edutest/internal/grading"
)

// Messages shown to the student as toasts.
const (
	MsgStarted       = "Test started! Good luck!"
	MsgSubmitted     = "Test submitted successfully!"
	MsgAutoSubmitted = "Time's up! Test submitted automatically."
	MsgStartFailed   = "Failed to start test"
	MsgSubmitFailed  = "Failed to submit test"
)

// EventKind identifies an engine event.
type EventKind string

const (
	EventStarted      EventKind = "started"
	EventStartFailed  EventKind = "start_failed"
	EventTick         EventKind = "tick"
	EventSubmitting   EventKind = "submitting"
	EventSubmitted    EventKind = "submitted"
	EventSubmitFailed EventKind = "submit_failed"
	EventReset        EventKind = "reset"
	EventClosed       EventKind = "closed"
)

// Event is published to the engine's notifier after every state change and tick.
type Event struct {
	Kind      EventKind           `json:"kind"`
	TestID    string              `json:"test_id"`
	Status    Status              `json:"status"`
	Auto      bool                `json:"auto,omitempty"`
	Message   string              `json:"message,omitempty"`
	Remaining *Remaining          `json:"remaining,omitempty"`
	Result    *grading.ResultView `json:"result,omitempty"`
	At        time.Time           `json:"at"`
}

// Notifier receives engine events. It is called without the engine lock held.
type Notifier func(Event)
