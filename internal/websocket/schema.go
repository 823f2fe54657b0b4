package websocket

import "github.com/stemsi/edutest/internal/session"

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAnswer   Action = "answer"
	ActionNavigate Action = "navigate"
	ActionSubmit   Action = "submit"
	ActionState    Action = "state"
	ActionPing     Action = "ping"
)

// RequestPayload carries every action's fields; each action reads its own.
type RequestPayload struct {
	Action     Action `json:"action"`
	QuestionID string `json:"question_id,omitempty"`
	Answer     any    `json:"answer,omitempty"`
	Delta      *int   `json:"delta,omitempty"`
	Index      *int   `json:"index,omitempty"`
	Confirmed  bool   `json:"confirmed,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError           Event = "error"
	EventSession         Event = "session"
	EventState           Event = "state"
	EventConfirmRequired Event = "confirm_required"
	EventPong            Event = "pong"
)

// SessionResponse relays an engine event: ticks, start, submission outcome.
type SessionResponse struct {
	Event Event         `json:"event"`
	Data  session.Event `json:"data"`
}

type StateResponse struct {
	Event Event            `json:"event"`
	State session.Snapshot `json:"state"`
}

type ConfirmResponse struct {
	Event      Event `json:"event"`
	Unanswered int   `json:"unanswered"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
