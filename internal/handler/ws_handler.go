package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/stemsi/edutest/internal/middleware"
	"github.com/stemsi/edutest/internal/response"
	"github.com/stemsi/edutest/internal/session"
	ws "github.com/stemsi/edutest/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams engine events to the UI and accepts the same actions as
// the REST routes.
type WSHandler struct {
	manager  *session.Manager
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(manager *session.Manager, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		manager:  manager,
		log:      log.With().Str("component", "ws_handler").Logger(),
		upgrader: buildUpgrader(allowedOrigins),
	}
}

// TestStream godoc
// WS /ws/v1/tests/:test_id/stream
// Upgrades to WebSocket. Every engine event for the test is pushed as it
// happens; the countdown arrives as "tick" events.
func (h *WSHandler) TestStream(c *gin.Context) {
	userID, testID := middleware.GetUserID(c), c.Param("test_id")
	e, err := h.manager.Get(userID, testID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNoSession)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().
		Str("test_id", testID).
		Str("request_id", response.RequestID(c)).
		Logger()
	wsLog.Info().Msg("UI connected")

	events, unsubscribe := h.manager.Subscribe(userID, testID)
	defer unsubscribe()

	// Only the writer goroutine touches the connection for writes.
	replies := make(chan interface{}, 8)
	done := make(chan struct{})
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for {
			var msg interface{}
			select {
			case <-done:
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				msg = ws.SessionResponse{Event: ws.EventSession, Data: ev}
				if ev.Kind == session.EventClosed {
					// The attempt is gone; end the stream so the reader unblocks.
					_ = ws.WriteTyped(conn, msg)
					_ = conn.Close()
					return
				}
			case msg = <-replies:
			}
			if err := ws.WriteTyped(conn, msg); err != nil {
				wsLog.Debug().Err(err).Msg("Write failed")
				return
			}
		}
	}()
	defer func() {
		close(done)
		<-writerDone
	}()

	replies <- ws.StateResponse{Event: ws.EventState, State: e.Snapshot()}

	for {
		var msg ws.RequestPayload
		if err := ws.ReadJSON(conn, &msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		reply := h.handleAction(c.Request.Context(), e, &msg)
		if reply == nil {
			continue
		}
		select {
		case replies <- reply:
		case <-writerDone:
			return
		}
	}
}

func (h *WSHandler) handleAction(ctx context.Context, e *session.Engine, msg *ws.RequestPayload) interface{} {
	switch msg.Action {
	case ws.ActionPing:
		return ws.PongResponse{Event: ws.EventPong}

	case ws.ActionState:
		return ws.StateResponse{Event: ws.EventState, State: e.Snapshot()}

	case ws.ActionAnswer:
		answer, ok := normalizeAnswer(msg.Answer)
		if msg.QuestionID == "" || !ok {
			return wsError("question_id and a string, list or boolean answer are required")
		}
		if err := e.SetAnswer(ctx, msg.QuestionID, answer); err != nil {
			return wsError(err.Error())
		}
		return nil

	case ws.ActionNavigate:
		switch {
		case msg.Delta != nil:
			e.Navigate(*msg.Delta)
		case msg.Index != nil:
			e.GoTo(*msg.Index)
		default:
			return wsError("delta or index is required")
		}
		return ws.StateResponse{Event: ws.EventState, State: e.Snapshot()}

	case ws.ActionSubmit:
		if status := e.Status(); status != session.StatusInProgress && status != session.StatusFailed {
			return wsError(session.ErrInvalidTransition.Error())
		}
		if n := e.UnansweredCount(); n > 0 && !msg.Confirmed {
			return ws.ConfirmResponse{Event: ws.EventConfirmRequired, Unanswered: n}
		}
		// The outcome reaches the UI as a session event.
		err := e.Submit(context.WithoutCancel(ctx), false)
		if err != nil && !session.IsFailure(err) {
			return wsError(err.Error())
		}
		return nil

	default:
		return wsError("unknown action: " + string(msg.Action))
	}
}

func wsError(msg string) ws.ErrorResponse {
	return ws.ErrorResponse{Event: ws.EventError, Error: msg}
}
