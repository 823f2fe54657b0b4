package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/stemsi/edutest/internal/grading"
	"github.com/stemsi/edutest/internal/middleware"
	"github.com/stemsi/edutest/internal/model"
	"github.com/stemsi/edutest/internal/response"
	"github.com/stemsi/edutest/internal/session"
	"github.com/stemsi/edutest/internal/validator"
)

// ResultsService reads past submissions from the education API.
type ResultsService interface {
	GetTest(ctx context.Context, testID string) (*model.TestDefinition, error)
	GetTestResults(ctx context.Context, testID string) (*model.TestResults, error)
}

// SessionHandler exposes the attempt engine to the UI.
type SessionHandler struct {
	manager *session.Manager
	results ResultsService
	log     zerolog.Logger
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(manager *session.Manager, results ResultsService, log zerolog.Logger) *SessionHandler {
	return &SessionHandler{
		manager: manager,
		results: results,
		log:     log.With().Str("component", "session_handler").Logger(),
	}
}

type startRequest struct {
	Password string `json:"password" binding:"max=128"`
}

type answerRequest struct {
	Answer any `json:"answer"`
}

type navigateRequest struct {
	Delta *int `json:"delta"`
	Index *int `json:"index" binding:"omitempty,min=0"`
}

type submitRequest struct {
	Confirmed bool `json:"confirmed"`
}

func (h *SessionHandler) engine(c *gin.Context) (*session.Engine, bool) {
	e, err := h.manager.Get(middleware.GetUserID(c), c.Param("test_id"))
	if err != nil {
		failSession(c, err, nil)
		return nil, false
	}
	return e, true
}

// OpenTest godoc
// GET /api/v1/tests/:test_id
// Fetches the test and opens a not-started attempt, or returns the one already open.
func (h *SessionHandler) OpenTest(c *gin.Context) {
	e, err := h.manager.Open(c.Request.Context(), middleware.GetUserID(c), c.Param("test_id"))
	if err != nil {
		failUpstream(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"test":  e.Test(),
		"state": e.Snapshot(),
	})
}

// StartTest godoc
// POST /api/v1/tests/:test_id/start
// Starts the attempt. The password is forwarded to the API unchecked.
func (h *SessionHandler) StartTest(c *gin.Context) {
	e, ok := h.engine(c)
	if !ok {
		return
	}

	var req startRequest
	if fields := validator.BindOptional(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := e.Start(c.Request.Context(), req.Password); err != nil {
		failSession(c, err, e.Snapshot())
		return
	}

	response.Attempt(c, session.MsgStarted, e.Snapshot())
}

// SaveAnswer godoc
// PUT /api/v1/tests/:test_id/answers/:question_id
// Records an answer: a string, a list of strings, or a boolean.
func (h *SessionHandler) SaveAnswer(c *gin.Context) {
	e, ok := h.engine(c)
	if !ok {
		return
	}

	var req answerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	answer, valid := normalizeAnswer(req.Answer)
	if !valid {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, map[string]string{
			"answer": "answer must be a string, a list of strings or a boolean",
		})
		return
	}

	questionID := c.Param("question_id")
	if err := e.SetAnswer(c.Request.Context(), questionID, answer); err != nil {
		failSession(c, err, nil)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"question_id": questionID,
		"unanswered":  e.UnansweredCount(),
	})
}

// Navigate godoc
// POST /api/v1/tests/:test_id/navigate
// Moves the cursor by delta or to index. Out-of-range targets leave it in place.
func (h *SessionHandler) Navigate(c *gin.Context) {
	e, ok := h.engine(c)
	if !ok {
		return
	}

	var req navigateRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	if (req.Delta == nil) == (req.Index == nil) {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, map[string]string{
			"delta": "exactly one of delta or index is required",
		})
		return
	}

	var (
		index int
		moved bool
	)
	if req.Delta != nil {
		index, moved = e.Navigate(*req.Delta)
	} else {
		index, moved = e.GoTo(*req.Index)
	}

	response.Success(c, http.StatusOK, gin.H{
		"current_index": index,
		"moved":         moved,
	})
}

// GetState godoc
// GET /api/v1/tests/:test_id/state
// Returns the current snapshot, including remaining time.
func (h *SessionHandler) GetState(c *gin.Context) {
	e, ok := h.engine(c)
	if !ok {
		return
	}
	response.Success(c, http.StatusOK, e.Snapshot())
}

// SubmitTest godoc
// POST /api/v1/tests/:test_id/submit
// Manual submit. With unanswered questions the caller must confirm first.
func (h *SessionHandler) SubmitTest(c *gin.Context) {
	e, ok := h.engine(c)
	if !ok {
		return
	}

	var req submitRequest
	if fields := validator.BindOptional(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if status := e.Status(); status != session.StatusInProgress && status != session.StatusFailed {
		failSession(c, session.ErrInvalidTransition, e.Snapshot())
		return
	}
	if n := e.UnansweredCount(); n > 0 && !req.Confirmed {
		response.FailWithMessage(c, http.StatusConflict, response.ErrUnansweredQuestions, "", gin.H{
			"unanswered": n,
		})
		return
	}

	// The submission settles even if the UI drops the request.
	if err := e.Submit(context.WithoutCancel(c.Request.Context()), false); err != nil {
		failSession(c, err, e.Snapshot())
		return
	}

	response.Attempt(c, session.MsgSubmitted, e.Snapshot())
}

// ResetTest godoc
// POST /api/v1/tests/:test_id/reset
// Abandons a failed attempt so it can be started again.
func (h *SessionHandler) ResetTest(c *gin.Context) {
	e, ok := h.engine(c)
	if !ok {
		return
	}
	if err := e.Reset(c.Request.Context()); err != nil {
		failSession(c, err, e.Snapshot())
		return
	}
	response.Success(c, http.StatusOK, e.Snapshot())
}

// CloseTest godoc
// DELETE /api/v1/tests/:test_id
// Tears the attempt down. A submission still in flight is not reported.
func (h *SessionHandler) CloseTest(c *gin.Context) {
	userID, testID := middleware.GetUserID(c), c.Param("test_id")
	if _, err := h.manager.Get(userID, testID); err != nil {
		failSession(c, err, nil)
		return
	}
	h.manager.Close(userID, testID)
	response.Success(c, http.StatusOK, gin.H{"test_id": testID})
}

// GetResults godoc
// GET /api/v1/tests/:test_id/results
// Lists the signed-in student's own past attempts with grade and band.
func (h *SessionHandler) GetResults(c *gin.Context) {
	ctx := c.Request.Context()
	userID, testID := middleware.GetUserID(c), c.Param("test_id")

	var settings model.TestSettings
	if e, err := h.manager.Get(userID, testID); err == nil {
		settings = e.Test().Settings
	} else {
		def, err := h.results.GetTest(ctx, testID)
		if err != nil {
			failUpstream(c, err)
			return
		}
		settings = def.Settings
	}

	res, err := h.results.GetTestResults(ctx, testID)
	if err != nil {
		failUpstream(c, err)
		return
	}

	attempts := []grading.AttemptView{}
	if userID != "" {
		attempts = grading.History(res, settings, userID)
	}

	response.Success(c, http.StatusOK, gin.H{
		"test":     res.Test,
		"attempts": attempts,
	})
}
