package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/edutest/internal/apiclient"
	"github.com/stemsi/edutest/internal/auth"
	"github.com/stemsi/edutest/internal/checkpoint"
	"github.com/stemsi/edutest/internal/config"
	"github.com/stemsi/edutest/internal/handler"
	"github.com/stemsi/edutest/internal/middleware"
	"github.com/stemsi/edutest/internal/model"
	"github.com/stemsi/edutest/internal/session"
	"github.com/stemsi/edutest/internal/validator"
)

type fakeAPI struct {
	users map[string]model.User
}

func (f *fakeAPI) Login(ctx context.Context, req model.LoginRequest) (*model.AuthResponse, error) {
	u, ok := f.users[req.Email]
	if !ok {
		return nil, &apiclient.APIError{Status: http.StatusUnauthorized, Message: "Invalid credentials"}
	}
	return &model.AuthResponse{Token: "opaque-" + u.ID, User: u}, nil
}

func (f *fakeAPI) GetTest(ctx context.Context, testID string) (*model.TestDefinition, error) {
	return &model.TestDefinition{
		ID:               testID,
		Title:            "Chemistry",
		TimeLimitMinutes: 20,
		Questions: []model.TestQuestionSlot{
			{Question: model.SlotQuestion{RefID: "q1"}, Points: 5, Order: 1},
		},
	}, nil
}

func (f *fakeAPI) StartTest(ctx context.Context, testID, password string) (*model.StartedAttempt, error) {
	if password == "guess" {
		return nil, &session.StartError{Kind: session.ErrInvalidPassword, Message: "Invalid password"}
	}
	return &model.StartedAttempt{SubmissionID: "sub-" + testID, StartTime: time.Now(), TimeLimitMinutes: 20}, nil
}

func (f *fakeAPI) SubmitTest(ctx context.Context, testID string, answers []model.SubmitAnswer) (*model.SubmissionResult, error) {
	return &model.SubmissionResult{}, nil
}

func (f *fakeAPI) GetTestResults(ctx context.Context, testID string) (*model.TestResults, error) {
	return &model.TestResults{}, nil
}

func setup(t *testing.T) http.Handler {
	t.Helper()
	validator.Setup()

	api := &fakeAPI{users: map[string]model.User{
		"ana@example.com":  {ID: "stu-1", Email: "ana@example.com", Role: model.RoleStudent},
		"budi@example.com": {ID: "tch-1", Email: "budi@example.com", Role: model.RoleTeacher},
		"cici@example.com": {ID: "stu-2", Email: "cici@example.com", Role: model.RoleStudent},
	}}
	log := zerolog.Nop()
	creds := auth.NewSession(auth.NewMemoryStore(), log)
	manager := session.NewManager(api, checkpoint.NewMemoryStore(), session.ManagerConfig{}, log)
	creds.OnClear(manager.CloseAll)
	t.Cleanup(manager.CloseAll)

	handlers := &Handlers{
		Auth:    handler.NewAuthHandler(api, creds, log),
		Session: handler.NewSessionHandler(manager, api, log),
		WS:      handler.NewWSHandler(manager, log, nil),
	}
	cfg := &config.Config{GinMode: gin.TestMode}
	return SetupRouter(handlers, creds, middleware.NewRateLimiter(2, time.Minute), cfg)
}

func call(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Error.Code
}

func login(t *testing.T, r http.Handler, email string) {
	t.Helper()
	w := call(t, r, http.MethodPost, "/api/v1/auth/login", gin.H{"email": email, "password": "secret123"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestHealth(t *testing.T) {
	w := call(t, setup(t), http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestTests_RequireSignedInStudent(t *testing.T) {
	r := setup(t)

	w := call(t, r, http.MethodGet, "/api/v1/tests/t1", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "TOKEN_REQUIRED", errCode(t, w))

	w = call(t, r, http.MethodGet, "/ws/v1/tests/t1/stream", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	login(t, r, "budi@example.com")
	w = call(t, r, http.MethodGet, "/api/v1/tests/t1", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "STUDENT_ACCESS_ONLY", errCode(t, w))

	login(t, r, "ana@example.com")
	w = call(t, r, http.MethodGet, "/api/v1/tests/t1", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = call(t, r, http.MethodPost, "/api/v1/auth/logout", nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = call(t, r, http.MethodGet, "/api/v1/tests/t1/state", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuth_LoginAndMe(t *testing.T) {
	r := setup(t)

	w := call(t, r, http.MethodGet, "/api/v1/auth/me", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = call(t, r, http.MethodPost, "/api/v1/auth/login", gin.H{"email": "nobody@example.com", "password": "secret123"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "INVALID_CREDENTIALS", errCode(t, w))

	w = call(t, r, http.MethodPost, "/api/v1/auth/login", gin.H{"email": "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", errCode(t, w))

	login(t, r, "ana@example.com")
	w = call(t, r, http.MethodGet, "/api/v1/auth/me", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"stu-1"`)
}

func TestStart_RateLimited(t *testing.T) {
	r := setup(t)
	login(t, r, "ana@example.com")
	require.Equal(t, http.StatusOK, call(t, r, http.MethodGet, "/api/v1/tests/t1", nil).Code)

	for i := 0; i < 2; i++ {
		w := call(t, r, http.MethodPost, "/api/v1/tests/t1/start", gin.H{"password": "guess"})
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "INVALID_PASSWORD", errCode(t, w))
	}

	w := call(t, r, http.MethodPost, "/api/v1/tests/t1/start", gin.H{"password": "guess"})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
}

func openState(t *testing.T, r http.Handler, testID string) session.Snapshot {
	t.Helper()
	w := call(t, r, http.MethodGet, "/api/v1/tests/"+testID, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var body struct {
		Data struct {
			State session.Snapshot `json:"state"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Data.State
}

func TestAttempt_NotCarriedAcrossStudents(t *testing.T) {
	r := setup(t)

	login(t, r, "ana@example.com")
	assert.Equal(t, session.StatusNotStarted, openState(t, r, "t1").Status)
	require.Equal(t, http.StatusOK, call(t, r, http.MethodPost, "/api/v1/tests/t1/start", nil).Code)
	require.Equal(t, http.StatusOK, call(t, r, http.MethodPut, "/api/v1/tests/t1/answers/q1", gin.H{"answer": "A"}).Code)
	require.Equal(t, http.StatusOK, call(t, r, http.MethodPost, "/api/v1/auth/logout", nil).Code)

	login(t, r, "cici@example.com")
	state := openState(t, r, "t1")
	assert.Equal(t, session.StatusNotStarted, state.Status)
	assert.Empty(t, state.SubmissionID)
	assert.Equal(t, 1, state.Unanswered)

	// Switching back without a logout still closes the other student's attempt.
	login(t, r, "ana@example.com")
	state = openState(t, r, "t1")
	assert.Equal(t, session.StatusInProgress, state.Status)
	assert.Equal(t, "sub-t1", state.SubmissionID)
	assert.Equal(t, 0, state.Unanswered)
}
