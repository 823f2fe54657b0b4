package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"

	"github.com/stemsi/edutest/internal/auth"
	"github.com/stemsi/edutest/internal/model"
)

type stubCreds struct {
	token  string
	claims *auth.Claims
	role   model.Role
	userID string
}

func (s stubCreds) Token() string        { return s.token }
func (s stubCreds) Claims() *auth.Claims { return s.claims }
func (s stubCreds) Role() model.Role     { return s.role }
func (s stubCreds) UserID() string       { return s.userID }

func serve(h gin.HandlerFunc, path, target string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST(path, h, func(c *gin.Context) {
		c.String(http.StatusOK, GetUserID(c))
	})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, target, nil))
	return w
}

func TestRequireStudent(t *testing.T) {
	now := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	expired := &auth.Claims{RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(now.Add(-time.Minute))}}
	valid := &auth.Claims{RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour))}}

	tests := []struct {
		name   string
		creds  stubCreds
		status int
		body   string
	}{
		{"signed out", stubCreds{}, http.StatusUnauthorized, "TOKEN_REQUIRED"},
		{"expired", stubCreds{token: "t", claims: expired, role: model.RoleStudent}, http.StatusUnauthorized, "TOKEN_EXPIRED"},
		{"teacher", stubCreds{token: "t", claims: valid, role: model.RoleTeacher}, http.StatusForbidden, "STUDENT_ACCESS_ONLY"},
		{"student", stubCreds{token: "t", claims: valid, role: model.RoleStudent, userID: "u-1"}, http.StatusOK, "u-1"},
		{"opaque student", stubCreds{token: "t", role: model.RoleStudent, userID: "u-2"}, http.StatusOK, "u-2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(requireStudentAt(tt.creds, func() time.Time { return now }), "/x", "/x")
			assert.Equal(t, tt.status, w.Code)
			assert.Contains(t, w.Body.String(), tt.body)
		})
	}
}

func TestRateLimiter(t *testing.T) {
	now := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(2, time.Minute)
	rl.now = func() time.Time { return now }

	hit := func(test string) int {
		return serve(rl.Middleware(), "/tests/:test_id/start", "/tests/"+test+"/start").Code
	}

	assert.Equal(t, http.StatusOK, hit("a"))
	assert.Equal(t, http.StatusOK, hit("a"))
	assert.Equal(t, http.StatusTooManyRequests, hit("a"))
	assert.Equal(t, http.StatusOK, hit("b"))

	now = now.Add(time.Minute)
	assert.Equal(t, http.StatusOK, hit("a"))

	now = now.Add(10 * time.Minute)
	rl.Cleanup()
	assert.Empty(t, rl.visitors)
}
