package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/stemsi/edutest/internal/auth"
	"github.com/stemsi/edutest/internal/model"
	"github.com/stemsi/edutest/internal/response"
)

const (
	// ContextKeyUserID is the Gin context key for the signed-in user's id.
	ContextKeyUserID = "user_id"
	// ContextKeyRole is the Gin context key for the signed-in user's role.
	ContextKeyRole = "role"
)

// Credentials is the part of the credential provider the gate reads.
type Credentials interface {
	Token() string
	Claims() *auth.Claims
	Role() model.Role
	UserID() string
}

// RequireStudent lets a request through only while a student is signed in.
// An expired token is rejected here instead of waiting for the API's 401.
func RequireStudent(creds Credentials) gin.HandlerFunc {
	return requireStudentAt(creds, time.Now)
}

func requireStudentAt(creds Credentials, now func() time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		if creds.Token() == "" {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}

		if claims := creds.Claims(); claims != nil && claims.ExpiredAt(now()) {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenExpired)
			return
		}

		role := creds.Role()
		if role != model.RoleStudent {
			response.AbortFail(c, http.StatusForbidden, response.ErrStudentAccessOnly)
			return
		}

		c.Set(ContextKeyUserID, creds.UserID())
		c.Set(ContextKeyRole, role)
		c.Next()
	}
}

// GetUserID retrieves the signed-in user's id from the Gin context.
func GetUserID(c *gin.Context) string {
	return c.GetString(ContextKeyUserID)
}
