package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/stemsi/edutest/internal/apiclient"
	"github.com/stemsi/edutest/internal/auth"
	"github.com/stemsi/edutest/internal/model"
	"github.com/stemsi/edutest/internal/response"
	"github.com/stemsi/edutest/internal/validator"
)

// Authenticator signs in against the education API.
type Authenticator interface {
	Login(ctx context.Context, req model.LoginRequest) (*model.AuthResponse, error)
}

// AuthHandler handles sign-in for the agent's single user.
type AuthHandler struct {
	api     Authenticator
	session *auth.Session
	log     zerolog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(api Authenticator, session *auth.Session, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		api:     api,
		session: session,
		log:     log.With().Str("component", "auth_handler").Logger(),
	}
}

// Login godoc
// POST /api/v1/auth/login
// Signs in with email and password and stores the returned token.
func (h *AuthHandler) Login(c *gin.Context) {
	var req model.LoginRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	resp, err := h.api.Login(c.Request.Context(), req)
	if err != nil {
		var apiErr *apiclient.APIError
		if errors.As(err, &apiErr) && apiErr.Status < http.StatusInternalServerError {
			response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials)
			return
		}
		h.log.Error().Err(err).Msg("Login failed")
		failUpstream(c, err)
		return
	}

	if err := h.session.Login(c.Request.Context(), resp); err != nil {
		h.log.Error().Err(err).Msg("Failed to store credentials")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"user": resp.User})
}

// Logout godoc
// POST /api/v1/auth/logout
// Forgets the stored token and user.
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.session.Clear(c.Request.Context()); err != nil {
		h.log.Error().Err(err).Msg("Failed to clear credentials")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{})
}

// Me godoc
// GET /api/v1/auth/me
// Returns the signed-in user, or 401 when signed out.
func (h *AuthHandler) Me(c *gin.Context) {
	user := h.session.User()
	if h.session.Token() == "" || user == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"user": user})
}
