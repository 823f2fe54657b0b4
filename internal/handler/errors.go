package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stemsi/edutest/internal/apiclient"
	"github.com/stemsi/edutest/internal/response"
	"github.com/stemsi/edutest/internal/session"
)

// failSession maps engine and service errors onto the response envelope.
// data, when set, is sent alongside the error (usually the current snapshot).
func failSession(c *gin.Context, err error, data interface{}) {
	var (
		startErr  *session.StartError
		submitErr *session.SubmitError
	)

	switch {
	case errors.Is(err, apiclient.ErrUnauthorized):
		response.FailWithMessage(c, http.StatusUnauthorized, response.ErrTokenExpired, "", data)

	case errors.As(err, &startErr):
		status, code := http.StatusForbidden, response.ErrTestNotActive
		switch {
		case errors.Is(startErr.Kind, session.ErrInvalidPassword):
			code = response.ErrInvalidPassword
		case errors.Is(startErr.Kind, session.ErrAttemptsExhausted):
			code = response.ErrAttemptsExhausted
		case errors.Is(startErr.Kind, session.ErrNetwork):
			status, code = http.StatusBadGateway, response.ErrUpstreamUnavailable
		}
		response.FailWithMessage(c, status, code, startErr.Message, data)

	case errors.As(err, &submitErr):
		status, code := http.StatusUnprocessableEntity, response.ErrSubmitRejected
		if errors.Is(submitErr.Kind, session.ErrNetwork) {
			status, code = http.StatusBadGateway, response.ErrUpstreamUnavailable
		}
		response.FailWithMessage(c, status, code, submitErr.Message, data)

	case errors.Is(err, session.ErrNoSession), errors.Is(err, session.ErrClosed):
		response.FailWithMessage(c, http.StatusNotFound, response.ErrNoSession, "", data)
	case errors.Is(err, session.ErrInvalidTransition):
		response.FailWithMessage(c, http.StatusConflict, response.ErrInvalidTransition, "", data)
	case errors.Is(err, session.ErrAnswersFrozen):
		response.FailWithMessage(c, http.StatusConflict, response.ErrAnswersFrozen, "", data)
	case errors.Is(err, session.ErrUnknownQuestion):
		response.FailWithMessage(c, http.StatusNotFound, response.ErrUnknownQuestion, "", data)
	default:
		failUpstream(c, err)
	}
}

// failUpstream reports an error from the education API itself.
func failUpstream(c *gin.Context, err error) {
	var apiErr *apiclient.APIError

	switch {
	case errors.Is(err, apiclient.ErrUnauthorized):
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenExpired)
	case errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound:
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.As(err, &apiErr) && apiErr.Status < http.StatusInternalServerError:
		response.FailWithMessage(c, apiErr.Status, response.ErrInvalidPayload, apiErr.Message, nil)
	case errors.Is(err, session.ErrNetwork), errors.As(err, &apiErr):
		response.Fail(c, http.StatusBadGateway, response.ErrUpstreamUnavailable)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
