package apiclient

import (
	"context"
	"fmt"
	"net/http"

	"github.com/stemsi/edutest/internal/model"
)

// Login exchanges email and password for a token. Storing it is the caller's job.
func (c *Client) Login(ctx context.Context, req model.LoginRequest) (*model.AuthResponse, error) {
	var resp model.AuthResponse
	if err := c.send(ctx, http.MethodPost, "/auth/login", req, &resp, false); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	return &resp, nil
}

type profileResponse struct {
	User model.User `json:"user"`
}

// Profile returns the user the current token belongs to.
func (c *Client) Profile(ctx context.Context) (*model.User, error) {
	var resp profileResponse
	if err := c.do(ctx, http.MethodGet, "/auth/profile", nil, &resp); err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return &resp.User, nil
}
