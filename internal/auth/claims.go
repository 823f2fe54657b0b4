package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/stemsi/edutest/internal/model"
)

// ErrNoToken is returned when there is no token to parse.
var ErrNoToken = errors.New("not signed in")

// Claims is the payload the education API puts in its bearer tokens.
type Claims struct {
	UserID string     `json:"userId"`
	Role   model.Role `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// SubjectID returns the user id, falling back to the standard sub claim.
func (c *Claims) SubjectID() string {
	if c.UserID != "" {
		return c.UserID
	}
	return c.Subject
}

// ExpiredAt reports whether the token is past its exp claim at now.
func (c *Claims) ExpiredAt(now time.Time) bool {
	return c.ExpiresAt != nil && !now.Before(c.ExpiresAt.Time)
}

// ParseClaims decodes the token payload without checking the signature. The
// signing key belongs to the API; the agent only reads identity and expiry.
func ParseClaims(token string) (*Claims, error) {
	if token == "" {
		return nil, ErrNoToken
	}
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	return claims, nil
}
