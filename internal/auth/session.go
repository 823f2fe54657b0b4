// Package auth holds the process-wide credentials of the signed-in user.
package auth

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/stemsi/edutest/internal/model"
)

// Profiler fetches the current user with the stored token.
type Profiler interface {
	Profile(ctx context.Context) (*model.User, error)
}

// Session is the credential provider every outbound API call reads from.
// There is one per process.
type Session struct {
	mu     sync.RWMutex
	token  string
	claims *Claims
	user   *model.User
	store  Store
	log    zerolog.Logger

	hooksMu sync.Mutex
	onClear []func()
}

func NewSession(store Store, log zerolog.Logger) *Session {
	return &Session{
		store: store,
		log:   log.With().Str("component", "auth").Logger(),
	}
}

// OnClear registers fn to run after the signed-in user goes away: on logout,
// on a 401 from the API, or when a different user signs in.
func (s *Session) OnClear(fn func()) {
	s.hooksMu.Lock()
	s.onClear = append(s.onClear, fn)
	s.hooksMu.Unlock()
}

func (s *Session) runClearHooks() {
	s.hooksMu.Lock()
	hooks := append([]func(){}, s.onClear...)
	s.hooksMu.Unlock()
	for _, fn := range hooks {
		fn()
	}
}

// Init restores stored credentials and confirms them against the API. On any
// failure the stored credentials are cleared.
func (s *Session) Init(ctx context.Context, p Profiler) error {
	token, user, err := s.store.Load(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to load stored credentials")
		_ = s.store.Clear(ctx)
		return err
	}
	if token == "" {
		return nil
	}

	s.set(token, user)

	profile, err := p.Profile(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to load user profile")
		if clearErr := s.Clear(ctx); clearErr != nil {
			s.log.Error().Err(clearErr).Msg("Failed to clear credentials")
		}
		return fmt.Errorf("load profile: %w", err)
	}

	return s.SetUser(ctx, profile)
}

// Login stores the token and user from a successful login.
func (s *Session) Login(ctx context.Context, resp *model.AuthResponse) error {
	prev := s.UserID()
	user := resp.User
	s.set(resp.Token, &user)
	if prev != "" && prev != s.UserID() {
		s.log.Info().Str("previous_user_id", prev).Msg("Signed-in user changed")
		s.runClearHooks()
	}
	if err := s.store.Save(ctx, resp.Token, &user); err != nil {
		return err
	}
	s.log.Info().Str("user_id", user.ID).Str("role", string(user.Role)).Msg("Signed in")
	return nil
}

// SetUser replaces the cached user.
func (s *Session) SetUser(ctx context.Context, user *model.User) error {
	s.mu.Lock()
	s.user = user
	token := s.token
	s.mu.Unlock()
	return s.store.Save(ctx, token, user)
}

// Clear signs out. It is called on logout and whenever the API answers 401.
func (s *Session) Clear(ctx context.Context) error {
	s.mu.Lock()
	had := s.token != ""
	s.token, s.claims, s.user = "", nil, nil
	s.mu.Unlock()

	if had {
		s.log.Info().Msg("Credentials cleared")
		s.runClearHooks()
	}
	return s.store.Clear(ctx)
}

// Token returns the bearer token, or "" when signed out.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// User returns the cached user.
func (s *Session) User() *model.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// Claims returns the decoded token payload. It is nil for an opaque token.
func (s *Session) Claims() *Claims {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.claims
}

// Role prefers the token's role and falls back to the cached user.
func (s *Session) Role() model.Role {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.claims != nil && s.claims.Role != "" {
		return s.claims.Role
	}
	if s.user != nil {
		return s.user.Role
	}
	return ""
}

// UserID prefers the token's subject and falls back to the cached user.
func (s *Session) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.claims != nil && s.claims.SubjectID() != "" {
		return s.claims.SubjectID()
	}
	if s.user != nil {
		return s.user.ID
	}
	return ""
}

func (s *Session) set(token string, user *model.User) {
	claims, err := ParseClaims(token)
	if err != nil {
		s.log.Debug().Err(err).Msg("Token is not a readable JWT")
		claims = nil
	}

	s.mu.Lock()
	s.token, s.claims, s.user = token, claims, user
	s.mu.Unlock()
}
