package api

import (
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/golang-jwt/jwt/v5"
)

// Session carries the bearer credential for one user.
// It is passed explicitly to every request-issuing call.
type Session struct {
	mu    sync.RWMutex
	token string
}

// NewSession creates a session, optionally seeded with an existing token
func NewSession(token string) *Session {
	return &Session{token: token}
}

// Token returns the current bearer token, empty when logged out
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// SetToken replaces the bearer token
func (s *Session) SetToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

// Clear logs the session out
func (s *Session) Clear() {
	s.SetToken("")
}

// Authenticated reports whether the session holds a token
func (s *Session) Authenticated() bool {
	return s.Token() != ""
}

// Expired reports whether the token's exp claim is in the past.
// The signature is not verified; only the backend can do that.
// Opaque tokens and tokens without exp never expire client-side.
func (s *Session) Expired(now time.Time) bool {
	token := s.Token()
	if token == "" {
		return false
	}
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return false
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !now.Before(exp.Time)
}

// authorize attaches the bearer header. An expired token is cleared
// before the request is sent.
func (s *Session) authorize(req *resty.Request, now time.Time) error {
	if s.Expired(now) {
		s.Clear()
		return &APIError{Status: 401, Detail: "session expired"}
	}
	if token := s.Token(); token != "" {
		req.SetAuthToken(token)
	}
	return nil
}
