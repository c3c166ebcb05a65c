package session

import (
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenPair is the persisted access/refresh pair issued by the backend.
type TokenPair struct {
	Access  string
	Refresh string
}

// Zero reports whether no tokens are held.
func (t TokenPair) Zero() bool {
	return t.Access == "" && t.Refresh == ""
}

// User is the authenticated profile returned by the backend.
type User struct {
	ID        string
	Email     string
	FirstName string
	LastName  string
	IsStaff   bool
}

// DisplayName returns the best available human-readable name.
func (u User) DisplayName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name != "" {
		return name
	}
	return u.Email
}

// Session is the single mutable authentication context shared by the REST
// client and the connection manager. There are no package-level token
// variables anywhere else; everything that needs credentials holds one of
// these.
type Session struct {
	mu     sync.RWMutex
	name   string
	tokens TokenPair
	user   User
}

// New creates a session context for the named session directory.
func New(name string) *Session {
	return &Session{name: name}
}

// Name returns the session name.
func (s *Session) Name() string {
	return s.name
}

// Tokens returns the current token pair.
func (s *Session) Tokens() TokenPair {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens
}

// SetTokens replaces the token pair.
func (s *Session) SetTokens(t TokenPair) {
	s.mu.Lock()
	s.tokens = t
	s.mu.Unlock()
}

// SetAccess replaces only the access token, keeping the refresh token.
func (s *Session) SetAccess(access string) {
	s.mu.Lock()
	s.tokens.Access = access
	s.mu.Unlock()
}

// Clear drops tokens and user profile.
func (s *Session) Clear() {
	s.mu.Lock()
	s.tokens = TokenPair{}
	s.user = User{}
	s.mu.Unlock()
}

// User returns the authenticated profile.
func (s *Session) User() User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// SetUser stores the authenticated profile.
func (s *Session) SetUser(u User) {
	s.mu.Lock()
	s.user = u
	s.mu.Unlock()
}

// Authenticated reports whether a token pair is held.
func (s *Session) Authenticated() bool {
	return !s.Tokens().Zero()
}

// AccessExpiresWithin reports whether the access token's exp claim falls
// inside the given window. The signature is NOT verified — the claim is used
// only to schedule a proactive refresh, never for authorization.
func (s *Session) AccessExpiresWithin(window time.Duration) bool {
	access := s.Tokens().Access
	if access == "" {
		return true
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(access, claims); err != nil {
		return true
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return time.Until(exp.Time) < window
}
