// Package session implements the two-state authentication gate and the
// token registry that keys it over the HTTP boundary.
package session

import (
	"sync"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
)

// Demo credentials. This is a stand-in credential check for a demonstration
// store, not an authentication system: no hashing, no lockout, no rate
// limiting. Hardening it would change observable behavior.
const (
	demoUsername = "admin"
	demoPassword = "password"
)

// Sentinel errors for session operations.
var (
	// ErrInvalidCredentials is surfaced to users as
	// "Invalid username or password. Please try again."
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrNoSession indicates an unknown or expired session token.
	ErrNoSession = errors.New("no such session")
)

// Gate is the authenticated/unauthenticated state machine for one session.
// It starts Unauthenticated; a successful Login moves it to Authenticated
// and records the username, Logout unconditionally resets it.
type Gate struct {
	mu            sync.Mutex
	authenticated bool
	currentUser   string
}

// NewGate returns a gate in the Unauthenticated state.
func NewGate() *Gate {
	return &Gate{}
}

// Login attempts the credential check. On success the gate becomes
// Authenticated with username as the current user. On failure the state is
// left unchanged and ErrInvalidCredentials is returned.
func (g *Gate) Login(username, password string) error {
	if username != demoUsername || password != demoPassword {
		return ErrInvalidCredentials
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.authenticated = true
	g.currentUser = username
	return nil
}

// Logout unconditionally returns the gate to Unauthenticated and clears the
// current-user label.
func (g *Gate) Logout() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.authenticated = false
	g.currentUser = ""
}

// Authenticated reports whether the gate is in the Authenticated state.
func (g *Gate) Authenticated() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.authenticated
}

// CurrentUser returns the current-user label, empty when unauthenticated.
func (g *Gate) CurrentUser() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.currentUser
}

// Registry maps opaque session tokens to gates. Sessions live for the
// process lifetime only; nothing here is persisted.
type Registry struct {
	mu    sync.RWMutex
	gates map[string]*Gate
}

// NewRegistry returns an empty session registry.
func NewRegistry() *Registry {
	return &Registry{gates: make(map[string]*Gate)}
}

// Begin performs the credential check and, on success, issues a new session
// token bound to an authenticated gate.
func (r *Registry) Begin(username, password string) (token string, err error) {
	g := NewGate()
	if err := g.Login(username, password); err != nil {
		return "", err
	}

	token = uuid.New().String()
	r.mu.Lock()
	r.gates[token] = g
	r.mu.Unlock()
	return token, nil
}

// Lookup resolves a token to its gate. Unknown tokens return ErrNoSession.
func (r *Registry) Lookup(token string) (*Gate, error) {
	r.mu.RLock()
	g, ok := r.gates[token]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrNoSession
	}
	return g, nil
}

// End logs the gate out and removes the token. Unknown tokens are a no-op:
// logout is unconditional from the caller's point of view.
func (r *Registry) End(token string) {
	r.mu.Lock()
	g, ok := r.gates[token]
	delete(r.gates, token)
	r.mu.Unlock()

	if ok {
		g.Logout()
	}
}
