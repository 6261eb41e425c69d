package cart

import "sync"

// Store keeps one ledger per session token. Carts live for the lifetime of
// the process only; they are never persisted and die with the session.
type Store struct {
	mu      sync.RWMutex
	ledgers map[string]*Ledger
}

// NewStore returns an empty cart store.
func NewStore() *Store {
	return &Store{ledgers: make(map[string]*Ledger)}
}

// ForSession returns the ledger for the given session token, creating an
// empty one on first use.
func (s *Store) ForSession(token string) *Ledger {
	s.mu.RLock()
	l, ok := s.ledgers[token]
	s.mu.RUnlock()
	if ok {
		return l
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.ledgers[token]; ok {
		return l
	}
	l = NewLedger()
	s.ledgers[token] = l
	return l
}

// Drop discards the ledger for a session, if any. Called on logout.
func (s *Store) Drop(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.ledgers, token)
}
