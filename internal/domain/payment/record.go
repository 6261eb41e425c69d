// Package payment holds the saved-payment record store and the simulated
// payment processor.
package payment

import (
	"context"
	"sync"

	"github.com/go-faster/errors"
)

// Storage keys for the saved-payment record. These are the store's external
// interface: plain string values under fixed keys, no versioning.
const (
	KeyCustomerName  = "saved_customer_name"
	KeyCustomerEmail = "saved_customer_email"
	KeyCardNumber    = "saved_card_number"
	KeyExpiryDate    = "saved_expiry_date"
)

// ErrNoSavedRecord is returned by Load when nothing has been saved yet.
var ErrNoSavedRecord = errors.New("no saved payment record")

// Record is the previously entered checkout form data kept for pre-fill
// convenience. The card number is stored as entered, unmasked. There is no
// CVV field: the security code is structurally excluded from persistence,
// not merely skipped.
//
// The record is global, not scoped to the authenticated user. That gap is
// inherited from the original store and preserved deliberately.
type Record struct {
	Name       string
	Email      string
	CardNumber string
	Expiry     string
}

// Store persists a single saved-payment record across restarts.
type Store interface {
	// Save overwrites the record wholesale.
	Save(ctx context.Context, rec Record) error
	// Load returns the saved record, or ErrNoSavedRecord when the stored
	// name is absent or empty. Other missing fields default to "".
	Load(ctx context.Context) (*Record, error)
	// Clear deletes the record.
	Clear(ctx context.Context) error
}

// MemoryStore is an in-process Store used in tests and when no database is
// configured. Same key semantics as the persistent store.
type MemoryStore struct {
	mu     sync.Mutex
	values map[string]string
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

// Save implements Store.
func (s *MemoryStore) Save(_ context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[KeyCustomerName] = rec.Name
	s.values[KeyCustomerEmail] = rec.Email
	s.values[KeyCardNumber] = rec.CardNumber
	s.values[KeyExpiryDate] = rec.Expiry
	return nil
}

// Load implements Store.
func (s *MemoryStore) Load(_ context.Context) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := s.values[KeyCustomerName]
	if name == "" {
		return nil, ErrNoSavedRecord
	}
	return &Record{
		Name:       name,
		Email:      s.values[KeyCustomerEmail],
		CardNumber: s.values[KeyCardNumber],
		Expiry:     s.values[KeyExpiryDate],
	}, nil
}

// Clear implements Store.
func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, KeyCustomerName)
	delete(s.values, KeyCustomerEmail)
	delete(s.values, KeyCardNumber)
	delete(s.values, KeyExpiryDate)
	return nil
}
