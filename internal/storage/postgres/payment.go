package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/retail-convenience/internal/domain/payment"
)

const (
	upsertValueSQL = `INSERT INTO saved_payment (key, value, updated_at)
	VALUES ($1, $2, now())
	ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`

	selectValuesSQL = `SELECT key, value FROM saved_payment WHERE key = ANY($1)`

	deleteValuesSQL = `DELETE FROM saved_payment WHERE key = ANY($1)`
)

// recordKeys lists every key the saved-payment record occupies.
var recordKeys = []string{
	payment.KeyCustomerName,
	payment.KeyCustomerEmail,
	payment.KeyCardNumber,
	payment.KeyExpiryDate,
}

var _ payment.Store = (*PaymentStore)(nil)

// PaymentStore implements payment.Store over the saved_payment key-value
// table. One global record; each Save overwrites all four keys.
type PaymentStore struct {
	pool *pgxpool.Pool
}

// NewPaymentStore returns a PaymentStore that uses the given pool.
func NewPaymentStore(pool *pgxpool.Pool) *PaymentStore {
	return &PaymentStore{pool: pool}
}

// Save writes all four record fields in one transaction so a partial record
// is never observable.
func (s *PaymentStore) Save(ctx context.Context, rec payment.Record) error {
	values := map[string]string{
		payment.KeyCustomerName:  rec.Name,
		payment.KeyCustomerEmail: rec.Email,
		payment.KeyCardNumber:    rec.CardNumber,
		payment.KeyExpiryDate:    rec.Expiry,
	}

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		for _, key := range recordKeys {
			if _, err := tx.Exec(ctx, upsertValueSQL, key, values[key]); err != nil {
				return fmt.Errorf("upserting %q: %w", key, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("saving payment record: %w", err)
	}
	return nil
}

// Load reads the record. A missing or empty name means "no saved record";
// other absent fields default to empty strings.
func (s *PaymentStore) Load(ctx context.Context) (*payment.Record, error) {
	rows, err := s.pool.Query(ctx, selectValuesSQL, recordKeys)
	if err != nil {
		return nil, fmt.Errorf("loading payment record: %w", err)
	}

	values := make(map[string]string, len(recordKeys))
	var key, value string
	if _, err := pgx.ForEachRow(rows, []any{&key, &value}, func() error {
		values[key] = value
		return nil
	}); err != nil {
		return nil, fmt.Errorf("scanning payment record: %w", err)
	}

	if values[payment.KeyCustomerName] == "" {
		return nil, payment.ErrNoSavedRecord
	}
	return &payment.Record{
		Name:       values[payment.KeyCustomerName],
		Email:      values[payment.KeyCustomerEmail],
		CardNumber: values[payment.KeyCardNumber],
		Expiry:     values[payment.KeyExpiryDate],
	}, nil
}

// Clear deletes all four keys.
func (s *PaymentStore) Clear(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, deleteValuesSQL, recordKeys); err != nil {
		return fmt.Errorf("clearing payment record: %w", err)
	}
	return nil
}
