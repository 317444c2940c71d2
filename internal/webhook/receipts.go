package webhook

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// IdempotencyKey derives the dedup key for one webhook delivery.
func IdempotencyKey(provider, topic, externalEventID string) string {
	return provider + ":" + topic + ":" + externalEventID
}

// ReceiptStore records processed webhook deliveries for de-duplication.
// Claiming a key is an INSERT against the unique idempotency_key column:
// the conflict itself is the dedup signal, so two concurrent deliveries of
// the same webhook cannot both pass — exactly one insert wins. The claim
// happens before business processing; a delivery that fails afterwards has
// still consumed its key and will not be retried. That trade-off is
// deliberate.
type ReceiptStore struct {
	pool *pgxpool.Pool
}

// NewReceiptStore creates a ReceiptStore backed by the given pool.
func NewReceiptStore(pool *pgxpool.Pool) *ReceiptStore {
	return &ReceiptStore{pool: pool}
}

// Claim attempts to record the idempotency key. It returns true when this
// delivery is the first — the caller owns processing — and false when the
// key was already present (a duplicate).
func (s *ReceiptStore) Claim(ctx context.Context, key, webhookType string, payload []byte) (bool, error) {
	if len(payload) == 0 {
		payload = []byte("{}")
	}
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO webhook_receipts (idempotency_key, webhook_type, payload)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (idempotency_key) DO NOTHING`,
		key, webhookType, payload)
	if err != nil {
		return false, fmt.Errorf("claim webhook receipt: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
