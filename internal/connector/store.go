package connector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/notiproof/backend/internal/crypto"
)

// ErrConnectorNotFound is returned when no connector row matches a lookup.
var ErrConnectorNotFound = errors.New("connector not found")

// Store provides CRUD for the connectors table. Config blobs are encrypted
// with the process encryption key before they hit the database.
type Store struct {
	pool          *pgxpool.Pool
	encryptionKey string
}

// NewStore creates a Store backed by the given pool and encryption key.
func NewStore(pool *pgxpool.Pool, encryptionKey string) *Store {
	return &Store{pool: pool, encryptionKey: encryptionKey}
}

// Create validates the config for the provider, encrypts it and inserts the
// connector. ProviderKey is stored in the clear so webhook handlers can look
// connectors up by shop domain or account id without decrypting anything.
func (s *Store) Create(ctx context.Context, c *Connector) error {
	if _, err := DecodeConfig(c.Provider, c.Config); err != nil {
		return err
	}
	enc, err := crypto.EncryptString(string(c.Config), s.encryptionKey)
	if err != nil {
		return fmt.Errorf("encrypt connector config: %w", err)
	}

	err = s.pool.QueryRow(ctx,
		`INSERT INTO connectors (provider, website_id, provider_key, config_enc)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		c.Provider, c.WebsiteID, c.ProviderKey, enc,
	).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return fmt.Errorf("create connector: %w", err)
	}
	return nil
}

const connectorColumns = `id, provider, website_id, provider_key, config_enc, last_sync, last_sync_status, created_at`

func (s *Store) scan(row pgx.Row) (*Connector, error) {
	var c Connector
	var enc string
	if err := row.Scan(&c.ID, &c.Provider, &c.WebsiteID, &c.ProviderKey, &enc, &c.LastSync, &c.LastSyncStatus, &c.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrConnectorNotFound
		}
		return nil, fmt.Errorf("scan connector: %w", err)
	}
	raw, err := crypto.DecryptString(enc, s.encryptionKey)
	if err != nil {
		return nil, fmt.Errorf("decrypt connector %s config: %w", c.ID, err)
	}
	c.Config = json.RawMessage(raw)
	return &c, nil
}

// Get returns one connector by id, with its config decrypted.
func (s *Store) Get(ctx context.Context, id string) (*Connector, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+connectorColumns+` FROM connectors WHERE id = $1`, id)
	return s.scan(row)
}

// FindByProviderKey returns the connector for a provider-side identifier,
// e.g. ("shopify", "store.myshopify.com") or ("stripe", "acct_123").
func (s *Store) FindByProviderKey(ctx context.Context, provider, key string) (*Connector, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+connectorColumns+` FROM connectors WHERE provider = $1 AND provider_key = $2`,
		provider, key)
	return s.scan(row)
}

// UpdateSyncState writes the last_sync timestamp and status blob. It is
// called after every sync attempt regardless of outcome.
func (s *Store) UpdateSyncState(ctx context.Context, id string, lastSync time.Time, status SyncStatus) error {
	blob, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("marshal sync status: %w", err)
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE connectors SET last_sync = $2, last_sync_status = $3 WHERE id = $1`,
		id, lastSync, blob)
	if err != nil {
		return fmt.Errorf("update sync state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrConnectorNotFound
	}
	return nil
}

// TypedConfig decodes the connector's decrypted config into its typed
// per-provider shape.
func (c *Connector) TypedConfig() (any, error) {
	return DecodeConfig(c.Provider, c.Config)
}
