package event

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ListParams holds filters and pagination for listing stored events.
type ListParams struct {
	WebsiteID   string
	ConnectorID string
	Provider    string
	Limit       int
	Offset      int
}

// Store provides persistence for canonical events. De-duplication of
// polling-sourced and webhook-sourced rows for the same provider event
// happens here, through the (provider, external_id) unique constraint.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a Store backed by the given pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// InsertIgnoreDuplicates inserts the given rows, silently skipping any whose
// (provider, external_id) already exists, and returns the number actually
// inserted. Callers derive skipped = len(rows) - inserted.
func (s *Store) InsertIgnoreDuplicates(ctx context.Context, rows []Row) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	inserted := 0
	for _, r := range rows {
		normalized, err := json.Marshal(r.Normalized)
		if err != nil {
			return inserted, fmt.Errorf("marshal normalized fields: %w", err)
		}
		payload := r.Payload
		if payload == nil {
			payload = json.RawMessage("{}")
		}
		ts := r.EventTimestamp
		if ts.IsZero() {
			ts = time.Now().UTC()
		}

		tag, err := s.pool.Exec(ctx,
			`INSERT INTO events (connector_id, website_id, provider, provider_event_type, external_id, event_timestamp, payload, normalized, rendered_html)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			 ON CONFLICT (provider, external_id) DO NOTHING`,
			nullable(r.ConnectorID), r.WebsiteID, r.Provider, r.ProviderEventType, r.ExternalID, ts, payload, normalized, r.RenderedHTML,
		)
		if err != nil {
			return inserted, fmt.Errorf("insert event %s: %w", r.ExternalID, err)
		}
		inserted += int(tag.RowsAffected())
	}
	return inserted, nil
}

// CountByProvider returns the total number of stored events for a provider.
func (s *Store) CountByProvider(ctx context.Context, provider string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM events WHERE provider = $1`, provider).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return n, nil
}

// CountByConnector returns the total number of stored events for a connector.
func (s *Store) CountByConnector(ctx context.Context, connectorID string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM events WHERE connector_id = $1`, connectorID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return n, nil
}

// Page size bounds for event listings, shared with the listing API.
const (
	DefaultPageSize = 50
	MaxPageSize     = 200
)

// List returns stored events matching the given filters, newest first.
func (s *Store) List(ctx context.Context, params ListParams) ([]Row, error) {
	if params.Limit <= 0 {
		params.Limit = DefaultPageSize
	}
	if params.Limit > MaxPageSize {
		params.Limit = MaxPageSize
	}

	query := `SELECT id, COALESCE(connector_id::text, ''), website_id, provider, provider_event_type, external_id, event_timestamp, payload, normalized, rendered_html, created_at
	          FROM events WHERE 1=1`
	args := []interface{}{}
	argIdx := 1

	if params.WebsiteID != "" {
		query += ` AND website_id = $` + strconv.Itoa(argIdx)
		args = append(args, params.WebsiteID)
		argIdx++
	}
	if params.ConnectorID != "" {
		query += ` AND connector_id = $` + strconv.Itoa(argIdx)
		args = append(args, params.ConnectorID)
		argIdx++
	}
	if params.Provider != "" {
		query += ` AND provider = $` + strconv.Itoa(argIdx)
		args = append(args, params.Provider)
		argIdx++
	}

	query += ` ORDER BY event_timestamp DESC LIMIT $` + strconv.Itoa(argIdx)
	args = append(args, params.Limit)
	argIdx++
	query += ` OFFSET $` + strconv.Itoa(argIdx)
	args = append(args, params.Offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var r Row
		var normalized []byte
		if err := rows.Scan(&r.ID, &r.ConnectorID, &r.WebsiteID, &r.Provider, &r.ProviderEventType, &r.ExternalID, &r.EventTimestamp, &r.Payload, &normalized, &r.RenderedHTML, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if len(normalized) > 0 {
			if err := json.Unmarshal(normalized, &r.Normalized); err != nil {
				return nil, fmt.Errorf("decode normalized fields: %w", err)
			}
		}
		out = append(out, r)
	}
	if out == nil {
		out = []Row{}
	}
	return out, rows.Err()
}

// nullable maps "" to SQL NULL for optional uuid foreign keys.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
