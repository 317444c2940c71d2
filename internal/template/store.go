package template

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrTemplateNotFound is returned when no template row matches a lookup.
var ErrTemplateNotFound = errors.New("template not found")

// Store provides read access to the widget_templates table. Template rows
// are configuration data edited out-of-band; the service never writes them.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a Store backed by the given pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const templateColumns = `id, provider, template_key, style_variant, category, html_template, required_fields, preview_json`

func scanTemplate(row pgx.Row) (*Config, error) {
	var c Config
	var requiredFields, previewJSON []byte
	if err := row.Scan(&c.ID, &c.Provider, &c.TemplateKey, &c.StyleVariant, &c.Category, &c.HTMLTemplate, &requiredFields, &previewJSON); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTemplateNotFound
		}
		return nil, fmt.Errorf("scan template: %w", err)
	}
	if err := DecodeConfig(requiredFields, previewJSON, &c); err != nil {
		return nil, fmt.Errorf("decode template %s: %w", c.ID, err)
	}
	return &c, nil
}

// Get returns one template by id.
func (s *Store) Get(ctx context.Context, id string) (*Config, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+templateColumns+` FROM widget_templates WHERE id = $1`, id)
	return scanTemplate(row)
}

// DefaultForProvider returns the default template for a provider, used by
// the WooCommerce ingestion-time precompute path.
func (s *Store) DefaultForProvider(ctx context.Context, provider string) (*Config, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+templateColumns+` FROM widget_templates
		 WHERE provider = $1 ORDER BY (template_key = 'default') DESC, created_at ASC LIMIT 1`,
		provider)
	return scanTemplate(row)
}

// ListByProvider returns all templates for a provider.
func (s *Store) ListByProvider(ctx context.Context, provider string) ([]*Config, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+templateColumns+` FROM widget_templates WHERE provider = $1 ORDER BY template_key`,
		provider)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	var out []*Config
	for rows.Next() {
		c, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if out == nil {
		out = []*Config{}
	}
	return out, rows.Err()
}
