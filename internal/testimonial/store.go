package testimonial

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store provides access to the testimonials table.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a Store backed by the given pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Insert stores a new testimonial and returns its generated id.
func (s *Store) Insert(ctx context.Context, t *Testimonial) (string, error) {
	if t.Status == "" {
		t.Status = "pending"
	}
	var id string
	err := s.pool.QueryRow(ctx,
		`INSERT INTO testimonials (website_id, form_id, customer_name, rating, content, status, metadata)
		 VALUES ($1, $2, $3, $4, $5, $6, COALESCE($7, '{}'::jsonb))
		 RETURNING id`,
		t.WebsiteID, t.FormID, t.CustomerName, t.Rating, t.Content, t.Status, t.Metadata,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("insert testimonial: %w", err)
	}
	t.ID = id
	return id, nil
}

// List returns testimonials matching the filter, newest first.
func (s *Store) List(ctx context.Context, f Filter) ([]Testimonial, error) {
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 20
	}

	query := `SELECT id, website_id, COALESCE(form_id, ''), customer_name, rating, content, status, metadata, created_at
	          FROM testimonials WHERE 1=1`
	args := []interface{}{}
	argIdx := 1

	if f.WebsiteID != "" {
		query += ` AND website_id = $` + strconv.Itoa(argIdx)
		args = append(args, f.WebsiteID)
		argIdx++
	}
	if f.FormID != "" {
		query += ` AND form_id = $` + strconv.Itoa(argIdx)
		args = append(args, f.FormID)
		argIdx++
	}
	if f.MinRating > 0 {
		query += ` AND rating >= $` + strconv.Itoa(argIdx)
		args = append(args, f.MinRating)
		argIdx++
	}
	if f.ApprovedOnly {
		query += ` AND status = 'approved'`
	}
	if !f.Since.IsZero() {
		query += ` AND created_at > $` + strconv.Itoa(argIdx)
		args = append(args, f.Since)
		argIdx++
	}

	query += ` ORDER BY created_at DESC LIMIT $` + strconv.Itoa(argIdx)
	args = append(args, f.Limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list testimonials: %w", err)
	}
	defer rows.Close()

	var out []Testimonial
	for rows.Next() {
		var t Testimonial
		if err := rows.Scan(&t.ID, &t.WebsiteID, &t.FormID, &t.CustomerName, &t.Rating, &t.Content, &t.Status, &t.Metadata, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan testimonial: %w", err)
		}
		out = append(out, t)
	}
	if out == nil {
		out = []Testimonial{}
	}
	return out, rows.Err()
}

// UpdateStatus moves a testimonial through the moderation flow.
func (s *Store) UpdateStatus(ctx context.Context, id, status string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE testimonials SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("update testimonial status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("testimonial not found: %s", id)
	}
	return nil
}
