// Package testimonial stores collected customer testimonials. The
// testimonials adapter pulls approved entries from here to turn them into
// canonical events.
package testimonial

import (
	"encoding/json"
	"time"
)

// Testimonial is one collected review.
type Testimonial struct {
	ID           string          `json:"id"`
	WebsiteID    string          `json:"website_id"`
	FormID       string          `json:"form_id,omitempty"`
	CustomerName string          `json:"customer_name"`
	Rating       int             `json:"rating"`
	Content      string          `json:"content"`
	Status       string          `json:"status"` // pending | approved | rejected
	Metadata     json.RawMessage `json:"metadata,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// VerifiedPurchase reports the metadata.verified_purchase flag, defaulting
// to false when the metadata is absent or malformed.
func (t Testimonial) VerifiedPurchase() bool {
	if len(t.Metadata) == 0 {
		return false
	}
	var meta struct {
		VerifiedPurchase bool `json:"verified_purchase"`
	}
	if err := json.Unmarshal(t.Metadata, &meta); err != nil {
		return false
	}
	return meta.VerifiedPurchase
}

// Filter narrows a testimonial listing.
type Filter struct {
	WebsiteID    string
	FormID       string
	MinRating    int
	ApprovedOnly bool
	Since        time.Time
	Limit        int
}
