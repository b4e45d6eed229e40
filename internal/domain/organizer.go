package domain

import "time"

// OrganizerStatus is the lifecycle state of an organizer
type OrganizerStatus string

const (
	OrganizerStatusActive   OrganizerStatus = "active"
	OrganizerStatusPending  OrganizerStatus = "pending"
	OrganizerStatusArchived OrganizerStatus = "archived"
)

// Organizer is an entity that arranges events
type Organizer struct {
	ID                 string          `json:"id"`
	Name               string          `json:"name"`
	NormalizedName     string          `json:"-"`
	AlternativeNames   []string        `json:"alternative_names"`
	Status             OrganizerStatus `json:"status"`
	CreatedFromScraper bool            `json:"created_from_scraper"`
	ScraperSource      string          `json:"scraper_source,omitempty"`
	NeedsReview        bool            `json:"needs_review"`
	CreatedAt          time.Time       `json:"created_at"`
}

// OrganizerMatch is the outcome of organizer resolution for one raw event
type OrganizerMatch struct {
	OrganizerID *string
	Created     bool
	NeedsReview bool
}

// Resolved reports whether an organizer was attached
func (m OrganizerMatch) Resolved() bool {
	return m.OrganizerID != nil
}
