package domain

import "time"

// EventStatus is the publication state of a canonical event
type EventStatus string

const (
	EventStatusDraft           EventStatus = "draft"
	EventStatusPendingApproval EventStatus = "pending_approval"
	EventStatusPublished       EventStatus = "published"
	EventStatusCancelled       EventStatus = "cancelled"
)

// UncategorizedCategory is assigned when no confident classification exists
const UncategorizedCategory = "Okategoriserad"

// RawEvent is a source-native event listing as produced by an adapter
type RawEvent struct {
	Name          string   `json:"name" yaml:"name"`
	DateText      string   `json:"date" yaml:"date"`
	Location      string   `json:"location" yaml:"location"`
	VenueName     string   `json:"venue" yaml:"venue"`
	OrganizerName string   `json:"organizer" yaml:"organizer"`
	Description   string   `json:"description" yaml:"description"`
	ImageURL      string   `json:"image_url" yaml:"image_url"`
	ExternalURL   string   `json:"url" yaml:"url"`
	CategoryHints []string `json:"categories" yaml:"categories"`
}

// CanonicalEvent is the normalized, deduplicated event persisted by the pipeline
type CanonicalEvent struct {
	ID             string             `json:"id"`
	Name           string             `json:"name"`
	Description    string             `json:"description"`
	StartsAt       time.Time          `json:"starts_at"`
	Location       string             `json:"location"`
	VenueName      string             `json:"venue_name"`
	ImageURL       string             `json:"image_url"`
	ExternalURL    string             `json:"external_url"`
	OrganizerID    *string            `json:"organizer_id"`
	Categories     []string           `json:"categories"`
	CategoryScores map[string]float64 `json:"category_scores"`
	QualityScore   int                `json:"quality_score"`
	QualityIssues  []string           `json:"quality_issues"`
	Status         EventStatus        `json:"status"`
	AutoPublished  bool               `json:"auto_published"`
	Source         string             `json:"source"`
	DedupKey       string             `json:"-"`
	RunLogID       string             `json:"run_log_id"`
	CreatedAt      time.Time          `json:"created_at"`
}

// Categorization is the ranked output of the categorizer
type Categorization struct {
	Categories []string
	Scores     map[string]float64
	// Remote is true when the result came from the remote classifier
	Remote bool
}

// Top returns the highest ranked category and its score
func (c Categorization) Top() (string, float64) {
	if len(c.Categories) == 0 {
		return "", 0
	}
	return c.Categories[0], c.Scores[c.Categories[0]]
}

// IsUncategorized reports whether the categorization is the fallback result
func (c Categorization) IsUncategorized() bool {
	return len(c.Categories) == 1 && c.Categories[0] == UncategorizedCategory
}
