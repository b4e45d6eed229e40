package pipeline

import (
	"time"
	"unicode/utf8"

	"github.com/BarkinBalci/event-ingestion-service/internal/domain"
)

// Quality issue codes
const (
	IssueMissingImage       = "missing_image"
	IssueMissingDescription = "missing_description"
	IssueShortDescription   = "short_description"
	IssueLowCategory        = "low_category_confidence"
	IssueMissingOrganizer   = "missing_organizer"
	IssueImplausibleDate    = "implausible_date"
	IssueOrganizerReview    = "organizer_needs_review"
)

// Deductions per issue
const (
	deductMissingImage       = 15
	deductMissingDescription = 20
	deductShortDescription   = 10
	deductLowCategory        = 15
	deductMissingOrganizer   = 20
	deductImplausibleDate    = 30

	shortDescriptionRunes = 50
	lowCategoryScore      = 0.5
)

// QualityScorer computes the quality score and publish decision
type QualityScorer struct {
	publishThreshold int
	draftThreshold   int
	now              func() time.Time
}

// NewQualityScorer creates a scorer with the given thresholds
func NewQualityScorer(publishThreshold, draftThreshold int) *QualityScorer {
	return &QualityScorer{
		publishThreshold: publishThreshold,
		draftThreshold:   draftThreshold,
		now:              time.Now,
	}
}

// Score evaluates a partially built event. The event's categories and
// organizer must already be set.
func (s *QualityScorer) Score(event *domain.CanonicalEvent, org domain.OrganizerMatch) domain.QualityResult {
	score := 100
	var issues, blocking []string

	deduct := func(issue string, points int) {
		score -= points
		issues = append(issues, issue)
	}

	if event.ImageURL == "" {
		deduct(IssueMissingImage, deductMissingImage)
	}

	switch n := utf8.RuneCountInString(event.Description); {
	case n == 0:
		deduct(IssueMissingDescription, deductMissingDescription)
	case n < shortDescriptionRunes:
		deduct(IssueShortDescription, deductShortDescription)
	}

	cat := domain.Categorization{Categories: event.Categories, Scores: event.CategoryScores}
	if _, top := cat.Top(); cat.IsUncategorized() || top < lowCategoryScore {
		deduct(IssueLowCategory, deductLowCategory)
	}

	if !org.Resolved() {
		deduct(IssueMissingOrganizer, deductMissingOrganizer)
	} else if org.Created || org.NeedsReview {
		issues = append(issues, IssueOrganizerReview)
		blocking = append(blocking, IssueOrganizerReview)
	}

	now := s.now()
	if event.StartsAt.Before(now.Add(-24*time.Hour)) || event.StartsAt.After(now.AddDate(2, 0, 0)) {
		deduct(IssueImplausibleDate, deductImplausibleDate)
		blocking = append(blocking, IssueImplausibleDate)
	}

	score = max(score, 0)

	decision := domain.EventStatusPendingApproval
	switch {
	case score >= s.publishThreshold && org.Resolved() && len(blocking) == 0:
		decision = domain.EventStatusPublished
	case score < s.draftThreshold:
		decision = domain.EventStatusDraft
	}

	if issues == nil {
		issues = []string{}
	}
	return domain.QualityResult{
		Score:    score,
		Issues:   issues,
		Blocking: blocking,
		Decision: decision,
	}
}
