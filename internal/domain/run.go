package domain

import "time"

// RunStatus is the lifecycle state of a scraper run log
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusSuccess   RunStatus = "success"
	RunStatusPartial   RunStatus = "partial"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// IsTerminal reports whether the status is final
func (s RunStatus) IsTerminal() bool {
	return s != RunStatusRunning && s != ""
}

// Trigger source values
const (
	TriggerSourceAPI   = "api"
	TriggerSourceQueue = "queue"
)

// Trigger describes who or what started a run
type Trigger struct {
	UserEmail string `json:"user_email,omitempty"`
	Source    string `json:"source"`
}

// RunLog is the durable record of one ingestion attempt for one source
type RunLog struct {
	ID                string     `json:"id"`
	SourceName        string     `json:"scraper_name"`
	Status            RunStatus  `json:"status"`
	StartedAt         time.Time  `json:"started_at"`
	CompletedAt       *time.Time `json:"completed_at"`
	DurationMs        *int64     `json:"duration_ms"`
	EventsFound       int        `json:"events_found"`
	EventsImported    int        `json:"events_imported"`
	DuplicatesSkipped int        `json:"duplicates_skipped"`
	Errors            []string   `json:"errors"`
	TriggeredBy       string     `json:"triggered_by,omitempty"`
	TriggerSource     string     `json:"trigger_source"`
	CancelRequested   bool       `json:"cancel_requested"`
}

// RunCounters are the aggregate per-record counts of a run
type RunCounters struct {
	Found      int
	Imported   int
	Duplicates int
}

// RunResult is the outcome of one source run as reported to callers
type RunResult struct {
	LogID             string    `json:"logId,omitempty"`
	Source            string    `json:"source"`
	Status            RunStatus `json:"status"`
	Success           bool      `json:"success"`
	EventsFound       int       `json:"eventsFound"`
	EventsImported    int       `json:"eventsImported"`
	DuplicatesSkipped int       `json:"duplicatesSkipped"`
	Errors            []string  `json:"errors"`
}

// RunSummary aggregates the results of a RunAll invocation
type RunSummary struct {
	Timestamp       time.Time   `json:"timestamp"`
	TotalSources    int         `json:"totalSources"`
	TotalFound      int         `json:"totalFound"`
	TotalImported   int         `json:"totalImported"`
	TotalDuplicates int         `json:"totalDuplicates"`
	Results         []RunResult `json:"results"`
}

// ProgressStep is a state of the run progress state machine
type ProgressStep string

const (
	StepStarting           ProgressStep = "starting"
	StepScraping           ProgressStep = "scraping"
	StepDeduplicating      ProgressStep = "deduplicating"
	StepCategorizing       ProgressStep = "categorizing"
	StepMatchingOrganizers ProgressStep = "matching_organizers"
	StepImporting          ProgressStep = "importing"
	StepCompleted          ProgressStep = "completed"
	StepFailed             ProgressStep = "failed"
)

var stepRank = map[ProgressStep]int{
	StepStarting:           0,
	StepScraping:           1,
	StepDeduplicating:      2,
	StepCategorizing:       3,
	StepMatchingOrganizers: 4,
	StepImporting:          5,
	StepCompleted:          6,
	StepFailed:             6,
}

// Rank returns the position of the step in the forward order, -1 if unknown
func (s ProgressStep) Rank() int {
	if r, ok := stepRank[s]; ok {
		return r
	}
	return -1
}

// IsTerminal reports whether the step ends the run
func (s ProgressStep) IsTerminal() bool {
	return s == StepCompleted || s == StepFailed
}

// ProgressEntry is one append-only checkpoint of a run
type ProgressEntry struct {
	ID                     int64          `json:"id"`
	RunLogID               string         `json:"scraper_log_id"`
	Step                   ProgressStep   `json:"step"`
	Message                string         `json:"message"`
	Current                *int           `json:"current"`
	Total                  *int           `json:"total"`
	EstimatedTimeRemaining *int           `json:"estimated_time_remaining"`
	Metadata               map[string]any `json:"metadata,omitempty"`
	CreatedAt              time.Time      `json:"created_at"`
}

// PublishDecision is the audit record of a quality decision
type PublishDecision struct {
	EventID       string      `ch:"event_id"`
	RunLogID      string      `ch:"run_log_id"`
	Source        string      `ch:"source"`
	Score         int         `ch:"score"`
	Issues        []string    `ch:"issues"`
	Decision      EventStatus `ch:"decision"`
	AutoPublished bool        `ch:"auto_published"`
	OrganizerID   string      `ch:"organizer_id"`
	DecidedAt     time.Time   `ch:"decided_at"`
}

// QualityResult is the output of the quality scorer
type QualityResult struct {
	Score    int
	Issues   []string
	Blocking []string
	Decision EventStatus
}
