package dto

import "time"

// ScrapeRequest represents a scrape trigger request
type ScrapeRequest struct {
	UserEmail    string   `json:"userEmail" binding:"omitempty,email" example:"admin@example.se"`
	ScraperNames []string `json:"scraperNames" binding:"omitempty,max=50,dive,required" example:"konserthuset,stadsteatern"`
}

// ScrapeTrigger is the queue message asking a worker to run sources
type ScrapeTrigger struct {
	ScraperNames []string  `json:"scraperNames,omitempty"`
	UserEmail    string    `json:"userEmail,omitempty"`
	RequestedAt  time.Time `json:"requestedAt"`
}

// ProgressRequest identifies a run log in the path
type ProgressRequest struct {
	LogID string `uri:"logId" binding:"required,uuid" example:"0b8f1c2e-4d7a-4a7e-9c51-3f2d6a1b9e10"`
}
