package store

import (
	"time"

	"crucible/api/internal/analysis"
)

const (
	JobStatusPending    = "pending"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)

// Job is one analysis request and, once completed, its document.
type Job struct {
	ID         string
	UserID     string
	Title      string
	Status     string
	SourceType string
	SourceRef  string
	Document   *analysis.Document
	Version    int
	UpdatedBy  string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// JobSummary is the listing row; it never carries the document.
type JobSummary struct {
	ID         string
	UserID     string
	Title      string
	Status     string
	SourceType string
	Version    int
	UpdatedAt  time.Time
}
