package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"crucible/api/internal/analysis"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) GetJob(ctx context.Context, jobID string) (Job, error) {
	var (
		job      Job
		document []byte
		source   sql.NullString
		ref      sql.NullString
		by       sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, title, status, source_type, source_ref, document, version, updated_by, created_at, updated_at
		FROM jobs
		WHERE id=$1
	`, jobID).Scan(&job.ID, &job.UserID, &job.Title, &job.Status, &source, &ref, &document, &job.Version, &by, &job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		return Job{}, err
	}
	job.SourceType = source.String
	job.SourceRef = ref.String
	job.UpdatedBy = by.String
	if len(document) > 0 {
		var doc analysis.Document
		if err := json.Unmarshal(document, &doc); err != nil {
			return Job{}, fmt.Errorf("decode document %s: %w", jobID, err)
		}
		doc.JobID = job.ID
		doc.Version = job.Version
		job.Document = &doc
	}
	return job, nil
}

// JobOwner returns the owning user without loading the document.
func (s *PostgresStore) JobOwner(ctx context.Context, jobID string) (string, error) {
	var userID string
	if err := s.db.QueryRowContext(ctx, `SELECT user_id FROM jobs WHERE id=$1`, jobID).Scan(&userID); err != nil {
		return "", err
	}
	return userID, nil
}

// ListJobs returns jobs newest first. An empty userID lists every job.
func (s *PostgresStore) ListJobs(ctx context.Context, userID string) ([]JobSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, title, status, COALESCE(source_type, ''), version, updated_at
		FROM jobs
		WHERE $1 = '' OR user_id = $1
		ORDER BY updated_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	items := make([]JobSummary, 0)
	for rows.Next() {
		var item JobSummary
		if err := rows.Scan(&item.ID, &item.UserID, &item.Title, &item.Status, &item.SourceType, &item.Version, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) InsertJob(ctx context.Context, job Job) error {
	if job.Status == "" {
		job.Status = JobStatusPending
	}
	var document any
	if job.Document != nil {
		payload, err := json.Marshal(job.Document)
		if err != nil {
			return fmt.Errorf("encode document: %w", err)
		}
		document = payload
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO jobs (id, user_id, title, status, source_type, source_ref, document)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), $7)
		ON CONFLICT (id) DO NOTHING
	`, job.ID, job.UserID, job.Title, job.Status, job.SourceType, job.SourceRef, document)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// SaveDocument overwrites the stored document and bumps the version. There
// is no version check: the last save wins.
func (s *PostgresStore) SaveDocument(ctx context.Context, jobID string, doc *analysis.Document, updatedBy, searchText string) (int, time.Time, error) {
	payload, err := json.Marshal(doc)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("encode document: %w", err)
	}
	var (
		version   int
		updatedAt time.Time
	)
	err = s.db.QueryRowContext(ctx, `
		UPDATE jobs
		SET document=$2, title=$3, search_text=$4, updated_by=$5, version=version+1, updated_at=NOW()
		WHERE id=$1
		RETURNING version, updated_at
	`, jobID, payload, doc.Title, searchText, updatedBy).Scan(&version, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, time.Time{}, err
	}
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("save document: %w", err)
	}
	return version, updatedAt, nil
}

// Ping verifies the database connection is alive
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
