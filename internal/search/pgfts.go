package search

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"crucible/api/internal/analysis"
)

// PgFTS implements Searcher using PostgreSQL full-text search as a fallback.
type PgFTS struct {
	db *sql.DB
}

// NewPgFTS creates a PostgreSQL FTS searcher.
func NewPgFTS(db *sql.DB) *PgFTS {
	return &PgFTS{db: db}
}

// Healthy always returns true; if Postgres is down, the whole app is down.
func (p *PgFTS) Healthy() bool {
	return true
}

// Search ranks jobs by the fts column using plainto_tsquery and ts_rank,
// with ts_headline for snippets.
func (p *PgFTS) Search(q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, 0, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	tsQuery := "plainto_tsquery('english', $1)"
	where := "j.fts @@ " + tsQuery
	args := []any{q.Text}
	if q.UserID != "" {
		where += " AND j.user_id = $2"
		args = append(args, q.UserID)
	}

	ctx := context.Background()

	var total int
	if err := p.db.QueryRowContext(ctx, "SELECT count(*) FROM jobs j WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgfts count: %w", err)
	}

	dataSQL := fmt.Sprintf(`
		SELECT j.id, j.title,
			ts_headline('english', coalesce(j.search_text, ''), %s, 'MaxFragments=1,MaxWords=30') AS snippet
		FROM jobs j
		WHERE %s
		ORDER BY ts_rank(j.fts, %s) DESC
		LIMIT %d OFFSET %d`, tsQuery, where, tsQuery, limit, offset)

	rows, err := p.db.QueryContext(ctx, dataSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgfts query: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.JobID, &r.Title, &r.Snippet); err != nil {
			return nil, 0, fmt.Errorf("pgfts scan: %w", err)
		}
		results = append(results, r)
	}

	return results, total, rows.Err()
}

// LoadAllRecords returns an index record for every job with a document.
func (p *PgFTS) LoadAllRecords(ctx context.Context) ([]ResultRecord, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, user_id, document
		FROM jobs
		WHERE document IS NOT NULL
	`)
	if err != nil {
		return nil, fmt.Errorf("load jobs: %w", err)
	}
	defer rows.Close()

	records := make([]ResultRecord, 0)
	for rows.Next() {
		var (
			id, userID string
			payload    []byte
		)
		if err := rows.Scan(&id, &userID, &payload); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		var doc analysis.Document
		if err := json.Unmarshal(payload, &doc); err != nil {
			return nil, fmt.Errorf("decode document %s: %w", id, err)
		}
		records = append(records, RecordFor(id, userID, &doc))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	return records, nil
}
