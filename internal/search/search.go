package search

import (
	"strings"

	"crucible/api/internal/analysis"
)

// Result is a single search hit returned to the caller.
type Result struct {
	JobID   string `json:"jobId"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// Query describes a search request. UserID scopes results to one owner;
// empty searches everything.
type Query struct {
	Text   string
	UserID string
	Limit  int
	Offset int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a full-text search.
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}

// ResultRecord is the data we index for a job's document.
type ResultRecord struct {
	ID        string   `json:"id"`
	UserID    string   `json:"userId"`
	Title     string   `json:"title"`
	Summary   string   `json:"summary"`
	Takeaways []string `json:"takeaways"`
}

// RecordFor builds the index record for a job's document.
func RecordFor(jobID, userID string, doc *analysis.Document) ResultRecord {
	record := ResultRecord{ID: jobID, UserID: userID, Takeaways: []string{}}
	if doc == nil {
		return record
	}
	record.Title = doc.Title
	record.Summary = strings.Join(doc.Summaries(), "\n\n")
	if takeaways := doc.Takeaways(); takeaways != nil {
		record.Takeaways = takeaways
	}
	return record
}
