package search

import (
	"encoding/json"
	"testing"

	meili "github.com/meilisearch/meilisearch-go"

	"crucible/api/internal/analysis"
)

func TestRecordFor(t *testing.T) {
	doc := &analysis.Document{
		Title: "Talk",
		Results: []analysis.Section{
			&analysis.ContentSection{ID: "s1", Summary: "first", KeyTakeaways: []string{"a"}},
			&analysis.DebateSection{ID: "s2", Summary: "second", KeyTakeaways: []string{"b"}},
		},
	}
	record := RecordFor("job_1", "u1", doc)
	if record.ID != "job_1" || record.UserID != "u1" || record.Title != "Talk" {
		t.Fatalf("unexpected record: %+v", record)
	}
	if record.Summary != "first\n\nsecond" {
		t.Fatalf("Summary = %q", record.Summary)
	}
	if len(record.Takeaways) != 2 {
		t.Fatalf("Takeaways = %v", record.Takeaways)
	}

	empty := RecordFor("job_2", "u1", nil)
	if empty.Takeaways == nil {
		t.Fatal("takeaways must encode as [] for an empty document")
	}
}

func TestServiceWithoutBackendsReturnsEmpty(t *testing.T) {
	svc := NewService(nil, nil)
	resp := svc.Search(Query{Text: "go"})
	if resp.Results == nil || len(resp.Results) != 0 || resp.Query != "go" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	svc.IndexResult(ResultRecord{ID: "job_1"})
}

func TestHitToResultPrefersFormatted(t *testing.T) {
	hit := meili.Hit{
		"id":         json.RawMessage(`"job_1"`),
		"title":      json.RawMessage(`"Talk"`),
		"summary":    json.RawMessage(`"plain summary"`),
		"_formatted": json.RawMessage(`{"title":"<mark>Talk</mark>","summary":"…plain <mark>summary</mark>","takeaways":["x"]}`),
	}
	result := hitToResult(hit)
	if result.JobID != "job_1" || result.Title != "<mark>Talk</mark>" {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.Snippet != "…plain <mark>summary</mark>" {
		t.Fatalf("Snippet = %q", result.Snippet)
	}
}

func TestPgFTSEmptyQuery(t *testing.T) {
	results, total, err := NewPgFTS(nil).Search(Query{Text: "   "})
	if err != nil || total != 0 || results != nil {
		t.Fatalf("expected empty result, got %v %d %v", results, total, err)
	}
}
