package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"crucible/api/internal/analysis"
	"crucible/api/internal/resultsclient"
)

func authedRequest(t *testing.T, env *testEnv, userID, role, method, path string, body []byte) *http.Request {
	t.Helper()
	session, err := env.svc.ExchangeSession(context.Background(), userID, userID+"@example.com", role)
	if err != nil {
		t.Fatalf("ExchangeSession() error = %v", err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+session.Token)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestGetResultsEndpoint(t *testing.T) {
	env := newTestEnv(ownedJob())
	server := NewHTTPServer(env.svc, "*")

	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, authedRequest(t, env, "user-1", "viewer", http.MethodGet, "/results/job_1", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d body=%s", rr.Code, rr.Body.String())
	}

	var doc analysis.Document
	if err := json.Unmarshal(rr.Body.Bytes(), &doc); err != nil {
		t.Fatalf("decode document: %v", err)
	}
	if doc.Title != "Team sync" || len(doc.Results) != 1 || doc.Results[0].Kind() != analysis.KindContent {
		t.Fatalf("unexpected document: %+v", doc)
	}

	rr = httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, authedRequest(t, env, "user-2", "editor", http.MethodGet, "/results/job_1", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for another user's job, got %d", rr.Code)
	}
}

func TestBulkSaveEndpoint(t *testing.T) {
	env := newTestEnv(ownedJob())
	server := NewHTTPServer(env.svc, "*")

	edited := sampleDocument()
	edited.Title = "Edited over HTTP"
	body, err := json.Marshal(analysis.NewBulkUpdate(edited))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, authedRequest(t, env, "user-1", "editor", http.MethodPatch, "/results/job_1/bulk", body))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	if env.store.jobs["job_1"].Title != "Edited over HTTP" {
		t.Fatalf("title not saved: %q", env.store.jobs["job_1"].Title)
	}
}

func TestBulkSaveRequiresWrite(t *testing.T) {
	env := newTestEnv(ownedJob())
	server := NewHTTPServer(env.svc, "*")

	body, _ := json.Marshal(analysis.NewBulkUpdate(sampleDocument()))
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, authedRequest(t, env, "user-1", "viewer", http.MethodPatch, "/results/job_1/bulk", body))
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for viewer, got %d", rr.Code)
	}
	if env.store.saves != 0 {
		t.Fatal("viewer must not save")
	}
}

func TestBulkSaveValidationEnvelope(t *testing.T) {
	env := newTestEnv(ownedJob())
	server := NewHTTPServer(env.svc, "*")

	body := []byte(`{"updatedJobTitle":"x","updatedResults":[{"kind":"content","id":""}]}`)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, authedRequest(t, env, "user-1", "editor", http.MethodPatch, "/results/job_1/bulk", body))
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d body=%s", rr.Code, rr.Body.String())
	}
	var payload map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if payload["code"] != "VALIDATION_ERROR" || payload["error"] == "" {
		t.Fatalf("unexpected error envelope: %v", payload)
	}
}

func TestExportEndpointStreamsFile(t *testing.T) {
	env := newTestEnv(ownedJob())
	server := NewHTTPServer(env.svc, "*")

	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, authedRequest(t, env, "user-1", "viewer", http.MethodGet, "/results/job_1/export?format=markdown", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	if rr.Header().Get("Content-Type") != "text/markdown" {
		t.Fatalf("unexpected content type %q", rr.Header().Get("Content-Type"))
	}
	if !strings.Contains(rr.Header().Get("Content-Disposition"), `filename="doc.md"`) {
		t.Fatalf("unexpected disposition %q", rr.Header().Get("Content-Disposition"))
	}
	if rr.Body.String() != "# Team sync" {
		t.Fatalf("unexpected body %q", rr.Body.String())
	}
}

func TestHistoryEndpointValidatesLimit(t *testing.T) {
	env := newTestEnv(ownedJob())
	server := NewHTTPServer(env.svc, "*")

	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, authedRequest(t, env, "user-1", "viewer", http.MethodGet, "/results/job_1/history?limit=abc", nil))
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rr.Code)
	}
}

func TestListJobsEndpoint(t *testing.T) {
	other := ownedJob()
	other.ID = "job_2"
	other.UserID = "user-2"
	env := newTestEnv(ownedJob(), other)
	server := NewHTTPServer(env.svc, "*")

	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, authedRequest(t, env, "user-1", "viewer", http.MethodGet, "/api/jobs", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var payload struct {
		Jobs []map[string]any `json:"jobs"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if len(payload.Jobs) != 1 || payload.Jobs[0]["id"] != "job_1" {
		t.Fatalf("expected only the caller's job, got %v", payload.Jobs)
	}
}

func TestPresignEndpointRequiresUpload(t *testing.T) {
	env := newTestEnv()
	server := NewHTTPServer(env.svc, "*")

	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, authedRequest(t, env, "user-1", "viewer", http.MethodPost, "/api/uploads/presign", []byte(`{"filename":"a.mp3"}`)))
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for viewer, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, authedRequest(t, env, "user-1", "editor", http.MethodPost, "/api/uploads/presign", []byte(`{"filename":"a.mp3"}`)))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 for editor, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestUnknownRoute(t *testing.T) {
	env := newTestEnv()
	server := NewHTTPServer(env.svc, "*")

	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, authedRequest(t, env, "user-1", "viewer", http.MethodGet, "/results/job_1/nope", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestResultsRouteKeepsEscapedSlashInJobID(t *testing.T) {
	job := ownedJob()
	job.ID = "team/alpha"
	env := newTestEnv(job)
	server := NewHTTPServer(env.svc, "*")

	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, authedRequest(t, env, "user-1", "viewer", http.MethodGet, "/results/team%2Falpha", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d body=%s", rr.Code, rr.Body.String())
	}

	rr = httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, authedRequest(t, env, "user-1", "viewer", http.MethodGet, "/results/team%2Falpha/history", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected history status 200, got %d body=%s", rr.Code, rr.Body.String())
	}

	rr = httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, authedRequest(t, env, "user-1", "viewer", http.MethodGet, "/results/team/alpha", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("unescaped slash must not reach the job, got %d", rr.Code)
	}
}

func TestSplitPath(t *testing.T) {
	parts, err := splitPath("/results/a%2Fb/versions/abc")
	if err != nil {
		t.Fatalf("splitPath() error = %v", err)
	}
	if strings.Join(parts, "|") != "results|a/b|versions|abc" {
		t.Fatalf("unexpected parts: %q", parts)
	}
	if _, err := splitPath("/results/%zz"); err == nil {
		t.Fatal("expected error for a bad escape")
	}
}

// The results client and the API agree on the wire format end to end.
func TestResultsClientAgainstServer(t *testing.T) {
	env := newTestEnv(ownedJob())
	session, err := env.svc.ExchangeSession(context.Background(), "user-1", "owner@example.com", "editor")
	if err != nil {
		t.Fatalf("ExchangeSession() error = %v", err)
	}
	ts := httptest.NewServer(NewHTTPServer(env.svc, "*").Handler())
	defer ts.Close()

	client, err := resultsclient.New(ts.URL, 8, resultsclient.WithToken(session.Token))
	if err != nil {
		t.Fatalf("resultsclient.New() error = %v", err)
	}
	doc, err := client.Fetch(context.Background(), "job_1")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	next := doc.Clone()
	next.Title = "Saved by client"
	if err := client.Commit(context.Background(), "job_1", next); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	if env.store.jobs["job_1"].Title != "Saved by client" {
		t.Fatalf("server did not persist the commit: %q", env.store.jobs["job_1"].Title)
	}

	history, err := client.History(context.Background(), "job_1", 10)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 1 || history[0].Author != "owner@example.com" {
		t.Fatalf("unexpected history: %+v", history)
	}
}
