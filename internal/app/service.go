package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"crucible/api/internal/analysis"
	"crucible/api/internal/auth"
	"crucible/api/internal/cache"
	"crucible/api/internal/config"
	"crucible/api/internal/docrepo"
	"crucible/api/internal/export"
	"crucible/api/internal/rbac"
	"crucible/api/internal/search"
	"crucible/api/internal/store"
	"crucible/api/internal/upload"
	"crucible/api/internal/util"
)

// Session is an issued session token and the identity it carries.
type Session struct {
	Token     string
	Identity  auth.Identity
	ExpiresAt time.Time
}

type jobStore interface {
	GetJob(context.Context, string) (store.Job, error)
	JobOwner(context.Context, string) (string, error)
	ListJobs(context.Context, string) ([]store.JobSummary, error)
	SaveDocument(context.Context, string, *analysis.Document, string, string) (int, time.Time, error)
	Ping(ctx context.Context) error
}

type versionRepo interface {
	EnsureRepo(string, *analysis.Document, string) error
	Commit(string, *analysis.Document, string, string) (docrepo.Version, bool, error)
	GetDocumentByHash(string, string) (*analysis.Document, docrepo.Version, error)
	History(string, int) ([]docrepo.Version, error)
}

type documentCache interface {
	Get(context.Context, string) (*analysis.Document, bool, error)
	Put(context.Context, string, *analysis.Document) error
	Invalidate(context.Context, string) error
}

type sessionStore interface {
	Save(context.Context, string, cache.SessionData, time.Time) error
	Lookup(context.Context, string) (cache.SessionData, error)
	Revoke(context.Context, string) error
	Ping(context.Context) error
}

type searchIndex interface {
	Search(search.Query) search.Response
	IndexResult(search.ResultRecord)
}

type documentExporter interface {
	Export(context.Context, *analysis.Document, export.Meta, export.Format) (*export.Result, error)
}

type uploadPresigner interface {
	PresignPut(context.Context, string, time.Duration) (string, error)
}

// Dependencies are the collaborators wired in by main. Search, Documents
// and Uploads are optional.
type Dependencies struct {
	Store     *store.PostgresStore
	Versions  *docrepo.Service
	Documents *cache.DocumentCache
	Sessions  *cache.SessionStore
	Search    *search.Service
	Exporter  *export.Service
	Uploads   *upload.MinioStore
}

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
	presignExpiry       = 15 * time.Minute
)

type Service struct {
	cfg      config.Config
	store    jobStore
	versions versionRepo
	docs     documentCache
	sessions sessionStore
	search   searchIndex
	exporter documentExporter
	uploads  uploadPresigner
}

func New(cfg config.Config, deps Dependencies) *Service {
	s := &Service{
		cfg:      cfg,
		store:    deps.Store,
		versions: deps.Versions,
		sessions: deps.Sessions,
		exporter: deps.Exporter,
	}
	// Optional collaborators stay nil interfaces when absent.
	if deps.Documents != nil {
		s.docs = deps.Documents
	}
	if deps.Search != nil {
		s.search = deps.Search
	}
	if deps.Uploads != nil {
		s.uploads = deps.Uploads
	}
	return s
}

// ExchangeSession mints a session for a user already verified by the
// identity provider. The caller must have presented the exchange secret.
func (s *Service) ExchangeSession(ctx context.Context, userID, email, role string) (Session, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Session{}, validationError("userId is required")
	}
	if strings.TrimSpace(role) == "" {
		role = string(rbac.RoleEditor)
	}

	now := time.Now()
	expiresAt := now.Add(s.cfg.SessionTTL)
	claims := auth.Claims{
		Sub:   userID,
		Email: strings.TrimSpace(email),
		Role:  string(rbac.Normalize(role)),
		JTI:   util.NewID("ses"),
		Exp:   expiresAt.Unix(),
	}
	token, err := auth.NewSigner(s.cfg.SessionSecret).Issue(claims)
	if err != nil {
		return Session{}, err
	}
	if err := s.sessions.Save(ctx, claims.JTI, cache.SessionData{
		UserID: claims.Sub,
		Email:  claims.Email,
		Role:   claims.Role,
	}, expiresAt); err != nil {
		return Session{}, err
	}

	return Session{Token: token, Identity: claims.Identity(), ExpiresAt: expiresAt}, nil
}

// IdentityFromToken verifies the token signature and that the session has
// not been revoked.
func (s *Service) IdentityFromToken(ctx context.Context, token string) (auth.Identity, error) {
	claims, err := auth.NewSigner(s.cfg.SessionSecret).Parse(token)
	if err != nil {
		return auth.Identity{}, err
	}
	data, err := s.sessions.Lookup(ctx, claims.JTI)
	if errors.Is(err, cache.ErrSessionNotFound) {
		return auth.Identity{}, auth.ErrInvalidToken
	}
	if err != nil {
		return auth.Identity{}, err
	}
	if data.UserID != claims.Sub {
		return auth.Identity{}, auth.ErrInvalidToken
	}
	return claims.Identity(), nil
}

func (s *Service) Logout(ctx context.Context, identity auth.Identity) error {
	if identity.SessionID == "" {
		return nil
	}
	return s.sessions.Revoke(ctx, identity.SessionID)
}

func (s *Service) ExchangeToken() string {
	return s.cfg.ExchangeToken
}

func (s *Service) Can(identity auth.Identity, action rbac.Action) bool {
	return rbac.Can(identity.Role, action)
}

func (s *Service) ListJobs(ctx context.Context, identity auth.Identity) ([]map[string]any, error) {
	jobs, err := s.store.ListJobs(ctx, identity.UserID)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(jobs))
	for _, job := range jobs {
		items = append(items, map[string]any{
			"id":         job.ID,
			"title":      job.Title,
			"status":     job.Status,
			"sourceType": job.SourceType,
			"version":    job.Version,
			"updatedAt":  job.UpdatedAt.Format(time.RFC3339),
		})
	}
	return items, nil
}

// GetResults returns the job's analysis document, served from the document
// cache when present.
func (s *Service) GetResults(ctx context.Context, identity auth.Identity, jobID string) (*analysis.Document, error) {
	if err := s.authorizeJob(ctx, identity, jobID); err != nil {
		return nil, err
	}

	if s.docs != nil {
		doc, ok, err := s.docs.Get(ctx, jobID)
		if err != nil {
			log.Printf("app: document cache read failed for %s: %v", jobID, err)
		} else if ok {
			return doc, nil
		}
	}

	job, err := s.loadCompletedJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if s.docs != nil {
		if err := s.docs.Put(ctx, jobID, job.Document); err != nil {
			log.Printf("app: document cache write failed for %s: %v", jobID, err)
		}
	}
	return job.Document, nil
}

// SaveBulk replaces the editable parts of the document. Concurrent saves are
// last write wins; no version check is made.
func (s *Service) SaveBulk(ctx context.Context, identity auth.Identity, jobID string, update analysis.BulkUpdate) (map[string]any, error) {
	if err := s.authorizeJob(ctx, identity, jobID); err != nil {
		return nil, err
	}
	job, err := s.loadCompletedJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	next := update.ApplyTo(job.Document)
	if err := next.Validate(); err != nil {
		return nil, validationError(err.Error())
	}

	author := firstNonBlank(identity.Email, identity.UserID)
	if err := s.versions.EnsureRepo(jobID, job.Document, author); err != nil {
		return nil, fmt.Errorf("ensure version history: %w", err)
	}

	version, updatedAt, err := s.store.SaveDocument(ctx, jobID, next, identity.UserID, next.SearchText())
	if err != nil {
		return nil, err
	}
	next.JobID = jobID
	next.Version = version

	// History is best effort once the row is saved.
	commit, changed, err := s.versions.Commit(jobID, next, author, "Edit results")
	if err != nil {
		log.Printf("app: version commit failed for %s: %v", jobID, err)
		commit, changed = docrepo.Version{}, false
	}

	if s.docs != nil {
		if err := s.docs.Put(ctx, jobID, next); err != nil {
			log.Printf("app: document cache refresh failed for %s: %v", jobID, err)
			_ = s.docs.Invalidate(ctx, jobID)
		}
	}
	if s.search != nil {
		s.search.IndexResult(search.RecordFor(jobID, job.UserID, next))
	}

	payload := map[string]any{
		"ok":        true,
		"jobId":     jobID,
		"version":   version,
		"updatedAt": updatedAt.Format(time.RFC3339),
		"changed":   changed,
	}
	if changed {
		payload["commit"] = commit
	}
	return payload, nil
}

func (s *Service) History(ctx context.Context, identity auth.Identity, jobID string, limit int) (map[string]any, error) {
	if err := s.authorizeJob(ctx, identity, jobID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	versions, err := s.versions.History(jobID, limit)
	if err != nil {
		return nil, err
	}

	items := make([]map[string]any, 0, len(versions))
	for _, version := range versions {
		items = append(items, map[string]any{
			"hash":      version.Hash,
			"message":   version.Message,
			"author":    version.Author,
			"createdAt": version.CreatedAt.Format(time.RFC3339),
			"meta":      fmt.Sprintf("%s · %s", version.Author, relative(version.CreatedAt)),
		})
	}
	return map[string]any{"jobId": jobID, "items": items}, nil
}

func (s *Service) Version(ctx context.Context, identity auth.Identity, jobID, hash string) (map[string]any, error) {
	if err := s.authorizeJob(ctx, identity, jobID); err != nil {
		return nil, err
	}
	doc, version, err := s.versions.GetDocumentByHash(jobID, hash)
	if err != nil {
		if errors.Is(err, docrepo.ErrUnknownVersion) || errors.Is(err, docrepo.ErrNoHistory) {
			return nil, sql.ErrNoRows
		}
		return nil, err
	}
	return map[string]any{"jobId": jobID, "version": version, "document": doc}, nil
}

func (s *Service) Export(ctx context.Context, identity auth.Identity, jobID, format string) (*export.Result, error) {
	parsed, err := export.ParseFormat(strings.ToLower(strings.TrimSpace(format)))
	if err != nil {
		return nil, validationError("format must be pdf, docx or markdown")
	}
	doc, err := s.GetResults(ctx, identity, jobID)
	if err != nil {
		return nil, err
	}
	meta := export.Meta{Author: identity.Email, UpdatedAt: time.Now(), Version: fmt.Sprintf("%d", doc.Version)}
	result, err := s.exporter.Export(ctx, doc, meta, parsed)
	if err != nil {
		if errors.Is(err, export.ErrPDFDependencyMissing) || errors.Is(err, export.ErrDOCXDependencyMissing) {
			return nil, domainError(http.StatusServiceUnavailable, "EXPORT_UNAVAILABLE", err.Error(), nil)
		}
		return nil, err
	}
	return result, nil
}

// Search is always scoped to the caller's own jobs.
func (s *Service) Search(identity auth.Identity, text string, limit, offset int) search.Response {
	if s.search == nil {
		return search.Response{Results: []search.Result{}, Query: text}
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.search.Search(search.Query{Text: text, UserID: identity.UserID, Limit: limit, Offset: offset})
}

func (s *Service) PresignUpload(ctx context.Context, identity auth.Identity, filename string) (map[string]any, error) {
	if s.uploads == nil {
		return nil, domainError(http.StatusServiceUnavailable, "UPLOADS_UNAVAILABLE", "Object storage is not configured", nil)
	}
	if strings.TrimSpace(filename) == "" {
		return nil, validationError("filename is required")
	}
	key := upload.ObjectKey(identity.UserID, filename)
	url, err := s.uploads.PresignPut(ctx, key, presignExpiry)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"url":       url,
		"key":       key,
		"expiresAt": time.Now().Add(presignExpiry).UTC().Format(time.RFC3339),
	}, nil
}

// Ping reports database health.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) PingRedis(ctx context.Context) error {
	return s.sessions.Ping(ctx)
}

// authorizeJob hides jobs owned by other users behind a 404.
func (s *Service) authorizeJob(ctx context.Context, identity auth.Identity, jobID string) error {
	if strings.TrimSpace(jobID) == "" {
		return sql.ErrNoRows
	}
	owner, err := s.store.JobOwner(ctx, jobID)
	if err != nil {
		return err
	}
	if !identity.Owns(owner) {
		return sql.ErrNoRows
	}
	return nil
}

func (s *Service) loadCompletedJob(ctx context.Context, jobID string) (store.Job, error) {
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return store.Job{}, err
	}
	if job.Document == nil {
		return store.Job{}, domainError(http.StatusConflict, "RESULTS_NOT_READY", "Analysis has not completed", map[string]any{"status": job.Status})
	}
	if job.Document.Title == "" {
		job.Document.Title = job.Title
	}
	return job, nil
}

func firstNonBlank(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func relative(value time.Time) string {
	minutes := int(time.Since(value).Minutes())
	if minutes < 1 {
		minutes = 1
	}
	if minutes < 60 {
		return fmt.Sprintf("%dm ago", minutes)
	}
	hours := minutes / 60
	if hours < 24 {
		return fmt.Sprintf("%dh ago", hours)
	}
	days := hours / 24
	return fmt.Sprintf("%dd ago", days)
}
