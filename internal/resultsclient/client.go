// Package resultsclient talks to the results API. It fetches analysis
// documents once per job, keeps them in a bounded cache and sends whole
// drafts back as a single bulk update.
package resultsclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"crucible/api/internal/analysis"
)

const defaultCacheSize = 256

// APIError is a non-2xx response decoded from the server's error envelope.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	if e.Code == "" {
		return fmt.Sprintf("results api: status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("results api: %s: %s", e.Code, e.Message)
}

// Version is one saved revision of a job's document.
type Version struct {
	Hash      string    `json:"hash"`
	Message   string    `json:"message"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"createdAt"`
}

// PresignedUpload is a short-lived URL the caller PUTs a file to.
type PresignedUpload struct {
	URL       string    `json:"url"`
	Key       string    `json:"key"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type Client struct {
	baseURL string
	token   string
	http    *http.Client
	cache   *lru.Cache[string, *analysis.Document]
}

type Option func(*Client)

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.http = client
		}
	}
}

// WithToken sends token as a bearer credential on every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = strings.TrimSpace(token) }
}

func New(baseURL string, cacheSize int, opts ...Option) (*Client, error) {
	if cacheSize <= 0 {
		cacheSize = defaultCacheSize
	}
	cache, err := lru.New[string, *analysis.Document](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create document cache: %w", err)
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		cache:   cache,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Fetch returns the document for jobID, calling the API only on the first
// request for that job. Callers must treat the result as read-only.
func (c *Client) Fetch(ctx context.Context, jobID string) (*analysis.Document, error) {
	if doc, ok := c.cache.Get(jobID); ok {
		return doc, nil
	}
	return c.Revalidate(ctx, jobID)
}

// Revalidate fetches the document again and replaces the cached copy.
func (c *Client) Revalidate(ctx context.Context, jobID string) (*analysis.Document, error) {
	var doc analysis.Document
	if err := c.do(ctx, http.MethodGet, resultsPath(jobID), nil, &doc); err != nil {
		return nil, err
	}
	if doc.JobID == "" {
		doc.JobID = jobID
	}
	c.cache.Add(jobID, &doc)
	return &doc, nil
}

// Commit sends the whole document in one PATCH. On success the cache holds
// a copy of what was sent, so the next Fetch does not hit the network. A
// failed commit drops the cached copy since the server state is unknown.
func (c *Client) Commit(ctx context.Context, jobID string, doc *analysis.Document) error {
	if doc == nil {
		return fmt.Errorf("commit %s: nil document", jobID)
	}
	if err := c.do(ctx, http.MethodPatch, resultsPath(jobID)+"/bulk", analysis.NewBulkUpdate(doc), nil); err != nil {
		c.Forget(jobID)
		return err
	}
	c.cache.Add(jobID, doc.Clone())
	return nil
}

// Forget drops a job from the cache.
func (c *Client) Forget(jobID string) {
	c.cache.Remove(jobID)
}

func (c *Client) History(ctx context.Context, jobID string, limit int) ([]Version, error) {
	path := resultsPath(jobID) + "/history"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var payload struct {
		Items []Version `json:"items"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &payload); err != nil {
		return nil, err
	}
	return payload.Items, nil
}

// Export downloads the rendered document and returns its bytes and content
// type.
func (c *Client) Export(ctx context.Context, jobID, format string) ([]byte, string, error) {
	req, err := c.newRequest(ctx, http.MethodGet, resultsPath(jobID)+"/export?format="+url.QueryEscape(format), nil)
	if err != nil {
		return nil, "", err
	}
	res, err := c.http.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("export %s: %w", jobID, err)
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, "", decodeAPIError(res)
	}
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read export body: %w", err)
	}
	return body, res.Header.Get("Content-Type"), nil
}

func (c *Client) PresignUpload(ctx context.Context, filename string) (PresignedUpload, error) {
	var out PresignedUpload
	err := c.do(ctx, http.MethodPost, "/api/uploads/presign", map[string]string{"filename": filename}, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, body, target any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := c.newRequest(ctx, method, path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return decodeAPIError(res)
	}
	if target == nil {
		_, _ = io.Copy(io.Discard, res.Body)
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(target); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

func decodeAPIError(res *http.Response) error {
	apiErr := &APIError{Status: res.StatusCode, Message: http.StatusText(res.StatusCode)}
	var envelope struct {
		Code  string `json:"code"`
		Error string `json:"error"`
	}
	raw, _ := io.ReadAll(io.LimitReader(res.Body, 64<<10))
	if err := json.Unmarshal(raw, &envelope); err == nil {
		apiErr.Code = envelope.Code
		if envelope.Error != "" {
			apiErr.Message = envelope.Error
		}
	} else if text := strings.TrimSpace(string(raw)); text != "" {
		apiErr.Message = text
	}
	return apiErr
}

func resultsPath(jobID string) string {
	return "/results/" + url.PathEscape(jobID)
}
