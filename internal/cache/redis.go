// Package cache keeps sessions and serialized analysis documents in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"crucible/api/internal/analysis"
)

// ErrSessionNotFound is returned for unknown, expired or revoked sessions.
var ErrSessionNotFound = errors.New("session not found or expired")

// Connect parses redisURL and checks the server answers.
func Connect(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return client, nil
}

// SessionData is stored for each live session token
type SessionData struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionStore records issued session ids so they can be revoked
type SessionStore struct {
	client *redis.Client
	prefix string
}

func NewSessionStore(client *redis.Client) *SessionStore {
	return &SessionStore{client: client, prefix: "session:"}
}

func (s *SessionStore) key(sessionID string) string {
	return s.prefix + sessionID
}

// Save stores a session until expiresAt
func (s *SessionStore) Save(ctx context.Context, sessionID string, data SessionData, expiresAt time.Time) error {
	if data.CreatedAt.IsZero() {
		data.CreatedAt = time.Now().UTC()
	}
	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal session data: %w", err)
	}

	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	if err := s.client.Set(ctx, s.key(sessionID), jsonData, ttl).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Lookup returns the session data, or ErrSessionNotFound
func (s *SessionStore) Lookup(ctx context.Context, sessionID string) (SessionData, error) {
	jsonData, err := s.client.Get(ctx, s.key(sessionID)).Result()
	if errors.Is(err, redis.Nil) {
		return SessionData{}, ErrSessionNotFound
	}
	if err != nil {
		return SessionData{}, fmt.Errorf("lookup session: %w", err)
	}

	var data SessionData
	if err := json.Unmarshal([]byte(jsonData), &data); err != nil {
		return SessionData{}, fmt.Errorf("unmarshal session data: %w", err)
	}
	if data.Role == "" {
		data.Role = "viewer"
	}
	return data, nil
}

// Revoke deletes a session
func (s *SessionStore) Revoke(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, s.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

func (s *SessionStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// DocumentCache is a read-through cache of analysis documents keyed by job
type DocumentCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewDocumentCache(client *redis.Client, ttl time.Duration) *DocumentCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &DocumentCache{client: client, prefix: "result:", ttl: ttl}
}

func (c *DocumentCache) key(jobID string) string {
	return c.prefix + jobID
}

// Get returns the cached document; ok is false on a miss.
func (c *DocumentCache) Get(ctx context.Context, jobID string) (*analysis.Document, bool, error) {
	payload, err := c.client.Get(ctx, c.key(jobID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read cached document: %w", err)
	}
	var doc analysis.Document
	if err := json.Unmarshal(payload, &doc); err != nil {
		// A payload that no longer decodes is treated as a miss and dropped.
		_ = c.client.Del(ctx, c.key(jobID)).Err()
		return nil, false, nil
	}
	return &doc, true, nil
}

func (c *DocumentCache) Put(ctx context.Context, jobID string, doc *analysis.Document) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	if err := c.client.Set(ctx, c.key(jobID), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache document: %w", err)
	}
	return nil
}

func (c *DocumentCache) Invalidate(ctx context.Context, jobID string) error {
	if err := c.client.Del(ctx, c.key(jobID)).Err(); err != nil {
		return fmt.Errorf("invalidate document: %w", err)
	}
	return nil
}
