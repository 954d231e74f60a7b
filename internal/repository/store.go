package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"lex-dialog/internal/domain"
)

const defaultSessionTTL = 24 * time.Hour

var (
	// ErrNotFound is returned when no live session exists for a key.
	ErrNotFound = errors.New("repository: session not found")

	ErrInvalidBackend = errors.New("repository: unknown store backend")
)

// Store persists conversation state per session key.
type Store interface {
	Get(ctx context.Context, key domain.SessionKey) (*domain.Session, error)
	Put(ctx context.Context, s *domain.Session) error
	// Delete removes the session and returns it as it was stored.
	Delete(ctx context.Context, key domain.SessionKey) (*domain.Session, error)
}

type Backend string

const (
	BackendMemory   Backend = "memory"
	BackendDynamoDB Backend = "dynamodb"
	BackendRedis    Backend = "redis"
)

func ParseBackend(s string) (Backend, error) {
	switch b := Backend(s); b {
	case BackendMemory, BackendDynamoDB, BackendRedis:
		return b, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidBackend, s)
}

type storeConfig struct {
	ttl         time.Duration
	dynamo      dynamodbAPI
	tableName   string
	redisClient *redis.Client
	keyPrefix   string
	now         func() time.Time
}

type Option func(*storeConfig)

// WithSessionTTL sets how long an idle session is kept.
func WithSessionTTL(ttl time.Duration) Option {
	return func(c *storeConfig) { c.ttl = ttl }
}

func WithDynamoDB(api dynamodbAPI, tableName string) Option {
	return func(c *storeConfig) {
		c.dynamo = api
		c.tableName = tableName
	}
}

func WithRedisClient(client *redis.Client) Option {
	return func(c *storeConfig) { c.redisClient = client }
}

// WithKeyPrefix overrides the Redis key prefix.
func WithKeyPrefix(prefix string) Option {
	return func(c *storeConfig) { c.keyPrefix = prefix }
}

func WithClock(now func() time.Time) Option {
	return func(c *storeConfig) { c.now = now }
}

// NewStore creates a Store for the backend. DynamoDB needs WithDynamoDB and
// Redis needs WithRedisClient.
func NewStore(backend Backend, opts ...Option) (Store, error) {
	cfg := &storeConfig{ttl: defaultSessionTTL, now: time.Now}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.ttl <= 0 {
		cfg.ttl = defaultSessionTTL
	}
	if cfg.now == nil {
		cfg.now = time.Now
	}

	switch backend {
	case BackendMemory:
		return newMemoryStore(cfg.ttl, cfg.now), nil
	case BackendDynamoDB:
		c, err := New(cfg.dynamo, cfg.tableName)
		if err != nil {
			return nil, err
		}
		c.ttl, c.now = cfg.ttl, cfg.now
		return c, nil
	case BackendRedis:
		return newRedisStore(cfg.redisClient, cfg.keyPrefix, cfg.ttl)
	}
	return nil, fmt.Errorf("%w: %q", ErrInvalidBackend, backend)
}

func encodeSession(s *domain.Session) ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("repository: encode session: %w", err)
	}
	return data, nil
}

func decodeSession(key domain.SessionKey, data []byte) (*domain.Session, error) {
	var s domain.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("repository: decode session: %w", err)
	}
	s.Key = key
	return &s, nil
}

func validateSession(s *domain.Session) error {
	if s == nil {
		return errors.New("repository: session must not be nil")
	}
	if s.SessionID == "" {
		return errors.New("repository: session id is required")
	}
	return s.Key.Validate()
}
