package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"lex-dialog/internal/domain"
)

const defaultKeyPrefix = "lex:session:"

// redisStore keeps each session as a JSON blob. Every write refreshes the
// key's expiry.
type redisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func newRedisStore(client *redis.Client, prefix string, ttl time.Duration) (*redisStore, error) {
	if client == nil {
		return nil, errors.New("repository: redis client must not be nil")
	}
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &redisStore{client: client, prefix: prefix, ttl: ttl}, nil
}

func (s *redisStore) key(k domain.SessionKey) string {
	return s.prefix + k.String()
}

func (s *redisStore) Get(ctx context.Context, key domain.SessionKey) (*domain.Session, error) {
	val, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("repository: redis get: %w", err)
	}
	return decodeSession(key, val)
}

func (s *redisStore) Put(ctx context.Context, sess *domain.Session) error {
	if err := validateSession(sess); err != nil {
		return err
	}
	data, err := encodeSession(sess)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key(sess.Key), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("repository: redis set: %w", err)
	}
	return nil
}

func (s *redisStore) Delete(ctx context.Context, key domain.SessionKey) (*domain.Session, error) {
	val, err := s.client.GetDel(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("repository: redis getdel: %w", err)
	}
	return decodeSession(key, val)
}
