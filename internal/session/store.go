package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/access-portal/internal/domain"
)

// ErrNoSession is returned when no session exists for a token, either because
// it was never created, was cleared on logout, or expired.
var ErrNoSession = errors.New("no session")

const keyPrefix = "portal:session:"

// Store is the single source of truth for who is logged in and what they may
// do. One logical writer (the login/logout flow), many readers.
type Store interface {
	Save(ctx context.Context, sess *domain.Session) error
	Clear(ctx context.Context, tokenID string) error
	Current(ctx context.Context, tokenID string) (*domain.Session, error)
}

type redisStore struct {
	client *redis.Client
}

// NewRedisStore returns a Redis-backed session store. Records carry a TTL so
// sessions lapse together with their tokens.
func NewRedisStore(client *redis.Client) Store {
	return &redisStore{client: client}
}

func (s *redisStore) Save(ctx context.Context, sess *domain.Session) error {
	if sess == nil || sess.TokenID == "" {
		return errors.New("session missing token id")
	}
	payload, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	ttl := time.Until(sess.ExpiresAt)
	if ttl <= 0 {
		return errors.New("session already expired")
	}
	return s.client.Set(ctx, keyPrefix+sess.TokenID, payload, ttl).Err()
}

func (s *redisStore) Clear(ctx context.Context, tokenID string) error {
	return s.client.Del(ctx, keyPrefix+tokenID).Err()
}

func (s *redisStore) Current(ctx context.Context, tokenID string) (*domain.Session, error) {
	payload, err := s.client.Get(ctx, keyPrefix+tokenID).Bytes()
	if err == redis.Nil {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, err
	}

	var sess domain.Session
	if err := json.Unmarshal(payload, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}
