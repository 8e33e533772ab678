// Package cache keeps interview session snapshots in Redis in front of a
// store.Repository.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MikeSquared-Agency/pai/internal/interview"
	"github.com/MikeSquared-Agency/pai/internal/store"
)

const keyPrefix = "pai:session:"

// Connect parses a redis:// URL and pings the server.
func Connect(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}

// SessionStore is a Repository whose session reads are served from Redis
// when possible. Every other method goes straight to the wrapped store.
type SessionStore struct {
	store.Repository
	rdb    *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

var _ store.Repository = (*SessionStore)(nil)

func NewSessionStore(repo store.Repository, rdb *redis.Client, ttl time.Duration, logger *slog.Logger) *SessionStore {
	return &SessionStore{Repository: repo, rdb: rdb, ttl: ttl, logger: logger}
}

func sessionKey(id string) string {
	return keyPrefix + id
}

func (s *SessionStore) GetSession(ctx context.Context, sessionID string) (*interview.Session, error) {
	data, err := s.rdb.Get(ctx, sessionKey(sessionID)).Bytes()
	switch {
	case err == nil:
		var sess interview.Session
		if err := json.Unmarshal(data, &sess); err == nil {
			return &sess, nil
		}
		s.logger.Warn("discarding unreadable cached session", "session_id", sessionID)
	case !errors.Is(err, redis.Nil):
		s.logger.Warn("session cache read failed", "session_id", sessionID, "error", err)
	}

	sess, err := s.Repository.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	s.set(ctx, sess)
	return sess, nil
}

// PutSession writes to the store first so the cache never holds a snapshot
// the store rejected.
func (s *SessionStore) PutSession(ctx context.Context, sess *interview.Session) error {
	if err := s.Repository.PutSession(ctx, sess); err != nil {
		return err
	}
	s.set(ctx, sess)
	return nil
}

func (s *SessionStore) set(ctx context.Context, sess *interview.Session) {
	data, err := json.Marshal(sess)
	if err != nil {
		s.logger.Warn("marshal session for cache", "session_id", sess.SessionID, "error", err)
		return
	}
	if err := s.rdb.Set(ctx, sessionKey(sess.SessionID), data, s.ttl).Err(); err != nil {
		s.logger.Warn("session cache write failed", "session_id", sess.SessionID, "error", err)
	}
}

// Close closes the Redis client and the wrapped store.
func (s *SessionStore) Close() {
	if err := s.rdb.Close(); err != nil {
		s.logger.Warn("close redis", "error", err)
	}
	s.Repository.Close()
}
