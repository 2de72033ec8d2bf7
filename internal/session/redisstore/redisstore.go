// Package redisstore keeps session records in Redis instead of the SQL
// sessions table. Each record is a JSON value whose Redis TTL matches the
// session expiry, so Redis drops stale sessions on its own.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/sakif/bookstore/internal/apperror"
	"github.com/sakif/bookstore/internal/model"
	"github.com/sakif/bookstore/internal/repository"
)

const keyPrefix = "bookstore:session:"

var _ repository.SessionRepository = (*Store)(nil)

type Store struct {
	client *redis.Client
}

// New connects to the Redis server named by url (redis://[:pass@]host:port/db)
// and checks that it answers.
func New(ctx context.Context, url string) (*Store, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redisstore: parsing url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redisstore: ping: %w", err)
	}
	return &Store{client: client}, nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *redis.Client) *Store {
	return &Store{client: client}
}

func (s *Store) Close() error {
	return s.client.Close()
}

type record struct {
	Identity  model.Identity `json:"identity"`
	ExpiresAt int64          `json:"expiresAt"`
}

func (s *Store) SaveSession(ctx context.Context, sess repository.StoredSession) error {
	ttl := time.Until(sess.ExpiresAt)
	if ttl <= 0 {
		return nil
	}

	data, err := encode(sess)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, keyPrefix+sess.Token, data, ttl).Err(); err != nil {
		return fmt.Errorf("redisstore: saving session: %w", err)
	}
	return nil
}

func (s *Store) GetSession(ctx context.Context, token string) (*repository.StoredSession, error) {
	data, err := s.client.Get(ctx, keyPrefix+token).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperror.NotFound("session", "token")
		}
		return nil, fmt.Errorf("redisstore: getting session: %w", err)
	}

	sess, err := decode(token, data)
	if err != nil {
		return nil, err
	}
	if !time.Now().Before(sess.ExpiresAt) {
		return nil, apperror.NotFound("session", "token")
	}
	return sess, nil
}

func (s *Store) DeleteSession(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, keyPrefix+token).Err(); err != nil {
		return fmt.Errorf("redisstore: deleting session: %w", err)
	}
	return nil
}

func encode(sess repository.StoredSession) ([]byte, error) {
	data, err := json.Marshal(record{Identity: sess.Identity, ExpiresAt: sess.ExpiresAt.Unix()})
	if err != nil {
		return nil, fmt.Errorf("redisstore: encoding session: %w", err)
	}
	return data, nil
}

func decode(token string, data []byte) (*repository.StoredSession, error) {
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("redisstore: decoding session: %w", err)
	}
	return &repository.StoredSession{
		Token:     token,
		Identity:  rec.Identity,
		ExpiresAt: time.Unix(rec.ExpiresAt, 0),
	}, nil
}
