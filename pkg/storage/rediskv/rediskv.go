// Package rediskv stores entries in redis under the storefront key namespace.
package rediskv

import (
	"context"
	"time"

	"github.com/angelmondragon/storefront/pkg/redis"
	"github.com/angelmondragon/storefront/pkg/storage"
)

type client interface {
	GetBytes(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	StorageKey(key string) string
}

// Store adapts the redis client to storage.Store.
type Store struct {
	client client
	ttl    time.Duration
}

// New wraps client; every write refreshes the entry TTL.
func New(client *redis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	raw, err := s.client.GetBytes(ctx, s.client.StorageKey(key))
	if redis.IsNil(err) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return raw, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	return s.client.Set(ctx, s.client.StorageKey(key), value, s.ttl)
}

func (s *Store) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.client.StorageKey(key))
}
