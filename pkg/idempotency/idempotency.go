package idempotency

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/angelmondragon/storefront/pkg/redis"
)

// Manager remembers which operations already ran using SETNX with a TTL.
// Keys follow the `<namespace>:idempotency:<scope>:<id>` pattern of the backing store.
type Manager struct {
	store redis.IdempotencyStore
	ttl   time.Duration
}

// NewManager builds a guard that keeps claims for the given TTL.
func NewManager(store redis.IdempotencyStore, ttl time.Duration) (*Manager, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	return &Manager{
		store: store,
		ttl:   ttl,
	}, nil
}

// Claim returns true when the caller is the first to claim (scope, parts). Later calls
// with the same identity return false until the claim expires or is released.
func (m *Manager) Claim(ctx context.Context, scope string, parts ...string) (bool, error) {
	key, err := m.key(scope, parts)
	if err != nil {
		return false, err
	}
	return m.store.SetNX(ctx, key, "1", m.ttl)
}

// Release drops a claim so the operation may run again.
func (m *Manager) Release(ctx context.Context, scope string, parts ...string) error {
	key, err := m.key(scope, parts)
	if err != nil {
		return err
	}
	return m.store.Del(ctx, key)
}

func (m *Manager) key(scope string, parts []string) (string, error) {
	if scope == "" {
		return "", errors.New("scope is required")
	}
	if len(parts) == 0 {
		return "", errors.New("identity is required")
	}
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			return "", errors.New("identity parts must be non-empty")
		}
	}
	return m.store.IdempotencyKey(scope, strings.Join(parts, ":")), nil
}
