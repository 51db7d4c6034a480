// Package storage defines the durable key/value storage that carts persist into.
package storage

import (
	"context"
	"errors"
	"strings"
)

// ErrNotFound is returned by Get when no value is stored under the key.
var ErrNotFound = errors.New("storage: key not found")

// Store persists opaque values under string keys.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Partition scopes every key of a Store under a prefix so one backend can hold many
// independent namespaces, one per shopper.
type Partition struct {
	store  Store
	prefix string
}

// NewPartition returns a Store whose keys are stored as "<name>:<key>".
func NewPartition(store Store, name string) *Partition {
	return &Partition{store: store, prefix: strings.TrimSpace(name) + ":"}
}

// ShopperPartition is the storage namespace of a single anonymous shopper.
func ShopperPartition(store Store, shopperID string) *Partition {
	return NewPartition(store, "shopper:"+shopperID)
}

func (p *Partition) Get(ctx context.Context, key string) ([]byte, error) {
	return p.store.Get(ctx, p.prefix+key)
}

func (p *Partition) Set(ctx context.Context, key string, value []byte) error {
	return p.store.Set(ctx, p.prefix+key, value)
}

func (p *Partition) Delete(ctx context.Context, key string) error {
	return p.store.Delete(ctx, p.prefix+key)
}

// Prefix returns the key prefix applied by the partition.
func (p *Partition) Prefix() string {
	return p.prefix
}
