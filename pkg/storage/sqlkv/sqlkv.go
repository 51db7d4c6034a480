// Package sqlkv stores entries in the storefront_entries table through GORM.
package sqlkv

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/storefront/pkg/db"
	"github.com/angelmondragon/storefront/pkg/storage"
)

// Entry is one persisted key/value row.
type Entry struct {
	Key       string     `gorm:"column:entry_key;primaryKey"`
	Value     []byte     `gorm:"column:value;not null"`
	ExpiresAt *time.Time `gorm:"column:expires_at"`
	UpdatedAt time.Time  `gorm:"column:updated_at"`
}

func (Entry) TableName() string { return "storefront_entries" }

// Store implements storage.Store and the idempotency claim surface on SQL.
type Store struct {
	client *db.Client
	ttl    time.Duration
	now    func() time.Time
}

// New returns a store writing through client. A positive ttl sets expires_at on writes.
func New(client *db.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl, now: time.Now}
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var row Entry
	err := s.client.DB().WithContext(ctx).
		Where("entry_key = ?", key).
		Where("expires_at IS NULL OR expires_at > ?", s.now().UTC()).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read entry %q: %w", key, err)
	}
	return row.Value, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	row := s.newEntry(key, value, s.ttl)
	err := s.client.DB().WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "entry_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "expires_at", "updated_at"}),
		}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("write entry %q: %w", key, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.client.DB().WithContext(ctx).Where("entry_key = ?", key).Delete(&Entry{}).Error; err != nil {
		return fmt.Errorf("delete entry %q: %w", key, err)
	}
	return nil
}

// SetNX inserts key only when no live row holds it. Expired rows are replaced.
func (s *Store) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	row := s.newEntry(key, []byte(fmt.Sprint(value)), ttl)
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Where("entry_key = ? AND expires_at IS NOT NULL AND expires_at <= ?", key, row.UpdatedAt).
			Delete(&Entry{}).Error; err != nil {
			return err
		}
		return tx.Create(&row).Error
	})
	if db.IsUniqueViolation(err, "") {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("claim entry %q: %w", key, err)
	}
	return true, nil
}

// Del removes the provided keys.
func (s *Store) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.client.DB().WithContext(ctx).Where("entry_key IN ?", keys).Delete(&Entry{}).Error
}

// IdempotencyKey namespaces idempotency claims away from storage entries.
func (s *Store) IdempotencyKey(scope, id string) string {
	return strings.Join([]string{"idempotency", scope, id}, ":")
}

// PurgeExpired deletes rows whose TTL has elapsed and reports how many were removed.
func (s *Store) PurgeExpired(ctx context.Context) (int64, error) {
	res := s.client.DB().WithContext(ctx).
		Where("expires_at IS NOT NULL AND expires_at <= ?", s.now().UTC()).
		Delete(&Entry{})
	return res.RowsAffected, res.Error
}

func (s *Store) newEntry(key string, value []byte, ttl time.Duration) Entry {
	now := s.now().UTC()
	row := Entry{Key: key, Value: value, UpdatedAt: now}
	if ttl > 0 {
		expires := now.Add(ttl)
		row.ExpiresAt = &expires
	}
	return row
}
