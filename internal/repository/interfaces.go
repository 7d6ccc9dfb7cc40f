package repository

import (
	"context"

	"github.com/vytor/stepple/internal/models"
)

// StepCacheRepository is the device-local per-day step cache.
type StepCacheRepository interface {
	// Get returns the cached count for dateID; ok is false on a miss.
	Get(ctx context.Context, dateID string) (count int64, ok bool, err error)
	// Put stores count for dateID, overwriting any previous value.
	Put(ctx context.Context, dateID string, count int64) error
	// Missing returns the subset of dateIDs with no cache entry, in input order.
	Missing(ctx context.Context, dateIDs []string) ([]string, error)
}

// SettingsRepository holds small device settings such as the user id.
type SettingsRepository interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// FriendRepository is the device-local friends list.
type FriendRepository interface {
	List(ctx context.Context) ([]models.Friend, error)
	// Add inserts friend unless its id is already present; added reports
	// whether a row was written.
	Add(ctx context.Context, friend models.Friend) (added bool, err error)
}

// Setting keys.
const (
	SettingUserID   = "userId"
	SettingUserName = "userName"
)
