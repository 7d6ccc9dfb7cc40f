package models

import "time"

// Provider tags written alongside step counts.
const (
	ProviderHealthConnect = "healthConnect"
	ProviderGoogleFit     = "googleFit"
)

// StepRecord is the per-user, per-day step document stored at
// users/{userId}/steps/{dateId}.
type StepRecord struct {
	UserID       string     `json:"userId"`
	DateID       string     `json:"dateId"`
	Count        int64      `json:"count"`
	Provider     string     `json:"provider,omitempty"`
	UpdatedAt    *time.Time `json:"updatedAt,omitempty"`
	LastSyncedAt *time.Time `json:"lastSyncedAt,omitempty"`
}

// UserProfile is the per-user summary document stored at users/{userId}.
type UserProfile struct {
	UserID             string     `json:"userId"`
	Name               string     `json:"name"`
	InviteCode         string     `json:"inviteCode,omitempty"`
	LastUpdatedDate    string     `json:"lastUpdatedDate,omitempty"`
	LastStepCount      int64      `json:"lastStepCount"`
	CloudSyncProvider  string     `json:"cloudSyncProvider,omitempty"`
	CloudSyncUpdatedAt *time.Time `json:"cloudSyncUpdatedAt,omitempty"`
	UpdatedAt          *time.Time `json:"updatedAt,omitempty"`
}

// Integration is a stored OAuth credential set at
// users/{userId}/integrations/{provider}.
type Integration struct {
	Path              string     `json:"-"`
	UserID            string     `json:"userId"`
	Provider          string     `json:"provider"`
	RefreshToken      string     `json:"-"`
	AccessToken       string     `json:"-"`
	AccessTokenExpiry *time.Time `json:"accessTokenExpiry,omitempty"`
	Scope             string     `json:"scope,omitempty"`
	UpdatedAt         *time.Time `json:"updatedAt,omitempty"`
}

// Friend is a device-local leaderboard entry.
type Friend struct {
	ID      string    `json:"id"`
	Name    string    `json:"name"`
	AddedAt time.Time `json:"addedAt"`
}

// LeaderboardEntry pairs a friend with their count for one day. Steps is
// nil when the friend has no record or the lookup failed.
type LeaderboardEntry struct {
	Friend Friend `json:"friend"`
	Steps  *int64 `json:"steps"`
}
