// Package stepstore maps step, profile and integration records onto the
// shared document store layout:
//
//	users/{userId}
//	users/{userId}/steps/{dateId}
//	users/{userId}/integrations/{provider}
//
// Every write is a merge-upsert. Device and server writers may race on the
// same day document; the last write wins and counts are never summed.
package stepstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vytor/stepple/internal/docstore"
	"github.com/vytor/stepple/internal/logger"
	"github.com/vytor/stepple/internal/models"
)

const (
	usersCollection        = "users"
	stepsCollection        = "steps"
	integrationsCollection = "integrations"
)

// UserPath returns the profile document path.
func UserPath(userID string) string {
	return docstore.Join(usersCollection, userID)
}

// StepPath returns the day document path.
func StepPath(userID, dateID string) string {
	return docstore.Join(usersCollection, userID, stepsCollection, dateID)
}

// IntegrationPath returns the integration document path.
func IntegrationPath(userID, provider string) string {
	return docstore.Join(usersCollection, userID, integrationsCollection, provider)
}

// DayCount is one aggregated day ready to be written.
type DayCount struct {
	DateID string
	Count  int64
}

// Store reads and writes typed records through a docstore.Store.
type Store struct {
	docs *docstore.Store
}

// New wraps docs.
func New(docs *docstore.Store) *Store {
	return &Store{docs: docs}
}

// GetStepRecord returns the day record, or nil when it does not exist.
func (s *Store) GetStepRecord(ctx context.Context, userID, dateID string) (*models.StepRecord, error) {
	doc, err := s.docs.Get(ctx, StepPath(userID, dateID))
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	rec := &models.StepRecord{UserID: userID, DateID: dateID, Provider: doc.Data.String("provider")}
	rec.Count, _ = doc.Data.Int64("count")
	rec.UpdatedAt, _ = doc.Data.Time("updatedAt")
	rec.LastSyncedAt, _ = doc.Data.Time("lastSyncedAt")
	return rec, nil
}

// GetProfile returns the profile, or nil when it does not exist.
func (s *Store) GetProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	doc, err := s.docs.Get(ctx, UserPath(userID))
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p := &models.UserProfile{
		UserID:            userID,
		Name:              doc.Data.String("name"),
		InviteCode:        doc.Data.String("inviteCode"),
		LastUpdatedDate:   doc.Data.String("lastUpdatedDate"),
		CloudSyncProvider: doc.Data.String("cloudSyncProvider"),
	}
	p.LastStepCount, _ = doc.Data.Int64("lastStepCount")
	p.CloudSyncUpdatedAt, _ = doc.Data.Time("cloudSyncUpdatedAt")
	p.UpdatedAt, _ = doc.Data.Time("updatedAt")
	return p, nil
}

// UpsertProfileIdentity records the user's id, display name and invite code.
func (s *Store) UpsertProfileIdentity(ctx context.Context, userID, name string) error {
	return s.docs.Set(ctx, UserPath(userID), docstore.Fields{
		"userId":     userID,
		"name":       name,
		"inviteCode": userID,
		"updatedAt":  docstore.ServerTimestamp,
	}, true)
}

// PutDeviceSteps writes a device-confirmed count for one day together with
// the profile summary.
func (s *Store) PutDeviceSteps(ctx context.Context, userID, dateID string, count int64) error {
	return s.docs.Batch().
		Set(StepPath(userID, dateID), docstore.Fields{
			"count":     count,
			"provider":  models.ProviderHealthConnect,
			"updatedAt": docstore.ServerTimestamp,
		}, true).
		Set(UserPath(userID), docstore.Fields{
			"lastUpdatedDate": dateID,
			"lastStepCount":   count,
			"updatedAt":       docstore.ServerTimestamp,
		}, true).
		Commit(ctx)
}

// WriteAggregatedDays writes every day for one user in a single atomic
// batch. The profile summary ends up holding the last day in days.
func (s *Store) WriteAggregatedDays(ctx context.Context, userID, provider string, days []DayCount) error {
	if len(days) == 0 {
		return nil
	}
	batch := s.docs.Batch()
	for _, d := range days {
		batch.Set(StepPath(userID, d.DateID), docstore.Fields{
			"count":        d.Count,
			"provider":     provider,
			"lastSyncedAt": docstore.ServerTimestamp,
		}, true)
		batch.Set(UserPath(userID), docstore.Fields{
			"lastStepCount":      d.Count,
			"lastUpdatedDate":    d.DateID,
			"cloudSyncProvider":  provider,
			"cloudSyncUpdatedAt": docstore.ServerTimestamp,
		}, true)
	}
	return batch.Commit(ctx)
}

// IntegrationUpdate lists the integration fields a caller wants to set.
// Empty strings and nil pointers are left out of the write, so existing
// stored values survive.
type IntegrationUpdate struct {
	Provider          string
	Scope             string
	RefreshToken      string
	AccessToken       string
	AccessTokenExpiry *time.Time
}

// MergeIntegration merge-upserts an integration record.
func (s *Store) MergeIntegration(ctx context.Context, userID string, u IntegrationUpdate) error {
	if u.Provider == "" {
		return fmt.Errorf("integration provider is required")
	}
	fields := docstore.Fields{
		"provider":  u.Provider,
		"updatedAt": docstore.ServerTimestamp,
	}
	if u.Scope != "" {
		fields["scope"] = u.Scope
	}
	if u.RefreshToken != "" {
		fields["refreshToken"] = u.RefreshToken
	}
	if u.AccessToken != "" {
		fields["accessToken"] = u.AccessToken
	}
	if u.AccessTokenExpiry != nil {
		fields["accessTokenExpiry"] = *u.AccessTokenExpiry
	}
	return s.docs.Set(ctx, IntegrationPath(userID, u.Provider), fields, true)
}

// ListIntegrations returns every integration tagged with provider across
// all users. UserID is empty when the parent user cannot be resolved.
func (s *Store) ListIntegrations(ctx context.Context, provider string) ([]models.Integration, error) {
	log := logger.FromContext(ctx).WithPrefix("stepstore")

	docs, err := s.docs.CollectionGroup(ctx, integrationsCollection, docstore.Fields{"provider": provider})
	if err != nil {
		return nil, err
	}

	out := make([]models.Integration, 0, len(docs))
	for _, doc := range docs {
		in := models.Integration{
			Path:         doc.Path,
			UserID:       parentUserID(doc.Ref),
			Provider:     doc.Data.String("provider"),
			RefreshToken: doc.Data.String("refreshToken"),
			AccessToken:  doc.Data.String("accessToken"),
			Scope:        doc.Data.String("scope"),
		}
		in.AccessTokenExpiry, _ = doc.Data.Time("accessTokenExpiry")
		in.UpdatedAt, _ = doc.Data.Time("updatedAt")
		out = append(out, in)
	}
	log.Debug("found %d %s integrations", len(out), provider)
	return out, nil
}

// parentUserID resolves the owning user of an integration document. Only
// documents directly under users/{userId} qualify.
func parentUserID(ref docstore.Ref) string {
	parent, err := docstore.ParseRef(ref.Parent)
	if err != nil || parent.Collection != usersCollection || parent.Parent != "" {
		return ""
	}
	return parent.ID
}
