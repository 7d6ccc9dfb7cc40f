package services

import (
	"context"
	"time"

	"github.com/vytor/stepple/internal/errors"
	"github.com/vytor/stepple/internal/logger"
	"github.com/vytor/stepple/internal/models"
)

// StepReader reads shared step and profile records.
type StepReader interface {
	GetStepRecord(ctx context.Context, userID, dateID string) (*models.StepRecord, error)
	GetProfile(ctx context.Context, userID string) (*models.UserProfile, error)
}

// StepsService serves the read API
type StepsService interface {
	GetDay(ctx context.Context, userID, dateID string) (*models.StepRecord, error)
	GetProfile(ctx context.Context, userID string) (*models.UserProfile, error)
}

type stepsService struct {
	store StepReader
}

// NewStepsService creates a new StepsService
func NewStepsService(store StepReader) StepsService {
	return &stepsService{store: store}
}

func (s *stepsService) GetDay(ctx context.Context, userID, dateID string) (*models.StepRecord, error) {
	log := logger.FromContext(ctx)
	log.Debug("getting day: user=%s date=%s", userID, dateID)

	if userID == "" {
		return nil, errors.NewInvalidArgumentError("user id is required")
	}
	if _, err := models.ParseDateID(dateID, time.UTC); err != nil {
		return nil, errors.NewInvalidArgumentError("date must be YYYY-MM-DD")
	}

	rec, err := s.store.GetStepRecord(ctx, userID, dateID)
	if err != nil {
		log.Error("failed to get step record: %v", err)
		return nil, errors.NewInternalError(err)
	}
	if rec == nil {
		return nil, errors.NewNotFoundError("step record", userID+"/"+dateID)
	}
	return rec, nil
}

func (s *stepsService) GetProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	log := logger.FromContext(ctx)
	log.Debug("getting profile: user=%s", userID)

	if userID == "" {
		return nil, errors.NewInvalidArgumentError("user id is required")
	}
	p, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		log.Error("failed to get profile: %v", err)
		return nil, errors.NewInternalError(err)
	}
	if p == nil {
		return nil, errors.NewNotFoundError("profile", userID)
	}
	return p, nil
}
