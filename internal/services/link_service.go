package services

import (
	"context"
	"strings"
	"time"

	"github.com/vytor/stepple/internal/errors"
	"github.com/vytor/stepple/internal/googlefit"
	"github.com/vytor/stepple/internal/logger"
	"github.com/vytor/stepple/internal/models"
	"github.com/vytor/stepple/internal/stepstore"
)

// LinkProviderRequest is the callable payload.
type LinkProviderRequest struct {
	AuthCode    string `json:"authCode"`
	RedirectURI string `json:"redirectUri"`
}

// LinkProviderResult is the callable result.
type LinkProviderResult struct {
	Success         bool `json:"success"`
	HasRefreshToken bool `json:"hasRefreshToken"`
}

// IntegrationWriter merge-upserts integration records.
type IntegrationWriter interface {
	MergeIntegration(ctx context.Context, userID string, u stepstore.IntegrationUpdate) error
}

// LinkService links a user to Google Fit
type LinkService interface {
	LinkProvider(ctx context.Context, userID string, req LinkProviderRequest) (LinkProviderResult, error)
}

type linkService struct {
	fit   googlefit.ClientInterface
	store IntegrationWriter
}

// NewLinkService creates a new LinkService
func NewLinkService(fit googlefit.ClientInterface, store IntegrationWriter) LinkService {
	return &linkService{fit: fit, store: store}
}

// LinkProvider exchanges the authorization code and merges whatever the
// token endpoint returned into users/{userID}/integrations/googleFit. A
// later link that returns no refresh token keeps the stored one.
func (s *linkService) LinkProvider(ctx context.Context, userID string, req LinkProviderRequest) (LinkProviderResult, error) {
	log := logger.FromContext(ctx).WithPrefix("link").WithField("user_id", userID)

	if userID == "" {
		return LinkProviderResult{}, errors.NewUnauthenticatedError("Authentication is required.")
	}
	code := strings.TrimSpace(req.AuthCode)
	redirect := strings.TrimSpace(req.RedirectURI)
	if code == "" || redirect == "" {
		return LinkProviderResult{}, errors.NewInvalidArgumentError("authCode and redirectUri are required.")
	}
	if !s.fit.Configured() {
		log.Error("Google Fit client credentials are not configured")
		return LinkProviderResult{}, errors.NewFailedPreconditionError("Google Fit client credentials are not configured.")
	}

	tok, err := s.fit.Exchange(ctx, code, redirect)
	if err != nil {
		log.Error("failed to exchange Google Fit auth code: %v", err)
		return LinkProviderResult{}, errors.NewInternalErrorMessage("Failed to exchange authorization code.", err)
	}

	update := stepstore.IntegrationUpdate{
		Provider:     models.ProviderGoogleFit,
		Scope:        googlefit.Scope,
		RefreshToken: tok.RefreshToken,
		AccessToken:  tok.AccessToken,
	}
	if scope, ok := tok.Extra("scope").(string); ok && scope != "" {
		update.Scope = scope
	}
	if !tok.Expiry.IsZero() {
		expiry := tok.Expiry.UTC().Truncate(time.Millisecond)
		update.AccessTokenExpiry = &expiry
	}

	if err := s.store.MergeIntegration(ctx, userID, update); err != nil {
		log.Error("failed to store integration: %v", err)
		return LinkProviderResult{}, errors.NewInternalError(err)
	}

	log.Info("linked Google Fit, refresh token present=%t", tok.RefreshToken != "")
	return LinkProviderResult{Success: true, HasRefreshToken: tok.RefreshToken != ""}, nil
}
