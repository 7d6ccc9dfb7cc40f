// Package aggregator periodically pulls day buckets from every linked
// Google Fit integration and writes them into the per-day step records.
// One integration failing never affects another.
package aggregator

import (
	"context"
	"fmt"
	"math"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"

	apperrors "github.com/vytor/stepple/internal/errors"
	"github.com/vytor/stepple/internal/googlefit"
	"github.com/vytor/stepple/internal/logger"
	"github.com/vytor/stepple/internal/models"
	"github.com/vytor/stepple/internal/stepstore"
)

const (
	DefaultConcurrency = 8
	DefaultWindowDays  = 3
	DefaultTimeout     = 2 * time.Minute
)

// Store is the part of the shared store the aggregator writes to.
type Store interface {
	ListIntegrations(ctx context.Context, provider string) ([]models.Integration, error)
	WriteAggregatedDays(ctx context.Context, userID, provider string, days []stepstore.DayCount) error
	MergeIntegration(ctx context.Context, userID string, u stepstore.IntegrationUpdate) error
}

// Config bounds a run.
type Config struct {
	Concurrency int
	WindowDays  int
	// Timeout applies to each integration separately.
	Timeout time.Duration
}

// Outcome is how one integration ended.
type Outcome string

const (
	OutcomeSynced  Outcome = "synced"
	OutcomeEmpty   Outcome = "empty"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
)

// IntegrationResult is the per-integration part of a Report.
type IntegrationResult struct {
	Path    string
	UserID  string
	Outcome Outcome
	Buckets int
	Err     error
}

// Report summarizes a run. It is for logs and metrics only.
type Report struct {
	Total          int
	Synced         int
	Empty          int
	Skipped        int
	Failed         int
	BucketsWritten int
	Duration       time.Duration
	Results        []IntegrationResult
}

type Aggregator struct {
	store Store
	fit   googlefit.ClientInterface
	cfg   Config
	now   func() time.Time
}

// New creates an Aggregator. Zero config values take the defaults.
func New(store Store, fit googlefit.ClientInterface, cfg Config) *Aggregator {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.WindowDays <= 0 {
		cfg.WindowDays = DefaultWindowDays
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Aggregator{store: store, fit: fit, cfg: cfg, now: time.Now}
}

// WithClock overrides the aggregator clock.
func (a *Aggregator) WithClock(now func() time.Time) *Aggregator {
	a.now = now
	return a
}

// SyncAllIntegrations runs one pass over every Google Fit integration. The
// returned error is non-nil only when the run could not start: missing
// OAuth client credentials or a failed integration listing.
func (a *Aggregator) SyncAllIntegrations(ctx context.Context) (Report, error) {
	log := logger.FromContext(ctx).WithPrefix("aggregator")
	runsCounter.Inc()
	started := a.now()

	if !a.fit.Configured() {
		return Report{}, apperrors.NewFailedPreconditionError("Google Fit client credentials are not configured.")
	}

	integrations, err := a.store.ListIntegrations(ctx, models.ProviderGoogleFit)
	if err != nil {
		log.Error("failed to list integrations: %v", err)
		return Report{}, err
	}
	if len(integrations) == 0 {
		log.Info("no Google Fit integrations found")
		return Report{}, nil
	}

	end := a.now()
	start := end.Add(-time.Duration(a.cfg.WindowDays) * models.DayLength)
	log.Info("syncing %d integrations over [%s, %s]", len(integrations), start.UTC().Format(time.RFC3339), end.UTC().Format(time.RFC3339))

	results := make([]IntegrationResult, len(integrations))
	g := new(errgroup.Group)
	g.SetLimit(a.cfg.Concurrency)
	for i, in := range integrations {
		i, in := i, in
		g.Go(func() error {
			results[i] = a.syncOne(ctx, in, start, end)
			return nil
		})
	}
	_ = g.Wait()

	report := Report{Total: len(results), Results: results}
	for _, r := range results {
		integrationsCounter.WithLabelValues(string(r.Outcome)).Inc()
		switch r.Outcome {
		case OutcomeSynced:
			report.Synced++
			report.BucketsWritten += r.Buckets
		case OutcomeEmpty:
			report.Empty++
		case OutcomeSkipped:
			report.Skipped++
		case OutcomeFailed:
			report.Failed++
		}
	}
	bucketsCounter.Add(float64(report.BucketsWritten))
	report.Duration = a.now().Sub(started)
	runDuration.Observe(report.Duration.Seconds())
	lastRunGauge.SetToCurrentTime()

	log.Info("sync finished: total=%d synced=%d empty=%d skipped=%d failed=%d buckets=%d",
		report.Total, report.Synced, report.Empty, report.Skipped, report.Failed, report.BucketsWritten)
	return report, nil
}

func (a *Aggregator) syncOne(ctx context.Context, in models.Integration, start, end time.Time) (res IntegrationResult) {
	log := logger.FromContext(ctx).WithPrefix("aggregator").WithField("integration", in.Path)
	res = IntegrationResult{Path: in.Path, UserID: in.UserID}

	defer func() {
		if rec := recover(); rec != nil {
			log.Error("panic while syncing: %v", rec)
			res.Outcome = OutcomeFailed
			res.Err = apperrors.NewProviderQueryFailure(fmt.Errorf("panic: %v", rec))
		}
	}()

	if in.RefreshToken == "" {
		res.Outcome = OutcomeSkipped
		res.Err = apperrors.NewIntegrationSkipped(in.Path, "missing refresh token")
		log.Warn("%v", res.Err)
		return res
	}
	if in.UserID == "" {
		res.Outcome = OutcomeSkipped
		res.Err = apperrors.NewIntegrationSkipped(in.Path, "unable to resolve user")
		log.Warn("%v", res.Err)
		return res
	}
	log = log.WithField("user_id", in.UserID)

	ctx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	ts := a.fit.TokenSource(ctx, in.RefreshToken, in.AccessToken, in.AccessTokenExpiry)
	buckets, err := a.fit.Aggregate(ctx, ts, start.UnixMilli(), end.UnixMilli())
	if err != nil {
		log.Error("failed to fetch aggregate: %v", err)
		res.Outcome = OutcomeFailed
		res.Err = err
		return res
	}

	a.persistToken(ctx, in, ts)

	days := Days(buckets)
	if len(days) == 0 {
		log.Info("no buckets returned")
		res.Outcome = OutcomeEmpty
		return res
	}

	if err := a.store.WriteAggregatedDays(ctx, in.UserID, models.ProviderGoogleFit, days); err != nil {
		log.Error("failed to write %d days: %v", len(days), err)
		res.Outcome = OutcomeFailed
		res.Err = err
		return res
	}
	log.Debug("wrote %d days", len(days))
	res.Outcome = OutcomeSynced
	res.Buckets = len(days)
	return res
}

// persistToken merges a refreshed access token back into the integration.
func (a *Aggregator) persistToken(ctx context.Context, in models.Integration, ts oauth2.TokenSource) {
	log := logger.FromContext(ctx).WithPrefix("aggregator").WithField("integration", in.Path)

	tok, changed, err := googlefit.Token(ts, in.AccessToken)
	if err != nil || !changed || tok.AccessToken == "" {
		return
	}
	update := stepstore.IntegrationUpdate{Provider: in.Provider, AccessToken: tok.AccessToken}
	if update.Provider == "" {
		update.Provider = models.ProviderGoogleFit
	}
	if !tok.Expiry.IsZero() {
		expiry := tok.Expiry
		update.AccessTokenExpiry = &expiry
	}
	if err := a.store.MergeIntegration(ctx, in.UserID, update); err != nil {
		log.Warn("failed to store refreshed access token: %v", err)
		return
	}
	log.Debug("stored refreshed access token")
}

// Days converts buckets into day counts keyed by the UTC date of each
// bucket start. Buckets without a usable start are dropped.
func Days(buckets []googlefit.Bucket) []stepstore.DayCount {
	days := make([]stepstore.DayCount, 0, len(buckets))
	for _, b := range buckets {
		ms, ok := googlefit.BucketStartMillis(b)
		if !ok {
			continue
		}
		days = append(days, stepstore.DayCount{
			DateID: models.DateID(time.UnixMilli(ms).UTC()),
			Count:  int64(math.Round(googlefit.SumBucketSteps(b))),
		})
	}
	return days
}
