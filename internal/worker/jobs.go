package worker

import (
	"context"

	"github.com/vytor/stepple/internal/aggregator"
	"github.com/vytor/stepple/internal/logger"
)

// Syncer runs one aggregator pass.
type Syncer interface {
	SyncAllIntegrations(ctx context.Context) (aggregator.Report, error)
}

// SyncIntegrationsJob runs one pass over every linked integration.
type SyncIntegrationsJob struct {
	Syncer Syncer
	// Reason is logged with the run, e.g. "schedule" or "admin".
	Reason string
}

func (j *SyncIntegrationsJob) Name() string { return "sync_integrations" }

func (j *SyncIntegrationsJob) Run(ctx context.Context) error {
	log := logger.FromContext(ctx).WithField("reason", j.Reason)
	log.Info("starting integration sync")

	report, err := j.Syncer.SyncAllIntegrations(ctx)
	if err != nil {
		return err
	}
	log.Info("integration sync done: synced=%d failed=%d skipped=%d", report.Synced, report.Failed, report.Skipped)
	return nil
}
