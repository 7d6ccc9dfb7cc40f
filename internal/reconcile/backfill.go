package reconcile

import (
	"context"

	"github.com/vytor/stepple/internal/logger"
	"github.com/vytor/stepple/internal/models"
)

// BackfillReport summarizes one backfill pass.
type BackfillReport struct {
	Checked int
	Fetched int
	Skipped int
	Failed  int
}

// BackfillTrailingWindow fetches every day in the last windowDays days,
// excluding today, that has no cache entry. Reads run one at a time, paced
// by the backfill limiter. Running it twice in a row is a no-op the second
// time. A non-positive windowDays uses the configured default.
func (r *Reconciler) BackfillTrailingWindow(ctx context.Context, windowDays int) (BackfillReport, error) {
	if windowDays <= 0 {
		windowDays = r.backfillDays
	}
	log := logger.FromContext(ctx).WithPrefix("backfill")

	today := models.StartOfDay(r.today())
	ids := make([]string, 0, windowDays)
	for i := 1; i <= windowDays; i++ {
		ids = append(ids, models.DateID(today.AddDate(0, 0, -i)))
	}

	report := BackfillReport{Checked: len(ids)}
	missing, err := r.cache.Missing(ctx, ids)
	if err != nil {
		log.Error("failed to list missing days: %v", err)
		return report, err
	}
	report.Skipped = len(ids) - len(missing)
	log.Debug("%d of %d days missing", len(missing), len(ids))

	for i, id := range missing {
		if err := r.limiter.Wait(ctx); err != nil {
			report.Skipped += len(missing) - i
			return report, err
		}
		day, err := models.ParseDateID(id, r.loc)
		if err != nil {
			report.Failed++
			continue
		}
		res, err := r.ResolveStepsForDay(ctx, day, Options{ForceRefetch: true, SkipDisplay: true})
		if err != nil {
			report.Skipped += len(missing) - i
			return report, err
		}
		switch res.Outcome {
		case OutcomeFetched:
			report.Fetched++
		case OutcomeFailed:
			report.Failed++
		case OutcomeNeedsPermission:
			// Nothing after this can succeed either.
			report.Skipped += len(missing) - i
			log.Warn("stopping backfill: platform not ready")
			return report, nil
		default:
			report.Skipped++
		}
	}

	log.Info("backfill done: checked=%d fetched=%d skipped=%d failed=%d",
		report.Checked, report.Fetched, report.Skipped, report.Failed)
	return report, nil
}
