package health

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/vytor/stepple/internal/errors"
	"github.com/vytor/stepple/internal/logger"
)

// Records is a Platform backed by step samples stored in SQLite. A sample
// counts toward the day window containing its start time, so a sample
// straddling midnight is never attributed to two days.
type Records struct {
	db          *sql.DB
	interactive bool
	consent     func(ctx context.Context) bool
	log         *logger.Logger
}

var _ Platform = (*Records)(nil)

var sqlBuilder = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question)

// stateRow selects the single health_state row.
var stateRow = squirrel.Eq{"id": 1}

// RecordsOption configures Records.
type RecordsOption func(*Records)

// WithInteractive marks the binding as attached to a foreground UI
// context, which RequestPermission and OpenSettings require.
func WithInteractive(enabled bool) RecordsOption {
	return func(r *Records) {
		r.interactive = enabled
	}
}

// WithConsent sets the consent prompt. The default approves.
func WithConsent(fn func(ctx context.Context) bool) RecordsOption {
	return func(r *Records) {
		r.consent = fn
	}
}

// NewRecords creates a Records binding on db.
func NewRecords(db *sql.DB, opts ...RecordsOption) *Records {
	r := &Records{
		db:      db,
		consent: func(context.Context) bool { return true },
		log:     logger.Default().WithPrefix("health"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Records) Supported() bool { return true }

func (r *Records) Availability(ctx context.Context) (Availability, error) {
	query, args, err := sqlBuilder.Select("sdk_status").From("health_state").Where(stateRow).ToSql()
	if err != nil {
		return StatusUnknown, err
	}
	var status int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&status); err != nil {
		return StatusUnknown, fmt.Errorf("read sdk status: %w", err)
	}
	return Availability(status), nil
}

func (r *Records) HasPermission(ctx context.Context) (bool, error) {
	status, err := r.Availability(ctx)
	if err != nil {
		return false, err
	}
	if status != Available {
		return false, nil
	}
	query, args, err := sqlBuilder.Select("granted").From("health_state").Where(stateRow).ToSql()
	if err != nil {
		return false, err
	}
	var granted bool
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&granted); err != nil {
		return false, fmt.Errorf("read grant: %w", err)
	}
	return granted, nil
}

func (r *Records) RequestPermission(ctx context.Context) (bool, error) {
	if !r.interactive {
		return false, errors.NewNoActiveContextError("request permissions")
	}
	status, err := r.Availability(ctx)
	if err != nil {
		return false, err
	}
	if status != Available {
		return false, errors.NewPlatformUnavailableError(status.String(), fmt.Sprintf("Health Connect SDK unavailable: %d", int(status)))
	}

	granted, err := r.HasPermission(ctx)
	if err != nil || granted {
		return granted, err
	}

	granted = r.consent(ctx)
	if err := r.SetGranted(ctx, granted); err != nil {
		return false, err
	}
	r.log.Info("permission request finished: granted=%t", granted)
	return granted, nil
}

func (r *Records) ReadStepTotal(ctx context.Context, startMillis, endMillis int64) (int64, error) {
	status, err := r.Availability(ctx)
	if err != nil {
		return 0, err
	}
	if status != Available {
		return 0, errors.NewPlatformUnavailableError(status.String(), "Health Connect client unavailable.")
	}

	query, args, err := sqlBuilder.Select("COALESCE(SUM(count), 0)").From("step_samples").
		Where(squirrel.GtOrEq{"start_ms": startMillis}).
		Where(squirrel.LtOrEq{"start_ms": endMillis}).
		ToSql()
	if err != nil {
		return 0, err
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("read steps: %w", err)
	}
	r.log.Debug("read steps %d -> %d total=%d", startMillis, endMillis, total)
	return total, nil
}

func (r *Records) OpenSettings(ctx context.Context) error {
	if !r.interactive {
		return errors.NewNoActiveContextError("open settings")
	}
	r.log.Info("opening Health Connect settings")
	return nil
}

// AddSample records a step sample.
func (r *Records) AddSample(ctx context.Context, start, end time.Time, count int64, origin string) error {
	if end.Before(start) {
		return fmt.Errorf("sample end %s before start %s", end, start)
	}
	query, args, err := sqlBuilder.Insert("step_samples").
		Columns("start_ms", "end_ms", "count", "origin").
		Values(start.UnixMilli(), end.UnixMilli(), count, origin).
		ToSql()
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, query, args...)
	return err
}

// SetStatus sets the reported SDK status.
func (r *Records) SetStatus(ctx context.Context, status Availability) error {
	return r.updateState(ctx, "sdk_status", int(status))
}

// SetGranted sets the stored permission grant.
func (r *Records) SetGranted(ctx context.Context, granted bool) error {
	return r.updateState(ctx, "granted", granted)
}

func (r *Records) updateState(ctx context.Context, column string, value interface{}) error {
	query, args, err := sqlBuilder.Update("health_state").Set(column, value).Where(stateRow).ToSql()
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, query, args...)
	return err
}
