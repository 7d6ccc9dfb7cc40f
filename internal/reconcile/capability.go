package reconcile

import (
	"context"

	apperrors "github.com/vytor/stepple/internal/errors"
	"github.com/vytor/stepple/internal/logger"
	"github.com/vytor/stepple/internal/models"
	"github.com/vytor/stepple/internal/repository"
)

// RefreshCapabilityState re-queries the platform. When it ends ready, the
// user id is ensured, the stored profile name is pushed, today is re-read
// and the trailing window is backfilled. Called on start, on foreground and
// after a permission round trip.
func (r *Reconciler) RefreshCapabilityState(ctx context.Context) (State, error) {
	log := logger.FromContext(ctx).WithPrefix("reconcile")

	st, err := r.queryCapability(ctx)
	if err != nil {
		return State{}, err
	}
	if !st.Ready() {
		log.Info("health platform not ready: %s", st.Availability)
		return st, nil
	}

	uid, err := r.EnsureUserID(ctx)
	if err != nil {
		log.Warn("failed to ensure user id: %v", err)
	}
	name, ok, err := r.settings.Get(ctx, repository.SettingUserName)
	if err != nil {
		log.Warn("failed to load user name: %v", err)
	}
	if ok && name != "" {
		r.update(func(s State) State { return s.WithUser(s.UserID, name) })
		if uid != "" {
			r.pushIdentity(ctx, uid, name)
		}
	}

	today := r.today()
	current := r.State().CurrentDate
	onToday := models.SameDay(current, today)
	if _, err := r.ResolveStepsForDay(ctx, today, Options{ForceRefetch: true, SkipDisplay: !onToday}); err != nil {
		return r.State(), err
	}
	if !onToday {
		if _, err := r.ResolveStepsForDay(ctx, current, Options{}); err != nil {
			return r.State(), err
		}
	}
	if _, err := r.BackfillTrailingWindow(ctx, r.backfillDays); err != nil {
		return r.State(), err
	}
	return r.State(), nil
}

// RequestPermission runs the platform consent flow and then refreshes.
// Without an interactive context the platform error is returned as is.
func (r *Reconciler) RequestPermission(ctx context.Context) (State, error) {
	log := logger.FromContext(ctx).WithPrefix("reconcile")
	if !r.platform.Supported() {
		return r.update(func(s State) State { return s.WithMessage(MsgUnsupportedOS) }), nil
	}
	granted, err := r.platform.RequestPermission(ctx)
	if err != nil {
		if apperrors.IsCode(err, apperrors.ErrCodeNoActiveContext) {
			return r.State(), err
		}
		log.Error("permission request failed: %v", err)
	}
	log.Info("permission request finished: granted=%t", granted)
	return r.RefreshCapabilityState(ctx)
}

// OpenSettings opens the platform's permission settings.
func (r *Reconciler) OpenSettings(ctx context.Context) error {
	return r.platform.OpenSettings(ctx)
}
