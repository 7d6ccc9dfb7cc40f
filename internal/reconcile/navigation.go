package reconcile

import (
	"context"
	"time"

	"github.com/vytor/stepple/internal/models"
)

const displayDateLayout = "Jan 2, 2006"

// FormatDate labels date relative to now.
func FormatDate(date, now time.Time) string {
	date = date.In(now.Location())
	label := date.Format(displayDateLayout)
	switch {
	case models.SameDay(now, date):
		return "Today, " + label
	case models.SameDay(now.AddDate(0, 0, -1), date):
		return "Yesterday, " + label
	default:
		return label
	}
}

// PreviousDay moves the displayed date back one calendar day and resolves it.
func (r *Reconciler) PreviousDay(ctx context.Context) (State, error) {
	return r.moveTo(ctx, r.State().CurrentDate.AddDate(0, 0, -1))
}

// NextDay moves the displayed date forward, never past today.
func (r *Reconciler) NextDay(ctx context.Context) (State, error) {
	current := r.State().CurrentDate
	if models.SameDay(current, r.today()) {
		return r.State(), nil
	}
	return r.moveTo(ctx, current.AddDate(0, 0, 1))
}

// ShowDate makes date the displayed date and resolves it. A future date
// shows today.
func (r *Reconciler) ShowDate(ctx context.Context, date time.Time) (State, error) {
	return r.moveTo(ctx, date)
}

func (r *Reconciler) moveTo(ctx context.Context, date time.Time) (State, error) {
	date = models.StartOfDay(date.In(r.loc))
	if today := models.StartOfDay(r.today()); date.After(today) {
		date = today
	}
	r.update(func(s State) State { return s.WithCurrentDate(date) })
	if _, err := r.ResolveStepsForDay(ctx, date, Options{}); err != nil {
		return r.State(), err
	}
	return r.State(), nil
}
