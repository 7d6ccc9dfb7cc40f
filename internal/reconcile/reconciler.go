// Package reconcile decides, per calendar day, whether the device serves
// its local step cache, re-reads the health platform, or tells the user
// what is blocking the read. Confirmed counts are pushed to the shared
// store; the local cache stays the source of truth when that push fails.
package reconcile

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	apperrors "github.com/vytor/stepple/internal/errors"
	"github.com/vytor/stepple/internal/health"
	"github.com/vytor/stepple/internal/logger"
	"github.com/vytor/stepple/internal/models"
	"github.com/vytor/stepple/internal/repository"
)

// DefaultBackfillDays is the trailing window checked after a refresh.
const DefaultBackfillDays = 30

// RemoteStore is the shared document store as seen from the device.
type RemoteStore interface {
	PutDeviceSteps(ctx context.Context, userID, dateID string, count int64) error
	UpsertProfileIdentity(ctx context.Context, userID, name string) error
}

// Options controls a single resolution.
type Options struct {
	// ForceRefetch re-reads the platform even when the day is cached.
	ForceRefetch bool
	// SkipDisplay leaves the displayed state untouched.
	SkipDisplay bool
}

// Outcome is how a resolution ended.
type Outcome int

const (
	OutcomeCached Outcome = iota
	OutcomeFetched
	OutcomeNeedsPermission
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCached:
		return "cached"
	case OutcomeFetched:
		return "fetched"
	case OutcomeNeedsPermission:
		return "needs-permission"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result describes one resolved day. Count is valid when HasCount is set;
// on failure it holds the untouched cached value, if any.
type Result struct {
	DateID       string
	Outcome      Outcome
	Count        int64
	HasCount     bool
	RemoteSynced bool
	Message      string
	Err          error
}

// Action is what Decide chose for a day.
type Action int

const (
	ActionServeCache Action = iota
	ActionNeedsPermission
	ActionFetch
)

// Decide is the cache policy. A cached past day is immutable unless a
// refetch is forced; today is always re-read.
func Decide(cached, isToday, force, granted bool) Action {
	if cached && !isToday && !force {
		return ActionServeCache
	}
	if !granted {
		return ActionNeedsPermission
	}
	return ActionFetch
}

// Reconciler owns the device-side sync state.
type Reconciler struct {
	platform health.Platform
	cache    repository.StepCacheRepository
	settings repository.SettingsRepository
	remote   RemoteStore

	now          func() time.Time
	loc          *time.Location
	limiter      *rate.Limiter
	backfillDays int
	newUserID    func(time.Time) string

	flight singleflight.Group
	idMu   sync.Mutex

	mu    sync.Mutex
	state State
}

// Option configures a Reconciler.
type Option func(*Reconciler)

func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) { r.now = now }
}

// WithLocation sets the timezone that defines calendar days.
func WithLocation(loc *time.Location) Option {
	return func(r *Reconciler) { r.loc = loc }
}

// WithBackfillRate paces backfill provider reads to perSecond. A
// non-positive rate disables pacing.
func WithBackfillRate(perSecond float64) Option {
	return func(r *Reconciler) {
		if perSecond <= 0 {
			r.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		r.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

func WithBackfillDays(days int) Option {
	return func(r *Reconciler) {
		if days > 0 {
			r.backfillDays = days
		}
	}
}

// WithUserIDGenerator overrides NewUserID.
func WithUserIDGenerator(fn func(time.Time) string) Option {
	return func(r *Reconciler) { r.newUserID = fn }
}

// New creates a Reconciler whose current date is today.
func New(platform health.Platform, cache repository.StepCacheRepository, settings repository.SettingsRepository, remote RemoteStore, opts ...Option) *Reconciler {
	r := &Reconciler{
		platform:     platform,
		cache:        cache,
		settings:     settings,
		remote:       remote,
		now:          time.Now,
		loc:          time.Local,
		limiter:      rate.NewLimiter(rate.Limit(5), 1),
		backfillDays: DefaultBackfillDays,
		newUserID:    NewUserID,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.state = State{
		CurrentDate:  models.StartOfDay(r.today()),
		Supported:    platform.Supported(),
		Availability: health.StatusUnknown,
	}
	return r
}

// State returns the current snapshot.
func (r *Reconciler) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Reconciler) update(fn func(State) State) State {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = fn(r.state)
	return r.state
}

func (r *Reconciler) today() time.Time {
	return r.now().In(r.loc)
}

type fetched struct {
	count  int64
	synced bool
}

// ResolveStepsForDay returns the step count for date's calendar day. It
// never fails on provider or storage errors: those end as OutcomeFailed
// with a user message. A day after today is never read or cached. The
// error is non-nil only when ctx is done.
func (r *Reconciler) ResolveStepsForDay(ctx context.Context, date time.Time, opts Options) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	date = models.StartOfDay(date.In(r.loc))
	dateID := models.DateID(date)
	log := logger.FromContext(ctx).WithPrefix("reconcile").WithField("date", dateID)

	today := r.today()
	if date.After(today) {
		log.Debug("refusing to resolve a future day")
		return Result{
			DateID:  dateID,
			Outcome: OutcomeFailed,
			Message: MsgFutureDate,
			Err:     apperrors.NewInvalidArgumentError(MsgFutureDate),
		}, nil
	}

	cached, ok, err := r.cache.Get(ctx, dateID)
	if err != nil {
		log.Warn("cache lookup failed, treating as miss: %v", err)
		ok = false
	}

	st, err := r.capability(ctx)
	if err != nil {
		return Result{}, err
	}

	res := Result{DateID: dateID, Count: cached, HasCount: ok}
	switch Decide(ok, models.SameDay(date, today), opts.ForceRefetch, st.Ready()) {
	case ActionServeCache:
		log.Debug("serving cached count %d", cached)
		res.Outcome = OutcomeCached

	case ActionNeedsPermission:
		log.Debug("platform not ready (%s, granted=%t)", st.Availability, st.Granted)
		res.Outcome = OutcomeNeedsPermission
		res.Message = CapabilityMessage(st.Supported, st.Availability, st.Granted)
		if res.Message == "" {
			res.Message = MsgEnablePermission
		}

	case ActionFetch:
		v, err, shared := r.flight.Do(dateID, func() (interface{}, error) {
			return r.fetchAndPersist(ctx, date, dateID)
		})
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return Result{}, ctxErr
			}
			log.Error("failed to resolve steps: %v", err)
			res.Outcome = OutcomeFailed
			res.Message = MsgReadFailed
			res.Err = err
			break
		}
		f := v.(fetched)
		if shared {
			log.Debug("joined in-flight read")
		}
		res.Outcome = OutcomeFetched
		res.Count, res.HasCount = f.count, true
		res.RemoteSynced = f.synced
	}

	if !opts.SkipDisplay {
		r.display(date, res)
	}
	return res, nil
}

func (r *Reconciler) display(date time.Time, res Result) {
	r.update(func(s State) State {
		if !models.SameDay(s.CurrentDate, date) {
			return s
		}
		if res.HasCount && res.Outcome != OutcomeFailed {
			return s.WithSteps(res.Count)
		}
		return s.WithMessage(res.Message)
	})
}

// fetchAndPersist reads the day window, writes the cache and then pushes
// the record. Only platform and cache failures are returned; the remote
// push is best effort.
func (r *Reconciler) fetchAndPersist(ctx context.Context, date time.Time, dateID string) (fetched, error) {
	log := logger.FromContext(ctx).WithPrefix("reconcile").WithField("date", dateID)

	start, end := models.DayWindowMillis(date)
	count, err := r.platform.ReadStepTotal(ctx, start, end)
	if err != nil {
		return fetched{}, err
	}
	if count < 0 {
		return fetched{}, apperrors.NewInternalErrorMessage("platform returned a negative step count", nil)
	}
	if err := r.cache.Put(ctx, dateID, count); err != nil {
		return fetched{}, err
	}
	log.Info("read %d steps", count)

	uid, err := r.EnsureUserID(ctx)
	if err != nil {
		log.Warn("no user id, skipping remote push: %v", err)
		return fetched{count: count}, nil
	}
	if err := r.remote.PutDeviceSteps(ctx, uid, dateID, count); err != nil {
		log.Warn("%v", apperrors.NewRemoteWriteFailure("users/"+uid+"/steps/"+dateID, err))
		return fetched{count: count}, nil
	}
	return fetched{count: count, synced: true}, nil
}

// capability returns the state, querying the platform the first time.
func (r *Reconciler) capability(ctx context.Context) (State, error) {
	st := r.State()
	if st.Checked {
		return st, nil
	}
	return r.queryCapability(ctx)
}

// queryCapability queries availability and permission and records them in the state.
func (r *Reconciler) queryCapability(ctx context.Context) (State, error) {
	log := logger.FromContext(ctx).WithPrefix("reconcile")

	if !r.platform.Supported() {
		return r.update(func(s State) State {
			return s.WithCapability(false, health.StatusUnknown, false)
		}), nil
	}

	status, err := r.platform.Availability(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return State{}, ctxErr
		}
		log.Error("availability check failed: %v", err)
		return r.update(func(s State) State {
			return s.WithCapability(true, health.StatusUnknown, false).WithMessage(MsgReadFailed)
		}), nil
	}

	granted := false
	if status == health.Available {
		granted, err = r.platform.HasPermission(ctx)
		if err != nil {
			log.Error("permission check failed: %v", err)
			granted = false
		}
	}
	log.Debug("capability: %s granted=%t", status, granted)
	return r.update(func(s State) State {
		return s.WithCapability(true, status, granted)
	}), nil
}
