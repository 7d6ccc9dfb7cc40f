package reconcile

import (
	"context"
	"encoding/binary"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/vytor/stepple/internal/errors"
	"github.com/vytor/stepple/internal/logger"
	"github.com/vytor/stepple/internal/repository"
)

// suffixSpace is 36^8, the number of 8-character base36 suffixes.
const suffixSpace = 2821109907456

// NewUserID returns "<base36 unix millis>-<8 base36 chars>", the suffix
// drawn from the random bytes of a v4 UUID.
func NewUserID(now time.Time) string {
	u := uuid.New()
	var buf [8]byte
	copy(buf[2:], u[:6])
	n := binary.BigEndian.Uint64(buf[:]) % suffixSpace
	suffix := strconv.FormatUint(n, 36)
	if len(suffix) < 8 {
		suffix = strings.Repeat("0", 8-len(suffix)) + suffix
	}
	return strconv.FormatInt(now.UnixMilli(), 36) + "-" + suffix
}

// EnsureUserID returns the persisted user id, creating it on first use.
// Concurrent first calls agree on one id.
func (r *Reconciler) EnsureUserID(ctx context.Context) (string, error) {
	if id := r.State().UserID; id != "" {
		return id, nil
	}
	r.idMu.Lock()
	defer r.idMu.Unlock()
	if id := r.State().UserID; id != "" {
		return id, nil
	}
	id, ok, err := r.settings.Get(ctx, repository.SettingUserID)
	if err != nil {
		return "", err
	}
	if !ok || id == "" {
		id = r.newUserID(r.now())
		if err := r.settings.Set(ctx, repository.SettingUserID, id); err != nil {
			return "", err
		}
		logger.FromContext(ctx).WithPrefix("reconcile").Info("created user id %s", id)
	}
	r.update(func(s State) State { return s.WithUser(id, s.UserName) })
	return id, nil
}

// SetUserName stores the display name locally and pushes it with the
// profile identity. The remote write is best effort.
func (r *Reconciler) SetUserName(ctx context.Context, name string) (State, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return r.State(), apperrors.NewInvalidArgumentError("name must not be empty")
	}
	if err := r.settings.Set(ctx, repository.SettingUserName, name); err != nil {
		return r.State(), err
	}
	uid, err := r.EnsureUserID(ctx)
	if err != nil {
		return r.State(), err
	}
	st := r.update(func(s State) State { return s.WithUser(uid, name) })
	r.pushIdentity(ctx, uid, name)
	return st, nil
}

func (r *Reconciler) pushIdentity(ctx context.Context, uid, name string) {
	if err := r.remote.UpsertProfileIdentity(ctx, uid, name); err != nil {
		logger.FromContext(ctx).WithPrefix("reconcile").Warn("%v", apperrors.NewRemoteWriteFailure("users/"+uid, err))
	}
}
