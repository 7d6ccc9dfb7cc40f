// Package health abstracts the device health platform (Health Connect) as a
// permission-gated capability. Callers branch on the reported Availability,
// never on which implementation they hold.
package health

import (
	"context"
	"fmt"
)

// Availability mirrors the Health Connect SDK status codes. Codes outside
// the known set are preserved as-is.
type Availability int

const (
	StatusUnknown     Availability = -1
	Available         Availability = 0
	Unavailable       Availability = 1
	NeedsUpdate       Availability = 2
	UnsupportedDevice Availability = 3
)

func (a Availability) String() string {
	switch a {
	case Available:
		return "available"
	case Unavailable:
		return "unavailable"
	case NeedsUpdate:
		return "needs-update"
	case UnsupportedDevice:
		return "unsupported-device"
	default:
		return fmt.Sprintf("unknown-code(%d)", int(a))
	}
}

// Known reports whether a is one of the enumerated SDK states.
func (a Availability) Known() bool {
	return a >= Available && a <= UnsupportedDevice
}

// Platform is the health data capability consumed by the reconciler.
type Platform interface {
	// Supported is false for the no-op binding used on platforms without a
	// health SDK.
	Supported() bool
	Availability(ctx context.Context) (Availability, error)
	HasPermission(ctx context.Context) (bool, error)
	// RequestPermission runs the consent flow and reports the final grant.
	RequestPermission(ctx context.Context) (bool, error)
	// ReadStepTotal sums steps recorded in [startMillis, endMillis].
	ReadStepTotal(ctx context.Context, startMillis, endMillis int64) (int64, error)
	OpenSettings(ctx context.Context) error
}

// Unsupported is the no-op binding.
type Unsupported struct{}

var _ Platform = Unsupported{}

func (Unsupported) Supported() bool { return false }

func (Unsupported) Availability(context.Context) (Availability, error) { return StatusUnknown, nil }

func (Unsupported) HasPermission(context.Context) (bool, error) { return false, nil }

func (Unsupported) RequestPermission(context.Context) (bool, error) { return false, nil }

func (Unsupported) ReadStepTotal(context.Context, int64, int64) (int64, error) { return 0, nil }

func (Unsupported) OpenSettings(context.Context) error { return nil }
