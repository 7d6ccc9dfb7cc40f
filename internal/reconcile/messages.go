package reconcile

import (
	"fmt"

	"github.com/vytor/stepple/internal/health"
)

// User-facing messages.
const (
	MsgEnablePermission  = "Enable Health Connect from the Settings tab to sync your steps."
	MsgNeedsUpdate       = "Install or update the Health Connect app from Google Play to sync your steps."
	MsgUnavailable       = "Health Connect is unavailable right now. Update the Health Connect app and try again."
	MsgUnsupportedDevice = "Turn on \"Allow access to Health Connect data\" in the Health Connect app so Stepple can sync your steps."
	MsgUnsupportedOS     = "Health Connect is only available on Android devices."
	MsgReadFailed        = "Unable to read data from Health Connect."
	MsgFutureDate        = "Steps are not available for future dates."
)

// CapabilityMessage returns the message shown for a capability state, or
// "" when the platform is ready.
func CapabilityMessage(supported bool, status health.Availability, granted bool) string {
	if !supported {
		return MsgUnsupportedOS
	}
	switch status {
	case health.Available:
		if granted {
			return ""
		}
		return MsgEnablePermission
	case health.NeedsUpdate:
		return MsgNeedsUpdate
	case health.Unavailable:
		return MsgUnavailable
	case health.UnsupportedDevice:
		return MsgUnsupportedDevice
	default:
		return fmt.Sprintf("Health Connect returned status code %d.", int(status))
	}
}
