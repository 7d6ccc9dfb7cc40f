package reconcile

import (
	"time"

	"github.com/vytor/stepple/internal/health"
)

// State is a snapshot of what the device shows. It is a value: every
// operation returns a fresh copy and the With helpers never mutate the
// receiver.
type State struct {
	CurrentDate  time.Time
	Supported    bool
	Availability health.Availability
	// Checked is false until the capability has been queried once.
	Checked  bool
	Granted  bool
	Steps    int64
	HasSteps bool
	Message  string
	UserID   string
	UserName string
}

// Ready reports whether steps can be read.
func (s State) Ready() bool {
	return s.Supported && s.Availability == health.Available && s.Granted
}

func (s State) WithCurrentDate(d time.Time) State {
	s.CurrentDate = d
	s.HasSteps = false
	s.Steps = 0
	return s
}

func (s State) WithCapability(supported bool, status health.Availability, granted bool) State {
	s.Supported = supported
	s.Availability = status
	s.Granted = granted
	s.Checked = true
	s.Message = CapabilityMessage(supported, status, granted)
	return s
}

func (s State) WithSteps(count int64) State {
	s.Steps = count
	s.HasSteps = true
	s.Message = ""
	return s
}

func (s State) WithMessage(msg string) State {
	s.Message = msg
	return s
}

func (s State) WithUser(id, name string) State {
	s.UserID = id
	s.UserName = name
	return s
}
