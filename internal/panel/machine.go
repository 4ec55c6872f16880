package panel

import (
	"errors"
	"sync"
	"time"
)

// Status is the lifecycle position of a panel submission.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusSubmitting Status = "submitting"
	StatusSucceeded  Status = "succeeded"
	StatusFailed     Status = "failed"
)

// DefaultSuccessDisplay is how long a success stays visible before the panel
// returns to idle.
const DefaultSuccessDisplay = 3 * time.Second

// ErrBusy is returned when a submission is already in flight.
var ErrBusy = errors.New("submission already in progress")

// Machine serializes submissions of one panel:
// idle → submitting → succeeded | failed. A sticky machine keeps succeeded
// until Reset; otherwise success reverts to idle after the display delay.
type Machine struct {
	mu      sync.Mutex
	status  Status
	errMsg  string
	sticky  bool
	display time.Duration
	timer   *time.Timer
	gen     uint64
}

// NewMachine creates an idle machine.
func NewMachine(display time.Duration, sticky bool) *Machine {
	if display <= 0 {
		display = DefaultSuccessDisplay
	}
	return &Machine{status: StatusIdle, display: display, sticky: sticky}
}

// Begin enters submitting. It clears any previous failure and refuses with
// ErrBusy while a submission is in flight.
func (m *Machine) Begin() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.status == StatusSubmitting {
		return ErrBusy
	}
	m.stopTimer()
	m.status = StatusSubmitting
	m.errMsg = ""
	return nil
}

// Succeed records success. For non-sticky machines onRevert, if set, runs
// after the machine has reverted to idle.
func (m *Machine) Succeed(onRevert func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.status = StatusSucceeded
	m.errMsg = ""
	if m.sticky {
		return
	}

	m.gen++
	gen := m.gen
	m.timer = time.AfterFunc(m.display, func() {
		m.mu.Lock()
		if m.gen != gen || m.status != StatusSucceeded {
			m.mu.Unlock()
			return
		}
		m.status = StatusIdle
		m.timer = nil
		m.mu.Unlock()

		if onRevert != nil {
			onRevert()
		}
	})
}

// Fail records a failed submission.
func (m *Machine) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.status = StatusFailed
	if err != nil {
		m.errMsg = err.Error()
	}
}

// Reset returns to idle unless a submission is in flight.
func (m *Machine) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.status == StatusSubmitting {
		return ErrBusy
	}
	m.stopTimer()
	m.status = StatusIdle
	m.errMsg = ""
	return nil
}

// Status returns the current status.
func (m *Machine) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Err returns the message of the last failure, empty otherwise.
func (m *Machine) Err() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errMsg
}

func (m *Machine) stopTimer() {
	m.gen++
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}
