// SPDX-License-Identifier: BSD-3-Clause

package machine

// Status is the machine's published status word.
type Status int

const (
	// StatusIdle means held in a state with every bound device inside
	// its window.
	StatusIdle Status = iota
	// StatusBusy means the transition executor is active.
	StatusBusy
	// StatusDisabled means the machine is not the active one.
	StatusDisabled
	// StatusFault means a device failure or window violation occurred;
	// the machine sits in its initial state until a fresh Go.
	StatusFault
)

// String returns the value published on Status-Sts.
func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "Idle"
	case StatusBusy:
		return "Busy"
	case StatusDisabled:
		return "Disabled"
	case StatusFault:
		return "FAULT"
	default:
		return "Unknown"
	}
}

// Reason classifies why a device failed a transition or the held-state
// check.
type Reason int

const (
	// ReasonTimeout means the idle timer expired before the device
	// settled.
	ReasonTimeout Reason = iota
	// ReasonMissedTarget means motion finished outside the target
	// window.
	ReasonMissedTarget
	// ReasonDisconnected means the underlying channels went away.
	ReasonDisconnected
	// ReasonNotHomed means the motor controller reports an unhomed axis.
	ReasonNotHomed
	// ReasonOutOfWindow means a held device drifted outside its window.
	ReasonOutOfWindow
	// ReasonAborted means the operator aborted the transition.
	ReasonAborted
)

// String returns the operator-facing reason name.
func (r Reason) String() string {
	switch r {
	case ReasonTimeout:
		return "TIMEOUT"
	case ReasonMissedTarget:
		return "MISSED_TARGET"
	case ReasonDisconnected:
		return "DISCONNECTED"
	case ReasonNotHomed:
		return "NOT_HOMED"
	case ReasonOutOfWindow:
		return "OUT_OF_WINDOW"
	case ReasonAborted:
		return "ABORTED"
	default:
		return "UNKNOWN"
	}
}
