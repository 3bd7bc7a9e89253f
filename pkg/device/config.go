// SPDX-License-Identifier: BSD-3-Clause

package device

import (
	"time"
)

// Kind tags the device variant.
type Kind int

const (
	// KindMotor is a positioner with one continuous coordinate.
	KindMotor Kind = iota
	// KindValve is a binary Open/Closed positioner.
	KindValve
	// KindDummy succeeds instantly and reports its last setpoint.
	KindDummy
)

// String returns the configuration-facing name of the kind.
func (k Kind) String() string {
	switch k {
	case KindMotor:
		return "Motor"
	case KindValve:
		return "Valve"
	case KindDummy:
		return "Device"
	default:
		return "Unknown"
	}
}

// ValveStatus is the discrete readback of a valve.
type ValveStatus int

const (
	// ValveUnknown means the status word could not be read.
	ValveUnknown ValveStatus = iota
	// ValveOpen means the valve reports fully open.
	ValveOpen
	// ValveClosed means the valve reports fully closed.
	ValveClosed
	// ValveMoving means the valve is between positions.
	ValveMoving
)

// String returns the readback name of the valve status.
func (v ValveStatus) String() string {
	switch v {
	case ValveOpen:
		return "Open"
	case ValveClosed:
		return "Closed"
	case ValveMoving:
		return "Moving"
	default:
		return "Unknown"
	}
}

// The implicit target pair of every valve.
const (
	TargetOpen   = "Open"
	TargetClosed = "Closed"
)

// Default poll intervals per kind and the motion detection threshold.
const (
	DefaultMotorPollInterval = 100 * time.Millisecond
	DefaultValvePollInterval = 250 * time.Millisecond
	DefaultTimeout           = 30 * time.Second
	DefaultMotionEpsilon     = 1e-6
)

type config struct {
	key           string
	name          string
	kind          Kind
	pv            string
	tolerance     float64
	timeout       time.Duration
	pollInterval  time.Duration
	motionEpsilon float64
	positions     map[string]float64
	motor         MotorBackend
	valve         ValveBackend
}

// Option configures a Device.
type Option interface {
	apply(*config)
}

type keyOption string

func (o keyOption) apply(c *config) { c.key = string(o) }

// WithKey sets the short key unique within a machine.
func WithKey(key string) Option { return keyOption(key) }

type nameOption string

func (o nameOption) apply(c *config) { c.name = string(o) }

// WithName sets the human-readable device name.
func WithName(name string) Option { return nameOption(name) }

type kindOption Kind

func (o kindOption) apply(c *config) { c.kind = Kind(o) }

// WithKind sets the device variant.
func WithKind(kind Kind) Option { return kindOption(kind) }

type pvOption string

func (o pvOption) apply(c *config) { c.pv = string(o) }

// WithPV sets the underlying channel address (prefix or full name).
func WithPV(pv string) Option { return pvOption(pv) }

type toleranceOption float64

func (o toleranceOption) apply(c *config) { c.tolerance = float64(o) }

// WithTolerance sets the numeric readback tolerance (motors only).
func WithTolerance(tol float64) Option { return toleranceOption(tol) }

type timeoutOption time.Duration

func (o timeoutOption) apply(c *config) { c.timeout = time.Duration(o) }

// WithTimeout sets the per-move timeout.
func WithTimeout(d time.Duration) Option { return timeoutOption(d) }

type pollIntervalOption time.Duration

func (o pollIntervalOption) apply(c *config) { c.pollInterval = time.Duration(o) }

// WithPollInterval overrides the kind's default readback poll interval.
func WithPollInterval(d time.Duration) Option { return pollIntervalOption(d) }

type motionEpsilonOption float64

func (o motionEpsilonOption) apply(c *config) { c.motionEpsilon = float64(o) }

// WithMotionEpsilon overrides the readback delta above which a motor
// counts as moving.
func WithMotionEpsilon(eps float64) Option { return motionEpsilonOption(eps) }

type positionsOption map[string]float64

func (o positionsOption) apply(c *config) {
	if c.positions == nil {
		c.positions = make(map[string]float64, len(o))
	}
	for k, v := range o {
		c.positions[k] = v
	}
}

// WithPositions sets the named target setpoints (motor and dummy only).
func WithPositions(positions map[string]float64) Option { return positionsOption(positions) }

type motorBackendOption struct{ b MotorBackend }

func (o motorBackendOption) apply(c *config) { c.motor = o.b }

// WithMotorBackend sets the backend speaking the motor-record protocol.
func WithMotorBackend(b MotorBackend) Option { return motorBackendOption{b} }

type valveBackendOption struct{ b ValveBackend }

func (o valveBackendOption) apply(c *config) { c.valve = o.b }

// WithValveBackend sets the backend speaking the valve protocol.
func WithValveBackend(b ValveBackend) Option { return valveBackendOption{b} }
