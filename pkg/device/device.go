// SPDX-License-Identifier: BSD-3-Clause

package device

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"
)

// snapshot is the last polled view of a device. Everything outside the
// poll loop reads this under the mutex and never blocks on the backend.
type snapshot struct {
	connected bool
	homed     bool
	moving    bool
	pos       float64
	valve     ValveStatus
	limLo     float64
	limHi     float64
	limOK     bool
}

// Device is one positioner with a uniform capability set. Dispatch is by
// the kind tag; see the package documentation for the variant semantics.
type Device struct {
	cfg config

	mu      sync.RWMutex
	targets map[string]float64
	snap    snapshot
	prevPos float64
	hasPrev bool
}

// New creates a device from the provided options.
func New(opts ...Option) (*Device, error) {
	cfg := config{
		kind:          KindDummy,
		timeout:       DefaultTimeout,
		motionEpsilon: DefaultMotionEpsilon,
	}
	for _, opt := range opts {
		opt.apply(&cfg)
	}

	if cfg.key == "" {
		return nil, fmt.Errorf("%w: key must not be empty", ErrInvalidConfig)
	}
	if cfg.pollInterval <= 0 {
		switch cfg.kind {
		case KindValve:
			cfg.pollInterval = DefaultValvePollInterval
		default:
			cfg.pollInterval = DefaultMotorPollInterval
		}
	}

	switch cfg.kind {
	case KindMotor:
		if cfg.motor == nil {
			return nil, fmt.Errorf("%w: motor %q", ErrNoBackend, cfg.key)
		}
		if cfg.tolerance < 0 {
			return nil, fmt.Errorf("%w: motor %q has negative tolerance", ErrInvalidConfig, cfg.key)
		}
	case KindValve:
		if cfg.valve == nil {
			return nil, fmt.Errorf("%w: valve %q", ErrNoBackend, cfg.key)
		}
		if len(cfg.positions) > 0 {
			return nil, fmt.Errorf("%w: valve %q must not define positions", ErrInvalidConfig, cfg.key)
		}
	case KindDummy:
	default:
		return nil, fmt.Errorf("%w: unknown kind %d", ErrInvalidConfig, cfg.kind)
	}

	d := &Device{
		cfg:     cfg,
		targets: make(map[string]float64, len(cfg.positions)),
	}
	for name, v := range cfg.positions {
		d.targets[name] = v
	}

	// Dummies report their last setpoint and are always healthy.
	if cfg.kind == KindDummy {
		d.snap = snapshot{connected: true, homed: true}
	}

	return d, nil
}

// Key returns the short key unique within a machine.
func (d *Device) Key() string { return d.cfg.key }

// Name returns the human-readable device name.
func (d *Device) Name() string { return d.cfg.name }

// Kind returns the device variant tag.
func (d *Device) Kind() Kind { return d.cfg.kind }

// PV returns the underlying channel address.
func (d *Device) PV() string { return d.cfg.pv }

// Timeout returns the configured per-move timeout.
func (d *Device) Timeout() time.Duration { return d.cfg.timeout }

// PollInterval returns the readback poll interval.
func (d *Device) PollInterval() time.Duration { return d.cfg.pollInterval }

// Tolerance returns the readback tolerance (zero for valves and dummies).
func (d *Device) Tolerance() float64 { return d.cfg.tolerance }

// Run polls the backend until the context is canceled. Every device has
// exactly one poll task; all capability methods read the snapshot it
// maintains.
func (d *Device) Run(ctx context.Context) error {
	if d.cfg.kind == KindDummy {
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(d.cfg.pollInterval)
	defer ticker.Stop()

	d.poll()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			d.poll()
		}
	}
}

func (d *Device) poll() {
	switch d.cfg.kind {
	case KindMotor:
		var snap snapshot
		snap.connected = d.cfg.motor.Connected()
		if snap.connected {
			snap.homed = d.cfg.motor.Homed()
			snap.limLo, snap.limHi, snap.limOK = d.cfg.motor.Limits()
			if pos, err := d.cfg.motor.Position(); err == nil {
				snap.pos = pos
			} else {
				snap.connected = false
			}
		}

		d.mu.Lock()
		if snap.connected && d.hasPrev {
			snap.moving = math.Abs(snap.pos-d.prevPos) > d.cfg.motionEpsilon
		}
		d.prevPos = snap.pos
		d.hasPrev = snap.connected
		d.snap = snap
		d.mu.Unlock()

	case KindValve:
		var snap snapshot
		snap.connected = d.cfg.valve.Connected()
		snap.homed = true
		if snap.connected {
			snap.valve = d.cfg.valve.Status()
			snap.moving = snap.valve == ValveMoving
		} else {
			snap.valve = ValveUnknown
		}

		d.mu.Lock()
		d.snap = snap
		d.mu.Unlock()
	}
}

// Connected reports whether all underlying channels are live.
func (d *Device) Connected() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.snap.connected
}

// Homed reports whether the axis is homed. Valves and dummies are always
// homed.
func (d *Device) Homed() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.snap.homed
}

// Moving reports motion derived from consecutive readback samples
// (motors) or the valve status word.
func (d *Device) Moving() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.snap.moving
}

// Readback returns the current numeric position. For valves it encodes
// the discrete status (1 open, 0 closed); use ValveState for the
// discrete view.
func (d *Device) Readback() float64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.cfg.kind == KindValve {
		if d.snap.valve == ValveOpen {
			return 1
		}
		return 0
	}
	return d.snap.pos
}

// ReadbackString returns the operator-facing readback representation.
func (d *Device) ReadbackString() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.cfg.kind == KindValve {
		return d.snap.valve.String()
	}
	return formatFloat(d.snap.pos)
}

// ValveState returns the discrete valve readback. Non-valves report
// ValveUnknown.
func (d *Device) ValveState() ValveStatus {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.cfg.kind != KindValve {
		return ValveUnknown
	}
	return d.snap.valve
}

// At reports whether the readback matches the named target: within
// setpoint±tolerance for motors, status equality for valves, always true
// for dummies.
func (d *Device) At(target string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	switch d.cfg.kind {
	case KindMotor:
		sp, ok := d.targets[target]
		if !ok {
			return false
		}
		return math.Abs(d.snap.pos-sp) <= d.cfg.tolerance
	case KindValve:
		switch target {
		case TargetOpen:
			return d.snap.valve == ValveOpen
		case TargetClosed:
			return d.snap.valve == ValveClosed
		default:
			return false
		}
	default:
		return true
	}
}

// Within reports whether the readback lies inside the additive window
// [setpoint+lo-tolerance, setpoint+hi+tolerance] around the named target.
// Valves reduce to At; dummies are always within.
func (d *Device) Within(target string, lo, hi float64) bool {
	switch d.cfg.kind {
	case KindMotor:
		d.mu.RLock()
		defer d.mu.RUnlock()
		sp, ok := d.targets[target]
		if !ok {
			return false
		}
		return d.snap.pos >= sp+lo-d.cfg.tolerance && d.snap.pos <= sp+hi+d.cfg.tolerance
	case KindValve:
		return d.At(target)
	default:
		return true
	}
}

// InLimits reports whether a setpoint lies inside the motor's soft travel
// limits as of the last poll. Non-motors and motors without published
// limits accept everything.
func (d *Device) InLimits(v float64) bool {
	if d.cfg.kind != KindMotor {
		return true
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if !d.snap.limOK {
		return true
	}
	return v >= d.snap.limLo && v <= d.snap.limHi
}

// StartMove issues the underlying move command for the named target.
// Motors write the numeric setpoint, valves assert the matching command
// line, dummies complete instantly.
func (d *Device) StartMove(target string) error {
	switch d.cfg.kind {
	case KindMotor:
		d.mu.RLock()
		sp, ok := d.targets[target]
		d.mu.RUnlock()
		if !ok {
			return fmt.Errorf("%w: %s on %s", ErrUnknownTarget, target, d.cfg.key)
		}
		if err := d.cfg.motor.WriteSetpoint(sp); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrBackendWrite, d.cfg.key, err)
		}
		return nil
	case KindValve:
		var err error
		switch target {
		case TargetOpen:
			err = d.cfg.valve.Open()
		case TargetClosed:
			err = d.cfg.valve.Close()
		default:
			return fmt.Errorf("%w: %s on %s", ErrUnknownTarget, target, d.cfg.key)
		}
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrBackendWrite, d.cfg.key, err)
		}
		return nil
	default:
		d.mu.Lock()
		defer d.mu.Unlock()
		sp, ok := d.targets[target]
		if !ok {
			return fmt.Errorf("%w: %s on %s", ErrUnknownTarget, target, d.cfg.key)
		}
		d.snap.pos = sp
		return nil
	}
}

// Stop issues a best-effort halt. Valves and dummies ignore it.
func (d *Device) Stop() error {
	if d.cfg.kind != KindMotor {
		return nil
	}
	if err := d.cfg.motor.Stop(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrBackendWrite, d.cfg.key, err)
	}
	return nil
}

// Targets returns the sorted target names of the device. Valves report
// their implicit pair.
func (d *Device) Targets() []string {
	if d.cfg.kind == KindValve {
		return []string{TargetClosed, TargetOpen}
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	names := make([]string, 0, len(d.targets))
	for name := range d.targets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Target returns the numeric setpoint of a named target. Valve targets
// exist but carry the status encoding.
func (d *Device) Target(name string) (float64, bool) {
	if d.cfg.kind == KindValve {
		switch name {
		case TargetOpen:
			return 1, true
		case TargetClosed:
			return 0, true
		default:
			return 0, false
		}
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	v, ok := d.targets[name]
	return v, ok
}

// SetTarget mutates a named target's setpoint. Valve targets are
// immutable; unknown names are rejected so a typo on the bus cannot
// create positions.
func (d *Device) SetTarget(name string, v float64) error {
	if d.cfg.kind == KindValve {
		return fmt.Errorf("%w: %s on valve %s", ErrImmutableTarget, name, d.cfg.key)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.targets[name]; !ok {
		return fmt.Errorf("%w: %s on %s", ErrUnknownTarget, name, d.cfg.key)
	}
	d.targets[name] = v
	return nil
}

func formatFloat(v float64) string {
	return fmt.Sprintf("%g", v)
}
