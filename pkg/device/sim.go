// SPDX-License-Identifier: BSD-3-Clause

package device

import (
	"sync"
	"time"
)

// SimMotor is a simulated motor backend. It integrates position toward
// the last written setpoint at a fixed velocity, and supports fault
// injection for connection loss, unhomed axes, and stuck motion.
type SimMotor struct {
	mu        sync.Mutex
	pos       float64
	target    float64
	velocity  float64
	connected bool
	homed     bool
	stuck     bool
	limLo     float64
	limHi     float64
	hasLimits bool
	last      time.Time
}

var _ MotorBackend = (*SimMotor)(nil)

// NewSimMotor creates a simulated motor at the given position moving at
// velocity units per second.
func NewSimMotor(pos, velocity float64) *SimMotor {
	return &SimMotor{
		pos:       pos,
		target:    pos,
		velocity:  velocity,
		connected: true,
		homed:     true,
		last:      time.Now(),
	}
}

// advance integrates the position toward the target. Callers hold the
// mutex.
func (m *SimMotor) advance() {
	now := time.Now()
	dt := now.Sub(m.last).Seconds()
	m.last = now
	if m.stuck || m.pos == m.target || dt <= 0 {
		return
	}
	step := m.velocity * dt
	switch {
	case m.pos < m.target:
		m.pos += step
		if m.pos > m.target {
			m.pos = m.target
		}
	case m.pos > m.target:
		m.pos -= step
		if m.pos < m.target {
			m.pos = m.target
		}
	}
}

// Connected implements MotorBackend.
func (m *SimMotor) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

// Homed implements MotorBackend.
func (m *SimMotor) Homed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.homed
}

// Position implements MotorBackend.
func (m *SimMotor) Position() (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.advance()
	return m.pos, nil
}

// Limits implements MotorBackend.
func (m *SimMotor) Limits() (float64, float64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.limLo, m.limHi, m.hasLimits
}

// WriteSetpoint implements MotorBackend.
func (m *SimMotor) WriteSetpoint(v float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.advance()
	m.target = v
	return nil
}

// Stop implements MotorBackend. The simulated axis halts where it is.
func (m *SimMotor) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.advance()
	m.target = m.pos
	return nil
}

// SetConnected injects or clears a connection fault.
func (m *SimMotor) SetConnected(v bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = v
}

// SetHomed injects or clears an unhomed axis.
func (m *SimMotor) SetHomed(v bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.homed = v
}

// SetStuck freezes or unfreezes the axis. A stuck axis accepts setpoints
// but its readback never changes, so moves against it time out.
func (m *SimMotor) SetStuck(v bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.advance()
	m.stuck = v
	m.last = time.Now()
}

// SetPosition teleports the readback, bypassing the velocity model.
func (m *SimMotor) SetPosition(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pos = v
	m.target = v
	m.last = time.Now()
}

// SetLimits configures the soft travel limits.
func (m *SimMotor) SetLimits(lo, hi float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.limLo, m.limHi, m.hasLimits = lo, hi, true
}

// SimValve is a simulated valve backend with a configurable travel time.
type SimValve struct {
	mu        sync.Mutex
	status    ValveStatus
	pending   ValveStatus
	deadline  time.Time
	travel    time.Duration
	connected bool
	stuck     bool
}

var _ ValveBackend = (*SimValve)(nil)

// NewSimValve creates a simulated valve in the given status that takes
// travel to switch.
func NewSimValve(status ValveStatus, travel time.Duration) *SimValve {
	return &SimValve{
		status:    status,
		travel:    travel,
		connected: true,
	}
}

// Connected implements ValveBackend.
func (v *SimValve) Connected() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.connected
}

// Status implements ValveBackend.
func (v *SimValve) Status() ValveStatus {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.status == ValveMoving && !v.stuck && time.Now().After(v.deadline) {
		v.status = v.pending
	}
	return v.status
}

// Open implements ValveBackend.
func (v *SimValve) Open() error {
	return v.command(ValveOpen)
}

// Close implements ValveBackend.
func (v *SimValve) Close() error {
	return v.command(ValveClosed)
}

func (v *SimValve) command(to ValveStatus) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.status == to {
		return nil
	}
	if v.travel <= 0 {
		v.status = to
		return nil
	}
	v.status = ValveMoving
	v.pending = to
	v.deadline = time.Now().Add(v.travel)
	return nil
}

// SetConnected injects or clears a connection fault.
func (v *SimValve) SetConnected(c bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.connected = c
}

// SetStuck freezes or unfreezes the valve mid-travel.
func (v *SimValve) SetStuck(s bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.stuck = s
}
