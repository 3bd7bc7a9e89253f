// SPDX-License-Identifier: BSD-3-Clause

package device

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMotor(t *testing.T, sim *SimMotor) *Device {
	t.Helper()
	d, err := New(
		WithKey("bs"),
		WithName("Beam Stop"),
		WithKind(KindMotor),
		WithTolerance(0.5),
		WithTimeout(time.Second),
		WithPositions(map[string]float64{"In": 0, "Out": 50}),
		WithMotorBackend(sim),
	)
	require.NoError(t, err)
	return d
}

func TestMotorRequiresBackend(t *testing.T) {
	_, err := New(WithKey("bs"), WithKind(KindMotor))
	require.ErrorIs(t, err, ErrNoBackend)
}

func TestMotorSnapshotAndWindows(t *testing.T) {
	sim := NewSimMotor(0, 1000)
	d := newTestMotor(t, sim)

	d.poll()
	require.True(t, d.Connected())
	require.True(t, d.Homed())
	assert.False(t, d.Moving())
	assert.True(t, d.At("In"))
	assert.False(t, d.At("Out"))

	// Window is additive around the setpoint, widened by the tolerance.
	assert.True(t, d.Within("In", -1, 1))
	sim.SetPosition(1.4)
	d.poll()
	assert.True(t, d.Within("In", -1, 1))
	sim.SetPosition(1.6)
	d.poll()
	assert.False(t, d.Within("In", -1, 1))
}

func TestMotorMoveCompletes(t *testing.T) {
	sim := NewSimMotor(0, 5000)
	d := newTestMotor(t, sim)
	d.poll()

	require.NoError(t, d.StartMove("Out"))
	time.Sleep(5 * time.Millisecond)
	d.poll()
	assert.True(t, d.Moving())

	require.Eventually(t, func() bool {
		d.poll()
		return !d.Moving() && d.At("Out")
	}, time.Second, 5*time.Millisecond)
}

func TestMotorMotionDerivedFromSamples(t *testing.T) {
	sim := NewSimMotor(0, 100)
	d := newTestMotor(t, sim)
	d.poll()

	sim.SetStuck(true)
	require.NoError(t, d.StartMove("Out"))
	time.Sleep(20 * time.Millisecond)
	d.poll()
	// A stuck axis produces identical samples, so it never counts as
	// moving regardless of what the controller claims.
	assert.False(t, d.Moving())
	assert.False(t, d.At("Out"))
}

func TestMotorFaultInjection(t *testing.T) {
	sim := NewSimMotor(0, 100)
	d := newTestMotor(t, sim)

	sim.SetConnected(false)
	d.poll()
	assert.False(t, d.Connected())

	sim.SetConnected(true)
	sim.SetHomed(false)
	d.poll()
	assert.True(t, d.Connected())
	assert.False(t, d.Homed())
}

func TestMotorLimits(t *testing.T) {
	sim := NewSimMotor(0, 100)
	d := newTestMotor(t, sim)

	d.poll()
	assert.True(t, d.InLimits(1000), "no published limits accepts everything")

	sim.SetLimits(-10, 10)
	d.poll()
	assert.True(t, d.InLimits(5))
	assert.False(t, d.InLimits(50))
}

func TestMotorTargets(t *testing.T) {
	d := newTestMotor(t, NewSimMotor(0, 100))

	assert.Equal(t, []string{"In", "Out"}, d.Targets())
	require.NoError(t, d.SetTarget("Out", 42))
	v, ok := d.Target("Out")
	require.True(t, ok)
	assert.Equal(t, 42.0, v)

	require.ErrorIs(t, d.SetTarget("Sideways", 1), ErrUnknownTarget)
}

func TestValve(t *testing.T) {
	sim := NewSimValve(ValveClosed, 20*time.Millisecond)
	d, err := New(
		WithKey("gv"),
		WithKind(KindValve),
		WithTimeout(time.Second),
		WithValveBackend(sim),
	)
	require.NoError(t, err)

	d.poll()
	assert.True(t, d.At(TargetClosed))
	assert.Equal(t, "Closed", d.ReadbackString())

	require.NoError(t, d.StartMove(TargetOpen))
	d.poll()
	assert.True(t, d.Moving())

	require.Eventually(t, func() bool {
		d.poll()
		return d.At(TargetOpen)
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1.0, d.Readback())

	require.ErrorIs(t, d.SetTarget(TargetOpen, 1), ErrImmutableTarget)
	require.ErrorIs(t, d.StartMove("Halfway"), ErrUnknownTarget)
}

func TestValveRejectsPositions(t *testing.T) {
	_, err := New(
		WithKey("gv"),
		WithKind(KindValve),
		WithValveBackend(NewSimValve(ValveClosed, 0)),
		WithPositions(map[string]float64{"Open": 1}),
	)
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestDummy(t *testing.T) {
	d, err := New(
		WithKey("dc"),
		WithKind(KindDummy),
		WithPositions(map[string]float64{"In": 0, "Out": 100}),
	)
	require.NoError(t, err)

	assert.True(t, d.Connected())
	assert.True(t, d.Homed())
	assert.True(t, d.At("In"))
	assert.True(t, d.At("Out"), "dummies are always at target")

	require.NoError(t, d.StartMove("Out"))
	assert.Equal(t, 100.0, d.Readback())
	assert.True(t, d.Within("Out", 0, 0))
}
