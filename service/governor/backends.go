// SPDX-License-Identifier: BSD-3-Clause

package governor

import (
	"time"

	"github.com/Usernamejwle/governor/pkg/config"
	"github.com/Usernamejwle/governor/pkg/device"
)

// BackendFactory creates the protocol backends for configured devices.
// The production factory speaking the beamline's channel protocol lives
// outside this process; the default simulates every positioner.
type BackendFactory interface {
	Motor(machine, key string, cfg config.Device) (device.MotorBackend, error)
	Valve(machine, key string, cfg config.Device) (device.ValveBackend, error)
}

// SimBackendFactory fabricates simulated backends.
type SimBackendFactory struct {
	// MotorVelocity is the simulated travel rate in units per second.
	MotorVelocity float64
	// ValveTravel is the simulated open/close duration.
	ValveTravel time.Duration
}

// NewSimBackendFactory returns a factory with moderate travel rates.
func NewSimBackendFactory() *SimBackendFactory {
	return &SimBackendFactory{
		MotorVelocity: 50,
		ValveTravel:   500 * time.Millisecond,
	}
}

// Motor implements BackendFactory.
func (f *SimBackendFactory) Motor(_, _ string, _ config.Device) (device.MotorBackend, error) {
	return device.NewSimMotor(0, f.MotorVelocity), nil
}

// Valve implements BackendFactory.
func (f *SimBackendFactory) Valve(_, _ string, _ config.Device) (device.ValveBackend, error) {
	return device.NewSimValve(device.ValveClosed, f.ValveTravel), nil
}
