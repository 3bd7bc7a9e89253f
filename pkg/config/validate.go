// SPDX-License-Identifier: BSD-3-Clause

package config

import (
	"errors"
	"fmt"

	"github.com/Usernamejwle/governor/pkg/device"
	"github.com/Usernamejwle/governor/pkg/ipc"
)

// Validate checks every structural invariant of a machine configuration
// and returns all violations at once, wrapped in ErrConfigInvalid.
func (m *Machine) Validate() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if m.Name == "" {
		fail("machine name must not be empty")
	} else if !ipc.ValidKey(m.Name) {
		fail("machine name %q: only [A-Za-z0-9_] allowed", m.Name)
	}

	if len(m.Devices) == 0 {
		fail("at least one device must be defined")
	}
	for key, dev := range m.Devices {
		if !ipc.ValidKey(key) {
			fail("device key %q: only [A-Za-z0-9_] allowed", key)
		}
		switch dev.Type {
		case TypeMotor:
			if dev.Tolerance < 0 {
				fail("device %s: tolerance must not be negative", key)
			}
			if len(dev.Positions) == 0 {
				fail("device %s: motor needs at least one position", key)
			}
		case TypeDummy:
			if len(dev.Positions) == 0 {
				fail("device %s: needs at least one position", key)
			}
		case TypeValve:
			if len(dev.Positions) != 0 {
				fail("device %s: valve must not define positions", key)
			}
		default:
			fail("device %s: unknown type %q", key, dev.Type)
		}
		if dev.Timeout < 0 {
			fail("device %s: timeout must not be negative", key)
		}
		for target := range dev.Positions {
			if !ipc.ValidKey(target) {
				fail("device %s: target %q: only [A-Za-z0-9_] allowed", key, target)
			}
		}
	}

	if len(m.States) == 0 {
		fail("at least one state must be defined")
	}
	if m.InitState == "" {
		fail("init_state must be set")
	} else if init, ok := m.States[m.InitState]; !ok {
		fail("init_state %q is not a defined state", m.InitState)
	} else if len(init.Targets) != 0 {
		fail("init_state %q must not bind targets", m.InitState)
	}

	for key, st := range m.States {
		if !ipc.ValidKey(key) {
			fail("state key %q: only [A-Za-z0-9_] allowed", key)
		}
		for devKey, binding := range st.Targets {
			dev, ok := m.Devices[devKey]
			if !ok {
				fail("state %s: unknown device %q", key, devKey)
				continue
			}
			if !m.deviceHasTarget(dev, binding.Target) {
				fail("state %s: device %s has no target %q", key, devKey, binding.Target)
			}
			lo, hi := binding.Limits[0], binding.Limits[1]
			if lo > 0 || hi < 0 {
				fail("state %s: device %s: limits [%g, %g] must satisfy lo <= 0 <= hi", key, devKey, lo, hi)
			}
		}
	}

	for from, tos := range m.Transitions {
		if _, ok := m.States[from]; !ok {
			fail("transition from unknown state %q", from)
		}
		for to, stages := range tos {
			if _, ok := m.States[to]; !ok {
				fail("transition %s-%s: unknown destination state", from, to)
			}
			if to == m.InitState {
				fail("transition %s-%s: the initial state is reachable implicitly, do not declare transitions into it", from, to)
			}
			if from == to {
				fail("transition %s-%s: self transitions are not allowed", from, to)
			}
			m.validateStages(from, to, stages, fail)
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrConfigInvalid, errors.Join(errs...))
}

func (m *Machine) validateStages(from, to string, stages StageList, fail func(string, ...any)) {
	dest, hasDest := m.States[to]
	seen := make(map[string]bool)
	for i, stage := range stages {
		if len(stage) == 0 {
			fail("transition %s-%s: stage %d is empty", from, to, i)
		}
		for _, devKey := range stage {
			if _, ok := m.Devices[devKey]; !ok {
				fail("transition %s-%s: stage %d: unknown device %q", from, to, i, devKey)
				continue
			}
			if seen[devKey] {
				fail("transition %s-%s: device %s appears in more than one stage", from, to, devKey)
			}
			seen[devKey] = true
			if hasDest {
				if _, ok := dest.Targets[devKey]; !ok {
					fail("transition %s-%s: device %s has no binding on destination state", from, to, devKey)
				}
			}
		}
	}
}

func (m *Machine) deviceHasTarget(dev Device, target string) bool {
	if dev.Type == TypeValve {
		return target == device.TargetOpen || target == device.TargetClosed
	}
	_, ok := dev.Positions[target]
	return ok
}

// ValidateSync checks the sync map against a set of loaded machine
// configurations: every referenced cell must exist on every machine that
// defines the device, and valves cannot be synced.
func ValidateSync(s Sync, machines []*Machine) error {
	var errs []error
	for devKey, targets := range s {
		found := false
		for _, m := range machines {
			dev, ok := m.Devices[devKey]
			if !ok {
				continue
			}
			found = true
			if dev.Type == TypeValve {
				errs = append(errs, fmt.Errorf("sync map: device %s on %s: valve targets are not writable", devKey, m.Name))
				continue
			}
			for _, target := range targets {
				if _, ok := dev.Positions[target]; !ok {
					errs = append(errs, fmt.Errorf("sync map: device %s on %s has no target %q", devKey, m.Name, target))
				}
			}
		}
		if !found {
			errs = append(errs, fmt.Errorf("sync map: device %s does not exist on any machine", devKey))
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrConfigInvalid, errors.Join(errs...))
}
