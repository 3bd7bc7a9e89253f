// SPDX-License-Identifier: BSD-3-Clause

package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Device type names accepted in the configuration. "Device" is the
// instant-success dummy kind.
const (
	TypeMotor = "Motor"
	TypeValve = "Valve"
	TypeDummy = "Device"
)

// DefaultMoveTimeout applies when a device omits its timeout.
const DefaultMoveTimeout = 10 * time.Second

// Machine is the top-level schema of one state machine configuration
// file.
type Machine struct {
	Name        string                          `yaml:"name"`
	Devices     map[string]Device               `yaml:"devices"`
	States      map[string]State                `yaml:"states"`
	InitState   string                          `yaml:"init_state"`
	Transitions map[string]map[string]StageList `yaml:"transitions"`
}

// Device describes one positioner.
type Device struct {
	Type      string             `yaml:"type"`
	Name      string             `yaml:"name"`
	PV        string             `yaml:"pv"`
	Tolerance float64            `yaml:"tolerance"`
	Timeout   float64            `yaml:"timeout"`
	Positions map[string]float64 `yaml:"positions"`
}

// MoveTimeout returns the device's move timeout as a duration.
func (d Device) MoveTimeout() time.Duration {
	if d.Timeout <= 0 {
		return DefaultMoveTimeout
	}
	return time.Duration(d.Timeout * float64(time.Second))
}

// State describes one named configuration. The initial state carries no
// targets.
type State struct {
	Name    string            `yaml:"name"`
	Targets map[string]Target `yaml:"targets"`
}

// Target binds a device to a named target with an additive readback
// window.
type Target struct {
	Target      string     `yaml:"target"`
	Limits      [2]float64 `yaml:"limits"`
	UpdateAfter bool       `yaml:"updateAfter"`
}

// StageList is the ordered stage sequence of a transition. In YAML each
// element is either a single device key (a singleton stage) or a list of
// device keys moved in parallel.
type StageList [][]string

// UnmarshalYAML accepts the mixed scalar/sequence form.
func (s *StageList) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.SequenceNode {
		return fmt.Errorf("line %d: stage list must be a sequence", value.Line)
	}
	out := make(StageList, 0, len(value.Content))
	for _, item := range value.Content {
		switch item.Kind {
		case yaml.ScalarNode:
			var key string
			if err := item.Decode(&key); err != nil {
				return err
			}
			out = append(out, []string{key})
		case yaml.SequenceNode:
			var keys []string
			if err := item.Decode(&keys); err != nil {
				return err
			}
			out = append(out, keys)
		default:
			return fmt.Errorf("line %d: stage must be a device key or a list of device keys", item.Line)
		}
	}
	*s = out
	return nil
}

// Sync is the cross-machine synchronization map: device key to the
// target names whose setpoints are shared.
type Sync map[string][]string

// Load reads and parses one machine configuration file. The result is
// not yet validated; call Validate before compiling it.
func Load(path string) (*Machine, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfigRead, err)
	}

	var m Machine
	if err := yaml.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrConfigParse, path, err)
	}
	return &m, nil
}

// LoadSync reads and parses the sync map file.
func LoadSync(path string) (Sync, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSyncRead, err)
	}

	var s Sync
	if err := yaml.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrSyncParse, path, err)
	}
	return s, nil
}
