// SPDX-License-Identifier: BSD-3-Clause

package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Usernamejwle/governor/pkg/config"
)

const validYAML = `
name: Human
devices:
  dc:
    type: Device
    name: Detector Cover
    positions:
      In: 0
      Out: 100
  li:
    type: Motor
    name: Light
    pv: "XF:31IDA-OP{Lgt:1-Ax:Y}Mtr"
    tolerance: 1.0
    timeout: 60
    positions:
      Up: 0
      Down: -100
  gv:
    type: Valve
    name: Gate Valve
    pv: "XF:31IDA-VA{GV:1}"
    timeout: 5
init_state: M
states:
  M:
    name: Maintenance
  SE:
    name: Sample Exchange
    targets:
      dc:
        target: Out
        limits: [0, 0]
      li:
        target: Up
        limits: [-98, 14]
        updateAfter: true
      gv:
        target: Open
        limits: [0, 0]
transitions:
  M:
    SE:
      - dc
      - [li, gv]
`

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "machine.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadValid(t *testing.T) {
	m, err := config.Load(writeFile(t, validYAML))
	require.NoError(t, err)
	require.NoError(t, m.Validate())

	assert.Equal(t, "Human", m.Name)
	assert.Equal(t, "M", m.InitState)

	// Mixed scalar/sequence stage form.
	stages := m.Transitions["M"]["SE"]
	require.Len(t, stages, 2)
	assert.Equal(t, []string{"dc"}, stages[0])
	assert.Equal(t, []string{"li", "gv"}, stages[1])

	assert.True(t, m.States["SE"].Targets["li"].UpdateAfter)
	assert.Equal(t, [2]float64{-98, 14}, m.States["SE"].Targets["li"].Limits)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yml"))
	require.ErrorIs(t, err, config.ErrConfigRead)
}

func TestLoadBadYAML(t *testing.T) {
	_, err := config.Load(writeFile(t, "devices: ["))
	require.ErrorIs(t, err, config.ErrConfigParse)
}

func TestValidateUnknownDeviceInState(t *testing.T) {
	m, err := config.Load(writeFile(t, validYAML))
	require.NoError(t, err)

	m.States["SA"] = config.State{
		Name: "Broken",
		Targets: map[string]config.Target{
			"ghost": {Target: "Up"},
		},
	}
	err = m.Validate()
	require.ErrorIs(t, err, config.ErrConfigInvalid)
	assert.Contains(t, err.Error(), "unknown device")
}

func TestValidateTransitionIntoInitial(t *testing.T) {
	// The initial state is reachable implicitly from everywhere; an
	// explicit inbound edge is a configuration mistake.
	m, err := config.Load(writeFile(t, validYAML+`
  SE:
    M:
      - dc
`))
	require.NoError(t, err)
	err = m.Validate()
	require.ErrorIs(t, err, config.ErrConfigInvalid)
	assert.Contains(t, err.Error(), "do not declare transitions into it")
}

func TestValidateWindowOrdering(t *testing.T) {
	m, err := config.Load(writeFile(t, validYAML))
	require.NoError(t, err)

	st := m.States["SE"]
	b := st.Targets["li"]
	b.Limits = [2]float64{1, 2}
	st.Targets["li"] = b

	err = m.Validate()
	require.ErrorIs(t, err, config.ErrConfigInvalid)
	assert.Contains(t, err.Error(), "lo <= 0 <= hi")
}

func TestValidateStagedDeviceNeedsBinding(t *testing.T) {
	m, err := config.Load(writeFile(t, validYAML))
	require.NoError(t, err)

	delete(m.States["SE"].Targets, "gv")
	err = m.Validate()
	require.ErrorIs(t, err, config.ErrConfigInvalid)
	assert.Contains(t, err.Error(), "no binding on destination state")
}

func TestValidateDuplicateStagedDevice(t *testing.T) {
	m, err := config.Load(writeFile(t, validYAML))
	require.NoError(t, err)

	m.Transitions["M"]["SE"] = append(m.Transitions["M"]["SE"], []string{"dc"})
	err = m.Validate()
	require.ErrorIs(t, err, config.ErrConfigInvalid)
	assert.Contains(t, err.Error(), "more than one stage")
}

func TestValidateValveBindings(t *testing.T) {
	m, err := config.Load(writeFile(t, validYAML))
	require.NoError(t, err)

	st := m.States["SE"]
	b := st.Targets["gv"]
	b.Target = "Halfway"
	st.Targets["gv"] = b

	err = m.Validate()
	require.ErrorIs(t, err, config.ErrConfigInvalid)
	assert.Contains(t, err.Error(), "no target")
}

func TestValidateInitStateMustBeBare(t *testing.T) {
	m, err := config.Load(writeFile(t, validYAML))
	require.NoError(t, err)

	m.InitState = "SE"
	err = m.Validate()
	require.ErrorIs(t, err, config.ErrConfigInvalid)
	assert.Contains(t, err.Error(), "must not bind targets")
}

func TestMoveTimeoutDefault(t *testing.T) {
	d := config.Device{}
	assert.Equal(t, config.DefaultMoveTimeout, d.MoveTimeout())
	d.Timeout = 2.5
	assert.Equal(t, "2.5s", d.MoveTimeout().String())
}

func TestLoadSyncAndValidate(t *testing.T) {
	m, err := config.Load(writeFile(t, validYAML))
	require.NoError(t, err)

	syncPath := filepath.Join(t.TempDir(), "sync.yml")
	require.NoError(t, os.WriteFile(syncPath, []byte("li:\n  - Up\n"), 0o600))

	s, err := config.LoadSync(syncPath)
	require.NoError(t, err)
	require.NoError(t, config.ValidateSync(s, []*config.Machine{m}))

	bad := config.Sync{"li": {"Sideways"}}
	require.ErrorIs(t, config.ValidateSync(bad, []*config.Machine{m}), config.ErrConfigInvalid)

	valves := config.Sync{"gv": {"Open"}}
	require.ErrorIs(t, config.ValidateSync(valves, []*config.Machine{m}), config.ErrConfigInvalid)

	ghost := config.Sync{"ghost": {"Up"}}
	require.ErrorIs(t, config.ValidateSync(ghost, []*config.Machine{m}), config.ErrConfigInvalid)
}
