// SPDX-License-Identifier: BSD-3-Clause

package state_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Usernamejwle/governor/pkg/config"
	"github.com/Usernamejwle/governor/pkg/state"
)

func testMachine() *config.Machine {
	return &config.Machine{
		Name: "Human",
		Devices: map[string]config.Device{
			"dc": {Type: config.TypeDummy, Positions: map[string]float64{"In": 0, "Out": 100}},
			"li": {Type: config.TypeMotor, Tolerance: 1, Positions: map[string]float64{"Up": 0, "Down": -100}},
			"bs": {Type: config.TypeMotor, Tolerance: 0.5, Positions: map[string]float64{"In": 0, "Out": 50}},
		},
		InitState: "M",
		States: map[string]config.State{
			"M": {Name: "Maintenance"},
			"SE": {Name: "Sample Exchange", Targets: map[string]config.Target{
				"dc": {Target: "Out"},
				"li": {Target: "Up", Limits: [2]float64{-98, 14}, UpdateAfter: true},
				"bs": {Target: "Out", Limits: [2]float64{-1, 1}},
			}},
			"SA": {Name: "Sample Alignment", Targets: map[string]config.Target{
				"dc": {Target: "In"},
				"li": {Target: "Up", Limits: [2]float64{-98, 14}},
				"bs": {Target: "In", Limits: [2]float64{-1, 1}},
			}},
		},
		Transitions: map[string]map[string]config.StageList{
			"M":  {"SE": {{"dc"}, {"li"}, {"bs"}}},
			"SE": {"SA": {{"dc", "bs"}, {"li"}}},
			"SA": {"SE": {{"dc", "bs"}}},
		},
	}
}

func TestCompileRejectsInvalid(t *testing.T) {
	cfg := testMachine()
	cfg.InitState = "Ghost"
	_, err := state.Compile(cfg)
	require.ErrorIs(t, err, state.ErrCompile)
}

func TestGraphShape(t *testing.T) {
	g, err := state.Compile(testMachine())
	require.NoError(t, err)

	assert.Equal(t, "M", g.Initial())
	assert.Equal(t, "M", g.Current())
	assert.Equal(t, []string{"M", "SA", "SE"}, g.States())

	se, ok := g.State("SE")
	require.True(t, ok)
	assert.Equal(t, []string{"bs", "dc", "li"}, se.DeviceKeys())
	assert.True(t, se.Bindings["li"].UpdateAfter)
	assert.Equal(t, -98.0, se.Bindings["li"].Low)

	trs := g.Transitions()
	require.Len(t, trs, 3)
	assert.Equal(t, "M", trs[0].From)
	assert.Equal(t, "SE", trs[0].To)
}

func TestTransitionFor(t *testing.T) {
	g, err := state.Compile(testMachine())
	require.NoError(t, err)

	tr, ok := g.TransitionFor("M", "SE")
	require.True(t, ok)
	assert.Equal(t, [][]string{{"dc"}, {"li"}, {"bs"}}, tr.Stages)

	_, ok = g.TransitionFor("M", "SA")
	assert.False(t, ok)

	// The initial state is reachable from everywhere without motion.
	tr, ok = g.TransitionFor("SA", "M")
	require.True(t, ok)
	assert.Empty(t, tr.Stages)
}

func TestGoAndReachability(t *testing.T) {
	g, err := state.Compile(testMachine())
	require.NoError(t, err)

	assert.Equal(t, []string{"M", "SE"}, g.ReachableFrom())

	require.NoError(t, g.Go("SE"))
	assert.Equal(t, "SE", g.Current())
	assert.Equal(t, []string{"M", "SA"}, g.ReachableFrom())

	require.Error(t, g.Go("Ghost"))
	require.ErrorIs(t, g.Go("SE"), state.ErrNoTransition)

	require.NoError(t, g.Go("SA"))
	assert.Equal(t, "SA", g.Current())

	// Back to initial is always permitted.
	require.NoError(t, g.Go("M"))
	assert.Equal(t, "M", g.Current())
}

func TestFallback(t *testing.T) {
	g, err := state.Compile(testMachine())
	require.NoError(t, err)

	require.NoError(t, g.Go("SE"))
	g.Fallback()
	assert.Equal(t, "M", g.Current())

	// Fallback from the initial state is a no-op reentry.
	g.Fallback()
	assert.Equal(t, "M", g.Current())
}

func TestToGraph(t *testing.T) {
	g, err := state.Compile(testMachine())
	require.NoError(t, err)
	assert.Contains(t, g.ToGraph(), "digraph")
}
