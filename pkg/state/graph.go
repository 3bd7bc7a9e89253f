// SPDX-License-Identifier: BSD-3-Clause

package state

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/qmuntal/stateless"

	"github.com/Usernamejwle/governor/pkg/config"
)

// Binding ties a device to a named target with an additive readback
// window around the target's live setpoint.
type Binding struct {
	Target      string
	Low         float64
	High        float64
	UpdateAfter bool
}

// Definition is one compiled state.
type Definition struct {
	Key      string
	Name     string
	Bindings map[string]Binding
}

// DeviceKeys returns the bound device keys in sorted order.
func (d Definition) DeviceKeys() []string {
	keys := make([]string, 0, len(d.Bindings))
	for k := range d.Bindings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Transition is one compiled transition: the ordered stage list between
// two states. A transition into the initial state has no stages.
type Transition struct {
	From   string
	To     string
	Stages [][]string
}

const triggerFallback = "fallback"

func triggerGo(to string) string { return "go:" + to }

// Graph is the compiled state graph of one machine.
type Graph struct {
	mu          sync.Mutex
	sm          *stateless.StateMachine
	initial     string
	states      map[string]Definition
	order       []string
	transitions map[string]map[string]Transition
}

// Compile builds the graph from a validated configuration.
func Compile(cfg *config.Machine) (*Graph, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCompile, err)
	}

	g := &Graph{
		initial:     cfg.InitState,
		states:      make(map[string]Definition, len(cfg.States)),
		transitions: make(map[string]map[string]Transition),
	}

	for key, st := range cfg.States {
		def := Definition{
			Key:      key,
			Name:     st.Name,
			Bindings: make(map[string]Binding, len(st.Targets)),
		}
		for devKey, t := range st.Targets {
			def.Bindings[devKey] = Binding{
				Target:      t.Target,
				Low:         t.Limits[0],
				High:        t.Limits[1],
				UpdateAfter: t.UpdateAfter,
			}
		}
		g.states[key] = def
		g.order = append(g.order, key)
	}
	sort.Strings(g.order)

	for from, tos := range cfg.Transitions {
		g.transitions[from] = make(map[string]Transition, len(tos))
		for to, stages := range tos {
			copied := make([][]string, len(stages))
			for i, stage := range stages {
				copied[i] = append([]string(nil), stage...)
			}
			g.transitions[from][to] = Transition{From: from, To: to, Stages: copied}
		}
	}

	g.sm = stateless.NewStateMachine(g.initial)
	for _, key := range g.order {
		sc := g.sm.Configure(key)
		for to := range g.transitions[key] {
			sc.Permit(triggerGo(to), to)
		}
		if key == g.initial {
			sc.PermitReentry(triggerGo(g.initial))
			sc.PermitReentry(triggerFallback)
		} else {
			sc.Permit(triggerGo(g.initial), g.initial)
			sc.Permit(triggerFallback, g.initial)
		}
	}

	return g, nil
}

// Initial returns the fault-safe home state key.
func (g *Graph) Initial() string { return g.initial }

// Current returns the current state key.
func (g *Graph) Current() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return fmt.Sprintf("%v", g.sm.MustState())
}

// States returns all state keys in sorted order.
func (g *Graph) States() []string {
	return append([]string(nil), g.order...)
}

// State returns the compiled definition of a state.
func (g *Graph) State(key string) (Definition, bool) {
	def, ok := g.states[key]
	return def, ok
}

// Transitions returns all configured transitions sorted by (from, to).
func (g *Graph) Transitions() []Transition {
	var out []Transition
	for _, tos := range g.transitions {
		for _, tr := range tos {
			out = append(out, tr)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].From != out[j].From {
			return out[i].From < out[j].From
		}
		return out[i].To < out[j].To
	})
	return out
}

// TransitionFor returns the transition plan from one state to another.
// The initial state is reachable from everywhere with an empty stage
// list.
func (g *Graph) TransitionFor(from, to string) (Transition, bool) {
	if to == g.initial {
		return Transition{From: from, To: to}, true
	}
	tr, ok := g.transitions[from][to]
	return tr, ok
}

// Go commits the state change to the given destination. The executor
// calls this after all stages completed; no motion happens here.
func (g *Graph) Go(to string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.states[to]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownState, to)
	}
	if err := g.sm.Fire(triggerGo(to)); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrNoTransition, to, err)
	}
	return nil
}

// Fallback drops the graph into the initial state. Used by the fault and
// abort paths; always permitted.
func (g *Graph) Fallback() {
	g.mu.Lock()
	defer g.mu.Unlock()
	// Reentry on the initial state makes this infallible by construction.
	_ = g.sm.Fire(triggerFallback)
}

// ReachableFrom returns the destination state keys permitted from the
// current state, sorted. The initial state is always among them.
func (g *Graph) ReachableFrom() []string {
	g.mu.Lock()
	triggers, err := g.sm.PermittedTriggers()
	g.mu.Unlock()
	if err != nil {
		return nil
	}

	var out []string
	for _, t := range triggers {
		name := fmt.Sprintf("%v", t)
		if to, ok := strings.CutPrefix(name, "go:"); ok {
			out = append(out, to)
		}
	}
	sort.Strings(out)
	return out
}

// ToGraph renders the DOT representation of the graph for config review.
func (g *Graph) ToGraph() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.sm.ToGraph()
}
