// SPDX-License-Identifier: BSD-3-Clause

package machine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/Usernamejwle/governor/pkg/device"
	"github.com/Usernamejwle/governor/pkg/ipc"
	"github.com/Usernamejwle/governor/pkg/log"
	"github.com/Usernamejwle/governor/pkg/state"
	"github.com/Usernamejwle/governor/pkg/telemetry"
)

type cmdKind int

const (
	cmdGo cmdKind = iota
	cmdAbort
	cmdEnable
	cmdDisable
)

type command struct {
	kind cmdKind
	arg  string
}

// Machine is one compiled state machine: controller plus executor slot.
type Machine struct {
	cfg    config
	logger *slog.Logger
	tracer trace.Tracer
	meter  metric.Meter

	cmds     chan command
	execDone chan execResult

	mu      sync.RWMutex
	status  Status
	msg     string
	enabled bool

	transitionsTotal   metric.Int64Counter
	transitionDuration metric.Float64Histogram
	transitionFailures metric.Int64Counter
}

// New creates a machine from the provided options.
func New(opts ...Option) (*Machine, error) {
	cfg := config{
		holdInterval: DefaultHoldInterval,
		queueSize:    DefaultQueueSize,
	}
	for _, opt := range opts {
		opt.apply(&cfg)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	m := &Machine{
		cfg:      cfg,
		cmds:     make(chan command, cfg.queueSize),
		execDone: make(chan execResult, 1),
		enabled:  cfg.enabled,
	}
	if cfg.enabled {
		m.status = StatusIdle
	} else {
		m.status = StatusDisabled
	}
	return m, nil
}

// Name returns the machine's configuration name.
func (m *Machine) Name() string { return m.cfg.name }

// Graph returns the compiled state graph.
func (m *Machine) Graph() *state.Graph { return m.cfg.graph }

// Devices returns the machine's devices keyed by their short keys.
func (m *Machine) Devices() map[string]*device.Device { return m.cfg.devices }

// Status returns the current status word.
func (m *Machine) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// Message returns the last published message.
func (m *Machine) Message() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.msg
}

// CurrentState returns the current state key.
func (m *Machine) CurrentState() string { return m.cfg.graph.Current() }

// Go requests a transition to the named state. Acceptance is decided by
// the controller loop; rejections surface on the message channel, the
// command is consumed either way.
func (m *Machine) Go(target string) { m.send(command{kind: cmdGo, arg: target}) }

// Abort requests the running transition to stop. A no-op while not busy.
func (m *Machine) Abort() { m.send(command{kind: cmdAbort}) }

// SetEnabled selects or deselects this machine as the active one.
func (m *Machine) SetEnabled(enabled bool) {
	if enabled {
		m.send(command{kind: cmdEnable})
	} else {
		m.send(command{kind: cmdDisable})
	}
}

func (m *Machine) send(c command) {
	select {
	case m.cmds <- c:
	default:
		log.GetGlobalLogger().Warn("Command queue full, dropping command",
			"machine", m.cfg.name, "kind", int(c.kind), "arg", c.arg)
	}
}

// Run is the controller loop. It linearizes command intake, owns the
// executor slot, and runs the held-state check while Idle.
func (m *Machine) Run(ctx context.Context) error {
	m.logger = log.GetGlobalLogger().With("service", "machine", "machine", m.cfg.name)
	m.tracer = telemetry.GetTracer("machine")
	m.meter = telemetry.GetMeter("machine")
	if err := m.initMetrics(); err != nil {
		return err
	}

	m.logger.InfoContext(ctx, "Starting machine",
		"initial_state", m.cfg.graph.Initial(),
		"states", len(m.cfg.graph.States()),
		"devices", len(m.cfg.devices))
	m.logger.DebugContext(ctx, "State graph", "dot", m.cfg.graph.ToGraph())

	if m.isEnabled() {
		m.recomputeHeld()
	}
	m.publishSnapshot()

	ticker := time.NewTicker(m.cfg.holdInterval)
	defer ticker.Stop()

	var execCancel context.CancelFunc
	busy := false

	for {
		select {
		case <-ctx.Done():
			if busy {
				execCancel()
				<-m.execDone
			}
			return ctx.Err()

		case cmd := <-m.cmds:
			switch cmd.kind {
			case cmdGo:
				execCancel, busy = m.handleGo(ctx, cmd.arg, busy, execCancel)
			case cmdAbort:
				if busy {
					m.logger.InfoContext(ctx, "Abort requested")
					execCancel()
				}
			case cmdEnable:
				m.handleEnable()
			case cmdDisable:
				if busy {
					m.logger.WarnContext(ctx, "Disabled while busy, aborting transition")
					execCancel()
				}
				m.handleDisable()
			}

		case res := <-m.execDone:
			busy = false
			execCancel = nil
			m.finish(ctx, res)

		case <-ticker.C:
			if !busy && m.isEnabled() && m.Status() == StatusIdle {
				m.checkHeld()
			}
		}
	}
}

func (m *Machine) isEnabled() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.enabled
}

func (m *Machine) setStatus(s Status) {
	m.mu.Lock()
	m.status = s
	m.mu.Unlock()
}

func (m *Machine) setMessage(msg string) {
	m.mu.Lock()
	m.msg = msg
	m.mu.Unlock()
	m.publish(ipc.Machine(m.cfg.name, ipc.FieldMsgInfo), msg)
}

// handleGo decides acceptance of a Go command and starts the executor.
// Returns the updated executor cancel func and busy flag.
func (m *Machine) handleGo(ctx context.Context, target string, busy bool, execCancel context.CancelFunc) (context.CancelFunc, bool) {
	reject := func(why string) (context.CancelFunc, bool) {
		m.logger.WarnContext(ctx, "Go rejected", "target", target, "reason", why)
		m.setMessage(fmt.Sprintf("Go %q rejected: %s", target, why))
		return execCancel, busy
	}

	if !m.isEnabled() {
		return reject("machine is disabled")
	}
	if busy {
		return reject("transition in progress")
	}

	graph := m.cfg.graph
	dest, ok := graph.State(target)
	if !ok {
		return reject("unknown state")
	}
	if m.Status() == StatusFault && target != graph.Initial() {
		return reject("machine is in FAULT, only the initial state is reachable")
	}

	current := graph.Current()
	tr, ok := graph.TransitionFor(current, target)
	if !ok {
		return reject(fmt.Sprintf("no transition from %q", current))
	}

	m.logger.InfoContext(ctx, "Transition accepted", "from", current, "to", target, "stages", len(tr.Stages))
	m.setStatus(StatusBusy)
	m.setMessage(fmt.Sprintf("moving %s-%s", current, target))
	m.publishStatus()
	m.publishReachability()
	m.publish(ipc.Transition(m.cfg.name, tr.From, tr.To, ipc.FieldActiveSts), "1")

	execCtx, cancel := context.WithCancel(ctx)
	go func() {
		m.execDone <- m.execute(execCtx, tr, dest)
		cancel()
	}()
	return cancel, true
}

// finish commits the outcome of a transition: success advances the
// graph and applies updateAfter write-backs, failure and abort fall back
// to the initial state without motion.
func (m *Machine) finish(ctx context.Context, res execResult) {
	m.publish(ipc.Transition(m.cfg.name, res.tr.From, res.tr.To, ipc.FieldActiveSts), "0")

	attrs := []attribute.KeyValue{
		attribute.String("machine", m.cfg.name),
		attribute.String("transition.from", res.tr.From),
		attribute.String("transition.to", res.tr.To),
	}
	m.transitionsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.transitionDuration.Record(ctx, res.duration.Seconds(), metric.WithAttributes(attrs...))

	switch {
	case res.aborted:
		m.cfg.graph.Fallback()
		m.endStatus(StatusIdle)
		m.setMessage(fmt.Sprintf("transition %s-%s: %s", res.tr.From, res.tr.To, ReasonAborted))
		m.logger.InfoContext(ctx, "Transition aborted", "from", res.tr.From, "to", res.tr.To)

	case len(res.failures) > 0:
		m.cfg.graph.Fallback()
		m.endStatus(StatusFault)
		parts := make([]string, len(res.failures))
		for i, f := range res.failures {
			parts[i] = f.String()
		}
		m.setMessage(strings.Join(parts, "; "))
		m.transitionFailures.Add(ctx, 1, metric.WithAttributes(attrs...))
		m.logger.ErrorContext(ctx, "Transition failed",
			"from", res.tr.From, "to", res.tr.To, "failures", strings.Join(parts, "; "))

	default:
		m.applyUpdateAfter(ctx, res.dest)
		if err := m.cfg.graph.Go(res.dest.Key); err != nil {
			// Cannot happen for an accepted transition; surface loudly.
			m.logger.ErrorContext(ctx, "State commit failed", "to", res.dest.Key, "error", err)
		}
		m.endStatus(StatusIdle)
		m.setMessage("")
		m.logger.InfoContext(ctx, "Transition complete",
			"state", res.dest.Key, "duration", res.duration)
	}

	m.publishSnapshot()
}

// endStatus applies the executor outcome status unless the machine was
// deselected meanwhile, in which case Disabled wins.
func (m *Machine) endStatus(s Status) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.enabled {
		m.status = StatusDisabled
		return
	}
	m.status = s
}

// applyUpdateAfter writes each flagged binding's current readback into
// the named target cell. Runs only on clean completion; the write
// propagates through the target store's sync fan-out.
func (m *Machine) applyUpdateAfter(ctx context.Context, dest state.Definition) {
	for _, devKey := range dest.DeviceKeys() {
		b := dest.Bindings[devKey]
		if !b.UpdateAfter {
			continue
		}
		d := m.cfg.devices[devKey]
		v := d.Readback()
		if err := m.cfg.store.Set(ctx, m.cfg.name, devKey, b.Target, v); err != nil {
			m.logger.WarnContext(ctx, "updateAfter write failed",
				"device", devKey, "target", b.Target, "value", v, "error", err)
		}
	}
}

func (m *Machine) handleEnable() {
	m.mu.Lock()
	m.enabled = true
	m.mu.Unlock()
	m.recomputeHeld()
	m.publishSnapshot()
}

func (m *Machine) handleDisable() {
	m.mu.Lock()
	m.enabled = false
	m.status = StatusDisabled
	m.mu.Unlock()
	m.publishSnapshot()
}

// recomputeHeld derives Idle or FAULT from the held-state predicate.
// Used on enable and at startup.
func (m *Machine) recomputeHeld() {
	if violations := m.heldViolations(); len(violations) > 0 {
		m.cfg.graph.Fallback()
		m.setStatus(StatusFault)
		m.setMessage(strings.Join(violations, "; "))
		return
	}
	m.setStatus(StatusIdle)
}

// checkHeld runs the periodic held-state check while Idle. Any bound
// device outside its window, disconnected, or unhomed faults the machine
// into the initial state without motion.
func (m *Machine) checkHeld() {
	violations := m.heldViolations()
	if len(violations) == 0 {
		return
	}
	m.cfg.graph.Fallback()
	m.setStatus(StatusFault)
	m.setMessage(strings.Join(violations, "; "))
	m.logger.Error("Held-state check failed", "state", m.cfg.graph.Current(), "violations", strings.Join(violations, "; "))
	m.publishSnapshot()
}

func (m *Machine) heldViolations() []string {
	current := m.cfg.graph.Current()
	def, ok := m.cfg.graph.State(current)
	if !ok {
		return nil
	}

	var violations []string
	for _, devKey := range def.DeviceKeys() {
		b := def.Bindings[devKey]
		d := m.cfg.devices[devKey]
		switch {
		case !d.Connected():
			violations = append(violations, failure{devKey, ReasonDisconnected}.String())
		case !d.Homed():
			violations = append(violations, failure{devKey, ReasonNotHomed}.String())
		case !d.Within(b.Target, b.Low, b.High):
			violations = append(violations, failure{devKey, ReasonOutOfWindow}.String())
		}
	}
	return violations
}

// reachable returns the state keys reachable right now given status and
// selection, per the published semantics: everything the graph permits
// while Idle, only the initial state from FAULT, nothing while Busy or
// Disabled.
func (m *Machine) reachable() []string {
	if !m.isEnabled() {
		return nil
	}
	switch m.Status() {
	case StatusIdle:
		return m.cfg.graph.ReachableFrom()
	case StatusFault:
		return []string{m.cfg.graph.Initial()}
	default:
		return nil
	}
}

func (m *Machine) publish(c ipc.Channel, value string) {
	m.cfg.pub.Publish(c, value)
}

func (m *Machine) publishStatus() {
	st := m.Status()
	m.publish(ipc.Machine(m.cfg.name, ipc.FieldStatusSts), st.String())
	busy := "0"
	if st == StatusBusy {
		busy = "1"
	}
	m.publish(ipc.Machine(m.cfg.name, ipc.FieldBusySts), busy)
}

func (m *Machine) publishReachability() {
	reachable := m.reachable()
	if reachable == nil {
		reachable = []string{}
	}
	set := make(map[string]bool, len(reachable))
	for _, s := range reachable {
		set[s] = true
	}

	b, _ := json.Marshal(reachable)
	m.publish(ipc.Machine(m.cfg.name, ipc.FieldReachInfo), string(b))

	for _, s := range m.cfg.graph.States() {
		v := "0"
		if set[s] {
			v = "1"
		}
		m.publish(ipc.State(m.cfg.name, s, ipc.FieldReachSts), v)
	}

	current := m.cfg.graph.Current()
	idle := m.isEnabled() && m.Status() == StatusIdle
	for _, tr := range m.cfg.graph.Transitions() {
		v := "0"
		if idle && tr.From == current {
			v = "1"
		}
		m.publish(ipc.Transition(m.cfg.name, tr.From, tr.To, ipc.FieldReachSts), v)
	}
}

// publishSnapshot pushes the full machine-scope channel set. Status
// updates always happen after the underlying change is visible to reads.
func (m *Machine) publishSnapshot() {
	m.publishStatus()
	m.publish(ipc.Machine(m.cfg.name, ipc.FieldStateInfo), m.cfg.graph.Current())
	m.publish(ipc.Machine(m.cfg.name, ipc.FieldMsgInfo), m.Message())
	m.publishReachability()
}

func (m *Machine) initMetrics() error {
	var err error

	m.transitionsTotal, err = m.meter.Int64Counter(
		"governor_transitions_total",
		metric.WithDescription("Total number of executed transitions"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create transitions counter: %w", err)
	}

	m.transitionDuration, err = m.meter.Float64Histogram(
		"governor_transition_duration_seconds",
		metric.WithDescription("Duration of executed transitions"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return fmt.Errorf("failed to create transition duration histogram: %w", err)
	}

	m.transitionFailures, err = m.meter.Int64Counter(
		"governor_transition_failures_total",
		metric.WithDescription("Total number of failed transitions"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create transition failures counter: %w", err)
	}

	return nil
}
