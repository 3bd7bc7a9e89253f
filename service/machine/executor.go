// SPDX-License-Identifier: BSD-3-Clause

package machine

import (
	"context"
	"time"

	"github.com/arunsworld/nursery"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Usernamejwle/governor/pkg/device"
	"github.com/Usernamejwle/governor/pkg/state"
)

// failure records one device that did not complete its move.
type failure struct {
	dev    string
	reason Reason
}

func (f failure) String() string {
	return f.dev + ": " + f.reason.String()
}

// execResult is what the executor hands back to the controller loop.
type execResult struct {
	tr       state.Transition
	dest     state.Definition
	failures []failure
	aborted  bool
	duration time.Duration
}

// execute drives the staged transition plan. Devices within a stage move
// concurrently; stages are barriers. On the first stage with failures the
// remaining stages are abandoned. The controller loop owns all status
// bookkeeping; execute only moves devices and classifies outcomes.
func (m *Machine) execute(ctx context.Context, tr state.Transition, dest state.Definition) execResult {
	ctx, span := m.tracer.Start(ctx, "machine.transition")
	span.SetAttributes(
		attribute.String("machine", m.cfg.name),
		attribute.String("transition.from", tr.From),
		attribute.String("transition.to", tr.To),
	)
	defer span.End()

	start := time.Now()
	res := execResult{tr: tr, dest: dest}

	for _, stage := range tr.Stages {
		failures := m.runStage(ctx, stage, dest)
		if len(failures) == 0 {
			continue
		}

		var hard []failure
		for _, f := range failures {
			if f.reason != ReasonAborted {
				hard = append(hard, f)
			}
		}
		if len(hard) == 0 && ctx.Err() != nil {
			res.aborted = true
		} else {
			res.failures = hard
		}
		break
	}

	res.duration = time.Since(start)
	return res
}

// runStage starts every device of the stage concurrently and waits for
// all of them to resolve. A failing device does not cancel its stage
// peers; once the stage has resolved, every device that did not complete
// cleanly gets a best-effort stop.
func (m *Machine) runStage(ctx context.Context, stage []string, dest state.Definition) []failure {
	results := make([]*Reason, len(stage))
	jobs := make([]nursery.ConcurrentJob, len(stage))
	for i, key := range stage {
		i, key := i, key
		d := m.cfg.devices[key]
		b := dest.Bindings[key]
		jobs[i] = func(ctx context.Context, _ chan error) {
			results[i] = m.moveDevice(ctx, d, b)
		}
	}
	_ = nursery.RunConcurrentlyWithContext(ctx, jobs...)

	var failures []failure
	for i, r := range results {
		if r == nil {
			continue
		}
		failures = append(failures, failure{dev: stage[i], reason: *r})
		if err := m.cfg.devices[stage[i]].Stop(); err != nil {
			m.logger.Warn("Failed to stop device after move failure", "device", stage[i], "error", err)
		}
	}
	return failures
}

// moveDevice supervises one device's move. Motors use the idle-timer
// discipline: the timeout runs only while no motion is observed and is
// reset by every moving sample, so slow but progressing motion never
// trips it. Valves get a single deadline bounding total travel. Returns
// nil on success.
func (m *Machine) moveDevice(ctx context.Context, d *device.Device, b state.Binding) *Reason {
	fail := func(r Reason) *Reason { return &r }

	if !d.Connected() {
		return fail(ReasonDisconnected)
	}
	if !d.Homed() {
		return fail(ReasonNotHomed)
	}
	if d.Kind() == device.KindMotor {
		if sp, ok := d.Target(b.Target); !ok || !d.InLimits(sp) {
			return fail(ReasonMissedTarget)
		}
	}

	if err := d.StartMove(b.Target); err != nil {
		m.logger.Warn("Move command failed", "device", d.Key(), "target", b.Target, "error", err)
		return fail(ReasonDisconnected)
	}
	if d.Kind() == device.KindDummy {
		return nil
	}

	resetOnMotion := d.Kind() == device.KindMotor
	deadline := time.Now().Add(d.Timeout())
	wasMoving := false
	settled := 0

	ticker := time.NewTicker(d.PollInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fail(ReasonAborted)
		case <-ticker.C:
		}

		if !d.Connected() {
			return fail(ReasonDisconnected)
		}
		if d.Moving() {
			wasMoving = true
			settled = 0
			if resetOnMotion {
				deadline = time.Now().Add(d.Timeout())
			}
			continue
		}
		if d.At(b.Target) {
			return nil
		}
		// A motor that was seen moving and has settled out of the target
		// window finished its move somewhere else. Allow a couple of
		// samples for the readback to settle before declaring that.
		if resetOnMotion && wasMoving {
			settled++
			if settled >= 3 {
				return fail(ReasonMissedTarget)
			}
		}
		if time.Now().After(deadline) {
			return fail(ReasonTimeout)
		}
	}
}
