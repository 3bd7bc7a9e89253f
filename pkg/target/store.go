// SPDX-License-Identifier: BSD-3-Clause

package target

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/Usernamejwle/governor/pkg/device"
)

// Update describes one applied setpoint write, including sync fan-outs.
type Update struct {
	Machine string
	Device  string
	Target  string
	Value   float64
}

// Subscriber observes applied writes. Called from the updater goroutine
// after the value is visible; implementations must not call back into
// Set.
type Subscriber func(Update)

type request struct {
	machine string
	dev     string
	target  string
	value   float64
	fanned  bool
	reply   chan error
}

type config struct {
	syncMap   map[string][]string
	queueSize int
}

// Option configures a Store.
type Option interface {
	apply(*config)
}

type syncMapOption map[string][]string

func (o syncMapOption) apply(c *config) { c.syncMap = o }

// WithSyncMap sets the DeviceKey to TargetName list map whose cells are
// shared across machines.
func WithSyncMap(m map[string][]string) Option { return syncMapOption(m) }

type queueSizeOption int

func (o queueSizeOption) apply(c *config) { c.queueSize = int(o) }

// WithQueueSize overrides the write queue depth.
func WithQueueSize(n int) Option { return queueSizeOption(n) }

// Store serializes all target setpoint writes of the process and applies
// the sync map.
type Store struct {
	req  chan request
	done chan struct{}

	mu       sync.RWMutex
	machines map[string]map[string]*device.Device
	order    []string

	shared map[string]map[string]bool

	subMu sync.RWMutex
	subs  []Subscriber
}

// New creates a target store from the provided options.
func New(opts ...Option) *Store {
	cfg := config{queueSize: 64}
	for _, opt := range opts {
		opt.apply(&cfg)
	}

	shared := make(map[string]map[string]bool, len(cfg.syncMap))
	for dev, targets := range cfg.syncMap {
		set := make(map[string]bool, len(targets))
		for _, t := range targets {
			set[t] = true
		}
		shared[dev] = set
	}

	return &Store{
		req:      make(chan request, cfg.queueSize),
		done:     make(chan struct{}),
		machines: make(map[string]map[string]*device.Device),
		shared:   shared,
	}
}

// Register adds a machine's devices to the store. Must be called before
// Run; machines are fanned out to in sorted name order.
func (s *Store) Register(machine string, devices map[string]*device.Device) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.machines[machine]; !ok {
		s.order = append(s.order, machine)
		sort.Strings(s.order)
	}
	s.machines[machine] = devices
}

// Subscribe registers an observer for applied writes.
func (s *Store) Subscribe(fn Subscriber) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.subs = append(s.subs, fn)
}

// Synced reports whether a (device key, target name) cell is in the sync
// map.
func (s *Store) Synced(dev, target string) bool {
	set, ok := s.shared[dev]
	return ok && set[target]
}

// Get reads a cell's current value directly from the owning device.
func (s *Store) Get(machine, dev, target string) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	devs, ok := s.machines[machine]
	if !ok {
		return 0, false
	}
	d, ok := devs[dev]
	if !ok {
		return 0, false
	}
	return d.Target(target)
}

// Set enqueues a setpoint write and blocks until it has been applied,
// including any sync fan-out. Returns an error if the cell does not
// exist or the store has stopped.
func (s *Store) Set(ctx context.Context, machine, dev, target string, value float64) error {
	r := request{machine: machine, dev: dev, target: target, value: value, reply: make(chan error, 1)}
	select {
	case s.req <- r:
	case <-s.done:
		return ErrStoreClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-r.reply:
		return err
	case <-s.done:
		return ErrStoreClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run drains the write queue until the context is canceled. Exactly one
// Run per store.
func (s *Store) Run(ctx context.Context) error {
	defer close(s.done)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case r := <-s.req:
			r.reply <- s.apply(r)
		}
	}
}

func (s *Store) apply(r request) error {
	s.mu.RLock()
	devs, ok := s.machines[r.machine]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownMachine, r.machine)
	}
	d, ok := devs[r.dev]
	if !ok {
		return fmt.Errorf("%w: %s on %s", ErrUnknownDevice, r.dev, r.machine)
	}

	if err := d.SetTarget(r.target, r.value); err != nil {
		return err
	}
	s.notify(Update{Machine: r.machine, Device: r.dev, Target: r.target, Value: r.value})

	// Single-origin synchronization: only the write that entered from
	// outside fans out, peers receive the value already flagged.
	if r.fanned || !s.Synced(r.dev, r.target) {
		return nil
	}

	s.mu.RLock()
	order := append([]string(nil), s.order...)
	s.mu.RUnlock()

	for _, peer := range order {
		if peer == r.machine {
			continue
		}
		s.mu.RLock()
		pd, ok := s.machines[peer][r.dev]
		s.mu.RUnlock()
		if !ok {
			continue
		}
		if _, ok := pd.Target(r.target); !ok {
			continue
		}
		if err := pd.SetTarget(r.target, r.value); err != nil {
			return err
		}
		s.notify(Update{Machine: peer, Device: r.dev, Target: r.target, Value: r.value})
	}
	return nil
}

func (s *Store) notify(u Update) {
	s.subMu.RLock()
	subs := append([]Subscriber(nil), s.subs...)
	s.subMu.RUnlock()
	for _, fn := range subs {
		fn(u)
	}
}
