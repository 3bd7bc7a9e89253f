// SPDX-License-Identifier: BSD-3-Clause

package machine

import (
	"time"

	"github.com/Usernamejwle/governor/pkg/device"
	"github.com/Usernamejwle/governor/pkg/ipc"
	"github.com/Usernamejwle/governor/pkg/state"
	"github.com/Usernamejwle/governor/pkg/target"
)

// Defaults for the controller loop.
const (
	DefaultHoldInterval = 250 * time.Millisecond
	DefaultQueueSize    = 16
)

// Publisher pushes a channel value to the bus. Implementations must be
// safe for concurrent use; the controller publishes from its own
// goroutine and, for target updates, from the store updater.
type Publisher interface {
	Publish(c ipc.Channel, value string)
}

type config struct {
	name         string
	graph        *state.Graph
	devices      map[string]*device.Device
	store        *target.Store
	pub          Publisher
	holdInterval time.Duration
	queueSize    int
	enabled      bool
}

// Option configures a Machine.
type Option interface {
	apply(*config)
}

type nameOption string

func (o nameOption) apply(c *config) { c.name = string(o) }

// WithName sets the machine's configuration name.
func WithName(name string) Option { return nameOption(name) }

type graphOption struct{ g *state.Graph }

func (o graphOption) apply(c *config) { c.graph = o.g }

// WithGraph sets the compiled state graph.
func WithGraph(g *state.Graph) Option { return graphOption{g} }

type devicesOption map[string]*device.Device

func (o devicesOption) apply(c *config) { c.devices = o }

// WithDevices sets the machine's devices keyed by their short keys.
func WithDevices(devices map[string]*device.Device) Option { return devicesOption(devices) }

type storeOption struct{ s *target.Store }

func (o storeOption) apply(c *config) { c.store = o.s }

// WithStore sets the shared target store.
func WithStore(s *target.Store) Option { return storeOption{s} }

type publisherOption struct{ p Publisher }

func (o publisherOption) apply(c *config) { c.pub = o.p }

// WithPublisher sets the channel publisher.
func WithPublisher(p Publisher) Option { return publisherOption{p} }

type holdIntervalOption time.Duration

func (o holdIntervalOption) apply(c *config) { c.holdInterval = time.Duration(o) }

// WithHoldInterval overrides the held-state check interval.
func WithHoldInterval(d time.Duration) Option { return holdIntervalOption(d) }

type queueSizeOption int

func (o queueSizeOption) apply(c *config) { c.queueSize = int(o) }

// WithQueueSize overrides the command queue depth.
func WithQueueSize(n int) Option { return queueSizeOption(n) }

type enabledOption bool

func (o enabledOption) apply(c *config) { c.enabled = bool(o) }

// WithEnabled sets whether the machine starts as the active one.
func WithEnabled(enabled bool) Option { return enabledOption(enabled) }

func (c *config) validate() error {
	if c.name == "" || c.graph == nil || c.devices == nil || c.store == nil || c.pub == nil {
		return ErrInvalidConfig
	}
	if c.holdInterval <= 0 || c.queueSize <= 0 {
		return ErrInvalidConfig
	}
	return nil
}
