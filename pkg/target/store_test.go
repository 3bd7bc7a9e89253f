// SPDX-License-Identifier: BSD-3-Clause

package target_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Usernamejwle/governor/pkg/device"
	"github.com/Usernamejwle/governor/pkg/target"
)

func newDummy(t *testing.T, key string, positions map[string]float64) *device.Device {
	t.Helper()
	d, err := device.New(
		device.WithKey(key),
		device.WithKind(device.KindDummy),
		device.WithPositions(positions),
	)
	require.NoError(t, err)
	return d
}

type recorder struct {
	mu      sync.Mutex
	updates []target.Update
}

func (r *recorder) record(u target.Update) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, u)
}

func (r *recorder) snapshot() []target.Update {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]target.Update(nil), r.updates...)
}

func startStore(t *testing.T, s *target.Store) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func TestSetAppliesAndNotifies(t *testing.T) {
	s := target.New()
	s.Register("Human", map[string]*device.Device{
		"li": newDummy(t, "li", map[string]float64{"Up": 0}),
	})
	rec := &recorder{}
	s.Subscribe(rec.record)
	startStore(t, s)

	require.NoError(t, s.Set(context.Background(), "Human", "li", "Up", 7))

	v, ok := s.Get("Human", "li", "Up")
	require.True(t, ok)
	assert.Equal(t, 7.0, v)
	assert.Equal(t, []target.Update{{Machine: "Human", Device: "li", Target: "Up", Value: 7}}, rec.snapshot())
}

func TestSyncFanOut(t *testing.T) {
	s := target.New(target.WithSyncMap(map[string][]string{"li": {"Up"}}))
	s.Register("Human", map[string]*device.Device{
		"li": newDummy(t, "li", map[string]float64{"Up": 0, "Down": -100}),
	})
	s.Register("Robot", map[string]*device.Device{
		"li": newDummy(t, "li", map[string]float64{"Up": 0, "Down": -100}),
	})
	rec := &recorder{}
	s.Subscribe(rec.record)
	startStore(t, s)

	require.NoError(t, s.Set(context.Background(), "Human", "li", "Up", 7))

	for _, m := range []string{"Human", "Robot"} {
		v, ok := s.Get(m, "li", "Up")
		require.True(t, ok, m)
		assert.Equal(t, 7.0, v, m)
	}
	assert.Len(t, rec.snapshot(), 2, "one local write plus one fan-out")

	// Down is not in the sync map; the peer keeps its own value.
	require.NoError(t, s.Set(context.Background(), "Robot", "li", "Down", -42))
	v, _ := s.Get("Human", "li", "Down")
	assert.Equal(t, -100.0, v)
}

func TestSyncSkipsMachinesWithoutCell(t *testing.T) {
	s := target.New(target.WithSyncMap(map[string][]string{"bs": {"In"}}))
	s.Register("Human", map[string]*device.Device{
		"bs": newDummy(t, "bs", map[string]float64{"In": 0}),
	})
	s.Register("Robot", map[string]*device.Device{
		"li": newDummy(t, "li", map[string]float64{"Up": 0}),
	})
	startStore(t, s)

	require.NoError(t, s.Set(context.Background(), "Human", "bs", "In", 3))
	v, ok := s.Get("Human", "bs", "In")
	require.True(t, ok)
	assert.Equal(t, 3.0, v)
}

func TestSetUnknownCell(t *testing.T) {
	s := target.New()
	s.Register("Human", map[string]*device.Device{
		"li": newDummy(t, "li", map[string]float64{"Up": 0}),
	})
	startStore(t, s)

	require.ErrorIs(t, s.Set(context.Background(), "Ghost", "li", "Up", 1), target.ErrUnknownMachine)
	require.ErrorIs(t, s.Set(context.Background(), "Human", "bs", "In", 1), target.ErrUnknownDevice)
	require.ErrorIs(t, s.Set(context.Background(), "Human", "li", "Sideways", 1), device.ErrUnknownTarget)
}

func TestConcurrentWritersSerialize(t *testing.T) {
	s := target.New(target.WithSyncMap(map[string][]string{"li": {"Up"}}))
	s.Register("Human", map[string]*device.Device{
		"li": newDummy(t, "li", map[string]float64{"Up": 0}),
	})
	s.Register("Robot", map[string]*device.Device{
		"li": newDummy(t, "li", map[string]float64{"Up": 0}),
	})
	startStore(t, s)

	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Set(context.Background(), "Human", "li", "Up", float64(i))
		}()
	}
	wg.Wait()

	// Whatever write won, both machines agree once the updater drained.
	require.Eventually(t, func() bool {
		a, _ := s.Get("Human", "li", "Up")
		b, _ := s.Get("Robot", "li", "Up")
		return a == b
	}, time.Second, 10*time.Millisecond)
}
