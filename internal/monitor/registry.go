package monitor

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/SprengerV/volume-analyzer/internal/domain"
	"github.com/SprengerV/volume-analyzer/internal/solana"
)

// Registry errors.
var (
	ErrAlreadyRunning = errors.New("monitor already running")
	ErrNotRunning     = errors.New("monitor not running")
)

// DefaultEventBuffer is how many recent events the registry keeps per monitor.
const DefaultEventBuffer = 100

// RegistryOptions configures a Registry.
type RegistryOptions struct {
	RPC solana.RPCClient

	// Defaults apply to every monitor; Address is ignored.
	Defaults Config

	// Observer receives the events of every monitor, after any
	// per-monitor observers passed to Start.
	Observer Observer

	// Watcher, if set, wakes monitors on log notifications.
	Watcher solana.LogsWatcher

	EventBuffer int
	Logger      logrus.FieldLogger
	Now         func() time.Time
}

type entry struct {
	monitor *Monitor
	buffer  *EventBuffer
}

// Registry owns the monitors of a process, at most one per address.
// Monitors run under the context passed to NewRegistry.
type Registry struct {
	opts RegistryOptions
	ctx  context.Context

	mu      sync.Mutex
	entries map[string]*entry
}

// NewRegistry creates a Registry whose monitors stop when ctx is done.
func NewRegistry(ctx context.Context, opts RegistryOptions) *Registry {
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = DefaultEventBuffer
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	return &Registry{
		opts:    opts,
		ctx:     ctx,
		entries: make(map[string]*entry),
	}
}

// Start starts monitoring address. A stopped monitor for the same address
// is restarted with a fresh cursor and keeps the observers it was first
// registered with. Returns ErrAlreadyRunning if a monitor for address is
// running.
func (r *Registry) Start(address string, observers ...Observer) (*Monitor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.entries[address]; ok {
		if e.monitor.Running() {
			return nil, fmt.Errorf("%s: %w", address, ErrAlreadyRunning)
		}
		e.monitor.Start(r.ctx)
		return e.monitor, nil
	}

	buffer := NewEventBuffer(r.opts.EventBuffer)
	chain := MultiObserver{buffer}
	chain = append(chain, observers...)
	if r.opts.Observer != nil {
		chain = append(chain, r.opts.Observer)
	}

	cfg := r.opts.Defaults
	cfg.Address = address
	opts := Options{
		Config:   cfg,
		RPC:      r.opts.RPC,
		Observer: chain,
		Logger:   r.opts.Logger,
		Now:      r.opts.Now,
	}
	if r.opts.Watcher != nil {
		opts.Wake = WakeOnLogs(r.opts.Watcher, address)
	}

	m, err := New(opts)
	if err != nil {
		return nil, err
	}
	r.entries[address] = &entry{monitor: m, buffer: buffer}
	m.Start(r.ctx)
	return m, nil
}

// Stop stops the monitor of address but keeps it registered, and returns
// the stopped monitor. Returns ErrNotRunning if there is no running monitor
// for address.
func (r *Registry) Stop(address string) (*Monitor, error) {
	r.mu.Lock()
	e, ok := r.entries[address]
	r.mu.Unlock()

	if !ok || !e.monitor.Running() {
		return nil, fmt.Errorf("%s: %w", address, ErrNotRunning)
	}
	e.monitor.Stop()
	return e.monitor, nil
}

// Remove stops the monitor of address and forgets it.
// Returns ErrNotRunning if address is not registered.
func (r *Registry) Remove(address string) error {
	r.mu.Lock()
	e, ok := r.entries[address]
	delete(r.entries, address)
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("%s: %w", address, ErrNotRunning)
	}
	e.monitor.Stop()
	return nil
}

// Get returns the monitor registered for address.
func (r *Registry) Get(address string) (*Monitor, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[address]
	if !ok {
		return nil, false
	}
	return e.monitor, true
}

// Events returns the recent events of a registered monitor, oldest first.
func (r *Registry) Events(address string) ([]domain.Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[address]
	if !ok {
		return nil, false
	}
	return e.buffer.Snapshot(), true
}

// List returns the state of every registered monitor ordered by address.
func (r *Registry) List() []State {
	r.mu.Lock()
	states := make([]State, 0, len(r.entries))
	for _, e := range r.entries {
		states = append(states, e.monitor.State())
	}
	r.mu.Unlock()

	sort.Slice(states, func(i, j int) bool {
		return states[i].Address < states[j].Address
	})
	return states
}

// StopAll stops every monitor concurrently and waits for them.
func (r *Registry) StopAll() {
	r.mu.Lock()
	monitors := make([]*Monitor, 0, len(r.entries))
	for _, e := range r.entries {
		monitors = append(monitors, e.monitor)
	}
	r.mu.Unlock()

	var wg sync.WaitGroup
	for _, m := range monitors {
		wg.Add(1)
		go func(m *Monitor) {
			defer wg.Done()
			m.Stop()
		}(m)
	}
	wg.Wait()
}
