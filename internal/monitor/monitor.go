// Package monitor polls an address for new transactions and emits
// activity, silence and error events as they happen.
package monitor

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/SprengerV/volume-analyzer/internal/domain"
	"github.com/SprengerV/volume-analyzer/internal/observability"
	"github.com/SprengerV/volume-analyzer/internal/solana"
	"github.com/SprengerV/volume-analyzer/internal/swaps"
)

// Defaults.
const (
	DefaultPollInterval     = 8 * time.Second
	DefaultHistory          = 200
	DefaultSilenceThreshold = 300 * time.Second
	DefaultFetchDelay       = 80 * time.Millisecond
	DefaultMaxFetchAttempts = 3

	// stopTimeout bounds how long Stop waits for the loop to exit.
	stopTimeout = 2 * time.Second
)

// Config holds the per-address monitor settings.
type Config struct {
	Address          string
	PollInterval     time.Duration
	History          int           // signatures listed per poll
	SilenceThreshold time.Duration // no-swap span after which silence is reported
	FetchDelay       time.Duration // minimum spacing of GetTransaction calls; negative disables
	MaxFetchAttempts int           // consecutive failures before a signature is skipped
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.History <= 0 {
		c.History = DefaultHistory
	}
	if c.SilenceThreshold <= 0 {
		c.SilenceThreshold = DefaultSilenceThreshold
	}
	if c.FetchDelay == 0 {
		c.FetchDelay = DefaultFetchDelay
	}
	if c.MaxFetchAttempts <= 0 {
		c.MaxFetchAttempts = DefaultMaxFetchAttempts
	}
	return c
}

// Options for creating a Monitor.
type Options struct {
	Config

	RPC      solana.RPCClient
	Observer Observer

	// Wake, if set, is called with the run context when the loop starts.
	// A receive on the returned channel cuts the current sleep short.
	Wake func(ctx context.Context) <-chan struct{}

	Logger logrus.FieldLogger
	Now    func() time.Time
}

// State is a point-in-time snapshot of a monitor.
type State struct {
	Address      string     `json:"address"`
	Running      bool       `json:"running"`
	LastSeen     string     `json:"last_seen,omitempty"`
	LastActivity *time.Time `json:"last_activity,omitempty"`
	StartedAt    time.Time  `json:"started_at"`
	Polls        int64      `json:"polls"`
	Events       int64      `json:"events"`
}

// Monitor is a live session for one address. The cursor and last activity
// live inside the polling goroutine and reset on every Start.
type Monitor struct {
	cfg      Config
	rpc      solana.RPCClient
	observer Observer
	wake     func(ctx context.Context) <-chan struct{}
	logger   logrus.FieldLogger
	now      func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	state atomic.Pointer[State]
}

// New creates a Monitor. The address is validated up front.
func New(opts Options) (*Monitor, error) {
	if _, err := solana.ClassifyAddress(opts.Address); err != nil {
		return nil, err
	}
	if opts.RPC == nil {
		return nil, fmt.Errorf("monitor %s: rpc client is required", opts.Address)
	}

	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	observer := opts.Observer
	if observer == nil {
		observer = ObserverFunc(func(domain.Event) {})
	}

	m := &Monitor{
		cfg:      opts.Config.withDefaults(),
		rpc:      opts.RPC,
		observer: observer,
		wake:     opts.Wake,
		logger:   logger.WithField("address", opts.Address),
		now:      now,
	}
	m.state.Store(&State{Address: opts.Address})
	return m, nil
}

// Address returns the monitored address.
func (m *Monitor) Address() string {
	return m.cfg.Address
}

// Config returns the effective configuration.
func (m *Monitor) Config() Config {
	return m.cfg
}

// Start launches the polling loop. It is a no-op returning false while the
// loop is already running. The loop ends when ctx is done or Stop is called.
func (m *Monitor) Start(ctx context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.runningLocked() {
		return false
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	m.cancel = cancel
	m.done = done

	m.state.Store(&State{
		Address:   m.cfg.Address,
		Running:   true,
		StartedAt: m.now(),
	})
	observability.MonitorStarted()
	m.logger.WithField("poll_interval", m.cfg.PollInterval).Info("monitor started")

	go m.run(runCtx, done)
	return true
}

// Stop cancels the loop and waits up to two seconds for it to exit.
// Safe to call on a monitor that was never started.
func (m *Monitor) Stop() {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel = nil
	m.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()

	select {
	case <-done:
	case <-time.After(stopTimeout):
		m.logger.Warn("monitor did not stop in time")
	}
}

// Running reports whether the polling loop is active.
func (m *Monitor) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.runningLocked()
}

func (m *Monitor) runningLocked() bool {
	if m.done == nil {
		return false
	}
	select {
	case <-m.done:
		return false
	default:
		return true
	}
}

// Done returns a channel closed when the current run exits, or nil if the
// monitor was never started.
func (m *Monitor) Done() <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.done
}

// State returns a snapshot of the monitor.
func (m *Monitor) State() State {
	return *m.state.Load()
}

// cursor is the loop-local progress of one run.
type cursor struct {
	lastSeen     string
	lastActivity time.Time
	active       bool // lastActivity is set

	failing  string // signature whose fetch failed last
	failures int    // consecutive failures of failing
}

// fetchFailed records a failed fetch of sig and reports whether the
// signature should be skipped.
func (c *cursor) fetchFailed(sig string, limit int) bool {
	if c.failing != sig {
		c.failing, c.failures = sig, 0
	}
	c.failures++
	if c.failures < limit {
		return false
	}
	c.failing, c.failures = "", 0
	return true
}

func (m *Monitor) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer observability.MonitorStopped()
	defer func() {
		st := m.State()
		st.Running = false
		m.state.Store(&st)
		m.logger.Info("monitor stopped")
	}()

	var wake <-chan struct{}
	if m.wake != nil {
		wake = m.wake(ctx)
	}

	var limiter *rate.Limiter
	if m.cfg.FetchDelay > 0 {
		limiter = rate.NewLimiter(rate.Every(m.cfg.FetchDelay), 1)
	}

	cur := &cursor{}
	m.initCursor(ctx, cur)

	for {
		m.poll(ctx, cur, limiter)
		if ctx.Err() != nil {
			return
		}
		if !m.sleep(ctx, wake) {
			return
		}
	}
}

// initCursor sets the cursor to the newest existing signature so that only
// transactions after Start are reported.
func (m *Monitor) initCursor(ctx context.Context, cur *cursor) {
	sigs, err := m.rpc.GetSignaturesForAddress(ctx, m.cfg.Address, &solana.SignaturesOpts{Limit: 1})
	if err != nil {
		if ctx.Err() == nil {
			m.emitError(fmt.Errorf("initialize cursor: %w", err))
		}
		return
	}
	if len(sigs) > 0 {
		cur.lastSeen = sigs[0].Signature
	}
	m.publish(cur, false)
}

// poll runs one iteration: list, process new signatures oldest first,
// advance the cursor, check for silence.
func (m *Monitor) poll(ctx context.Context, cur *cursor, limiter *rate.Limiter) {
	observability.RecordMonitorPoll()
	defer m.publish(cur, true)

	sigs, err := m.rpc.GetSignaturesForAddress(ctx, m.cfg.Address, &solana.SignaturesOpts{Limit: m.cfg.History})
	if err != nil {
		if ctx.Err() == nil {
			m.emitError(fmt.Errorf("list signatures: %w", err))
		}
		return
	}

	if len(sigs) > 0 {
		fresh := newSignatures(sigs, cur.lastSeen)
		for i := len(fresh) - 1; i >= 0; i-- {
			sig := fresh[i]
			if limiter != nil {
				if err := limiter.Wait(ctx); err != nil {
					return
				}
			}

			tx, err := m.rpc.GetTransaction(ctx, sig)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				if !cur.fetchFailed(sig, m.cfg.MaxFetchAttempts) {
					// the rest of the page is retried next poll
					m.emitError(fmt.Errorf("fetch transaction %s: %w", sig, err))
					return
				}
				// treated as an absent transaction from here on
				m.emitError(fmt.Errorf("fetch transaction %s: skipped after %d attempts: %w",
					sig, m.cfg.MaxFetchAttempts, err))
				cur.lastSeen = sig
				continue
			}
			if cur.failing == sig {
				cur.failing, cur.failures = "", 0
			}

			found := swaps.Extract(tx)
			if len(found) > 0 {
				cur.lastActivity = m.now()
				cur.active = true
				for _, s := range found {
					m.emit(domain.ActivityEvent{Address: m.cfg.Address, At: m.now(), Swap: s})
				}
			}
			cur.lastSeen = sig
		}
		cur.lastSeen = sigs[0].Signature
	}

	if cur.active {
		now := m.now()
		if silent := now.Sub(cur.lastActivity); silent > m.cfg.SilenceThreshold {
			m.emit(domain.SilenceEvent{
				Address:      m.cfg.Address,
				At:           now,
				SinceSeconds: int64(silent / time.Second),
			})
		}
	}
}

// newSignatures returns the signatures of page (newest first) that come
// before lastSeen. An empty or absent lastSeen makes the whole page new.
func newSignatures(page []solana.SignatureInfo, lastSeen string) []string {
	fresh := make([]string, 0, len(page))
	for _, s := range page {
		if lastSeen != "" && s.Signature == lastSeen {
			break
		}
		fresh = append(fresh, s.Signature)
	}
	return fresh
}

// sleep waits one poll interval. It returns false when ctx is done.
func (m *Monitor) sleep(ctx context.Context, wake <-chan struct{}) bool {
	timer := time.NewTimer(m.cfg.PollInterval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	case <-wake:
		m.logger.Debug("woken by log notification")
		return true
	}
}

func (m *Monitor) emitError(err error) {
	m.logger.WithError(err).Warn("monitor poll failed")
	m.emit(domain.ErrorEvent{Address: m.cfg.Address, At: m.now(), Message: err.Error()})
}

// emit delivers ev to the observer. A panicking observer is logged and
// does not affect the loop.
func (m *Monitor) emit(ev domain.Event) {
	observability.RecordMonitorEvent(string(ev.Kind()))
	st := m.State()
	st.Events++
	m.state.Store(&st)

	defer func() {
		if r := recover(); r != nil {
			m.logger.WithField("panic", r).Error("observer panicked")
		}
	}()
	m.observer.OnEvent(ev)
}

// publish refreshes the state snapshot from the loop-local cursor.
func (m *Monitor) publish(cur *cursor, polled bool) {
	st := m.State()
	st.LastSeen = cur.lastSeen
	if cur.active {
		at := cur.lastActivity
		st.LastActivity = &at
	}
	if polled {
		st.Polls++
	}
	m.state.Store(&st)
}
