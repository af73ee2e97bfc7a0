package monitor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SprengerV/volume-analyzer/internal/domain"
	"github.com/SprengerV/volume-analyzer/internal/solana"
	"github.com/SprengerV/volume-analyzer/internal/solana/stub"
)

// fakeWatcher emits on notify for every watched address.
type fakeWatcher struct {
	notify chan solana.LogNotification
}

func (w *fakeWatcher) Watch(ctx context.Context, _ string) <-chan solana.LogNotification {
	out := make(chan solana.LogNotification)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case n := <-w.notify:
				select {
				case out <- n:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

func newTestRegistry(t *testing.T, rpc solana.RPCClient, opts RegistryOptions) *Registry {
	t.Helper()
	opts.RPC = rpc
	if opts.Defaults.PollInterval == 0 {
		opts.Defaults.PollInterval = time.Hour
	}
	opts.Defaults.FetchDelay = -1
	r := NewRegistry(context.Background(), opts)
	t.Cleanup(r.StopAll)
	return r
}

func TestRegistry_OneMonitorPerAddress(t *testing.T) {
	r := newTestRegistry(t, stub.NewRPCClient(), RegistryOptions{})

	m, err := r.Start(addrA)
	require.NoError(t, err)
	assert.True(t, m.Running())

	_, err = r.Start(addrA)
	assert.ErrorIs(t, err, ErrAlreadyRunning)

	got, ok := r.Get(addrA)
	require.True(t, ok)
	assert.Same(t, m, got)
}

func TestRegistry_StopRestartRemove(t *testing.T) {
	r := newTestRegistry(t, stub.NewRPCClient(), RegistryOptions{})

	_, err := r.Stop(addrA)
	assert.ErrorIs(t, err, ErrNotRunning)
	assert.ErrorIs(t, r.Remove(addrA), ErrNotRunning)

	m, err := r.Start(addrA)
	require.NoError(t, err)
	stopped, err := r.Stop(addrA)
	require.NoError(t, err)
	assert.Same(t, m, stopped)
	assert.False(t, m.Running())
	_, err = r.Stop(addrA)
	assert.ErrorIs(t, err, ErrNotRunning)

	again, err := r.Start(addrA)
	require.NoError(t, err)
	assert.Same(t, m, again)
	assert.True(t, again.Running())

	require.NoError(t, r.Remove(addrA))
	assert.False(t, m.Running())
	_, ok := r.Get(addrA)
	assert.False(t, ok)
}

func TestRegistry_StopReturnsMonitorAfterRemove(t *testing.T) {
	r := newTestRegistry(t, stub.NewRPCClient(), RegistryOptions{})

	_, err := r.Start(addrA)
	require.NoError(t, err)

	stopped, err := r.Stop(addrA)
	require.NoError(t, err)
	require.NoError(t, r.Remove(addrA))

	_, ok := r.Get(addrA)
	assert.False(t, ok)
	st := stopped.State()
	assert.Equal(t, addrA, st.Address)
	assert.False(t, st.Running)
}

func TestRegistry_ListAndStopAll(t *testing.T) {
	r := newTestRegistry(t, stub.NewRPCClient(), RegistryOptions{})

	_, err := r.Start(addrB)
	require.NoError(t, err)
	_, err = r.Start(addrA)
	require.NoError(t, err)

	states := r.List()
	require.Len(t, states, 2)
	assert.Equal(t, addrA, states[0].Address)
	assert.Equal(t, addrB, states[1].Address)
	assert.True(t, states[0].Running)

	r.StopAll()
	for _, st := range r.List() {
		assert.False(t, st.Running)
	}
}

func TestRegistry_InvalidAddress(t *testing.T) {
	r := newTestRegistry(t, stub.NewRPCClient(), RegistryOptions{})
	_, err := r.Start("0OIl")
	assert.ErrorIs(t, err, solana.ErrInvalidAddress)
	assert.Empty(t, r.List())
}

func TestRegistry_EventsAndObservers(t *testing.T) {
	rpc := newScriptedRPC([]string{}, []string{"S1"})
	addSwap(rpc.RPCClient, "S1")

	shared := NewChannelObserver(16)
	own := NewChannelObserver(16)
	r := newTestRegistry(t, rpc, RegistryOptions{Observer: shared, EventBuffer: 4})

	_, err := r.Start(addrA, own)
	require.NoError(t, err)

	nextEvent(t, own.Events(), domain.EventActivity)
	nextEvent(t, shared.Events(), domain.EventActivity)

	events, ok := r.Events(addrA)
	require.True(t, ok)
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventActivity, events[0].Kind())

	_, ok = r.Events(addrB)
	assert.False(t, ok)
}

func TestRegistry_WakesOnLogs(t *testing.T) {
	rpc := newScriptedRPC([]string{"S1"})
	addSwap(rpc.RPCClient, "S2")
	watcher := &fakeWatcher{notify: make(chan solana.LogNotification)}

	shared := NewChannelObserver(16)
	r := newTestRegistry(t, rpc, RegistryOptions{Observer: shared, Watcher: watcher})

	m, err := r.Start(addrA)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return m.State().Polls >= 1 }, time.Second, 5*time.Millisecond)

	rpc.setPages([]string{"S2", "S1"})
	watcher.notify <- solana.LogNotification{Signature: "S2"}

	ev := nextEvent(t, shared.Events(), domain.EventActivity).(domain.ActivityEvent)
	assert.Equal(t, "S2", ev.Swap.TxSignature)
}
