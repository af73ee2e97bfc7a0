package monitor

import (
	"context"

	"github.com/SprengerV/volume-analyzer/internal/solana"
)

// WakeOnLogs returns a Wake function that subscribes to log notifications
// mentioning the address. Bursts of notifications collapse into one wake.
func WakeOnLogs(watcher solana.LogsWatcher, address string) func(ctx context.Context) <-chan struct{} {
	return func(ctx context.Context) <-chan struct{} {
		wake := make(chan struct{}, 1)
		notes := watcher.Watch(ctx, address)

		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case _, ok := <-notes:
					if !ok {
						return
					}
					select {
					case wake <- struct{}{}:
					default:
					}
				}
			}
		}()

		return wake
	}
}
