package metrics

import (
	"time"

	"github.com/SprengerV/volume-analyzer/internal/domain"
)

// computeRecent counts events at or after cutoff. Events without a
// timestamp are never recent.
func computeRecent(events []domain.SwapEvent, cutoff time.Time) int {
	n := 0
	for _, e := range events {
		if ts, ok := e.Time(); ok && !ts.Before(cutoff) {
			n++
		}
	}
	return n
}

// computeWash counts, for every event, how many of the next WashLookahead
// events swap the same pair back. Amounts are ignored.
func computeWash(events []domain.SwapEvent) float64 {
	count := 0
	for i := range events {
		end := i + WashLookahead
		if end >= len(events) {
			end = len(events) - 1
		}
		for j := i + 1; j <= end; j++ {
			if events[j].Reverses(events[i]) {
				count++
			}
		}
	}
	return clamp01(float64(count) / float64(max(1, len(events))))
}

// computeRotation is distinct input mints over total events.
func computeRotation(events []domain.SwapEvent) float64 {
	mints := make(map[string]struct{})
	for _, e := range events {
		mints[e.InputMint] = struct{}{}
	}
	return ratio(len(mints), len(events))
}

// computeNet is (sum out - sum in) / max(1, sum out).
func computeNet(events []domain.SwapEvent) float64 {
	var in, out float64
	for _, e := range events {
		in += e.AmountIn
		out += e.AmountOut
	}
	denom := out
	if denom < 1 {
		denom = 1
	}
	return (out - in) / denom
}

// computeUniqueWallets is distinct account keys over total events, or
// fallback when no event carries account keys.
func computeUniqueWallets(events []domain.SwapEvent, fallback float64) float64 {
	keys := make(map[string]struct{})
	for _, e := range events {
		for _, k := range e.AccountKeys {
			keys[k] = struct{}{}
		}
	}
	if len(keys) == 0 {
		return fallback
	}
	return ratio(len(keys), len(events))
}

// ratio is n / total clamped to [0,1], and 0 when total is 0.
func ratio(n, total int) float64 {
	if total <= 0 {
		return 0
	}
	return clamp01(float64(n) / float64(total))
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
