// Package metrics computes behavioral statistics over a window of swaps.
package metrics

import (
	"sort"
	"time"

	"github.com/SprengerV/volume-analyzer/internal/domain"
)

// RecentWindow is the trailing sub-window used for dominance.
const RecentWindow = time.Hour

// WashLookahead is how many following swaps are searched for a reversal.
const WashLookahead = 5

// Aggregate computes Stats over events, which must be sorted by time
// ascending, using a one hour recent window ending at now.
func Aggregate(events []domain.SwapEvent, now time.Time) domain.Stats {
	return AggregateWindow(events, now, RecentWindow)
}

// AggregateWindow is Aggregate with an explicit recent window.
// An empty input yields zero Stats.
func AggregateWindow(events []domain.SwapEvent, now time.Time, window time.Duration) domain.Stats {
	total := len(events)
	if total == 0 {
		return domain.Stats{}
	}

	recent := computeRecent(events, now.Add(-window))
	rotation := computeRotation(events)

	return domain.Stats{
		Total:              total,
		Recent:             recent,
		Wash:               computeWash(events),
		Rotation:           rotation,
		Dominance:          ratio(recent, total),
		Net:                computeNet(events),
		UniqueWalletsRatio: computeUniqueWallets(events, rotation),
	}
}

// SortByTime returns a copy of events ordered by timestamp ascending.
// Events without a timestamp come first; ties keep their input order.
func SortByTime(events []domain.SwapEvent) []domain.SwapEvent {
	sorted := make([]domain.SwapEvent, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		ti, tj := sorted[i].Timestamp, sorted[j].Timestamp
		switch {
		case ti == nil:
			return tj != nil
		case tj == nil:
			return false
		}
		return *ti < *tj
	})
	return sorted
}
