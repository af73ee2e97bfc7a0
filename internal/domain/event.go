package domain

import "time"

// EventKind identifies a live monitor event.
type EventKind string

// Monitor event kinds.
const (
	EventActivity EventKind = "BOT_ACTIVITY"
	EventSilence  EventKind = "BOT_SILENCE"
	EventError    EventKind = "ERROR"
)

// Event is emitted by a live monitor. It is one of ActivityEvent,
// SilenceEvent or ErrorEvent.
type Event interface {
	Kind() EventKind
	MonitorAddress() string
	OccurredAt() time.Time
	isEvent()
}

// ActivityEvent carries one swap found in a new transaction.
type ActivityEvent struct {
	Address string    `json:"address"`
	At      time.Time `json:"at"`
	Swap    SwapEvent `json:"swap"`
}

// SilenceEvent reports how long the address has had no swaps.
type SilenceEvent struct {
	Address      string    `json:"address"`
	At           time.Time `json:"at"`
	SinceSeconds int64     `json:"since_seconds"`
}

// ErrorEvent reports a failed poll. The monitor keeps running.
type ErrorEvent struct {
	Address string    `json:"address"`
	At      time.Time `json:"at"`
	Message string    `json:"message"`
}

func (ActivityEvent) Kind() EventKind { return EventActivity }
func (SilenceEvent) Kind() EventKind  { return EventSilence }
func (ErrorEvent) Kind() EventKind    { return EventError }

func (e ActivityEvent) MonitorAddress() string { return e.Address }
func (e SilenceEvent) MonitorAddress() string  { return e.Address }
func (e ErrorEvent) MonitorAddress() string    { return e.Address }

func (e ActivityEvent) OccurredAt() time.Time { return e.At }
func (e SilenceEvent) OccurredAt() time.Time  { return e.At }
func (e ErrorEvent) OccurredAt() time.Time    { return e.At }

func (ActivityEvent) isEvent() {}
func (SilenceEvent) isEvent()  {}
func (ErrorEvent) isEvent()    {}
