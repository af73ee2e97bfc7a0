// Package eventsink forwards monitor events to external brokers as JSON.
package eventsink

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/SprengerV/volume-analyzer/internal/domain"
	"github.com/SprengerV/volume-analyzer/internal/monitor"
	"github.com/SprengerV/volume-analyzer/internal/observability"
)

// DefaultPublishTimeout bounds a single publish.
const DefaultPublishTimeout = 5 * time.Second

// Publisher delivers one event to a broker.
type Publisher interface {
	Publish(ctx context.Context, ev domain.Event) error
	Name() string
	Close() error
}

// Envelope is the JSON shape written to every sink.
type Envelope struct {
	Kind    domain.EventKind `json:"kind"`
	Address string           `json:"address"`
	At      time.Time        `json:"at"`
	Event   domain.Event     `json:"event"`
}

// Encode renders ev as an Envelope.
func Encode(ev domain.Event) ([]byte, error) {
	data, err := json.Marshal(Envelope{
		Kind:    ev.Kind(),
		Address: ev.MonitorAddress(),
		At:      ev.OccurredAt().UTC(),
		Event:   ev,
	})
	if err != nil {
		return nil, fmt.Errorf("encode %s event: %w", ev.Kind(), err)
	}
	return data, nil
}

// Async adapts Publishers to monitor.Observer. Events are queued and
// published by a background goroutine so a slow broker never stalls a
// monitor; when the queue is full the event is dropped.
type Async struct {
	publishers []Publisher
	queue      chan domain.Event
	timeout    time.Duration
	logger     logrus.FieldLogger

	closeOnce sync.Once
	done      chan struct{}
}

// Compile-time interface check.
var _ monitor.Observer = (*Async)(nil)

// AsyncOptions configures Async.
type AsyncOptions struct {
	Buffer  int           // queue size, default 256
	Timeout time.Duration // per publish, default DefaultPublishTimeout
	Logger  logrus.FieldLogger
}

// NewAsync starts the publishing goroutine.
func NewAsync(opts AsyncOptions, publishers ...Publisher) *Async {
	if opts.Buffer <= 0 {
		opts.Buffer = 256
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultPublishTimeout
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}

	a := &Async{
		publishers: publishers,
		queue:      make(chan domain.Event, opts.Buffer),
		timeout:    opts.Timeout,
		logger:     opts.Logger,
		done:       make(chan struct{}),
	}
	go a.loop()
	return a
}

// OnEvent queues ev for publishing.
func (a *Async) OnEvent(ev domain.Event) {
	select {
	case a.queue <- ev:
	default:
		observability.RecordEventDropped()
		a.logger.WithField("kind", ev.Kind()).Warn("event sink queue full, dropping event")
	}
}

func (a *Async) loop() {
	defer close(a.done)
	for ev := range a.queue {
		for _, p := range a.publishers {
			ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
			err := p.Publish(ctx, ev)
			cancel()
			if err != nil {
				observability.RecordSinkError(p.Name())
				a.logger.WithError(err).WithFields(logrus.Fields{
					"sink":    p.Name(),
					"address": ev.MonitorAddress(),
				}).Warn("publish event failed")
			}
		}
	}
}

// Close drains the queue and closes every publisher. OnEvent must not be
// called after Close.
func (a *Async) Close() error {
	var firstErr error
	a.closeOnce.Do(func() {
		close(a.queue)
		<-a.done
		for _, p := range a.publishers {
			if err := p.Close(); err != nil && firstErr == nil {
				firstErr = fmt.Errorf("close %s sink: %w", p.Name(), err)
			}
		}
	})
	return firstErr
}
