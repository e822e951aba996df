// Package tracker accepts analytics events, checks them against the event catalog and
// delivers them to the configured sinks in batches.
package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"erpsite/api/campaign"
	"erpsite/api/logger"
	"erpsite/api/metrics"
	"erpsite/api/models"
)

var (
	ErrUnknownEvent    = errors.New("unknown event")
	ErrMissingProperty = errors.New("missing required property")
	ErrQueueFull       = errors.New("tracker queue full")
	ErrClosed          = errors.New("tracker closed")
)

// Sink receives batches of events. Send must be safe to retry.
type Sink interface {
	Name() string
	Send(ctx context.Context, events []models.AnalyticsEvent) error
}

type Options struct {
	QueueSize     int
	BatchSize     int
	FlushInterval time.Duration
	// SendTimeout bounds a single batch delivery.
	SendTimeout time.Duration
}

func (o *Options) defaults() {
	if o.QueueSize <= 0 {
		o.QueueSize = 1024
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 100
	}
	if o.FlushInterval <= 0 {
		o.FlushInterval = 2 * time.Second
	}
	if o.SendTimeout <= 0 {
		o.SendTimeout = 15 * time.Second
	}
}

type Tracker struct {
	catalog *campaign.Config
	sink    Sink
	opts    Options
	now     func() time.Time

	mu     sync.RWMutex
	closed bool
	queue  chan models.AnalyticsEvent
	done   chan struct{}
}

// New starts the delivery worker. Call Close to flush and stop it.
func New(catalog *campaign.Config, sink Sink, opts Options) *Tracker {
	opts.defaults()
	t := &Tracker{
		catalog: catalog,
		sink:    sink,
		opts:    opts,
		now:     time.Now,
		queue:   make(chan models.AnalyticsEvent, opts.QueueSize),
		done:    make(chan struct{}),
	}
	go t.run()
	return t
}

// Track builds an event from the visit carried by ctx and enqueues it. An empty category
// takes the cataloged one.
func (t *Tracker) Track(ctx context.Context, name, category string, properties map[string]any) error {
	ev := VisitFrom(ctx).event()
	ev.EventName = name
	ev.Category = category
	if len(properties) > 0 {
		b, err := json.Marshal(properties)
		if err != nil {
			return fmt.Errorf("failed to encode event properties: %w", err)
		}
		ev.Properties = b
	}
	return t.Enqueue(ev)
}

// Enqueue validates ev, fills id, category and timestamp, and queues it without blocking.
func (t *Tracker) Enqueue(ev models.AnalyticsEvent) error {
	def, ok := t.catalog.Event(ev.EventName)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownEvent, ev.EventName)
	}
	if len(def.Required) > 0 {
		props := ev.PropertyMap()
		for _, key := range def.Required {
			if _, ok := props[key]; !ok {
				return fmt.Errorf("%w: %s requires %q", ErrMissingProperty, ev.EventName, key)
			}
		}
	}

	if ev.Category == "" {
		ev.Category = def.Category
	}
	if ev.EventID == "" {
		ev.EventID = uuid.New().String()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = t.now().UTC()
	}

	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.closed {
		metrics.EventsDropped.Inc()
		return ErrClosed
	}

	select {
	case t.queue <- ev:
		metrics.EventsTracked.WithLabelValues(ev.EventName).Inc()
		return nil
	default:
		metrics.EventsDropped.Inc()
		logger.Warn("tracker queue full, dropping event", "event", ev.EventName)
		return ErrQueueFull
	}
}

// Close stops accepting events, flushes what is queued and waits for the worker or ctx.
func (t *Tracker) Close(ctx context.Context) error {
	t.mu.Lock()
	if !t.closed {
		t.closed = true
		close(t.queue)
	}
	t.mu.Unlock()

	select {
	case <-t.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *Tracker) run() {
	defer close(t.done)

	ticker := time.NewTicker(t.opts.FlushInterval)
	defer ticker.Stop()

	batch := make([]models.AnalyticsEvent, 0, t.opts.BatchSize)
	for {
		select {
		case ev, ok := <-t.queue:
			if !ok {
				t.flush(batch)
				return
			}
			batch = append(batch, ev)
			if len(batch) >= t.opts.BatchSize {
				t.flush(batch)
				batch = make([]models.AnalyticsEvent, 0, t.opts.BatchSize)
			}
		case <-ticker.C:
			if len(batch) > 0 {
				t.flush(batch)
				batch = make([]models.AnalyticsEvent, 0, t.opts.BatchSize)
			}
		}
	}
}

func (t *Tracker) flush(batch []models.AnalyticsEvent) {
	if len(batch) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), t.opts.SendTimeout)
	defer cancel()

	if err := t.sink.Send(ctx, batch); err != nil {
		metrics.SinkFailures.WithLabelValues(t.sink.Name()).Inc()
		logger.Error("failed to deliver analytics batch", "sink", t.sink.Name(), "events", len(batch), "error", err)
		return
	}
	logger.Debug("delivered analytics batch", "sink", t.sink.Name(), "events", len(batch))
}
