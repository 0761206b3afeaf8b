package metrics

import (
	"context"
	"log/slog"
	"time"
)

type EventType string

const (
	EventConnectionAccepted EventType = "connection_accepted"
	EventRequestRouted      EventType = "request_routed"
	EventPathRewritten      EventType = "path_rewritten"
	EventBackendUnreachable EventType = "backend_unreachable"
	EventRelayCompleted     EventType = "relay_completed"
)

type Event struct {
	Type           EventType
	Timestamp      time.Time
	Backend        string
	Duration       time.Duration
	BytesToBackend int64
	BytesToClient  int64
}

type Collector struct {
	eventCh chan Event
	metrics *Metrics
	logger  *slog.Logger
}

func NewCollector(bufferSize int, logger *slog.Logger) *Collector {
	return &Collector{
		eventCh: make(chan Event, bufferSize),
		metrics: NewMetrics(),
		logger:  logger,
	}
}

func (c *Collector) EventChannel() chan<- Event {
	return c.eventCh
}

func (c *Collector) Start(ctx context.Context) {
	go c.run(ctx)
}

func (c *Collector) run(ctx context.Context) {
	c.logger.Info("Metrics collector started")
	defer c.logger.Info("Metrics collector stopped")

	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		case <-ctx.Done():
			// Drain remaining events before shutdown
			c.drain()
			return
		}
	}
}

func (c *Collector) processEvent(event Event) {
	switch event.Type {
	case EventConnectionAccepted:
		c.metrics.IncrementConnections()

	case EventRequestRouted:
		c.metrics.RecordRouted(event.Backend)

	case EventPathRewritten:
		c.metrics.IncrementRewritten()

	case EventBackendUnreachable:
		c.metrics.RecordDialFailure(event.Backend)

	case EventRelayCompleted:
		c.metrics.RecordRelay(event.Backend, event.Duration, event.BytesToBackend, event.BytesToClient)
	}
}

func (c *Collector) drain() {
	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		default:
			return
		}
	}
}

func (c *Collector) Snapshot() Snapshot {
	return c.metrics.Snapshot()
}
