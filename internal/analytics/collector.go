// Package analytics tracks lookup and mutation events, ships them to Kafka,
// and aggregates them into usage statistics served over HTTP. The whole
// pipeline is optional: with Kafka disabled the handlers simply skip
// tracking.
package analytics

import (
	"context"
	"log/slog"
	"sync"

	"github.com/lexgrid/synonymd/pkg/kafka"
)

// maxBatch caps how many buffered events get folded into one Kafka write.
const maxBatch = 100

// Collector buffers events in a channel and publishes them to Kafka from a
// background goroutine, folding a backlog into batched writes. Track never
// blocks the request path; when the buffer is full the event is dropped.
type Collector struct {
	producer *kafka.Producer
	eventCh  chan interface{}
	logger   *slog.Logger
	done     chan struct{}

	// mu orders Track against Close: a handler still in flight during
	// shutdown must drop its event, not send on a closed channel.
	mu     sync.RWMutex
	closed bool
}

func NewCollector(producer *kafka.Producer, bufferSize int) *Collector {
	if bufferSize <= 0 {
		bufferSize = 10000
	}
	return &Collector{
		producer: producer,
		eventCh:  make(chan interface{}, bufferSize),
		logger:   slog.Default().With("component", "analytics-collector"),
		done:     make(chan struct{}),
	}
}

func (c *Collector) Start(ctx context.Context) {
	go func() {
		defer close(c.done)
		for {
			select {
			case event, ok := <-c.eventCh:
				if !ok {
					return
				}
				c.publish(ctx, c.gather(event))
			case <-ctx.Done():
				c.drainRemaining()
				return
			}
		}
	}()
	c.logger.Info("analytics collector started", "buffer_size", cap(c.eventCh))
}

func (c *Collector) Track(event interface{}) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		c.logger.Debug("analytics event dropped (collector closed)")
		return
	}
	select {
	case c.eventCh <- event:
	default:
		c.logger.Warn("analytics event dropped (buffer full)")
	}
}

// Close stops intake, drains the buffer, and waits for the publish loop to
// exit. Safe to call more than once.
func (c *Collector) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	close(c.eventCh)
	<-c.done
}

// gather folds whatever else is already buffered in with the first event so
// a backlog goes out as one batched write.
func (c *Collector) gather(first interface{}) []kafka.Event {
	batch := []kafka.Event{{Key: "analytics", Value: first}}
	for len(batch) < maxBatch {
		select {
		case event, ok := <-c.eventCh:
			if !ok {
				return batch
			}
			batch = append(batch, kafka.Event{Key: "analytics", Value: event})
		default:
			return batch
		}
	}
	return batch
}

func (c *Collector) publish(ctx context.Context, batch []kafka.Event) {
	var err error
	if len(batch) == 1 {
		err = c.producer.Publish(ctx, batch[0])
	} else {
		err = c.producer.PublishBatch(ctx, batch)
	}
	if err != nil {
		c.logger.Error("failed to publish analytics events", "count", len(batch), "error", err)
	}
}

func (c *Collector) drainRemaining() {
	for {
		select {
		case event, ok := <-c.eventCh:
			if !ok {
				return
			}
			c.publish(context.Background(), c.gather(event))
		default:
			return
		}
	}
}
