// Package notify delivers lifecycle notifications off the request path.
package notify

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/alubilles/membership-api/internal/platform/logging"
	"github.com/alubilles/membership-api/internal/platform/metrics"
	"github.com/alubilles/membership-api/internal/ports/out/notifier"
)

// ErrClosed is returned by Notify after Close has been called.
var ErrClosed = errors.New("notification dispatcher closed")

// ErrQueueFull is returned when the queue has no room; the notification is dropped.
var ErrQueueFull = errors.New("notification queue full")

const DefaultQueueSize = 256

// Dispatcher is a notifier.Notifier that queues notifications and delivers them
// through a single worker, so messages reach the transport in submission order.
// Notify never blocks on the transport.
type Dispatcher struct {
	next    notifier.Notifier
	log     *zap.Logger
	metrics *metrics.Metrics

	mu     sync.RWMutex
	closed bool
	queue  chan notifier.Notification
	done   chan struct{}
}

func NewDispatcher(next notifier.Notifier, queueSize int, log *zap.Logger, m *metrics.Metrics) *Dispatcher {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	d := &Dispatcher{
		next:    next,
		log:     logging.OrNop(log),
		metrics: metrics.OrNew(m),
		queue:   make(chan notifier.Notification, queueSize),
		done:    make(chan struct{}),
	}
	go d.run()
	return d
}

// Notify enqueues n. The returned error only reports enqueue failures.
func (d *Dispatcher) Notify(ctx context.Context, n notifier.Notification) error {
	_ = ctx
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrClosed
	}
	select {
	case d.queue <- n:
		d.metrics.NotifyQueueDepth.Inc()
		return nil
	default:
		d.metrics.Notifications.WithLabelValues(string(n.Kind), "dropped").Inc()
		d.log.Warn("notification dropped", zap.String("kind", string(n.Kind)), zap.String("to", n.To))
		return ErrQueueFull
	}
}

// Close stops accepting notifications and waits for the queue to drain or ctx to end.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for n := range d.queue {
		d.metrics.NotifyQueueDepth.Dec()
		if err := d.next.Notify(context.Background(), n); err != nil {
			d.metrics.Notifications.WithLabelValues(string(n.Kind), "error").Inc()
			d.log.Warn("notification delivery failed",
				zap.String("kind", string(n.Kind)),
				zap.String("to", n.To),
				zap.String("member_number", n.Fields[notifier.FieldMemberNumber]),
				zap.Error(err))
			continue
		}
		d.metrics.Notifications.WithLabelValues(string(n.Kind), "ok").Inc()
	}
}
