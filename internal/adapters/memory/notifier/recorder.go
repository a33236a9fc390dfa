package notifier

import (
	"context"
	"sync"

	"github.com/alubilles/membership-api/internal/ports/out/notifier"
)

// Recorder is an in-memory notifier.Notifier that records every notification in order.
// Err, when set, is returned from Notify after recording.
type Recorder struct {
	mu   sync.Mutex
	sent []notifier.Notification

	Err error
}

func NewRecorder() *Recorder { return &Recorder{} }

func (r *Recorder) Notify(ctx context.Context, n notifier.Notification) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	fields := make(map[string]string, len(n.Fields))
	for k, v := range n.Fields {
		fields[k] = v
	}
	n.Fields = fields
	r.sent = append(r.sent, n)
	return r.Err
}

// Sent returns a copy of the recorded notifications.
func (r *Recorder) Sent() []notifier.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]notifier.Notification, len(r.sent))
	copy(out, r.sent)
	return out
}

// Kinds returns the kinds of recorded notifications in send order.
func (r *Recorder) Kinds() []notifier.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]notifier.Kind, 0, len(r.sent))
	for _, n := range r.sent {
		out = append(out, n.Kind)
	}
	return out
}

// Reset drops everything recorded so far.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = nil
}
