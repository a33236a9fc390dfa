package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	memnotifier "github.com/alubilles/membership-api/internal/adapters/memory/notifier"
	"github.com/alubilles/membership-api/internal/platform/metrics"
	"github.com/alubilles/membership-api/internal/ports/out/notifier"
)

func closeWithin(t *testing.T, d *Dispatcher) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.Close(ctx); err != nil {
		t.Fatalf("Close() err=%v", err)
	}
}

func TestDispatcher_PreservesOrder(t *testing.T) {
	t.Parallel()

	rec := memnotifier.NewRecorder()
	d := NewDispatcher(rec, 8, nil, nil)

	kinds := []notifier.Kind{notifier.KindRegistration, notifier.KindAdminNewRegistration, notifier.KindSuspension, notifier.KindApproval}
	for _, k := range kinds {
		if err := d.Notify(context.Background(), notifier.Notification{To: "a@example.org", Kind: k}); err != nil {
			t.Fatalf("Notify(%s) err=%v", k, err)
		}
	}
	closeWithin(t, d)

	got := rec.Kinds()
	if len(got) != len(kinds) {
		t.Fatalf("kinds=%v", got)
	}
	for i := range kinds {
		if got[i] != kinds[i] {
			t.Fatalf("kinds=%v, want %v", got, kinds)
		}
	}
}

func TestDispatcher_FailuresAreLoggedNotReturned(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.WarnLevel)
	m := metrics.New()
	rec := memnotifier.NewRecorder()
	rec.Err = errors.New("smtp down")
	d := NewDispatcher(rec, 4, zap.New(core), m)

	err := d.Notify(context.Background(), notifier.Notification{
		To:     "a@example.org",
		Kind:   notifier.KindApproval,
		Fields: map[string]string{notifier.FieldMemberNumber: "ALU-2025-0001"},
	})
	if err != nil {
		t.Fatalf("Notify() err=%v", err)
	}
	closeWithin(t, d)

	entries := logs.FilterMessage("notification delivery failed").All()
	if len(entries) != 1 {
		t.Fatalf("warn logs=%d, want 1", len(entries))
	}
	if entries[0].ContextMap()["member_number"] != "ALU-2025-0001" {
		t.Fatalf("log fields=%v", entries[0].ContextMap())
	}
	if got := testutil.ToFloat64(m.Notifications.WithLabelValues("approval", "error")); got != 1 {
		t.Fatalf("error counter=%v", got)
	}
}

type blockingNotifier struct {
	release chan struct{}
	mu      sync.Mutex
	n       int
}

func (b *blockingNotifier) Notify(ctx context.Context, n notifier.Notification) error {
	<-b.release
	b.mu.Lock()
	b.n++
	b.mu.Unlock()
	return nil
}

func TestDispatcher_NotifyDoesNotBlockOnTransport(t *testing.T) {
	t.Parallel()

	b := &blockingNotifier{release: make(chan struct{})}
	d := NewDispatcher(b, 1, nil, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 5; i++ {
			_ = d.Notify(context.Background(), notifier.Notification{Kind: notifier.KindRegistration})
		}
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Notify blocked on a stalled transport")
	}

	close(b.release)
	closeWithin(t, d)
}

func TestDispatcher_NotifyAfterClose(t *testing.T) {
	t.Parallel()

	d := NewDispatcher(memnotifier.NewRecorder(), 1, nil, nil)
	closeWithin(t, d)
	if err := d.Notify(context.Background(), notifier.Notification{}); !errors.Is(err, ErrClosed) {
		t.Fatalf("Notify() err=%v, want ErrClosed", err)
	}
	closeWithin(t, d)
}
