package clock

import (
	"testing"
	"time"
)

func TestSystemClock_UTCMicroseconds(t *testing.T) {
	t.Parallel()

	now := NewSystemClock().Now()
	if now.Location() != time.UTC {
		t.Fatalf("Now() location=%v want UTC", now.Location())
	}
	if now.Nanosecond()%1000 != 0 {
		t.Fatalf("Now()=%v has sub-microsecond precision", now)
	}
}
