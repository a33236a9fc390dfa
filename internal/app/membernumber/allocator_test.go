package membernumber

import (
	"context"
	"testing"
	"time"

	"pgregory.net/rapid"

	memclock "github.com/alubilles/membership-api/internal/adapters/memory/clock"
	memsequence "github.com/alubilles/membership-api/internal/adapters/memory/sequence"
	"github.com/alubilles/membership-api/internal/domain"
)

func TestAllocator_FormatsAndRestartsEachYear(t *testing.T) {
	t.Parallel()

	clk := memclock.NewManualClock(time.Date(2024, 12, 31, 23, 0, 0, 0, time.UTC))
	a := NewAllocator(memsequence.NewSequencer(), clk, "")

	want := []domain.MemberNumber{"ALU-2024-0001", "ALU-2024-0002"}
	for _, w := range want {
		got, err := a.Next(context.Background())
		if err != nil {
			t.Fatalf("Next() err=%v", err)
		}
		if got != w {
			t.Fatalf("Next()=%q, want %q", got, w)
		}
	}

	clk.Advance(2 * time.Hour)
	got, err := a.Next(context.Background())
	if err != nil {
		t.Fatalf("Next() err=%v", err)
	}
	if got != "ALU-2025-0001" {
		t.Fatalf("Next() after new year=%q, want ALU-2025-0001", got)
	}
}

func TestAllocator_UsesLocationForYear(t *testing.T) {
	t.Parallel()

	// 23:30 UTC on Dec 31 is already Jan 1 at UTC+1.
	clk := memclock.NewManualClock(time.Date(2024, 12, 31, 23, 30, 0, 0, time.UTC))
	a := NewAllocator(memsequence.NewSequencer(), clk, "AAB")
	a.Location = time.FixedZone("UTC+1", 3600)

	got, err := a.Next(context.Background())
	if err != nil {
		t.Fatalf("Next() err=%v", err)
	}
	if got != "AAB-2025-0001" {
		t.Fatalf("Next()=%q, want AAB-2025-0001", got)
	}
}

func TestAllocator_MonotonicWithinYear(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		start := time.Date(rapid.IntRange(2000, 2090).Draw(t, "year"), 1, 1, 0, 0, 0, 0, time.UTC)
		clk := memclock.NewManualClock(start)
		a := NewAllocator(memsequence.NewSequencer(), clk, "")

		steps := rapid.SliceOfN(rapid.IntRange(0, 200), 1, 60).Draw(t, "stepDays")
		var prev *domain.MemberNumberParts
		for _, days := range steps {
			clk.Advance(time.Duration(days) * 24 * time.Hour)
			n, err := a.Next(context.Background())
			if err != nil {
				t.Fatalf("Next() err=%v", err)
			}
			parts, err := domain.ParseMemberNumber(n)
			if err != nil {
				t.Fatalf("ParseMemberNumber(%q) err=%v", n, err)
			}
			if parts.Year != clk.Now().Year() {
				t.Fatalf("year=%d, want %d", parts.Year, clk.Now().Year())
			}
			if prev != nil {
				switch {
				case parts.Year == prev.Year && parts.Seq != prev.Seq+1:
					t.Fatalf("same-year sequence %d after %d", parts.Seq, prev.Seq)
				case parts.Year > prev.Year && parts.Seq != 1:
					t.Fatalf("new year %d started at %d, want 1", parts.Year, parts.Seq)
				case !prev.Less(parts):
					t.Fatalf("%v not after %v", parts, *prev)
				}
			}
			p := parts
			prev = &p
		}
	})
}
