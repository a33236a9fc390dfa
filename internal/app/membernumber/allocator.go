package membernumber

import (
	"context"
	"fmt"
	"time"

	"github.com/alubilles/membership-api/internal/domain"
	clockport "github.com/alubilles/membership-api/internal/ports/out/clock"
	"github.com/alubilles/membership-api/internal/ports/out/sequence"
)

// Allocator hands out PREFIX-YEAR-SEQ member numbers. The year is read from the
// clock at call time in Location; each year has its own counter starting at 1.
type Allocator struct {
	seq sequence.Sequencer
	clk clockport.Clock

	Prefix   string
	Location *time.Location
}

func NewAllocator(seq sequence.Sequencer, clk clockport.Clock, prefix string) *Allocator {
	if prefix == "" {
		prefix = domain.DefaultMemberNumberPrefix
	}
	return &Allocator{seq: seq, clk: clk, Prefix: prefix, Location: time.UTC}
}

// Scope is the sequencer scope holding the counter for year.
func Scope(year int) string {
	return fmt.Sprintf("member_number:%d", year)
}

func (a *Allocator) Next(ctx context.Context) (domain.MemberNumber, error) {
	loc := a.Location
	if loc == nil {
		loc = time.UTC
	}
	year := a.clk.Now().In(loc).Year()
	n, err := a.seq.Next(ctx, Scope(year))
	if err != nil {
		return "", fmt.Errorf("allocate member number: %w", err)
	}
	return domain.FormatMemberNumber(a.Prefix, year, n), nil
}
