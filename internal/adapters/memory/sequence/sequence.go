package sequence

import (
	"context"
	"sync"
)

// Sequencer is an in-memory implementation of sequence.Sequencer.
// It is safe for concurrent use.
type Sequencer struct {
	mu     sync.Mutex
	values map[string]int64
}

func NewSequencer() *Sequencer {
	return &Sequencer{values: make(map[string]int64)}
}

func (s *Sequencer) Next(ctx context.Context, scope string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[scope]++
	return s.values[scope], nil
}
