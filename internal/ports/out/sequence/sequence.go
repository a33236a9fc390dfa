package sequence

import "context"

// Sequencer hands out atomic, strictly increasing counters per scope.
//
// The first value returned for a scope is 1. Implementations must be safe under
// concurrent callers: two calls never return the same value for the same scope.
type Sequencer interface {
	Next(ctx context.Context, scope string) (int64, error)
}
