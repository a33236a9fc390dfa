package sequence

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Sequencer is a Postgres implementation of sequence.Sequencer backed by the
// sequence_counters table. The upsert takes a row lock, so concurrent callers
// on the same scope are serialized.
type Sequencer struct {
	pool *pgxpool.Pool
}

func NewSequencer(pool *pgxpool.Pool) *Sequencer {
	return &Sequencer{pool: pool}
}

func (s *Sequencer) Next(ctx context.Context, scope string) (int64, error) {
	if s.pool == nil {
		return 0, errors.New("nil postgres pool")
	}
	var v int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO sequence_counters (scope, value)
		VALUES ($1, 1)
		ON CONFLICT (scope) DO UPDATE SET value = sequence_counters.value + 1
		RETURNING value
	`, scope).Scan(&v)
	if err != nil {
		return 0, err
	}
	return v, nil
}
