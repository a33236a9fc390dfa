package sequence

import (
	"context"
	"database/sql"
	"errors"
)

// Sequencer is a SQLite implementation of sequence.Sequencer.
type Sequencer struct {
	db *sql.DB
}

func NewSequencer(db *sql.DB) *Sequencer {
	return &Sequencer{db: db}
}

func (s *Sequencer) Next(ctx context.Context, scope string) (int64, error) {
	if s.db == nil {
		return 0, errors.New("nil sqlite db")
	}
	var v int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO sequence_counters (scope, value)
		VALUES (?, 1)
		ON CONFLICT (scope) DO UPDATE SET value = value + 1
		RETURNING value
	`, scope).Scan(&v)
	if err != nil {
		return 0, err
	}
	return v, nil
}
