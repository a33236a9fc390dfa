package idempotency

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/alubilles/membership-api/internal/ports/out/idempotency"
)

// Store is a SQLite implementation of idempotency.Store.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Get(ctx context.Context, fp idempotency.Fingerprint) (idempotency.Record, bool, error) {
	if s.db == nil {
		return idempotency.Record{}, false, errors.New("nil sqlite db")
	}
	var (
		rec       idempotency.Record
		createdAt int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT status_code, content_type, body, created_at
		FROM idempotency_keys
		WHERE idempotency_key = ? AND method = ? AND route = ? AND body_hash = ?
	`, string(fp.Key), fp.Method, fp.Route, fp.BodyHash).Scan(&rec.StatusCode, &rec.ContentType, &rec.Body, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return idempotency.Record{}, false, nil
		}
		return idempotency.Record{}, false, err
	}
	rec.CreatedAt = time.Unix(0, createdAt).UTC()
	return rec, true, nil
}

func (s *Store) FindByKey(ctx context.Context, key idempotency.Key, method, route string) (idempotency.Fingerprint, bool, error) {
	if s.db == nil {
		return idempotency.Fingerprint{}, false, errors.New("nil sqlite db")
	}
	fp := idempotency.Fingerprint{Key: key, Method: method, Route: route}
	err := s.db.QueryRowContext(ctx, `
		SELECT body_hash FROM idempotency_keys
		WHERE idempotency_key = ? AND method = ? AND route = ?
	`, string(key), method, route).Scan(&fp.BodyHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return idempotency.Fingerprint{}, false, nil
		}
		return idempotency.Fingerprint{}, false, err
	}
	return fp, true, nil
}

// Put stores rec under fp. The first record written for a key+method+route wins.
func (s *Store) Put(ctx context.Context, fp idempotency.Fingerprint, rec idempotency.Record) error {
	if s.db == nil {
		return errors.New("nil sqlite db")
	}
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	body := rec.Body
	if body == nil {
		body = []byte{}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO idempotency_keys (
			idempotency_key, method, route, body_hash, status_code, content_type, body, created_at
		) VALUES (?,?,?,?,?,?,?,?)
		ON CONFLICT (idempotency_key, method, route) DO NOTHING
	`, string(fp.Key), fp.Method, fp.Route, fp.BodyHash, rec.StatusCode, rec.ContentType, body, createdAt.UnixNano())
	return err
}
