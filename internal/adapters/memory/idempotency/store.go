package idempotency

import (
	"context"
	"sync"

	"github.com/alubilles/membership-api/internal/ports/out/idempotency"
)

type scope struct {
	key    idempotency.Key
	method string
	route  string
}

// Store is an in-memory implementation of idempotency.Store.
// It is safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	m       map[idempotency.Fingerprint]idempotency.Record
	byScope map[scope]idempotency.Fingerprint
}

func NewStore() *Store {
	return &Store{
		m:       make(map[idempotency.Fingerprint]idempotency.Record),
		byScope: make(map[scope]idempotency.Fingerprint),
	}
}

func (s *Store) Get(ctx context.Context, fp idempotency.Fingerprint) (idempotency.Record, bool, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.m[fp]
	if ok {
		rec.Body = append([]byte(nil), rec.Body...)
	}
	return rec, ok, nil
}

func (s *Store) FindByKey(ctx context.Context, key idempotency.Key, method, route string) (idempotency.Fingerprint, bool, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	fp, ok := s.byScope[scope{key: key, method: method, route: route}]
	return fp, ok, nil
}

// Put stores rec under fp. The first record written for a key+method+route wins.
func (s *Store) Put(ctx context.Context, fp idempotency.Fingerprint, rec idempotency.Record) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	sc := scope{key: fp.Key, method: fp.Method, route: fp.Route}
	if _, ok := s.byScope[sc]; ok {
		return nil
	}
	rec.Body = append([]byte(nil), rec.Body...)
	s.m[fp] = rec
	s.byScope[sc] = fp
	return nil
}
