package idempotency

import (
	"context"
	"time"
)

// Key is the caller-provided idempotency key (Idempotency-Key header).
type Key string

// Fingerprint identifies a request uniquely for idempotency purposes:
// key + route + request body hash. Route is HTTP method + path template
// (e.g. "POST /registrations").
type Fingerprint struct {
	Key      Key
	Method   string
	Route    string
	BodyHash string
}

// Record is the stored response we can replay for a duplicate request.
type Record struct {
	StatusCode  int
	ContentType string
	Body        []byte
	CreatedAt   time.Time
}

// Store persists idempotency records for replaying safe responses on retries.
type Store interface {
	// Get looks up a record by fingerprint. ok=false when absent.
	Get(ctx context.Context, fp Fingerprint) (Record, bool, error)
	// FindByKey returns any record stored under key+method+route regardless of body hash,
	// so callers can detect key reuse with a different payload.
	FindByKey(ctx context.Context, key Key, method, route string) (Fingerprint, bool, error)
	Put(ctx context.Context, fp Fingerprint, rec Record) error
}
