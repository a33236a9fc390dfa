package blobstore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"sync"
	"time"

	"github.com/alubilles/membership-api/internal/ports/out/blobstore"
)

type object struct {
	data []byte
	info blobstore.Info
}

// Store is an in-memory implementation of blobstore.Store, used in tests and
// single-process development. It is safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	objects map[string]object
	now     func() time.Time
}

func NewStore() *Store {
	return &Store{objects: make(map[string]object), now: func() time.Time { return time.Now().UTC() }}
}

func (s *Store) Driver() blobstore.Driver { return blobstore.DriverMemory }

func (s *Store) Put(ctx context.Context, key string, r io.Reader, opts blobstore.PutOptions) (blobstore.Info, error) {
	if err := ctx.Err(); err != nil {
		return blobstore.Info{}, err
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return blobstore.Info{}, err
	}
	sum := sha256.Sum256(b)
	info := blobstore.Info{
		Key:          key,
		Size:         int64(len(b)),
		ContentType:  opts.ContentType,
		ETag:         hex.EncodeToString(sum[:]),
		Metadata:     cloneMetadata(opts.Metadata),
		LastModified: s.now(),
	}
	s.mu.Lock()
	s.objects[key] = object{data: b, info: info}
	s.mu.Unlock()
	return cloneInfo(info), nil
}

func (s *Store) Get(ctx context.Context, key string) (blobstore.Info, io.ReadCloser, error) {
	_ = ctx
	s.mu.RLock()
	obj, ok := s.objects[key]
	s.mu.RUnlock()
	if !ok {
		return blobstore.Info{}, nil, blobstore.ErrNotFound
	}
	return cloneInfo(obj.info), io.NopCloser(bytes.NewReader(obj.data)), nil
}

func (s *Store) Head(ctx context.Context, key string) (blobstore.Info, error) {
	_ = ctx
	s.mu.RLock()
	obj, ok := s.objects[key]
	s.mu.RUnlock()
	if !ok {
		return blobstore.Info{}, blobstore.ErrNotFound
	}
	return cloneInfo(obj.info), nil
}

func (s *Store) Delete(ctx context.Context, key string) (bool, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[key]; !ok {
		return false, nil
	}
	delete(s.objects, key)
	return true, nil
}

// Len reports how many objects are stored.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}

func cloneInfo(in blobstore.Info) blobstore.Info {
	in.Metadata = cloneMetadata(in.Metadata)
	return in
}

func cloneMetadata(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
