package blobstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alubilles/membership-api/internal/ports/out/blobstore"
)

// Store implements blobstore.Store on the local filesystem.
// Keys map to relative paths under root. A sidecar file (path + ".meta") holds
// content type, user metadata and the sha256 etag.
type Store struct {
	root string
}

// New returns a filesystem store rooted at root, creating it if needed.
func New(root string) (*Store, error) {
	if root == "" {
		root = "./data"
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &Store{root: root}, nil
}

func (s *Store) Driver() blobstore.Driver { return blobstore.DriverFilesystem }

// Root returns the directory objects are stored under.
func (s *Store) Root() string { return s.root }

func sanitizeKey(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("empty key")
	}
	if strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid key contains '..'")
	}
	if strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("invalid absolute key")
	}
	if strings.HasSuffix(key, ".meta") {
		return "", fmt.Errorf("invalid key suffix .meta")
	}
	return filepath.ToSlash(filepath.Clean(key)), nil
}

func (s *Store) pathFor(key string) (dataPath, metaPath string, err error) {
	k, err := sanitizeKey(key)
	if err != nil {
		return "", "", err
	}
	dataPath = filepath.Join(s.root, filepath.FromSlash(k))
	return dataPath, dataPath + ".meta", nil
}

type metaFile struct {
	ContentType string            `json:"content_type,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	ETag        string            `json:"etag"`
	Size        int64             `json:"size"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// Put streams r into a temp file in the target directory and renames it over
// the destination, so an existing object is replaced atomically.
func (s *Store) Put(ctx context.Context, key string, r io.Reader, opts blobstore.PutOptions) (blobstore.Info, error) {
	if err := ctx.Err(); err != nil {
		return blobstore.Info{}, err
	}
	dataPath, metaPath, err := s.pathFor(key)
	if err != nil {
		return blobstore.Info{}, err
	}
	dir := filepath.Dir(dataPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return blobstore.Info{}, err
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return blobstore.Info{}, err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	h := sha256.New()
	size, err := io.Copy(io.MultiWriter(tmp, h), r)
	if err != nil {
		_ = tmp.Close()
		return blobstore.Info{}, err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return blobstore.Info{}, err
	}
	if err := tmp.Close(); err != nil {
		return blobstore.Info{}, err
	}

	now := time.Now().UTC()
	mf := metaFile{
		ContentType: opts.ContentType,
		Metadata:    cloneMetadata(opts.Metadata),
		ETag:        hex.EncodeToString(h.Sum(nil)),
		Size:        size,
		UpdatedAt:   now,
	}
	// Sidecar first: a reader that sees the new data also sees matching metadata.
	if err := writeJSONAtomic(metaPath, mf); err != nil {
		return blobstore.Info{}, err
	}
	if err := os.Rename(tmp.Name(), dataPath); err != nil {
		return blobstore.Info{}, err
	}
	return s.info(key, mf), nil
}

func (s *Store) Get(ctx context.Context, key string) (blobstore.Info, io.ReadCloser, error) {
	_ = ctx
	dataPath, metaPath, err := s.pathFor(key)
	if err != nil {
		return blobstore.Info{}, nil, err
	}
	file, err := os.Open(dataPath)
	if errors.Is(err, fs.ErrNotExist) {
		return blobstore.Info{}, nil, blobstore.ErrNotFound
	}
	if err != nil {
		return blobstore.Info{}, nil, err
	}
	mf, err := readMeta(metaPath)
	if err != nil {
		_ = file.Close()
		return blobstore.Info{}, nil, err
	}
	return s.info(key, mf), file, nil
}

func (s *Store) Head(ctx context.Context, key string) (blobstore.Info, error) {
	_ = ctx
	dataPath, metaPath, err := s.pathFor(key)
	if err != nil {
		return blobstore.Info{}, err
	}
	if _, err := os.Stat(dataPath); errors.Is(err, fs.ErrNotExist) {
		return blobstore.Info{}, blobstore.ErrNotFound
	} else if err != nil {
		return blobstore.Info{}, err
	}
	mf, err := readMeta(metaPath)
	if err != nil {
		return blobstore.Info{}, err
	}
	return s.info(key, mf), nil
}

func (s *Store) Delete(ctx context.Context, key string) (bool, error) {
	_ = ctx
	dataPath, metaPath, err := s.pathFor(key)
	if err != nil {
		return false, err
	}
	if err := os.Remove(dataPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	_ = os.Remove(metaPath)
	return true, nil
}

func (s *Store) info(key string, mf metaFile) blobstore.Info {
	return blobstore.Info{
		Key:          key,
		Size:         mf.Size,
		ContentType:  mf.ContentType,
		ETag:         mf.ETag,
		Metadata:     cloneMetadata(mf.Metadata),
		LastModified: mf.UpdatedAt,
	}
}

func readMeta(path string) (metaFile, error) {
	var mf metaFile
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		// Objects written by hand (card templates) have no sidecar.
		st, statErr := os.Stat(strings.TrimSuffix(path, ".meta"))
		if statErr != nil {
			return mf, blobstore.ErrNotFound
		}
		return metaFile{Size: st.Size(), UpdatedAt: st.ModTime().UTC()}, nil
	}
	if err != nil {
		return mf, err
	}
	if err := json.Unmarshal(b, &mf); err != nil {
		return mf, fmt.Errorf("decode %s: %w", path, err)
	}
	return mf, nil
}

func writeJSONAtomic(path string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-meta-*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
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
