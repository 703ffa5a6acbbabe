// Package blob is the document file store: content lands on local disk under
// an opaque key, downloads go through short-lived signed URLs.
package blob

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no object exists under a key.
var ErrNotFound = errors.New("blob not found")

// Meta describes an incoming object.
type Meta struct {
	FileName    string
	ContentType string
}

// Object is a stored blob.
type Object struct {
	Key      string
	Checksum string
	Size     int64
}

// URLCache caches signed download URLs per key.
type URLCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, url string, ttl time.Duration) error
	Invalidate(ctx context.Context, key string) error
}

// FileStore writes blobs to dataDir and hands out signed download URLs
// served by Handler.
type FileStore struct {
	dataDir string
	baseURL string
	signer  *URLSigner
	cache   URLCache
	now     func() time.Time
}

type Option func(*FileStore)

// WithURLCache reuses signed URLs until shortly before they expire.
func WithURLCache(cache URLCache) Option {
	return func(fs *FileStore) {
		fs.cache = cache
	}
}

// NewFileStore creates dataDir if needed. baseURL is the externally visible
// prefix the Handler is mounted under, e.g. "https://api.example.org/files".
func NewFileStore(dataDir, baseURL string, signer *URLSigner, opts ...Option) (*FileStore, error) {
	if err := os.MkdirAll(dataDir, 0o750); err != nil {
		return nil, fmt.Errorf("create blob data dir %s: %w", dataDir, err)
	}
	fs := &FileStore{
		dataDir: dataDir,
		baseURL: strings.TrimRight(baseURL, "/"),
		signer:  signer,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(fs)
	}
	return fs, nil
}

// Put streams r to disk while hashing it. The file is written to a temp path,
// fsynced and renamed into place, so a failed write never leaves a partial blob.
func (fs *FileStore) Put(ctx context.Context, r io.Reader, meta Meta) (Object, error) {
	if err := ctx.Err(); err != nil {
		return Object{}, err
	}
	key := newKey(meta.FileName, fs.now())
	fullPath := fs.fullPath(key)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o750); err != nil {
		return Object{}, fmt.Errorf("create blob dir: %w", err)
	}
	tmpPath := fullPath + ".tmp"

	f, err := os.Create(tmpPath)
	if err != nil {
		return Object{}, fmt.Errorf("create temp blob: %w", err)
	}

	hasher := sha256.New()
	size, err := io.Copy(f, io.TeeReader(r, hasher))
	if err != nil {
		f.Close()
		os.Remove(tmpPath)
		return Object{}, fmt.Errorf("write blob: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return Object{}, fmt.Errorf("fsync blob: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return Object{}, fmt.Errorf("close blob: %w", err)
	}
	if err := os.Rename(tmpPath, fullPath); err != nil {
		os.Remove(tmpPath)
		return Object{}, fmt.Errorf("rename blob: %w", err)
	}

	return Object{
		Key:      key,
		Checksum: hex.EncodeToString(hasher.Sum(nil)),
		Size:     size,
	}, nil
}

// Open returns the blob for reading. The caller closes it.
func (fs *FileStore) Open(key string) (*os.File, error) {
	if !validKey(key) {
		return nil, ErrNotFound
	}
	f, err := os.Open(fs.fullPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("open blob %s: %w", key, err)
	}
	return f, nil
}

// Delete removes the blob. Deleting a missing key is not an error.
func (fs *FileStore) Delete(ctx context.Context, key string) error {
	if !validKey(key) {
		return fmt.Errorf("invalid blob key %q", key)
	}
	if err := os.Remove(fs.fullPath(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete blob %s: %w", key, err)
	}
	if fs.cache != nil {
		_ = fs.cache.Invalidate(ctx, key)
	}
	return nil
}

// DownloadURL returns a signed URL valid for ttl. Cached URLs are reused for
// half their lifetime so a caller never receives one about to expire.
func (fs *FileStore) DownloadURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if !validKey(key) {
		return "", ErrNotFound
	}
	if fs.cache != nil {
		if url, ok, err := fs.cache.Get(ctx, key); err == nil && ok {
			return url, nil
		}
	}

	token, err := fs.signer.Sign(key, ttl)
	if err != nil {
		return "", err
	}
	url := fs.baseURL + "/" + key + "?token=" + token

	if fs.cache != nil {
		_ = fs.cache.Set(ctx, key, url, ttl/2)
	}
	return url, nil
}

func (fs *FileStore) fullPath(key string) string {
	return filepath.Join(fs.dataDir, filepath.FromSlash(key))
}

// newKey builds "documents/<yyyy>/<mm>/<uuid><ext>". The original file name
// only contributes a sanitized extension.
func newKey(fileName string, now time.Time) string {
	ext := strings.ToLower(path.Ext(fileName))
	if len(ext) > 8 || strings.ContainsAny(ext, `/\ `) {
		ext = ""
	}
	return fmt.Sprintf("documents/%04d/%02d/%s%s", now.Year(), int(now.Month()), uuid.NewString(), ext)
}

// validKey rejects anything that could escape dataDir.
func validKey(key string) bool {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, `\`) {
		return false
	}
	clean := path.Clean(key)
	return clean == key && !strings.HasPrefix(clean, "..") && !strings.Contains(clean, "/../")
}
