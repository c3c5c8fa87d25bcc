// Package objectstore uploads image blobs and returns their public URLs.
package objectstore

import (
	"context"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/team-monumental/monuments-and-memorials-sub000/errors"
)

// ObjectStore accepts a blob and returns the URL it is served from.
// Failures wrap errors.ErrUploadFailed.
type ObjectStore interface {
	Upload(ctx context.Context, data []byte, hint string) (string, error)
}

// UploadFunc adapts a function to ObjectStore.
type UploadFunc func(ctx context.Context, data []byte, hint string) (string, error)

// Upload calls f.
func (f UploadFunc) Upload(ctx context.Context, data []byte, hint string) (string, error) {
	return f(ctx, data, hint)
}

// FileStore writes objects under a directory served at BaseURL.
type FileStore struct {
	dir     string
	baseURL string
	logger  *zap.SugaredLogger
}

// NewFileStore creates dir if needed.
func NewFileStore(dir, baseURL string, logger *zap.SugaredLogger) (*FileStore, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "failed to create object store directory %s", dir)
	}
	return &FileStore{
		dir:     dir,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger.Named("objectstore"),
	}, nil
}

// Upload stores data under a fresh key. The hint's extension is kept when
// it has one; otherwise one is derived from the sniffed content type.
func (s *FileStore) Upload(ctx context.Context, data []byte, hint string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", errors.WithSecondaryError(errors.Wrap(errors.ErrUploadFailed, "upload cancelled"), err)
	}
	if len(data) == 0 {
		return "", errors.Wrapf(errors.ErrUploadFailed, "empty object %q", hint)
	}

	key := uuid.NewString() + extension(hint, data)
	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return "", errors.WithSecondaryError(errors.Wrapf(errors.ErrUploadFailed, "create %s", key), err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", errors.WithSecondaryError(errors.Wrapf(errors.ErrUploadFailed, "write %s", key), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", errors.WithSecondaryError(errors.Wrapf(errors.ErrUploadFailed, "close %s", key), err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, key)); err != nil {
		os.Remove(tmp.Name())
		return "", errors.WithSecondaryError(errors.Wrapf(errors.ErrUploadFailed, "rename %s", key), err)
	}

	url := s.baseURL + "/" + key
	s.logger.Debugw("Object stored", "key", key, "size", len(data), "hint", hint)
	return url, nil
}

// Dir returns the directory objects are written to.
func (s *FileStore) Dir() string {
	return s.dir
}

func extension(hint string, data []byte) string {
	if ext := strings.ToLower(path.Ext(hint)); ext != "" {
		return ext
	}
	contentType := http.DetectContentType(data)
	if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ""
}

// RateLimited throttles uploads to a wrapped store.
type RateLimited struct {
	store   ObjectStore
	limiter *rate.Limiter
}

// NewRateLimited allows perSecond uploads with bursts of burst. A
// non-positive perSecond disables throttling.
func NewRateLimited(store ObjectStore, perSecond float64, burst int) *RateLimited {
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimited{store: store, limiter: rate.NewLimiter(limit, burst)}
}

// Upload waits for a token, then delegates.
func (r *RateLimited) Upload(ctx context.Context, data []byte, hint string) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", errors.WithSecondaryError(errors.Wrap(errors.ErrUploadFailed, "rate limiter"), err)
	}
	return r.store.Upload(ctx, data, hint)
}
