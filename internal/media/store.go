// Package media stores uploaded images and generated audio under opaque keys
// in a local directory or an S3 bucket.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/mrlokans/bookclub/internal/config"
	"github.com/mrlokans/bookclub/internal/logger"
)

// Key prefixes per kind of media.
const (
	PrefixCovers  = "covers/"
	PrefixAuthors = "authors/"
	PrefixThreads = "threads/"
	PrefixAudio   = "tts/"
)

var ErrNotFound = errors.New("media not found")

// Store persists media objects.
type Store interface {
	// Save writes body under a new key beginning with prefix and returns the key.
	Save(ctx context.Context, prefix, filename string, body io.Reader, contentType string) (string, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	// URL returns an address a client can fetch the object from.
	URL(ctx context.Context, key string) (string, error)
	Backend() string
}

// NewStore builds the configured store.
func NewStore(ctx context.Context, cfg config.Media) (Store, error) {
	switch cfg.Backend {
	case config.MediaBackendS3:
		return NewS3Store(ctx, S3Config{
			Bucket:        cfg.S3Bucket,
			Region:        cfg.S3Region,
			Endpoint:      cfg.S3Endpoint,
			AccessKey:     cfg.S3AccessKey,
			SecretKey:     cfg.S3SecretKey,
			PresignExpiry: cfg.PresignExpiry,
		})
	case config.MediaBackendLocal, "":
		return NewLocalStore(cfg.Dir, cfg.BaseURL)
	default:
		return nil, fmt.Errorf("unknown media backend %q", cfg.Backend)
	}
}

// newKey returns prefix + uuid + the extension of filename.
func newKey(prefix, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	if len(ext) > 8 {
		ext = ""
	}
	return prefix + uuid.New().String() + ext
}

// IsRemote reports whether value is an absolute URL rather than a store key.
func IsRemote(value string) bool {
	return strings.HasPrefix(value, "http://") || strings.HasPrefix(value, "https://")
}

// Resolve turns a stored value into a client URL. Remote URLs pass through.
func Resolve(ctx context.Context, store Store, value string) string {
	if value == "" || IsRemote(value) || store == nil {
		return value
	}
	u, err := store.URL(ctx, value)
	if err != nil {
		logger.Log.WithError(err).WithField("key", value).Warn("failed to resolve media URL")
		return ""
	}
	return u
}

// DeleteAll removes keys best-effort, skipping remote URLs.
func DeleteAll(ctx context.Context, store Store, keys ...string) {
	if store == nil {
		return
	}
	for _, key := range keys {
		if key == "" || IsRemote(key) {
			continue
		}
		if err := store.Delete(ctx, key); err != nil && !errors.Is(err, ErrNotFound) {
			logger.Log.WithError(err).WithField("key", key).Warn("failed to delete media")
		}
	}
}
