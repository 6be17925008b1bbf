package media

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path"
	"strings"
	"time"
)

const userAgent = "BookClub/1.0"

// Fetcher copies remote images into a Store.
type Fetcher struct {
	store      Store
	httpClient *http.Client
	maxSize    int64
}

func NewFetcher(store Store, maxSize int64) *Fetcher {
	if maxSize <= 0 {
		maxSize = DefaultMaxUploadSize
	}
	return &Fetcher{
		store:      store,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		maxSize:    maxSize,
	}
}

// Fetch downloads url and saves it under prefix. It returns the new key and
// the image BlurHash, which is empty when the body cannot be decoded.
func (f *Fetcher) Fetch(ctx context.Context, prefix, url string) (key, hash string, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", "", err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("failed to fetch image: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxSize+1))
	if err != nil {
		return "", "", err
	}
	if int64(len(data)) > f.maxSize {
		return "", "", ErrTooLarge
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		contentType = http.DetectContentType(data)
	}
	if !allowedImageTypes[contentType] {
		return "", "", fmt.Errorf("%w: %s", ErrUnsupportedType, contentType)
	}

	filename := path.Base(req.URL.Path)
	if path.Ext(filename) == "" {
		if exts, _ := mime.ExtensionsByType(contentType); len(exts) > 0 {
			filename += exts[0]
		}
	}

	key, err = f.store.Save(ctx, prefix, filename, bytes.NewReader(data), contentType)
	if err != nil {
		return "", "", err
	}
	hash, _ = BlurHash(bytes.NewReader(data))
	return key, hash, nil
}
