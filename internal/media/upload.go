package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
)

const DefaultMaxUploadSize int64 = 10 << 20

var (
	ErrTooLarge        = errors.New("file exceeds maximum upload size")
	ErrUnsupportedType = errors.New("unsupported image type")
)

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// Upload is a stored image.
type Upload struct {
	Key      string
	BlurHash string
}

// SaveImage validates an uploaded image by content sniffing and stores it.
func SaveImage(ctx context.Context, store Store, prefix string, header *multipart.FileHeader, maxSize int64) (Upload, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxUploadSize
	}
	if header.Size > maxSize {
		return Upload{}, ErrTooLarge
	}

	file, err := header.Open()
	if err != nil {
		return Upload{}, fmt.Errorf("open upload: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxSize+1))
	if err != nil {
		return Upload{}, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > maxSize {
		return Upload{}, ErrTooLarge
	}

	contentType := http.DetectContentType(data)
	if !allowedImageTypes[contentType] {
		return Upload{}, fmt.Errorf("%w: %s", ErrUnsupportedType, contentType)
	}

	key, err := store.Save(ctx, prefix, header.Filename, bytes.NewReader(data), contentType)
	if err != nil {
		return Upload{}, err
	}

	// A missing placeholder never fails the upload.
	hash, _ := BlurHash(bytes.NewReader(data))
	return Upload{Key: key, BlurHash: hash}, nil
}

// SaveAudio stores generated speech under PrefixAudio.
func SaveAudio(ctx context.Context, store Store, data []byte) (string, error) {
	return store.Save(ctx, PrefixAudio, "speech.mp3", bytes.NewReader(data), "audio/mpeg")
}
