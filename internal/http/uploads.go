package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	domainerrors "github.com/mrlokans/bookclub/internal/errors"
	"github.com/mrlokans/bookclub/internal/media"
)

// uploader stores image files posted in multipart forms.
type uploader struct {
	store   media.Store
	maxSize int64
}

// image saves the file posted under field, returning nil when the request
// carries no such file.
func (u uploader) image(c *gin.Context, field, prefix string) (*media.Upload, error) {
	if !strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		return nil, nil
	}
	header, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, domainerrors.ValidationWithDetails("validation failed", map[string]string{field: "could not read upload"})
	}
	if u.store == nil {
		return nil, domainerrors.ValidationWithDetails("validation failed", map[string]string{field: "uploads are disabled"})
	}

	upload, err := media.SaveImage(c.Request.Context(), u.store, prefix, header, u.maxSize)
	switch {
	case errors.Is(err, media.ErrTooLarge):
		return nil, domainerrors.ValidationWithDetails("validation failed", map[string]string{field: "file is too large"})
	case errors.Is(err, media.ErrUnsupportedType):
		return nil, domainerrors.ValidationWithDetails("validation failed", map[string]string{field: "must be a JPEG, PNG, GIF or WebP image"})
	case err != nil:
		return nil, err
	}
	return &upload, nil
}

// discard removes uploads saved for a write that did not happen.
func (u uploader) discard(ctx context.Context, uploads ...*media.Upload) {
	for _, up := range uploads {
		if up != nil {
			media.DeleteAll(ctx, u.store, up.Key)
		}
	}
}
