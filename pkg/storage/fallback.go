package storage

import (
	"context"

	"github.com/rs/zerolog"

	"course-media/entities"
)

// fallbackBackend tries the primary write strategy and degrades to
// inline encoding when it fails, so a dead disk or unreachable object
// store never loses a finished upload.
type fallbackBackend struct {
	primary Backend
	inline  *Inline
}

func WithInlineFallback(primary Backend, inline *Inline) Backend {
	return &fallbackBackend{primary: primary, inline: inline}
}

func (f *fallbackBackend) Persist(ctx context.Context, data []byte, mimeType, suggestedName string) (entities.StoredAsset, error) {
	asset, err := f.primary.Persist(ctx, data, mimeType, suggestedName)
	if err == nil {
		return asset, nil
	}

	zerolog.Ctx(ctx).Warn().Err(err).Msg("primary storage write failed, falling back to inline encoding")
	return f.inline.Persist(ctx, data, mimeType, suggestedName)
}

func (f *fallbackBackend) Size(ctx context.Context, locator string) (int64, error) {
	return f.primary.Size(ctx, locator)
}

func (f *fallbackBackend) ReadRange(ctx context.Context, locator string, start, length int64) ([]byte, error) {
	return f.primary.ReadRange(ctx, locator, start, length)
}
