package storage

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"course-media/apperr"
	"course-media/entities"
)

const dataURLPrefix = "data:"

// Inline encodes the asset into its own locator as a data URL. Used
// when the deployment has no writable filesystem, and as the fallback
// when another strategy's write fails.
type Inline struct{}

func NewInline() *Inline {
	return &Inline{}
}

func (i *Inline) Persist(ctx context.Context, data []byte, mimeType, suggestedName string) (entities.StoredAsset, error) {
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	locator := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data))
	return entities.StoredAsset{
		Locator:  locator,
		MimeType: mimeType,
		ByteSize: int64(len(data)),
	}, nil
}

func (i *Inline) Size(ctx context.Context, locator string) (int64, error) {
	data, err := i.decode(locator)
	if err != nil {
		return 0, err
	}
	return int64(len(data)), nil
}

func (i *Inline) ReadRange(ctx context.Context, locator string, start, length int64) ([]byte, error) {
	data, err := i.decode(locator)
	if err != nil {
		return nil, err
	}
	if start >= int64(len(data)) {
		return nil, &apperr.RangeNotSatisfiableError{Size: int64(len(data))}
	}
	end := start + length
	if end > int64(len(data)) {
		end = int64(len(data))
	}
	return data[start:end], nil
}

func (i *Inline) decode(locator string) ([]byte, error) {
	if !strings.HasPrefix(locator, dataURLPrefix) {
		return nil, apperr.NotFound("asset")
	}
	_, payload, found := strings.Cut(locator, ";base64,")
	if !found {
		return nil, apperr.NotFound("asset")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, apperr.Storage(err)
	}
	return data, nil
}
