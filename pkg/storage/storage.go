// Package storage persists assembled uploads and reads them back by
// locator. Three strategies satisfy the same contract: filesystem,
// inline data URL, and a MinIO object store. Writes go through the
// configured strategy; reads dispatch on the locator shape so assets
// written under a previous deployment mode stay readable.
package storage

import (
	"context"
	"strings"

	"github.com/minio/minio-go/v7"

	"course-media/apperr"
	"course-media/constant"
	"course-media/entities"
)

type Backend interface {
	Persist(ctx context.Context, data []byte, mimeType, suggestedName string) (entities.StoredAsset, error)
	Size(ctx context.Context, locator string) (int64, error)
	ReadRange(ctx context.Context, locator string, start, length int64) ([]byte, error)
}

// Store is the deployment-facing backend: one write strategy (with
// inline fallback) plus locator-based read dispatch.
type Store struct {
	write  Backend
	fs     *Filesystem
	inline *Inline
	object *ObjectStore
}

func New(mode constant.StorageMode, root string, client *minio.Client, bucket string) *Store {
	s := &Store{
		fs:     NewFilesystem(root),
		inline: NewInline(),
	}
	if client != nil {
		s.object = NewObjectStore(client, bucket)
	}

	switch mode {
	case constant.StorageModeInline:
		s.write = s.inline
	case constant.StorageModeObject:
		if s.object != nil {
			s.write = WithInlineFallback(s.object, s.inline)
		} else {
			s.write = s.inline
		}
	default:
		s.write = WithInlineFallback(s.fs, s.inline)
	}

	return s
}

func (s *Store) Persist(ctx context.Context, data []byte, mimeType, suggestedName string) (entities.StoredAsset, error) {
	return s.write.Persist(ctx, data, mimeType, suggestedName)
}

func (s *Store) Size(ctx context.Context, locator string) (int64, error) {
	backend, err := s.readerFor(locator)
	if err != nil {
		return 0, err
	}
	return backend.Size(ctx, locator)
}

func (s *Store) ReadRange(ctx context.Context, locator string, start, length int64) ([]byte, error) {
	backend, err := s.readerFor(locator)
	if err != nil {
		return nil, err
	}
	return backend.ReadRange(ctx, locator, start, length)
}

func (s *Store) readerFor(locator string) (Backend, error) {
	switch {
	case strings.HasPrefix(locator, dataURLPrefix):
		return s.inline, nil
	case strings.HasPrefix(locator, objectLocatorPrefix):
		if s.object == nil {
			return nil, apperr.NotFound("asset")
		}
		return s.object, nil
	default:
		return s.fs, nil
	}
}

var _ Backend = (*Store)(nil)
