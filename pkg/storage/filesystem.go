package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"course-media/apperr"
	"course-media/entities"
)

// Filesystem stores assets as files under a root directory. Locators
// are paths relative to the root, never absolute.
type Filesystem struct {
	root string
}

func NewFilesystem(root string) *Filesystem {
	return &Filesystem{root: root}
}

func (f *Filesystem) Persist(ctx context.Context, data []byte, mimeType, suggestedName string) (entities.StoredAsset, error) {
	if err := os.MkdirAll(f.root, os.ModePerm); err != nil {
		return entities.StoredAsset{}, apperr.Storage(err)
	}

	name := fmt.Sprintf("%d-%s-%s", time.Now().UnixNano(), uuid.NewString()[:8], sanitizeName(suggestedName))
	if err := os.WriteFile(filepath.Join(f.root, name), data, 0644); err != nil {
		return entities.StoredAsset{}, apperr.Storage(err)
	}

	return entities.StoredAsset{
		Locator:  name,
		MimeType: mimeType,
		ByteSize: int64(len(data)),
	}, nil
}

func (f *Filesystem) Size(ctx context.Context, locator string) (int64, error) {
	info, err := os.Stat(f.resolve(locator))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, apperr.NotFound("asset")
		}
		return 0, apperr.Storage(err)
	}
	return info.Size(), nil
}

func (f *Filesystem) ReadRange(ctx context.Context, locator string, start, length int64) ([]byte, error) {
	file, err := os.Open(f.resolve(locator))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperr.NotFound("asset")
		}
		return nil, apperr.Storage(err)
	}
	defer file.Close()

	if _, err := file.Seek(start, io.SeekStart); err != nil {
		return nil, apperr.Storage(err)
	}

	buf := make([]byte, length)
	n, err := io.ReadFull(file, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, apperr.Storage(err)
	}
	return buf[:n], nil
}

func (f *Filesystem) resolve(locator string) string {
	// Locators are stored relative to the root; reject traversal out
	// of it.
	clean := filepath.Clean(locator)
	if filepath.IsAbs(clean) || strings.HasPrefix(clean, "..") {
		return filepath.Join(f.root, filepath.Base(clean))
	}
	return filepath.Join(f.root, clean)
}

func sanitizeName(name string) string {
	base := filepath.Base(name)
	if base == "." || base == string(filepath.Separator) || base == "" {
		return "asset"
	}
	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
