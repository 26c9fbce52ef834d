package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"

	"course-media/apperr"
	"course-media/entities"
)

const objectLocatorPrefix = "s3://"

// ObjectStore persists assets as MinIO objects, locator form
// s3://<bucket>/<object>.
type ObjectStore struct {
	client *minio.Client
	bucket string
}

func NewObjectStore(client *minio.Client, bucket string) *ObjectStore {
	return &ObjectStore{client: client, bucket: bucket}
}

func (o *ObjectStore) Persist(ctx context.Context, data []byte, mimeType, suggestedName string) (entities.StoredAsset, error) {
	objectName := fmt.Sprintf("videos/%d-%s-%s", time.Now().UnixNano(), uuid.NewString()[:8], sanitizeName(suggestedName))

	_, err := o.client.PutObject(ctx, o.bucket, objectName, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: mimeType,
	})
	if err != nil {
		return entities.StoredAsset{}, apperr.Storage(err)
	}

	return entities.StoredAsset{
		Locator:  objectLocatorPrefix + o.bucket + "/" + objectName,
		MimeType: mimeType,
		ByteSize: int64(len(data)),
	}, nil
}

func (o *ObjectStore) Size(ctx context.Context, locator string) (int64, error) {
	bucket, object, err := splitObjectLocator(locator)
	if err != nil {
		return 0, err
	}
	info, err := o.client.StatObject(ctx, bucket, object, minio.StatObjectOptions{})
	if err != nil {
		return 0, translateMinioErr(err)
	}
	return info.Size, nil
}

func (o *ObjectStore) ReadRange(ctx context.Context, locator string, start, length int64) ([]byte, error) {
	bucket, object, err := splitObjectLocator(locator)
	if err != nil {
		return nil, err
	}

	opts := minio.GetObjectOptions{}
	if err := opts.SetRange(start, start+length-1); err != nil {
		return nil, apperr.Storage(err)
	}

	reader, err := o.client.GetObject(ctx, bucket, object, opts)
	if err != nil {
		return nil, translateMinioErr(err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, translateMinioErr(err)
	}
	return data, nil
}

func splitObjectLocator(locator string) (bucket, object string, err error) {
	rest, ok := strings.CutPrefix(locator, objectLocatorPrefix)
	if !ok {
		return "", "", apperr.NotFound("asset")
	}
	bucket, object, found := strings.Cut(rest, "/")
	if !found || bucket == "" || object == "" {
		return "", "", apperr.NotFound("asset")
	}
	return bucket, object, nil
}

func translateMinioErr(err error) error {
	resp := minio.ToErrorResponse(err)
	if resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket" {
		return apperr.NotFound("asset")
	}
	return apperr.Storage(err)
}
