package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIOStorage implements the Storage interface for MinIO
type MinIOStorage struct {
	client *minio.Client
	bucket string
}

// NewMinIOStorage creates a new MinIO storage instance bound to bucket
func NewMinIOStorage(endpoint, accessKeyID, secretAccessKey string, useSSL bool, bucket string) (*MinIOStorage, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKeyID, secretAccessKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, err
	}

	return &MinIOStorage{
		client: client,
		bucket: bucket,
	}, nil
}

// Put uploads an object to MinIO
func (m *MinIOStorage) Put(ctx context.Context, key string, body io.Reader, size int64, opts PutOptions) error {
	_, err := m.client.PutObject(ctx, m.bucket, key, body, size, minio.PutObjectOptions{
		ContentType:  opts.ContentType,
		UserMetadata: opts.Metadata,
	})
	return m.mapError(err, key)
}

// Get downloads an object from MinIO
func (m *MinIOStorage) Get(ctx context.Context, key string) (*Object, error) {
	obj, err := m.client.GetObject(ctx, m.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, m.mapError(err, key)
	}

	// GetObject is lazy; Stat surfaces a missing key.
	info, err := obj.Stat()
	if err != nil {
		_ = obj.Close()
		return nil, m.mapError(err, key)
	}

	return &Object{Info: fromMinIO(info), Body: obj}, nil
}

// Head gets metadata of an object from MinIO
func (m *MinIOStorage) Head(ctx context.Context, key string) (*ObjectInfo, error) {
	info, err := m.client.StatObject(ctx, m.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return nil, m.mapError(err, key)
	}
	converted := fromMinIO(info)
	return &converted, nil
}

// Delete deletes an object from MinIO
func (m *MinIOStorage) Delete(ctx context.Context, key string) error {
	return m.mapError(m.client.RemoveObject(ctx, m.bucket, key, minio.RemoveObjectOptions{}), key)
}

// List lists one page of objects. MinIO resumes by key, so the cursor is
// the last key (or common prefix) of the previous page.
func (m *MinIOStorage) List(ctx context.Context, opts ListOptions) (*ListResult, error) {
	limit := pageLimit(opts.Limit)

	// Stop the listing goroutine once the page is full.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	objectCh := m.client.ListObjects(ctx, m.bucket, minio.ListObjectsOptions{
		Prefix:     opts.Prefix,
		Recursive:  opts.Delimiter == "",
		StartAfter: startAfter(opts.Cursor, opts.Delimiter),
		MaxKeys:    limit,
	})

	result := &ListResult{}
	count := 0
	last := ""
	for object := range objectCh {
		if object.Err != nil {
			return nil, m.mapError(object.Err, opts.Prefix)
		}
		if count == limit {
			result.Truncated = true
			break
		}

		if opts.Delimiter != "" && strings.HasSuffix(object.Key, opts.Delimiter) {
			result.CommonPrefixes = append(result.CommonPrefixes, object.Key)
		} else {
			result.Objects = append(result.Objects, fromMinIO(object))
		}
		last = object.Key
		count++
	}

	if result.Truncated {
		result.Cursor = last
	}
	return result, nil
}

func (m *MinIOStorage) mapError(err error, key string) error {
	if err == nil {
		return nil
	}
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchObject":
		return fmt.Errorf("minio %s: %w", key, ErrNotFound)
	}
	return fmt.Errorf("minio %s: %w", key, err)
}

func fromMinIO(info minio.ObjectInfo) ObjectInfo {
	return ObjectInfo{
		Key:          info.Key,
		Size:         info.Size,
		ContentType:  info.ContentType,
		ETag:         info.ETag,
		LastModified: info.LastModified,
		Metadata:     convertMetadata(info.UserMetadata),
	}
}

// convertMetadata lower-cases metadata keys; backends canonicalise them
// differently.
func convertMetadata(metadata map[string]string) map[string]string {
	result := make(map[string]string, len(metadata))
	for k, v := range metadata {
		result[strings.ToLower(k)] = v
	}
	return result
}
