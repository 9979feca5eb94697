package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
)

const ossMetaPrefix = "X-Oss-Meta-"

// OSSStorage implements the Storage interface for Aliyun OSS
type OSSStorage struct {
	bucket *oss.Bucket
}

// NewOSSStorage creates a new OSS storage instance bound to bucketName
func NewOSSStorage(endpoint, accessKey, secretKey string, useSSL bool, bucketName string) (*OSSStorage, error) {
	options := []oss.ClientOption{}
	if !useSSL {
		options = append(options, oss.HTTPClient(new(http.Client)))
	}

	client, err := oss.New(endpoint, accessKey, secretKey, options...)
	if err != nil {
		return nil, err
	}

	bucket, err := client.Bucket(bucketName)
	if err != nil {
		return nil, err
	}

	return &OSSStorage{
		bucket: bucket,
	}, nil
}

// Put uploads an object to OSS
func (o *OSSStorage) Put(ctx context.Context, key string, body io.Reader, size int64, opts PutOptions) error {
	var options []oss.Option
	if opts.ContentType != "" {
		options = append(options, oss.ContentType(opts.ContentType))
	}
	for k, v := range opts.Metadata {
		options = append(options, oss.Meta(k, v))
	}

	return o.mapError(o.bucket.PutObject(key, body, options...), key)
}

// Get downloads an object from OSS
func (o *OSSStorage) Get(ctx context.Context, key string) (*Object, error) {
	info, err := o.Head(ctx, key)
	if err != nil {
		return nil, err
	}

	body, err := o.bucket.GetObject(key)
	if err != nil {
		return nil, o.mapError(err, key)
	}

	return &Object{Info: *info, Body: body}, nil
}

// Head gets object metadata from OSS
func (o *OSSStorage) Head(ctx context.Context, key string) (*ObjectInfo, error) {
	props, err := o.bucket.GetObjectDetailedMeta(key)
	if err != nil {
		return nil, o.mapError(err, key)
	}

	contentLength, _ := strconv.ParseInt(props.Get("Content-Length"), 10, 64)
	lastModified, _ := time.Parse(http.TimeFormat, props.Get("Last-Modified"))

	metadata := make(map[string]string)
	for k, v := range props {
		if len(v) > 0 && strings.HasPrefix(k, ossMetaPrefix) {
			metadata[strings.ToLower(strings.TrimPrefix(k, ossMetaPrefix))] = v[0]
		}
	}

	return &ObjectInfo{
		Key:          key,
		Size:         contentLength,
		ContentType:  props.Get("Content-Type"),
		ETag:         strings.Trim(props.Get("ETag"), `"`),
		LastModified: lastModified,
		Metadata:     metadata,
	}, nil
}

// Delete deletes an object from OSS
func (o *OSSStorage) Delete(ctx context.Context, key string) error {
	return o.mapError(o.bucket.DeleteObject(key), key)
}

// List lists one page of objects using marker pagination
func (o *OSSStorage) List(ctx context.Context, opts ListOptions) (*ListResult, error) {
	options := []oss.Option{
		oss.Prefix(opts.Prefix),
		oss.MaxKeys(pageLimit(opts.Limit)),
	}
	if opts.Delimiter != "" {
		options = append(options, oss.Delimiter(opts.Delimiter))
	}
	if opts.Cursor != "" {
		options = append(options, oss.Marker(opts.Cursor))
	}

	lsRes, err := o.bucket.ListObjects(options...)
	if err != nil {
		return nil, o.mapError(err, opts.Prefix)
	}

	result := &ListResult{
		CommonPrefixes: lsRes.CommonPrefixes,
		Truncated:      lsRes.IsTruncated,
		Cursor:         lsRes.NextMarker,
	}
	for _, object := range lsRes.Objects {
		result.Objects = append(result.Objects, ObjectInfo{
			Key:          object.Key,
			Size:         object.Size,
			ETag:         strings.Trim(object.ETag, `"`),
			LastModified: object.LastModified,
		})
	}
	return result, nil
}

func (o *OSSStorage) mapError(err error, key string) error {
	if err == nil {
		return nil
	}
	var ossErr oss.ServiceError
	if errors.As(err, &ossErr) {
		if ossErr.Code == "NoSuchKey" || ossErr.StatusCode == http.StatusNotFound {
			return fmt.Errorf("oss %s: %w", key, ErrNotFound)
		}
	}
	return fmt.Errorf("oss %s: %w", key, err)
}
