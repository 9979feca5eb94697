package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/huaweicloud/huaweicloud-sdk-go-obs/obs"
)

// OBStorage implements the Storage interface for Huawei Cloud OBS
type OBStorage struct {
	client *obs.ObsClient
	bucket string
}

// NewOBStorage creates a new OBS storage instance bound to bucket
func NewOBStorage(endpoint, accessKey, secretKey string, useSSL bool, bucket string) (*OBStorage, error) {
	if !useSSL {
		endpoint = "http://" + endpoint
	} else {
		endpoint = "https://" + endpoint
	}

	client, err := obs.New(accessKey, secretKey, endpoint)
	if err != nil {
		return nil, err
	}

	return &OBStorage{
		client: client,
		bucket: bucket,
	}, nil
}

// Put uploads an object to OBS
func (o *OBStorage) Put(ctx context.Context, key string, body io.Reader, size int64, opts PutOptions) error {
	input := &obs.PutObjectInput{}
	input.Bucket = o.bucket
	input.Key = key
	input.Body = body
	input.ContentLength = size
	input.Metadata = opts.Metadata
	if opts.ContentType != "" {
		input.ContentType = opts.ContentType
	}

	_, err := o.client.PutObject(input)
	return o.mapError(err, key)
}

// Get downloads an object from OBS
func (o *OBStorage) Get(ctx context.Context, key string) (*Object, error) {
	input := &obs.GetObjectInput{}
	input.Bucket = o.bucket
	input.Key = key

	output, err := o.client.GetObject(input)
	if err != nil {
		return nil, o.mapError(err, key)
	}

	return &Object{
		Info: fromOBSMetadata(key, &output.GetObjectMetadataOutput),
		Body: output.Body,
	}, nil
}

// Head gets metadata of an object from OBS
func (o *OBStorage) Head(ctx context.Context, key string) (*ObjectInfo, error) {
	input := &obs.GetObjectMetadataInput{}
	input.Bucket = o.bucket
	input.Key = key

	output, err := o.client.GetObjectMetadata(input)
	if err != nil {
		return nil, o.mapError(err, key)
	}

	info := fromOBSMetadata(key, output)
	return &info, nil
}

// Delete deletes an object from OBS
func (o *OBStorage) Delete(ctx context.Context, key string) error {
	input := &obs.DeleteObjectInput{}
	input.Bucket = o.bucket
	input.Key = key

	_, err := o.client.DeleteObject(input)
	return o.mapError(err, key)
}

// List lists one page of objects using marker pagination
func (o *OBStorage) List(ctx context.Context, opts ListOptions) (*ListResult, error) {
	input := &obs.ListObjectsInput{}
	input.Bucket = o.bucket
	input.Prefix = opts.Prefix
	input.MaxKeys = pageLimit(opts.Limit)
	input.Delimiter = opts.Delimiter
	input.Marker = opts.Cursor

	output, err := o.client.ListObjects(input)
	if err != nil {
		return nil, o.mapError(err, opts.Prefix)
	}

	result := &ListResult{
		CommonPrefixes: output.CommonPrefixes,
		Truncated:      output.IsTruncated,
		Cursor:         output.NextMarker,
	}
	for _, object := range output.Contents {
		result.Objects = append(result.Objects, ObjectInfo{
			Key:          object.Key,
			Size:         object.Size,
			ETag:         strings.Trim(object.ETag, `"`),
			LastModified: object.LastModified,
		})
	}
	return result, nil
}

func (o *OBStorage) mapError(err error, key string) error {
	if err == nil {
		return nil
	}
	var obsError obs.ObsError
	if errors.As(err, &obsError) {
		if obsError.Code == "NoSuchKey" || obsError.StatusCode == http.StatusNotFound {
			return fmt.Errorf("obs %s: %w", key, ErrNotFound)
		}
	}
	return fmt.Errorf("obs %s: %w", key, err)
}

func fromOBSMetadata(key string, output *obs.GetObjectMetadataOutput) ObjectInfo {
	contentType := output.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return ObjectInfo{
		Key:          key,
		Size:         output.ContentLength,
		ContentType:  contentType,
		ETag:         strings.Trim(output.ETag, `"`),
		LastModified: output.LastModified,
		Metadata:     convertMetadata(output.Metadata),
	}
}
