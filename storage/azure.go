package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"
)

// AzureStorage implements the Storage interface for Azure Blob Storage
type AzureStorage struct {
	client    *azblob.Client
	container string
}

// NewAzureStorage creates a new Azure Blob storage instance bound to containerName
func NewAzureStorage(accountName, accountKey, serviceURL, containerName string) (*AzureStorage, error) {
	credential, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, err
	}

	client, err := azblob.NewClientWithSharedKeyCredential(serviceURL, credential, nil)
	if err != nil {
		return nil, err
	}

	return &AzureStorage{
		client:    client,
		container: containerName,
	}, nil
}

// NewAzureStorageFromConnectionString creates an Azure Blob storage instance from a connection string
func NewAzureStorageFromConnectionString(connectionString, containerName string) (*AzureStorage, error) {
	client, err := azblob.NewClientFromConnectionString(connectionString, nil)
	if err != nil {
		return nil, err
	}

	return &AzureStorage{
		client:    client,
		container: containerName,
	}, nil
}

// Put uploads a blob to Azure Blob Storage
func (a *AzureStorage) Put(ctx context.Context, key string, body io.Reader, size int64, opts PutOptions) error {
	options := &azblob.UploadStreamOptions{
		Metadata: toAzureMetadata(opts.Metadata),
	}
	if opts.ContentType != "" {
		contentType := opts.ContentType
		options.HTTPHeaders = &blob.HTTPHeaders{
			BlobContentType: &contentType,
		}
	}

	_, err := a.client.UploadStream(ctx, a.container, key, body, options)
	return a.mapError(err, key)
}

// Get downloads a blob from Azure Blob Storage
func (a *AzureStorage) Get(ctx context.Context, key string) (*Object, error) {
	resp, err := a.client.DownloadStream(ctx, a.container, key, nil)
	if err != nil {
		return nil, a.mapError(err, key)
	}

	info := ObjectInfo{
		Key:      key,
		Metadata: fromAzureMetadata(resp.Metadata),
	}
	if resp.ContentType != nil {
		info.ContentType = *resp.ContentType
	}
	if resp.ContentLength != nil {
		info.Size = *resp.ContentLength
	}
	if resp.LastModified != nil {
		info.LastModified = *resp.LastModified
	}
	if resp.ETag != nil {
		info.ETag = strings.Trim(string(*resp.ETag), `"`)
	}

	return &Object{Info: info, Body: resp.Body}, nil
}

// Head gets the properties of a blob
func (a *AzureStorage) Head(ctx context.Context, key string) (*ObjectInfo, error) {
	blobClient := a.client.ServiceClient().NewContainerClient(a.container).NewBlobClient(key)
	resp, err := blobClient.GetProperties(ctx, nil)
	if err != nil {
		return nil, a.mapError(err, key)
	}

	info := &ObjectInfo{
		Key:         key,
		ContentType: "application/octet-stream",
		Metadata:    fromAzureMetadata(resp.Metadata),
	}
	if resp.ContentType != nil {
		info.ContentType = *resp.ContentType
	}
	if resp.ContentLength != nil {
		info.Size = *resp.ContentLength
	}
	if resp.LastModified != nil {
		info.LastModified = *resp.LastModified
	}
	if resp.ETag != nil {
		info.ETag = strings.Trim(string(*resp.ETag), `"`)
	}
	return info, nil
}

// Delete deletes a blob. Azure reports missing blobs as 404, which is
// treated as success.
func (a *AzureStorage) Delete(ctx context.Context, key string) error {
	_, err := a.client.DeleteBlob(ctx, a.container, key, nil)
	if err = a.mapError(err, key); IsNotFound(err) {
		return nil
	}
	return err
}

// List lists one page of blobs. Delimited listings go through the
// hierarchy pager so that BlobPrefixes come back as common prefixes.
func (a *AzureStorage) List(ctx context.Context, opts ListOptions) (*ListResult, error) {
	maxResults := int32(pageLimit(opts.Limit))
	var marker *string
	if opts.Cursor != "" {
		marker = &opts.Cursor
	}
	prefix := opts.Prefix

	if opts.Delimiter == "" {
		pager := a.client.NewListBlobsFlatPager(a.container, &azblob.ListBlobsFlatOptions{
			Prefix:     &prefix,
			Marker:     marker,
			MaxResults: &maxResults,
		})
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, a.mapError(err, opts.Prefix)
		}

		result := &ListResult{}
		if resp.Segment != nil {
			for _, item := range resp.Segment.BlobItems {
				result.Objects = append(result.Objects, fromBlobItem(item))
			}
		}
		setAzureCursor(result, resp.NextMarker)
		return result, nil
	}

	containerClient := a.client.ServiceClient().NewContainerClient(a.container)
	pager := containerClient.NewListBlobsHierarchyPager(opts.Delimiter, &container.ListBlobsHierarchyOptions{
		Prefix:     &prefix,
		Marker:     marker,
		MaxResults: &maxResults,
	})
	resp, err := pager.NextPage(ctx)
	if err != nil {
		return nil, a.mapError(err, opts.Prefix)
	}

	result := &ListResult{}
	if resp.Segment != nil {
		for _, item := range resp.Segment.BlobItems {
			result.Objects = append(result.Objects, fromBlobItem(item))
		}
		for _, p := range resp.Segment.BlobPrefixes {
			if p.Name != nil {
				result.CommonPrefixes = append(result.CommonPrefixes, *p.Name)
			}
		}
	}
	setAzureCursor(result, resp.NextMarker)
	return result, nil
}

func (a *AzureStorage) mapError(err error, key string) error {
	if err == nil {
		return nil
	}
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) && respErr.StatusCode == http.StatusNotFound {
		return fmt.Errorf("azure %s: %w", key, ErrNotFound)
	}
	return fmt.Errorf("azure %s: %w", key, err)
}

func setAzureCursor(result *ListResult, next *string) {
	if next != nil && *next != "" {
		result.Cursor = *next
		result.Truncated = true
	}
}

func fromBlobItem(item *container.BlobItem) ObjectInfo {
	info := ObjectInfo{
		ContentType: "application/octet-stream",
		Metadata:    fromAzureMetadata(item.Metadata),
	}
	if item.Name != nil {
		info.Key = *item.Name
	}
	if props := item.Properties; props != nil {
		if props.ContentType != nil {
			info.ContentType = *props.ContentType
		}
		if props.ContentLength != nil {
			info.Size = *props.ContentLength
		}
		if props.LastModified != nil {
			info.LastModified = *props.LastModified
		}
		if props.ETag != nil {
			info.ETag = strings.Trim(string(*props.ETag), `"`)
		}
	}
	return info
}

// Azure metadata names must be valid identifiers, so hyphens are stored
// as underscores.
func toAzureMetadata(metadata map[string]string) map[string]*string {
	if len(metadata) == 0 {
		return nil
	}
	result := make(map[string]*string, len(metadata))
	for k, v := range metadata {
		value := v
		result[strings.ReplaceAll(k, "-", "_")] = &value
	}
	return result
}

func fromAzureMetadata(metadata map[string]*string) map[string]string {
	result := make(map[string]string, len(metadata))
	for k, v := range metadata {
		if v == nil {
			continue
		}
		result[strings.ToLower(strings.ReplaceAll(k, "_", "-"))] = *v
	}
	return result
}
