package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// DefaultDelimiter separates simulated folder levels in keys.
const DefaultDelimiter = "/"

// MaxPageSize is the largest page a single List call returns.
const MaxPageSize = 1000

// ErrNotFound is returned (possibly wrapped) when a key does not exist.
var ErrNotFound = errors.New("object not found")

// ObjectInfo describes a stored object
type ObjectInfo struct {
	Key          string
	Size         int64
	ContentType  string
	ETag         string
	LastModified time.Time
	Metadata     map[string]string
}

// Object is a streaming handle to an object's content.
// The caller must close Body.
type Object struct {
	Info ObjectInfo
	Body io.ReadCloser
}

// PutOptions are attached to an object at write time.
type PutOptions struct {
	ContentType string
	Metadata    map[string]string
}

// ListOptions controls a single List call.
type ListOptions struct {
	// Prefix restricts results to keys starting with it.
	Prefix string

	// Delimiter, when set, groups keys sharing Prefix up to the next
	// delimiter into CommonPrefixes.
	Delimiter string

	// Cursor resumes a previous listing. Empty starts from the beginning.
	Cursor string

	// Limit caps the entries (objects plus common prefixes) returned.
	// Zero or anything above MaxPageSize means MaxPageSize.
	Limit int
}

// ListResult is one page of a listing.
type ListResult struct {
	Objects        []ObjectInfo
	CommonPrefixes []string
	Cursor         string
	Truncated      bool
}

// Storage is the object-store primitive set every backend implements.
// Keys are flat strings; there is no directory concept.
type Storage interface {
	// Put writes an object, replacing any existing object at key.
	Put(ctx context.Context, key string, body io.Reader, size int64, opts PutOptions) error

	// Get opens an object for reading.
	Get(ctx context.Context, key string) (*Object, error)

	// Head returns object metadata without the body.
	Head(ctx context.Context, key string) (*ObjectInfo, error)

	// Delete removes an object. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// List returns one page of keys under opts.Prefix in lexicographic order.
	List(ctx context.Context, opts ListOptions) (*ListResult, error)
}

// IsNotFound reports whether err means the key does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func pageLimit(limit int) int {
	if limit <= 0 || limit > MaxPageSize {
		return MaxPageSize
	}
	return limit
}

func copyMetadata(metadata map[string]string) map[string]string {
	result := make(map[string]string, len(metadata))
	for k, v := range metadata {
		result[k] = v
	}
	return result
}
