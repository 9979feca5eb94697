package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"
)

type memoryObject struct {
	data []byte
	info ObjectInfo
}

// MemoryStorage is an in-process Storage backed by a map. It orders,
// groups and pages keys the way S3-compatible stores do, which makes it
// suitable both for tests and for running the service without a backend.
type MemoryStorage struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
	now     func() time.Time
}

// NewMemoryStorage creates an empty in-memory store
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		objects: make(map[string]memoryObject),
		now:     time.Now,
	}
}

// Put stores a copy of body under key
func (m *MemoryStorage) Put(ctx context.Context, key string, body io.Reader, size int64, opts PutOptions) error {
	if key == "" {
		return fmt.Errorf("empty key")
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = memoryObject{
		data: data,
		info: ObjectInfo{
			Key:          key,
			Size:         int64(len(data)),
			ContentType:  opts.ContentType,
			ETag:         fmt.Sprintf("%x", len(data)),
			LastModified: m.now().UTC(),
			Metadata:     copyMetadata(opts.Metadata),
		},
	}
	return nil
}

// Get opens the object stored under key
func (m *MemoryStorage) Get(ctx context.Context, key string) (*Object, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[key]
	if !ok {
		return nil, fmt.Errorf("get %s: %w", key, ErrNotFound)
	}
	info := obj.info
	info.Metadata = copyMetadata(obj.info.Metadata)
	return &Object{
		Info: info,
		Body: io.NopCloser(bytes.NewReader(obj.data)),
	}, nil
}

// Head returns the metadata of the object stored under key
func (m *MemoryStorage) Head(ctx context.Context, key string) (*ObjectInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[key]
	if !ok {
		return nil, fmt.Errorf("head %s: %w", key, ErrNotFound)
	}
	info := obj.info
	info.Metadata = copyMetadata(obj.info.Metadata)
	return &info, nil
}

// Delete removes key; missing keys are ignored
func (m *MemoryStorage) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

// List returns one lexicographically ordered page under opts.Prefix
func (m *MemoryStorage) List(ctx context.Context, opts ListOptions) (*ListResult, error) {
	limit := pageLimit(opts.Limit)
	marker := startAfter(opts.Cursor, opts.Delimiter)

	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		if strings.HasPrefix(k, opts.Prefix) && k > marker {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	result := &ListResult{}
	count := 0
	last := ""
	lastPrefix := ""
	for _, k := range keys {
		if cp := commonPrefix(k, opts.Prefix, opts.Delimiter); cp != "" {
			if cp == lastPrefix {
				continue
			}
			if count == limit {
				result.Truncated = true
				break
			}
			result.CommonPrefixes = append(result.CommonPrefixes, cp)
			lastPrefix = cp
			last = cp
			count++
			continue
		}

		if count == limit {
			result.Truncated = true
			break
		}
		info := m.objects[k].info
		info.Metadata = copyMetadata(info.Metadata)
		result.Objects = append(result.Objects, info)
		last = k
		count++
	}

	if result.Truncated {
		result.Cursor = last
	}
	return result, nil
}

// Keys returns every stored key in sorted order
func (m *MemoryStorage) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of stored objects
func (m *MemoryStorage) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
