package folders

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/example/image-browser/storage"
)

// MockStorage is a testify mock of storage.Storage.
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) Put(ctx context.Context, key string, body io.Reader, size int64, opts storage.PutOptions) error {
	args := m.Called(ctx, key, body, size, opts)
	return args.Error(0)
}

func (m *MockStorage) Get(ctx context.Context, key string) (*storage.Object, error) {
	args := m.Called(ctx, key)
	if obj := args.Get(0); obj != nil {
		return obj.(*storage.Object), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStorage) Head(ctx context.Context, key string) (*storage.ObjectInfo, error) {
	args := m.Called(ctx, key)
	if info := args.Get(0); info != nil {
		return info.(*storage.ObjectInfo), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStorage) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockStorage) List(ctx context.Context, opts storage.ListOptions) (*storage.ListResult, error) {
	args := m.Called(ctx, opts)
	if res := args.Get(0); res != nil {
		return res.(*storage.ListResult), args.Error(1)
	}
	return nil, args.Error(1)
}

var errInjected = errors.New("injected failure")

// faultyStore fails Put or Delete for selected keys and passes everything
// else through to a real in-memory store.
type faultyStore struct {
	*storage.MemoryStorage

	mu         sync.Mutex
	failPut    map[string]bool
	failDelete map[string]bool
}

func newFaultyStore() *faultyStore {
	return &faultyStore{
		MemoryStorage: storage.NewMemoryStorage(),
		failPut:       map[string]bool{},
		failDelete:    map[string]bool{},
	}
}

func (f *faultyStore) Put(ctx context.Context, key string, body io.Reader, size int64, opts storage.PutOptions) error {
	f.mu.Lock()
	fail := f.failPut[key]
	f.mu.Unlock()
	if fail {
		return errInjected
	}
	return f.MemoryStorage.Put(ctx, key, body, size, opts)
}

func (f *faultyStore) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	fail := f.failDelete[key]
	f.mu.Unlock()
	if fail {
		return errInjected
	}
	return f.MemoryStorage.Delete(ctx, key)
}
