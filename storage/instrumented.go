package storage

import (
	"context"
	"io"
	"time"
)

// Observer receives the outcome of every store call made through an
// instrumented Storage.
type Observer interface {
	ObserveStoreOperation(operation string, duration time.Duration, err error)
}

type instrumented struct {
	next     Storage
	observer Observer
}

// Instrument wraps s so that each call is reported to observer. A nil
// observer returns s unchanged.
func Instrument(s Storage, observer Observer) Storage {
	if observer == nil {
		return s
	}
	return &instrumented{next: s, observer: observer}
}

func (i *instrumented) observe(operation string, start time.Time, err error) {
	i.observer.ObserveStoreOperation(operation, time.Since(start), err)
}

func (i *instrumented) Put(ctx context.Context, key string, body io.Reader, size int64, opts PutOptions) (err error) {
	defer func(start time.Time) { i.observe("put", start, err) }(time.Now())
	return i.next.Put(ctx, key, body, size, opts)
}

func (i *instrumented) Get(ctx context.Context, key string) (obj *Object, err error) {
	defer func(start time.Time) { i.observe("get", start, err) }(time.Now())
	return i.next.Get(ctx, key)
}

func (i *instrumented) Head(ctx context.Context, key string) (info *ObjectInfo, err error) {
	defer func(start time.Time) { i.observe("head", start, err) }(time.Now())
	return i.next.Head(ctx, key)
}

func (i *instrumented) Delete(ctx context.Context, key string) (err error) {
	defer func(start time.Time) { i.observe("delete", start, err) }(time.Now())
	return i.next.Delete(ctx, key)
}

func (i *instrumented) List(ctx context.Context, opts ListOptions) (result *ListResult, err error) {
	defer func(start time.Time) { i.observe("list", start, err) }(time.Now())
	return i.next.List(ctx, opts)
}
