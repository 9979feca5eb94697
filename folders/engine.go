// Package folders implements folder operations on top of a flat object
// store. A folder exists when at least one key carries its prefix; empty
// folders are kept alive by a placeholder object.
//
// Multi-object operations are sequences of single-key calls. They are not
// atomic and give no isolation from concurrent writers on the same prefix.
package folders

import (
	"bytes"
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/example/image-browser/apperr"
	"github.com/example/image-browser/keys"
	"github.com/example/image-browser/listing"
	"github.com/example/image-browser/pathsafe"
	"github.com/example/image-browser/storage"
)

// Options tunes an Engine. Zero values fall back to package defaults.
type Options struct {
	Sanitizer pathsafe.Sanitizer
	BatchSize int
	ReportCap int
}

// Engine performs folder operations.
type Engine struct {
	store     storage.Storage
	lister    *listing.Lister
	sanitizer pathsafe.Sanitizer
	batchSize int
	reportCap int
	now       func() time.Time
}

// NewEngine creates an Engine using lister for every listing and probe.
func NewEngine(store storage.Storage, lister *listing.Lister, opts Options) *Engine {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.ReportCap <= 0 {
		opts.ReportCap = DefaultReportCap
	}
	return &Engine{
		store:     store,
		lister:    lister,
		sanitizer: opts.Sanitizer,
		batchSize: opts.BatchSize,
		reportCap: opts.ReportCap,
		now:       time.Now,
	}
}

// Exists reports whether any object lives under path. Store errors are
// logged and reported as "does not exist".
func (e *Engine) Exists(ctx context.Context, path string) bool {
	ok, err := e.lister.Probe(ctx, path)
	if err != nil {
		logrus.WithError(err).WithField("path", path).Warn("Existence probe failed, assuming folder is absent")
		return false
	}
	return ok
}

// Create makes a top-level folder named name.
func (e *Engine) Create(ctx context.Context, name string) (string, error) {
	if err := pathsafe.ValidateFolderName(name); err != nil {
		return "", err
	}
	if e.Exists(ctx, name) {
		return "", apperr.New(apperr.KindAlreadyExists, "Folder already exists")
	}
	if err := e.putPlaceholder(ctx, name); err != nil {
		return "", err
	}

	logrus.WithField("path", name).Info("Folder created")
	return name, nil
}

// CreateNested creates the folder at path. With createParents every
// missing ancestor is created as well and an existing leaf is not an
// error; the newly created paths are returned in root-to-leaf order.
func (e *Engine) CreateNested(ctx context.Context, path string, createParents bool) ([]string, error) {
	clean, err := e.sanitizer.Sanitize(path)
	if err != nil {
		return nil, err
	}
	if clean == "" {
		return nil, apperr.New(apperr.KindValidation, "Folder path is required")
	}

	if !createParents {
		if e.Exists(ctx, clean) {
			return nil, apperr.New(apperr.KindAlreadyExists, "Folder already exists")
		}
		if err := e.putPlaceholder(ctx, clean); err != nil {
			return nil, err
		}
		logrus.WithField("path", clean).Info("Folder created")
		return []string{clean}, nil
	}

	created, err := e.ensureChain(ctx, clean)
	if err != nil {
		return created, err
	}
	logrus.WithFields(logrus.Fields{
		"path":    clean,
		"created": len(created),
	}).Info("Nested folder created")
	return created, nil
}

// ensureChain creates a placeholder at every level of path that has no
// objects yet.
func (e *Engine) ensureChain(ctx context.Context, path string) ([]string, error) {
	created := []string{}
	segments := pathsafe.Split(path)
	for i := range segments {
		current := pathsafe.Join(segments[:i+1]...)
		if e.Exists(ctx, current) {
			continue
		}
		if err := e.putPlaceholder(ctx, current); err != nil {
			return created, err
		}
		created = append(created, current)
	}
	return created, nil
}

// EnsurePlaceholder writes the placeholder of folder unless it is already
// stored, and reports whether it wrote one.
func (e *Engine) EnsurePlaceholder(ctx context.Context, folder string) (bool, error) {
	if folder == "" {
		return false, nil
	}
	_, err := e.store.Head(ctx, keys.PlaceholderKey(folder))
	switch {
	case err == nil:
		return false, nil
	case !storage.IsNotFound(err):
		return false, apperr.Wrap(apperr.KindStore, "Failed to check folder placeholder", err)
	}
	if err := e.putPlaceholder(ctx, folder); err != nil {
		return false, err
	}
	return true, nil
}

func (e *Engine) putPlaceholder(ctx context.Context, folder string) error {
	key := keys.PlaceholderKey(folder)
	err := e.store.Put(ctx, key, bytes.NewReader(nil), 0, storage.PutOptions{
		ContentType: keys.DefaultContentType,
	})
	if err != nil {
		return apperr.Wrap(apperr.KindStore, "Failed to create folder", err)
	}
	return nil
}
