// Package listing pages through the object store on behalf of the folder
// and hierarchy layers.
//
// Folder paths passed to a Lister are sanitized paths without a trailing
// slash; "" is the bucket root.
package listing

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/example/image-browser/apperr"
	"github.com/example/image-browser/keys"
	"github.com/example/image-browser/storage"
)

// MaxDescendants is the hard ceiling on a single descendant listing.
const MaxDescendants = 50000

// PageRequest selects one page of a child listing.
type PageRequest struct {
	Cursor string
	Limit  int
}

// Children is one page of immediate children of a folder.
type Children struct {
	// Folders are full folder paths without the trailing delimiter.
	Folders []string
	Objects []storage.ObjectInfo
	Cursor  string
	HasMore bool
}

// Descendants is the flat set of objects under a folder.
type Descendants struct {
	Objects   []storage.ObjectInfo
	Truncated bool
}

// Lister wraps a Storage with folder-aware listing helpers.
type Lister struct {
	store     storage.Storage
	ceiling   int
	delimiter string
}

// New returns a Lister over store. A ceiling of zero or above
// MaxDescendants is clamped to MaxDescendants.
func New(store storage.Storage, ceiling int) *Lister {
	if ceiling <= 0 || ceiling > MaxDescendants {
		ceiling = MaxDescendants
	}
	return &Lister{
		store:     store,
		ceiling:   ceiling,
		delimiter: storage.DefaultDelimiter,
	}
}

// Ceiling returns the effective descendant ceiling.
func (l *Lister) Ceiling() int {
	return l.ceiling
}

// ListChildren makes a single delimiter listing under folder.
func (l *Lister) ListChildren(ctx context.Context, folder string, req PageRequest) (*Children, error) {
	res, err := l.store.List(ctx, storage.ListOptions{
		Prefix:    keys.FolderPrefix(folder),
		Delimiter: l.delimiter,
		Cursor:    req.Cursor,
		Limit:     req.Limit,
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStore, "Failed to list folder", err)
	}

	children := &Children{
		Folders: make([]string, 0, len(res.CommonPrefixes)),
		Objects: res.Objects,
		HasMore: res.Truncated,
	}
	if res.Truncated {
		children.Cursor = res.Cursor
	}
	for _, p := range res.CommonPrefixes {
		children.Folders = append(children.Folders, strings.TrimSuffix(p, l.delimiter))
	}
	return children, nil
}

// ListAllDescendants pages through every object below folder until the
// store is exhausted or maxObjects (bounded by the ceiling) is reached.
// Caller cancellation is ignored so that the ceiling alone bounds the work.
func (l *Lister) ListAllDescendants(ctx context.Context, folder string, maxObjects int) (*Descendants, error) {
	limit := l.ceiling
	if maxObjects > 0 && maxObjects < limit {
		limit = maxObjects
	}

	ctx = context.WithoutCancel(ctx)
	prefix := keys.FolderPrefix(folder)
	result := &Descendants{}
	cursor := ""
	pages := 0

	for {
		pageSize := limit - len(result.Objects)
		if pageSize > storage.MaxPageSize {
			pageSize = storage.MaxPageSize
		}

		res, err := l.store.List(ctx, storage.ListOptions{
			Prefix: prefix,
			Cursor: cursor,
			Limit:  pageSize,
		})
		if err != nil {
			return nil, apperr.Wrap(apperr.KindStore, "Failed to list folder contents", err)
		}
		pages++

		if room := limit - len(result.Objects); len(res.Objects) > room {
			result.Objects = append(result.Objects, res.Objects[:room]...)
			result.Truncated = true
			break
		}
		result.Objects = append(result.Objects, res.Objects...)

		if !res.Truncated || res.Cursor == "" {
			break
		}
		if len(result.Objects) >= limit {
			result.Truncated = true
			break
		}
		cursor = res.Cursor
	}

	logrus.WithFields(logrus.Fields{
		"prefix":    prefix,
		"objects":   len(result.Objects),
		"pages":     pages,
		"truncated": result.Truncated,
	}).Debug("Listed descendants")

	return result, nil
}

// Probe reports whether at least one object exists below folder.
func (l *Lister) Probe(ctx context.Context, folder string) (bool, error) {
	res, err := l.store.List(ctx, storage.ListOptions{
		Prefix: keys.FolderPrefix(folder),
		Limit:  1,
	})
	if err != nil {
		return false, apperr.Wrap(apperr.KindStore, "Failed to probe folder", err)
	}
	return len(res.Objects) > 0, nil
}
