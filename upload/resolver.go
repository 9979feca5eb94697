package upload

import (
	"context"
	"fmt"
	"strings"

	"github.com/example/image-browser/apperr"
	"github.com/example/image-browser/storage"
)

// Policy decides what happens when an upload targets an existing key.
type Policy string

const (
	PolicyOverwrite Policy = "overwrite"
	PolicySkip      Policy = "skip"
	PolicyRename    Policy = "rename"
)

// DefaultRenameAttempts bounds the search for a free name.
const DefaultRenameAttempts = 1000

// ParsePolicy validates a policy name.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case PolicyOverwrite, PolicySkip, PolicyRename:
		return p, nil
	}
	return "", apperr.Newf(apperr.KindValidation,
		"Invalid conflict resolution %q. Use overwrite, skip or rename.", s)
}

// Resolution is the outcome of resolving a candidate key.
type Resolution struct {
	Path    string
	Skip    bool
	Renamed bool
}

// Resolver picks the final key for an upload. Probing and writing are
// separate calls, so two concurrent uploads may still pick the same name.
type Resolver struct {
	store       storage.Storage
	maxAttempts int
}

// NewResolver creates a Resolver trying at most maxAttempts alternatives.
func NewResolver(store storage.Storage, maxAttempts int) *Resolver {
	if maxAttempts <= 0 {
		maxAttempts = DefaultRenameAttempts
	}
	return &Resolver{store: store, maxAttempts: maxAttempts}
}

// Resolve applies policy to candidate.
func (r *Resolver) Resolve(ctx context.Context, candidate string, policy Policy) (Resolution, error) {
	switch policy {
	case PolicyOverwrite:
		return Resolution{Path: candidate}, nil
	case PolicySkip:
		exists, err := r.exists(ctx, candidate)
		if err != nil {
			return Resolution{}, err
		}
		return Resolution{Path: candidate, Skip: exists}, nil
	case PolicyRename:
		return r.rename(ctx, candidate)
	}
	return Resolution{}, apperr.Newf(apperr.KindValidation, "Invalid conflict resolution %q", string(policy))
}

func (r *Resolver) rename(ctx context.Context, candidate string) (Resolution, error) {
	exists, err := r.exists(ctx, candidate)
	if err != nil {
		return Resolution{}, err
	}
	if !exists {
		return Resolution{Path: candidate}, nil
	}

	base, ext := splitExt(candidate)
	for n := 1; n <= r.maxAttempts; n++ {
		next := fmt.Sprintf("%s-%d%s", base, n, ext)
		exists, err := r.exists(ctx, next)
		if err != nil {
			return Resolution{}, err
		}
		if !exists {
			return Resolution{Path: next, Renamed: true}, nil
		}
	}
	return Resolution{}, apperr.Newf(apperr.KindExhaustedRename,
		"No free name found for %s after %d attempts", candidate, r.maxAttempts)
}

func (r *Resolver) exists(ctx context.Context, key string) (bool, error) {
	_, err := r.store.Head(ctx, key)
	switch {
	case err == nil:
		return true, nil
	case storage.IsNotFound(err):
		return false, nil
	}
	return false, apperr.Wrap(apperr.KindStore, "Failed to check existing file", err)
}

// splitExt splits key at the last "." of its final segment. A leading dot
// is part of the base name.
func splitExt(key string) (base, ext string) {
	start := strings.LastIndex(key, "/") + 1
	dot := strings.LastIndex(key[start:], ".")
	if dot <= 0 {
		return key, ""
	}
	return key[:start+dot], key[start+dot:]
}
