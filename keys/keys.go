// Package keys classifies object keys into image files, folder
// placeholders and everything else, and builds public URLs for them.
package keys

import (
	"net/url"
	"path"
	"strings"
)

// Placeholder is the final segment of the zero-byte object that keeps an
// otherwise empty folder visible.
const Placeholder = ".folder-placeholder"

// DefaultContentType is used for extensions outside the image table.
const DefaultContentType = "application/octet-stream"

// Kind is the classification of a key.
type Kind int

const (
	Other Kind = iota
	File
	FolderPlaceholder
)

func (k Kind) String() string {
	switch k {
	case File:
		return "file"
	case FolderPlaceholder:
		return "folder-placeholder"
	default:
		return "other"
	}
}

// Class is the result of Classify. Extension is lower-case and includes
// the leading dot.
type Class struct {
	Kind        Kind
	Extension   string
	ContentType string
}

var imageTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".svg":  "image/svg+xml",
	".webp": "image/webp",
}

var allowedContentTypes = map[string]bool{
	"image/png":     true,
	"image/jpeg":    true,
	"image/jpg":     true,
	"image/gif":     true,
	"image/svg+xml": true,
	"image/webp":    true,
}

// Classify decides what a stored key represents. Keys below a hidden
// directory (one whose name starts with ".") are always Other.
func Classify(key string) Class {
	dir, name := splitKey(key)
	for _, seg := range strings.Split(dir, "/") {
		if IsHiddenName(seg) {
			return Class{Kind: Other, ContentType: DefaultContentType}
		}
	}

	if name == Placeholder {
		return Class{Kind: FolderPlaceholder, ContentType: DefaultContentType}
	}

	ext := strings.ToLower(path.Ext(name))
	if contentType, ok := imageTypes[ext]; ok && name != ext {
		return Class{Kind: File, Extension: ext, ContentType: contentType}
	}
	return Class{Kind: Other, Extension: ext, ContentType: DefaultContentType}
}

// IsImage reports whether name carries a recognised image extension.
func IsImage(name string) bool {
	_, ok := imageTypes[strings.ToLower(path.Ext(name))]
	return ok
}

// IsPlaceholder reports whether key is a folder placeholder.
func IsPlaceholder(key string) bool {
	_, name := splitKey(key)
	return name == Placeholder
}

// ContentTypeFor derives a MIME type from the extension of name.
func ContentTypeFor(name string) string {
	if contentType, ok := imageTypes[strings.ToLower(path.Ext(name))]; ok {
		return contentType
	}
	return DefaultContentType
}

// IsAllowedContentType reports whether an upload's declared MIME type is
// one of the accepted image types.
func IsAllowedContentType(contentType string) bool {
	return allowedContentTypes[strings.ToLower(strings.TrimSpace(contentType))]
}

// PlaceholderKey returns the placeholder key for folder.
func PlaceholderKey(folder string) string {
	folder = strings.Trim(folder, "/")
	if folder == "" {
		return Placeholder
	}
	return folder + "/" + Placeholder
}

// FolderPrefix returns the listing prefix for folder ("" for the root).
func FolderPrefix(folder string) string {
	folder = strings.Trim(folder, "/")
	if folder == "" {
		return ""
	}
	return folder + "/"
}

// IsHiddenName reports whether a path segment is hidden.
func IsHiddenName(segment string) bool {
	return strings.HasPrefix(segment, ".")
}

// Name returns the final segment of key.
func Name(key string) string {
	_, name := splitKey(key)
	return name
}

func splitKey(key string) (dir, name string) {
	if idx := strings.LastIndex(key, "/"); idx >= 0 {
		return key[:idx], key[idx+1:]
	}
	return "", key
}

// URLBuilder turns keys into public URLs.
type URLBuilder struct {
	Base string
}

// URL escapes each segment of key and keeps "/" literal.
func (b URLBuilder) URL(key string) string {
	segments := strings.Split(key, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return strings.TrimRight(b.Base, "/") + "/" + strings.Join(segments, "/")
}
