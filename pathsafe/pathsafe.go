// Package pathsafe validates and normalises user-supplied folder paths and
// names before they are turned into object keys.
package pathsafe

import (
	"regexp"
	"strings"

	"github.com/example/image-browser/apperr"
)

// DefaultMaxLength is the path length limit used by Sanitize.
const DefaultMaxLength = 1024

// MaxNameLength bounds a single file or folder name.
const MaxNameLength = 255

// Error messages returned to API callers.
const (
	MsgTraversal    = "Path traversal not allowed"
	MsgDoubleSlash  = "Double slashes not allowed"
	MsgInvalidChars = "Invalid characters in path"
	MsgTooLong      = "Path too long"
)

var folderNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Sanitizer validates paths against a configurable length limit.
type Sanitizer struct {
	MaxLength int
}

var defaultSanitizer = Sanitizer{MaxLength: DefaultMaxLength}

// Sanitize cleans raw with the default length limit.
func Sanitize(raw string) (string, error) {
	return defaultSanitizer.Sanitize(raw)
}

// Sanitize trims surrounding whitespace and slashes, rejects traversal,
// empty segments, control and reserved characters, then drops empty
// segments. The empty path is the bucket root and is valid.
func (s Sanitizer) Sanitize(raw string) (string, error) {
	p := strings.Trim(strings.TrimSpace(raw), "/")
	if p == "" {
		return "", nil
	}

	if strings.Contains(p, "..") {
		return "", apperr.New(apperr.KindValidation, MsgTraversal)
	}
	if strings.Contains(p, "//") {
		return "", apperr.New(apperr.KindValidation, MsgDoubleSlash)
	}
	if strings.ContainsFunc(p, isInvalidPathRune) {
		return "", apperr.New(apperr.KindValidation, MsgInvalidChars)
	}
	if len(p) > s.maxLength() {
		return "", apperr.New(apperr.KindValidation, MsgTooLong)
	}

	segments := strings.Split(p, "/")
	clean := segments[:0]
	for _, seg := range segments {
		seg = strings.TrimSpace(strings.Map(dropControl, seg))
		if seg != "" {
			clean = append(clean, seg)
		}
	}
	return strings.Join(clean, "/"), nil
}

func (s Sanitizer) maxLength() int {
	if s.MaxLength <= 0 {
		return DefaultMaxLength
	}
	return s.MaxLength
}

// ValidateFileName checks a leaf file name.
func ValidateFileName(name string) error {
	switch {
	case name == "":
		return apperr.New(apperr.KindValidation, "File name is required")
	case len(name) > MaxNameLength:
		return apperr.New(apperr.KindValidation, "File name too long")
	case name == "." || name == "..":
		return apperr.New(apperr.KindValidation, "Invalid file name")
	case strings.ContainsAny(name, `/\`):
		return apperr.New(apperr.KindValidation, "File name must not contain slashes")
	case strings.ContainsFunc(name, isControl):
		return apperr.New(apperr.KindValidation, "Invalid characters in file name")
	}
	return nil
}

// ValidateFolderName checks a single top-level folder name against the
// letters, digits, dash and underscore allow-list.
func ValidateFolderName(name string) error {
	if name == "" {
		return apperr.New(apperr.KindValidation, "Folder name is required")
	}
	if len(name) > MaxNameLength {
		return apperr.New(apperr.KindValidation, "Folder name too long")
	}
	if !folderNamePattern.MatchString(name) {
		return apperr.New(apperr.KindValidation,
			"Invalid folder name. Use only letters, numbers, hyphens, and underscores.")
	}
	return nil
}

// Join joins non-empty parts with "/".
func Join(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.Trim(part, "/"); part != "" {
			kept = append(kept, part)
		}
	}
	return strings.Join(kept, "/")
}

// Split returns the segments of a sanitized path. The root has none.
func Split(p string) []string {
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

// Parent returns everything before the last segment, or "" at top level.
func Parent(p string) string {
	if idx := strings.LastIndex(p, "/"); idx >= 0 {
		return p[:idx]
	}
	return ""
}

// Base returns the last segment of p.
func Base(p string) string {
	return p[strings.LastIndex(p, "/")+1:]
}

func isControl(r rune) bool {
	return r < 0x20 || r == 0x7f
}

func isInvalidPathRune(r rune) bool {
	if isControl(r) {
		return true
	}
	return strings.ContainsRune(`<>:"|?*`, r)
}

func dropControl(r rune) rune {
	if isControl(r) {
		return -1
	}
	return r
}
