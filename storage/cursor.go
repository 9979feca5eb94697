package storage

import (
	"strings"
	"unicode/utf8"
)

// startAfter converts a listing cursor into a start-after marker for
// backends that resume by key. A cursor naming a common prefix (ending in
// the delimiter) must skip every key below that prefix, otherwise the
// prefix would be returned again on the next page.
func startAfter(cursor, delimiter string) string {
	if cursor == "" {
		return ""
	}
	if delimiter != "" && strings.HasSuffix(cursor, delimiter) {
		return cursor + string(utf8.MaxRune)
	}
	return cursor
}

// commonPrefix returns the delimiter-terminated prefix that groups key
// below prefix, or "" when key is an immediate child.
func commonPrefix(key, prefix, delimiter string) string {
	if delimiter == "" {
		return ""
	}
	rest := strings.TrimPrefix(key, prefix)
	idx := strings.Index(rest, delimiter)
	if idx < 0 {
		return ""
	}
	return prefix + rest[:idx+len(delimiter)]
}
