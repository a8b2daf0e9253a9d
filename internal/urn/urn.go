// Package urn implements the normalized resource path model used across the
// WebDAV client. A URN is an immutable absolute path on the remote store: a
// single leading separator, duplicate separators collapsed, and a trailing
// separator present exactly when the path denotes a directory.
package urn

import (
	"net/url"
	"strings"
)

// Separator is the path separator on the remote store.
const Separator = "/"

// URN is a normalized remote resource path. The zero value is not valid;
// construct with New.
type URN struct {
	path  string
	isDir bool
}

// New builds a URN from a raw path. The dir hint forces a trailing separator;
// a raw path that already ends in a separator is treated as a directory
// regardless of the hint. Normalization is idempotent.
func New(raw string, dir bool) URN {
	p := collapse(raw)

	if !strings.HasPrefix(p, Separator) {
		p = Separator + p
	}

	isDir := dir || strings.HasSuffix(p, Separator)
	if isDir && !strings.HasSuffix(p, Separator) {
		p += Separator
	}

	return URN{path: p, isDir: isDir}
}

// collapse squashes duplicate separators and "." segments.
func collapse(p string) string {
	for strings.Contains(p, Separator+Separator) {
		p = strings.ReplaceAll(p, Separator+Separator, Separator)
	}

	for strings.Contains(p, Separator+"."+Separator) {
		p = strings.ReplaceAll(p, Separator+"."+Separator, Separator)
	}

	return p
}

// Path returns the normalized, unescaped path.
func (u URN) Path() string {
	return u.path
}

func (u URN) String() string {
	return u.path
}

// IsDir reports whether the path denotes a directory.
func (u URN) IsDir() bool {
	return u.isDir
}

// Quote returns the path percent-encoded for the wire. Each segment is
// escaped independently so separators survive; stored and compared paths
// are never escaped.
func (u URN) Quote() string {
	segments := strings.Split(u.path, Separator)
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}

	return strings.Join(segments, Separator)
}

// Filename returns the last path segment without separators.
func (u URN) Filename() string {
	trimmed := strings.TrimSuffix(u.path, Separator)

	idx := strings.LastIndex(trimmed, Separator)
	if idx < 0 {
		return trimmed
	}

	return trimmed[idx+1:]
}

// Parent returns the normalized path one level up, with a trailing
// separator. The parent of the root is the root itself.
func (u URN) Parent() string {
	trimmed := strings.TrimSuffix(u.path, Separator)

	idx := strings.LastIndex(trimmed, Separator)
	if idx <= 0 {
		return Separator
	}

	return trimmed[:idx+1]
}

// NormalizePath collapses duplicate separators and strips a trailing
// separator (the root keeps its single separator). Used when comparing a
// queried directory path against multistatus entries.
func NormalizePath(p string) string {
	p = collapse(p)
	if len(p) > 1 {
		p = strings.TrimSuffix(p, Separator)
	}

	return p
}

// ComparePath reports whether two paths denote the same node, ignoring
// trailing-separator differences and percent-encoding. Either argument may
// be a full URL or href; only its path component is compared.
func ComparePath(a, b string) bool {
	return canonical(a) == canonical(b)
}

// canonical reduces a path or href to an unescaped, separator-trimmed form
// prefixed with a single separator.
func canonical(s string) string {
	if u, err := url.Parse(s); err == nil {
		s = u.Path
	}

	if unescaped, err := url.PathUnescape(s); err == nil {
		s = unescaped
	}

	return Separator + strings.Trim(s, Separator)
}
