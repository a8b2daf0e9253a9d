package dav

// ResourceInfo is a metadata snapshot of a remote node, produced by parsing
// a multistatus response. Immutable once returned. Fields the server omits
// are left zero rather than treated as errors.
type ResourceInfo struct {
	// Created is the raw creationdate property value.
	Created string
	// Name is the displayname property value.
	Name string
	// Size is the parsed getcontentlength, 0 when absent or unparsable.
	Size int64
	// Modified is the raw getlastmodified value; freshness comparison
	// parses it on demand.
	Modified string
	// ETag is the entity tag for change detection.
	ETag string
	// ContentType is the getcontenttype property value.
	ContentType string
	// IsDir is true when the resource type contains a collection marker.
	IsDir bool
	// Path is the full unescaped path extracted from the response href.
	Path string
}

// Property is a dead property triple for PROPFIND/PROPPATCH exchanges.
// Namespace may be empty; Value may be empty on set (clears the property).
type Property struct {
	Namespace string
	Name      string
	Value     string
}
