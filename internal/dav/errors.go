// Package dav implements a WebDAV client: request dispatch with typed error
// classification, the multistatus XML codec, chunked transfers with progress
// reporting, and the cooperative locking protocol.
package dav

import (
	"errors"
	"fmt"
)

// Sentinel errors for failure classification.
// Use errors.Is(err, dav.ErrNotFound) to check.
var (
	// ErrNoConnection means the host could not be reached at all.
	ErrNoConnection = errors.New("dav: no connection to host")
	// ErrRequest means the exchange itself failed: malformed request,
	// timeout, or a transport error past the connection stage.
	ErrRequest = errors.New("dav: request failed")
	// ErrNotFound means the remote path does not exist.
	ErrNotFound = errors.New("dav: remote resource not found")
	// ErrParentNotFound means the remote parent directory is absent and
	// auto-creation was not requested.
	ErrParentNotFound = errors.New("dav: remote parent not found")
	// ErrInsufficientStorage maps HTTP 507.
	ErrInsufficientStorage = errors.New("dav: not enough space on the server")
	// ErrLocked maps HTTP 423.
	ErrLocked = errors.New("dav: remote resource is locked")
	// ErrMethodNotSupported means the server rejected the action (HTTP 405)
	// or returned XML missing a structurally mandatory element.
	ErrMethodNotSupported = errors.New("dav: method not supported")
	// ErrInvalidOption means the caller passed a directory where a file was
	// required (or vice versa), or an otherwise unusable argument.
	ErrInvalidOption = errors.New("dav: invalid option")
	// ErrLocalNotFound means a local source path does not exist.
	ErrLocalNotFound = errors.New("dav: local resource not found")
)

// PathError attaches the offending remote path to a sentinel.
type PathError struct {
	Path string
	Err  error
}

func (e *PathError) Error() string {
	return fmt.Sprintf("%v: %s", e.Err, e.Path)
}

func (e *PathError) Unwrap() error {
	return e.Err
}

// notFound builds the canonical not-found error for a path.
func notFound(path string) error {
	return &PathError{Path: path, Err: ErrNotFound}
}

// parentNotFound builds the canonical parent-not-found error for a path.
func parentNotFound(path string) error {
	return &PathError{Path: path, Err: ErrParentNotFound}
}

// MethodError reports an action the server does not support.
type MethodError struct {
	Action string
	Server string
}

func (e *MethodError) Error() string {
	return fmt.Sprintf("dav: method not supported: action %q on %s", e.Action, e.Server)
}

func (e *MethodError) Unwrap() error {
	return ErrMethodNotSupported
}

// OptionError reports an invalid caller-supplied option value.
type OptionError struct {
	Name  string
	Value string
}

func (e *OptionError) Error() string {
	return fmt.Sprintf("dav: invalid option %s=%q", e.Name, e.Value)
}

func (e *OptionError) Unwrap() error {
	return ErrInvalidOption
}

// ServerError carries any other non-2xx response: URL, status code, and the
// response body for debugging.
type ServerError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("dav: %s returned HTTP %d: %s", e.URL, e.StatusCode, e.Body)
}
