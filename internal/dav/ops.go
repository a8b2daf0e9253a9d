package dav

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/davfs/webdav-go/internal/urn"
)

// Root is the remote root directory.
const Root = "/"

// hostMetaNamespaces maps hosts with known publish extensions to their
// property namespace. Unknown hosts fall back to an empty namespace.
var hostMetaNamespaces = map[string]string{
	"https://webdav.yandex.ru": "urn:yandex:disk:meta",
}

// List returns the names of entries nested in a remote directory. Directory
// entries carry a trailing separator. The directory's own multistatus entry
// is filtered out. With recursive set, the server is asked for an
// infinite-depth listing.
func (c *Client) List(ctx context.Context, remotePath string, recursive bool) ([]string, error) {
	entries, err := c.ListInfo(ctx, remotePath, recursive)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(entries))

	for _, entry := range entries {
		name := urn.New(entry.Path, entry.IsDir).Filename()
		if entry.IsDir {
			name += urn.Separator
		}

		names = append(names, name)
	}

	return names, nil
}

// ListInfo returns full metadata for entries nested in a remote directory,
// with the directory's self-reference filtered out.
func (c *Client) ListInfo(ctx context.Context, remotePath string, recursive bool) ([]ResourceInfo, error) {
	dir := urn.New(remotePath, true)

	if dir.Path() != Root {
		exists, err := c.Check(ctx, dir.Path())
		if err != nil {
			return nil, err
		}

		if !exists {
			return nil, notFound(dir.Path())
		}
	}

	var extra http.Header
	if recursive {
		extra = http.Header{"Depth": []string{"infinity"}}
	}

	resp, err := c.execute(ctx, ActionList, dir.Quote(), nil, extra)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Join(ErrRequest, err)
	}

	self := urn.NormalizePath(c.fullPath(dir.Path()))
	entries := parseListEntries(content)

	kept := entries[:0]
	for _, entry := range entries {
		if urn.ComparePath(self, entry.Path) {
			continue
		}

		kept = append(kept, entry)
	}

	c.logger.Debug("listed directory",
		slog.String("path", dir.Path()),
		slog.Int("entries", len(kept)),
	)

	return kept, nil
}

// Free returns the amount of free space on the server in bytes. Servers
// without quota support yield ErrMethodNotSupported.
func (c *Client) Free(ctx context.Context) (int64, error) {
	body := bytes.NewReader(buildFreeSpaceRequest())

	resp, err := c.execute(ctx, ActionFree, "", body, nil)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, errors.Join(ErrRequest, err)
	}

	return parseFreeSpace(content, c.settings.Hostname)
}

// Check reports whether a remote resource exists. A 404 answer is a false,
// not an error. When existence checks are disabled in the settings, Check
// reports true without a request.
func (c *Client) Check(ctx context.Context, remotePath string) (bool, error) {
	if c.settings.DisableCheck {
		return true, nil
	}

	u := urn.New(remotePath, false)

	resp, err := c.execute(ctx, ActionCheck, u.Quote(), nil, nil)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}

		return false, err
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK, nil
}

// MkDir creates a remote directory. The parent must exist unless recursive
// is set, in which case missing ancestors are created top-down. A server
// answering 405 is treated as success: the collection concept does not
// apply, so the tree effectively exists.
func (c *Client) MkDir(ctx context.Context, remotePath string, recursive bool) error {
	dir := urn.New(remotePath, true)

	// The root always exists and is its own parent; without this guard a
	// server answering 404 to HEAD / would recurse forever.
	if dir.Path() == Root {
		return nil
	}

	parentExists, err := c.Check(ctx, dir.Parent())
	if err != nil {
		return err
	}

	if !parentExists {
		if !recursive {
			return parentNotFound(dir.Path())
		}

		if err := c.MkDir(ctx, dir.Parent(), true); err != nil {
			return err
		}
	}

	resp, err := c.execute(ctx, ActionMkdir, dir.Quote(), nil, nil)
	if err != nil {
		if errors.Is(err, ErrMethodNotSupported) {
			return nil
		}

		return err
	}
	resp.Body.Close()

	c.logger.Debug("created directory", slog.String("path", dir.Path()))

	return nil
}

// Copy duplicates a remote resource. The destination parent must already
// exist. Directory copies send the given Depth.
func (c *Client) Copy(ctx context.Context, fromPath, toPath string, depth int) error {
	from := urn.New(fromPath, false)
	to := urn.New(toPath, false)

	if err := c.requireExists(ctx, from.Path()); err != nil {
		return err
	}

	if err := c.requireParent(ctx, to); err != nil {
		return err
	}

	extra := http.Header{"Destination": []string{c.urlFor(to.Quote())}}

	isDir, err := c.IsDir(ctx, from.Path())
	if err != nil {
		return err
	}

	if isDir {
		extra.Set("Depth", depthValue(depth))
	}

	resp, err := c.execute(ctx, ActionCopy, from.Quote(), nil, extra)
	if err != nil {
		return err
	}
	resp.Body.Close()

	return nil
}

// depthValue renders a Depth header value; negative means infinity.
func depthValue(depth int) string {
	if depth < 0 {
		return "infinity"
	}

	return strconv.Itoa(depth)
}

// Move relocates a remote resource. The destination parent must already
// exist. With overwrite unset the server refuses to clobber.
func (c *Client) Move(ctx context.Context, fromPath, toPath string, overwrite bool) error {
	from := urn.New(fromPath, false)
	to := urn.New(toPath, false)

	if err := c.requireExists(ctx, from.Path()); err != nil {
		return err
	}

	if err := c.requireParent(ctx, to); err != nil {
		return err
	}

	flag := "F"
	if overwrite {
		flag = "T"
	}

	extra := http.Header{
		"Destination": []string{c.urlFor(to.Quote())},
		"Overwrite":   []string{flag},
	}

	resp, err := c.execute(ctx, ActionMove, from.Quote(), nil, extra)
	if err != nil {
		return err
	}
	resp.Body.Close()

	return nil
}

// Clean deletes a remote resource. Directory deletion is recursive on the
// server side.
func (c *Client) Clean(ctx context.Context, remotePath string) error {
	u := urn.New(remotePath, false)

	resp, err := c.execute(ctx, ActionClean, u.Quote(), nil, nil)
	if err != nil {
		return err
	}
	resp.Body.Close()

	return nil
}

// Info returns the metadata snapshot for a remote resource.
func (c *Client) Info(ctx context.Context, remotePath string) (ResourceInfo, error) {
	u := urn.New(remotePath, false)

	if err := c.checkEitherForm(ctx, remotePath, u); err != nil {
		return ResourceInfo{}, err
	}

	resp, err := c.execute(ctx, ActionInfo, u.Quote(), nil, nil)
	if err != nil {
		return ResourceInfo{}, err
	}
	defer resp.Body.Close()

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return ResourceInfo{}, errors.Join(ErrRequest, err)
	}

	entry, err := extractResponseForPath(content, c.fullPath(u.Path()), c.settings.Hostname)
	if err != nil {
		return ResourceInfo{}, err
	}

	return entry.info(), nil
}

// IsDir reports whether the remote resource is a directory. A response
// without a resourcetype element cannot answer the question and yields
// ErrMethodNotSupported.
func (c *Client) IsDir(ctx context.Context, remotePath string) (bool, error) {
	u := urn.New(remotePath, false)

	if err := c.checkEitherForm(ctx, remotePath, u); err != nil {
		return false, err
	}

	extra := http.Header{"Depth": []string{"0"}}

	resp, err := c.execute(ctx, ActionInfo, u.Quote(), nil, extra)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, errors.Join(ErrRequest, err)
	}

	entry, err := extractResponseForPath(content, c.fullPath(u.Path()), c.settings.Hostname)
	if err != nil {
		return false, err
	}

	if !entry.hasResourceType() {
		return false, &MethodError{Action: "is_dir", Server: c.settings.Hostname}
	}

	return entry.info().IsDir, nil
}

// GetProperty reads a dead property from a remote resource. A property the
// server does not report resolves to an empty value, not an error.
func (c *Client) GetProperty(ctx context.Context, remotePath string, prop Property) (string, error) {
	u := urn.New(remotePath, false)

	if err := c.requireExists(ctx, u.Path()); err != nil {
		return "", err
	}

	body := bytes.NewReader(buildPropertyRequest(prop))

	resp, err := c.execute(ctx, ActionGetProperty, u.Quote(), body, nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Join(ErrRequest, err)
	}

	value, _ := parsePropertyValue(content, prop.Name)

	return value, nil
}

// SetProperty writes dead properties on a remote resource in one PROPPATCH
// batch.
func (c *Client) SetProperty(ctx context.Context, remotePath string, props ...Property) error {
	u := urn.New(remotePath, false)

	if err := c.requireExists(ctx, u.Path()); err != nil {
		return err
	}

	body := bytes.NewReader(buildPropSetRequest(props))

	resp, err := c.execute(ctx, ActionSetProperty, u.Quote(), body, nil)
	if err != nil {
		return err
	}
	resp.Body.Close()

	return nil
}

// Publish marks a resource publicly shared through the host's meta
// namespace and returns the public URL the server assigned, when reported.
func (c *Client) Publish(ctx context.Context, remotePath string) (string, error) {
	prop := Property{Namespace: c.metaNamespace(), Name: "public_url", Value: "true"}

	if err := c.SetProperty(ctx, remotePath, prop); err != nil {
		return "", err
	}

	return c.GetProperty(ctx, remotePath, Property{Namespace: prop.Namespace, Name: prop.Name})
}

// Unpublish withdraws public sharing of a resource.
func (c *Client) Unpublish(ctx context.Context, remotePath string) error {
	prop := Property{Namespace: c.metaNamespace(), Name: "public_url", Value: "false"}

	return c.SetProperty(ctx, remotePath, prop)
}

func (c *Client) metaNamespace() string {
	return hostMetaNamespaces[strings.TrimSuffix(c.settings.Hostname, "/")]
}

// requireExists turns a negative existence check into ErrNotFound.
func (c *Client) requireExists(ctx context.Context, path string) error {
	exists, err := c.Check(ctx, path)
	if err != nil {
		return err
	}

	if !exists {
		return notFound(path)
	}

	return nil
}

// requireParent turns a negative parent check into ErrParentNotFound.
func (c *Client) requireParent(ctx context.Context, u urn.URN) error {
	exists, err := c.Check(ctx, u.Parent())
	if err != nil {
		return err
	}

	if !exists {
		return parentNotFound(u.Path())
	}

	return nil
}

// checkEitherForm accepts a resource that exists as either a file or a
// directory; servers disagree on trailing separators for collections.
func (c *Client) checkEitherForm(ctx context.Context, remotePath string, u urn.URN) error {
	exists, err := c.Check(ctx, u.Path())
	if err != nil {
		return err
	}

	if exists {
		return nil
	}

	asDir := urn.New(remotePath, true)

	exists, err = c.Check(ctx, asDir.Path())
	if err != nil {
		return err
	}

	if !exists {
		return notFound(remotePath)
	}

	return nil
}
