package dav

import (
	"context"
	"io"

	"github.com/davfs/webdav-go/internal/urn"
)

// Resource is a convenience handle binding a client to one remote path.
// Rename and MoveTo update the handle to follow the resource.
type Resource struct {
	client *Client
	urn    urn.URN
}

// Resource returns a handle for the given remote path.
func (c *Client) Resource(remotePath string) *Resource {
	return &Resource{client: c, urn: urn.New(remotePath, false)}
}

// Path returns the normalized remote path of the handle.
func (r *Resource) Path() string {
	return r.urn.Path()
}

func (r *Resource) String() string {
	return "resource " + r.urn.Path()
}

// IsDir reports whether the resource is a directory.
func (r *Resource) IsDir(ctx context.Context) (bool, error) {
	return r.client.IsDir(ctx, r.urn.Path())
}

// Check reports whether the resource exists.
func (r *Resource) Check(ctx context.Context) (bool, error) {
	return r.client.Check(ctx, r.urn.Path())
}

// Info returns the resource metadata snapshot.
func (r *Resource) Info(ctx context.Context) (ResourceInfo, error) {
	return r.client.Info(ctx, r.urn.Path())
}

// Clean deletes the resource.
func (r *Resource) Clean(ctx context.Context) error {
	return r.client.Clean(ctx, r.urn.Path())
}

// Rename moves the resource within its parent directory and rebinds the
// handle to the new path.
func (r *Resource) Rename(ctx context.Context, newName string) error {
	newPath := r.urn.Parent() + urn.New(newName, false).Filename()

	if err := r.client.Move(ctx, r.urn.Path(), newPath, false); err != nil {
		return err
	}

	r.urn = urn.New(newPath, false)

	return nil
}

// MoveTo relocates the resource and rebinds the handle.
func (r *Resource) MoveTo(ctx context.Context, remotePath string) error {
	target := urn.New(remotePath, false)

	if err := r.client.Move(ctx, r.urn.Path(), target.Path(), false); err != nil {
		return err
	}

	r.urn = target

	return nil
}

// CopyTo duplicates the resource and returns a handle for the copy.
func (r *Resource) CopyTo(ctx context.Context, remotePath string) (*Resource, error) {
	target := urn.New(remotePath, false)

	if err := r.client.Copy(ctx, r.urn.Path(), target.Path(), 1); err != nil {
		return nil, err
	}

	return &Resource{client: r.client, urn: target}, nil
}

// ReadFrom uploads the contents of src as the resource body.
func (r *Resource) ReadFrom(ctx context.Context, src io.Reader) error {
	return r.client.UploadFrom(ctx, src, r.urn.Path())
}

// WriteTo downloads the resource body into dst.
func (r *Resource) WriteTo(ctx context.Context, dst io.Writer) error {
	return r.client.DownloadTo(ctx, r.urn.Path(), dst, nil)
}

// GetProperty reads one dead property of the resource.
func (r *Resource) GetProperty(ctx context.Context, prop Property) (string, error) {
	return r.client.GetProperty(ctx, r.urn.Path(), prop)
}

// SetProperty writes dead properties on the resource.
func (r *Resource) SetProperty(ctx context.Context, props ...Property) error {
	return r.client.SetProperty(ctx, r.urn.Path(), props...)
}

// Publish shares the resource publicly and returns the assigned URL.
func (r *Resource) Publish(ctx context.Context) (string, error) {
	return r.client.Publish(ctx, r.urn.Path())
}

// Unpublish withdraws public sharing.
func (r *Resource) Unpublish(ctx context.Context) error {
	return r.client.Unpublish(ctx, r.urn.Path())
}
