// Package blob defines the content store used for avatar uploads.
package blob

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Store uploads opaque byte blobs and resolves them to public URLs.
type Store interface {
	// Upload writes the bytes under the given path and returns a handle.
	Upload(ctx context.Context, path string, data []byte) (handle string, err error)

	// PublicURL resolves a handle to an address the view layer can serve.
	PublicURL(handle string) string
}

// Dir is a content store rooted at a local directory, served by the
// dashboard under a URL prefix.
type Dir struct {
	root   string
	prefix string
}

var _ Store = (*Dir)(nil)

// NewDir creates a directory-backed store. prefix is the URL path the
// dashboard serves the directory under, e.g. "/media".
func NewDir(root, prefix string) *Dir {
	return &Dir{root: root, prefix: strings.TrimSuffix(prefix, "/")}
}

// Root returns the directory blobs are written beneath.
func (d *Dir) Root() string { return d.root }

// Upload implements Store.
func (d *Dir) Upload(ctx context.Context, path string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	clean := filepath.Clean("/" + path)
	dst := filepath.Join(d.root, clean)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("failed to create blob directory: %w", err)
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write blob %s: %w", path, err)
	}
	return clean, nil
}

// PublicURL implements Store.
func (d *Dir) PublicURL(handle string) string {
	return d.prefix + handle
}
