// Package storage abstracts blob storage for meeting artifacts: metric
// exports, transcript dumps and end-of-meeting summaries. Backends
// cover local disk, S3-compatible object stores and an in-memory store
// for tests.
package storage

import (
	"context"
	"errors"
	"io"
	"strings"
)

// ErrInvalidPath is returned for empty, absolute or parent-escaping
// artifact paths.
var ErrInvalidPath = errors.New("storage: invalid path")

// FileStore reads and writes named artifacts.
//
// Paths are forward-slash separated, relative to the store root, and
// may not contain "..". Implementations are safe for concurrent use.
type FileStore interface {
	// Read opens the named artifact. The caller closes the reader.
	// A missing artifact yields an error wrapping os.ErrNotExist.
	Read(ctx context.Context, path string) (io.ReadCloser, error)

	// Write opens the named artifact for writing, truncating any
	// previous content. Data is durable once Close returns nil.
	Write(ctx context.Context, path string) (io.WriteCloser, error)

	// Delete removes the named artifact. Deleting a missing artifact
	// is not an error.
	Delete(ctx context.Context, path string) error

	// Exists reports whether the named artifact exists.
	Exists(ctx context.Context, path string) (bool, error)
}

// checkPath validates an artifact path.
func checkPath(path string) error {
	if path == "" || strings.HasPrefix(path, "/") {
		return ErrInvalidPath
	}
	for _, part := range strings.Split(path, "/") {
		if part == ".." {
			return ErrInvalidPath
		}
	}
	return nil
}

// WriteAll writes data as the named artifact in one call.
func WriteAll(ctx context.Context, fs FileStore, path string, data []byte) error {
	w, err := fs.Write(ctx, path)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

// ReadAll reads the whole named artifact.
func ReadAll(ctx context.Context, fs FileStore, path string) ([]byte, error) {
	r, err := fs.Read(ctx, path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}
