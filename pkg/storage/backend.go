// Package storage applies file mutations to a sync destination tree.
package storage

import (
	"context"
	"io"
	"os"
	"time"
)

// FileInfo describes a file to be written or an existing file
type FileInfo struct {
	RelativePath string
	Size         int64
	ModTime      time.Time
	Permissions  os.FileMode
	IsDir        bool
	IsSymlink    bool
}

// Backend is a destination for sync mutations. All paths are relative
// to the backend root and use forward slashes.
type Backend interface {
	// Root returns the absolute root directory
	Root() string

	// Read opens a file for reading
	Read(ctx context.Context, path string) (io.ReadCloser, error)

	// Write atomically creates or replaces a file with the content of reader.
	// If metadata is provided, modification time and permissions are applied.
	// The parent directory must already exist; see MkdirAll.
	Write(ctx context.Context, path string, reader io.Reader, size int64, metadata *FileInfo) error

	// Symlink creates or replaces a symbolic link pointing at target.
	// The parent directory must already exist.
	Symlink(ctx context.Context, path, target string) error

	// Delete removes a file or symbolic link
	Delete(ctx context.Context, path string) error

	// Stat returns metadata, following a final symbolic link
	Stat(ctx context.Context, path string) (*FileInfo, error)

	// Lstat returns metadata without following a final symbolic link
	Lstat(ctx context.Context, path string) (*FileInfo, error)

	// MkdirAll creates a directory and all necessary parents
	MkdirAll(ctx context.Context, path string) error

	// Close releases any resources held by the backend
	Close() error
}
