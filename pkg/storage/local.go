package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrOutsideRoot is returned for paths that escape the backend root
var ErrOutsideRoot = errors.New("path escapes backend root")

const tempPrefix = ".cmpf-tmp-"

// Local is a filesystem-based storage backend
type Local struct {
	rootPath string
}

// NewLocal creates a new local filesystem backend rooted at an existing directory
func NewLocal(rootPath string) (*Local, error) {
	absPath, err := filepath.Abs(rootPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to access path: %w", err)
	}

	if !info.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", absPath)
	}

	return &Local{rootPath: absPath}, nil
}

// Root returns the absolute root directory
func (l *Local) Root() string {
	return l.rootPath
}

// resolve maps a relative slash path to an absolute path under the root
func (l *Local) resolve(path string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(path))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s: %w", path, ErrOutsideRoot)
	}
	return filepath.Join(l.rootPath, clean), nil
}

// Read opens a file for reading
func (l *Local) Read(ctx context.Context, path string) (io.ReadCloser, error) {
	fullPath, err := l.resolve(path)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	return file, nil
}

// Write copies reader into a temporary file next to the destination and
// renames it into place, so readers never observe a partial file. The parent
// directory must exist.
func (l *Local) Write(ctx context.Context, path string, reader io.Reader, size int64, metadata *FileInfo) error {
	fullPath, err := l.resolve(path)
	if err != nil {
		return err
	}

	dir := filepath.Dir(fullPath)
	tmp, err := os.CreateTemp(dir, tempPrefix+"*")
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	written, err := io.Copy(tmp, reader)
	if err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	if written != size {
		return fmt.Errorf("incomplete write: expected %d bytes, wrote %d", size, written)
	}

	if metadata != nil && metadata.Permissions != 0 {
		if err := os.Chmod(tmpPath, metadata.Permissions.Perm()); err != nil {
			return fmt.Errorf("failed to set permissions: %w", err)
		}
	}

	// a symlink at the destination is replaced, not written through
	if info, err := l.Lstat(ctx, path); err == nil && info.IsSymlink {
		if err := os.Remove(fullPath); err != nil {
			return fmt.Errorf("failed to replace symlink: %w", err)
		}
	}

	if err := os.Rename(tmpPath, fullPath); err != nil {
		return fmt.Errorf("failed to rename file: %w", err)
	}

	if metadata != nil && !metadata.ModTime.IsZero() {
		if err := os.Chtimes(fullPath, metadata.ModTime, metadata.ModTime); err != nil {
			return fmt.Errorf("failed to set modification time: %w", err)
		}
	}

	return nil
}

// Symlink creates or replaces a symbolic link. The parent directory must exist.
func (l *Local) Symlink(ctx context.Context, path, target string) error {
	fullPath, err := l.resolve(path)
	if err != nil {
		return err
	}

	if _, err := l.Lstat(ctx, path); err == nil {
		if err := os.Remove(fullPath); err != nil {
			return fmt.Errorf("failed to replace existing entry: %w", err)
		}
	}

	if err := os.Symlink(target, fullPath); err != nil {
		return fmt.Errorf("failed to create symlink: %w", err)
	}
	return nil
}

// Delete removes a file or symbolic link. Directories are refused.
func (l *Local) Delete(ctx context.Context, path string) error {
	fullPath, err := l.resolve(path)
	if err != nil {
		return err
	}
	if fullPath == l.rootPath {
		return fmt.Errorf("refusing to delete backend root")
	}

	info, err := l.Lstat(ctx, path)
	if err != nil {
		return fmt.Errorf("failed to delete: %w", err)
	}
	if info.IsDir {
		return fmt.Errorf("failed to delete: %s is a directory", path)
	}

	if err := os.Remove(fullPath); err != nil {
		return fmt.Errorf("failed to delete: %w", err)
	}

	return nil
}

// Stat returns file metadata, following a final symlink
func (l *Local) Stat(ctx context.Context, path string) (*FileInfo, error) {
	return l.stat(path, os.Stat)
}

// Lstat returns file metadata without following a final symlink
func (l *Local) Lstat(ctx context.Context, path string) (*FileInfo, error) {
	return l.stat(path, os.Lstat)
}

func (l *Local) stat(path string, statFn func(string) (os.FileInfo, error)) (*FileInfo, error) {
	fullPath, err := l.resolve(path)
	if err != nil {
		return nil, err
	}

	info, err := statFn(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	return &FileInfo{
		RelativePath: filepath.ToSlash(filepath.Clean(filepath.FromSlash(path))),
		Size:         info.Size(),
		ModTime:      info.ModTime(),
		Permissions:  info.Mode().Perm(),
		IsDir:        info.IsDir(),
		IsSymlink:    info.Mode()&os.ModeSymlink != 0,
	}, nil
}

// MkdirAll creates a directory and all necessary parents
func (l *Local) MkdirAll(ctx context.Context, path string) error {
	fullPath, err := l.resolve(path)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(fullPath, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	return nil
}

// Close releases resources (no-op for local filesystem)
func (l *Local) Close() error {
	return nil
}
