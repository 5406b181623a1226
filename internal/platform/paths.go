package platform

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// NormalizePath normalizes a path for the current platform
func NormalizePath(path string) string {
	normalized := filepath.Clean(path)

	// On Windows, ensure UNC paths are preserved
	if runtime.GOOS == "windows" {
		if strings.HasPrefix(path, "\\\\") && !strings.HasPrefix(normalized, "\\\\") {
			normalized = "\\\\" + normalized
		}
	}

	return normalized
}

// IsUNCPath checks if a path is a UNC path (Windows network share)
func IsUNCPath(path string) bool {
	if runtime.GOOS != "windows" {
		return false
	}
	return strings.HasPrefix(path, "\\\\") || strings.HasPrefix(path, "//")
}

// CanonicalRoot resolves path to an absolute directory path
func CanonicalRoot(path string) (string, error) {
	if path == "" {
		return "", &PathError{Path: path, Message: "path is empty"}
	}

	abs := NormalizePath(path)
	if !IsUNCPath(path) {
		var err error
		abs, err = filepath.Abs(abs)
		if err != nil {
			return "", fmt.Errorf("failed to resolve path: %w", err)
		}
	}

	info, err := os.Stat(abs)
	if err != nil {
		return "", &PathError{Path: path, Message: err.Error()}
	}
	if !info.IsDir() {
		return "", &PathError{Path: path, Message: "not a directory"}
	}

	return abs, nil
}

// CheckDisjoint returns an error if a and b are the same directory or one contains the other
func CheckDisjoint(a, b string) error {
	if a == b {
		return fmt.Errorf("folders cannot be the same: %s", a)
	}
	if strings.HasPrefix(b, a+string(filepath.Separator)) {
		return fmt.Errorf("%s is inside %s", b, a)
	}
	if strings.HasPrefix(a, b+string(filepath.Separator)) {
		return fmt.Errorf("%s is inside %s", a, b)
	}
	return nil
}

// CaseInsensitive reports whether the platform's default filesystems fold case
func CaseInsensitive() bool {
	return runtime.GOOS == "windows" || runtime.GOOS == "darwin"
}

// NormalizeKey turns a relative path into a reconciliation key: slash separated,
// NFC normalized and, when foldCase is set, case folded.
func NormalizeKey(rel string, foldCase bool) string {
	key := norm.NFC.String(filepath.ToSlash(rel))
	key = strings.TrimPrefix(key, "./")
	if foldCase {
		key = cases.Fold().String(key)
	}
	return key
}

// IsHidden reports whether a file name is a dotfile
func IsHidden(name string) bool {
	return len(name) > 1 && name[0] == '.' && name != ".."
}

// PathError represents a path validation error
type PathError struct {
	Path    string
	Message string
}

func (e *PathError) Error() string {
	return "invalid path '" + e.Path + "': " + e.Message
}
