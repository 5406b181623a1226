package collector

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/sdejongh/cmpf/pkg/models"
)

// Filter decides which walked entries are skipped.
// Ignore patterns support:
//   - Simple glob patterns: *.tmp, *.log
//   - Directory patterns: .git/, node_modules/
//   - Path patterns: build/*, **/test/*
type Filter struct {
	patterns   []ignorePattern
	extensions map[string]struct{}
}

type ignorePattern struct {
	glob    string
	dirOnly bool
	byPath  bool
}

// NewFilter compiles ignore globs and the extension allow-list
func NewFilter(ignore []string, extensions []string) (*Filter, error) {
	f := &Filter{}

	for _, raw := range ignore {
		if raw == "" {
			continue
		}
		p := ignorePattern{glob: filepath.ToSlash(raw)}
		if strings.HasSuffix(p.glob, "/") {
			p.dirOnly = true
			p.glob = strings.TrimSuffix(p.glob, "/")
		}
		p.byPath = strings.Contains(p.glob, "/")
		if !doublestar.ValidatePattern(p.glob) {
			return nil, &models.ValidationError{
				Field:   "ignore",
				Message: fmt.Sprintf("invalid glob pattern %q", raw),
			}
		}
		f.patterns = append(f.patterns, p)
	}

	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
		if ext == "" {
			continue
		}
		if f.extensions == nil {
			f.extensions = make(map[string]struct{})
		}
		f.extensions[ext] = struct{}{}
	}

	return f, nil
}

// Ignored reports whether the entry at the slash-separated relative path matches an ignore pattern
func (f *Filter) Ignored(rel string, isDir bool) bool {
	if len(f.patterns) == 0 {
		return false
	}

	base := path.Base(rel)
	for _, p := range f.patterns {
		if p.dirOnly && !isDir {
			continue
		}
		subject := base
		if p.byPath {
			subject = rel
		}
		if matched, _ := doublestar.Match(p.glob, subject); matched {
			return true
		}
	}

	return false
}

// AllowsType reports whether name passes the case-insensitive extension allow-list.
// An empty allow-list admits everything.
func (f *Filter) AllowsType(name string) bool {
	if len(f.extensions) == 0 {
		return true
	}
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))
	_, ok := f.extensions[ext]
	return ok
}
