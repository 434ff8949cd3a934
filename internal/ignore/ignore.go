// Package ignore decides which paths ingestion and the watcher must skip.
package ignore

import (
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Options configure the persistent part of the filter.
type Options struct {
	// Paths are substrings; any path containing one is ignored.
	Paths []string
	// Extensions are matched case-insensitively, with or without the dot.
	Extensions []string
	// Folders ignores every directory.
	Folders bool
	// TransientTTL bounds how long a transient entry lives. Zero keeps
	// entries until removed.
	TransientTTL time.Duration
}

// Filter combines persistent rules with a transient set used to suppress
// watcher events caused by our own moves. Safe for concurrent use.
type Filter struct {
	paths      []string
	extensions map[string]bool
	folders    bool
	ttl        time.Duration
	now        func() time.Time

	mu        sync.Mutex
	transient map[string]time.Time
}

// New creates a filter.
func New(opts Options) *Filter {
	f := &Filter{
		folders:    opts.Folders,
		extensions: make(map[string]bool, len(opts.Extensions)),
		ttl:        opts.TransientTTL,
		now:        time.Now,
		transient:  make(map[string]time.Time),
	}
	for _, p := range opts.Paths {
		if p = strings.TrimSpace(p); p != "" {
			f.paths = append(f.paths, filepath.Clean(p))
		}
	}
	for _, ext := range opts.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		f.extensions[ext] = true
	}
	return f
}

// Ignored reports whether path must be skipped.
func (f *Filter) Ignored(path string, isDir bool) bool {
	clean := filepath.Clean(path)
	if f.isTransient(clean) || f.matchesPath(clean) {
		return true
	}
	if isDir {
		return f.folders
	}
	return f.extensions[strings.ToLower(filepath.Ext(clean))]
}

// Reason returns why path is ignored, or "" when it is not.
func (f *Filter) Reason(path string, isDir bool) string {
	clean := filepath.Clean(path)
	switch {
	case f.isTransient(clean):
		return "recently moved"
	case f.matchesPath(clean):
		return "ignored path"
	case isDir && f.folders:
		return "folders ignored"
	case !isDir && f.extensions[strings.ToLower(filepath.Ext(clean))]:
		return "ignored extension"
	default:
		return ""
	}
}

func (f *Filter) matchesPath(clean string) bool {
	for _, p := range f.paths {
		if strings.Contains(clean, p) {
			return true
		}
	}
	return false
}

// AddTransient suppresses path and everything below it until the TTL
// expires or RemoveTransient is called.
func (f *Filter) AddTransient(paths ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range paths {
		f.transient[filepath.Clean(p)] = f.now()
	}
}

// RemoveTransient lifts a transient suppression.
func (f *Filter) RemoveTransient(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.transient, filepath.Clean(path))
}

// isTransient checks path and each of its ancestors, dropping expired
// entries on the way.
func (f *Filter) isTransient(clean string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.transient) == 0 {
		return false
	}

	now := f.now()
	for p := clean; ; {
		if added, ok := f.transient[p]; ok {
			if f.ttl <= 0 || now.Sub(added) < f.ttl {
				return true
			}
			delete(f.transient, p)
		}
		parent := filepath.Dir(p)
		if parent == p {
			return false
		}
		p = parent
	}
}
