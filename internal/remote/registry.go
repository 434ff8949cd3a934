package remote

import (
	"strings"

	"github.com/listenupapp/doujinshelf/internal/errors"
)

// Registry maps URLs to adapters. Registration order decides ties.
type Registry struct {
	adapters []Adapter
	fallback map[string]bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{fallback: make(map[string]bool)}
}

// Register adds an adapter. Fallback adapters are offered by Fallback.
func (r *Registry) Register(a Adapter, fallback bool) {
	r.adapters = append(r.adapters, a)
	if fallback {
		r.fallback[a.Name()] = true
	}
}

// ForURL returns the adapter whose pattern matches rawURL.
func (r *Registry) ForURL(rawURL string) (Adapter, error) {
	u := strings.TrimSpace(rawURL)
	for _, a := range r.adapters {
		if a.Pattern().MatchString(u) {
			return a, nil
		}
	}
	return nil, errors.Wrapf(errors.ErrUnsupportedSource, errors.CodeUnsupportedSource, "no source for %q", rawURL)
}

// Get returns the adapter registered under name.
func (r *Registry) Get(name string) (Adapter, bool) {
	for _, a := range r.adapters {
		if a.Name() == name {
			return a, true
		}
	}
	return nil, false
}

// Fallback returns the first fallback adapter that is not primary.
func (r *Registry) Fallback(primary Adapter) (Adapter, bool) {
	for _, a := range r.adapters {
		if r.fallback[a.Name()] && (primary == nil || a.Name() != primary.Name()) {
			return a, true
		}
	}
	return nil, false
}

// Names lists registered adapters in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.adapters))
	for i, a := range r.adapters {
		out[i] = a.Name()
	}
	return out
}
