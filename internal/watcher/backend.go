package watcher

import "context"

// Backend is the file watching implementation behind a Watcher.
type Backend interface {
	// Watch adds a path to be monitored. Directories are watched recursively.
	Watch(path string) error

	// Start begins delivering events and blocks until ctx is done.
	Start(ctx context.Context) error

	// Stop releases all resources. The channels stay open.
	Stop() error

	Events() <-chan Event
	Errors() <-chan error
}
