// Package watcher reports settled file system changes under the library's
// watched folders. A file is reported once its size and modification time
// stop changing for the settle delay, so half-copied archives are never
// handed to ingestion.
package watcher

import (
	"context"
	"log/slog"

	"github.com/listenupapp/doujinshelf/internal/errors"
)

// Watcher monitors file system changes
type Watcher struct {
	backend Backend
	logger  *slog.Logger
}

// New creates a watcher on the fsnotify backend.
func New(logger *slog.Logger, opts Options) (*Watcher, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	opts.setDefaults()

	backend, err := newFsnotifyBackend(logger, opts)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeIO, "create file watcher")
	}
	logger.Debug("file watcher ready", "settle_delay", opts.SettleDelay)

	return &Watcher{backend: backend, logger: logger}, nil
}

// NewWithBackend wraps an existing backend.
func NewWithBackend(backend Backend, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Watcher{backend: backend, logger: logger}
}

// Watch adds a path to be monitored.
func (w *Watcher) Watch(path string) error {
	if err := w.backend.Watch(path); err != nil {
		return errors.Wrapf(err, errors.CodeIO, "watch %s", path)
	}
	w.logger.Info("watching folder", "path", path)
	return nil
}

// Start begins watching for events. It blocks until ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	return w.backend.Start(ctx)
}

// Stop stops the watcher and releases resources.
func (w *Watcher) Stop() error {
	return w.backend.Stop()
}

// Events returns the channel for receiving file system events.
func (w *Watcher) Events() <-chan Event {
	return w.backend.Events()
}

// Errors returns the channel for receiving errors.
func (w *Watcher) Errors() <-chan error {
	return w.backend.Errors()
}
