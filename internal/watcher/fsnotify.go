package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// fsnotifyBackend implements Backend using fsnotify with settling
type fsnotifyBackend struct {
	logger  *slog.Logger
	opts    Options
	watcher *fsnotify.Watcher

	pending map[string]*pendingEvent
	mu      sync.Mutex // protects pending

	events   chan Event
	errors   chan error
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// pendingEvent tracks a path that may still be changing
type pendingEvent struct {
	size    int64
	modTime time.Time
	created bool
	isDir   bool
	timer   *time.Timer
}

func newFsnotifyBackend(logger *slog.Logger, opts Options) (*fsnotifyBackend, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}

	return &fsnotifyBackend{
		logger:  logger,
		opts:    opts,
		watcher: watcher,
		pending: make(map[string]*pendingEvent),
		events:  make(chan Event, 100),
		errors:  make(chan error, 10),
		done:    make(chan struct{}),
	}, nil
}

// Watch adds a path to be monitored
func (b *fsnotifyBackend) Watch(path string) error {
	path = filepath.Clean(path)

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat watch path: %w", err)
	}

	if info.IsDir() {
		return b.watchDir(path)
	}
	// A single archive is watched through its parent
	return b.watcher.Add(filepath.Dir(path))
}

// watchDir recursively watches a directory
func (b *fsnotifyBackend) watchDir(path string) error {
	return filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			b.logger.Warn("failed to access path", "path", p, "error", err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if p != path && b.opts.shouldIgnore(p) {
			return filepath.SkipDir
		}

		if err := b.watcher.Add(p); err != nil {
			b.logger.Error("failed to add watch", "path", p, "error", err)
			return nil
		}
		b.logger.Debug("added watch", "path", p)
		return nil
	})
}

// Start begins watching for events
func (b *fsnotifyBackend) Start(ctx context.Context) error {
	b.wg.Add(1)
	go b.processEvents(ctx)

	select {
	case <-ctx.Done():
	case <-b.done:
	}
	return nil
}

func (b *fsnotifyBackend) processEvents(ctx context.Context) {
	defer b.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-b.done:
			return
		case event, ok := <-b.watcher.Events:
			if !ok {
				return
			}
			b.handle(event)
		case err, ok := <-b.watcher.Errors:
			if !ok {
				return
			}
			select {
			case b.errors <- err:
			default:
				b.logger.Warn("dropped watcher error", "error", err)
			}
		}
	}
}

func (b *fsnotifyBackend) handle(event fsnotify.Event) {
	path := event.Name
	if b.opts.shouldIgnore(path) {
		return
	}

	switch {
	case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
		b.cancelPending(path)
		b.emit(Event{Type: EventRemoved, Path: path})

	case event.Has(fsnotify.Create):
		info, err := os.Stat(path)
		if err != nil {
			return
		}
		if info.IsDir() {
			if err := b.watchDir(path); err != nil {
				b.logger.Warn("failed to watch new folder", "path", path, "error", err)
			}
		}
		b.settle(path, true)

	case event.Has(fsnotify.Write):
		b.settle(path, false)
	}
}

// settle (re)starts the settle timer for path.
func (b *fsnotifyBackend) settle(path string, created bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	info, err := os.Stat(path)
	if err != nil {
		if p, ok := b.pending[path]; ok {
			p.timer.Stop()
			delete(b.pending, path)
		}
		return
	}

	p, exists := b.pending[path]
	if exists {
		p.timer.Stop()
		p.created = p.created || created
	} else {
		p = &pendingEvent{created: created}
		b.pending[path] = p
	}
	p.size = info.Size()
	p.modTime = info.ModTime()
	p.isDir = info.IsDir()
	p.timer = time.AfterFunc(b.opts.SettleDelay, func() { b.checkSettled(path) })
}

// checkSettled emits path once its size and mtime held still for a full
// settle delay.
func (b *fsnotifyBackend) checkSettled(path string) {
	b.mu.Lock()
	p, exists := b.pending[path]
	if !exists {
		b.mu.Unlock()
		return
	}

	info, err := os.Stat(path)
	if err != nil {
		delete(b.pending, path)
		b.mu.Unlock()
		b.emit(Event{Type: EventRemoved, Path: path})
		return
	}

	if info.Size() != p.size || !info.ModTime().Equal(p.modTime) {
		p.size = info.Size()
		p.modTime = info.ModTime()
		p.timer = time.AfterFunc(b.opts.SettleDelay, func() { b.checkSettled(path) })
		b.mu.Unlock()
		return
	}

	delete(b.pending, path)
	b.mu.Unlock()

	typ := EventModified
	if p.created {
		typ = EventAdded
	}
	b.emit(Event{
		Type:    typ,
		Path:    path,
		IsDir:   p.isDir,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	})
}

func (b *fsnotifyBackend) cancelPending(path string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if p, exists := b.pending[path]; exists {
		p.timer.Stop()
		delete(b.pending, path)
	}
}

// emit sends an event unless the backend is stopping.
func (b *fsnotifyBackend) emit(event Event) {
	select {
	case b.events <- event:
	case <-b.done:
	}
}

func (b *fsnotifyBackend) Events() <-chan Event {
	return b.events
}

func (b *fsnotifyBackend) Errors() <-chan error {
	return b.errors
}

// Stop stops the watcher. It is safe to call more than once.
func (b *fsnotifyBackend) Stop() error {
	var err error
	b.stopOnce.Do(func() {
		close(b.done)

		b.mu.Lock()
		for _, p := range b.pending {
			p.timer.Stop()
		}
		clear(b.pending)
		b.mu.Unlock()

		err = b.watcher.Close()
		b.wg.Wait()
	})
	return err
}
