// Package scratch hands out isolated temporary directories for archive
// extraction. Every Acquire creates a fresh subdirectory named by an opaque
// token, so concurrent extractions never share files.
package scratch

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/listenupapp/doujinshelf/internal/errors"
	"github.com/listenupapp/doujinshelf/internal/id"
)

// Manager owns a scratch root and the directories handed out under it.
type Manager struct {
	root   string
	logger *slog.Logger

	mu   sync.Mutex
	live map[string]struct{}
}

// New creates the scratch root if needed.
func New(root string, logger *slog.Logger) (*Manager, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, errors.Wrapf(err, errors.CodeIO, "create scratch root %s", root)
	}
	return &Manager{
		root:   root,
		logger: logger,
		live:   make(map[string]struct{}),
	}, nil
}

// Root returns the scratch root directory.
func (m *Manager) Root() string {
	return m.root
}

// Acquire creates a new empty directory. The returned release removes it
// and is safe to call more than once; callers defer it immediately.
func (m *Manager) Acquire() (string, func(), error) {
	token, err := id.Generate("x")
	if err != nil {
		return "", nil, err
	}
	dir := filepath.Join(m.root, token)
	if err := os.Mkdir(dir, 0o755); err != nil {
		return "", nil, errors.Wrapf(err, errors.CodeIO, "create scratch dir")
	}

	m.mu.Lock()
	m.live[dir] = struct{}{}
	m.mu.Unlock()

	var once sync.Once
	release := func() {
		once.Do(func() { m.remove(dir) })
	}
	return dir, release, nil
}

func (m *Manager) remove(dir string) {
	if err := os.RemoveAll(dir); err != nil {
		m.logger.Warn("failed to remove scratch dir", "path", dir, "error", err)
	}
	m.mu.Lock()
	delete(m.live, dir)
	m.mu.Unlock()
}

// Live returns the number of directories not yet released.
func (m *Manager) Live() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.live)
}

// Cleanup removes everything under the root, including directories left
// behind by an earlier process. Run it at startup and on exit.
func (m *Manager) Cleanup() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries, err := os.ReadDir(m.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read scratch root: %w", err)
	}
	var errs []error
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(m.root, e.Name())); err != nil {
			errs = append(errs, err)
		}
	}
	clear(m.live)
	return errors.Join(errs...)
}

// Shutdown implements do.Shutdowner.
func (m *Manager) Shutdown() error {
	return m.Cleanup()
}
