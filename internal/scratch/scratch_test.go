package scratch

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/listenupapp/doujinshelf/internal/id"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireRelease(t *testing.T) {
	m, err := New(filepath.Join(t.TempDir(), "scratch"), nil)
	require.NoError(t, err)

	dir, release, err := m.Acquire()
	require.NoError(t, err)
	assert.DirExists(t, dir)
	assert.Equal(t, m.Root(), filepath.Dir(dir))
	assert.True(t, id.HasPrefix(filepath.Base(dir), "x"))
	assert.Equal(t, 1, m.Live())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "page.jpg"), []byte("x"), 0o644))

	release()
	release()
	assert.NoDirExists(t, dir)
	assert.Zero(t, m.Live())
}

func TestAcquire_Concurrent(t *testing.T) {
	m, err := New(t.TempDir(), nil)
	require.NoError(t, err)

	const n = 16
	dirs := make([]string, n)
	releases := make([]func(), n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, r, err := m.Acquire()
			assert.NoError(t, err)
			dirs[i], releases[i] = d, r
		}()
	}
	wg.Wait()

	seen := make(map[string]bool)
	for _, d := range dirs {
		assert.False(t, seen[d], "duplicate scratch dir %s", d)
		seen[d] = true
	}
	assert.Equal(t, n, m.Live())
	for _, r := range releases {
		r()
	}
	assert.Zero(t, m.Live())
}

func TestCleanup_RemovesLeftovers(t *testing.T) {
	root := t.TempDir()
	leftover := filepath.Join(root, "x-old")
	require.NoError(t, os.Mkdir(leftover, 0o755))

	m, err := New(root, nil)
	require.NoError(t, err)
	dir, _, err := m.Acquire()
	require.NoError(t, err)

	require.NoError(t, m.Cleanup())
	assert.NoDirExists(t, leftover)
	assert.NoDirExists(t, dir)
	assert.DirExists(t, root)
	assert.Zero(t, m.Live())
}
