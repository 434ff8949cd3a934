package backup_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/doujinshelf/internal/backup"
	"github.com/listenupapp/doujinshelf/internal/domain"
	"github.com/listenupapp/doujinshelf/internal/errors"
	"github.com/listenupapp/doujinshelf/internal/hashing"
	"github.com/listenupapp/doujinshelf/internal/scratch"
	"github.com/listenupapp/doujinshelf/internal/store"
	"github.com/listenupapp/doujinshelf/internal/store/sqlite"
	"github.com/listenupapp/doujinshelf/internal/tags"
)

type library struct {
	store   *sqlite.Store
	service *backup.BackupService
	dir     string
}

// testSetup creates a store, a hashing engine and a backup service.
func testSetup(t *testing.T) library {
	t.Helper()
	tmpDir := t.TempDir()

	s, err := sqlite.Open(filepath.Join(tmpDir, "test.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	sm, err := scratch.New(filepath.Join(tmpDir, "scratch"), nil)
	require.NoError(t, err)
	engine := hashing.NewEngine(s, sm, hashing.Options{SampleSize: 4, Workers: 2}, nil)

	dir := filepath.Join(tmpDir, "exports")
	return library{store: s, service: backup.NewBackupService(s, engine, dir, nil), dir: dir}
}

// writePages creates a directory gallery with n distinct pages.
func writePages(t *testing.T, dir string, n int) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for i := range n {
		name := filepath.Join(dir, fmt.Sprintf("%02d.png", i+1))
		require.NoError(t, os.WriteFile(name, []byte(fmt.Sprintf("page %d of %s", i, filepath.Base(dir))), 0o644))
	}
}

func addGallery(t *testing.T, s *sqlite.Store, dir, title, tagStr string, pages int) int64 {
	t.Helper()
	id, err := s.AddGallery(context.Background(), &domain.Gallery{
		Title:     title,
		Path:      dir,
		DateAdded: time.Now(),
		Chapters:  []domain.Chapter{{Title: title, Path: dir, Pages: pages}},
		Tags:      tags.MustParse(tagStr),
	}, false)
	require.NoError(t, err)
	return id
}

func TestBackupRestore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	pagesDir := filepath.Join(t.TempDir(), "gallery")
	writePages(t, pagesDir, 10)

	src := testSetup(t)
	srcID := addGallery(t, src.store, pagesDir, "Exported", "Artist:a, b", 10)
	_, err := src.store.ModifyGallery(ctx, srcID, store.Patch{Artist: store.Ptr("Artist X"), Rating: store.Ptr(5)})
	require.NoError(t, err)

	created, err := src.service.Create(ctx, backup.BackupOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, created.Count)
	assert.Zero(t, created.Unhashed)
	assert.FileExists(t, created.Path)

	dst := testSetup(t)
	dstID := addGallery(t, dst.store, pagesDir, "Local Copy", "c", 10)
	other := filepath.Join(t.TempDir(), "other")
	writePages(t, other, 10)
	otherID := addGallery(t, dst.store, other, "Unrelated", "", 10)

	res, err := dst.service.Restore(ctx, created.Path, backup.RestoreOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Matched)
	assert.Equal(t, 1, res.Updated)

	got, err := dst.store.GetGallery(ctx, dstID)
	require.NoError(t, err)
	assert.Equal(t, "Exported", got.Title)
	assert.Equal(t, "Artist X", got.Artist)
	assert.Equal(t, 5, got.Rating)
	assert.True(t, got.Tags.Has("Artist", "a"))
	assert.True(t, got.Tags.Has("default", "b"))
	assert.True(t, got.Tags.Has("default", "c"))

	untouched, err := dst.store.GetGallery(ctx, otherID)
	require.NoError(t, err)
	assert.Equal(t, "Unrelated", untouched.Title)
}

func TestBackupService_ListGetDelete(t *testing.T) {
	ctx := context.Background()
	lib := testSetup(t)

	list, err := lib.service.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	first, err := lib.service.Create(ctx, backup.BackupOptions{})
	require.NoError(t, err)
	second, err := lib.service.Create(ctx, backup.BackupOptions{})
	require.NoError(t, err)
	assert.NotEqual(t, first.Path, second.Path)

	// Unrelated files are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(lib.dir, "notes.txt"), []byte("x"), 0o644))

	list, err = lib.service.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)

	info, err := lib.service.Get(ctx, list[0].ID)
	require.NoError(t, err)
	assert.Equal(t, list[0].Path, info.Path)

	require.NoError(t, lib.service.Delete(ctx, list[0].ID))
	_, err = lib.service.Get(ctx, list[0].ID)
	assert.True(t, errors.Is(err, backup.ErrBackupNotFound))
	assert.True(t, errors.Is(lib.service.Delete(ctx, "export-missing"), errors.ErrNotFound))

	list, err = lib.service.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestBackupService_RestoreByID(t *testing.T) {
	ctx := context.Background()
	lib := testSetup(t)

	created, err := lib.service.Create(ctx, backup.BackupOptions{})
	require.NoError(t, err)
	list, err := lib.service.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, created.Path, list[0].Path)

	res, err := lib.service.Restore(ctx, list[0].ID, backup.RestoreOptions{DryRun: true})
	require.NoError(t, err)
	assert.Zero(t, res.Records)
}
