package sqlite

import (
	"context"
	"testing"

	"github.com/listenupapp/doujinshelf/internal/domain"
	"github.com/listenupapp/doujinshelf/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsertHashes_ReplacesPerPage(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.AddGallery(ctx, testGallery("Hashed", "/lib/hashed"), false)
	require.NoError(t, err)

	require.NoError(t, s.UpsertHashes(ctx, id, 0, []domain.PageHash{
		{Page: 0, Digest: "aaaa"},
		{Page: 2, Digest: "cccc"},
	}))
	require.NoError(t, s.UpsertHashes(ctx, id, 0, []domain.PageHash{
		{Page: 0, Digest: "bbbb"},
	}))

	got, err := s.GetHashes(ctx, id, 0)
	require.NoError(t, err)
	assert.Equal(t, map[int]string{0: "bbbb", 2: "cccc"}, got)

	var rows int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(1) FROM hashes").Scan(&rows))
	assert.Equal(t, 2, rows)
}

func TestUpsertHashes_UnknownChapter(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.AddGallery(ctx, testGallery("One", "/lib/one"), false)
	require.NoError(t, err)

	err = s.UpsertHashes(ctx, id, 3, []domain.PageHash{{Page: 0, Digest: "x"}})
	assert.ErrorIs(t, err, errors.ErrConsistency)
}

func TestInvalidateHashes(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.AddGallery(ctx, testGallery("Stale", "/lib/stale"), false)
	require.NoError(t, err)
	require.NoError(t, s.UpsertHashes(ctx, id, 0, []domain.PageHash{{Page: 1, Digest: "x"}}))

	require.NoError(t, s.InvalidateHashes(ctx, id, 0))
	got, err := s.GetHashes(ctx, id, 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestReconcileChapter(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.AddGallery(ctx, testGallery("Grown", "/lib/grown"), false)
	require.NoError(t, err)
	require.NoError(t, s.UpsertHashes(ctx, id, 0, []domain.PageHash{{Page: 0, Digest: "x"}}))

	require.NoError(t, s.ReconcileChapter(ctx, id, 0, 7))

	g, err := s.GetGallery(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 7, g.Chapters[0].Pages)
	got, err := s.GetHashes(ctx, id, 0)
	require.NoError(t, err)
	assert.Empty(t, got)

	assert.ErrorIs(t, s.ReconcileChapter(ctx, id, 0, -1), errors.ErrValidation)
	assert.ErrorIs(t, s.ReconcileChapter(ctx, id, 4, 1), errors.ErrConsistency)
}

func TestChapterHashes(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a, err := s.AddGallery(ctx, testGallery("A", "/lib/a"), false)
	require.NoError(t, err)
	b, err := s.AddGallery(ctx, testGallery("B", "/lib/b"), false)
	require.NoError(t, err)
	require.NoError(t, s.UpsertHashes(ctx, a, 0, []domain.PageHash{{Page: 0, Digest: "same"}, {Page: 1, Digest: "a1"}}))
	require.NoError(t, s.UpsertHashes(ctx, b, 0, []domain.PageHash{{Page: 0, Digest: "same"}}))

	got, err := s.ChapterHashes(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, map[int64]map[int]string{
		a: {0: "same", 1: "a1"},
		b: {0: "same"},
	}, got)

	none, err := s.ChapterHashes(ctx, 5)
	require.NoError(t, err)
	assert.Empty(t, none)
}
