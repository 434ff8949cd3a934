package duplicates

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/listenupapp/doujinshelf/internal/domain"
	"github.com/listenupapp/doujinshelf/internal/errors"
	"github.com/listenupapp/doujinshelf/internal/hashing"
	"github.com/listenupapp/doujinshelf/internal/store"
	"github.com/listenupapp/doujinshelf/internal/store/sqlite"
	"github.com/listenupapp/doujinshelf/internal/tags"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func gallery(title, path string) *domain.Gallery {
	return &domain.Gallery{
		Title:     title,
		Artist:    "someone",
		Path:      path,
		DateAdded: time.Now(),
		Chapters:  []domain.Chapter{{Title: title, Path: path, Pages: 3}},
		Tags:      tags.New(),
	}
}

func add(t *testing.T, s *sqlite.Store, g *domain.Gallery) int64 {
	t.Helper()
	id, err := s.AddGallery(context.Background(), g, false)
	require.NoError(t, err)
	return id
}

func TestFind_SimpleTitleMatch(t *testing.T) {
	s := newTestStore(t)
	id1 := add(t, s, gallery("Foo", "/a/foo"))
	id2 := add(t, s, gallery("FOO", "/b/foo"))
	add(t, s, gallery("Bar", "/c/bar"))

	var events []Event
	pairs, err := New(s, nil, nil).Find(context.Background(), ModeSimple, func(e Event) {
		events = append(events, e)
	})
	require.NoError(t, err)

	require.Len(t, pairs, 1)
	assert.Equal(t, id1, pairs[0].First.ID)
	assert.Equal(t, id2, pairs[0].Second.ID)
	assert.Equal(t, ReasonTitle, pairs[0].Reason)

	require.Len(t, events, 2)
	assert.Equal(t, EventPair, events[0].Type)
	assert.Equal(t, EventFinished, events[1].Type)
	assert.Equal(t, 1, events[1].Total)
}

func TestFind_SimplePathMatch(t *testing.T) {
	s := newTestStore(t)
	id1 := add(t, s, gallery("One", "/lib/Same"))
	id2 := add(t, s, gallery("Two", "/lib/same/"))

	pairs, err := New(s, nil, nil).Find(context.Background(), ModeSimple, nil)
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	assert.Equal(t, [2]int64{id1, id2}, [2]int64{pairs[0].First.ID, pairs[0].Second.ID})
	assert.Equal(t, ReasonPath, pairs[0].Reason)
}

func TestFind_TitleAndPathReportedOnce(t *testing.T) {
	s := newTestStore(t)
	add(t, s, gallery("Same", "/x/a"))
	g := gallery("same ", "/x/A")
	_, err := s.AddGallery(context.Background(), g, true)
	require.NoError(t, err)

	pairs, err := New(s, nil, nil).Find(context.Background(), ModeSimple, nil)
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	assert.Equal(t, ReasonTitle, pairs[0].Reason)
}

func TestFind_ArchiveSubfoldersAreDistinct(t *testing.T) {
	s := newTestStore(t)
	a := gallery("First", "/in/pack.zip")
	a.IsArchive, a.PathInArchive = true, "First/"
	b := gallery("Second", "/in/pack.zip")
	b.IsArchive, b.PathInArchive = true, "Second/"
	add(t, s, a)
	add(t, s, b)

	pairs, err := New(s, nil, nil).Find(context.Background(), ModeSimple, nil)
	require.NoError(t, err)
	assert.Empty(t, pairs)
}

func TestFind_OrderedByIDs(t *testing.T) {
	s := newTestStore(t)
	ids := []int64{
		add(t, s, gallery("Dup", "/1")),
		add(t, s, gallery("Dup", "/2")),
		add(t, s, gallery("Dup", "/3")),
	}

	pairs, err := New(s, nil, nil).Find(context.Background(), ModeSimple, nil)
	require.NoError(t, err)

	var got [][2]int64
	for _, p := range pairs {
		got = append(got, [2]int64{p.First.ID, p.Second.ID})
	}
	assert.Equal(t, [][2]int64{{ids[0], ids[1]}, {ids[0], ids[2]}, {ids[1], ids[2]}}, got)
}

func TestFind_HashMode(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	id1 := add(t, s, gallery("Alpha", "/h/1"))
	id2 := add(t, s, gallery("Beta", "/h/2"))
	id3 := add(t, s, gallery("Gamma", "/h/3"))
	add(t, s, gallery("Delta", "/h/4"))

	same := []domain.PageHash{{Page: 0, Digest: "aa"}, {Page: 1, Digest: "bb"}, {Page: 2, Digest: "cc"}}
	require.NoError(t, s.UpsertHashes(ctx, id1, 0, same))
	require.NoError(t, s.UpsertHashes(ctx, id2, 0, same))
	require.NoError(t, s.UpsertHashes(ctx, id3, 0, []domain.PageHash{{Page: 0, Digest: "aa"}, {Page: 1, Digest: "bb"}, {Page: 2, Digest: "zz"}}))

	pairs, err := New(s, nil, nil).Find(ctx, ModeHash, nil)
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	assert.Equal(t, id1, pairs[0].First.ID)
	assert.Equal(t, id2, pairs[0].Second.ID)
	assert.Equal(t, ReasonHash, pairs[0].Reason)
}

type fakeHasher struct {
	called int
	err    error
}

func (f *fakeHasher) EnsureAll(_ context.Context, galleries []*domain.Gallery, _ func(int, int)) ([]hashing.Result, error) {
	f.called++
	return make([]hashing.Result, len(galleries)), f.err
}

func TestFind_HashModeEnsuresDigests(t *testing.T) {
	s := newTestStore(t)
	add(t, s, gallery("Alpha", "/h/1"))

	h := &fakeHasher{}
	_, err := New(s, h, nil).Find(context.Background(), ModeHash, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, h.called)

	h.err = errors.Cancelled(context.Canceled)
	_, err = New(s, h, nil).Find(context.Background(), ModeHash, nil)
	assert.ErrorIs(t, err, errors.ErrCancelled)
}

func TestFind_Cancelled(t *testing.T) {
	s := newTestStore(t)
	add(t, s, gallery("Alpha", "/c/1"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(s, nil, nil).Find(ctx, ModeSimple, nil)
	assert.ErrorIs(t, err, errors.ErrCancelled)
}

func TestMark(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	add(t, s, gallery("Dup", "/m/1"))
	add(t, s, gallery("Dup", "/m/2"))
	add(t, s, gallery("Dup", "/m/3"))

	pairs, err := New(s, nil, nil).Find(ctx, ModeSimple, nil)
	require.NoError(t, err)
	n, err := Mark(ctx, s, pairs)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	view := domain.ViewDuplicate
	dups, err := s.ListGalleries(ctx, store.GalleryFilter{View: &view})
	require.NoError(t, err)
	assert.Len(t, dups, 2)
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("HASH")
	require.NoError(t, err)
	assert.Equal(t, ModeHash, m)

	m, err = ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeSimple, m)

	_, err = ParseMode("fuzzy")
	assert.ErrorIs(t, err, errors.ErrValidation)
}
