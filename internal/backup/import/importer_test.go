package backupimport

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/listenupapp/doujinshelf/internal/backup/export"
	"github.com/listenupapp/doujinshelf/internal/domain"
	"github.com/listenupapp/doujinshelf/internal/errors"
	"github.com/listenupapp/doujinshelf/internal/store/sqlite"
	"github.com/listenupapp/doujinshelf/internal/tags"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHasher struct {
	digests map[int64]map[int]string
	calls   []int64
}

func (h *fakeHasher) Ensure(_ context.Context, g *domain.Gallery, _ int) (map[int]string, error) {
	h.calls = append(h.calls, g.ID)
	d, ok := h.digests[g.ID]
	if !ok {
		return nil, errors.IOf("gallery %d is gone", g.ID)
	}
	return d, nil
}

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func addGallery(t *testing.T, s *sqlite.Store, title string, pages int, tagStr string) *domain.Gallery {
	t.Helper()
	g := &domain.Gallery{
		Title:     title,
		Artist:    "local artist",
		Path:      "/lib/" + title,
		DateAdded: time.Now(),
		Chapters:  []domain.Chapter{{Title: title, Path: "/lib/" + title, Pages: pages}},
		Tags:      tags.MustParse(tagStr),
	}
	id, err := s.AddGallery(context.Background(), g, false)
	require.NoError(t, err)
	got, err := s.GetGallery(context.Background(), id)
	require.NoError(t, err)
	return got
}

func fiveDigests() map[int]string {
	return map[int]string{0: strings.Repeat("0", 40), 1: strings.Repeat("1", 40), 2: strings.Repeat("2", 40), 3: strings.Repeat("3", 40), 4: strings.Repeat("4", 40)}
}

const s6Record = `{
  "17": {
    "title": "Imported Title",
    "artist": "Imported Artist",
    "info": "notes",
    "type": "Manga",
    "status": "Ongoing",
    "language": "Japanese",
    "rating": 4,
    "pub_date": "2019-05-01T00:00:00Z",
    "times_read": 3,
    "fav": true,
    "link": "https://e-hentai.org/g/1/abcdef0123/",
    "exed": true,
    "tags": {"Artist": ["someone"], "default": ["school"]},
    "identifier": {"pages": 5,
      "0": "0000000000000000000000000000000000000000",
      "1": "1111111111111111111111111111111111111111",
      "2": "2222222222222222222222222222222222222222",
      "3": "3333333333333333333333333333333333333333",
      "4": "4444444444444444444444444444444444444444"}
  }
}`

func TestImport_MatchAppliesRecord(t *testing.T) {
	s := newTestStore(t)
	g := addGallery(t, s, "local", 5, "Female:glasses, school")
	hasher := &fakeHasher{digests: map[int64]map[int]string{g.ID: fiveDigests()}}

	res, err := New(s, hasher, nil).ImportFrom(context.Background(), strings.NewReader(s6Record), Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Records)
	assert.Equal(t, 1, res.Matched)
	assert.Equal(t, 1, res.Updated)
	assert.Empty(t, res.Unmatched)
	assert.Empty(t, res.Errors)

	got, err := s.GetGallery(context.Background(), g.ID)
	require.NoError(t, err)
	assert.Equal(t, "Imported Title", got.Title)
	assert.Equal(t, "Imported Artist", got.Artist)
	assert.Equal(t, "notes", got.Info)
	assert.Equal(t, "Manga", got.Type)
	assert.Equal(t, "Ongoing", got.Status)
	assert.Equal(t, "Japanese", got.Language)
	assert.Equal(t, 4, got.Rating)
	assert.Equal(t, 3, got.TimesRead)
	assert.True(t, got.Favorite)
	assert.True(t, got.Exed)
	assert.Equal(t, "https://e-hentai.org/g/1/abcdef0123/", got.Link)
	require.NotNil(t, got.PubDate)
	assert.True(t, got.PubDate.Equal(time.Date(2019, 5, 1, 0, 0, 0, 0, time.UTC)))

	// Tags are the union of both sides.
	assert.True(t, got.Tags.Has("Female", "glasses"))
	assert.True(t, got.Tags.Has("default", "school"))
	assert.True(t, got.Tags.Has("Artist", "someone"))
	assert.Equal(t, 3, got.Tags.Len())
}

func TestImport_OnlyPlausibleGalleriesAreHashed(t *testing.T) {
	s := newTestStore(t)
	match := addGallery(t, s, "five", 5, "")
	addGallery(t, s, "six", 6, "")
	addGallery(t, s, "twenty", 20, "")
	hasher := &fakeHasher{digests: map[int64]map[int]string{match.ID: fiveDigests()}}

	res, err := New(s, hasher, nil).ImportFrom(context.Background(), strings.NewReader(s6Record), Options{})
	require.NoError(t, err)
	assert.Equal(t, []int64{match.ID}, hasher.calls)
	assert.Equal(t, 1, res.Matched)
}

func TestImport_DigestMismatch(t *testing.T) {
	s := newTestStore(t)
	g := addGallery(t, s, "local", 5, "")
	d := fiveDigests()
	d[3] = strings.Repeat("f", 40)
	hasher := &fakeHasher{digests: map[int64]map[int]string{g.ID: d}}

	res, err := New(s, hasher, nil).ImportFrom(context.Background(), strings.NewReader(s6Record), Options{})
	require.NoError(t, err)
	assert.Zero(t, res.Matched)
	assert.Equal(t, []string{"17"}, res.Unmatched)

	got, err := s.GetGallery(context.Background(), g.ID)
	require.NoError(t, err)
	assert.Equal(t, "local", got.Title)
}

func TestImport_DryRun(t *testing.T) {
	s := newTestStore(t)
	g := addGallery(t, s, "local", 5, "")
	hasher := &fakeHasher{digests: map[int64]map[int]string{g.ID: fiveDigests()}}

	res, err := New(s, hasher, nil).ImportFrom(context.Background(), strings.NewReader(s6Record), Options{DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Matched)
	assert.Zero(t, res.Updated)

	got, err := s.GetGallery(context.Background(), g.ID)
	require.NoError(t, err)
	assert.Equal(t, "local", got.Title)
}

func TestImport_KeepLocal(t *testing.T) {
	s := newTestStore(t)
	g := addGallery(t, s, "local", 5, "")
	hasher := &fakeHasher{digests: map[int64]map[int]string{g.ID: fiveDigests()}}

	_, err := New(s, hasher, nil).ImportFrom(context.Background(), strings.NewReader(s6Record), Options{MergeStrategy: MergeKeepLocal})
	require.NoError(t, err)

	got, err := s.GetGallery(context.Background(), g.ID)
	require.NoError(t, err)
	assert.Equal(t, "local", got.Title)
	assert.Equal(t, "local artist", got.Artist)
	assert.Equal(t, "notes", got.Info)
	assert.Equal(t, 4, got.Rating)
	assert.True(t, got.Tags.Has("Artist", "someone"))
}

func TestImport_HashFailureIsReported(t *testing.T) {
	s := newTestStore(t)
	addGallery(t, s, "broken", 5, "")

	res, err := New(s, &fakeHasher{}, nil).ImportFrom(context.Background(), strings.NewReader(s6Record), Options{})
	require.NoError(t, err)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, []string{"17"}, res.Unmatched)
}

func TestImport_BadEntries(t *testing.T) {
	s := newTestStore(t)

	in := `{"1": {"title": 5}, "2": {"title": "no identifier", "identifier": {"pages": 3}}}`
	res, err := New(s, &fakeHasher{}, nil).ImportFrom(context.Background(), strings.NewReader(in), Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Records)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "1", res.Errors[0].Key)
	assert.Equal(t, []string{"2"}, res.Unmatched)

	_, err = New(s, &fakeHasher{}, nil).ImportFrom(context.Background(), strings.NewReader(`[]`), Options{})
	assert.Equal(t, errors.CodeFormat, errors.CodeOf(err))

	_, err = New(s, &fakeHasher{}, nil).ImportFrom(context.Background(), strings.NewReader(`{}`), Options{MergeStrategy: "newest"})
	assert.Equal(t, errors.CodeValidation, errors.CodeOf(err))
}

func TestPatch_NoChange(t *testing.T) {
	g := &domain.Gallery{Title: "Same", Artist: "A", Tags: tags.MustParse("x")}
	rec := export.NewRecord(g, export.Identifier{})
	assert.True(t, Patch(g, rec, MergeKeepBackup).Empty())
}

func TestNew_NilLoggerDiscards(t *testing.T) {
	imp := New(nil, &fakeHasher{}, nil)
	require.NotNil(t, imp.logger)
	assert.Equal(t, slog.DiscardHandler, imp.logger.Handler())
}
