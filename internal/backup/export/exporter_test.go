package export

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/listenupapp/doujinshelf/internal/domain"
	"github.com/listenupapp/doujinshelf/internal/errors"
	"github.com/listenupapp/doujinshelf/internal/store"
	"github.com/listenupapp/doujinshelf/internal/tags"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLister struct {
	galleries []*domain.Gallery
	filter    store.GalleryFilter
}

func (f *fakeLister) ListGalleries(_ context.Context, filter store.GalleryFilter) ([]*domain.Gallery, error) {
	f.filter = filter
	return f.galleries, nil
}

type fakeHasher map[int64]map[int]string

func (h fakeHasher) Ensure(_ context.Context, g *domain.Gallery, _ int) (map[int]string, error) {
	d, ok := h[g.ID]
	if !ok {
		return nil, errors.IOf("gallery %d unreadable", g.ID)
	}
	return d, nil
}

func gallery(id int64, title string, pages int) *domain.Gallery {
	return &domain.Gallery{
		ID:        id,
		Title:     title,
		Artist:    "artist",
		Rating:    3,
		DateAdded: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Path:      "/lib/" + title,
		Chapters:  []domain.Chapter{{Path: "/lib/" + title, Pages: pages}},
		Tags:      tags.MustParse("Artist:someone, school"),
	}
}

func TestExportTo_KeyedByID(t *testing.T) {
	lister := &fakeLister{galleries: []*domain.Gallery{gallery(3, "one", 5), gallery(9, "two", 2)}}
	hasher := fakeHasher{
		3: {0: "aa", 1: "bb", 4: "ee"},
		9: {0: "cc", 1: "dd"},
	}

	var buf bytes.Buffer
	res, err := New(lister, hasher, nil).ExportTo(context.Background(), &buf, []int64{3, 9})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Count)
	assert.Zero(t, res.Unhashed)
	assert.Equal(t, []int64{3, 9}, lister.filter.IDs)

	var raw map[string]map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &raw))
	require.Contains(t, raw, "3")
	require.Contains(t, raw, "9")
	assert.Equal(t, "one", raw["3"]["title"])
	assert.Equal(t, map[string]any{"pages": 5.0, "0": "aa", "1": "bb", "4": "ee"}, raw["3"]["identifier"])
	assert.Equal(t, map[string]any{"Artist": []any{"someone"}, "default": []any{"school"}}, raw["3"]["tags"])

	var recs map[string]Record
	require.NoError(t, json.Unmarshal(buf.Bytes(), &recs))
	assert.Equal(t, Identifier{Pages: 2, Digests: map[int]string{0: "cc", 1: "dd"}}, recs["9"].Identifier)
	assert.Equal(t, []int{0, 1, 4}, recs["3"].Identifier.Indices())
	assert.Equal(t, 3, recs["9"].Rating)
}

func TestExportTo_UnhashedGalleryKeepsPageCount(t *testing.T) {
	lister := &fakeLister{galleries: []*domain.Gallery{gallery(1, "gone", 7)}}

	var buf bytes.Buffer
	res, err := New(lister, fakeHasher{}, nil).ExportTo(context.Background(), &buf, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Unhashed)

	var recs map[string]Record
	require.NoError(t, json.Unmarshal(buf.Bytes(), &recs))
	assert.Equal(t, 7, recs["1"].Identifier.Pages)
	assert.Empty(t, recs["1"].Identifier.Digests)
}

func TestExport_WritesFileAtomically(t *testing.T) {
	var galleries []*domain.Gallery
	hasher := fakeHasher{}
	for i := range 4 {
		id := int64(i + 1)
		galleries = append(galleries, gallery(id, "g"+strconv.Itoa(i), 1))
		hasher[id] = map[int]string{0: strconv.Itoa(i)}
	}

	out := filepath.Join(t.TempDir(), "export.json")
	res, err := New(&fakeLister{galleries: galleries}, hasher, nil).Export(context.Background(), Options{OutputPath: out})
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	sum := sha256.Sum256(data)
	assert.Equal(t, hex.EncodeToString(sum[:]), res.Checksum)
	assert.Equal(t, int64(len(data)), res.Size)
	assert.Equal(t, 4, res.Count)

	_, err = os.Stat(out + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestExport_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := filepath.Join(t.TempDir(), "export.json")
	lister := &fakeLister{galleries: []*domain.Gallery{gallery(1, "a", 1)}}
	_, err := New(lister, fakeHasher{1: {0: "x"}}, nil).Export(ctx, Options{OutputPath: out})
	assert.Equal(t, errors.KindCancellation, errors.KindOf(err))

	_, err = os.Stat(out)
	assert.True(t, os.IsNotExist(err))
}

func TestIdentifier_RejectsBadKeys(t *testing.T) {
	var id Identifier
	assert.Error(t, json.Unmarshal([]byte(`{"pages": 2, "first": "aa"}`), &id))
	assert.Error(t, json.Unmarshal([]byte(`{"pages": "two"}`), &id))
	require.NoError(t, json.Unmarshal([]byte(`{"pages": 2, "1": "bb"}`), &id))
	assert.Equal(t, map[int]string{1: "bb"}, id.Digests)
}
