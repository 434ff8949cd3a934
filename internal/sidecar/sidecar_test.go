package sidecar

import (
	"archive/zip"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/listenupapp/doujinshelf/internal/domain"
	"github.com/listenupapp/doujinshelf/internal/errors"
	"github.com/listenupapp/doujinshelf/internal/tags"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRead_AllFields(t *testing.T) {
	m, err := Read(strings.NewReader(`{
		"title": " Foo ",
		"artist": "Bar",
		"tags": "x, Female:[a, b]",
		"pub_date": "2020-01-02 03:04:05",
		"type": "Manga",
		"status": "Ongoing",
		"language": "English",
		"link": "https://e-hentai.org/g/1/a/",
		"unknown": 42
	}`))
	require.NoError(t, err)

	assert.Equal(t, "Foo", *m.Title)
	assert.Equal(t, "Bar", *m.Artist)
	assert.Equal(t, "Manga", *m.Type)
	assert.Equal(t, "Ongoing", *m.Status)
	assert.Equal(t, "English", *m.Language)
	assert.Equal(t, time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC), *m.PubDate)
	assert.Equal(t, "x, Female:[a, b]", m.Tags.Encode())
}

func TestRead_TagShapes(t *testing.T) {
	m, err := Read(strings.NewReader(`{"tags": {"artist": ["Foo"], "": ["x"]}}`))
	require.NoError(t, err)
	assert.Equal(t, "x, Artist:foo", m.Tags.Encode())

	m, err = Read(strings.NewReader(`{"tags": ["artist:foo", "plain"]}`))
	require.NoError(t, err)
	assert.Equal(t, "plain, Artist:foo", m.Tags.Encode())
}

func TestRead_GalleryInfoWrapper(t *testing.T) {
	m, err := Read(strings.NewReader(`{"gallery_info": {"title": "Wrapped"}}`))
	require.NoError(t, err)
	assert.Equal(t, "Wrapped", *m.Title)
}

func TestRead_Errors(t *testing.T) {
	for _, in := range []string{
		`{not json`,
		`{"pub_date": "yesterday"}`,
		`{"tags": 12}`,
		`{"tags": "a, ]"}`,
	} {
		_, err := Read(strings.NewReader(in))
		require.Error(t, err, in)
		assert.Equal(t, errors.KindFormat, errors.KindOf(err), in)
	}
}

func TestApply_OnlyPresentFields(t *testing.T) {
	g := &domain.Gallery{
		Title:    "Keep",
		Artist:   "Old",
		Language: "Japanese",
		Tags:     tags.MustParse("old"),
	}
	m, err := Read(strings.NewReader(`{"artist": "New", "tags": "new"}`))
	require.NoError(t, err)

	m.Apply(g)
	assert.Equal(t, "Keep", g.Title)
	assert.Equal(t, "New", g.Artist)
	assert.Equal(t, "Japanese", g.Language)
	assert.Equal(t, "new, old", g.Tags.Encode())
}

func TestFind_Directory(t *testing.T) {
	dir := t.TempDir()
	g := &domain.Gallery{Path: dir, Chapters: []domain.Chapter{{Path: dir}}}

	m, err := Find(g)
	require.NoError(t, err)
	assert.Nil(t, m)

	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(`{"title":"T"}`), 0o644))
	m, err = Find(g)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "T", *m.Title)
}

func TestFind_ChapterDirectory(t *testing.T) {
	root := t.TempDir()
	ch := filepath.Join(root, "ch01")
	require.NoError(t, os.MkdirAll(ch, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(ch, FileName), []byte(`{"artist":"A"}`), 0o644))

	m, err := Find(&domain.Gallery{Path: root, Chapters: []domain.Chapter{{Path: ch}}})
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "A", *m.Artist)
}

func TestFind_Archive(t *testing.T) {
	p := filepath.Join(t.TempDir(), "g.cbz")
	f, err := os.Create(p)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	w, err := zw.Create("info.json")
	require.NoError(t, err)
	_, err = w.Write([]byte(`{"title":"Zipped","tags":"a"}`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	g := &domain.Gallery{Path: p, IsArchive: true, Chapters: []domain.Chapter{{Path: p, InArchive: true}}}
	m, err := Find(g)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "Zipped", *m.Title)
}
