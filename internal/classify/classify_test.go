package classify

import (
	"archive/zip"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/doujinshelf/internal/errors"
)

// mkImages creates n jpg files and extra non-image files in dir.
func mkImages(t *testing.T, dir string, n int, extra ...string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for i := range n {
		require.NoError(t, os.WriteFile(filepath.Join(dir, fmt.Sprintf("%03d.jpg", i+1)), []byte{byte(i)}, 0o644))
	}
	for _, name := range extra {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}
}

func mkZip(t *testing.T, p string, names ...string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	f, err := os.Create(p)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for _, n := range names {
		w, err := zw.Create(n)
		require.NoError(t, err)
		_, err = w.Write([]byte(n))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
}

func TestIsGallerySet_Threshold(t *testing.T) {
	tests := []struct {
		images, others int
		want           bool
	}{
		{4, 1, true},  // 4/5
		{5, 0, true},  // 5/5
		{4, 2, false}, // 4/6
		{5, 1, true},  // 5/6
		{0, 0, false},
		{0, 3, false},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d_of_%d", tt.images, tt.images+tt.others), func(t *testing.T) {
			var names []string
			for i := range tt.images {
				names = append(names, fmt.Sprintf("%d.png", i))
			}
			for i := range tt.others {
				names = append(names, fmt.Sprintf("%d.txt", i))
			}
			assert.Equal(t, tt.want, IsGallerySet(names))
		})
	}
}

func TestIsGallerySet_IgnoresHidden(t *testing.T) {
	assert.True(t, IsGallerySet([]string{"1.jpg", "2.jpg", "3.jpg", "4.jpg", ".DS_Store", "Thumbs.db"}))
	assert.False(t, IsGallerySet([]string{".hidden.jpg"}))
}

func TestClassify_SingleDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "Gallery A [artist1] [English]")
	mkImages(t, dir, 5)

	res, err := Classify(Candidate{Path: dir}, Policy{})
	require.NoError(t, err)
	assert.Equal(t, SingleGallery, res.Kind)
	require.Len(t, res.Chapters, 1)
	assert.Equal(t, ChapterSource{Path: dir, Pages: 5}, res.Chapters[0])
}

func TestClassify_MultiChapter(t *testing.T) {
	book := filepath.Join(t.TempDir(), "Book")
	mkImages(t, filepath.Join(book, "ch02"), 7)
	mkImages(t, filepath.Join(book, "ch01"), 5)
	mkImages(t, filepath.Join(book, "notes"), 0, "readme.txt")

	res, err := Classify(Candidate{Path: book}, Policy{})
	require.NoError(t, err)
	assert.Equal(t, MultiChapterGallery, res.Kind)
	require.Len(t, res.Chapters, 2)
	assert.Equal(t, filepath.Join(book, "ch01"), res.Chapters[0].Path)
	assert.Equal(t, 5, res.Chapters[0].Pages)
	assert.Equal(t, filepath.Join(book, "ch02"), res.Chapters[1].Path)
	assert.Equal(t, 7, res.Chapters[1].Pages)
}

func TestClassify_SubfolderAsGallery(t *testing.T) {
	book := filepath.Join(t.TempDir(), "Book")
	mkImages(t, filepath.Join(book, "a"), 3)
	mkImages(t, filepath.Join(book, "b"), 3)

	res, err := Classify(Candidate{Path: book}, Policy{SubfolderAsGallery: true})
	require.NoError(t, err)
	assert.Equal(t, ContainerOfGalleries, res.Kind)
	assert.Equal(t, []Candidate{
		{Path: filepath.Join(book, "a")},
		{Path: filepath.Join(book, "b")},
	}, res.Candidates)
}

func TestClassify_ArchiveRoot(t *testing.T) {
	p := filepath.Join(t.TempDir(), "[artist2] Title.zip")
	mkZip(t, p, "01.jpg", "02.jpg", "03.png", "04.jpg", "info.json")

	res, err := Classify(Candidate{Path: p}, Policy{})
	require.NoError(t, err)
	assert.Equal(t, SingleGallery, res.Kind)
	assert.True(t, res.Candidate.Archive)
	assert.Equal(t, []ChapterSource{{Path: p, InArchive: true, Pages: 4}}, res.Chapters)
}

func TestClassify_ArchiveRootBelowThreshold(t *testing.T) {
	// 3 of 4 entries are images: 75% is not enough.
	p := filepath.Join(t.TempDir(), "[artist2] Title.zip")
	mkZip(t, p, "01.jpg", "02.jpg", "03.png", "info.json")

	res, err := Classify(Candidate{Path: p}, Policy{})
	require.NoError(t, err)
	assert.Equal(t, NotAGallery, res.Kind)
	assert.Empty(t, res.Chapters)
}

func TestClassify_ArchiveChapters(t *testing.T) {
	p := filepath.Join(t.TempDir(), "multi.cbz")
	mkZip(t, p, "b/1.jpg", "a/1.jpg", "a/2.jpg", "__MACOSX/a/._1.jpg", "readme.txt")

	res, err := Classify(Candidate{Path: p}, Policy{})
	require.NoError(t, err)
	assert.Equal(t, MultiChapterGallery, res.Kind)
	assert.Equal(t, []ChapterSource{
		{Path: "a/", InArchive: true, Pages: 2},
		{Path: "b/", InArchive: true, Pages: 1},
	}, res.Chapters)

	res, err = Classify(Candidate{Path: p}, Policy{SubfolderAsGallery: true})
	require.NoError(t, err)
	assert.Equal(t, ContainerOfGalleries, res.Kind)
	require.Len(t, res.Candidates, 2)
	assert.Equal(t, "a/", res.Candidates[0].PathInArchive)

	res, err = Classify(res.Candidates[1], Policy{})
	require.NoError(t, err)
	assert.Equal(t, SingleGallery, res.Kind)
	assert.Equal(t, []ChapterSource{{Path: "b/", InArchive: true, Pages: 1}}, res.Chapters)
}

func TestClassify_NotAGallery(t *testing.T) {
	dir := t.TempDir()
	mkImages(t, dir, 1, "a.txt", "b.txt")

	res, err := Classify(Candidate{Path: dir}, Policy{})
	require.NoError(t, err)
	assert.Equal(t, NotAGallery, res.Kind)
	assert.NotEmpty(t, res.Reason)

	file := filepath.Join(dir, "a.txt")
	res, err = Classify(Candidate{Path: file}, Policy{})
	require.NoError(t, err)
	assert.Equal(t, NotAGallery, res.Kind)

	_, err = Classify(Candidate{Path: filepath.Join(dir, "missing")}, Policy{})
	assert.Error(t, err)
}

func TestDiscover(t *testing.T) {
	root := t.TempDir()
	mkImages(t, filepath.Join(root, "b gallery"), 3)
	mkImages(t, filepath.Join(root, "a gallery"), 3)
	mkImages(t, filepath.Join(root, ".trash"), 3)
	mkZip(t, filepath.Join(root, "c.zip"), "1.jpg")
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0o644))

	got, err := Discover(root, Policy{})
	require.NoError(t, err)
	assert.Equal(t, []Candidate{
		{Path: filepath.Join(root, "a gallery")},
		{Path: filepath.Join(root, "b gallery")},
		{Path: filepath.Join(root, "c.zip"), Archive: true},
	}, got)
}

func TestDiscover_RootIsGallery(t *testing.T) {
	root := t.TempDir()
	mkImages(t, root, 4)

	got, err := Discover(root, Policy{})
	require.NoError(t, err)
	assert.Equal(t, []Candidate{{Path: root}}, got)
}

func TestDiscover_Recursive(t *testing.T) {
	root := t.TempDir()
	mkImages(t, filepath.Join(root, "x", "deep", "g1"), 2)
	mkImages(t, filepath.Join(root, "x", "g2"), 4)
	mkImages(t, filepath.Join(root, "x", "g2", "nested"), 2)
	mkZip(t, filepath.Join(root, "y", "g3.cbz"), "1.jpg")

	got, err := Discover(root, Policy{Recursive: true})
	require.NoError(t, err)
	assert.Equal(t, []Candidate{
		{Path: filepath.Join(root, "x", "deep", "g1")},
		{Path: filepath.Join(root, "x", "g2")},
		{Path: filepath.Join(root, "y", "g3.cbz"), Archive: true},
	}, got)
}

func TestDiscover_RecursiveUnreadableDirectory(t *testing.T) {
	root := t.TempDir()
	mkImages(t, filepath.Join(root, "a", "g1"), 2)
	mkImages(t, filepath.Join(root, "b", "locked", "g2"), 2)
	mkImages(t, filepath.Join(root, "c", "g3"), 2)

	locked := filepath.Join(root, "b", "locked")
	policy := Policy{
		Recursive: true,
		ReadDir: func(dir string) ([]fs.DirEntry, error) {
			if dir == locked {
				return nil, fs.ErrPermission
			}
			return os.ReadDir(dir)
		},
	}

	got, err := Discover(root, policy)
	require.NoError(t, err)
	assert.Equal(t, []Candidate{
		{Path: filepath.Join(root, "a", "g1")},
		{Path: locked},
		{Path: filepath.Join(root, "c", "g3")},
	}, got)

	_, err = Classify(Candidate{Path: locked}, policy)
	assert.ErrorIs(t, err, errors.ErrIO)
}

func TestDiscover_UnreadableRoot(t *testing.T) {
	root := t.TempDir()
	policy := Policy{
		Recursive: true,
		ReadDir:   func(string) ([]fs.DirEntry, error) { return nil, fs.ErrPermission },
	}

	_, err := Discover(root, policy)
	assert.ErrorIs(t, err, errors.ErrIO)
}

func TestDiscover_Skip(t *testing.T) {
	root := t.TempDir()
	mkImages(t, filepath.Join(root, "keep"), 2)
	mkImages(t, filepath.Join(root, "skipme"), 2)

	policy := Policy{Skip: func(p string, _ bool) bool { return strings.Contains(p, "skipme") }}
	got, err := Discover(root, policy)
	require.NoError(t, err)
	assert.Equal(t, []Candidate{{Path: filepath.Join(root, "keep")}}, got)
}
