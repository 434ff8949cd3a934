package ignore

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFilter_Persistent(t *testing.T) {
	f := New(Options{
		Paths:      []string{"/in/skip", " "},
		Extensions: []string{"CBR", ".txt"},
	})

	tests := []struct {
		path  string
		isDir bool
		want  bool
	}{
		{"/in/skip/gallery", true, true},
		{"/in/skipped.zip", false, true},
		{"/in/keep", true, false},
		{"/in/book.cbr", false, true},
		{"/in/book.CBR", false, true},
		{"/in/notes.txt", false, true},
		{"/in/book.cbz", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, f.Ignored(tt.path, tt.isDir))
		})
	}
}

func TestFilter_Folders(t *testing.T) {
	f := New(Options{Folders: true})
	assert.True(t, f.Ignored("/in/dir", true))
	assert.False(t, f.Ignored("/in/a.zip", false))
	assert.Equal(t, "folders ignored", f.Reason("/in/dir", true))
}

func TestFilter_TransientCoversDescendants(t *testing.T) {
	f := New(Options{})
	moved := filepath.Join("/lib", "Gallery")
	f.AddTransient(moved)

	assert.True(t, f.Ignored(moved, true))
	assert.True(t, f.Ignored(filepath.Join(moved, "001.jpg"), false))
	assert.False(t, f.Ignored(filepath.Join("/lib", "Other"), true))
	assert.Equal(t, "recently moved", f.Reason(moved, true))

	f.RemoveTransient(moved)
	assert.False(t, f.Ignored(moved, true))
}

func TestFilter_TransientExpires(t *testing.T) {
	f := New(Options{TransientTTL: 10 * time.Second})
	now := time.Now()
	f.now = func() time.Time { return now }

	f.AddTransient("/lib/g")
	now = now.Add(5 * time.Second)
	assert.True(t, f.Ignored("/lib/g", true))

	now = now.Add(6 * time.Second)
	assert.False(t, f.Ignored("/lib/g", true))
	assert.Empty(t, f.transient)
}

func TestFilter_Reason(t *testing.T) {
	f := New(Options{Paths: []string{"tmp"}, Extensions: []string{"txt"}})
	assert.Equal(t, "ignored path", f.Reason("/a/tmp/b", true))
	assert.Equal(t, "ignored extension", f.Reason("/a/b.txt", false))
	assert.Equal(t, "", f.Reason("/a/b.zip", false))
}
