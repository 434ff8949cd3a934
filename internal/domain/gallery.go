// Package domain holds the records the library core stores and moves around.
package domain

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/listenupapp/doujinshelf/internal/tags"
)

// View says which listing a gallery belongs to.
type View int

const (
	// ViewDefault is the main library.
	ViewDefault View = iota
	// ViewAddition holds freshly imported galleries not yet accepted.
	ViewAddition
	// ViewDuplicate holds galleries flagged by the duplicate detector.
	ViewDuplicate
)

func (v View) String() string {
	switch v {
	case ViewAddition:
		return "addition"
	case ViewDuplicate:
		return "duplicate"
	default:
		return "default"
	}
}

// ParseView is the inverse of View.String. Unknown names map to ViewDefault.
func ParseView(s string) View {
	switch strings.ToLower(s) {
	case "addition":
		return ViewAddition
	case "duplicate":
		return ViewDuplicate
	default:
		return ViewDefault
	}
}

// Gallery is one work in the library: a folder or archive plus its metadata.
type Gallery struct {
	ID            int64      `json:"id"`
	Title         string     `json:"title" validate:"required"`
	Artist        string     `json:"artist"`
	Info          string     `json:"info"`
	Type          string     `json:"type"`
	Status        string     `json:"status"`
	Language      string     `json:"language"`
	Rating        int        `json:"rating" validate:"gte=0,lte=5"`
	PubDate       *time.Time `json:"pub_date,omitempty"`
	DateAdded     time.Time  `json:"date_added"`
	LastRead      *time.Time `json:"last_read,omitempty"`
	TimesRead     int        `json:"times_read" validate:"gte=0"`
	Favorite      bool       `json:"fav"`
	Link          string     `json:"link" validate:"omitempty,url"`
	View          View       `json:"view"`
	IsArchive     bool       `json:"is_archive"`
	PathInArchive string     `json:"path_in_archive,omitempty"`
	Path          string     `json:"path" validate:"required"`
	Exed          bool       `json:"exed"`
	Chapters      []Chapter  `json:"chapters" validate:"required,min=1,dive"`
	Tags          tags.Tags  `json:"tags"`
}

// Chapter is one ordered sequence of pages inside a gallery. For archive
// galleries Path is either the archive itself or a directory inside it.
type Chapter struct {
	ID        int64  `json:"id,omitempty"`
	GalleryID int64  `json:"gallery_id,omitempty"`
	Title     string `json:"title"`
	Number    int    `json:"number" validate:"gte=0"`
	Path      string `json:"path" validate:"required"`
	InArchive bool   `json:"in_archive"`
	Pages     int    `json:"pages" validate:"gte=0"`
}

// Chapter returns the chapter at idx, or false when idx is out of range.
func (g *Gallery) Chapter(idx int) (Chapter, bool) {
	if idx < 0 || idx >= len(g.Chapters) {
		return Chapter{}, false
	}
	return g.Chapters[idx], true
}

// PageCount sums the page counts of all chapters.
func (g *Gallery) PageCount() int {
	total := 0
	for _, c := range g.Chapters {
		total += c.Pages
	}
	return total
}

// Clone returns a deep copy.
func (g *Gallery) Clone() *Gallery {
	c := *g
	c.Chapters = append([]Chapter(nil), g.Chapters...)
	c.Tags = g.Tags.Clone()
	if g.PubDate != nil {
		t := *g.PubDate
		c.PubDate = &t
	}
	if g.LastRead != nil {
		t := *g.LastRead
		c.LastRead = &t
	}
	return &c
}

// ArchiveDir returns the directory inside the gallery's archive that holds
// this chapter's pages, with a trailing slash, or "" for the archive root.
func (c Chapter) ArchiveDir(archivePath string) string {
	if !c.InArchive || c.Path == archivePath {
		return ""
	}
	dir := filepath.ToSlash(c.Path)
	if !strings.HasSuffix(dir, "/") {
		dir += "/"
	}
	return dir
}
