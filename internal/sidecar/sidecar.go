// Package sidecar reads the info.json metadata file that may ship next to a
// gallery's pages, in its folder or inside its archive.
package sidecar

import (
	"encoding/json"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/listenupapp/doujinshelf/internal/archive"
	"github.com/listenupapp/doujinshelf/internal/domain"
	"github.com/listenupapp/doujinshelf/internal/errors"
	"github.com/listenupapp/doujinshelf/internal/tags"
)

// FileName is the sidecar file looked for in galleries and chapters.
const FileName = "info.json"

// DateLayout is the pub_date format.
const DateLayout = "2006-01-02 15:04:05"

// Metadata holds the fields present in a sidecar. Nil pointers mean the
// field was absent.
type Metadata struct {
	Title    *string
	Artist   *string
	Type     *string
	Status   *string
	Language *string
	Link     *string
	PubDate  *time.Time
	Tags     tags.Tags
}

type rawMetadata struct {
	Title    *string         `json:"title"`
	Artist   *string         `json:"artist"`
	Type     *string         `json:"type"`
	Status   *string         `json:"status"`
	Language *string         `json:"language"`
	Link     *string         `json:"link"`
	PubDate  *string         `json:"pub_date"`
	Tags     json.RawMessage `json:"tags"`

	// Some downloaders nest everything under gallery_info.
	GalleryInfo *rawMetadata `json:"gallery_info"`
}

// Read parses a sidecar.
func Read(r io.Reader) (*Metadata, error) {
	var raw rawMetadata
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, errors.Wrap(err, errors.CodeFormat, "unreadable sidecar")
	}
	if raw.GalleryInfo != nil {
		raw = *raw.GalleryInfo
	}

	m := &Metadata{
		Title:    trimmed(raw.Title),
		Artist:   trimmed(raw.Artist),
		Type:     trimmed(raw.Type),
		Status:   trimmed(raw.Status),
		Language: trimmed(raw.Language),
		Link:     trimmed(raw.Link),
	}

	if raw.PubDate != nil && strings.TrimSpace(*raw.PubDate) != "" {
		t, err := parseDate(*raw.PubDate)
		if err != nil {
			return nil, err
		}
		m.PubDate = &t
	}

	t, err := parseTags(raw.Tags)
	if err != nil {
		return nil, err
	}
	m.Tags = t
	return m, nil
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{DateLayout, time.DateOnly, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.Formatf("sidecar: pub_date %q is not %s", s, DateLayout)
}

// parseTags accepts the canonical string form, a namespace to tags object,
// or a flat list of "ns:tag" strings.
func parseTags(data json.RawMessage) (tags.Tags, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return tags.Parse(s)
	}

	var m map[string][]string
	if err := json.Unmarshal(data, &m); err == nil {
		out := tags.New()
		for ns, v := range m {
			out.Add(ns, v...)
		}
		return out, nil
	}

	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		out := tags.New()
		for _, item := range list {
			ns, tag, ok := strings.Cut(item, ":")
			if !ok {
				ns, tag = "", item
			}
			out.Add(ns, tag)
		}
		return out, nil
	}

	return nil, errors.Format("sidecar: tags must be a string, object or list")
}

// Apply writes every present field onto g. Tags are merged.
func (m *Metadata) Apply(g *domain.Gallery) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&g.Title, m.Title)
	set(&g.Artist, m.Artist)
	set(&g.Type, m.Type)
	set(&g.Status, m.Status)
	set(&g.Language, m.Language)
	set(&g.Link, m.Link)
	if m.PubDate != nil {
		t := *m.PubDate
		g.PubDate = &t
	}
	if len(m.Tags) > 0 {
		g.Tags = g.Tags.Union(m.Tags)
	}
}

// Find looks for a sidecar for g: next to the gallery first, then in its
// first chapter. It returns nil and no error when there is none.
func Find(g *domain.Gallery) (*Metadata, error) {
	if g.IsArchive {
		return findInArchive(g)
	}

	dirs := []string{g.Path}
	if len(g.Chapters) > 0 && g.Chapters[0].Path != g.Path {
		dirs = append(dirs, g.Chapters[0].Path)
	}
	for _, dir := range dirs {
		f, err := os.Open(filepath.Join(dir, FileName))
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, errors.Wrapf(err, errors.CodeIO, "open sidecar in %s", dir)
		}
		m, err := Read(f)
		f.Close()
		return m, err
	}
	return nil, nil
}

func findInArchive(g *domain.Gallery) (*Metadata, error) {
	r, err := archive.Open(g.Path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var candidates []string
	if g.PathInArchive != "" {
		candidates = append(candidates, path.Join(g.PathInArchive, FileName))
	}
	candidates = append(candidates, FileName)
	if len(g.Chapters) > 0 {
		if dir := g.Chapters[0].ArchiveDir(g.Path); dir != "" {
			candidates = append(candidates, dir+FileName)
		}
	}

	for _, name := range candidates {
		if !r.Has(name) {
			continue
		}
		rc, err := r.Open(name)
		if err != nil {
			return nil, err
		}
		m, err := Read(rc)
		rc.Close()
		return m, err
	}
	return nil, nil
}
