package remote

import (
	"time"

	"github.com/listenupapp/doujinshelf/internal/domain"
	"github.com/listenupapp/doujinshelf/internal/store"
)

// Apply returns a copy of g with m applied. Non-empty scalar fields of m
// overwrite g's; empty ones never clear anything. Tags are merged, or
// swapped wholesale when replace is set.
func Apply(g *domain.Gallery, m *Metadata, replace bool) *domain.Gallery {
	out := g.Clone()
	Patch(m, replace).Apply(out)
	return out
}

// Patch expresses m as a store patch with the same semantics as Apply.
func Patch(m *Metadata, replace bool) store.Patch {
	var p store.Patch
	p.Title = nonEmpty(m.Title)
	p.Artist = nonEmpty(m.Artist)
	p.Type = nonEmpty(m.Type)
	p.Status = nonEmpty(m.Status)
	p.Language = nonEmpty(m.Language)
	p.Link = nonEmpty(m.Link)
	if m.PubDate != nil {
		t := m.PubDate.UTC().Truncate(time.Second)
		p.PubDate = &t
	}
	switch {
	case replace && m.Tags != nil:
		p.ReplaceTags = m.Tags.Clone()
	case len(m.Tags) > 0:
		p.AddTags = m.Tags.Clone()
	}
	return p
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
