package store

import (
	"time"

	"github.com/listenupapp/doujinshelf/internal/domain"
	"github.com/listenupapp/doujinshelf/internal/tags"
)

// Patch is a partial gallery update. Nil fields are left untouched.
// ReplaceTags swaps the whole tag set; AddTags is merged into it.
type Patch struct {
	Title         *string
	Artist        *string
	Info          *string
	Type          *string
	Status        *string
	Language      *string
	Link          *string
	Rating        *int
	TimesRead     *int
	PubDate       *time.Time
	LastRead      *time.Time
	Favorite      *bool
	Exed          *bool
	View          *domain.View
	PathInArchive *string
	ReplaceTags   tags.Tags
	AddTags       tags.Tags
}

// Ptr returns a pointer to v. Handy for building patches.
func Ptr[T any](v T) *T {
	return &v
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Title == nil && p.Artist == nil && p.Info == nil && p.Type == nil &&
		p.Status == nil && p.Language == nil && p.Link == nil && p.Rating == nil &&
		p.TimesRead == nil && p.PubDate == nil && p.LastRead == nil && p.Favorite == nil &&
		p.Exed == nil && p.View == nil && p.PathInArchive == nil &&
		p.ReplaceTags == nil && len(p.AddTags) == 0
}

// Apply writes the patch onto g.
func (p Patch) Apply(g *domain.Gallery) {
	setString(&g.Title, p.Title)
	setString(&g.Artist, p.Artist)
	setString(&g.Info, p.Info)
	setString(&g.Type, p.Type)
	setString(&g.Status, p.Status)
	setString(&g.Language, p.Language)
	setString(&g.Link, p.Link)
	setString(&g.PathInArchive, p.PathInArchive)
	if p.Rating != nil {
		g.Rating = *p.Rating
	}
	if p.TimesRead != nil {
		g.TimesRead = *p.TimesRead
	}
	if p.PubDate != nil {
		t := *p.PubDate
		g.PubDate = &t
	}
	if p.LastRead != nil {
		t := *p.LastRead
		g.LastRead = &t
	}
	if p.Favorite != nil {
		g.Favorite = *p.Favorite
	}
	if p.Exed != nil {
		g.Exed = *p.Exed
	}
	if p.View != nil {
		g.View = *p.View
	}
	if p.ReplaceTags != nil {
		g.Tags = p.ReplaceTags.Clone()
	}
	if len(p.AddTags) > 0 {
		g.Tags = g.Tags.Union(p.AddTags)
	}
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}
