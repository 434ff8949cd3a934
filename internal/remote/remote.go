// Package remote defines the contract every metadata source implements and
// the plumbing they share: a rate-limited HTTP client with a persisted
// session, a URL registry, and the rules for applying fetched metadata to a
// gallery.
package remote

import (
	"context"
	"regexp"
	"time"

	"github.com/listenupapp/doujinshelf/internal/tags"
)

// Candidate is one search hit.
type Candidate struct {
	URL   string `json:"url"`
	Title string `json:"title"`
	Thumb string `json:"thumb,omitempty"`
}

// Metadata is what a source knows about one gallery URL.
type Metadata struct {
	Title    string
	Artist   string
	Tags     tags.Tags
	PubDate  *time.Time
	Type     string
	Status   string
	Language string
	Link     string
}

// Credentials are source-specific login values, for example the
// ipb_member_id and ipb_pass_hash cookies.
type Credentials map[string]string

// Adapter is one remote source.
type Adapter interface {
	// Name identifies the adapter in config, logs and session storage.
	Name() string
	// Pattern matches the gallery URLs this adapter understands.
	Pattern() *regexp.Regexp
	// BatchSize is the most URLs one FetchMetadata call accepts.
	BatchSize() int

	Login(ctx context.Context, creds Credentials) (Session, error)
	CheckLogin(ctx context.Context) (bool, error)
	// Search looks up a page digest or a gallery URL.
	Search(ctx context.Context, query string) ([]Candidate, error)
	// FetchMetadata resolves up to BatchSize URLs. URLs the source does
	// not know are missing from the result.
	FetchMetadata(ctx context.Context, urls []string) (map[string]*Metadata, error)
}
