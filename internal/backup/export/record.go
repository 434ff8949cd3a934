package export

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"time"

	"github.com/listenupapp/doujinshelf/internal/domain"
	"github.com/listenupapp/doujinshelf/internal/tags"
)

// Identifier fingerprints a gallery's first chapter: its page count plus
// the digests of the sampled pages. It encodes as
// {"pages": 5, "0": "<sha1>", "1": "<sha1>", ...}.
type Identifier struct {
	Pages   int
	Digests map[int]string
}

// MarshalJSON implements json.Marshaler.
func (id Identifier) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(id.Digests)+1)
	m["pages"] = id.Pages
	for idx, d := range id.Digests {
		m[strconv.Itoa(idx)] = d
	}
	return json.Marshal(m)
}

// UnmarshalJSON implements json.Unmarshaler.
func (id *Identifier) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	out := Identifier{Digests: make(map[int]string, len(raw))}
	for k, v := range raw {
		if k == "pages" {
			if err := json.Unmarshal(v, &out.Pages); err != nil {
				return fmt.Errorf("identifier pages: %w", err)
			}
			continue
		}
		idx, err := strconv.Atoi(k)
		if err != nil || idx < 0 {
			return fmt.Errorf("identifier key %q is not a page index", k)
		}
		var d string
		if err := json.Unmarshal(v, &d); err != nil {
			return fmt.Errorf("identifier page %d: %w", idx, err)
		}
		out.Digests[idx] = d
	}
	*id = out
	return nil
}

// Indices returns the sampled page indices in order.
func (id Identifier) Indices() []int {
	return slices.Sorted(maps.Keys(id.Digests))
}

// Record is one exported gallery.
type Record struct {
	Title      string     `json:"title"`
	Artist     string     `json:"artist"`
	Info       string     `json:"info"`
	Type       string     `json:"type"`
	Status     string     `json:"status"`
	Language   string     `json:"language"`
	Rating     int        `json:"rating"`
	PubDate    *time.Time `json:"pub_date,omitempty"`
	DateAdded  time.Time  `json:"date_added"`
	LastRead   *time.Time `json:"last_read,omitempty"`
	TimesRead  int        `json:"times_read"`
	Favorite   bool       `json:"fav"`
	Link       string     `json:"link"`
	Exed       bool       `json:"exed"`
	Path       string     `json:"path"`
	Tags       tags.Tags  `json:"tags"`
	Identifier Identifier `json:"identifier"`
}

// NewRecord copies the exported fields of g.
func NewRecord(g *domain.Gallery, id Identifier) Record {
	return Record{
		Title:      g.Title,
		Artist:     g.Artist,
		Info:       g.Info,
		Type:       g.Type,
		Status:     g.Status,
		Language:   g.Language,
		Rating:     g.Rating,
		PubDate:    g.PubDate,
		DateAdded:  g.DateAdded,
		LastRead:   g.LastRead,
		TimesRead:  g.TimesRead,
		Favorite:   g.Favorite,
		Link:       g.Link,
		Exed:       g.Exed,
		Path:       g.Path,
		Tags:       g.Tags,
		Identifier: id,
	}
}
