// Package duplicates finds galleries that are the same work stored twice.
//
// Simple mode pairs galleries whose normalized titles or normalized paths
// are equal. Hash mode pairs galleries whose chapter-0 sampled page digests
// are equal page for page.
package duplicates

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/listenupapp/doujinshelf/internal/domain"
	"github.com/listenupapp/doujinshelf/internal/errors"
	"github.com/listenupapp/doujinshelf/internal/hashing"
	"github.com/listenupapp/doujinshelf/internal/store"
)

// Mode selects the comparison.
type Mode int

const (
	// ModeSimple compares titles and paths.
	ModeSimple Mode = iota
	// ModeHash compares stored chapter-0 sampled digests.
	ModeHash
)

func (m Mode) String() string {
	if m == ModeHash {
		return "hash"
	}
	return "simple"
}

// ParseMode maps "simple" and "hash" to a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "simple":
		return ModeSimple, nil
	case "hash", "advanced":
		return ModeHash, nil
	default:
		return ModeSimple, errors.Validation("unknown duplicate mode " + strconv.Quote(s))
	}
}

// Pair is two galleries judged duplicates. First.ID < Second.ID.
type Pair struct {
	First  *domain.Gallery
	Second *domain.Gallery
	Reason string
}

// EventType distinguishes detector events.
type EventType int

const (
	EventPair EventType = iota
	EventFinished
)

// Event is emitted for every pair found and once, with the pair count,
// when the run ends.
type Event struct {
	Type  EventType
	Pair  Pair
	Total int
}

// Match reasons.
const (
	ReasonTitle = "title"
	ReasonPath  = "path"
	ReasonHash  = "hash"
)

// Source is the read side of the store the detector needs.
type Source interface {
	ListGalleries(ctx context.Context, filter store.GalleryFilter) ([]*domain.Gallery, error)
	ChapterHashes(ctx context.Context, chapter int) (map[int64]map[int]string, error)
}

// Hasher fills in missing chapter-0 digests before a hash-mode run.
type Hasher interface {
	EnsureAll(ctx context.Context, galleries []*domain.Gallery, progress func(done, total int)) ([]hashing.Result, error)
}

// Detector finds duplicate pairs.
type Detector struct {
	source Source
	hasher Hasher
	logger *slog.Logger
}

// New creates a detector. hasher may be nil, in which case hash mode only
// sees digests already in the store.
func New(source Source, hasher Hasher, logger *slog.Logger) *Detector {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Detector{source: source, hasher: hasher, logger: logger}
}

// Find runs one detection pass over every gallery in the store. onEvent
// may be nil. Pairs are ordered by (First.ID, Second.ID) and each pair is
// reported once.
func (d *Detector) Find(ctx context.Context, mode Mode, onEvent func(Event)) ([]Pair, error) {
	if onEvent == nil {
		onEvent = func(Event) {}
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.Cancelled(err)
	}

	galleries, err := d.source.ListGalleries(ctx, store.GalleryFilter{})
	if err != nil {
		return nil, err
	}
	slices.SortFunc(galleries, func(a, b *domain.Gallery) int { return cmp.Compare(a.ID, b.ID) })

	var pairs []Pair
	switch mode {
	case ModeHash:
		pairs, err = d.byHash(ctx, galleries)
	default:
		pairs, err = bySimple(ctx, galleries)
	}
	if err != nil {
		return nil, err
	}

	for _, p := range pairs {
		onEvent(Event{Type: EventPair, Pair: p})
	}
	onEvent(Event{Type: EventFinished, Total: len(pairs)})
	d.logger.Info("duplicate scan complete", "mode", mode.String(), "galleries", len(galleries), "pairs", len(pairs))
	return pairs, nil
}

// index maps a key to the galleries that produced it, in id order.
type index map[string][]*domain.Gallery

func (ix index) add(key string, g *domain.Gallery) {
	if key != "" {
		ix[key] = append(ix[key], g)
	}
}

// collector accumulates pairs, keeping the first reason seen for each.
type collector struct {
	seen  map[[2]int64]bool
	pairs []Pair
}

func newCollector() *collector {
	return &collector{seen: make(map[[2]int64]bool)}
}

func (c *collector) addGroups(ix index, reason string) {
	for _, group := range ix {
		for i := 0; i < len(group); i++ {
			for j := i + 1; j < len(group); j++ {
				key := [2]int64{group[i].ID, group[j].ID}
				if c.seen[key] {
					continue
				}
				c.seen[key] = true
				c.pairs = append(c.pairs, Pair{First: group[i], Second: group[j], Reason: reason})
			}
		}
	}
}

func (c *collector) sorted() []Pair {
	slices.SortFunc(c.pairs, func(a, b Pair) int {
		if n := cmp.Compare(a.First.ID, b.First.ID); n != 0 {
			return n
		}
		return cmp.Compare(a.Second.ID, b.Second.ID)
	})
	return c.pairs
}

// bySimple pairs galleries with equal title keys or equal path keys. Two
// galleries read from different folders of one archive have different keys.
func bySimple(ctx context.Context, galleries []*domain.Gallery) ([]Pair, error) {
	byTitle := make(index)
	byPath := make(index)
	for _, g := range galleries {
		if err := ctx.Err(); err != nil {
			return nil, errors.Cancelled(err)
		}
		byTitle.add(domain.TitleKey(g.Title), g)
		byPath.add(pathKey(g), g)
	}

	c := newCollector()
	c.addGroups(byTitle, ReasonTitle)
	c.addGroups(byPath, ReasonPath)
	return c.sorted(), nil
}

func pathKey(g *domain.Gallery) string {
	key := domain.PathKey(g.Path)
	if key == "" || g.PathInArchive == "" {
		return key
	}
	return key + "!" + strings.ToLower(g.PathInArchive)
}

// byHash pairs galleries whose chapter-0 digests agree on every sampled
// page. Galleries without digests never pair.
func (d *Detector) byHash(ctx context.Context, galleries []*domain.Gallery) ([]Pair, error) {
	if d.hasher != nil {
		if _, err := d.hasher.EnsureAll(ctx, galleries, nil); err != nil {
			return nil, err
		}
	}

	digests, err := d.source.ChapterHashes(ctx, 0)
	if err != nil {
		return nil, err
	}

	byDigest := make(index)
	for _, g := range galleries {
		if err := ctx.Err(); err != nil {
			return nil, errors.Cancelled(err)
		}
		byDigest.add(fingerprint(digests[g.ID]), g)
	}

	c := newCollector()
	c.addGroups(byDigest, ReasonHash)
	return c.sorted(), nil
}

// fingerprint encodes a page->digest map canonically, or "" when empty.
func fingerprint(pages map[int]string) string {
	if len(pages) == 0 {
		return ""
	}
	keys := make([]int, 0, len(pages))
	for p := range pages {
		keys = append(keys, p)
	}
	slices.Sort(keys)

	var b strings.Builder
	for _, p := range keys {
		b.WriteString(strconv.Itoa(p))
		b.WriteByte(':')
		b.WriteString(pages[p])
		b.WriteByte(';')
	}
	return b.String()
}

// Modifier is the store method Mark needs.
type Modifier interface {
	ModifyGallery(ctx context.Context, id int64, patch store.Patch) (*domain.Gallery, error)
}

// Mark moves the second gallery of every pair into the duplicate view and
// returns how many galleries it moved.
func Mark(ctx context.Context, st Modifier, pairs []Pair) (int, error) {
	view := domain.ViewDuplicate
	marked := make(map[int64]bool)
	for _, p := range pairs {
		if marked[p.Second.ID] {
			continue
		}
		if _, err := st.ModifyGallery(ctx, p.Second.ID, store.Patch{View: &view}); err != nil {
			return len(marked), err
		}
		marked[p.Second.ID] = true
	}
	return len(marked), nil
}
