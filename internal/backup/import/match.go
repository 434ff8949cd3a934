package backupimport

import (
	"context"
	"strconv"

	"github.com/listenupapp/doujinshelf/internal/backup/export"
	"github.com/listenupapp/doujinshelf/internal/domain"
	"github.com/listenupapp/doujinshelf/internal/errors"
)

// candidate is an imported record waiting for its gallery.
type candidate struct {
	key     string
	record  export.Record
	matched bool
}

// index groups records by first-chapter page count so only galleries of a
// plausible size get hashed.
type index map[int][]*candidate

func (ix index) add(c *candidate) {
	p := c.record.Identifier.Pages
	ix[p] = append(ix[p], c)
}

// matches reports whether every locally sampled digest agrees with the
// record's identifier.
func matches(local map[int]string, id export.Identifier) bool {
	if len(local) == 0 {
		return false
	}
	for idx, d := range local {
		if id.Digests[idx] != d {
			return false
		}
	}
	return true
}

// pairing is one gallery matched to one record.
type pairing struct {
	gallery   *domain.Gallery
	candidate *candidate
}

// match hashes every gallery whose first chapter has a page count some
// record carries, and pairs it with the first record whose identifier
// agrees. One record may pair with several galleries.
func (i *Importer) match(ctx context.Context, galleries []*domain.Gallery, ix index, res *Result) ([]pairing, error) {
	var out []pairing
	for _, g := range galleries {
		if err := ctx.Err(); err != nil {
			return nil, errors.Cancelled(err)
		}
		c, ok := g.Chapter(0)
		if !ok || len(ix[c.Pages]) == 0 {
			continue
		}

		local, err := i.hasher.Ensure(ctx, g, 0)
		if err != nil {
			if errors.KindOf(err) == errors.KindCancellation {
				return nil, errors.Cancelled(err)
			}
			i.logger.Warn("could not hash gallery for import", "gallery_id", g.ID, "error", err)
			res.Errors = append(res.Errors, Error{Key: strconv.FormatInt(g.ID, 10), Error: errors.UserMessage(err)})
			continue
		}

		for _, cand := range ix[c.Pages] {
			if matches(local, cand.record.Identifier) {
				cand.matched = true
				out = append(out, pairing{gallery: g, candidate: cand})
				break
			}
		}
	}
	return out, nil
}
