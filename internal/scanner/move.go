package scanner

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/listenupapp/doujinshelf/internal/domain"
	"github.com/listenupapp/doujinshelf/internal/errors"
)

// addMoved persists g at its place under the library root and moves the
// source there, inside one store transaction. The gallery row exists only
// if the rename succeeded.
//
// Source and destination enter the transient ignore set before the rename
// and stay there for the filter's TTL, so watcher events caused by the move
// never reach ingestion. Galleries already under the root, and galleries
// that are a subfolder of a shared archive, are added in place.
func (s *Scanner) addMoved(ctx context.Context, g *domain.Gallery) (int64, error) {
	root := filepath.Clean(s.opts.LibraryRoot)
	src := filepath.Clean(g.Path)
	if g.PathInArchive != "" || isWithin(src, root) {
		return s.store.AddGallery(ctx, g, false)
	}

	dst := filepath.Join(root, filepath.Base(src))
	if _, err := os.Lstat(dst); err == nil {
		return 0, errors.IOf("%s: %s", ReasonDestinationUse, dst)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return 0, errors.Wrapf(err, errors.CodeIO, "create library root %s", root)
	}

	moved := g.Clone()
	relocate(moved, src, dst)

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return 0, err
	}
	id, err := tx.AddGallery(ctx, moved, false)
	if err != nil {
		_ = tx.Rollback()
		return 0, err
	}

	s.filter.AddTransient(src, dst)
	if err := os.Rename(src, dst); err != nil {
		_ = tx.Rollback()
		return 0, errors.Wrapf(err, errors.CodeIO, "move %s", src)
	}
	if err := tx.End(); err != nil {
		if undo := os.Rename(dst, src); undo != nil {
			s.logger.Error("failed to undo move", "from", dst, "to", src, "error", undo)
		}
		return 0, err
	}

	s.logger.Info("gallery moved into library", "from", src, "to", dst)
	*g = *moved
	return id, nil
}

// relocate rewrites g's paths from below src to below dst.
func relocate(g *domain.Gallery, src, dst string) {
	g.Path = dst
	for i := range g.Chapters {
		c := &g.Chapters[i]
		switch {
		case c.InArchive && filepath.Clean(c.Path) == src:
			c.Path = dst
		case !c.InArchive:
			if rel, err := filepath.Rel(src, c.Path); err == nil {
				c.Path = filepath.Join(dst, rel)
			}
		}
	}
}

func isWithin(p, root string) bool {
	rel, err := filepath.Rel(root, p)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
