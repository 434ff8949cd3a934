package backupimport

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/listenupapp/doujinshelf/internal/backup/export"
	"github.com/listenupapp/doujinshelf/internal/backup/stream"
	"github.com/listenupapp/doujinshelf/internal/domain"
	"github.com/listenupapp/doujinshelf/internal/errors"
	"github.com/listenupapp/doujinshelf/internal/store"
)

// Store is the part of the gallery store the importer needs.
type Store interface {
	ListGalleries(ctx context.Context, filter store.GalleryFilter) ([]*domain.Gallery, error)
	Begin(ctx context.Context) (store.Tx, error)
}

// Hasher provides the sampled digests of a chapter.
type Hasher interface {
	Ensure(ctx context.Context, g *domain.Gallery, chapter int) (map[int]string, error)
}

// Importer applies export files.
type Importer struct {
	store  Store
	hasher Hasher
	logger *slog.Logger
}

// New creates an Importer.
func New(s Store, hasher Hasher, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Importer{store: s, hasher: hasher, logger: logger}
}

// Import applies the export file at path.
func (i *Importer) Import(ctx context.Context, path string, opts Options) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeIO, "open import file %s", path)
	}
	defer f.Close()
	return i.ImportFrom(ctx, f, opts)
}

// ImportFrom applies an export object read from r. Records that fail to
// decode or match nothing are reported, not fatal. All updates are written
// in one transaction.
func (i *Importer) ImportFrom(ctx context.Context, r io.Reader, opts Options) (*Result, error) {
	start := time.Now()
	if !opts.MergeStrategy.Valid() {
		return nil, errors.Validation("unknown merge strategy " + string(opts.MergeStrategy))
	}

	res := &Result{}
	ix := index{}
	var all []*candidate
	for e, err := range stream.NewReader[export.Record](r).All() {
		if err != nil {
			if e.Key == "" {
				return nil, errors.Wrap(err, errors.CodeFormat, "malformed import file")
			}
			res.Errors = append(res.Errors, Error{Key: e.Key, Error: err.Error()})
			continue
		}
		res.Records++
		c := &candidate{key: e.Key, record: e.Value}
		all = append(all, c)
		if len(c.record.Identifier.Digests) == 0 {
			continue
		}
		ix.add(c)
	}

	galleries, err := i.store.ListGalleries(ctx, store.GalleryFilter{})
	if err != nil {
		return nil, err
	}
	pairs, err := i.match(ctx, galleries, ix, res)
	if err != nil {
		return nil, err
	}
	res.Matched = len(pairs)
	for _, c := range all {
		if !c.matched {
			res.Unmatched = append(res.Unmatched, c.key)
		}
	}

	if !opts.DryRun && len(pairs) > 0 {
		if err := i.apply(ctx, pairs, opts.MergeStrategy, res); err != nil {
			return nil, err
		}
	}

	res.Duration = time.Since(start)
	i.logger.Info("import complete",
		"records", res.Records,
		"matched", res.Matched,
		"updated", res.Updated,
		"unmatched", len(res.Unmatched),
		"errors", len(res.Errors),
		"dry_run", opts.DryRun)
	return res, nil
}

func (i *Importer) apply(ctx context.Context, pairs []pairing, strategy MergeStrategy, res *Result) error {
	tx, err := i.store.Begin(ctx)
	if err != nil {
		return err
	}
	for _, p := range pairs {
		if err := ctx.Err(); err != nil {
			_ = tx.Rollback()
			return errors.Cancelled(err)
		}
		patch := Patch(p.gallery, p.candidate.record, strategy)
		if patch.Empty() {
			continue
		}
		if _, err := tx.ModifyGallery(ctx, p.gallery.ID, patch); err != nil {
			if errors.KindOf(err) == errors.KindFormat || errors.Is(err, errors.ErrNotFound) {
				res.Errors = append(res.Errors, Error{Key: p.candidate.key, Error: errors.UserMessage(err)})
				continue
			}
			_ = tx.Rollback()
			return err
		}
		res.Updated++
	}
	return tx.End()
}

// Patch builds the update that brings g in line with rec. With
// MergeKeepLocal only empty local fields are filled. Tags are unioned
// either way.
func Patch(g *domain.Gallery, rec export.Record, strategy MergeStrategy) store.Patch {
	keepLocal := strategy == MergeKeepLocal
	var p store.Patch

	str := func(local, imported string) *string {
		if imported == local || keepLocal && local != "" {
			return nil
		}
		return store.Ptr(imported)
	}
	p.Title = str(g.Title, rec.Title)
	if rec.Title == "" {
		p.Title = nil
	}
	p.Artist = str(g.Artist, rec.Artist)
	p.Info = str(g.Info, rec.Info)
	p.Type = str(g.Type, rec.Type)
	p.Status = str(g.Status, rec.Status)
	p.Language = str(g.Language, rec.Language)
	p.Link = str(g.Link, rec.Link)

	if rec.Rating != g.Rating && !(keepLocal && g.Rating != 0) {
		p.Rating = store.Ptr(rec.Rating)
	}
	if rec.TimesRead != g.TimesRead && !(keepLocal && g.TimesRead != 0) {
		p.TimesRead = store.Ptr(rec.TimesRead)
	}
	if rec.Favorite != g.Favorite && !(keepLocal && g.Favorite) {
		p.Favorite = store.Ptr(rec.Favorite)
	}
	if rec.Exed != g.Exed && !(keepLocal && g.Exed) {
		p.Exed = store.Ptr(rec.Exed)
	}
	if rec.PubDate != nil && (g.PubDate == nil || !keepLocal && !g.PubDate.Equal(*rec.PubDate)) {
		p.PubDate = store.Ptr(rec.PubDate.UTC())
	}
	if rec.LastRead != nil && (g.LastRead == nil || !keepLocal && !g.LastRead.Equal(*rec.LastRead)) {
		p.LastRead = store.Ptr(rec.LastRead.UTC())
	}

	if rec.Tags.Len() > 0 && !g.Tags.Union(rec.Tags).Equal(g.Tags) {
		p.AddTags = rec.Tags.Clone()
	}
	return p
}
