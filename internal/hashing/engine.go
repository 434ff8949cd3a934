package hashing

import (
	"context"
	"log/slog"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/listenupapp/doujinshelf/internal/archive"
	"github.com/listenupapp/doujinshelf/internal/domain"
	"github.com/listenupapp/doujinshelf/internal/errors"
	"github.com/listenupapp/doujinshelf/internal/pages"
	"github.com/listenupapp/doujinshelf/internal/scratch"
)

// HashStore is the part of the gallery store the engine needs.
type HashStore interface {
	GetHashes(ctx context.Context, galleryID int64, chapter int) (map[int]string, error)
	UpsertHashes(ctx context.Context, galleryID int64, chapter int, hashes []domain.PageHash) error
}

// Options configures an Engine.
type Options struct {
	// SampleSize is K in the sampling policy.
	SampleSize int
	// Workers bounds how many chapters are hashed at once.
	Workers int
}

// Engine computes and caches sampled page digests.
type Engine struct {
	store   HashStore
	scratch *scratch.Manager
	opts    Options
	logger  *slog.Logger
}

// NewEngine creates an engine. store may be nil when digests are only
// computed, never cached.
func NewEngine(store HashStore, sm *scratch.Manager, opts Options, logger *slog.Logger) *Engine {
	if opts.SampleSize < 1 {
		opts.SampleSize = DefaultSampleSize
	}
	if opts.Workers < 1 {
		opts.Workers = runtime.NumCPU()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Engine{store: store, scratch: sm, opts: opts, logger: logger}
}

// SampleSize returns K.
func (e *Engine) SampleSize() int {
	return e.opts.SampleSize
}

// Compute digests the sampled pages of one chapter without touching the
// store. The chapter's recorded page count must match what is on disk,
// otherwise ErrPageCountMismatch is returned and the caller reconciles.
func (e *Engine) Compute(ctx context.Context, g *domain.Gallery, chapter int) ([]domain.PageHash, error) {
	c, ok := g.Chapter(chapter)
	if !ok {
		return nil, errors.Consistencyf("gallery %d has no chapter %d", g.ID, chapter)
	}

	if !c.InArchive {
		names, err := pages.FromDir(c.Path)
		if err != nil {
			return nil, err
		}
		if err := checkCount(g, c, len(names)); err != nil {
			return nil, err
		}
		return e.digestEach(ctx, SampleIndices(len(names), e.opts.SampleSize), func(i int) (string, error) {
			return DigestFile(names[i])
		})
	}

	r, err := archive.Open(g.Path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	names := pages.FromArchive(r, c.ArchiveDir(g.Path))
	if err := checkCount(g, c, len(names)); err != nil {
		return nil, err
	}

	dir, release, err := e.scratch.Acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	return e.digestEach(ctx, SampleIndices(len(names), e.opts.SampleSize), func(i int) (string, error) {
		path, err := r.Extract(names[i], dir)
		if err != nil {
			return "", err
		}
		return DigestFile(path)
	})
}

func checkCount(g *domain.Gallery, c domain.Chapter, onDisk int) error {
	if onDisk == c.Pages {
		return nil
	}
	return errors.ErrPageCountMismatch.
		WithDetails(map[string]int{"recorded": c.Pages, "on_disk": onDisk}).
		WithCause(errors.Consistencyf("gallery %d chapter %d: recorded %d pages, found %d", g.ID, c.Number, c.Pages, onDisk))
}

func (e *Engine) digestEach(ctx context.Context, indices []int, digest func(int) (string, error)) ([]domain.PageHash, error) {
	out := make([]domain.PageHash, 0, len(indices))
	for _, i := range indices {
		if err := ctx.Err(); err != nil {
			return nil, errors.Cancelled(err)
		}
		sum, err := digest(i)
		if err != nil {
			return nil, err
		}
		out = append(out, domain.PageHash{Page: i, Digest: sum})
	}
	return out, nil
}

// Generate computes the sampled digests of a chapter and stores them.
func (e *Engine) Generate(ctx context.Context, g *domain.Gallery, chapter int) ([]domain.PageHash, error) {
	hashes, err := e.Compute(ctx, g, chapter)
	if err != nil {
		return nil, err
	}
	if e.store != nil {
		if err := e.store.UpsertHashes(ctx, g.ID, chapter, hashes); err != nil {
			return nil, err
		}
	}
	e.logger.Debug("hashed chapter", "gallery_id", g.ID, "chapter", chapter, "pages", len(hashes))
	return hashes, nil
}

// Ensure returns the stored digests of a chapter, generating them first
// when any sampled page is missing.
func (e *Engine) Ensure(ctx context.Context, g *domain.Gallery, chapter int) (map[int]string, error) {
	c, ok := g.Chapter(chapter)
	if !ok {
		return nil, errors.Consistencyf("gallery %d has no chapter %d", g.ID, chapter)
	}
	if e.store != nil {
		stored, err := e.store.GetHashes(ctx, g.ID, chapter)
		if err != nil {
			return nil, err
		}
		if complete(stored, SampleIndices(c.Pages, e.opts.SampleSize)) {
			return stored, nil
		}
	}

	hashes, err := e.Generate(ctx, g, chapter)
	if err != nil {
		return nil, err
	}
	out := make(map[int]string, len(hashes))
	for _, h := range hashes {
		out[h.Page] = h.Digest
	}
	return out, nil
}

func complete(stored map[int]string, sample []int) bool {
	if len(sample) == 0 {
		return false
	}
	for _, i := range sample {
		if _, ok := stored[i]; !ok {
			return false
		}
	}
	return true
}

// Result is the outcome of hashing one gallery in a batch.
type Result struct {
	Gallery *domain.Gallery
	Hashes  map[int]string
	Err     error
}

// EnsureAll runs Ensure on chapter 0 of every gallery, up to Workers at a
// time. Per-gallery failures are reported in the results; only
// cancellation fails the whole call. progress, if set, is called after each
// gallery with the number done so far; calls never overlap.
func (e *Engine) EnsureAll(ctx context.Context, galleries []*domain.Gallery, progress func(done, total int)) ([]Result, error) {
	results := make([]Result, len(galleries))

	var (
		mu   sync.Mutex
		done int
	)
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(e.opts.Workers)

	for i, g := range galleries {
		if egCtx.Err() != nil {
			break
		}
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return errors.Cancelled(err)
			}
			hashes, err := e.Ensure(egCtx, g, 0)
			if err != nil && errors.CodeOf(err) == errors.CodeCancelled {
				return err
			}
			if err != nil {
				e.logger.Warn("hash failed", "gallery_id", g.ID, "title", g.Title, "error", err)
			}
			results[i] = Result{Gallery: g, Hashes: hashes, Err: err}

			mu.Lock()
			done++
			if progress != nil {
				progress(done, len(galleries))
			}
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.Cancelled(err)
	}
	return results, nil
}
