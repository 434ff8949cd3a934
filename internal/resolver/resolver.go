// Package resolver fetches metadata for galleries from remote sources.
//
// For each gallery the resolver finds a source URL (given, stored, or by
// searching a chapter-0 page digest), queues it, and applies fetched
// metadata in batches. Galleries with several hits are settled by a Picker
// after the rest. Galleries that fail on the primary source are retried on
// the fallback source. Only one resolve runs at a time per process, and
// with a lock file, per machine.
package resolver

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/listenupapp/doujinshelf/internal/domain"
	"github.com/listenupapp/doujinshelf/internal/errors"
	"github.com/listenupapp/doujinshelf/internal/remote"
	"github.com/listenupapp/doujinshelf/internal/store"
)

// Store is the part of the gallery store the resolver writes to.
type Store interface {
	ModifyGallery(ctx context.Context, id int64, patch store.Patch) (*domain.Gallery, error)
}

// Hasher provides chapter digests.
type Hasher interface {
	Ensure(ctx context.Context, g *domain.Gallery, chapter int) (map[int]string, error)
}

// Options configures a Resolver.
type Options struct {
	// AlwaysPickFirst adopts the first hit instead of asking.
	AlwaysPickFirst bool
	// ReplaceMetadata replaces tag sets instead of merging them.
	ReplaceMetadata bool
	// FallbackInteractive lets the Picker settle multi-hits from the
	// fallback source; otherwise the fallback takes the first hit.
	FallbackInteractive bool
	// LockPath names a lock file shared by every process using the same
	// library. Empty disables the cross-process lock.
	LockPath string
}

// Resolver runs metadata resolution.
type Resolver struct {
	store    Store
	hasher   Hasher
	primary  remote.Adapter
	fallback remote.Adapter
	picker   Picker
	opts     Options
	logger   *slog.Logger

	busy atomic.Bool
	lock *flock.Flock
}

// New creates a resolver. fallback and picker may be nil; without a
// picker the first hit is always taken.
func New(st Store, hasher Hasher, primary, fallback remote.Adapter, picker Picker, opts Options, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	r := &Resolver{
		store:    st,
		hasher:   hasher,
		primary:  primary,
		fallback: fallback,
		picker:   picker,
		opts:     opts,
		logger:   logger,
	}
	if opts.LockPath != "" {
		r.lock = flock.New(opts.LockPath)
	}
	return r
}

// Busy reports whether a resolve is running in this process.
func (r *Resolver) Busy() bool {
	return r.busy.Load()
}

// acquire takes the resolver lock or fails with ErrResolverBusy.
func (r *Resolver) acquire() (release func(), err error) {
	if !r.busy.CompareAndSwap(false, true) {
		return nil, errors.ErrResolverBusy
	}
	if r.lock == nil {
		return func() { r.busy.Store(false) }, nil
	}

	ok, err := r.lock.TryLock()
	if err != nil {
		r.busy.Store(false)
		return nil, errors.Wrapf(err, errors.CodeIO, "acquire lock %s", r.opts.LockPath)
	}
	if !ok {
		r.busy.Store(false)
		return nil, errors.Wrap(errors.ErrResolverBusy, errors.CodeResolverBusy, "another process is fetching metadata")
	}
	return func() {
		if err := r.lock.Unlock(); err != nil {
			r.logger.Warn("failed to release resolver lock", "error", err)
		}
		r.busy.Store(false)
	}, nil
}

// Resolve resolves items in order. onEvent may be nil. The returned error
// is ErrResolverBusy when another resolve holds the lock, or a
// cancellation; per-gallery problems are in the report.
func (r *Resolver) Resolve(ctx context.Context, items []Item, onEvent func(Event)) (*Report, error) {
	release, err := r.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	if onEvent == nil {
		onEvent = func(Event) {}
	}
	report := &Report{RunID: uuid.NewString()}
	log := r.logger.With("run_id", report.RunID)
	log.Info("metadata fetch started", "galleries", len(items), "source", r.primary.Name())

	finish := func(err error) (*Report, error) {
		onEvent(Event{Type: EventFinished, Message: MsgFinished, Report: report, Err: err})
		log.Info("metadata fetch finished",
			"applied", len(report.Applied),
			"failed", len(report.Failures),
			"skipped", len(report.Skipped),
			"error", err,
		)
		return report, err
	}

	primary := r.newPass(r.primary, r.picker, onEvent, log)
	err = primary.run(ctx, items)
	report.Applied = append(report.Applied, primary.applied...)
	report.Skipped = append(report.Skipped, primary.skipped...)
	if err != nil {
		report.Failures = primary.failures
		return finish(err)
	}

	retry, kept := retryable(primary.failures)
	if len(retry) == 0 || r.fallback == nil {
		report.Failures = primary.failures
		return finish(nil)
	}

	log.Info("retrying with fallback source", "source", r.fallback.Name(), "galleries", len(retry))
	var picker Picker = firstPicker{}
	if r.opts.FallbackInteractive {
		picker = r.picker
	}
	second := r.newPass(r.fallback, picker, onEvent, log)
	err = second.run(ctx, forFallback(retry, r.fallback))
	report.Applied = append(report.Applied, second.applied...)
	report.Skipped = append(report.Skipped, second.skipped...)
	report.Failures = append(kept, second.failures...)
	return finish(err)
}

// retryable splits failures into those worth another source and those
// that would fail the same way anywhere.
func retryable(failures []Failure) (retry []Failure, kept []Failure) {
	for _, f := range failures {
		if f.Reason == ReasonDeleted {
			kept = append(kept, f)
			continue
		}
		retry = append(retry, f)
	}
	return retry, kept
}

// forFallback rebuilds items for the fallback source. Stored links it
// cannot read are ignored so the gallery is searched by digest instead.
func forFallback(failures []Failure, fallback remote.Adapter) []Item {
	items := make([]Item, len(failures))
	for i, f := range failures {
		items[i] = Item{Gallery: f.Gallery}
		if f.URL != "" && fallback.Pattern().MatchString(f.URL) {
			items[i].URL = f.URL
		}
	}
	return items
}
