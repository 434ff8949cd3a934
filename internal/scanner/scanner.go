// Package scanner turns user-supplied paths into persisted galleries.
//
// A scan discovers candidates under a root, runs each through the ignore
// filter and the classifier, builds galleries from folder names and sidecar
// files, optionally moves them into the managed library, and hands them to
// the store. Progress is reported as a stream of events.
package scanner

import (
	"context"
	"io/fs"
	"log/slog"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/listenupapp/doujinshelf/internal/archive"
	"github.com/listenupapp/doujinshelf/internal/classify"
	"github.com/listenupapp/doujinshelf/internal/domain"
	"github.com/listenupapp/doujinshelf/internal/errors"
	"github.com/listenupapp/doujinshelf/internal/ignore"
	"github.com/listenupapp/doujinshelf/internal/logger"
	"github.com/listenupapp/doujinshelf/internal/sidecar"
	"github.com/listenupapp/doujinshelf/internal/store"
	"github.com/listenupapp/doujinshelf/internal/tags"
	"github.com/listenupapp/doujinshelf/internal/title"
)

// UnknownArtist is used when a name carries no artist bracket.
const UnknownArtist = "Unknown"

// GalleryStore is the part of the store ingestion writes to.
type GalleryStore interface {
	AddGallery(ctx context.Context, g *domain.Gallery, force bool) (int64, error)
	Begin(ctx context.Context) (store.Tx, error)
}

// Defaults fill fields a folder name cannot provide.
type Defaults struct {
	Language string
	Type     string
	Status   string
	Rating   int
}

// Options configures a Scanner.
type Options struct {
	Recursive          bool
	SubfolderAsGallery bool
	Defaults           Defaults
	// MoveImported moves each new gallery below LibraryRoot.
	MoveImported bool
	LibraryRoot  string
}

// Scanner orchestrates ingestion.
type Scanner struct {
	store  GalleryStore
	filter *ignore.Filter
	opts   Options
	logger *slog.Logger

	// readDir replaces os.ReadDir during classification when set.
	readDir func(string) ([]fs.DirEntry, error)
}

// NewScanner creates a new scanner instance. A nil filter ignores nothing.
func NewScanner(st GalleryStore, filter *ignore.Filter, opts Options, log *slog.Logger) *Scanner {
	if filter == nil {
		filter = ignore.New(ignore.Options{})
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Scanner{store: st, filter: filter, opts: opts, logger: log}
}

// ScanOptions configures one run.
type ScanOptions struct {
	// OnEvent receives every event in order. May be nil.
	OnEvent func(Event)
	// OnProgress receives phase and counter snapshots. May be nil.
	OnProgress func(Progress)
}

func (s *Scanner) policy() classify.Policy {
	return classify.Policy{
		Recursive:          s.opts.Recursive,
		SubfolderAsGallery: s.opts.SubfolderAsGallery,
		Skip:               s.filter.Ignored,
		ReadDir:            s.readDir,
	}
}

// Scan ingests everything under root. An error is returned only when the
// root itself cannot be read or the scan is cancelled; per-candidate
// failures become EventSkipped.
func (s *Scanner) Scan(ctx context.Context, root string, opts ScanOptions) (*ScanResult, error) {
	run := s.newRun(opts)
	run.tracker.SetPhase(PhaseDiscovering)

	root = filepath.Clean(root)
	if reason := s.filter.Reason(root, !archive.IsArchive(root)); reason != "" {
		run.skip(root, reason, nil)
		return run.finish(nil), nil
	}

	s.logger.Info("starting scan", "path", root)
	candidates, err := classify.Discover(root, s.policy())
	if err != nil {
		run.finish(err)
		return nil, err
	}
	return run.ingestAll(ctx, candidates)
}

// ScanPaths ingests an explicit list of candidate paths. Each path is
// classified as given; no discovery happens.
func (s *Scanner) ScanPaths(ctx context.Context, paths []string, opts ScanOptions) (*ScanResult, error) {
	run := s.newRun(opts)
	candidates := make([]classify.Candidate, len(paths))
	for i, p := range paths {
		p = filepath.Clean(p)
		candidates[i] = classify.Candidate{Path: p, Archive: archive.IsArchive(p)}
	}
	return run.ingestAll(ctx, candidates)
}

// Stream runs Scan in the background and delivers its events on the
// returned channel, which is closed after EventDone. A failure of the whole
// scan arrives as EventDone with Err set. The consumer must drain the
// channel.
func (s *Scanner) Stream(ctx context.Context, root string) <-chan Event {
	events := make(chan Event, 16)
	go func() {
		defer close(events)
		sawDone := false
		_, err := s.Scan(ctx, root, ScanOptions{OnEvent: func(e Event) {
			sawDone = sawDone || e.Type == EventDone
			events <- e
		}})
		if err != nil && !sawDone {
			events <- Event{Type: EventDone, Path: root, Err: err, Result: &ScanResult{}}
		}
	}()
	return events
}

// run is the state of one scan.
type run struct {
	s       *Scanner
	emit    func(Event)
	tracker *ProgressTracker
	result  *ScanResult
}

func (s *Scanner) newRun(opts ScanOptions) *run {
	emit := opts.OnEvent
	if emit == nil {
		emit = func(Event) {}
	}
	return &run{
		s:       s,
		emit:    emit,
		tracker: NewProgressTracker(opts.OnProgress),
		result:  &ScanResult{StartedAt: time.Now()},
	}
}

func (r *run) ingestAll(ctx context.Context, candidates []classify.Candidate) (*ScanResult, error) {
	r.tracker.SetPhase(PhaseIngesting)
	r.tracker.SetTotal(len(candidates))

	for i, c := range candidates {
		err := ctx.Err()
		if err != nil {
			err = errors.Cancelled(err)
		} else {
			err = r.ingest(ctx, c)
		}
		if err != nil {
			r.result.Cancelled = true
			return r.finish(err), err
		}
		r.tracker.Increment(c.Path)
		r.emit(Event{Type: EventProgress, Path: c.Path, Current: i + 1, Total: len(candidates)})
	}
	return r.finish(nil), nil
}

// finish emits EventDone, carrying err when the run stopped early.
func (r *run) finish(err error) *ScanResult {
	r.result.CompletedAt = time.Now()
	r.tracker.SetPhase(PhaseComplete)
	r.s.logger.Info("scan complete",
		"duration", r.result.CompletedAt.Sub(r.result.StartedAt),
		"created", r.result.Created,
		"skipped", r.result.Skipped,
		"errors", r.result.Errors,
		"cancelled", r.result.Cancelled,
	)
	r.emit(Event{Type: EventDone, Result: r.result, Err: err})
	return r.result
}

// ingest handles one candidate and, for containers, everything inside it.
// Only cancellation is returned; other failures become skip events.
func (r *run) ingest(ctx context.Context, c classify.Candidate) error {
	if reason := r.s.filter.Reason(c.Path, !c.Archive); reason != "" {
		r.skip(c.Path, reason, nil)
		return nil
	}

	res, err := classify.Classify(c, r.s.policy())
	if err != nil {
		r.fail(c.Path, err)
		return nil
	}

	switch res.Kind {
	case classify.NotAGallery:
		r.skip(c.Path, res.Reason, nil)
	case classify.ContainerOfGalleries:
		for _, sub := range res.Candidates {
			if err := ctx.Err(); err != nil {
				return errors.Cancelled(err)
			}
			if err := r.ingest(ctx, sub); err != nil {
				return err
			}
		}
	default:
		r.add(ctx, res)
	}
	return nil
}

func (r *run) add(ctx context.Context, res classify.Result) {
	g := r.s.build(res)
	where := candidateLabel(res.Candidate)

	meta, err := sidecar.Find(g)
	if err != nil {
		r.fail(where, err)
		return
	}
	if meta != nil {
		meta.Apply(g)
	}

	var id int64
	if r.s.opts.MoveImported && r.s.opts.LibraryRoot != "" {
		id, err = r.s.addMoved(ctx, g)
	} else {
		id, err = r.s.store.AddGallery(ctx, g, false)
	}
	switch {
	case errors.Is(err, errors.ErrDuplicate):
		r.skip(where, ReasonExists, err)
		return
	case err != nil:
		r.fail(where, err)
		return
	}

	r.result.Created++
	r.tracker.GalleryAdded()
	r.result.GalleryIDs = append(r.result.GalleryIDs, id)
	r.s.logger.Debug("gallery created", "id", id, "title", g.Title, "path", g.Path)
	r.emit(Event{Type: EventCreated, Path: where, Gallery: g})
}

func (r *run) skip(p, reason string, err error) {
	r.result.Skipped++
	r.tracker.GallerySkipped()
	r.emit(Event{Type: EventSkipped, Path: p, Reason: reason, Err: err})
}

// fail records a per-candidate error and reports it as a skip.
func (r *run) fail(p string, err error) {
	r.result.Errors++
	r.tracker.AddError(ScanError{Error: err, Path: p, Phase: PhaseIngesting})
	logger.LogFailure(r.s.logger, "candidate skipped", err, "path", p)
	r.skip(p, errors.UserMessage(err), err)
}

func candidateLabel(c classify.Candidate) string {
	if c.PathInArchive == "" {
		return c.Path
	}
	return c.Path + "!" + c.PathInArchive
}

// build creates the in-memory gallery for a classified candidate.
func (s *Scanner) build(res classify.Result) *domain.Gallery {
	c := res.Candidate
	name := filepath.Base(c.Path)
	if c.PathInArchive != "" {
		name = path.Base(strings.TrimSuffix(c.PathInArchive, "/"))
	}
	parsed := title.Parse(name, s.opts.Defaults.Language)
	if parsed.Artist == "" {
		parsed.Artist = UnknownArtist
	}

	g := &domain.Gallery{
		Title:         parsed.Title,
		Artist:        parsed.Artist,
		Language:      parsed.Language,
		Type:          s.opts.Defaults.Type,
		Status:        s.opts.Defaults.Status,
		Rating:        s.opts.Defaults.Rating,
		DateAdded:     time.Now(),
		Path:          c.Path,
		IsArchive:     c.Archive,
		PathInArchive: c.PathInArchive,
		Tags:          tags.New(),
	}

	sources := slices.Clone(res.Chapters)
	slices.SortStableFunc(sources, func(a, b classify.ChapterSource) int {
		return strings.Compare(a.Path, b.Path)
	})
	for i, src := range sources {
		chTitle := g.Title
		if len(sources) > 1 {
			chTitle = path.Base(strings.TrimSuffix(filepath.ToSlash(src.Path), "/"))
		}
		g.Chapters = append(g.Chapters, domain.Chapter{
			Title:     chTitle,
			Number:    i,
			Path:      src.Path,
			InArchive: src.InArchive,
			Pages:     src.Pages,
		})
	}
	return g
}
