package resolver

import (
	"context"
	"log/slog"
	"slices"

	"github.com/listenupapp/doujinshelf/internal/domain"
	"github.com/listenupapp/doujinshelf/internal/errors"
	"github.com/listenupapp/doujinshelf/internal/remote"
	"github.com/listenupapp/doujinshelf/internal/store"
)

// queued is a gallery waiting for its metadata fetch.
type queued struct {
	gallery *domain.Gallery
	url     string
}

// multiHit is a gallery deferred until the unambiguous ones are done.
type multiHit struct {
	gallery    *domain.Gallery
	candidates []remote.Candidate
}

// pass runs the resolve pipeline once against one adapter.
type pass struct {
	r       *Resolver
	adapter remote.Adapter
	picker  Picker
	emit    func(Event)
	logger  *slog.Logger

	queue    []queued
	multi    []multiHit
	applied  []*domain.Gallery
	skipped  []*domain.Gallery
	failures []Failure
}

func (r *Resolver) newPass(adapter remote.Adapter, picker Picker, emit func(Event), logger *slog.Logger) *pass {
	if picker == nil || r.opts.AlwaysPickFirst {
		picker = firstPicker{}
	}
	return &pass{
		r:       r,
		adapter: adapter,
		picker:  picker,
		emit:    emit,
		logger:  logger.With("source", adapter.Name()),
	}
}

func (p *pass) progress(msg string) {
	p.emit(Event{Type: EventProgress, Message: msg, Source: p.adapter.Name()})
}

func (p *pass) fail(g *domain.Gallery, url, reason string, err error) {
	p.failures = append(p.failures, Failure{Gallery: g, URL: url, Reason: reason, Err: err})
	p.emit(Event{Type: EventFailed, Message: reason, Source: p.adapter.Name(), Gallery: g, Err: err})
	p.logger.Debug("gallery not resolved", "gallery_id", g.ID, "reason", reason, "error", err)
}

// run processes items and returns only cancellation errors.
func (p *pass) run(ctx context.Context, items []Item) error {
	total := len(items)
	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return errors.Cancelled(err)
		}

		url, ok, err := p.resolveURL(ctx, item, i+1, total)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if err := p.enqueue(ctx, item.Gallery, url, i+1, total); err != nil {
			return err
		}
	}

	if err := p.reconcile(ctx); err != nil {
		return err
	}
	return p.flush(ctx)
}

// resolveURL finds the URL for one item. ok is false when the item was
// failed or deferred as a multi-hit.
func (p *pass) resolveURL(ctx context.Context, item Item, k, total int) (string, bool, error) {
	g := item.Gallery
	pattern := p.adapter.Pattern()

	if item.URL != "" {
		p.progress(MsgCheckingURL)
		if !pattern.MatchString(item.URL) {
			p.fail(g, item.URL, "unsupported source",
				errors.Wrapf(errors.ErrUnsupportedSource, errors.CodeUnsupportedSource, "%s cannot read %s", p.adapter.Name(), item.URL))
			return "", false, nil
		}
		return item.URL, true, nil
	}
	if g.Link != "" && pattern.MatchString(g.Link) {
		p.progress(MsgCheckingURL)
		return g.Link, true, nil
	}

	p.progress(counted(MsgGeneratingHash, k, total))
	digest, err := p.searchHash(ctx, g)
	if err != nil {
		if errors.KindOf(err) == errors.KindCancellation {
			return "", false, errors.Cancelled(err)
		}
		p.fail(g, "", ReasonHashFailure, err)
		return "", false, nil
	}

	hits, err := p.adapter.Search(ctx, digest)
	switch {
	case errors.KindOf(err) == errors.KindCancellation:
		return "", false, errors.Cancelled(err)
	case errors.Is(err, errors.ErrRemoteNotFound):
		p.fail(g, "", ReasonNoMatch, err)
		return "", false, nil
	case err != nil:
		p.fail(g, "", errors.UserMessage(err), err)
		return "", false, nil
	}

	switch {
	case len(hits) == 0:
		p.fail(g, "", ReasonNoMatch, errors.ErrRemoteNotFound)
		return "", false, nil
	case len(hits) == 1 || p.r.opts.AlwaysPickFirst:
		return hits[0].URL, true, nil
	default:
		p.multi = append(p.multi, multiHit{gallery: g, candidates: hits})
		return "", false, nil
	}
}

// searchHash returns the digest of the lowest sampled page of chapter 0.
func (p *pass) searchHash(ctx context.Context, g *domain.Gallery) (string, error) {
	if p.r.hasher == nil {
		return "", errors.Internalf("no hasher configured")
	}
	digests, err := p.r.hasher.Ensure(ctx, g, 0)
	if err != nil {
		return "", err
	}
	if len(digests) == 0 {
		return "", errors.Consistencyf("gallery %d has no pages to hash", g.ID)
	}
	pages := make([]int, 0, len(digests))
	for idx := range digests {
		pages = append(pages, idx)
	}
	return digests[slices.Min(pages)], nil
}

func (p *pass) enqueue(ctx context.Context, g *domain.Gallery, url string, k, total int) error {
	p.progress(counted(MsgAddingToQueue, k, total))
	p.queue = append(p.queue, queued{gallery: g, url: url})
	if len(p.queue) >= max(p.adapter.BatchSize(), 1) {
		return p.flush(ctx)
	}
	return nil
}

// reconcile settles multi-hits in the order they were found.
func (p *pass) reconcile(ctx context.Context) error {
	total := len(p.multi)
	for i, m := range p.multi {
		if err := ctx.Err(); err != nil {
			return errors.Cancelled(err)
		}

		choice, err := p.picker.Pick(ctx, m.gallery, m.candidates)
		if err != nil {
			if errors.KindOf(err) == errors.KindCancellation {
				return errors.Cancelled(err)
			}
			p.fail(m.gallery, "", errors.UserMessage(err), err)
			continue
		}

		switch choice.Action {
		case ActionSkip:
			p.skipped = append(p.skipped, m.gallery)
		case ActionSkipAll:
			for _, rest := range p.multi[i:] {
				p.skipped = append(p.skipped, rest.gallery)
			}
			p.logger.Info("remaining multi-hits skipped", "count", total-i)
			p.multi = nil
			return nil
		default:
			if err := p.enqueue(ctx, m.gallery, choice.Candidate.URL, i+1, total); err != nil {
				return err
			}
		}
	}
	p.multi = nil
	return nil
}

// flush fetches and applies metadata for everything queued. A failed
// fetch fails every queued gallery so the fallback can retry them.
func (p *pass) flush(ctx context.Context) error {
	if len(p.queue) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return errors.Cancelled(err)
	}

	batch := p.queue
	p.queue = nil
	p.progress(MsgApplyingMetadata)

	urls := make([]string, len(batch))
	for i, q := range batch {
		urls[i] = q.url
	}

	results, err := p.adapter.FetchMetadata(ctx, urls)
	if err != nil {
		if errors.KindOf(err) == errors.KindCancellation {
			return errors.Cancelled(err)
		}
		p.logger.Warn("metadata fetch failed", "urls", len(urls), "error", err)
		for _, q := range batch {
			p.fail(q.gallery, q.url, errors.UserMessage(err), err)
		}
		return nil
	}

	for _, q := range batch {
		m, ok := results[q.url]
		if !ok || m == nil {
			p.fail(q.gallery, q.url, ReasonNoMatch, errors.ErrRemoteNotFound)
			continue
		}
		if err := p.apply(ctx, q, m); err != nil {
			if errors.KindOf(err) == errors.KindCancellation {
				return errors.Cancelled(err)
			}
		}
	}
	return nil
}

func (p *pass) apply(ctx context.Context, q queued, m *remote.Metadata) error {
	patch := remote.Patch(m, p.r.opts.ReplaceMetadata)
	if patch.Link == nil {
		patch.Link = store.Ptr(q.url)
	}
	patch.Exed = store.Ptr(true)

	updated, err := p.r.store.ModifyGallery(ctx, q.gallery.ID, patch)
	switch {
	case errors.Is(err, errors.ErrNotFound):
		p.fail(q.gallery, q.url, ReasonDeleted, errors.Wrapf(err, errors.CodeConsistency, "gallery %d was deleted", q.gallery.ID))
		return nil
	case err != nil:
		if errors.KindOf(err) != errors.KindCancellation {
			p.fail(q.gallery, q.url, errors.UserMessage(err), err)
		}
		return err
	}

	p.applied = append(p.applied, updated)
	p.emit(Event{Type: EventApplied, Message: updated.Title, Source: p.adapter.Name(), Gallery: updated})
	p.logger.Debug("metadata applied", "gallery_id", updated.ID, "url", q.url)
	return nil
}
