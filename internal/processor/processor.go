package processor

import (
	"context"
	"log/slog"
	"sync"

	"github.com/listenupapp/doujinshelf/internal/errors"
	"github.com/listenupapp/doujinshelf/internal/ignore"
	"github.com/listenupapp/doujinshelf/internal/scanner"
	"github.com/listenupapp/doujinshelf/internal/watcher"
)

// Ingester ingests explicit candidate paths.
type Ingester interface {
	ScanPaths(ctx context.Context, paths []string, opts scanner.ScanOptions) (*scanner.ScanResult, error)
}

// EventProcessor turns watcher events into incremental ingestion.
//
//   - Each event is processed immediately (no batching)
//   - Per-folder TryLock drops events for a gallery already being scanned
//   - Rescanning is idempotent; a known gallery is skipped as existing
//   - Removals are logged only; galleries are deleted by explicit request
type EventProcessor struct {
	scanner Ingester
	filter  *ignore.Filter
	logger  *slog.Logger

	// OnScan, when set, receives every ingestion event.
	OnScan func(scanner.Event)

	folderLocks *SyncMap[string, *sync.Mutex]
}

// NewEventProcessor creates a new EventProcessor. A nil filter ignores
// nothing.
func NewEventProcessor(s Ingester, filter *ignore.Filter, logger *slog.Logger) *EventProcessor {
	if filter == nil {
		filter = ignore.New(ignore.Options{})
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &EventProcessor{
		scanner:     s,
		filter:      filter,
		logger:      logger,
		folderLocks: NewSyncMap[string, *sync.Mutex](),
	}
}

// ProcessEvent processes one file system event.
//
//  1. Classify the path (archive, page, sidecar, folder, or ignored)
//  2. Map it to its gallery candidate
//  3. Drop it when the ignore filter matches, including recent moves
//  4. TryLock the candidate and ingest it
//
// If the candidate is already being scanned the event is skipped; the scan
// in progress picks up the change.
func (ep *EventProcessor) ProcessEvent(ctx context.Context, event watcher.Event) error {
	ft := classifyFile(event.Path, event.IsDir)
	if ft == FileTypeIgnored {
		ep.logger.Debug("ignoring file", "path", event.Path)
		return nil
	}

	candidate := galleryPath(event.Path, ft)
	isDir := ft != FileTypeArchive
	if reason := ep.filter.Reason(candidate, isDir); reason != "" {
		ep.logger.Debug("candidate ignored", "path", candidate, "reason", reason)
		return nil
	}

	lock := ep.getFolderLock(candidate)
	if !lock.TryLock() {
		ep.logger.Debug("gallery already being scanned, skipping",
			"gallery", candidate,
			"path", event.Path,
		)
		return nil
	}
	defer lock.Unlock()

	switch event.Type {
	case watcher.EventAdded, watcher.EventModified:
		return ep.ingest(ctx, candidate, ft)
	case watcher.EventRemoved:
		ep.logger.Info("gallery content removed on disk",
			"gallery", candidate,
			"path", event.Path,
			"type", ft.String(),
		)
		return nil
	default:
		ep.logger.Warn("unknown event type", "type", event.Type, "path", event.Path)
		return nil
	}
}

func (ep *EventProcessor) ingest(ctx context.Context, candidate string, ft FileType) error {
	ep.logger.Debug("ingesting changed gallery", "gallery", candidate, "type", ft.String())

	result, err := ep.scanner.ScanPaths(ctx, []string{candidate}, scanner.ScanOptions{OnEvent: ep.OnScan})
	if err != nil {
		ep.logger.Error("failed to ingest gallery", "gallery", candidate, "error", err)
		return errors.Wrapf(err, errors.CodeOf(err), "ingest %s", candidate)
	}
	if result.Created > 0 {
		ep.logger.Info("gallery added from watched folder", "gallery", candidate, "ids", result.GalleryIDs)
	}
	return nil
}

// Run processes watcher events until ctx is done. Per-event failures are
// logged and do not stop the loop.
func (ep *EventProcessor) Run(ctx context.Context, w *watcher.Watcher) {
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-w.Events():
			if err := ep.ProcessEvent(ctx, event); err != nil && errors.KindOf(err) != errors.KindCancellation {
				ep.logger.Warn("event processing failed", "path", event.Path, "error", err)
			}
		case err := <-w.Errors():
			ep.logger.Warn("watcher error", "error", err)
		}
	}
}

// getFolderLock gets or creates the mutex for a gallery candidate.
func (ep *EventProcessor) getFolderLock(path string) *sync.Mutex {
	if lock, ok := ep.folderLocks.Load(path); ok {
		return lock
	}
	actual, _ := ep.folderLocks.LoadOrStore(path, &sync.Mutex{})
	return actual
}
