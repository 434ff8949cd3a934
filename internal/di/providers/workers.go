package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/listenupapp/doujinshelf/internal/ignore"
	"github.com/listenupapp/doujinshelf/internal/logger"
	"github.com/listenupapp/doujinshelf/internal/processor"
	"github.com/listenupapp/doujinshelf/internal/scanner"
	"github.com/listenupapp/doujinshelf/internal/watcher"
)

// ProvideEventProcessor provides the watcher event processor.
func ProvideEventProcessor(i do.Injector) (*processor.EventProcessor, error) {
	fileScanner := do.MustInvoke[*scanner.Scanner](i)
	filter := do.MustInvoke[*ignore.Filter](i)
	log := do.MustInvoke[*logger.Logger](i)

	return processor.NewEventProcessor(fileScanner, filter, log.Component("processor")), nil
}

// FileWatcherHandle wraps the file watcher with shutdown capability.
type FileWatcherHandle struct {
	*watcher.Watcher
	processor *processor.EventProcessor
	logger    *logger.Logger
	cancel    context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *FileWatcherHandle) Shutdown() error {
	if h.cancel != nil {
		h.cancel()
	}
	return h.Watcher.Stop()
}

// Run watches roots and feeds events to the processor until ctx is done.
// It returns once both the watcher and the processor loop have stopped.
func (h *FileWatcherHandle) Run(ctx context.Context, roots []string) error {
	for _, root := range roots {
		if err := h.Watch(root); err != nil {
			return err
		}
	}

	ctx, h.cancel = context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.processor.Run(ctx, h.Watcher)
	}()

	h.logger.Info("watching for new galleries", "roots", roots)
	err := h.Start(ctx)
	h.cancel()
	<-done
	return err
}

// ProvideFileWatcher provides the file system watcher. It does not start
// until Run is called.
func ProvideFileWatcher(i do.Injector) (*FileWatcherHandle, error) {
	log := do.MustInvoke[*logger.Logger](i)
	eventProcessor := do.MustInvoke[*processor.EventProcessor](i)

	w, err := watcher.New(log.Component("watcher"), watcher.Options{IgnoreHidden: true})
	if err != nil {
		return nil, err
	}

	return &FileWatcherHandle{
		Watcher:   w,
		processor: eventProcessor,
		logger:    log,
	}, nil
}
