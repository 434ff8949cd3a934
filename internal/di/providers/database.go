package providers

import (
	"context"
	"os"

	"github.com/samber/do/v2"

	"github.com/listenupapp/doujinshelf/internal/config"
	"github.com/listenupapp/doujinshelf/internal/errors"
	"github.com/listenupapp/doujinshelf/internal/logger"
	"github.com/listenupapp/doujinshelf/internal/store/sqlite"
)

// StoreHandle wraps the store with shutdown capability.
type StoreHandle struct {
	*sqlite.Store
}

// Shutdown implements do.Shutdownable. Planner statistics are refreshed
// before the file is closed.
func (h *StoreHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := h.Analyze(ctx); err != nil {
		return errors.Join(err, h.Close())
	}
	return h.Close()
}

// ProvideStore opens the gallery database, upgrading it when needed.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if err := os.MkdirAll(cfg.App.DataDir, 0o755); err != nil {
		return nil, errors.Wrap(err, errors.CodeIO, "create data dir")
	}

	path := cfg.DatabasePath()
	db, err := sqlite.Open(path, log.Component("store"))
	if err != nil {
		return nil, err
	}

	log.Debug("database opened", "path", path)
	return &StoreHandle{Store: db}, nil
}
