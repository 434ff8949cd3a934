// Package providers contains dependency injection providers for doujinshelf.
package providers

import (
	"github.com/samber/do/v2"

	"github.com/listenupapp/doujinshelf/internal/config"
	"github.com/listenupapp/doujinshelf/internal/logger"
)

// ProvideConfig loads the configuration using the config.Options value
// registered by the command line.
func ProvideConfig(i do.Injector) (*config.Config, error) {
	opts, err := do.Invoke[config.Options](i)
	if err != nil {
		opts = config.Options{}
	}
	return config.LoadConfig(opts)
}

// ProvideLogger provides the structured logger.
func ProvideLogger(i do.Injector) (*logger.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)

	log := logger.New(logger.Config{
		Level:       logger.ParseLevel(cfg.Logger.Level),
		Format:      cfg.Logger.Format,
		AddSource:   cfg.App.Environment == "development" && cfg.Logger.Level == "debug",
		Environment: cfg.App.Environment,
	})

	log.Debug("configuration loaded",
		"environment", cfg.App.Environment,
		"log_level", cfg.Logger.Level,
		"data_dir", cfg.App.DataDir,
		"library_root", cfg.Library.Root,
	)

	return log, nil
}
