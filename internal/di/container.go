// Package di provides dependency injection configuration for doujinshelf.
package di

import (
	"github.com/samber/do/v2"

	"github.com/listenupapp/doujinshelf/internal/config"
	"github.com/listenupapp/doujinshelf/internal/di/providers"
	"github.com/listenupapp/doujinshelf/internal/logger"
)

// NewContainer creates and configures the DI container with all providers.
// opts tells the config provider where to look.
func NewContainer(opts config.Options) *do.RootScope {
	injector := do.New()
	do.ProvideValue(injector, opts)

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)

	// Storage layer
	do.Provide(injector, providers.ProvideStore)
	do.Provide(injector, providers.ProvideSessions)
	do.Provide(injector, providers.ProvideScratch)

	// Library layer
	do.Provide(injector, providers.ProvideHashEngine)
	do.Provide(injector, providers.ProvideIgnoreFilter)
	do.Provide(injector, providers.ProvideScanner)
	do.Provide(injector, providers.ProvideDuplicateDetector)
	do.Provide(injector, providers.ProvideBackupService)

	// Remote layer
	do.Provide(injector, providers.ProvideRateLimiter)
	do.Provide(injector, providers.ProvideRegistry)
	do.Provide(injector, providers.ProvideResolver)

	// Workers
	do.Provide(injector, providers.ProvideEventProcessor)
	do.Provide(injector, providers.ProvideFileWatcher)

	return injector
}

// Bootstrap loads configuration and opens the store, the services every
// command needs. Everything else is built lazily on first use.
func Bootstrap(injector *do.RootScope) error {
	if _, err := do.Invoke[*config.Config](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*logger.Logger](injector); err != nil {
		return err
	}
	_, err := do.Invoke[*providers.StoreHandle](injector)
	return err
}
