package providers

import (
	"github.com/samber/do/v2"

	"github.com/listenupapp/doujinshelf/internal/backup"
	"github.com/listenupapp/doujinshelf/internal/config"
	"github.com/listenupapp/doujinshelf/internal/duplicates"
	"github.com/listenupapp/doujinshelf/internal/errors"
	"github.com/listenupapp/doujinshelf/internal/hashing"
	"github.com/listenupapp/doujinshelf/internal/ignore"
	"github.com/listenupapp/doujinshelf/internal/logger"
	"github.com/listenupapp/doujinshelf/internal/remote/ehentai"
	"github.com/listenupapp/doujinshelf/internal/resolver"
	"github.com/listenupapp/doujinshelf/internal/scanner"
	"github.com/listenupapp/doujinshelf/internal/scratch"
)

// ProvideScratch provides the scratch directory manager. Leftovers from a
// crashed run are removed on startup.
func ProvideScratch(i do.Injector) (*scratch.Manager, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	sm, err := scratch.New(cfg.ScratchDir(), log.Component("scratch"))
	if err != nil {
		return nil, err
	}
	if err := sm.Cleanup(); err != nil {
		log.Warn("failed to clear scratch space", "error", err)
	}
	return sm, nil
}

// ProvideHashEngine provides the page hash engine.
func ProvideHashEngine(i do.Injector) (*hashing.Engine, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	sm := do.MustInvoke[*scratch.Manager](i)

	return hashing.NewEngine(storeHandle.Store, sm, hashing.Options{
		SampleSize: cfg.Hashing.SampleSize,
		Workers:    cfg.Hashing.Workers,
	}, log.Component("hashing")), nil
}

// ProvideIgnoreFilter provides the ignore filter shared by the scanner and
// the event processor.
func ProvideIgnoreFilter(i do.Injector) (*ignore.Filter, error) {
	cfg := do.MustInvoke[*config.Config](i)

	return ignore.New(ignore.Options{
		Paths:        cfg.Library.IgnorePaths,
		Extensions:   cfg.Library.IgnoreExtensions,
		Folders:      cfg.Library.IgnoreFolders,
		TransientTTL: cfg.Library.TransientTTL.Duration,
	}), nil
}

// ProvideScanner provides the ingestion pipeline.
func ProvideScanner(i do.Injector) (*scanner.Scanner, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	filter := do.MustInvoke[*ignore.Filter](i)

	return scanner.NewScanner(storeHandle.Store, filter, scanner.Options{
		Recursive:          cfg.Library.Recursive,
		SubfolderAsGallery: cfg.Library.SubfolderAsGallery,
		MoveImported:       cfg.Library.MoveImported,
		LibraryRoot:        cfg.Library.Root,
		Defaults: scanner.Defaults{
			Language: cfg.Defaults.Language,
			Type:     cfg.Defaults.Type,
			Status:   cfg.Defaults.Status,
			Rating:   cfg.Defaults.Rating,
		},
	}, log.Component("scanner")), nil
}

// ProvideResolver provides the metadata resolver. A resolver.Picker
// registered by the command line settles multi-hit searches; without one
// the first hit is taken.
func ProvideResolver(i do.Injector) (*resolver.Resolver, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	engine := do.MustInvoke[*hashing.Engine](i)
	registry := do.MustInvoke[*RegistryHandle](i)

	picker, err := do.Invoke[resolver.Picker](i)
	if err != nil {
		picker = nil
	}

	primary, ok := registry.Get(ehentai.Name)
	if !ok {
		return nil, errors.Internalf("primary source %q not registered", ehentai.Name)
	}
	fallback, _ := registry.Fallback(primary)

	return resolver.New(storeHandle.Store, engine, primary, fallback, picker, resolver.Options{
		AlwaysPickFirst:     cfg.Resolver.AlwaysPickFirst,
		ReplaceMetadata:     cfg.Resolver.ReplaceMetadata,
		FallbackInteractive: cfg.Resolver.FallbackInteractive,
		LockPath:            cfg.ResolverLockPath(),
	}, log.Component("resolver")), nil
}

// ProvideDuplicateDetector provides the duplicate detector.
func ProvideDuplicateDetector(i do.Injector) (*duplicates.Detector, error) {
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	engine := do.MustInvoke[*hashing.Engine](i)

	return duplicates.New(storeHandle.Store, engine, log.Component("duplicates")), nil
}

// ProvideBackupService provides export, import and backup file management.
func ProvideBackupService(i do.Injector) (*backup.BackupService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	engine := do.MustInvoke[*hashing.Engine](i)

	return backup.NewBackupService(storeHandle.Store, engine, cfg.ExportDir(), log.Component("backup")), nil
}
