package di

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/samber/do/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/doujinshelf/internal/backup"
	"github.com/listenupapp/doujinshelf/internal/config"
	"github.com/listenupapp/doujinshelf/internal/di/providers"
	"github.com/listenupapp/doujinshelf/internal/duplicates"
	"github.com/listenupapp/doujinshelf/internal/resolver"
	"github.com/listenupapp/doujinshelf/internal/scanner"
)

func newTestContainer(t *testing.T) *do.RootScope {
	t.Helper()
	t.Setenv("DATA_DIR", t.TempDir())
	t.Setenv("LOG_LEVEL", "error")

	cfgFile := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(cfgFile, nil, 0o644))

	injector := NewContainer(config.Options{
		ConfigFile: cfgFile,
		EnvFile:    filepath.Join(t.TempDir(), "none.env"),
	})
	t.Cleanup(func() { injector.Shutdown() })
	return injector
}

func TestContainer_BuildsEveryService(t *testing.T) {
	injector := newTestContainer(t)
	require.NoError(t, Bootstrap(injector))

	_, err := do.Invoke[*scanner.Scanner](injector)
	require.NoError(t, err)
	_, err = do.Invoke[*duplicates.Detector](injector)
	require.NoError(t, err)
	_, err = do.Invoke[*backup.BackupService](injector)
	require.NoError(t, err)
	_, err = do.Invoke[*providers.FileWatcherHandle](injector)
	require.NoError(t, err)

	r, err := do.Invoke[*resolver.Resolver](injector)
	require.NoError(t, err)
	assert.False(t, r.Busy())

	registry := do.MustInvoke[*providers.RegistryHandle](injector)
	assert.Equal(t, []string{"ehentai", "chaika"}, registry.Names())

	st := do.MustInvoke[*providers.StoreHandle](injector)
	n, err := st.CountGalleries(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestContainer_FallbackDisabled(t *testing.T) {
	injector := newTestContainer(t)
	t.Setenv("ENABLE_FALLBACK", "false")

	registry := do.MustInvoke[*providers.RegistryHandle](injector)
	assert.Equal(t, []string{"ehentai"}, registry.Names())
}
