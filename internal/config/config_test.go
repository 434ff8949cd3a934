package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := Default()
	cfg.App.DataDir = "/data"
	return &cfg
}

// writeFile writes content to name inside a temp dir and returns the path.
func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestValidate_ValidConfig(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidate_AllEnvironments(t *testing.T) {
	tests := []struct {
		env   string
		valid bool
	}{
		{"development", true},
		{"staging", true},
		{"production", true},
		{"test", false},
		{"", false},
		{"DEVELOPMENT", false}, // case sensitive
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			cfg := validConfig()
			cfg.App.Environment = tt.env

			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidate_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"log level", func(c *Config) { c.Logger.Level = "trace" }, "invalid log level"},
		{"log format", func(c *Config) { c.Logger.Format = "xml" }, "invalid log format"},
		{"sample size", func(c *Config) { c.Hashing.SampleSize = 0 }, "sample size"},
		{"workers", func(c *Config) { c.Hashing.Workers = 0 }, "hash workers"},
		{"rating high", func(c *Config) { c.Defaults.Rating = 6 }, "default rating"},
		{"rating low", func(c *Config) { c.Defaults.Rating = -1 }, "default rating"},
		{"move without root", func(c *Config) { c.Library.MoveImported = true }, "library.root"},
		{"source", func(c *Config) { c.Resolver.DefaultSource = "not a url" }, "default source"},
		{"rps", func(c *Config) { c.Resolver.RequestsPerSecond = 0 }, "requests_per_second"},
		{"data dir", func(c *Config) { c.App.DataDir = "" }, "data dir"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	dataDir := t.TempDir()
	t.Setenv("DATA_DIR", dataDir)

	cfg, err := LoadConfig(Options{
		ConfigFile: writeFile(t, "config.toml", ""),
		EnvFile:    filepath.Join(t.TempDir(), "missing.env"),
	})
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Environment)
	assert.Equal(t, dataDir, cfg.App.DataDir)
	assert.Equal(t, 4, cfg.Hashing.SampleSize)
	assert.Equal(t, "English", cfg.Defaults.Language)
	assert.Equal(t, "https://e-hentai.org", cfg.Resolver.DefaultSource)
	assert.Equal(t, 30*time.Second, cfg.Resolver.Timeout.Duration)
	assert.Equal(t, 10*time.Second, cfg.Library.TransientTTL.Duration)
	assert.True(t, cfg.Resolver.EnableFallback)
	assert.Equal(t, filepath.Join(dataDir, "doujinshelf.db"), cfg.DatabasePath())
}

func TestLoadConfig_TOMLFile(t *testing.T) {
	dataDir := t.TempDir()
	libRoot := t.TempDir()
	path := writeFile(t, "config.toml", `
[app]
data_dir = "`+dataDir+`"

[library]
root = "`+libRoot+`"
move_imported = true
ignore_paths = ["/in/skip"]
ignore_extensions = [".cbr"]
subfolder_as_gallery = true
transient_ttl = "3s"

[hashing]
sample_size = 6

[resolver]
always_pick_first = true
timeout = "5s"

[sources.ehentai]
member_id = "123"
pass_hash = "abc"
`)

	cfg, err := LoadConfig(Options{ConfigFile: path, EnvFile: filepath.Join(t.TempDir(), "none")})
	require.NoError(t, err)

	assert.Equal(t, dataDir, cfg.App.DataDir)
	assert.Equal(t, libRoot, cfg.Library.Root)
	assert.True(t, cfg.Library.MoveImported)
	assert.Equal(t, []string{"/in/skip"}, cfg.Library.IgnorePaths)
	assert.Equal(t, []string{".cbr"}, cfg.Library.IgnoreExtensions)
	assert.True(t, cfg.Library.SubfolderAsGallery)
	assert.Equal(t, 3*time.Second, cfg.Library.TransientTTL.Duration)
	assert.Equal(t, 6, cfg.Hashing.SampleSize)
	assert.True(t, cfg.Resolver.AlwaysPickFirst)
	assert.Equal(t, 5*time.Second, cfg.Resolver.Timeout.Duration)
	assert.Equal(t, "123", cfg.Sources.EHentai.MemberID)
}

func TestLoadConfig_Precedence(t *testing.T) {
	path := writeFile(t, "config.toml", `
[app]
data_dir = "`+t.TempDir()+`"
[hashing]
sample_size = 6
workers = 2
`)
	t.Setenv("HASH_SAMPLE_SIZE", "8")
	t.Setenv("HASH_WORKERS", "3")

	cfg, err := LoadConfig(Options{
		ConfigFile: path,
		EnvFile:    filepath.Join(t.TempDir(), "none"),
		Flags:      Flags{SampleSize: "10"},
	})
	require.NoError(t, err)

	// Flag beats env beats file.
	assert.Equal(t, 10, cfg.Hashing.SampleSize)
	assert.Equal(t, 3, cfg.Hashing.Workers)
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	_, err := LoadConfig(Options{
		ConfigFile: filepath.Join(t.TempDir(), "nope.toml"),
		EnvFile:    filepath.Join(t.TempDir(), "none"),
	})
	assert.Error(t, err)
}

func TestLoadConfig_BadDuration(t *testing.T) {
	t.Setenv("DATA_DIR", t.TempDir())
	t.Setenv("REMOTE_TIMEOUT", "soon")

	_, err := LoadConfig(Options{
		ConfigFile: writeFile(t, "config.toml", ""),
		EnvFile:    filepath.Join(t.TempDir(), "none"),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REMOTE_TIMEOUT")
}

func TestExpandPath(t *testing.T) {
	homeDir, _ := os.UserHomeDir() //nolint:errcheck // Test setup

	got, err := expandPath("~/shelf", "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(homeDir, "shelf"), got)

	got, err = expandPath("", "/default")
	require.NoError(t, err)
	assert.Equal(t, "/default", got)

	got, err = expandPath("relative/path", "")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(got))
}

func TestGetConfigValue_Precedence(t *testing.T) {
	assert.Equal(t, "flag-value", getConfigValue("flag-value", "TEST_ENV_KEY", "default-value"))

	t.Setenv("TEST_ENV_KEY", "env-value")
	assert.Equal(t, "env-value", getConfigValue("", "TEST_ENV_KEY", "default-value"))

	assert.Equal(t, "default-value", getConfigValue("", "NONEXISTENT_KEY", "default-value"))
}

func TestGetListConfigValue(t *testing.T) {
	t.Setenv("TEST_LIST", " .zip, ,.cbr ")
	assert.Equal(t, []string{".zip", ".cbr"}, getListConfigValue("", "TEST_LIST", nil))
	assert.Equal(t, []string{"x"}, getListConfigValue("", "UNSET_LIST", []string{"x"}))
}

func TestLoadEnvFile_ValidFile(t *testing.T) {
	envFile := writeFile(t, ".env", `# Test env file
DJS_ENV=staging
DJS_QUOTED="some value"
DJS_SINGLE='another value'
`)
	for _, k := range []string{"DJS_ENV", "DJS_QUOTED", "DJS_SINGLE"} {
		os.Unsetenv(k) //nolint:errcheck // Test setup
		t.Cleanup(func() { os.Unsetenv(k) }) //nolint:errcheck // Test cleanup
	}

	require.NoError(t, loadEnvFile(envFile))

	assert.Equal(t, "staging", os.Getenv("DJS_ENV"))
	assert.Equal(t, "some value", os.Getenv("DJS_QUOTED"))
	assert.Equal(t, "another value", os.Getenv("DJS_SINGLE"))
}

func TestLoadEnvFile_InvalidFormat(t *testing.T) {
	envFile := writeFile(t, ".env", "VALID_KEY=valid_value\nINVALID LINE WITHOUT EQUALS\n")

	err := loadEnvFile(envFile)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestLoadEnvFile_ExistingEnvVarsNotOverwritten(t *testing.T) {
	t.Setenv("DJS_TEST_VAR", "original-value")
	envFile := writeFile(t, ".env", `DJS_TEST_VAR=new-value`)

	require.NoError(t, loadEnvFile(envFile))
	assert.Equal(t, "original-value", os.Getenv("DJS_TEST_VAR"))
}
