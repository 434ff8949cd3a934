// Package config provides application configuration management with support for a TOML file, environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config holds the application configuration.
type Config struct {
	App      AppConfig      `toml:"app"`
	Logger   LoggerConfig   `toml:"log"`
	Library  LibraryConfig  `toml:"library"`
	Defaults DefaultsConfig `toml:"defaults"`
	Hashing  HashingConfig  `toml:"hashing"`
	Resolver ResolverConfig `toml:"resolver"`
	Sources  SourcesConfig  `toml:"sources"`
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string `toml:"environment"`
	// DataDir holds the database, sessions, scratch space and exports.
	DataDir string `toml:"data_dir"`
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // json, pretty, or empty for auto
}

// LibraryConfig holds ingestion policy.
type LibraryConfig struct {
	// Root is the managed-library directory imported galleries are moved into.
	Root               string   `toml:"root"`
	MoveImported       bool     `toml:"move_imported"`
	IgnorePaths        []string `toml:"ignore_paths"`
	IgnoreExtensions   []string `toml:"ignore_extensions"`
	IgnoreFolders      bool     `toml:"ignore_folders"`
	Recursive          bool     `toml:"recursive"`
	SubfolderAsGallery bool     `toml:"subfolder_as_gallery"`
	// TransientTTL bounds how long a moved path stays in the transient ignore set.
	TransientTTL Duration `toml:"transient_ttl"`
}

// DefaultsConfig holds values applied to galleries that lack them.
type DefaultsConfig struct {
	Language string `toml:"language"`
	Type     string `toml:"type"`
	Status   string `toml:"status"`
	Rating   int    `toml:"rating"`
}

// HashingConfig holds hash engine configuration.
type HashingConfig struct {
	SampleSize int `toml:"sample_size"`
	Workers    int `toml:"workers"`
}

// ResolverConfig holds metadata resolver configuration.
type ResolverConfig struct {
	DefaultSource       string   `toml:"default_source"`
	AlwaysPickFirst     bool     `toml:"always_pick_first"`
	ReplaceMetadata     bool     `toml:"replace_metadata"`
	FallbackInteractive bool     `toml:"fallback_interactive"`
	EnableFallback      bool     `toml:"enable_fallback"`
	Timeout             Duration `toml:"timeout"`
	RequestsPerSecond   float64  `toml:"requests_per_second"`
}

// SourcesConfig holds per-source credentials.
type SourcesConfig struct {
	EHentai EHentaiConfig `toml:"ehentai"`
}

// EHentaiConfig holds the cookies needed for exhentai access.
type EHentaiConfig struct {
	MemberID string `toml:"member_id"`
	PassHash string `toml:"pass_hash"`
	Igneous  string `toml:"igneous"`
}

// Duration is a time.Duration that decodes from TOML strings like "30s".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Flags carries raw command-line flag values. Empty strings mean "not set".
type Flags struct {
	Env                string
	LogLevel           string
	LogFormat          string
	DataDir            string
	LibraryRoot        string
	MoveImported       string
	Recursive          string
	SubfolderAsGallery string
	SampleSize         string
	HashWorkers        string
	DefaultSource      string
	AlwaysPickFirst    string
	ReplaceMetadata    string
}

// Options controls where LoadConfig looks for configuration.
type Options struct {
	ConfigFile string
	EnvFile    string
	Flags      Flags
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		App:    AppConfig{Environment: "development"},
		Logger: LoggerConfig{Level: "info"},
		Library: LibraryConfig{
			TransientTTL: Duration{10 * time.Second},
		},
		Defaults: DefaultsConfig{
			Language: "English",
			Type:     "Doujinshi",
			Status:   "Completed",
		},
		Hashing: HashingConfig{SampleSize: 4, Workers: 4},
		Resolver: ResolverConfig{
			DefaultSource:     "https://e-hentai.org",
			EnableFallback:    true,
			Timeout:           Duration{30 * time.Second},
			RequestsPerSecond: 0.5,
		},
	}
}

// LoadConfig loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. TOML config file.
// 5. Default values (lowest priority).
func LoadConfig(opts Options) (*Config, error) {
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	// A missing .env file is fine.
	_ = loadEnvFile(envFile)

	cfg := Default()

	path, explicit := resolveConfigFile(opts.ConfigFile)
	if path != "" {
		if err := decodeFile(path, &cfg); err != nil {
			if explicit || !errors.Is(err, os.ErrNotExist) {
				return nil, err
			}
		}
	}

	f := opts.Flags
	cfg.App.Environment = getConfigValue(f.Env, "ENV", cfg.App.Environment)
	cfg.App.DataDir = getConfigValue(f.DataDir, "DATA_DIR", cfg.App.DataDir)
	cfg.Logger.Level = getConfigValue(f.LogLevel, "LOG_LEVEL", cfg.Logger.Level)
	cfg.Logger.Format = getConfigValue(f.LogFormat, "LOG_FORMAT", cfg.Logger.Format)

	cfg.Library.Root = getConfigValue(f.LibraryRoot, "LIBRARY_ROOT", cfg.Library.Root)
	cfg.Library.MoveImported = getBoolConfigValue(f.MoveImported, "MOVE_IMPORTED", cfg.Library.MoveImported)
	cfg.Library.IgnorePaths = getListConfigValue("", "IGNORE_PATHS", cfg.Library.IgnorePaths)
	cfg.Library.IgnoreExtensions = getListConfigValue("", "IGNORE_EXTENSIONS", cfg.Library.IgnoreExtensions)
	cfg.Library.IgnoreFolders = getBoolConfigValue("", "IGNORE_FOLDERS", cfg.Library.IgnoreFolders)
	cfg.Library.Recursive = getBoolConfigValue(f.Recursive, "RECURSIVE", cfg.Library.Recursive)
	cfg.Library.SubfolderAsGallery = getBoolConfigValue(f.SubfolderAsGallery, "SUBFOLDER_AS_GALLERY", cfg.Library.SubfolderAsGallery)

	cfg.Defaults.Language = getConfigValue("", "DEFAULT_LANGUAGE", cfg.Defaults.Language)
	cfg.Defaults.Type = getConfigValue("", "DEFAULT_TYPE", cfg.Defaults.Type)
	cfg.Defaults.Status = getConfigValue("", "DEFAULT_STATUS", cfg.Defaults.Status)
	cfg.Defaults.Rating = getIntConfigValue("", "DEFAULT_RATING", cfg.Defaults.Rating)

	cfg.Hashing.SampleSize = getIntConfigValue(f.SampleSize, "HASH_SAMPLE_SIZE", cfg.Hashing.SampleSize)
	cfg.Hashing.Workers = getIntConfigValue(f.HashWorkers, "HASH_WORKERS", cfg.Hashing.Workers)

	cfg.Resolver.DefaultSource = getConfigValue(f.DefaultSource, "DEFAULT_SOURCE", cfg.Resolver.DefaultSource)
	cfg.Resolver.AlwaysPickFirst = getBoolConfigValue(f.AlwaysPickFirst, "ALWAYS_PICK_FIRST", cfg.Resolver.AlwaysPickFirst)
	cfg.Resolver.ReplaceMetadata = getBoolConfigValue(f.ReplaceMetadata, "REPLACE_METADATA", cfg.Resolver.ReplaceMetadata)
	cfg.Resolver.FallbackInteractive = getBoolConfigValue("", "FALLBACK_INTERACTIVE", cfg.Resolver.FallbackInteractive)
	cfg.Resolver.EnableFallback = getBoolConfigValue("", "ENABLE_FALLBACK", cfg.Resolver.EnableFallback)
	cfg.Resolver.RequestsPerSecond = getFloatConfigValue("", "REMOTE_RPS", cfg.Resolver.RequestsPerSecond)

	cfg.Sources.EHentai.MemberID = getConfigValue("", "EH_MEMBER_ID", cfg.Sources.EHentai.MemberID)
	cfg.Sources.EHentai.PassHash = getConfigValue("", "EH_PASS_HASH", cfg.Sources.EHentai.PassHash)
	cfg.Sources.EHentai.Igneous = getConfigValue("", "EH_IGNEOUS", cfg.Sources.EHentai.Igneous)

	var err error
	if cfg.Library.TransientTTL.Duration, err = getDurationConfigValue("", "TRANSIENT_TTL", cfg.Library.TransientTTL.Duration); err != nil {
		return nil, err
	}
	if cfg.Resolver.Timeout.Duration, err = getDurationConfigValue("", "REMOTE_TIMEOUT", cfg.Resolver.Timeout.Duration); err != nil {
		return nil, err
	}

	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %q (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %q (must be debug, info, warn, or error)", c.Logger.Level)
	}

	switch c.Logger.Format {
	case "", "json", "pretty":
	default:
		return fmt.Errorf("invalid log format: %q (must be json or pretty)", c.Logger.Format)
	}

	if c.App.DataDir == "" {
		return errors.New("data dir cannot be empty after expansion")
	}

	if c.Hashing.SampleSize < 1 {
		return fmt.Errorf("hash sample size must be at least 1, got %d", c.Hashing.SampleSize)
	}
	if c.Hashing.Workers < 1 {
		return fmt.Errorf("hash workers must be at least 1, got %d", c.Hashing.Workers)
	}

	if c.Defaults.Rating < 0 || c.Defaults.Rating > 5 {
		return fmt.Errorf("default rating must be between 0 and 5, got %d", c.Defaults.Rating)
	}

	if c.Library.MoveImported && c.Library.Root == "" {
		return errors.New("move_imported requires library.root")
	}

	u, err := url.Parse(c.Resolver.DefaultSource)
	if err != nil || u.Host == "" {
		return fmt.Errorf("invalid default source %q", c.Resolver.DefaultSource)
	}

	if c.Resolver.RequestsPerSecond <= 0 {
		return errors.New("requests_per_second must be positive")
	}

	return nil
}

// DatabasePath returns the gallery database location.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.App.DataDir, "doujinshelf.db")
}

// ScratchDir returns the root for temporary page extraction.
func (c *Config) ScratchDir() string {
	return filepath.Join(c.App.DataDir, "tmp")
}

// SessionDir returns the badger directory holding adapter sessions.
func (c *Config) SessionDir() string {
	return filepath.Join(c.App.DataDir, "sessions")
}

// ExportDir returns the directory backups are written to.
func (c *Config) ExportDir() string {
	return filepath.Join(c.App.DataDir, "exports")
}

// ResolverLockPath returns the file used to guard the resolver across processes.
func (c *Config) ResolverLockPath() string {
	return filepath.Join(c.App.DataDir, "resolver.lock")
}

func (c *Config) expandPaths() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	dataDir, err := expandPath(c.App.DataDir, filepath.Join(homeDir, "Doujinshelf"))
	if err != nil {
		return fmt.Errorf("invalid data dir: %w", err)
	}
	c.App.DataDir = dataDir

	if c.Library.Root != "" {
		root, err := expandPath(c.Library.Root, "")
		if err != nil {
			return fmt.Errorf("invalid library root: %w", err)
		}
		c.Library.Root = root
	}
	return nil
}

// resolveConfigFile picks the TOML file to read. The bool reports whether
// the caller asked for it explicitly, in which case it must exist.
func resolveConfigFile(path string) (string, bool) {
	if path != "" {
		expanded, err := expandPath(path, "")
		if err != nil {
			return path, true
		}
		return expanded, true
	}
	if env := os.Getenv("CONFIG_FILE"); env != "" {
		expanded, err := expandPath(env, "")
		if err != nil {
			return env, true
		}
		return expanded, true
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", false
	}
	return filepath.Join(dir, "doujinshelf", "config.toml"), false
}

func decodeFile(path string, cfg *Config) error {
	file, err := os.Open(path) //#nosec G304 -- config path comes from the user
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	decoder := toml.NewDecoder(file)
	if err := decoder.Decode(cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty and defaultPath is provided, uses the default.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}
	return defaultValue
}

// getBoolConfigValue returns a bool from flag, env var, or default.
// Accepts: "true", "1", "yes" (case-insensitive) as true; anything else is false.
func getBoolConfigValue(flagValue, envKey string, defaultValue bool) bool {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	strValue = strings.ToLower(strValue)
	return strValue == "true" || strValue == "1" || strValue == "yes"
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	result, err := strconv.Atoi(strings.TrimSpace(strValue))
	if err != nil {
		return defaultValue
	}
	return result
}

// getFloatConfigValue returns a float from flag, env var, or default.
func getFloatConfigValue(flagValue, envKey string, defaultValue float64) float64 {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	result, err := strconv.ParseFloat(strings.TrimSpace(strValue), 64)
	if err != nil {
		return defaultValue
	}
	return result
}

// getListConfigValue splits a comma-separated flag or env value.
func getListConfigValue(flagValue, envKey string, defaultValue []string) []string {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	var out []string
	for part := range strings.SplitSeq(strValue, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// getDurationConfigValue parses a duration from flag or env var.
func getDurationConfigValue(flagValue, envKey string, defaultValue time.Duration) (time.Duration, error) {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(strValue)
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s %q: %w", envKey, strValue, err)
	}
	return d, nil
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}

		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)

		// Real environment variables win over the .env file.
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
