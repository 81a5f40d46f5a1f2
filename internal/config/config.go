// Package config loads and validates the explicit configuration struct the
// store stack is built from.
//
// Sources, in increasing precedence: built-in defaults, an optional
// taskvault.yaml config file, and TASKVAULT_* environment variables. There
// is deliberately no module-level state: callers receive a Config value and
// pass it to the storage factory, so multiple independent store instances
// can coexist (and tests can build configs by hand).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/taskvault/taskvault/internal/pathutil"
)

// Backend names accepted by Config.Backend.
const (
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Key source names accepted by Config.KeySource.
const (
	KeySourceFile = "file"
	KeySourceEnv  = "env"
)

// Config holds everything needed to assemble a record store.
type Config struct {
	// DataDir is the directory holding the store, key and backup artifacts
	// for file-based configurations. Created if missing.
	DataDir string `mapstructure:"data_dir"`

	// Backend selects the ciphertext backend: file, sqlite or postgres.
	Backend string `mapstructure:"backend"`

	// StorePath is the ciphertext file path (file backend). Relative paths
	// are resolved under DataDir and must not escape it.
	StorePath string `mapstructure:"store_path"`

	// SQLitePath is the database file path (sqlite backend). Same
	// resolution rules as StorePath.
	SQLitePath string `mapstructure:"sqlite_path"`

	// PostgresURL is the connection string (postgres backend).
	PostgresURL string `mapstructure:"postgres_url"`

	// KeySource selects the key provider: file or env.
	KeySource string `mapstructure:"key_source"`

	// KeyFile is the key file path (file key source). Same resolution
	// rules as StorePath.
	KeyFile string `mapstructure:"key_file"`

	// KeyEnvVar is the environment variable holding the key (env key
	// source). Empty means ENCRYPTION_KEY.
	KeyEnvVar string `mapstructure:"key_env_var"`

	// BackupPolicy selects pre-write snapshot retention: rolling or archive.
	BackupPolicy string `mapstructure:"backup_policy"`

	// IntegrityMode selects the digest mismatch policy: enforce, warn or
	// off.
	IntegrityMode string `mapstructure:"integrity_mode"`

	// Verbose enables debug logging.
	Verbose bool `mapstructure:"verbose"`
}

// Default returns the built-in configuration: file backend and file key
// source in the current directory, rolling backups, fail-closed integrity.
func Default() Config {
	return Config{
		DataDir:       ".",
		Backend:       BackendFile,
		StorePath:     "tasks.json",
		SQLitePath:    "tasks.db",
		KeySource:     KeySourceFile,
		KeyFile:       "encryption_key.key",
		KeyEnvVar:     "",
		BackupPolicy:  "rolling",
		IntegrityMode: "enforce",
	}
}

// Load builds a Config from defaults, the config file and the environment.
//
// When configFile is empty, a taskvault.yaml is searched for in the current
// directory and the user's home directory, and its absence is fine. An
// explicitly named config file must exist.
func Load(configFile string) (Config, error) {
	v := viper.New()

	defaults := Default()
	v.SetDefault("data_dir", defaults.DataDir)
	v.SetDefault("backend", defaults.Backend)
	v.SetDefault("store_path", defaults.StorePath)
	v.SetDefault("sqlite_path", defaults.SQLitePath)
	v.SetDefault("postgres_url", "")
	v.SetDefault("key_source", defaults.KeySource)
	v.SetDefault("key_file", defaults.KeyFile)
	v.SetDefault("key_env_var", defaults.KeyEnvVar)
	v.SetDefault("backup_policy", defaults.BackupPolicy)
	v.SetDefault("integrity_mode", defaults.IntegrityMode)
	v.SetDefault("verbose", false)

	v.SetEnvPrefix("TASKVAULT")
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("taskvault")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		missing := errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist)
		if configFile != "" || !missing {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Resolve(); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// Resolve normalizes the file paths in the config.
//
// DataDir is created (0700) and made absolute. Relative store, sqlite and
// key paths are resolved under DataDir and rejected if they escape it,
// including via symlinks. Absolute paths are kept as given.
func (c *Config) Resolve() error {
	if c.DataDir == "" {
		c.DataDir = "."
	}
	if err := os.MkdirAll(c.DataDir, 0o700); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	absDataDir, err := filepath.Abs(c.DataDir)
	if err != nil {
		return fmt.Errorf("resolve data directory: %w", err)
	}
	c.DataDir = absDataDir

	for name, path := range map[string]*string{
		"store_path":  &c.StorePath,
		"sqlite_path": &c.SQLitePath,
		"key_file":    &c.KeyFile,
	} {
		if *path == "" || filepath.IsAbs(*path) {
			continue
		}
		resolved, err := pathutil.ResolveSafePath(c.DataDir, *path)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
		*path = resolved
	}

	return nil
}

// Validate checks the enumerated fields and cross-field requirements.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendFile:
		if c.StorePath == "" {
			return fmt.Errorf("file backend requires store_path")
		}
	case BackendSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("sqlite backend requires sqlite_path")
		}
	case BackendPostgres:
		if strings.TrimSpace(c.PostgresURL) == "" {
			return fmt.Errorf("postgres backend requires postgres_url")
		}
	default:
		return fmt.Errorf("unknown backend: %q (expected file, sqlite or postgres)", c.Backend)
	}

	switch c.KeySource {
	case KeySourceFile:
		if c.KeyFile == "" {
			return fmt.Errorf("file key source requires key_file")
		}
	case KeySourceEnv:
		// KeyEnvVar may be empty; the provider falls back to its default.
	default:
		return fmt.Errorf("unknown key source: %q (expected file or env)", c.KeySource)
	}

	switch c.BackupPolicy {
	case "rolling", "archive":
	default:
		return fmt.Errorf("unknown backup policy: %q (expected rolling or archive)", c.BackupPolicy)
	}

	switch c.IntegrityMode {
	case "enforce", "warn", "off":
	default:
		return fmt.Errorf("unknown integrity mode: %q (expected enforce, warn or off)", c.IntegrityMode)
	}

	return nil
}
