package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

const (
	appName = "scenariodb"

	envDir          = "SCENARIODB_DIR"
	envConfig       = "SCENARIODB_CONFIG"
	envDSN          = "SCENARIODB_DSN"
	envTransactions = "SCENARIODB_TRANSACTIONS"
)

// Config holds the settings read from the config file and environment.
type Config struct {
	// DSN selects the store. Empty means the SQLite file under the data dir.
	DSN          string `yaml:"dsn"`
	Transactions *bool  `yaml:"transactions"`
	// Schema is an optional YAML schema file replacing the built-in tables.
	Schema       string   `yaml:"schema"`
	ModelCommand []string `yaml:"model_command"`
	Workers      int      `yaml:"workers"`
	LogLevel     string   `yaml:"log_level"`
}

// GetDataDir resolves the base directory for local storage. SCENARIODB_DIR
// wins, then the XDG data home, then ~/.local/share.
func GetDataDir() string {
	if explicit := os.Getenv(envDir); explicit != "" {
		return explicit
	}

	xdg.Reload()

	dataHome := xdg.DataHome
	if dataHome == "" {
		home := xdg.Home
		if home == "" {
			var err error
			home, err = os.UserHomeDir()
			if err != nil {
				return filepath.Join(os.TempDir(), appName)
			}
		}
		dataHome = filepath.Join(home, ".local", "share")
	}

	return filepath.Join(dataHome, appName)
}

// GetDBPath returns the path of the default SQLite store.
func GetDBPath() string {
	return filepath.Join(GetDataDir(), "scenarios.db")
}

// GetRunsDir returns the directory holding model run logs.
func GetRunsDir() string {
	return filepath.Join(GetDataDir(), "runs")
}

// GetConfigPath returns the config file location.
func GetConfigPath() string {
	if explicit := os.Getenv(envConfig); explicit != "" {
		return explicit
	}
	xdg.Reload()
	return filepath.Join(xdg.ConfigHome, appName, "config.yaml")
}

// Load reads the config file if present and applies environment overrides.
// A missing file is not an error.
func Load() (*Config, error) {
	cfg := &Config{}

	path := GetConfigPath()
	//nolint:gosec // G304: path comes from the environment or XDG config home
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if dsn := os.Getenv(envDSN); dsn != "" {
		cfg.DSN = dsn
	}
	if raw := os.Getenv(envTransactions); raw != "" {
		enabled, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", envTransactions, raw, err)
		}
		cfg.Transactions = &enabled
	}

	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "warn"
	}
	return cfg, nil
}

// TransactionsEnabled reports whether scenario operations run inside one
// transaction. Defaults to true.
func (c *Config) TransactionsEnabled() bool {
	return c.Transactions == nil || *c.Transactions
}

// ResolveDSN returns the configured DSN or the default SQLite file.
func (c *Config) ResolveDSN() string {
	if c.DSN != "" {
		return c.DSN
	}
	return GetDBPath()
}
