// Package config manages svault configuration.
//
// The file lives at $SVAULT_HOME/config.yaml when SVAULT_HOME is set and at
// the XDG config location (for example ~/.config/svault/config.yaml)
// otherwise. A missing file means defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

// Config is the full svault configuration.
type Config struct {
	Version int           `yaml:"version"`
	Storage StorageConfig `yaml:"storage"`
	Backup  BackupConfig  `yaml:"backup"`
	Import  ImportConfig  `yaml:"import"`
	Session SessionConfig `yaml:"session"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// StorageConfig locates the database and the asset directory. Relative
// Database and AssetsDir values are taken relative to DataDir.
type StorageConfig struct {
	DataDir   string `yaml:"data_dir"`
	Database  string `yaml:"database"`
	AssetsDir string `yaml:"assets_dir"`
}

// BackupConfig controls automatic backups.
type BackupConfig struct {
	Dir            string   `yaml:"dir"`              // Where AutoBackup_*.svdata files go
	MaxAutoBackups int      `yaml:"max_auto_backups"` // Keep this many; 0 keeps all
	Interval       Duration `yaml:"interval"`         // Watch loop period
}

// ImportConfig tunes how bundle records are merged into the store.
type ImportConfig struct {
	DefaultMinStock    int64  `yaml:"default_min_stock"`    // For records without min_stock
	ImportedSuffix     string `yaml:"imported_suffix"`      // Appended on keep_both name clashes
	KeepRemoteQuantity bool   `yaml:"keep_remote_quantity"` // New rows take the bundle's quantity/location
}

// SessionConfig locates scan working directories.
type SessionConfig struct {
	TempDir string `yaml:"temp_dir"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Level     string `yaml:"level"`  // debug, info, warn, error
	Format    string `yaml:"format"` // text or json
	Timestamp bool   `yaml:"timestamp"`
}

// MetricsConfig configures the Prometheus textfile dump.
type MetricsConfig struct {
	Textfile string `yaml:"textfile"` // Empty disables
}

// Home returns the svault home directory: $SVAULT_HOME, or the XDG data
// directory for svault.
func Home() string {
	if home := os.Getenv("SVAULT_HOME"); home != "" {
		return home
	}
	return filepath.Join(xdg.DataHome, "svault")
}

// Path returns the config file location.
func Path() string {
	if home := os.Getenv("SVAULT_HOME"); home != "" {
		return filepath.Join(home, "config.yaml")
	}
	return filepath.Join(xdg.ConfigHome, "svault", "config.yaml")
}

// Default returns the built-in configuration.
func Default() *Config {
	dataDir := Home()
	if os.Getenv("SVAULT_HOME") != "" {
		dataDir = filepath.Join(dataDir, "data")
	}
	return &Config{
		Version: 1,
		Storage: StorageConfig{
			DataDir:   dataDir,
			Database:  "svault.db",
			AssetsDir: "assets",
		},
		Backup: BackupConfig{
			Dir:            filepath.Join(dataDir, "backups"),
			MaxAutoBackups: 10,
			Interval:       Duration(30 * time.Minute),
		},
		Import: ImportConfig{
			DefaultMinStock: 10,
			ImportedSuffix:  " (Imported)",
		},
		Session: SessionConfig{
			TempDir: filepath.Join(os.TempDir(), "svault_import"),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the config from Path.
func Load() (*Config, error) {
	return LoadFrom(Path())
}

// LoadFrom reads the config at path, returning defaults if it does not
// exist. Environment overrides are applied before validation.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.ApplyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Save writes the config to Path.
func (c *Config) Save() error {
	return c.SaveTo(Path())
}

// SaveTo validates and atomically writes the config to path.
func (c *Config) SaveTo(path string) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	data = append([]byte("# svault configuration\n\n"), data...)

	tmpFile, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp.*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer os.Remove(tmpPath)

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// Validate checks that all configuration values are usable.
func (c *Config) Validate() error {
	if c.Version < 1 {
		return fmt.Errorf("version must be >= 1")
	}
	if strings.TrimSpace(c.Storage.DataDir) == "" {
		return fmt.Errorf("storage.data_dir is required")
	}
	if strings.TrimSpace(c.Storage.Database) == "" {
		return fmt.Errorf("storage.database is required")
	}
	if strings.TrimSpace(c.Storage.AssetsDir) == "" {
		return fmt.Errorf("storage.assets_dir is required")
	}
	if c.Backup.MaxAutoBackups < 0 {
		return fmt.Errorf("backup.max_auto_backups cannot be negative")
	}
	if c.Backup.Interval.Duration() != 0 && c.Backup.Interval.Duration() < time.Minute {
		return fmt.Errorf("backup.interval must be at least 1m")
	}
	if c.Import.DefaultMinStock < 1 {
		return fmt.Errorf("import.default_min_stock must be at least 1")
	}
	if strings.TrimSpace(c.Import.ImportedSuffix) == "" {
		return fmt.Errorf("import.imported_suffix is required")
	}
	if strings.TrimSpace(c.Session.TempDir) == "" {
		return fmt.Errorf("session.temp_dir is required")
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error (got %q)", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json", "logfmt":
	default:
		return fmt.Errorf("logging.format must be text, json or logfmt (got %q)", c.Logging.Format)
	}
	return nil
}

// ApplyEnvOverrides updates the config from SVAULT_* environment variables.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("SVAULT_DATA_DIR"); v != "" {
		c.Storage.DataDir = v
	}
	if v := os.Getenv("SVAULT_BACKUP_DIR"); v != "" {
		c.Backup.Dir = v
	}
	if v := os.Getenv("SVAULT_MAX_AUTO_BACKUPS"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			c.Backup.MaxAutoBackups = i
		}
	}
	if v := os.Getenv("SVAULT_BACKUP_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Backup.Interval = Duration(d)
		}
	}
	if v := os.Getenv("SVAULT_KEEP_REMOTE_QUANTITY"); v != "" {
		if b, err := parseBool(v); err == nil {
			c.Import.KeepRemoteQuantity = b
		}
	}
	if v := os.Getenv("SVAULT_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("SVAULT_METRICS_TEXTFILE"); v != "" {
		c.Metrics.Textfile = v
	}
}

// DatabasePath returns the absolute database file path.
func (c *Config) DatabasePath() string {
	return c.underDataDir(c.Storage.Database)
}

// AssetsPath returns the asset root.
func (c *Config) AssetsPath() string {
	return c.underDataDir(c.Storage.AssetsDir)
}

// BackupDir returns the auto-backup directory, defaulting to
// <data dir>/backups.
func (c *Config) BackupDir() string {
	if strings.TrimSpace(c.Backup.Dir) == "" {
		return filepath.Join(c.Storage.DataDir, "backups")
	}
	return c.underDataDir(c.Backup.Dir)
}

func (c *Config) underDataDir(p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(c.Storage.DataDir, p)
}

// parseBool parses various boolean representations.
func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "true", "yes", "1", "on":
		return true, nil
	case "false", "no", "0", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean: %s (use true/false, yes/no, 1/0)", s)
	}
}
