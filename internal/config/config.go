package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	// CurrentVersion is the config schema version written by Save.
	CurrentVersion = 1

	// DefaultScratchDir is the workspace-relative directory holding overlays,
	// compiler artifacts, the snapshot store and config.json.
	DefaultScratchDir = ".langidx"
)

// Config represents the complete langidx configuration
type Config struct {
	Version    int    `json:"version" mapstructure:"version"`
	ScratchDir string `json:"scratchDir" mapstructure:"scratchDir"`

	// Extensions is the allow-list of file extensions fed to the compiler.
	Extensions []string `json:"extensions" mapstructure:"extensions"`
	// IgnoreDirs are directory names skipped while enumerating sources.
	IgnoreDirs []string `json:"ignoreDirs" mapstructure:"ignoreDirs"`
	// PromoteOnSave writes overlay content into the real file on save
	// instead of trusting the client to have written it.
	PromoteOnSave bool `json:"promoteOnSave" mapstructure:"promoteOnSave"`
	ParseWorkers  int  `json:"parseWorkers" mapstructure:"parseWorkers"`
	QueueSize     int  `json:"queueSize" mapstructure:"queueSize"`

	Watch   WatchConfig   `json:"watch" mapstructure:"watch"`
	Storage StorageConfig `json:"storage" mapstructure:"storage"`
	Export  ExportConfig  `json:"export" mapstructure:"export"`
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`
}

// WatchConfig contains filesystem watcher configuration
type WatchConfig struct {
	DebounceMs int `json:"debounceMs" mapstructure:"debounceMs"`
}

// StorageConfig contains snapshot store configuration
type StorageConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Path    string `json:"path" mapstructure:"path"`
}

// ExportConfig contains SCIP export configuration
type ExportConfig struct {
	Path     string `json:"path" mapstructure:"path"`
	Compress bool   `json:"compress" mapstructure:"compress"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format     string `json:"format" mapstructure:"format"`
	Level      string `json:"level" mapstructure:"level"`
	File       string `json:"file" mapstructure:"file"`
	MaxSize    string `json:"maxSize" mapstructure:"maxSize"`
	MaxBackups int    `json:"maxBackups" mapstructure:"maxBackups"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version:       CurrentVersion,
		ScratchDir:    DefaultScratchDir,
		Extensions:    []string{".java"},
		IgnoreDirs:    []string{".git", "node_modules", "build", "target", "out", ".gradle", ".idea"},
		PromoteOnSave: false,
		ParseWorkers:  4,
		QueueSize:     64,
		Watch: WatchConfig{
			DebounceMs: 200,
		},
		Storage: StorageConfig{
			Enabled: true,
			Path:    "langidx.db",
		},
		Export: ExportConfig{
			Path:     "index.scip",
			Compress: false,
		},
		Logging: LoggingConfig{
			Format:     "human",
			Level:      "info",
			File:       "logs/langidx.log",
			MaxSize:    "10MB",
			MaxBackups: 3,
		},
	}
}

// setDefaults registers every default so a partial config file only
// overrides the keys it names.
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("version", d.Version)
	v.SetDefault("scratchDir", d.ScratchDir)
	v.SetDefault("extensions", d.Extensions)
	v.SetDefault("ignoreDirs", d.IgnoreDirs)
	v.SetDefault("promoteOnSave", d.PromoteOnSave)
	v.SetDefault("parseWorkers", d.ParseWorkers)
	v.SetDefault("queueSize", d.QueueSize)
	v.SetDefault("watch.debounceMs", d.Watch.DebounceMs)
	v.SetDefault("storage.enabled", d.Storage.Enabled)
	v.SetDefault("storage.path", d.Storage.Path)
	v.SetDefault("export.path", d.Export.Path)
	v.SetDefault("export.compress", d.Export.Compress)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.file", d.Logging.File)
	v.SetDefault("logging.maxSize", d.Logging.MaxSize)
	v.SetDefault("logging.maxBackups", d.Logging.MaxBackups)
}

// LoadConfig loads configuration from <repoRoot>/.langidx/config.{json,yaml,toml}.
// A missing file yields the defaults. LANGIDX_LOG_LEVEL overrides logging.level.
func LoadConfig(repoRoot string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.AddConfigPath(filepath.Join(repoRoot, DefaultScratchDir))
	if err := v.BindEnv("logging.level", "LANGIDX_LOG_LEVEL"); err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	cfg.normalize()

	return &cfg, nil
}

// normalize lower-cases extensions and ensures each carries a leading dot.
func (c *Config) normalize() {
	for i, ext := range c.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext != "" && !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		c.Extensions[i] = ext
	}
}

// ScratchPath resolves the scratch directory against repoRoot.
func (c *Config) ScratchPath(repoRoot string) string {
	if filepath.IsAbs(c.ScratchDir) {
		return c.ScratchDir
	}
	return filepath.Join(repoRoot, c.ScratchDir)
}

// ResolveInScratch resolves a scratch-relative path such as storage.path.
func (c *Config) ResolveInScratch(repoRoot, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.ScratchPath(repoRoot), p)
}

// Save writes the configuration to .langidx/config.json
func (c *Config) Save(repoRoot string) error {
	dir := filepath.Join(repoRoot, DefaultScratchDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "config.json"), data, 0644)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Version != CurrentVersion {
		return &ConfigError{Field: "version", Message: "unsupported config version"}
	}
	if c.ScratchDir == "" {
		return &ConfigError{Field: "scratchDir", Message: "must not be empty"}
	}
	if len(c.Extensions) == 0 {
		return &ConfigError{Field: "extensions", Message: "at least one extension is required"}
	}
	for _, ext := range c.Extensions {
		if ext == "" || ext == "." {
			return &ConfigError{Field: "extensions", Message: "empty extension"}
		}
	}
	if c.ParseWorkers < 1 {
		return &ConfigError{Field: "parseWorkers", Message: "must be at least 1"}
	}
	if c.QueueSize < 1 {
		return &ConfigError{Field: "queueSize", Message: "must be at least 1"}
	}
	if c.Watch.DebounceMs < 0 {
		return &ConfigError{Field: "watch.debounceMs", Message: "must not be negative"}
	}
	switch strings.ToLower(c.Logging.Format) {
	case "human", "json":
	default:
		return &ConfigError{Field: "logging.format", Message: "must be human or json"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
