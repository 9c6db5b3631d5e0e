// FILE: lixenwraith/disklog/config.go
package disklog

import (
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/lixenwraith/config"
	"github.com/robfig/cron/v3"
)

// Config holds all sink configuration values
type Config struct {
	// Location
	Directory  string `toml:"directory"`   // Root log directory
	FolderName string `toml:"folder_name"` // Folder under Directory holding the csv files

	// Size and retention limits
	MaxFileBytes   int64 `toml:"max_file_bytes"`   // Max size per log file before rolling
	MaxFolderBytes int64 `toml:"max_folder_bytes"` // Folder size that triggers the size sweep
	MaxHistoryDays int64 `toml:"max_history_days"` // Days to keep logs

	// Worker
	BufferSize int64 `toml:"buffer_size"` // Channel buffer size

	// Sweeps
	SweepSchedule string `toml:"sweep_schedule"` // Cron spec for periodic sweeps, empty = startup only

	// Internal error handling
	InternalErrorsToStderr bool `toml:"internal_errors_to_stderr"` // Write internal errors to stderr
}

// defaultConfig is the single source for all configurable default values
var defaultConfig = Config{
	// Location
	Directory:  "./logs",
	FolderName: "logger",

	// Size and retention limits
	MaxFileBytes:   500 * 1024,
	MaxFolderBytes: 1024 * 1024 * 1024,
	MaxHistoryDays: 60,

	// Worker
	BufferSize: 1024,

	// Sweeps
	SweepSchedule: "",

	// Internal error handling
	InternalErrorsToStderr: false,
}

// DefaultConfig returns a copy of the default configuration
func DefaultConfig() *Config {
	copiedConfig := defaultConfig
	return &copiedConfig
}

// NewConfigFromFile loads configuration from a TOML file and returns a validated Config.
// Keys live under the "disklog." table; a missing file yields the defaults.
func NewConfigFromFile(path string) (*Config, error) {
	loader := config.New()

	if err := RegisterConfig(loader, "disklog."); err != nil {
		return nil, err
	}

	// Load from file (handles file not found gracefully)
	if err := loader.Load(path, nil); err != nil && !errors.Is(err, config.ErrConfigNotFound) {
		return nil, fmtErrorf("failed to load config from %s: %w", path, err)
	}

	return NewConfigFromLoader(loader, "disklog.")
}

// RegisterConfig registers the sink keys with default values under prefix on a host
// application's loader. Call it before the loader reads its sources.
func RegisterConfig(loader *config.Config, prefix string) error {
	if loader == nil {
		return fmtErrorf("config loader cannot be nil")
	}
	if err := loader.RegisterStruct(prefix, defaultConfig); err != nil {
		return fmtErrorf("failed to register config struct: %w", err)
	}
	return nil
}

// NewConfigFromLoader extracts a validated Config from a loader prepared with RegisterConfig.
// Keys are read as prefix + toml tag, e.g. "disklog.max_file_bytes". Missing keys keep defaults.
func NewConfigFromLoader(loader *config.Config, prefix string) (*Config, error) {
	if loader == nil {
		return nil, fmtErrorf("config loader cannot be nil")
	}
	cfg := DefaultConfig()

	if err := extractConfig(loader, prefix, cfg); err != nil {
		return nil, fmtErrorf("failed to extract config values: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// NewConfigFromDefaults creates a Config with default values and applies overrides
func NewConfigFromDefaults(overrides map[string]any) (*Config, error) {
	cfg := DefaultConfig()

	if err := applyOverrides(cfg, overrides); err != nil {
		return nil, fmtErrorf("failed to apply overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// extractConfig extracts values from lixenwraith/config into our Config struct
func extractConfig(loader *config.Config, prefix string, cfg *Config) error {
	v := reflect.ValueOf(cfg).Elem()
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tomlTag := field.Tag.Get("toml")
		if tomlTag == "" {
			continue
		}

		val, found := loader.Get(prefix + tomlTag)
		if !found {
			continue
		}

		if err := setFieldValue(v.Field(i), val); err != nil {
			return fmt.Errorf("failed to set field %s: %w", field.Name, err)
		}
	}

	return nil
}

// applyOverrides applies a map of overrides keyed by toml tag
func applyOverrides(cfg *Config, overrides map[string]any) error {
	v := reflect.ValueOf(cfg).Elem()
	t := v.Type()

	fieldMap := make(map[string]reflect.Value)
	for i := 0; i < t.NumField(); i++ {
		if tomlTag := t.Field(i).Tag.Get("toml"); tomlTag != "" {
			fieldMap[tomlTag] = v.Field(i)
		}
	}

	for key, value := range overrides {
		fieldValue, exists := fieldMap[key]
		if !exists {
			return fmt.Errorf("unknown config key: %s", key)
		}

		if err := setFieldValue(fieldValue, value); err != nil {
			return fmt.Errorf("failed to set %s: %w", key, err)
		}
	}

	return nil
}

// setFieldValue sets a reflect.Value with proper type conversion
func setFieldValue(field reflect.Value, value any) error {
	switch field.Kind() {
	case reflect.String:
		strVal, ok := value.(string)
		if !ok {
			return fmt.Errorf("expected string, got %T", value)
		}
		field.SetString(strVal)

	case reflect.Int64:
		switch v := value.(type) {
		case int64:
			field.SetInt(v)
		case int:
			field.SetInt(int64(v))
		case float64:
			// Some loaders decode every number as float64
			if v != float64(int64(v)) {
				return fmt.Errorf("expected integer, got %v", v)
			}
			field.SetInt(int64(v))
		default:
			return fmt.Errorf("expected int64, got %T", value)
		}

	case reflect.Bool:
		boolVal, ok := value.(bool)
		if !ok {
			return fmt.Errorf("expected bool, got %T", value)
		}
		field.SetBool(boolVal)

	default:
		return fmt.Errorf("unsupported field type: %v", field.Kind())
	}

	return nil
}

// Validate performs validation on the configuration
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Directory) == "" {
		return configErrorf("directory cannot be empty")
	}

	name := strings.TrimSpace(c.FolderName)
	if name == "" {
		return configErrorf("folder_name cannot be empty")
	}
	if name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return configErrorf("folder_name must be a single path element: '%s'", c.FolderName)
	}

	if c.MaxFileBytes <= 0 {
		return configErrorf("max_file_bytes must be positive: %d", c.MaxFileBytes)
	}

	if c.MaxFolderBytes <= 0 {
		return configErrorf("max_folder_bytes must be positive: %d", c.MaxFolderBytes)
	}

	if c.MaxHistoryDays <= 0 {
		return configErrorf("max_history_days must be positive: %d", c.MaxHistoryDays)
	}

	if c.BufferSize <= 0 {
		return configErrorf("buffer_size must be positive: %d", c.BufferSize)
	}

	if c.SweepSchedule != "" {
		if _, err := cron.ParseStandard(c.SweepSchedule); err != nil {
			return configErrorf("invalid sweep_schedule '%s': %v", c.SweepSchedule, err)
		}
	}

	return nil
}

// Clone creates a deep copy of the configuration
func (c *Config) Clone() *Config {
	copiedConfig := *c
	return &copiedConfig
}

// FolderPath returns the folder holding the log files
func (c *Config) FolderPath() string {
	return filepath.Join(c.Directory, c.FolderName)
}
