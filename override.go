// FILE: lixenwraith/disklog/override.go
package disklog

import (
	"fmt"
	"strconv"
	"strings"
)

// ApplyOverrides applies string key-value overrides to a clone of cfg and returns the validated result.
// Each override should be in the format "key=value", keys being the toml tags of Config.
//
// Example:
//
//	cfg, err := disklog.ApplyOverrides(disklog.DefaultConfig(),
//	    "directory=/var/log/app",
//	    "max_file_bytes=1048576",
//	    "sweep_schedule=@daily",
//	)
func ApplyOverrides(cfg *Config, overrides ...string) (*Config, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	out := cfg.Clone()

	var errors []error

	for _, override := range overrides {
		key, value, err := parseKeyValue(override)
		if err != nil {
			errors = append(errors, err)
			continue
		}

		if err := applyConfigField(out, key, value); err != nil {
			errors = append(errors, err)
		}
	}

	if len(errors) > 0 {
		return nil, combineConfigErrors(errors)
	}

	if err := out.Validate(); err != nil {
		return nil, err
	}

	return out, nil
}

// combineConfigErrors combines multiple configuration errors into a single error.
func combineConfigErrors(errors []error) error {
	if len(errors) == 1 {
		return errors[0]
	}

	var sb strings.Builder
	sb.WriteString("disklog: multiple configuration errors:")
	for i, err := range errors {
		errMsg := strings.TrimPrefix(err.Error(), "disklog: ")
		sb.WriteString(fmt.Sprintf("\n  %d. %s", i+1, errMsg))
	}
	return fmt.Errorf("%s", sb.String())
}

// applyConfigField applies a single key-value override to a Config.
func applyConfigField(cfg *Config, key, value string) error {
	switch key {
	// Location
	case "directory":
		cfg.Directory = value
	case "folder_name":
		cfg.FolderName = value

	// Size and retention limits
	case "max_file_bytes", "max_folder_bytes", "max_history_days", "buffer_size":
		intVal, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmtErrorf("invalid integer value for %s '%s': %w", key, value, err)
		}
		switch key {
		case "max_file_bytes":
			cfg.MaxFileBytes = intVal
		case "max_folder_bytes":
			cfg.MaxFolderBytes = intVal
		case "max_history_days":
			cfg.MaxHistoryDays = intVal
		case "buffer_size":
			cfg.BufferSize = intVal
		}

	// Sweeps
	case "sweep_schedule":
		cfg.SweepSchedule = value

	// Internal error handling
	case "internal_errors_to_stderr":
		boolVal, err := strconv.ParseBool(value)
		if err != nil {
			return fmtErrorf("invalid boolean value for internal_errors_to_stderr '%s': %w", value, err)
		}
		cfg.InternalErrorsToStderr = boolVal

	default:
		return fmtErrorf("unknown configuration key '%s'", key)
	}

	return nil
}
