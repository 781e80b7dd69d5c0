// Package config loads command-line driver settings from TOML files.
package config

import (
	"fmt"
	"runtime"
	"strings"

	"egt-segmenter/internal/models"

	"github.com/BurntSushi/toml"
)

// Config is the top-level TOML document.
type Config struct {
	Segmentation models.Parameters `toml:"segmentation"`
	Runtime      RuntimeConfig     `toml:"runtime"`
	Logging      LoggingConfig     `toml:"logging"`
}

// RuntimeConfig controls stack scheduling.
type RuntimeConfig struct {
	Workers     int  `toml:"workers"`
	StopOnError bool `toml:"stop_on_error"`
}

// LoggingConfig selects the log level ("debug", "info", ...) and output
// format ("console" or "json").
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Default returns the settings used when no file is given.
func Default() Config {
	return Config{
		Segmentation: models.DefaultParameters(),
		Runtime: RuntimeConfig{
			Workers: runtime.NumCPU(),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads filename over the defaults. Keys the document sets override
// defaults; unknown keys are rejected.
func Load(filename string) (Config, error) {
	cfg := Default()
	md, err := toml.DecodeFile(filename, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("could not decode config file %q: %w", filename, err)
	}
	return finish(cfg, md)
}

// Parse decodes a TOML document held in memory.
func Parse(data string) (Config, error) {
	cfg := Default()
	md, err := toml.Decode(data, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("could not decode config: %w", err)
	}
	return finish(cfg, md)
}

func finish(cfg Config, md toml.MetaData) (Config, error) {
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, models.NewValidationError("config", strings.Join(keys, ", "), "unknown keys")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every section.
func (c Config) Validate() error {
	if err := c.Segmentation.Validate(); err != nil {
		return err
	}
	if c.Runtime.Workers < 0 {
		return models.NewValidationError("workers", c.Runtime.Workers, "must be >= 0")
	}
	return nil
}
