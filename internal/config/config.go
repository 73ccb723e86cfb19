// Package config loads adbtool settings.
//
// Settings come from, lowest priority first: built-in defaults, an
// optional adbtool.cue file validated against an embedded CUE schema, and
// ADBTOOL_* environment variables (ADBTOOL_PARSE_WORKERS=4 sets
// parse.workers).
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/viper"

	"github.com/actiondb/actiondb-go/internal/safefile"
)

const (
	// AppName is the application name.
	AppName = "adbtool"
	// ConfigFileName is the config file name without extension.
	ConfigFileName = "adbtool"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"
	// EnvPrefix prefixes every environment variable override.
	EnvPrefix = "ADBTOOL"

	maxConfigFileSize = 1024 * 1024
)

// Output formats accepted by parse.format.
const (
	FormatJSONL  = "jsonl"
	FormatPretty = "pretty"
)

//go:embed config_schema.cue
var configSchema string

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

type (
	// Config is the complete tool configuration.
	Config struct {
		Patterns PatternsConfig `mapstructure:"patterns"`
		Parse    ParseConfig    `mapstructure:"parse"`
		Log      LogConfig      `mapstructure:"log"`
	}

	// PatternsConfig locates the pattern file.
	PatternsConfig struct {
		File string `mapstructure:"file"`
	}

	// ParseConfig holds the defaults of the parse command.
	ParseConfig struct {
		Workers          int    `mapstructure:"workers"`
		Format           string `mapstructure:"format"`
		IncludeRaw       bool   `mapstructure:"include_raw"`
		IncludeUnmatched bool   `mapstructure:"include_unmatched"`
	}

	// LogConfig configures diagnostics output.
	LogConfig struct {
		Level string `mapstructure:"level"`
	}

	// LoadOptions overrides where Load looks for the config file.
	LoadOptions struct {
		// ConfigFilePath, when set, is the only file considered and must exist.
		ConfigFilePath string
		// ConfigDirPath replaces the user config directory.
		ConfigDirPath string
	}
)

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Parse: ParseConfig{
			Format:           FormatJSONL,
			IncludeUnmatched: true,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Dir returns the user config directory for adbtool
// ($XDG_CONFIG_HOME/adbtool on Linux).
func Dir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get config directory: %w", err)
	}
	return filepath.Join(dir, AppName), nil
}

// Load builds the configuration. Without an explicit file it looks for
// adbtool.cue in the working directory, then in the config directory; a
// missing file is not an error. The second return value is the file that
// was loaded, if any.
func Load(opts LoadOptions) (*Config, string, error) {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("patterns.file", defaults.Patterns.File)
	v.SetDefault("parse.workers", defaults.Parse.Workers)
	v.SetDefault("parse.format", defaults.Parse.Format)
	v.SetDefault("parse.include_raw", defaults.Parse.IncludeRaw)
	v.SetDefault("parse.include_unmatched", defaults.Parse.IncludeUnmatched)
	v.SetDefault("log.level", defaults.Log.Level)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	path, err := findConfigFile(opts)
	if err != nil {
		return nil, "", err
	}
	if path != "" {
		if err := loadCUEIntoViper(v, path); err != nil {
			return nil, "", fmt.Errorf("load configuration %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return &cfg, path, nil
}

// Validate checks values that may have come from the environment, which
// the CUE schema never sees.
func (c *Config) Validate() error {
	if c.Parse.Workers < 0 {
		return fmt.Errorf("%w: parse.workers must be non-negative, got %d", ErrInvalidConfig, c.Parse.Workers)
	}
	switch c.Parse.Format {
	case FormatJSONL, FormatPretty:
	default:
		return fmt.Errorf("%w: parse.format must be %q or %q, got %q", ErrInvalidConfig, FormatJSONL, FormatPretty, c.Parse.Format)
	}
	if _, err := charmlog.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: log.level: %v", ErrInvalidConfig, err)
	}
	return nil
}

func findConfigFile(opts LoadOptions) (string, error) {
	name := ConfigFileName + "." + ConfigFileExt

	if opts.ConfigFilePath != "" {
		if !fileExists(opts.ConfigFilePath) {
			return "", fmt.Errorf("config file not found: %s", opts.ConfigFilePath)
		}
		return opts.ConfigFilePath, nil
	}

	if fileExists(name) {
		return name, nil
	}

	dir := opts.ConfigDirPath
	if dir == "" {
		var err error
		if dir, err = Dir(); err != nil {
			// No home directory: run on defaults.
			return "", nil
		}
	}
	if path := filepath.Join(dir, name); fileExists(path) {
		return path, nil
	}
	return "", nil
}

// loadCUEIntoViper validates a CUE file against #Config and merges it into
// v, keeping defaults and environment overrides in place.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := safefile.ReadRegular(path, maxConfigFileSize)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	ctx := cuecontext.New()
	schemaValue := ctx.CompileString(configSchema)
	if schemaValue.Err() != nil {
		return fmt.Errorf("internal error: failed to compile config schema: %w", schemaValue.Err())
	}

	userValue := ctx.CompileBytes(data, cue.Filename(path))
	if userValue.Err() != nil {
		return userValue.Err()
	}

	schema := schemaValue.LookupPath(cue.ParsePath("#Config"))
	unified := schema.Unify(userValue)
	if err := unified.Validate(cue.Concrete(false)); err != nil {
		return err
	}

	var configMap map[string]any
	if err := unified.Decode(&configMap); err != nil {
		return err
	}
	if err := v.MergeConfigMap(configMap); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
