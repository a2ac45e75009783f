// Package config loads tailview settings from defaults, an optional config
// file, TAILVIEW_* environment variables and command-line flags via viper.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/viper"

	"github.com/atikulmunna/tailview/internal/locator"
	"github.com/atikulmunna/tailview/internal/parser"
)

// EnvPrefix is prepended to environment variable names.
const EnvPrefix = "TAILVIEW"

// Config holds every tunable setting.
type Config struct {
	Workspace        string        `mapstructure:"workspace"`
	RootMarker       string        `mapstructure:"root_marker"`
	LogDir           string        `mapstructure:"log_dir"`
	FilePattern      string        `mapstructure:"file_pattern"`
	LineFormat       string        `mapstructure:"line_format"`
	MaxLines         int           `mapstructure:"max_lines"`
	InitialReadBytes int64         `mapstructure:"initial_read_bytes"`
	ReadChunkBytes   int           `mapstructure:"read_chunk_bytes"`
	Debounce         time.Duration `mapstructure:"debounce"`
	Addr             string        `mapstructure:"addr"`
	LogLevel         string        `mapstructure:"log_level"`
	LogFormat        string        `mapstructure:"log_format"`
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("workspace", ".")
	v.SetDefault("root_marker", locator.DefaultRootMarker)
	v.SetDefault("log_dir", locator.DefaultLogDir)
	v.SetDefault("file_pattern", "*")
	v.SetDefault("line_format", string(parser.FormatStandard))
	v.SetDefault("max_lines", 10000)
	v.SetDefault("initial_read_bytes", 262144)
	v.SetDefault("read_chunk_bytes", 65536)
	v.SetDefault("debounce", 75*time.Millisecond)
	v.SetDefault("addr", ":7777")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
}

// NewViper returns a viper instance with defaults and env binding. When
// cfgFile is empty, $HOME/.tailview.* and ./.tailview.* are searched.
func NewViper(cfgFile string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigName(".tailview")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return v, nil
}

// Load decodes and validates the settings held by v.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks ranges and enumerations.
func (c Config) Validate() error {
	var errs []error
	if c.MaxLines <= 0 {
		errs = append(errs, fmt.Errorf("max_lines must be positive, got %d", c.MaxLines))
	}
	if c.InitialReadBytes <= 0 {
		errs = append(errs, fmt.Errorf("initial_read_bytes must be positive, got %d", c.InitialReadBytes))
	}
	if c.ReadChunkBytes <= 0 {
		errs = append(errs, fmt.Errorf("read_chunk_bytes must be positive, got %d", c.ReadChunkBytes))
	}
	if c.Debounce <= 0 {
		errs = append(errs, fmt.Errorf("debounce must be positive, got %s", c.Debounce))
	}
	if _, err := parser.ParseFormat(c.LineFormat); err != nil {
		errs = append(errs, err)
	}
	if !doublestar.ValidatePattern(c.FilePattern) {
		errs = append(errs, fmt.Errorf("invalid file_pattern %q", c.FilePattern))
	}
	if strings.ContainsAny(c.LogDir, `/\`) {
		errs = append(errs, fmt.Errorf("log_dir must be a single directory name, got %q", c.LogDir))
	}
	return errors.Join(errs...)
}

// Format returns the parsed line format. Call after Validate.
func (c Config) Format() parser.Format {
	f, err := parser.ParseFormat(c.LineFormat)
	if err != nil {
		return parser.FormatStandard
	}
	return f
}
