// Package config provides configuration types and loading for goserdes.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable the CLI reads.
const EnvPrefix = "GOSERDES"

// Config holds all configuration options.
type Config struct {
	TemplatesDir string   `mapstructure:"templates_dir"`
	TemplateExt  string   `mapstructure:"template_ext"`
	Manifests    []string `mapstructure:"manifest"` // kinds files loaded before any document
	LogLevel     string   `mapstructure:"log_level"`
	Language     string   `mapstructure:"language"` // "en" or "ja"
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		TemplatesDir: "templates",
		TemplateExt:  ".tmpl",
		LogLevel:     "warn",
		Language:     "en",
	}
}

// New returns a viper instance with defaults and environment bindings
// installed. TEMPLATES_DIR is honored without prefix; GOSERDES_TEMPLATES_DIR
// wins when both are set.
func New() *viper.Viper {
	v := viper.New()
	d := Defaults()
	v.SetDefault("templates_dir", d.TemplatesDir)
	v.SetDefault("template_ext", d.TemplateExt)
	v.SetDefault("manifest", d.Manifests)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("language", d.Language)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("templates_dir", EnvPrefix+"_TEMPLATES_DIR", "TEMPLATES_DIR")
	return v
}

// Load reads the config file into v and decodes the result. An explicit
// path must exist; otherwise goserdes.yaml in the working directory is used
// when present.
func Load(v *viper.Viper, path string) (Config, error) {
	switch {
	case path != "":
		v.SetConfigFile(path)
	default:
		v.SetConfigName("goserdes")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &nf) {
			return Config{}, fmt.Errorf("reading config: %w", err)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks option values.
func (c Config) Validate() error {
	if _, err := c.Level(); err != nil {
		return err
	}
	switch c.Language {
	case "en", "ja":
	default:
		return fmt.Errorf("language must be en or ja, got %q", c.Language)
	}
	if c.TemplateExt != "" && !strings.HasPrefix(c.TemplateExt, ".") {
		return fmt.Errorf("template_ext must start with a dot, got %q", c.TemplateExt)
	}
	return nil
}

// Level parses LogLevel.
func (c Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("log_level: %w", err)
	}
	return l, nil
}
