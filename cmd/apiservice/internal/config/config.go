// Package config loads the apiservice server configuration.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

// Config is the server configuration. Devtools serves the "devtools"
// introspection service next to the handler catalog.
type Config struct {
	Listen             string  `yaml:"listen" validate:"required,hostname_port"`
	Prefix             string  `yaml:"prefix" validate:"omitempty,startswith=/"`
	MaskInternalErrors bool    `yaml:"mask_internal_errors"`
	MaxBodySize        int64   `yaml:"max_body_size" validate:"gte=0"`
	Log                Log     `yaml:"log"`
	Metrics            Metrics `yaml:"metrics"`
	CORS               CORS    `yaml:"cors"`
	Devtools           bool    `yaml:"devtools"`
}

// Log configures the server logger.
type Log struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

// Metrics configures the Prometheus endpoint.
type Metrics struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path" validate:"required,startswith=/"`
}

// CORS configures cross-origin access to the dispatch routes.
type CORS struct {
	Enabled          bool     `yaml:"enabled"`
	AllowOrigins     []string `yaml:"allow_origins" validate:"dive,required"`
	AllowCredentials bool     `yaml:"allow_credentials"`
	MaxAge           int      `yaml:"max_age" validate:"gte=0"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Listen:      ":8080",
		Prefix:      "/api",
		MaxBodySize: 1 << 20,
		Log: Log{
			Level:  "info",
			Format: "text",
		},
		Metrics: Metrics{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// Load reads a YAML file over the defaults. An empty path returns the
// defaults. Unknown keys are rejected. The result is not validated; callers
// apply their overrides first and then call Validate.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var valErrs validator.ValidationErrors
	if !errors.As(err, &valErrs) {
		return fmt.Errorf("invalid config: %w", err)
	}
	messages := make([]string, 0, len(valErrs))
	for _, ve := range valErrs {
		msg := ve.Namespace() + ": failed " + ve.Tag()
		if ve.Param() != "" {
			msg += "=" + ve.Param()
		}
		messages = append(messages, msg)
	}
	return fmt.Errorf("invalid config: %s", strings.Join(messages, "; "))
}

// NewLogger builds a slog logger writing to w.
func (l Log) NewLogger(w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if l.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
