// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/jeranaias/jarvis/internal/inference"
	"github.com/jeranaias/jarvis/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config is the complete jarvis configuration.
type Config struct {
	// Ollama server
	Host      string   `toml:"host"`
	Model     string   `toml:"model"`
	KeepAlive Duration `toml:"keep_alive"`

	// Timeouts
	ConnectTimeout       Duration `toml:"connect_timeout"`
	StreamTimeout        Duration `toml:"stream_timeout"`
	DownloadPollInterval Duration `toml:"download_poll_interval"`
	DownloadTimeout      Duration `toml:"download_timeout"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `toml:"log_level"`

	Render     RenderConfig     `toml:"render"`
	Parameters ParametersConfig `toml:"parameters"`
}

// RenderConfig controls terminal output.
type RenderConfig struct {
	BatchSize int `toml:"batch_size"`
	MaxFPS    int `toml:"max_fps"`
	WordWrap  int `toml:"word_wrap"`
}

// ParametersConfig holds the initial inference parameters. Unset fields keep
// their defaults.
type ParametersConfig struct {
	Temperature   *float64 `toml:"temperature,omitempty"`
	TopP          *float64 `toml:"top_p,omitempty"`
	TopK          *int     `toml:"top_k,omitempty"`
	MaxTokens     *int     `toml:"max_tokens,omitempty"`
	RepeatPenalty *float64 `toml:"repeat_penalty,omitempty"`
	Seed          *int     `toml:"seed,omitempty"`
	NumCtx        *int     `toml:"num_ctx,omitempty"`
	Stop          []string `toml:"stop,omitempty"`
}

// Duration is a time.Duration written as a string such as "5m" in TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText parses a duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText formats the duration.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Host:                 inference.DefaultHost,
		Model:                inference.DefaultModel,
		KeepAlive:            Duration{inference.DefaultKeepAlive},
		ConnectTimeout:       Duration{2 * time.Second},
		StreamTimeout:        Duration{5 * time.Minute},
		DownloadPollInterval: Duration{3 * time.Second},
		DownloadTimeout:      Duration{10 * time.Minute},
		LogLevel:             "warn",
		Render: RenderConfig{
			BatchSize: 15,
			MaxFPS:    30,
			WordWrap:  80,
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the jarvis configuration directory.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".jarvis"), nil
}

// DefaultPath returns $JARVIS_CONFIG or ~/.jarvis/config.toml.
func DefaultPath() (string, error) {
	if p := os.Getenv("JARVIS_CONFIG"); p != "" {
		return p, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// LoadDotEnv loads a .env file into the environment. Variables that are
// already set win. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// Load reads the configuration at path (DefaultPath when empty), applies
// environment overrides and validates the result. A missing file yields the
// defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	cfg := Default()
	if _, err := os.Stat(path); err == nil {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, err
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to stat config: %w", err)
	}

	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes the TOML file at path over cfg. Keys that are not part
// of Config are rejected so typos do not go unnoticed.
func LoadTOML(cfg *Config, path string) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
	}
	return nil
}

// SaveTOML writes cfg to path atomically with 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	var buf bytes.Buffer
	fmt.Fprintln(&buf, "# jarvis configuration file")
	fmt.Fprintln(&buf, "")
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// ApplyEnvOverrides applies environment variable overrides.
//
//   - JARVIS_HOST: overrides host
//   - JARVIS_MODEL: overrides model
//   - JARVIS_LOG_LEVEL: overrides log_level
func (c *Config) ApplyEnvOverrides() {
	if host := os.Getenv("JARVIS_HOST"); host != "" {
		c.Host = host
	}
	if model := os.Getenv("JARVIS_MODEL"); model != "" {
		c.Model = model
	}
	if level := os.Getenv("JARVIS_LOG_LEVEL"); level != "" {
		c.LogLevel = level
	}
}

// SetDefaults fills zero values with defaults.
func (c *Config) SetDefaults() {
	d := Default()
	if c.Host == "" {
		c.Host = d.Host
	}
	if c.Model == "" {
		c.Model = d.Model
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
	if c.Render.BatchSize == 0 {
		c.Render.BatchSize = d.Render.BatchSize
	}
	if c.Render.MaxFPS == 0 {
		c.Render.MaxFPS = d.Render.MaxFPS
	}
	if c.Render.WordWrap == 0 {
		c.Render.WordWrap = d.Render.WordWrap
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError is a problem with one field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// Validate checks the configuration and returns ValidateErrors when
// anything is wrong.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if u, err := url.Parse(c.Host); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, ValidationError{
			Field:   "host",
			Message: fmt.Sprintf("invalid URL '%s', must be http:// or https://", c.Host),
		})
	}
	if strings.TrimSpace(c.Model) == "" {
		errs = append(errs, ValidationError{Field: "model", Message: "must not be empty"})
	}

	durations := []struct {
		field string
		value Duration
	}{
		{"keep_alive", c.KeepAlive},
		{"connect_timeout", c.ConnectTimeout},
		{"stream_timeout", c.StreamTimeout},
		{"download_poll_interval", c.DownloadPollInterval},
		{"download_timeout", c.DownloadTimeout},
	}
	for _, d := range durations {
		if d.value.Duration <= 0 {
			errs = append(errs, ValidationError{Field: d.field, Message: "must be positive"})
		}
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, ValidationError{
			Field:   "log_level",
			Message: fmt.Sprintf("invalid level '%s', must be one of: debug, info, warn, error", c.LogLevel),
		})
	}

	if c.Render.BatchSize < 0 {
		errs = append(errs, ValidationError{Field: "render.batch_size", Message: "must not be negative"})
	}
	if c.Render.MaxFPS < 0 || c.Render.MaxFPS > 60 {
		errs = append(errs, ValidationError{Field: "render.max_fps", Message: "must be between 1 and 60"})
	}
	if c.Render.WordWrap < 0 {
		errs = append(errs, ValidationError{Field: "render.word_wrap", Message: "must not be negative"})
	}

	if _, rejected := inference.DefaultParameters().Apply(c.Parameters.Assignments()); len(rejected) > 0 {
		for _, msg := range rejected {
			errs = append(errs, ValidationError{Field: "parameters", Message: msg})
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// SESSION
// =============================================================================

// Assignments returns the configured parameters in /model set form.
func (p ParametersConfig) Assignments() []inference.Assignment {
	var out []inference.Assignment
	addFloat := func(name string, v *float64) {
		if v != nil {
			out = append(out, inference.Assignment{Name: name, Value: strconv.FormatFloat(*v, 'f', -1, 64)})
		}
	}
	addInt := func(name string, v *int) {
		if v != nil {
			out = append(out, inference.Assignment{Name: name, Value: strconv.Itoa(*v)})
		}
	}
	addFloat("temperature", p.Temperature)
	addFloat("top_p", p.TopP)
	addInt("top_k", p.TopK)
	addInt("max_tokens", p.MaxTokens)
	addFloat("repeat_penalty", p.RepeatPenalty)
	addInt("seed", p.Seed)
	addInt("num_ctx", p.NumCtx)
	if len(p.Stop) > 0 {
		out = append(out, inference.Assignment{Name: "stop", Value: strings.Join(p.Stop, ",")})
	}
	return out
}

// Session builds the initial inference session. Invalid parameters are
// skipped; Validate reports them.
func (c *Config) Session() inference.Session {
	params, _ := inference.DefaultParameters().Apply(c.Parameters.Assignments())
	return inference.NewSession(c.Host, c.Model, params).WithKeepAlive(c.KeepAlive.Duration)
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	clone := *c
	p := &clone.Parameters
	p.Temperature = clonePtr(c.Parameters.Temperature)
	p.TopP = clonePtr(c.Parameters.TopP)
	p.TopK = clonePtr(c.Parameters.TopK)
	p.MaxTokens = clonePtr(c.Parameters.MaxTokens)
	p.RepeatPenalty = clonePtr(c.Parameters.RepeatPenalty)
	p.Seed = clonePtr(c.Parameters.Seed)
	p.NumCtx = clonePtr(c.Parameters.NumCtx)
	if c.Parameters.Stop != nil {
		p.Stop = append([]string(nil), c.Parameters.Stop...)
	}
	return &clone
}

func clonePtr[T any](v *T) *T {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}
