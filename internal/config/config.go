// Package config loads VisionText settings from defaults, an optional YAML
// file and VISIONTEXT_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g.
// VISIONTEXT_BASE_URL or VISIONTEXT_FIXTURE_ADDR.
const EnvPrefix = "VISIONTEXT"

// Config is the resolved application configuration.
type Config struct {
	BaseURL         string        `mapstructure:"base_url"`
	ExtractTimeout  time.Duration `mapstructure:"extract_timeout"`
	HistoryTimeout  time.Duration `mapstructure:"history_timeout"`
	RequestInterval time.Duration `mapstructure:"request_interval"`
	MaxImageBytes   int64         `mapstructure:"max_image_bytes"`
	ImageExtensions []string      `mapstructure:"image_extensions"`
	DataDir         string        `mapstructure:"data_dir"`
	Fixture         FixtureConfig `mapstructure:"fixture"`

	// File is the config file that was read, empty when none was found.
	File string `mapstructure:"-"`
}

// FixtureConfig configures the local fixture backend.
type FixtureConfig struct {
	Addr           string `mapstructure:"addr"`
	DBPath         string `mapstructure:"db_path"`
	TranscriptsDir string `mapstructure:"transcripts_dir"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:         "http://localhost:8000",
		ExtractTimeout:  60 * time.Second,
		HistoryTimeout:  10 * time.Second,
		RequestInterval: 250 * time.Millisecond,
		MaxImageBytes:   10 << 20,
		ImageExtensions: []string{".png", ".jpg", ".jpeg", ".gif", ".webp", ".bmp"},
		DataDir:         "~/.visiontext",
		Fixture: FixtureConfig{
			Addr:           "127.0.0.1:8000",
			TranscriptsDir: "./transcripts",
		},
	}
}

// Load resolves the configuration. cfgFile, when set, must exist; otherwise
// ./visiontext.yaml and then ~/.visiontext/config.yaml are tried.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	d := DefaultConfig()
	v.SetDefault("base_url", d.BaseURL)
	v.SetDefault("extract_timeout", d.ExtractTimeout)
	v.SetDefault("history_timeout", d.HistoryTimeout)
	v.SetDefault("request_interval", d.RequestInterval)
	v.SetDefault("max_image_bytes", d.MaxImageBytes)
	v.SetDefault("image_extensions", d.ImageExtensions)
	v.SetDefault("data_dir", d.DataDir)
	v.SetDefault("fixture.addr", d.Fixture.Addr)
	v.SetDefault("fixture.db_path", "")
	v.SetDefault("fixture.transcripts_dir", d.Fixture.TranscriptsDir)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	path := cfgFile
	if path == "" {
		path = findConfigFile()
	} else if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file: %w", err)
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()

	cfg.DataDir = expandHome(cfg.DataDir)
	if cfg.Fixture.DBPath == "" {
		cfg.Fixture.DBPath = filepath.Join(cfg.DataDir, "fixture.db")
	}
	cfg.Fixture.DBPath = expandHome(cfg.Fixture.DBPath)
	cfg.Fixture.TranscriptsDir = expandHome(cfg.Fixture.TranscriptsDir)
	cfg.ImageExtensions = normalizeExtensions(cfg.ImageExtensions)

	return &cfg, nil
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if c.BaseURL == "" || err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("config: base_url %q must be an absolute http(s) URL", c.BaseURL)
	}
	if c.ExtractTimeout <= 0 {
		return fmt.Errorf("config: extract_timeout must be positive, got %s", c.ExtractTimeout)
	}
	if c.HistoryTimeout <= 0 {
		return fmt.Errorf("config: history_timeout must be positive, got %s", c.HistoryTimeout)
	}
	if c.RequestInterval < 0 {
		return fmt.Errorf("config: request_interval must not be negative, got %s", c.RequestInterval)
	}
	if c.MaxImageBytes <= 0 {
		return fmt.Errorf("config: max_image_bytes must be positive, got %d", c.MaxImageBytes)
	}
	if len(c.ImageExtensions) == 0 {
		return errors.New("config: image_extensions must not be empty")
	}
	if c.DataDir == "" {
		return errors.New("config: data_dir must not be empty")
	}
	return nil
}

// EventLogPath is where the JSONL diagnostic log is written.
func (c *Config) EventLogPath() string {
	return filepath.Join(c.DataDir, "visiontext.events.jsonl")
}

// AllowsExtension reports whether name has one of the configured image
// extensions. Matching is case-insensitive.
func (c *Config) AllowsExtension(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range c.ImageExtensions {
		if e == ext {
			return true
		}
	}
	return false
}

func findConfigFile() string {
	candidates := []string{"visiontext.yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".visiontext", "config.yaml"))
	}
	for _, p := range candidates {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p
		}
	}
	return ""
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}

// normalizeExtensions lower-cases entries and adds a missing leading dot.
// A single entry with spaces or commas (typical of env overrides) is split.
func normalizeExtensions(in []string) []string {
	var out []string
	for _, raw := range in {
		for _, e := range strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ' ' }) {
			e = strings.ToLower(strings.TrimSpace(e))
			if e == "" {
				continue
			}
			if !strings.HasPrefix(e, ".") {
				e = "." + e
			}
			out = append(out, e)
		}
	}
	return out
}
