package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points HOME at an empty dir and runs from another, so no real
// config file is picked up.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Chdir(t.TempDir())
	return home
}

func TestLoadDefaults(t *testing.T) {
	home := isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "http://localhost:8000", cfg.BaseURL)
	assert.Equal(t, 60*time.Second, cfg.ExtractTimeout)
	assert.Equal(t, 10*time.Second, cfg.HistoryTimeout)
	assert.Equal(t, 250*time.Millisecond, cfg.RequestInterval)
	assert.Equal(t, int64(10<<20), cfg.MaxImageBytes)
	assert.Equal(t, []string{".png", ".jpg", ".jpeg", ".gif", ".webp", ".bmp"}, cfg.ImageExtensions)
	assert.Equal(t, filepath.Join(home, ".visiontext"), cfg.DataDir)
	assert.Equal(t, "127.0.0.1:8000", cfg.Fixture.Addr)
	assert.Equal(t, filepath.Join(home, ".visiontext", "fixture.db"), cfg.Fixture.DBPath)
	assert.Equal(t, filepath.Join(home, ".visiontext", "visiontext.events.jsonl"), cfg.EventLogPath())
	assert.Empty(t, cfg.File)
}

func TestLoadEnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("VISIONTEXT_BASE_URL", "http://ocr.internal:9000")
	t.Setenv("VISIONTEXT_EXTRACT_TIMEOUT", "5s")
	t.Setenv("VISIONTEXT_FIXTURE_ADDR", "127.0.0.1:9999")
	t.Setenv("VISIONTEXT_IMAGE_EXTENSIONS", "PNG,.tiff")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "http://ocr.internal:9000", cfg.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.ExtractTimeout)
	assert.Equal(t, "127.0.0.1:9999", cfg.Fixture.Addr)
	assert.Equal(t, []string{".png", ".tiff"}, cfg.ImageExtensions)
}

func TestLoadFromFile(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	content := `
base_url: https://ocr.example.com
history_timeout: 3s
data_dir: ` + dir + `
fixture:
  transcripts_dir: /srv/transcripts
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, path, cfg.File)
	assert.Equal(t, "https://ocr.example.com", cfg.BaseURL)
	assert.Equal(t, 3*time.Second, cfg.HistoryTimeout)
	assert.Equal(t, dir, cfg.DataDir)
	assert.Equal(t, filepath.Join(dir, "fixture.db"), cfg.Fixture.DBPath)
	assert.Equal(t, "/srv/transcripts", cfg.Fixture.TranscriptsDir)
	assert.Equal(t, 60*time.Second, cfg.ExtractTimeout, "unset keys keep defaults")
}

func TestLoadFindsWorkingDirFile(t *testing.T) {
	isolate(t)
	require.NoError(t, os.WriteFile("visiontext.yaml", []byte("base_url: http://cwd:1\n"), 0o644))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "http://cwd:1", cfg.BaseURL)
}

func TestLoadEnvBeatsFile(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "c.yaml")
	require.NoError(t, os.WriteFile(path, []byte("base_url: http://file:1\n"), 0o644))
	t.Setenv("VISIONTEXT_BASE_URL", "http://env:2")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://env:2", cfg.BaseURL)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	isolate(t)
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty base url", func(c *Config) { c.BaseURL = "" }},
		{"relative base url", func(c *Config) { c.BaseURL = "localhost:8000" }},
		{"ftp base url", func(c *Config) { c.BaseURL = "ftp://host" }},
		{"zero extract timeout", func(c *Config) { c.ExtractTimeout = 0 }},
		{"negative history timeout", func(c *Config) { c.HistoryTimeout = -time.Second }},
		{"negative interval", func(c *Config) { c.RequestInterval = -1 }},
		{"zero max bytes", func(c *Config) { c.MaxImageBytes = 0 }},
		{"no extensions", func(c *Config) { c.ImageExtensions = nil }},
		{"no data dir", func(c *Config) { c.DataDir = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			require.Error(t, cfg.Validate())
		})
	}

	require.NoError(t, DefaultConfig().Validate())
}

func TestAllowsExtension(t *testing.T) {
	cfg := DefaultConfig()

	assert.True(t, cfg.AllowsExtension("poster.PNG"))
	assert.True(t, cfg.AllowsExtension("/tmp/a.b/flyer.jpeg"))
	assert.False(t, cfg.AllowsExtension("notes.txt"))
	assert.False(t, cfg.AllowsExtension("README"))
}
