package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/abelbrown/visiontext/internal/config"
	"github.com/abelbrown/visiontext/internal/otel"
	"github.com/abelbrown/visiontext/internal/ui"
)

// loadConfig resolves and validates the configuration for --config.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openEventLog opens the JSONL event log under the data directory.
// The returned func flushes the logger and closes the file.
func openEventLog(cfg *config.Config) (*otel.Logger, func(), error) {
	path := cfg.EventLogPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create data directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open event log: %w", err)
	}
	logger := otel.NewLogger(f)
	return logger, func() {
		logger.Close()
		f.Close()
	}, nil
}

func imagePolicy(cfg *config.Config) ui.ImagePolicy {
	return ui.ImagePolicy{MaxBytes: cfg.MaxImageBytes, Allow: cfg.AllowsExtension}
}
