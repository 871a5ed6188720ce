// Package testsupport provides shared helpers for package tests.
package testsupport

import (
	"path/filepath"
	"testing"

	"remsync/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.DataDir = filepath.Join(base, "data")
	cfg.Logging.Dir = filepath.Join(base, "logs")

	for _, opt := range opts {
		opt(&cfg)
	}

	return &cfg
}

// WithAddress overrides the device address on the test config.
func WithAddress(address string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Device.Address = address
	}
}

// WithModel overrides the device model on the test config.
func WithModel(model string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Device.Model = model
	}
}

// WithTargetFolder sets the upload target folder on the test config.
func WithTargetFolder(folder string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Device.TargetFolder = folder
	}
}
