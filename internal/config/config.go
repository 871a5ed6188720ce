// Package config loads and validates the remsync configuration file.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Device contains settings describing the target reMarkable.
type Device struct {
	Address         string `toml:"address"`
	Model           string `toml:"model"`
	PreferredFormat string `toml:"preferred_format"`
	TargetFolder    string `toml:"target_folder"`
	InjectCover     bool   `toml:"inject_cover"`
	PollSeconds     int    `toml:"poll_seconds"`
}

// Conversion contains EPUB-to-PDF conversion overrides. Zero or empty values
// fall back to the device model defaults.
type Conversion struct {
	MarginPt       int    `toml:"margin_pt"`
	FontSizePt     int    `toml:"font_size_pt"`
	FontFamily     string `toml:"font_family"`
	EmbedAllFonts  bool   `toml:"embed_all_fonts"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	Binary         string `toml:"binary"`
}

// Transport contains HTTP budgets for the device interface.
type Transport struct {
	ListingTimeoutSeconds int `toml:"listing_timeout_seconds"`
	UploadTimeoutSeconds  int `toml:"upload_timeout_seconds"`
	ProbeTimeoutSeconds   int `toml:"probe_timeout_seconds"`
}

// Logging contains log output settings.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	Dir    string `toml:"dir"`
}

// Config is the root configuration document.
type Config struct {
	DataDir    string     `toml:"data_dir"`
	Device     Device     `toml:"device"`
	Conversion Conversion `toml:"conversion"`
	Transport  Transport  `toml:"transport"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration
// file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/remsync/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. A missing file yields
// defaults.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates the directories remsync writes to.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.DataDir, c.Logging.Dir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// LibraryDBPath returns the local book index location.
func (c *Config) LibraryDBPath() string {
	return filepath.Join(c.DataDir, "library.db")
}

// PollInterval returns the presence probe cadence.
func (c *Config) PollInterval() time.Duration {
	if c.Device.PollSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.Device.PollSeconds) * time.Second
}

// ConvertTimeout returns the per-book conversion budget.
func (c *Config) ConvertTimeout() time.Duration {
	return time.Duration(c.Conversion.TimeoutSeconds) * time.Second
}

// ConverterBinary returns the ebook-convert executable name or override.
func (c *Config) ConverterBinary() string {
	if b := strings.TrimSpace(c.Conversion.Binary); b != "" {
		return b
	}
	return "ebook-convert"
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}
