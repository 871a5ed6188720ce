package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"

	"remsync/internal/config"
	"remsync/internal/device"
	"remsync/internal/logging"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) flagPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
	})
	return c.config, c.configErr
}

// ensureLogger builds the process logger. When no format is configured the
// choice follows the terminal: console on a TTY, json otherwise.
func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		format := cfg.Logging.Format
		if format == "" {
			format = "json"
			if isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()) {
				format = "console"
			}
		}
		outputs := []string{"stderr"}
		if cfg.Logging.Dir != "" {
			outputs = append(outputs, filepath.Join(cfg.Logging.Dir, "remsync.log"))
		}
		c.logger, c.loggerErr = logging.New(logging.Options{
			Level:       cfg.Logging.Level,
			Format:      format,
			OutputPaths: outputs,
		})
	})
	return c.logger, c.loggerErr
}

// deviceClient builds a transport client from the loaded config.
func (c *commandContext) deviceClient() (*device.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	return device.NewClient(cfg.Device.Address,
		device.WithLogger(logger),
		device.WithTimeouts(
			time.Duration(cfg.Transport.ListingTimeoutSeconds)*time.Second,
			time.Duration(cfg.Transport.UploadTimeoutSeconds)*time.Second,
			time.Duration(cfg.Transport.ProbeTimeoutSeconds)*time.Second,
		),
	), nil
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
