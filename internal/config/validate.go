package config

import (
	"errors"
	"fmt"
	"strings"
)

// KnownModels lists the device models with conversion profiles.
var KnownModels = []string{"rm2", "paper-pro", "pro-move"}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateDevice(); err != nil {
		return err
	}
	if err := c.validateConversion(); err != nil {
		return err
	}
	return c.validateTransport()
}

func (c *Config) validateDevice() error {
	if strings.TrimSpace(c.Device.Address) == "" {
		return errors.New("device.address must be set (enable Settings > Storage on the device and connect via USB)")
	}
	switch c.Device.PreferredFormat {
	case "epub", "pdf":
	default:
		return fmt.Errorf("device.preferred_format must be \"epub\" or \"pdf\", got %q", c.Device.PreferredFormat)
	}
	model := c.Device.Model
	for _, known := range KnownModels {
		if model == known {
			return nil
		}
	}
	return fmt.Errorf("device.model must be one of %s, got %q", strings.Join(KnownModels, ", "), model)
}

func (c *Config) validateConversion() error {
	if c.Conversion.MarginPt < 0 {
		return errors.New("conversion.margin_pt must not be negative")
	}
	if c.Conversion.FontSizePt < 0 {
		return errors.New("conversion.font_size_pt must not be negative")
	}
	if c.Conversion.TimeoutSeconds <= 0 {
		return errors.New("conversion.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateTransport() error {
	if c.Transport.ListingTimeoutSeconds <= 0 {
		return errors.New("transport.listing_timeout_seconds must be positive")
	}
	if c.Transport.UploadTimeoutSeconds <= 0 {
		return errors.New("transport.upload_timeout_seconds must be positive")
	}
	if c.Transport.ProbeTimeoutSeconds <= 0 {
		return errors.New("transport.probe_timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) normalize() error {
	c.Device.Address = strings.TrimSpace(c.Device.Address)
	c.Device.Model = strings.ToLower(strings.TrimSpace(c.Device.Model))
	c.Device.PreferredFormat = strings.ToLower(strings.TrimSpace(c.Device.PreferredFormat))
	c.Device.TargetFolder = strings.Trim(strings.TrimSpace(c.Device.TargetFolder), "/")
	if c.Device.PollSeconds <= 0 {
		c.Device.PollSeconds = defaultPollSeconds
	}

	for _, field := range []struct {
		value *string
	}{
		{&c.DataDir},
		{&c.Logging.Dir},
	} {
		expanded, err := expandPath(*field.value)
		if err != nil {
			return err
		}
		*field.value = expanded
	}
	return nil
}
