package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"remsync/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigShowCommand(ctx))
	configCmd.AddCommand(newConfigValidateCommand(ctx))
	configCmd.AddCommand(newConfigInitCommand())

	return configCmd
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, exists, err := config.Load(ctx.flagPath())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config path: %s (exists: %s)\n", path, yesNo(exists))

			pairs := [][2]string{
				{"device.address", cfg.Device.Address},
				{"device.model", cfg.Device.Model},
				{"device.preferred_format", cfg.Device.PreferredFormat},
				{"device.target_folder", displayFolder(cfg.Device.TargetFolder)},
				{"device.inject_cover", yesNo(cfg.Device.InjectCover)},
				{"device.poll_seconds", strconv.Itoa(cfg.Device.PollSeconds)},
				{"conversion.margin_pt", describeOverride(cfg.Conversion.MarginPt)},
				{"conversion.font_size_pt", describeOverride(cfg.Conversion.FontSizePt)},
				{"conversion.font_family", describeFamily(cfg.Conversion.FontFamily)},
				{"conversion.embed_all_fonts", yesNo(cfg.Conversion.EmbedAllFonts)},
				{"conversion.timeout_seconds", strconv.Itoa(cfg.Conversion.TimeoutSeconds)},
				{"conversion.binary", cfg.ConverterBinary()},
				{"transport.listing_timeout_seconds", strconv.Itoa(cfg.Transport.ListingTimeoutSeconds)},
				{"transport.upload_timeout_seconds", strconv.Itoa(cfg.Transport.UploadTimeoutSeconds)},
				{"transport.probe_timeout_seconds", strconv.Itoa(cfg.Transport.ProbeTimeoutSeconds)},
				{"logging.level", cfg.Logging.Level},
				{"logging.format", describeFamily(cfg.Logging.Format)},
				{"data_dir", cfg.DataDir},
			}
			fmt.Fprintln(out, renderKeyValues("Setting", "Value", pairs))
			return nil
		},
	}
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return fmt.Errorf("determine default config path: %w", err)
				}
				target = defaultPath
			} else {
				expanded, err := config.ExpandPath(target)
				if err != nil {
					return fmt.Errorf("resolve config path: %w", err)
				}
				target = expanded
			}

			dir := filepath.Dir(target)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create config directory %q: %w", dir, err)
			}

			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				} else if err != nil && !os.IsNotExist(err) {
					return fmt.Errorf("check config path: %w", err)
				}
			}

			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Edit the file to set your device model and target folder before syncing.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, exists, err := config.Load(ctx.flagPath())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("ensure directories: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config path: %s\n", path)
			if !exists {
				fmt.Fprintln(out, "Config file did not exist; defaults were used")
			}
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}

func describeOverride(value int) string {
	if value == 0 {
		return "(model default)"
	}
	return strconv.Itoa(value)
}

func describeFamily(value string) string {
	if value == "" {
		return "(default)"
	}
	return value
}
