package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"remsync/internal/session"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Probe the device and show connection state",
		RunE: func(cmd *cobra.Command, args []string) error {
			if watch {
				return runStatusWatch(ctx, cmd)
			}
			return runStatusOnce(ctx, cmd)
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Keep watching for attach and detach events")
	return cmd
}

func runStatusOnce(ctx *commandContext, cmd *cobra.Command) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	client, err := ctx.deviceClient()
	if err != nil {
		return err
	}

	reachable := client.IsReachable(cmd.Context())
	out := cmd.OutOrStdout()

	pairs := [][2]string{
		{"Address", cfg.Device.Address},
		{"Model", cfg.Device.Model},
		{"Reachable", yesNo(reachable)},
		{"Preferred format", cfg.Device.PreferredFormat},
		{"Target folder", displayFolder(cfg.Device.TargetFolder)},
	}
	if reachable {
		current := session.New(cfg.Device.Address, cfg.Device.Model)
		pairs = append(pairs, [2]string{"Session", current.ID.String()})
	}
	fmt.Fprintln(out, renderKeyValues("Field", "Value", pairs))

	if !reachable {
		return fmt.Errorf("device at %s is not reachable; check the USB cable and that the web interface is enabled", cfg.Device.Address)
	}
	return nil
}

func runStatusWatch(ctx *commandContext, cmd *cobra.Command) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	client, err := ctx.deviceClient()
	if err != nil {
		return err
	}
	logger, err := ctx.ensureLogger()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	monitor := session.NewMonitor(client, session.MonitorOptions{
		Model:        cfg.Device.Model,
		PollInterval: cfg.PollInterval(),
		Logger:       logger,
		OnAttach: func(s session.Session) {
			fmt.Fprintf(out, "attached  %s (session %s)\n", s.Address, s.ID)
		},
		OnDetach: func(s session.Session) {
			fmt.Fprintf(out, "detached  %s after %s\n", s.Address, s.Age().Round(time.Second))
		},
	})

	watchCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	monitor.Start(watchCtx)
	defer monitor.Stop()

	watcher := session.NewUSBWatcher(monitor, logger)
	if err := watcher.Start(watchCtx); err != nil {
		return err
	}
	defer watcher.Stop()

	fmt.Fprintf(out, "watching %s every %s, Ctrl-C to stop\n", cfg.Device.Address, cfg.PollInterval())
	<-watchCtx.Done()
	return nil
}

func displayFolder(folder string) string {
	if folder == "" {
		return "(root)"
	}
	return folder
}
