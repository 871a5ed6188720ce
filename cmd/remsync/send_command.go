package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"remsync/internal/converter"
	"remsync/internal/deps"
	"remsync/internal/device"
	"remsync/internal/library"
	"remsync/internal/logging"
	"remsync/internal/progress"
	"remsync/internal/transfer"
)

func newSendCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "send FILE...",
		Short: "Upload books to the device",
		Long: "Uploads one or more books. EPUBs are converted to device-sized\n" +
			"PDFs first when preferred_format is pdf; conversions run in\n" +
			"parallel, uploads strictly one at a time.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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

			items := make([]*transfer.Item, 0, len(args))
			for _, arg := range args {
				path, err := filepath.Abs(arg)
				if err != nil {
					return fmt.Errorf("resolve %q: %w", arg, err)
				}
				if _, err := os.Stat(path); err != nil {
					return fmt.Errorf("source file: %w", err)
				}
				items = append(items, transfer.NewItem(path, filepath.Base(path), cfg.Device.PreferredFormat))
			}

			if err := checkConverterAvailable(cfg.ConverterBinary(), items); err != nil {
				return err
			}
			if !client.IsReachable(cmd.Context()) {
				return fmt.Errorf("device at %s is not reachable", cfg.Device.Address)
			}

			hub := progress.NewHub()
			events, cancelSub := hub.Subscribe()
			defer cancelSub()
			done := make(chan struct{})
			go func() {
				defer close(done)
				out := cmd.OutOrStdout()
				sampler := progress.NewSampler(0.05)
				for evt := range events {
					if !sampler.ShouldLog(evt) {
						continue
					}
					if evt.Status == "" {
						continue
					}
					fmt.Fprintf(out, "%3.0f%%  %s\n", evt.Fraction*100, evt.Status)
				}
			}()

			conv := converter.NewCLI(
				converter.WithBinary(cfg.ConverterBinary()),
				converter.WithLogger(logger),
			)
			orch := transfer.New(client, device.NewCrawler(client, logger), conv, hub, cfg, logger)

			uploaded, runErr := orch.Run(cmd.Context(), items)
			hub.Reset()
			cancelSub()
			<-done

			if len(uploaded) > 0 {
				if err := recordUploads(cmd, cfg.LibraryDBPath(), items, uploaded); err != nil {
					logger.Warn("book index not updated", logging.Error(err))
				}
			}
			if runErr != nil {
				return runErr
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Uploaded %d book(s): %s\n",
				len(uploaded), strings.Join(uploaded, ", "))
			return nil
		},
	}
	return cmd
}

// checkConverterAvailable fails fast when the batch needs conversions but
// ebook-convert is missing.
func checkConverterAvailable(binary string, items []*transfer.Item) error {
	needed := false
	for _, item := range items {
		if item.NeedsConvert {
			needed = true
			break
		}
	}
	if !needed {
		return nil
	}
	statuses := deps.CheckBinaries(deps.Default(binary))
	if missing := deps.MissingRequired(statuses); len(missing) > 0 {
		return fmt.Errorf("cannot convert EPUBs: %s unavailable (run `remsync deps`)", strings.Join(missing, ", "))
	}
	return nil
}

// recordUploads appends the books that landed on the device to the local
// index.
func recordUploads(cmd *cobra.Command, dbPath string, items []*transfer.Item, uploaded []string) error {
	landed := make(map[string]bool, len(uploaded))
	for _, name := range uploaded {
		landed[name] = true
	}

	store, err := library.OpenStore(cmd.Context(), dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	var books []library.Book
	for _, item := range items {
		if !landed[item.DisplayName] {
			continue
		}
		info, statErr := os.Stat(item.SourcePath)
		book := library.Book{
			LibraryID: item.SourcePath,
			Path:      item.UploadName(),
			Title:     strings.TrimSuffix(item.DisplayName, filepath.Ext(item.DisplayName)),
		}
		if statErr == nil {
			book.Size = info.Size()
			book.ModTime = info.ModTime()
		}
		books = append(books, book)
	}
	return store.Add(cmd.Context(), books...)
}
