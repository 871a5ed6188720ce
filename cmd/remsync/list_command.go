package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"remsync/internal/device"
	"remsync/internal/library"
	"remsync/internal/progress"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	var idsOnly bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Crawl the device and list its documents",
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

			crawler := device.NewCrawler(client, logger)
			tree, err := crawler.BuildTree(cmd.Context(), "", device.CrawlOptions{
				OnProgress: func(count int) {
					logger.Debug("scan progress",
						"entries", count,
						"fraction", progress.ScanFraction(count))
				},
			})
			if err != nil {
				return fmt.Errorf("crawl device: %w", err)
			}

			remote := library.BooksFromTree(tree)

			store, err := library.OpenStore(cmd.Context(), cfg.LibraryDBPath())
			if err != nil {
				return err
			}
			defer store.Close()

			local, err := store.List(cmd.Context())
			if err != nil {
				return err
			}
			merged, remoteView := library.Reconcile(local, remote)
			if err := store.Replace(cmd.Context(), merged); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if idsOnly {
				for _, book := range remote {
					fmt.Fprintln(out, book.DeviceID)
				}
				return nil
			}

			rows := make([][]string, 0, len(remoteView))
			for _, book := range remoteView {
				location := "device"
				if book.DeviceID == "" {
					location = "local only"
				}
				rows = append(rows, []string{book.Title, book.Path, location})
			}
			fmt.Fprintln(out, renderListing([]string{"Title", "Path", "Where"}, rows))
			fmt.Fprintf(out, "%s documents on device, %s tracked\n",
				strconv.Itoa(len(remote)), strconv.Itoa(len(merged)))
			return nil
		},
	}

	cmd.Flags().BoolVar(&idsOnly, "ids", false, "Print document ids only")
	return cmd
}
