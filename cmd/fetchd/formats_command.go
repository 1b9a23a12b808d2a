package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"fetchd/internal/downloader"
)

func newFormatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "formats <url>",
		Short: "List the formats available for a URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			executor := downloader.NewYtDlp(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
			formats, err := executor.ListFormats(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(formats))
			for _, format := range formats {
				rows = append(rows, []string{format.ID, format.Extension, format.Resolution, format.Note})
			}
			out := renderTable(
				[]string{"ID", "Ext", "Resolution", "Notes"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
			)
			fmt.Fprintln(cmd.OutOrStdout(), out)
			fmt.Fprintln(cmd.OutOrStdout(), "Queue a specific format with: fetchd queue add --kind generic_quality --format <ID> <url>")
			return nil
		},
	}
}
