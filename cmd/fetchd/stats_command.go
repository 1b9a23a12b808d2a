package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"fetchd/internal/queue"
)

func newStatsCommand(ctx *commandContext) *cobra.Command {
	var requesterID int64

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show queue statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *queue.Store) error {
				items, err := store.Load(cmd.Context())
				if err != nil {
					return err
				}
				if requesterID != 0 {
					filtered := items[:0]
					for _, item := range items {
						if item.RequesterID == requesterID {
							filtered = append(filtered, item)
						}
					}
					items = filtered
				}

				stats := queue.Compute(items)
				out := cmd.OutOrStdout()

				fmt.Fprintf(out, "Total items:     %d\n", stats.Total)
				fmt.Fprintf(out, "Success rate:    %.1f%%\n", stats.SuccessRate*100)
				if stats.AvgProcessing > 0 {
					fmt.Fprintf(out, "Processing time: avg %s, min %s, max %s\n",
						roundDuration(stats.AvgProcessing),
						roundDuration(stats.MinProcessing),
						roundDuration(stats.MaxProcessing),
					)
				}

				rows := make([][]string, 0, len(queue.AllStatuses()))
				for _, status := range queue.AllStatuses() {
					if count := stats.ByStatus[status]; count > 0 {
						rows = append(rows, []string{string(status), fmt.Sprintf("%d", count)})
					}
				}
				if len(rows) > 0 {
					fmt.Fprintln(out, renderTable(
						[]string{"Status", "Count"},
						rows,
						[]columnAlignment{alignLeft, alignRight},
					))
				}

				rows = rows[:0]
				for _, kind := range queue.AllKinds() {
					if count := stats.ByKind[kind]; count > 0 {
						rows = append(rows, []string{string(kind), fmt.Sprintf("%d", count)})
					}
				}
				if len(rows) > 0 {
					fmt.Fprintln(out, renderTable(
						[]string{"Kind", "Count"},
						rows,
						[]columnAlignment{alignLeft, alignRight},
					))
				}
				return nil
			})
		},
	}

	cmd.Flags().Int64Var(&requesterID, "requester", 0, "Limit statistics to one requester")
	return cmd
}

func roundDuration(d time.Duration) time.Duration {
	return d.Round(100 * time.Millisecond)
}
