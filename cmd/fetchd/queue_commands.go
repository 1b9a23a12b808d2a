package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"fetchd/internal/queue"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the download queue",
	}

	queueCmd.AddCommand(newQueueAddCommand(ctx))
	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueShowCommand(ctx))
	queueCmd.AddCommand(newQueueCancelCommand(ctx))
	queueCmd.AddCommand(newQueueRemoveCommand(ctx))
	queueCmd.AddCommand(newQueueRetryCommand(ctx))
	queueCmd.AddCommand(newQueueClearCommand(ctx))
	queueCmd.AddCommand(newQueueClearCompletedCommand(ctx))
	queueCmd.AddCommand(newQueueCleanupCommand(ctx))

	return queueCmd
}

func newQueueAddCommand(ctx *commandContext) *cobra.Command {
	var (
		requesterID   int64
		requesterName string
		kindFlag      string
		priorityFlag  string
		playlistIndex int
		cutStart      string
		cutEnd        string
		formatID      string
	)

	cmd := &cobra.Command{
		Use:   "add <url>",
		Short: "Enqueue a download",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, ok := queue.ParseJobKind(kindFlag)
			if !ok {
				return fmt.Errorf("unknown kind %q (known: %s)", kindFlag, joinKinds())
			}
			priority, ok := queue.ParsePriority(priorityFlag)
			if !ok {
				return fmt.Errorf("unknown priority %q (known: %s)", priorityFlag, joinPriorities())
			}

			params, err := buildParams(kind, playlistIndex, cutStart, cutEnd, formatID)
			if err != nil {
				return err
			}

			return ctx.withManager(func(manager *queue.Manager) error {
				item, err := manager.Add(cmd.Context(), queue.Request{
					RequesterID:   requesterID,
					RequesterName: requesterName,
					SourceURL:     args[0],
					Kind:          kind,
					Priority:      priority,
					Params:        params,
				})
				if err != nil {
					return err
				}
				position := manager.Position(item.ID)
				fmt.Fprintf(cmd.OutOrStdout(), "Queued %s as %s (position %d)\n", item.SourceURL, item.ID, position)
				return nil
			})
		},
	}

	cmd.Flags().Int64Var(&requesterID, "requester", 0, "Requester id the item belongs to")
	cmd.Flags().StringVar(&requesterName, "requester-name", "", "Display name for the requester")
	cmd.Flags().StringVar(&kindFlag, "kind", string(queue.KindVideo), "Job kind: "+joinKinds())
	cmd.Flags().StringVar(&priorityFlag, "priority", string(queue.PriorityNormal), "Priority: "+joinPriorities())
	cmd.Flags().IntVar(&playlistIndex, "playlist-index", 0, "Playlist entry to download (playlist kind)")
	cmd.Flags().StringVar(&cutStart, "cut-start", "", "Cut start marker, e.g. 00:01:30 (video_cut kind)")
	cmd.Flags().StringVar(&cutEnd, "cut-end", "", "Cut end marker (video_cut kind)")
	cmd.Flags().StringVar(&formatID, "format", "", "Format id (generic_quality kind)")
	return cmd
}

func buildParams(kind queue.JobKind, playlistIndex int, cutStart, cutEnd, formatID string) (queue.Params, error) {
	switch kind {
	case queue.KindPlaylist:
		if playlistIndex < 1 {
			return nil, fmt.Errorf("--playlist-index is required for playlist downloads")
		}
		return queue.PlaylistParams{Index: playlistIndex}, nil
	case queue.KindVideoCut:
		if cutStart == "" || cutEnd == "" {
			return nil, fmt.Errorf("--cut-start and --cut-end are required for video_cut downloads")
		}
		return queue.CutParams{Start: cutStart, End: cutEnd}, nil
	case queue.KindGenericQuality:
		if formatID == "" {
			return nil, fmt.Errorf("--format is required for generic_quality downloads")
		}
		return queue.QualityParams{FormatID: formatID}, nil
	default:
		return queue.DefaultParams(kind)
	}
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var requesterID int64

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queue items in scheduling order",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *queue.Store) error {
				items, err := store.Load(cmd.Context())
				if err != nil {
					return err
				}

				rows := make([][]string, 0, len(items))
				for _, item := range items {
					if requesterID != 0 && item.RequesterID != requesterID {
						continue
					}
					rows = append(rows, []string{
						shortID(item.ID),
						displayName(item.RequesterName, item.RequesterID),
						string(item.Kind),
						string(item.Priority),
						string(item.Status),
						formatProgress(item),
						truncateURL(item.SourceURL),
					})
				}
				if len(rows) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty.")
					return nil
				}

				out := renderTable(
					[]string{"ID", "Requester", "Kind", "Priority", "Status", "Progress", "URL"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
				)
				fmt.Fprintln(cmd.OutOrStdout(), out)
				return nil
			})
		},
	}

	cmd.Flags().Int64Var(&requesterID, "requester", 0, "Show only one requester's items")
	return cmd
}

func newQueueShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <item-id>",
		Short: "Show one queue item in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *queue.Store) error {
				items, err := store.Load(cmd.Context())
				if err != nil {
					return err
				}
				item := findByPrefix(items, args[0])
				if item == nil {
					return fmt.Errorf("no queue item matches %q", args[0])
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "ID:         %s\n", item.ID)
				fmt.Fprintf(out, "Requester:  %s\n", displayName(item.RequesterName, item.RequesterID))
				fmt.Fprintf(out, "URL:        %s\n", item.SourceURL)
				fmt.Fprintf(out, "Kind:       %s\n", item.Kind)
				fmt.Fprintf(out, "Priority:   %s\n", item.Priority)
				fmt.Fprintf(out, "Status:     %s\n", item.Status)
				fmt.Fprintf(out, "Progress:   %s\n", formatProgress(item))
				fmt.Fprintf(out, "Retries:    %d/%d\n", item.RetryCount, item.MaxRetries)
				fmt.Fprintf(out, "Created:    %s\n", formatTime(&item.CreatedAt))
				fmt.Fprintf(out, "Started:    %s\n", formatTime(item.StartedAt))
				fmt.Fprintf(out, "Completed:  %s\n", formatTime(item.CompletedAt))
				if item.ErrorMessage != "" {
					fmt.Fprintf(out, "Error:      %s\n", item.ErrorMessage)
				}
				return nil
			})
		},
	}
}

func newQueueCancelCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <item-id>",
		Short: "Cancel a pending or active download",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withManager(func(manager *queue.Manager) error {
				item := findByPrefix(manager.Items(), args[0])
				if item == nil {
					return fmt.Errorf("no queue item matches %q", args[0])
				}
				if item.Status.Terminal() {
					return fmt.Errorf("item %s is already %s", shortID(item.ID), item.Status)
				}
				if err := manager.UpdateStatus(cmd.Context(), item.ID, queue.StatusCancelled); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cancelled %s\n", item.ID)
				return nil
			})
		},
	}
}

func newQueueRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <item-id>",
		Short: "Remove an item from the queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withManager(func(manager *queue.Manager) error {
				item := findByPrefix(manager.Items(), args[0])
				if item == nil {
					return fmt.Errorf("no queue item matches %q", args[0])
				}
				if err := manager.Remove(cmd.Context(), item.ID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", item.ID)
				return nil
			})
		},
	}
}

func newQueueRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry <item-id>",
		Short: "Requeue a failed item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withManager(func(manager *queue.Manager) error {
				item := findByPrefix(manager.Items(), args[0])
				if item == nil {
					return fmt.Errorf("no queue item matches %q", args[0])
				}
				if err := manager.Retry(cmd.Context(), item.ID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Requeued %s\n", item.ID)
				return nil
			})
		},
	}
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear <requester-id>",
		Short: "Remove all of a requester's items",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			requesterID, err := strconv.ParseInt(strings.TrimSpace(args[0]), 10, 64)
			if err != nil {
				return fmt.Errorf("invalid requester id %q", args[0])
			}
			return ctx.withManager(func(manager *queue.Manager) error {
				removed, err := manager.ClearRequester(cmd.Context(), requesterID)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d item(s)\n", removed)
				return nil
			})
		},
	}
}

func newQueueClearCompletedCommand(ctx *commandContext) *cobra.Command {
	var requesterID int64

	cmd := &cobra.Command{
		Use:   "clear-completed",
		Short: "Remove completed items",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withManager(func(manager *queue.Manager) error {
				removed, err := manager.ClearCompleted(cmd.Context(), requesterID)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d completed item(s)\n", removed)
				return nil
			})
		},
	}

	cmd.Flags().Int64Var(&requesterID, "requester", 0, "Limit to one requester (0 clears for everyone)")
	return cmd
}

func newQueueCleanupCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Remove finished items past the retention age",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withManager(func(manager *queue.Manager) error {
				removed, err := manager.CleanupOldItems(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d old item(s)\n", removed)
				return nil
			})
		},
	}
}

func findByPrefix(items []*queue.Item, prefix string) *queue.Item {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return nil
	}
	var match *queue.Item
	for _, item := range items {
		if item.ID == prefix {
			return item
		}
		if strings.HasPrefix(item.ID, prefix) {
			if match != nil {
				return nil
			}
			match = item
		}
	}
	return match
}

func joinKinds() string {
	kinds := queue.AllKinds()
	parts := make([]string, len(kinds))
	for i, kind := range kinds {
		parts[i] = string(kind)
	}
	return strings.Join(parts, ", ")
}

func joinPriorities() string {
	priorities := queue.AllPriorities()
	parts := make([]string, len(priorities))
	for i, priority := range priorities {
		parts[i] = string(priority)
	}
	return strings.Join(parts, ", ")
}
