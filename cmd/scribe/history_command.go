package main

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"scribe/internal/history"
)

const historyPreviewWidth = 40

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var (
		limit      int
		jsonOutput bool
	)

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "List recent transcription runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(cmd, ctx, func(store *history.Store) error {
				records, err := store.List(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, records)
				}
				out := cmd.OutOrStdout()
				if len(records) == 0 {
					fmt.Fprintln(out, "No runs recorded")
					return nil
				}
				rows := make([][]string, 0, len(records))
				for _, rec := range records {
					status := string(rec.Status)
					if rec.Cached {
						status += " (cached)"
					}
					rows = append(rows, []string{
						shortID(rec.ID),
						humanize.Time(rec.CreatedAt),
						rec.Provider,
						status,
						fmt.Sprintf("%.2f", rec.Elapsed.Seconds()),
						rec.Preview(historyPreviewWidth),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "When", "Provider", "Status", "Seconds", "Transcript"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
				))
				return nil
			})
		},
	}
	historyCmd.Flags().IntVarP(&limit, "limit", "n", history.DefaultListLimit, "Maximum number of runs to show")
	historyCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print runs as JSON")

	historyCmd.AddCommand(&cobra.Command{
		Use:   "show <id>",
		Short: "Show one run by ID or unique ID prefix",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(cmd, ctx, func(store *history.Store) error {
				rec, err := store.Get(cmd.Context(), args[0])
				if errors.Is(err, history.ErrNotFound) {
					return fmt.Errorf("no run matches %q", args[0])
				}
				if err != nil {
					return err
				}
				printRecord(cmd, rec)
				return nil
			})
		},
	})

	historyCmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Delete every recorded run",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(cmd, ctx, func(store *history.Store) error {
				removed, err := store.Clear(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d run(s) from history\n", removed)
				return nil
			})
		},
	})

	return historyCmd
}

func withHistory(cmd *cobra.Command, ctx *commandContext, fn func(*history.Store) error) error {
	store, err := ctx.openHistory()
	if err != nil {
		return err
	}
	if store == nil {
		fmt.Fprintln(cmd.OutOrStdout(), "Run history is disabled (history.enabled = false)")
		return nil
	}
	defer store.Close()
	return fn(store)
}

func printRecord(cmd *cobra.Command, rec history.Record) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "ID:        %s\n", rec.ID)
	fmt.Fprintf(out, "When:      %s (%s)\n", rec.CreatedAt.Local().Format("2006-01-02 15:04:05"), humanize.Time(rec.CreatedAt))
	fmt.Fprintf(out, "Provider:  %s\n", rec.Provider)
	fmt.Fprintf(out, "Source:    %s\n", rec.Source)
	fmt.Fprintf(out, "Status:    %s\n", rec.Status)
	fmt.Fprintf(out, "Cached:    %s\n", yesNo(rec.Cached))
	fmt.Fprintf(out, "Seconds:   %.2f\n", rec.Elapsed.Seconds())
	if rec.JobID != "" {
		fmt.Fprintf(out, "Job ID:    %s\n", rec.JobID)
	}
	if rec.Language != "" {
		fmt.Fprintf(out, "Language:  %s\n", rec.Language)
	}
	if rec.Status == history.StatusFailed {
		fmt.Fprintf(out, "Error:     %s\n", rec.Error)
		fmt.Fprintf(out, "Kind:      %s\n", rec.ErrorKind)
		return
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, rec.Transcript)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
