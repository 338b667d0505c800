package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"scribe/internal/logging"
	"scribe/internal/transcriptcache"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the transcript cache",
	}

	cacheCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List cached transcripts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCache(cmd, ctx, func(cache *transcriptcache.Cache) error {
				entries, err := cache.List(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(entries) == 0 {
					fmt.Fprintln(out, "Cache is empty")
					return nil
				}
				rows := make([][]string, 0, len(entries))
				for _, entry := range entries {
					rows = append(rows, []string{
						entry.Key[:min(12, len(entry.Key))],
						entry.Provider,
						truncate(entry.Source, previewWidth),
						humanize.Time(entry.CachedAt),
						truncate(firstLine(entry.Text), historyPreviewWidth),
					})
				}
				fmt.Fprintln(out, renderTable([]string{"Key", "Provider", "Source", "Cached", "Transcript"}, rows, nil))
				return nil
			})
		},
	})

	cacheCmd.AddCommand(&cobra.Command{
		Use:   "remove <key>",
		Short: "Remove one cached transcript by key or key prefix",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCache(cmd, ctx, func(cache *transcriptcache.Cache) error {
				entry, err := cache.Remove(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed cached %s transcript for %s\n", entry.Provider, entry.Source)
				return nil
			})
		},
	})

	cacheCmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Remove every cached transcript",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCache(cmd, ctx, func(cache *transcriptcache.Cache) error {
				count, err := cache.Count(cmd.Context())
				if err != nil {
					return err
				}
				if err := cache.Clear(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d cached transcript(s) from %s\n", count, cache.Path())
				return nil
			})
		},
	})

	return cacheCmd
}

func withCache(cmd *cobra.Command, ctx *commandContext, fn func(*transcriptcache.Cache) error) error {
	logger, err := ctx.logger(cmd)
	if err != nil {
		logger = logging.NewNop()
	}
	cache := ctx.cache(logger)
	if !cache.Enabled() {
		fmt.Fprintln(cmd.OutOrStdout(), "Transcript cache is disabled (cache.enabled = false)")
		return nil
	}
	return fn(cache)
}
