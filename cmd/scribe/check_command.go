package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"scribe/internal/preflight"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	var providerName string

	cmd := &cobra.Command{
		Use:   "check [source]",
		Short: "Verify credentials, store paths, and optionally an audio source",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			var source string
			if len(args) == 1 {
				req, err := buildRequest(args[0], nil)
				if err != nil {
					return err
				}
				source = req.Source()
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			for _, line := range renderSectionHeader("Preflight", colorize) {
				fmt.Fprintln(out, line)
			}
			if ctx.configExists {
				fmt.Fprintln(out, renderStatusLine("Config", statusOK, ctx.configPath, colorize))
			} else {
				fmt.Fprintln(out, renderStatusLine("Config", statusOK, "defaults (no file at "+ctx.configPath+")", colorize))
			}

			results := preflight.RunAll(cmd.Context(), cfg, providerName, source)
			for _, result := range results {
				kind := statusOK
				if !result.Passed {
					kind = statusError
				}
				fmt.Fprintln(out, renderStatusLine(result.Name, kind, result.Detail, colorize))
			}
			if preflight.Failed(results) {
				return &reportedError{err: errors.New("preflight checks failed")}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&providerName, "provider", "p", "", "Provider whose credentials to check (defaults to the configured provider)")
	return cmd
}
