package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"scribe/internal/providers"
	"scribe/internal/runner"
	"scribe/internal/services"
	"scribe/internal/textutil"
	"scribe/internal/transcription"
)

const previewWidth = 48

type compareRowJSON struct {
	Provider       string  `json:"provider"`
	RunID          string  `json:"run_id,omitempty"`
	Text           string  `json:"text,omitempty"`
	Words          int     `json:"words"`
	Agreement      float64 `json:"agreement"`
	Error          string  `json:"error,omitempty"`
	ErrorKind      string  `json:"error_kind,omitempty"`
	ElapsedSeconds float64 `json:"elapsed_seconds"`
}

func newCompareCommand(ctx *commandContext) *cobra.Command {
	var (
		providerList string
		optionFlags  []string
		jsonOutput   bool
	)

	cmd := &cobra.Command{
		Use:   "compare <source>",
		Short: "Run several providers on the same audio and compare latency",
		Long: "Runs each provider one after another on the same source and scores word agreement\n" +
			"against the first successful transcript. The transcript cache is\n" +
			"bypassed so every timing reflects a real provider call. Runs are still recorded in history.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.logger(cmd)
			if err != nil {
				return err
			}
			names := selectCompareProviders(providerList, providers.Statuses(cfg))
			if len(names) == 0 {
				return errors.New("no providers configured; set an api_key or pass --providers")
			}
			req, err := buildRequest(args[0], optionFlags)
			if err != nil {
				return err
			}

			var list []transcription.Provider
			for _, name := range names {
				provider, err := providers.New(cfg, name, logger, ctx.providerOptions...)
				if err != nil {
					return err
				}
				list = append(list, provider)
			}

			run, cleanup := ctx.newRunner(logger, false)
			defer cleanup()
			outcomes := run.Compare(cmd.Context(), list, req)
			if err := cmd.Context().Err(); err != nil {
				return err
			}

			failures := 0
			reference, hasReference := firstSuccess(outcomes)
			rows := make([][]string, 0, len(outcomes))
			jsonRows := make([]compareRowJSON, 0, len(outcomes))
			for _, outcome := range outcomes {
				seconds := fmt.Sprintf("%.2f", outcome.Result.Elapsed.Seconds())
				row := compareRowJSON{
					Provider:       outcome.Provider,
					RunID:          outcome.Result.RunID,
					ElapsedSeconds: outcome.Result.Elapsed.Seconds(),
				}
				if outcome.Err != nil {
					failures++
					row.Error = outcome.Err.Error()
					row.ErrorKind = services.Kind(outcome.Err)
					rows = append(rows, []string{outcome.Provider, "failed (" + row.ErrorKind + ")", seconds, "-", "-", truncate(row.Error, previewWidth)})
				} else {
					text := outcome.Result.Transcript.Text
					row.Text = text
					row.Words = textutil.NewFingerprint(text).WordCount()
					agreement := "ref"
					row.Agreement = 1
					if hasReference && outcome.Provider != reference.Provider {
						row.Agreement = textutil.Agreement(reference.Result.Transcript.Text, text)
						agreement = fmt.Sprintf("%.0f%%", row.Agreement*100)
					}
					rows = append(rows, []string{outcome.Provider, "ok", seconds, fmt.Sprintf("%d", row.Words), agreement, truncate(firstLine(text), previewWidth)})
				}
				jsonRows = append(jsonRows, row)
			}

			if jsonOutput {
				if err := writeJSON(cmd, jsonRows); err != nil {
					return err
				}
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Provider", "Status", "Seconds", "Words", "Agreement", "Transcript"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft},
				))
			}
			if failures == len(outcomes) {
				return &reportedError{err: fmt.Errorf("all %d providers failed", failures)}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&providerList, "providers", "", "Comma-separated providers (defaults to every configured provider)")
	cmd.Flags().StringArrayVarP(&optionFlags, "option", "o", nil, "Option override as key=value applied to every provider (repeatable)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print results as JSON")
	return cmd
}

// firstSuccess returns the outcome other transcripts are scored against.
func firstSuccess(outcomes []runner.Outcome) (runner.Outcome, bool) {
	for _, outcome := range outcomes {
		if outcome.Err == nil {
			return outcome, true
		}
	}
	return runner.Outcome{}, false
}

func selectCompareProviders(flag string, statuses []providers.Status) []string {
	var names []string
	if strings.TrimSpace(flag) != "" {
		seen := map[string]struct{}{}
		for _, part := range strings.Split(flag, ",") {
			name := strings.ToLower(strings.TrimSpace(part))
			if name == "" {
				continue
			}
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			names = append(names, name)
		}
		return names
	}
	for _, status := range statuses {
		if status.Configured {
			names = append(names, status.Name)
		}
	}
	return names
}

func firstLine(text string) string {
	text = strings.TrimSpace(text)
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		return text[:idx]
	}
	return text
}

func truncate(text string, limit int) string {
	runes := []rune(text)
	if limit <= 3 || len(runes) <= limit {
		return text
	}
	return string(runes[:limit-3]) + "..."
}
