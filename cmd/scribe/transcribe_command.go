package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"scribe/internal/providers"
	"scribe/internal/runner"
	"scribe/internal/services"
	"scribe/internal/transcription"
)

type transcriptJSON struct {
	RunID          string  `json:"run_id"`
	Provider       string  `json:"provider"`
	Source         string  `json:"source"`
	Text           string  `json:"text"`
	Confidence     float64 `json:"confidence,omitempty"`
	Language       string  `json:"language,omitempty"`
	JobID          string  `json:"job_id,omitempty"`
	RequestID      string  `json:"request_id,omitempty"`
	AudioSeconds   float64 `json:"audio_seconds,omitempty"`
	ElapsedSeconds float64 `json:"elapsed_seconds"`
	Cached         bool    `json:"cached"`
}

type failureJSON struct {
	RunID          string  `json:"run_id,omitempty"`
	Provider       string  `json:"provider"`
	Source         string  `json:"source"`
	Error          string  `json:"error"`
	ErrorKind      string  `json:"error_kind"`
	Payload        string  `json:"payload,omitempty"`
	ElapsedSeconds float64 `json:"elapsed_seconds"`
}

func newTranscribeCommand(ctx *commandContext) *cobra.Command {
	var (
		providerName string
		optionFlags  []string
		jsonOutput   bool
		noCache      bool
	)

	cmd := &cobra.Command{
		Use:   "transcribe <source>",
		Short: "Transcribe a local audio file or remote URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.logger(cmd)
			if err != nil {
				return err
			}
			provider, err := providers.New(cfg, providerName, logger, ctx.providerOptions...)
			if err != nil {
				return err
			}
			req, err := buildRequest(args[0], optionFlags)
			if err != nil {
				return err
			}

			run, cleanup := ctx.newRunner(logger, !noCache)
			defer cleanup()

			result, err := run.Run(cmd.Context(), provider, req)
			if err != nil {
				return reportFailure(cmd, provider.Name(), req, result, err, jsonOutput)
			}
			if jsonOutput {
				return writeJSON(cmd, toTranscriptJSON(req, result))
			}
			printTranscript(cmd.OutOrStdout(), result)
			return nil
		},
	}

	cmd.Flags().StringVarP(&providerName, "provider", "p", "", "Provider to use (defaults to the configured provider)")
	cmd.Flags().StringArrayVarP(&optionFlags, "option", "o", nil, "Provider option override as key=value (repeatable)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the result as JSON")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "Skip the transcript cache")
	return cmd
}

func printTranscript(out io.Writer, result runner.Result) {
	fmt.Fprintln(out, result.Transcript.Text)
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Transcription took %.2f seconds.\n", result.Elapsed.Seconds())
}

// reportFailure prints provider payloads the way callers expect to inspect
// them and returns an error main will not print again.
func reportFailure(cmd *cobra.Command, provider string, req transcription.Request, result runner.Result, err error, jsonOutput bool) error {
	payload, hasPayload := services.Payload(err)
	if jsonOutput {
		if encodeErr := writeJSON(cmd, failureJSON{
			RunID:          result.RunID,
			Provider:       provider,
			Source:         req.Source(),
			Error:          err.Error(),
			ErrorKind:      services.Kind(err),
			Payload:        payload,
			ElapsedSeconds: result.Elapsed.Seconds(),
		}); encodeErr != nil {
			return err
		}
		return &reportedError{err: err}
	}
	if !hasPayload {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Transcription failed. Response:")
	fmt.Fprintln(out, strings.TrimRight(payload, "\n"))
	return &reportedError{err: err}
}

func toTranscriptJSON(req transcription.Request, result runner.Result) transcriptJSON {
	t := result.Transcript
	return transcriptJSON{
		RunID:          result.RunID,
		Provider:       t.Provider,
		Source:         req.Source(),
		Text:           t.Text,
		Confidence:     t.Confidence,
		Language:       t.Language,
		JobID:          t.JobID,
		RequestID:      t.RequestID,
		AudioSeconds:   t.Duration.Seconds(),
		ElapsedSeconds: result.Elapsed.Seconds(),
		Cached:         result.Cached,
	}
}
