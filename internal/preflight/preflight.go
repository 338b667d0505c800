package preflight

import (
	"context"
	"strings"

	"scribe/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the applicable checks for provider and, when non-empty,
// the audio source.
func RunAll(ctx context.Context, cfg *config.Config, provider, source string) []Result {
	if cfg == nil {
		return nil
	}
	if ctx.Err() != nil {
		return []Result{{Name: "Preflight", Detail: ctx.Err().Error()}}
	}
	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider == "" {
		provider = cfg.Provider
	}

	var results []Result
	results = append(results, CheckAPIKey(cfg, provider))
	if strings.TrimSpace(source) != "" {
		results = append(results, CheckAudioSource(source))
	}
	if cfg.Cache.Enabled {
		results = append(results, CheckStorePath("Transcript cache", cfg.Cache.Path))
	}
	if cfg.History.Enabled {
		results = append(results, CheckStorePath("Run history", cfg.History.Path))
	}
	if cfg.Logging.File != "" {
		results = append(results, CheckStorePath("Log file", cfg.Logging.File))
	}
	return results
}

// Failed reports whether any result did not pass.
func Failed(results []Result) bool {
	for _, result := range results {
		if !result.Passed {
			return true
		}
	}
	return false
}
