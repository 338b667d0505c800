package main

import (
	"fmt"
	"strings"

	"scribe/internal/config"
	"scribe/internal/transcription"
)

// parseOptions turns repeated key=value flags into a map. Later keys win.
func parseOptions(values []string) (map[string]string, error) {
	out := make(map[string]string, len(values))
	for _, raw := range values {
		key, value, ok := strings.Cut(raw, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --option %q (expected key=value)", raw)
		}
		out[strings.ToLower(key)] = strings.TrimSpace(value)
	}
	return out, nil
}

// buildRequest expands local paths and attaches option overrides.
func buildRequest(source string, optionFlags []string) (transcription.Request, error) {
	options, err := parseOptions(optionFlags)
	if err != nil {
		return transcription.Request{}, err
	}
	req, err := transcription.NewRequest(source, options)
	if err != nil {
		return transcription.Request{}, err
	}
	if req.IsRemote() {
		return req, nil
	}
	expanded, err := config.ExpandPath(req.Source())
	if err != nil {
		return transcription.Request{}, fmt.Errorf("resolve audio path: %w", err)
	}
	return transcription.NewRequest(expanded, options)
}
