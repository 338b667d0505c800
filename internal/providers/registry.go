// Package providers builds transcription backends from configuration.
package providers

import (
	"log/slog"
	"net/http"
	"sort"
	"strings"

	"scribe/internal/config"
	"scribe/internal/logging"
	"scribe/internal/services"
	"scribe/internal/services/assemblyai"
	"scribe/internal/services/deepgram"
	"scribe/internal/services/openai"
	"scribe/internal/transcription"
)

// Option customizes how providers are constructed.
type Option func(*settings)

type settings struct {
	httpClient  *http.Client
	sleeper     transcription.SleepFunc
	transcriber openai.Transcriber
}

// WithHTTPClient overrides the HTTP client of the REST providers.
func WithHTTPClient(client *http.Client) Option {
	return func(s *settings) { s.httpClient = client }
}

// WithSleeper overrides the poll sleeper of submit-and-poll providers.
func WithSleeper(sleeper transcription.SleepFunc) Option {
	return func(s *settings) { s.sleeper = sleeper }
}

// WithTranscriber replaces the OpenAI SDK client.
func WithTranscriber(t openai.Transcriber) Option {
	return func(s *settings) { s.transcriber = t }
}

type constructor func(cfg *config.Config, logger *slog.Logger, s settings) transcription.Provider

var registry = map[string]constructor{
	assemblyai.Name: newAssemblyAI,
	deepgram.Name:   newDeepgram,
	openai.Name:     newOpenAI,
}

// Names returns every registered provider name in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New builds the provider registered under name. An empty name selects the
// configured default.
func New(cfg *config.Config, name string, logger *slog.Logger, opts ...Option) (transcription.Provider, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "", "providers", "config required", nil)
	}
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = cfg.Provider
	}
	build, ok := registry[name]
	if !ok {
		return nil, services.Wrap(services.ErrConfiguration, name, "providers",
			"unknown provider (expected one of "+strings.Join(Names(), ", ")+")", nil)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	var s settings
	for _, opt := range opts {
		opt(&s)
	}
	return build(cfg, logger, s), nil
}

// Status describes one provider for listing.
type Status struct {
	Name       string
	Default    bool
	Configured bool
	KeyEnv     string
}

// Statuses reports every provider with its credential state.
func Statuses(cfg *config.Config) []Status {
	names := Names()
	out := make([]Status, 0, len(names))
	for _, name := range names {
		out = append(out, Status{
			Name:       name,
			Default:    cfg != nil && cfg.Provider == name,
			Configured: cfg != nil && strings.TrimSpace(cfg.APIKey(name)) != "",
			KeyEnv:     config.APIKeyEnv(name),
		})
	}
	return out
}

func newAssemblyAI(cfg *config.Config, logger *slog.Logger, s settings) transcription.Provider {
	opts := []assemblyai.Option{assemblyai.WithLogger(logger)}
	if s.httpClient != nil {
		opts = append(opts, assemblyai.WithHTTPClient(s.httpClient))
	}
	if s.sleeper != nil {
		opts = append(opts, assemblyai.WithSleeper(s.sleeper))
	}
	section := cfg.AssemblyAI
	return assemblyai.NewClient(assemblyai.Config{
		APIKey:            section.APIKey,
		BaseURL:           section.BaseURL,
		SpeechModel:       section.SpeechModel,
		SpeakerLabels:     section.SpeakerLabels,
		FormatText:        section.FormatText,
		Punctuate:         section.Punctuate,
		LanguageDetection: section.LanguageDetection,
		LanguageCode:      section.LanguageCode,
		PollInterval:      cfg.PollInterval(),
		MaxPollAttempts:   section.MaxPollAttempts,
		PollTimeout:       cfg.PollTimeout(),
		TimeoutSeconds:    cfg.HTTP.TimeoutSeconds,
	}, opts...)
}

func newDeepgram(cfg *config.Config, logger *slog.Logger, s settings) transcription.Provider {
	opts := []deepgram.Option{deepgram.WithLogger(logger)}
	if s.httpClient != nil {
		opts = append(opts, deepgram.WithHTTPClient(s.httpClient))
	}
	section := cfg.Deepgram
	return deepgram.NewClient(deepgram.Config{
		APIKey:         section.APIKey,
		BaseURL:        section.BaseURL,
		Punctuate:      section.Punctuate,
		Language:       section.Language,
		Model:          section.Model,
		TimeoutSeconds: cfg.HTTP.TimeoutSeconds,
	}, opts...)
}

func newOpenAI(cfg *config.Config, logger *slog.Logger, s settings) transcription.Provider {
	opts := []openai.Option{openai.WithLogger(logger)}
	if s.transcriber != nil {
		opts = append(opts, openai.WithTranscriber(s.transcriber))
	}
	section := cfg.OpenAI
	return openai.NewClient(openai.Config{
		APIKey:         section.APIKey,
		BaseURL:        section.BaseURL,
		Organization:   section.Organization,
		Model:          section.Model,
		ResponseFormat: section.ResponseFormat,
		Prompt:         section.Prompt,
		Language:       section.Language,
		TimeoutSeconds: cfg.HTTP.TimeoutSeconds,
	}, opts...)
}
