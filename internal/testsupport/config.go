package testsupport

import (
	"path/filepath"
	"testing"

	"scribe/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	cfg *config.Config
}

// NewConfig produces a config whose stores live in a unique temp directory.
// Every provider gets a fake key and a zero poll interval so tests never
// reach a real vendor or sleep.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.AssemblyAI.APIKey = "test-assemblyai"
	cfgVal.Deepgram.APIKey = "test-deepgram"
	cfgVal.OpenAI.APIKey = "test-openai"
	cfgVal.AssemblyAI.PollIntervalSeconds = 1
	cfgVal.HTTP.TimeoutSeconds = 5
	cfgVal.Cache.Path = filepath.Join(base, "cache", "transcripts.json")
	cfgVal.History.Path = filepath.Join(base, "data", "history.db")

	builder := &configBuilder{cfg: &cfgVal}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithProvider sets the default provider.
func WithProvider(name string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Provider = name
	}
}

// WithoutAPIKeys blanks every provider credential.
func WithoutAPIKeys() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.AssemblyAI.APIKey = ""
		b.cfg.Deepgram.APIKey = ""
		b.cfg.OpenAI.APIKey = ""
	}
}

// WithoutStores disables the transcript cache and run history.
func WithoutStores() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Cache.Enabled = false
		b.cfg.History.Enabled = false
	}
}
