package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Provider names accepted by the provider setting.
const (
	ProviderAssemblyAI = "assemblyai"
	ProviderDeepgram   = "deepgram"
	ProviderOpenAI     = "openai"
)

// KnownProviders lists every provider name in display order.
var KnownProviders = []string{ProviderAssemblyAI, ProviderDeepgram, ProviderOpenAI}

// AssemblyAI contains configuration for the submit-and-poll provider.
type AssemblyAI struct {
	APIKey              string `toml:"api_key"`
	BaseURL             string `toml:"base_url"`
	SpeechModel         string `toml:"speech_model"`
	SpeakerLabels       bool   `toml:"speaker_labels"`
	FormatText          bool   `toml:"format_text"`
	Punctuate           bool   `toml:"punctuate"`
	LanguageDetection   bool   `toml:"language_detection"`
	LanguageCode        string `toml:"language_code"`
	PollIntervalSeconds int    `toml:"poll_interval_seconds"`
	MaxPollAttempts     int    `toml:"max_poll_attempts"`
	PollTimeoutSeconds  int    `toml:"poll_timeout_seconds"`
}

// Deepgram contains configuration for the single-call upload provider.
type Deepgram struct {
	APIKey    string `toml:"api_key"`
	BaseURL   string `toml:"base_url"`
	Punctuate bool   `toml:"punctuate"`
	Language  string `toml:"language"`
	Model     string `toml:"model"`
}

// OpenAI contains configuration for the Whisper provider.
type OpenAI struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Organization   string `toml:"organization"`
	Model          string `toml:"model"`
	ResponseFormat string `toml:"response_format"`
	Prompt         string `toml:"prompt"`
	Language       string `toml:"language"`
}

// HTTP contains shared transport settings.
type HTTP struct {
	TimeoutSeconds int `toml:"timeout_seconds"`
}

// Cache contains configuration for the transcript cache.
type Cache struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// History contains configuration for the run history database.
type History struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
	File   string `toml:"file"`
}

// Config encapsulates all configuration values for scribe.
//
// Configuration sections by subsystem:
//   - Provider: which backend `scribe transcribe` uses by default
//   - AssemblyAI, Deepgram, OpenAI: per-vendor credentials and options
//   - HTTP: request timeout shared by every provider
//   - Cache: transcript cache keyed by audio content
//   - History: SQLite log of past runs
//   - Logging: log format, level, and optional file
type Config struct {
	Provider   string     `toml:"provider"`
	AssemblyAI AssemblyAI `toml:"assemblyai"`
	Deepgram   Deepgram   `toml:"deepgram"`
	OpenAI     OpenAI     `toml:"openai"`
	HTTP       HTTP       `toml:"http"`
	Cache      Cache      `toml:"cache"`
	History    History    `toml:"history"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs(projectConfigName)
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the parent directories of enabled stores.
func (c *Config) EnsureDirectories() error {
	targets := []struct {
		enabled bool
		path    string
		label   string
	}{
		{c.Cache.Enabled, c.Cache.Path, "cache"},
		{c.History.Enabled, c.History.Path, "history"},
		{c.Logging.File != "", c.Logging.File, "log"},
	}
	for _, target := range targets {
		if !target.enabled || strings.TrimSpace(target.path) == "" {
			continue
		}
		dir := filepath.Dir(target.path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s directory %q: %w", target.label, dir, err)
		}
	}
	return nil
}

// APIKey returns the resolved credential for provider.
func (c *Config) APIKey(provider string) string {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case ProviderAssemblyAI:
		return c.AssemblyAI.APIKey
	case ProviderDeepgram:
		return c.Deepgram.APIKey
	case ProviderOpenAI:
		return c.OpenAI.APIKey
	default:
		return ""
	}
}

// APIKeyEnv returns the environment variable consulted for provider.
func APIKeyEnv(provider string) string {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case ProviderAssemblyAI:
		return envAssemblyAIKey
	case ProviderDeepgram:
		return envDeepgramKey
	case ProviderOpenAI:
		return envOpenAIKey
	default:
		return ""
	}
}

// HTTPTimeout returns the per-request timeout.
func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// PollInterval returns the AssemblyAI status poll interval.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.AssemblyAI.PollIntervalSeconds) * time.Second
}

// PollTimeout returns the overall AssemblyAI poll deadline, zero when disabled.
func (c *Config) PollTimeout() time.Duration {
	return time.Duration(c.AssemblyAI.PollTimeoutSeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

func defaultCachePath() string {
	if base, ok := os.LookupEnv("XDG_CACHE_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "scribe", "transcripts.json")
	}
	return "~/.cache/scribe/transcripts.json"
}

func defaultHistoryPath() string {
	if base, ok := os.LookupEnv("XDG_DATA_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "scribe", "history.db")
	}
	return "~/.local/share/scribe/history.db"
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o600); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
