package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

var (
	validLogFormats      = []string{"console", "json"}
	validLogLevels       = []string{"debug", "info", "warn", "error"}
	validResponseFormats = []string{"text", "json", "srt", "vtt", "verbose_json"}
)

// Validate ensures the configuration is usable. Missing credentials are not
// an error here; they are reported when a provider is used or by
// `scribe check`.
func (c *Config) Validate() error {
	if !slices.Contains(KnownProviders, c.Provider) {
		return fmt.Errorf("provider %q is not supported (choose one of %s)", c.Provider, strings.Join(KnownProviders, ", "))
	}
	if err := c.validateAssemblyAI(); err != nil {
		return err
	}
	if err := c.validateOpenAI(); err != nil {
		return err
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return errors.New("http.timeout_seconds must be positive")
	}
	if err := c.validateStores(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateAssemblyAI() error {
	if err := ensurePositiveMap(map[string]int{
		"assemblyai.poll_interval_seconds": c.AssemblyAI.PollIntervalSeconds,
		"assemblyai.max_poll_attempts":     c.AssemblyAI.MaxPollAttempts,
	}); err != nil {
		return err
	}
	if c.AssemblyAI.PollTimeoutSeconds < 0 {
		return errors.New("assemblyai.poll_timeout_seconds must be zero (disabled) or positive")
	}
	return nil
}

func (c *Config) validateOpenAI() error {
	if !slices.Contains(validResponseFormats, c.OpenAI.ResponseFormat) {
		return fmt.Errorf("openai.response_format %q is not supported (choose one of %s)", c.OpenAI.ResponseFormat, strings.Join(validResponseFormats, ", "))
	}
	return nil
}

func (c *Config) validateStores() error {
	if c.Cache.Enabled && strings.TrimSpace(c.Cache.Path) == "" {
		return errors.New("cache.path must be set when cache.enabled is true")
	}
	if c.History.Enabled && strings.TrimSpace(c.History.Path) == "" {
		return errors.New("history.path must be set when history.enabled is true")
	}
	return nil
}

func (c *Config) validateLogging() error {
	if !slices.Contains(validLogFormats, c.Logging.Format) {
		return fmt.Errorf("logging.format %q is not supported (choose console or json)", c.Logging.Format)
	}
	if !slices.Contains(validLogLevels, c.Logging.Level) {
		return fmt.Errorf("logging.level %q is not supported (choose one of %s)", c.Logging.Level, strings.Join(validLogLevels, ", "))
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
