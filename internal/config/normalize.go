package config

import (
	"fmt"
	"os"
	"strings"

	"scribe/internal/language"
)

func (c *Config) normalize() error {
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	if c.Provider == "" {
		c.Provider = defaultProvider
	}
	if err := c.normalizeAssemblyAI(); err != nil {
		return err
	}
	if err := c.normalizeDeepgram(); err != nil {
		return err
	}
	if err := c.normalizeOpenAI(); err != nil {
		return err
	}
	if c.HTTP.TimeoutSeconds == 0 {
		c.HTTP.TimeoutSeconds = defaultHTTPTimeoutSeconds
	}
	if err := c.normalizeStores(); err != nil {
		return err
	}
	return c.normalizeLogging()
}

func apiKeyFromEnv(current, env string) string {
	current = strings.TrimSpace(current)
	if current != "" {
		return current
	}
	if value, ok := os.LookupEnv(env); ok {
		return strings.TrimSpace(value)
	}
	return ""
}

func (c *Config) normalizeAssemblyAI() error {
	c.AssemblyAI.APIKey = apiKeyFromEnv(c.AssemblyAI.APIKey, envAssemblyAIKey)
	c.AssemblyAI.BaseURL = strings.TrimRight(strings.TrimSpace(c.AssemblyAI.BaseURL), "/")
	if c.AssemblyAI.BaseURL == "" {
		c.AssemblyAI.BaseURL = defaultAssemblyAIBaseURL
	}
	c.AssemblyAI.SpeechModel = strings.TrimSpace(c.AssemblyAI.SpeechModel)
	if c.AssemblyAI.SpeechModel == "" {
		c.AssemblyAI.SpeechModel = defaultAssemblyAISpeechModel
	}
	code, err := language.Normalize(c.AssemblyAI.LanguageCode)
	if err != nil {
		return fmt.Errorf("assemblyai.language_code: %w", err)
	}
	c.AssemblyAI.LanguageCode = code
	return nil
}

func (c *Config) normalizeDeepgram() error {
	c.Deepgram.APIKey = apiKeyFromEnv(c.Deepgram.APIKey, envDeepgramKey)
	c.Deepgram.BaseURL = strings.TrimRight(strings.TrimSpace(c.Deepgram.BaseURL), "/")
	if c.Deepgram.BaseURL == "" {
		c.Deepgram.BaseURL = defaultDeepgramBaseURL
	}
	c.Deepgram.Model = strings.TrimSpace(c.Deepgram.Model)
	code, err := language.Normalize(c.Deepgram.Language)
	if err != nil {
		return fmt.Errorf("deepgram.language: %w", err)
	}
	c.Deepgram.Language = code
	return nil
}

func (c *Config) normalizeOpenAI() error {
	c.OpenAI.APIKey = apiKeyFromEnv(c.OpenAI.APIKey, envOpenAIKey)
	c.OpenAI.BaseURL = strings.TrimRight(strings.TrimSpace(c.OpenAI.BaseURL), "/")
	if c.OpenAI.BaseURL == "" {
		c.OpenAI.BaseURL = defaultOpenAIBaseURL
	}
	c.OpenAI.Organization = strings.TrimSpace(c.OpenAI.Organization)
	c.OpenAI.Model = strings.TrimSpace(c.OpenAI.Model)
	if c.OpenAI.Model == "" {
		c.OpenAI.Model = defaultOpenAIModel
	}
	c.OpenAI.ResponseFormat = strings.ToLower(strings.TrimSpace(c.OpenAI.ResponseFormat))
	if c.OpenAI.ResponseFormat == "" {
		c.OpenAI.ResponseFormat = defaultOpenAIResponseFormat
	}
	c.OpenAI.Prompt = strings.TrimSpace(c.OpenAI.Prompt)
	code, err := language.Normalize(c.OpenAI.Language)
	if err != nil {
		return fmt.Errorf("openai.language: %w", err)
	}
	// Whisper accepts ISO 639-1 only.
	if code != "" {
		if iso2 := language.ToISO2(code); iso2 != "" {
			code = iso2
		}
	}
	c.OpenAI.Language = code
	return nil
}

func (c *Config) normalizeStores() error {
	var err error
	if strings.TrimSpace(c.Cache.Path) == "" {
		c.Cache.Path = defaultCachePath()
	}
	if c.Cache.Path, err = expandPath(c.Cache.Path); err != nil {
		return fmt.Errorf("cache.path: %w", err)
	}
	if strings.TrimSpace(c.History.Path) == "" {
		c.History.Path = defaultHistoryPath()
	}
	if c.History.Path, err = expandPath(c.History.Path); err != nil {
		return fmt.Errorf("history.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() error {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	var err error
	if c.Logging.File, err = expandPath(strings.TrimSpace(c.Logging.File)); err != nil {
		return fmt.Errorf("logging.file: %w", err)
	}
	return nil
}
