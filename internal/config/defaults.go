package config

const (
	defaultConfigPath            = "~/.config/scribe/config.toml"
	projectConfigName            = "scribe.toml"
	defaultProvider              = ProviderAssemblyAI
	defaultAssemblyAIBaseURL     = "https://api.assemblyai.com"
	defaultAssemblyAISpeechModel = "universal"
	defaultPollIntervalSeconds   = 3
	defaultMaxPollAttempts       = 200
	defaultPollTimeoutSeconds    = 600
	defaultDeepgramBaseURL       = "https://api.deepgram.com"
	defaultDeepgramLanguage      = "en"
	defaultOpenAIBaseURL         = "https://api.openai.com/v1"
	defaultOpenAIModel           = "whisper-1"
	defaultOpenAIResponseFormat  = "text"
	defaultHTTPTimeoutSeconds    = 120
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"

	envAssemblyAIKey = "ASSEMBLYAI_API_KEY"
	envDeepgramKey   = "DEEPGRAM_API_KEY"
	envOpenAIKey     = "OPENAI_API_KEY"
)

// Default returns a Config populated with repository defaults. The AssemblyAI
// and Deepgram options mirror the request bodies the vendors document for
// prerecorded audio.
func Default() Config {
	return Config{
		Provider: defaultProvider,
		AssemblyAI: AssemblyAI{
			BaseURL:             defaultAssemblyAIBaseURL,
			SpeechModel:         defaultAssemblyAISpeechModel,
			SpeakerLabels:       true,
			FormatText:          true,
			Punctuate:           true,
			LanguageDetection:   true,
			PollIntervalSeconds: defaultPollIntervalSeconds,
			MaxPollAttempts:     defaultMaxPollAttempts,
			PollTimeoutSeconds:  defaultPollTimeoutSeconds,
		},
		Deepgram: Deepgram{
			BaseURL:   defaultDeepgramBaseURL,
			Punctuate: true,
			Language:  defaultDeepgramLanguage,
		},
		OpenAI: OpenAI{
			BaseURL:        defaultOpenAIBaseURL,
			Model:          defaultOpenAIModel,
			ResponseFormat: defaultOpenAIResponseFormat,
		},
		HTTP: HTTP{
			TimeoutSeconds: defaultHTTPTimeoutSeconds,
		},
		Cache: Cache{
			Enabled: true,
			Path:    defaultCachePath(),
		},
		History: History{
			Enabled: true,
			Path:    defaultHistoryPath(),
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
