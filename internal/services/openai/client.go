// Package openai adapts the go-openai SDK's Whisper transcription endpoint to
// the transcription.Provider contract.
package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	gopenai "github.com/sashabaranov/go-openai"

	"scribe/internal/logging"
	"scribe/internal/services"
	"scribe/internal/transcription"
)

const (
	// Name identifies the provider in config, logs and history.
	Name = "openai"

	defaultModel       = gopenai.Whisper1
	defaultFormat      = gopenai.AudioResponseFormatText
	defaultHTTPTimeout = 120 * time.Second
)

var supportedFormats = map[string]gopenai.AudioResponseFormat{
	string(gopenai.AudioResponseFormatText):        gopenai.AudioResponseFormatText,
	string(gopenai.AudioResponseFormatJSON):        gopenai.AudioResponseFormatJSON,
	string(gopenai.AudioResponseFormatSRT):         gopenai.AudioResponseFormatSRT,
	string(gopenai.AudioResponseFormatVTT):         gopenai.AudioResponseFormatVTT,
	string(gopenai.AudioResponseFormatVerboseJSON): gopenai.AudioResponseFormatVerboseJSON,
}

// Transcriber is the slice of the SDK client this package depends on.
type Transcriber interface {
	CreateTranscription(ctx context.Context, request gopenai.AudioRequest) (gopenai.AudioResponse, error)
}

// Config captures the settings required to talk to the OpenAI audio API.
type Config struct {
	APIKey         string
	BaseURL        string
	Organization   string
	Model          string
	ResponseFormat string
	Prompt         string
	Language       string
	TimeoutSeconds int
}

// Client transcribes local files through the SDK.
type Client struct {
	cfg    Config
	sdk    Transcriber
	logger *slog.Logger
}

// Option customizes the client.
type Option func(*Client)

// WithTranscriber replaces the SDK client (useful for tests).
func WithTranscriber(t Transcriber) Option {
	return func(c *Client) {
		if t != nil {
			c.sdk = t
		}
	}
}

// WithLogger attaches a logger for request progress.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient constructs a Whisper client backed by go-openai.
func NewClient(cfg Config, opts ...Option) *Client {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	cfg.Model = strings.TrimSpace(cfg.Model)
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	cfg.ResponseFormat = strings.ToLower(strings.TrimSpace(cfg.ResponseFormat))
	if cfg.ResponseFormat == "" {
		cfg.ResponseFormat = string(defaultFormat)
	}

	client := &Client{cfg: cfg, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(client)
	}
	if client.sdk == nil {
		client.sdk = newSDKClient(cfg)
	}
	client.logger = logging.NewComponentLogger(client.logger, Name)
	return client
}

func newSDKClient(cfg Config) *gopenai.Client {
	sdkCfg := gopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		sdkCfg.BaseURL = cfg.BaseURL
	}
	if cfg.Organization != "" {
		sdkCfg.OrgID = cfg.Organization
	}
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	sdkCfg.HTTPClient = &http.Client{Timeout: timeout}
	return gopenai.NewClientWithConfig(sdkCfg)
}

// Name implements transcription.Provider.
func (c *Client) Name() string {
	return Name
}

// CacheFingerprint describes the settings that shape the transcript.
func (c *Client) CacheFingerprint() string {
	return transcription.SettingsFingerprint(map[string]string{
		"model":           c.cfg.Model,
		"response_format": c.cfg.ResponseFormat,
		"prompt":          c.cfg.Prompt,
		"language":        c.cfg.Language,
	})
}

// Transcribe uploads a local file and returns the SDK's text unchanged.
func (c *Client) Transcribe(ctx context.Context, req transcription.Request) (transcription.Transcript, error) {
	var empty transcription.Transcript
	if c == nil {
		return empty, services.Wrap(services.ErrConfiguration, Name, "transcribe", "nil client", nil)
	}
	if c.cfg.APIKey == "" {
		return empty, services.Wrap(services.ErrConfiguration, Name, "transcribe", "api key required (set openai.api_key or OPENAI_API_KEY)", nil)
	}
	if req.IsRemote() {
		return empty, services.Wrap(services.ErrValidation, Name, "transcribe", "remote sources are not supported; pass a local file", nil)
	}
	if _, err := os.Stat(req.Source()); err != nil {
		return empty, services.Wrap(services.ErrValidation, Name, "transcribe", "open audio", err)
	}

	audioReq, err := c.buildRequest(req)
	if err != nil {
		return empty, err
	}
	logging.WithContext(ctx, c.logger).Info("uploading audio",
		logging.String("source", req.Source()),
		logging.String("model", audioReq.Model),
		logging.String("response_format", string(audioReq.Format)),
	)

	resp, err := c.sdk.CreateTranscription(ctx, audioReq)
	if err != nil {
		return empty, classifySDKError(err)
	}
	return transcription.Transcript{
		Provider: Name,
		Text:     resp.Text,
		Language: resp.Language,
		Duration: time.Duration(resp.Duration * float64(time.Second)),
		Raw:      resp.Text,
	}, nil
}

func (c *Client) buildRequest(req transcription.Request) (gopenai.AudioRequest, error) {
	audioReq := gopenai.AudioRequest{
		Model:    c.cfg.Model,
		FilePath: req.Source(),
		Prompt:   c.cfg.Prompt,
		Language: c.cfg.Language,
	}
	format := c.cfg.ResponseFormat
	for _, key := range req.OptionKeys() {
		value, _ := req.Option(key)
		switch key {
		case "model":
			audioReq.Model = value
		case "response_format":
			format = strings.ToLower(value)
		case "prompt":
			audioReq.Prompt = value
		case "language":
			audioReq.Language = value
		case "temperature":
			parsed, err := strconv.ParseFloat(value, 32)
			if err != nil {
				return gopenai.AudioRequest{}, services.Wrap(services.ErrValidation, Name, "transcribe",
					fmt.Sprintf("invalid temperature %q", value), err)
			}
			audioReq.Temperature = float32(parsed)
		default:
			return gopenai.AudioRequest{}, services.Wrap(services.ErrValidation, Name, "transcribe",
				fmt.Sprintf("unsupported option %q", key), nil)
		}
	}
	resolved, ok := supportedFormats[format]
	if !ok {
		return gopenai.AudioRequest{}, services.Wrap(services.ErrValidation, Name, "transcribe",
			fmt.Sprintf("unsupported response_format %q", format), nil)
	}
	audioReq.Format = resolved
	return audioReq, nil
}

// classifySDKError maps API rejections to ErrSubmission and everything else
// to ErrTransport while keeping the SDK error in the chain.
func classifySDKError(err error) error {
	var apiErr *gopenai.APIError
	if errors.As(err, &apiErr) {
		return services.Wrap(services.ErrSubmission, Name, "transcribe", "request rejected",
			&services.PayloadError{StatusCode: apiErr.HTTPStatusCode, Payload: apiErr.Message, Err: err})
	}
	var reqErr *gopenai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode > 0 {
		return services.Wrap(services.ErrSubmission, Name, "transcribe", "request rejected",
			&services.PayloadError{StatusCode: reqErr.HTTPStatusCode, Payload: reqErr.Error(), Err: err})
	}
	return services.Wrap(services.ErrTransport, Name, "transcribe", "sdk call", err)
}
