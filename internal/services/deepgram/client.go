// Package deepgram implements single-call transcription against the Deepgram
// prerecorded /v1/listen endpoint.
package deepgram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"scribe/internal/logging"
	"scribe/internal/services"
	"scribe/internal/transcription"
)

const (
	// Name identifies the provider in config, logs and history.
	Name = "deepgram"

	defaultBaseURL     = "https://api.deepgram.com"
	defaultHTTPTimeout = 120 * time.Second
	listenPath         = "/v1/listen"
	audioFieldName     = "audio"
)

// Config captures the settings required to talk to Deepgram.
type Config struct {
	APIKey         string
	BaseURL        string
	Punctuate      bool
	Language       string
	Model          string
	TimeoutSeconds int
}

// Client uploads audio to Deepgram in one request.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
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

// NewClient constructs a Deepgram client.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	cfg.Language = strings.TrimSpace(cfg.Language)
	cfg.Model = strings.TrimSpace(cfg.Model)
	client := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(client)
	}
	client.logger = logging.NewComponentLogger(client.logger, Name)
	return client
}

// Name implements transcription.Provider.
func (c *Client) Name() string {
	return Name
}

// CacheFingerprint describes the settings that shape the transcript.
func (c *Client) CacheFingerprint() string {
	return transcription.SettingsFingerprint(map[string]string{
		"punctuate": strconv.FormatBool(c.cfg.Punctuate),
		"language":  c.cfg.Language,
		"model":     c.cfg.Model,
	})
}

// Transcribe sends the source to /v1/listen and extracts the first
// alternative of the first channel.
func (c *Client) Transcribe(ctx context.Context, req transcription.Request) (transcription.Transcript, error) {
	var empty transcription.Transcript
	if c == nil {
		return empty, services.Wrap(services.ErrConfiguration, Name, "transcribe", "nil client", nil)
	}
	if c.cfg.APIKey == "" {
		return empty, services.Wrap(services.ErrConfiguration, Name, "transcribe", "api key required (set deepgram.api_key or DEEPGRAM_API_KEY)", nil)
	}

	var (
		body        io.Reader
		contentType string
	)
	if req.IsRemote() {
		encoded, err := json.Marshal(map[string]string{"url": req.Source()})
		if err != nil {
			return empty, services.Wrap(services.ErrValidation, Name, "transcribe", "encode url body", err)
		}
		body = bytes.NewReader(encoded)
		contentType = "application/json"
	} else {
		buf, formType, err := c.multipartBody(ctx, req.Source())
		if err != nil {
			return empty, err
		}
		body = buf
		contentType = formType
	}

	endpoint := c.cfg.BaseURL + listenPath + "?" + c.query(req).Encode()
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return empty, services.Wrap(services.ErrTransport, Name, "transcribe", "build request", err)
	}
	request.Header.Set("Authorization", "Token "+c.cfg.APIKey)
	request.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(request)
	if err != nil {
		return empty, services.Wrap(services.ErrTransport, Name, "transcribe", "http request", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return empty, services.Wrap(services.ErrTransport, Name, "transcribe", "read response", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return empty, services.Wrap(services.ErrSubmission, Name, "transcribe", "request rejected",
			&services.PayloadError{StatusCode: resp.StatusCode, Payload: string(payload)})
	}
	return parseListenResponse(payload)
}

func (c *Client) multipartBody(ctx context.Context, path string) (*bytes.Buffer, string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, "", services.Wrap(services.ErrValidation, Name, "transcribe", "open audio", err)
	}
	defer file.Close()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	field, err := writer.CreateFormFile(audioFieldName, filepath.Base(path))
	if err != nil {
		return nil, "", services.Wrap(services.ErrValidation, Name, "transcribe", "create file field", err)
	}
	written, err := io.Copy(field, file)
	if err != nil {
		return nil, "", services.Wrap(services.ErrValidation, Name, "transcribe", "copy audio", err)
	}
	if err := writer.Close(); err != nil {
		return nil, "", services.Wrap(services.ErrValidation, Name, "transcribe", "close multipart writer", err)
	}
	logging.WithContext(ctx, c.logger).Info("uploading audio",
		logging.String("source", path),
		logging.String("size", humanize.Bytes(uint64(written))),
		logging.Int64("size_bytes", written),
	)
	return body, writer.FormDataContentType(), nil
}

// query builds the listen options. Request overrides win over config.
func (c *Client) query(req transcription.Request) url.Values {
	values := url.Values{}
	values.Set("punctuate", fmt.Sprintf("%t", c.cfg.Punctuate))
	if c.cfg.Language != "" {
		values.Set("language", c.cfg.Language)
	}
	if c.cfg.Model != "" {
		values.Set("model", c.cfg.Model)
	}
	for _, key := range req.OptionKeys() {
		value, _ := req.Option(key)
		values.Set(key, value)
	}
	return values
}

type listenResponse struct {
	Metadata *struct {
		RequestID string  `json:"request_id"`
		Duration  float64 `json:"duration"`
	} `json:"metadata"`
	Results *struct {
		Channels []struct {
			DetectedLanguage string `json:"detected_language"`
			Alternatives     []struct {
				Transcript string  `json:"transcript"`
				Confidence float64 `json:"confidence"`
			} `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
}

func parseListenResponse(payload []byte) (transcription.Transcript, error) {
	shapeErr := func(message string) error {
		return services.Wrap(services.ErrResponseShape, Name, "transcribe", message,
			&services.PayloadError{Payload: string(payload)})
	}
	var parsed listenResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return transcription.Transcript{}, shapeErr("decode response")
	}
	if parsed.Results == nil {
		return transcription.Transcript{}, shapeErr("response missing results")
	}
	if len(parsed.Results.Channels) == 0 {
		return transcription.Transcript{}, shapeErr("response has no channels")
	}
	channel := parsed.Results.Channels[0]
	if len(channel.Alternatives) == 0 {
		return transcription.Transcript{}, shapeErr("response has no alternatives")
	}
	alt := channel.Alternatives[0]
	transcript := transcription.Transcript{
		Provider:   Name,
		Text:       alt.Transcript,
		Confidence: alt.Confidence,
		Language:   channel.DetectedLanguage,
		Raw:        string(payload),
	}
	if parsed.Metadata != nil {
		transcript.RequestID = parsed.Metadata.RequestID
		transcript.Duration = time.Duration(parsed.Metadata.Duration * float64(time.Second))
	}
	return transcript, nil
}
