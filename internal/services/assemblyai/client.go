package assemblyai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
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
	Name = "assemblyai"

	defaultBaseURL      = "https://api.assemblyai.com"
	defaultSpeechModel  = "universal"
	defaultHTTPTimeout  = 120 * time.Second
	uploadPath          = "/v2/upload"
	transcriptPath      = "/v2/transcript"
	headerAuthorization = "authorization"
)

// Config captures the settings required to talk to AssemblyAI.
type Config struct {
	APIKey            string
	BaseURL           string
	SpeechModel       string
	SpeakerLabels     bool
	FormatText        bool
	Punctuate         bool
	LanguageDetection bool
	LanguageCode      string
	PollInterval      time.Duration
	MaxPollAttempts   int
	PollTimeout       time.Duration
	TimeoutSeconds    int
}

// Client submits audio to AssemblyAI and polls for the transcript.
type Client struct {
	cfg        Config
	httpClient *http.Client
	sleeper    transcription.SleepFunc
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

// WithSleeper overrides how poll interval sleeps are performed (useful for tests).
func WithSleeper(sleeper transcription.SleepFunc) Option {
	return func(c *Client) {
		if sleeper != nil {
			c.sleeper = sleeper
		}
	}
}

// WithLogger attaches a logger for submit and poll progress.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient constructs an AssemblyAI client using the supplied configuration.
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
	cfg.SpeechModel = strings.TrimSpace(cfg.SpeechModel)
	if cfg.SpeechModel == "" {
		cfg.SpeechModel = defaultSpeechModel
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = transcription.DefaultPollInterval
	}
	if cfg.MaxPollAttempts <= 0 {
		cfg.MaxPollAttempts = transcription.DefaultPollMaxAttempts
	}
	client := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		sleeper:    transcription.SleepContext,
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
		"speech_model":       c.cfg.SpeechModel,
		"speaker_labels":     strconv.FormatBool(c.cfg.SpeakerLabels),
		"format_text":        strconv.FormatBool(c.cfg.FormatText),
		"punctuate":          strconv.FormatBool(c.cfg.Punctuate),
		"language_detection": strconv.FormatBool(c.cfg.LanguageDetection),
		"language_code":      c.cfg.LanguageCode,
	})
}

// Transcribe uploads the source when it is local, submits the job, and polls
// until it reaches a terminal state.
func (c *Client) Transcribe(ctx context.Context, req transcription.Request) (transcription.Transcript, error) {
	var empty transcription.Transcript
	if c == nil {
		return empty, services.Wrap(services.ErrConfiguration, Name, "transcribe", "nil client", nil)
	}
	audioURL := req.Source()
	if !req.IsRemote() {
		uploaded, err := c.Upload(ctx, req.Source())
		if err != nil {
			return empty, err
		}
		audioURL = uploaded
	}

	jobID, err := c.Submit(ctx, audioURL, req)
	if err != nil {
		return empty, err
	}
	logging.WithContext(ctx, c.logger).Info("transcription submitted",
		logging.String(logging.FieldJobID, jobID),
		logging.String(logging.FieldEventType, "job_submitted"),
	)

	job, err := transcription.PollUntilTerminal(ctx, func(ctx context.Context) (transcription.Job, error) {
		return c.Poll(ctx, jobID)
	}, transcription.PollConfig{
		Provider:    Name,
		Interval:    c.cfg.PollInterval,
		MaxAttempts: c.cfg.MaxPollAttempts,
		Timeout:     c.cfg.PollTimeout,
		Sleep:       c.sleeper,
		OnPoll: func(attempt int, job transcription.Job) {
			logging.WithContext(ctx, c.logger).Debug("transcription status",
				logging.String(logging.FieldJobID, jobID),
				logging.Int("attempt", attempt),
				logging.String("status", string(job.Status)),
			)
		},
	})
	if err != nil {
		return empty, err
	}

	return transcription.Transcript{
		Provider:   Name,
		Text:       job.Text,
		Confidence: job.Confidence,
		Language:   job.Language,
		JobID:      job.ID,
		Duration:   time.Duration(job.Duration * float64(time.Second)),
		Raw:        job.Raw,
	}, nil
}

// Upload sends a local audio file to AssemblyAI and returns the hosted URL.
func (c *Client) Upload(ctx context.Context, path string) (string, error) {
	if err := c.requireKey("upload"); err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, Name, "upload", "read audio", err)
	}
	logging.WithContext(ctx, c.logger).Info("uploading audio",
		logging.String("source", path),
		logging.String("size", humanize.Bytes(uint64(len(data)))),
		logging.Int64("size_bytes", int64(len(data))),
	)

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+uploadPath, bytes.NewReader(data))
	if err != nil {
		return "", services.Wrap(services.ErrTransport, Name, "upload", "build request", err)
	}
	request.Header.Set(headerAuthorization, c.cfg.APIKey)
	request.Header.Set("Content-Type", "application/octet-stream")

	status, payload, err := c.do(request, "upload")
	if err != nil {
		return "", err
	}
	if status < 200 || status >= 300 {
		return "", services.Wrap(services.ErrSubmission, Name, "upload", "upload rejected",
			&services.PayloadError{StatusCode: status, Payload: string(payload)})
	}
	var parsed struct {
		UploadURL string `json:"upload_url"`
	}
	if err := json.Unmarshal(payload, &parsed); err != nil || strings.TrimSpace(parsed.UploadURL) == "" {
		return "", services.Wrap(services.ErrSubmission, Name, "upload", "response missing upload_url",
			&services.PayloadError{StatusCode: status, Payload: string(payload)})
	}
	return strings.TrimSpace(parsed.UploadURL), nil
}

// Submit creates a transcription job for audioURL and returns its id.
func (c *Client) Submit(ctx context.Context, audioURL string, req transcription.Request) (string, error) {
	if err := c.requireKey("submit"); err != nil {
		return "", err
	}
	body, err := json.Marshal(c.submitPayload(audioURL, req))
	if err != nil {
		return "", services.Wrap(services.ErrValidation, Name, "submit", "encode request", err)
	}
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+transcriptPath, bytes.NewReader(body))
	if err != nil {
		return "", services.Wrap(services.ErrTransport, Name, "submit", "build request", err)
	}
	request.Header.Set(headerAuthorization, c.cfg.APIKey)
	request.Header.Set("Content-Type", "application/json")

	status, payload, err := c.do(request, "submit")
	if err != nil {
		return "", err
	}
	if status < 200 || status >= 300 {
		return "", services.Wrap(services.ErrSubmission, Name, "submit", "request rejected",
			&services.PayloadError{StatusCode: status, Payload: string(payload)})
	}
	var parsed struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(payload, &parsed); err != nil || strings.TrimSpace(parsed.ID) == "" {
		return "", services.Wrap(services.ErrSubmission, Name, "submit", "response missing id",
			&services.PayloadError{StatusCode: status, Payload: string(payload)})
	}
	return strings.TrimSpace(parsed.ID), nil
}

// Poll fetches the current state of the job.
func (c *Client) Poll(ctx context.Context, jobID string) (transcription.Job, error) {
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return transcription.Job{}, services.Wrap(services.ErrValidation, Name, "poll", "job id required", nil)
	}
	if err := c.requireKey("poll"); err != nil {
		return transcription.Job{}, err
	}
	endpoint := c.cfg.BaseURL + transcriptPath + "/" + url.PathEscape(jobID)
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return transcription.Job{}, services.Wrap(services.ErrTransport, Name, "poll", "build request", err)
	}
	request.Header.Set(headerAuthorization, c.cfg.APIKey)

	status, payload, err := c.do(request, "poll")
	if err != nil {
		return transcription.Job{}, err
	}
	if status < 200 || status >= 300 {
		return transcription.Job{}, services.Wrap(services.ErrTransport, Name, "poll",
			fmt.Sprintf("unexpected status %d", status),
			&services.PayloadError{StatusCode: status, Payload: string(payload)})
	}

	var parsed transcriptResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return transcription.Job{}, services.Wrap(services.ErrResponseShape, Name, "poll", "decode response",
			&services.PayloadError{StatusCode: status, Payload: string(payload)})
	}
	id := strings.TrimSpace(parsed.ID)
	if id == "" {
		id = jobID
	}
	return transcription.Job{
		ID:         id,
		Status:     transcription.JobStatus(strings.ToLower(strings.TrimSpace(parsed.Status))),
		Text:       derefString(parsed.Text),
		Error:      derefString(parsed.Error),
		Confidence: derefFloat(parsed.Confidence),
		Language:   derefString(parsed.LanguageCode),
		Duration:   derefFloat(parsed.AudioDuration),
		Raw:        string(payload),
	}, nil
}

type transcriptResponse struct {
	ID            string   `json:"id"`
	Status        string   `json:"status"`
	Text          *string  `json:"text"`
	Error         *string  `json:"error"`
	Confidence    *float64 `json:"confidence"`
	LanguageCode  *string  `json:"language_code"`
	AudioDuration *float64 `json:"audio_duration"`
}

// submitPayload merges the configured defaults with per-request overrides.
// Boolean-looking override values are sent as JSON booleans.
func (c *Client) submitPayload(audioURL string, req transcription.Request) map[string]any {
	payload := map[string]any{
		"audio_url":          audioURL,
		"speaker_labels":     c.cfg.SpeakerLabels,
		"format_text":        c.cfg.FormatText,
		"punctuate":          c.cfg.Punctuate,
		"speech_model":       c.cfg.SpeechModel,
		"language_detection": c.cfg.LanguageDetection,
	}
	if code := strings.TrimSpace(c.cfg.LanguageCode); code != "" {
		payload["language_code"] = code
		payload["language_detection"] = false
	}
	for _, key := range req.OptionKeys() {
		value, _ := req.Option(key)
		if key == "language" {
			key = "language_code"
		}
		if b, ok := transcription.ParseBool(value); ok {
			payload[key] = b
			continue
		}
		payload[key] = value
	}
	if _, ok := req.Option("language"); ok {
		payload["language_detection"] = false
	}
	if _, ok := req.Option("language_code"); ok {
		payload["language_detection"] = false
	}
	return payload
}

func (c *Client) do(request *http.Request, op string) (int, []byte, error) {
	resp, err := c.httpClient.Do(request)
	if err != nil {
		return 0, nil, services.Wrap(services.ErrTransport, Name, op, "http request", err)
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, services.Wrap(services.ErrTransport, Name, op, "read response", err)
	}
	return resp.StatusCode, payload, nil
}

func (c *Client) requireKey(op string) error {
	if c.cfg.APIKey == "" {
		return services.Wrap(services.ErrConfiguration, Name, op, "api key required (set assemblyai.api_key or ASSEMBLYAI_API_KEY)", nil)
	}
	return nil
}

func derefString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func derefFloat(value *float64) float64 {
	if value == nil {
		return 0
	}
	return *value
}
