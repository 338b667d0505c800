package runner

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"scribe/internal/history"
	"scribe/internal/logging"
	"scribe/internal/services"
	"scribe/internal/transcriptcache"
	"scribe/internal/transcription"
)

// HistoryWriter persists run records.
type HistoryWriter interface {
	Append(ctx context.Context, rec history.Record) (history.Record, error)
}

// CacheFingerprinter is implemented by providers whose configuration changes
// the transcript they return. The fingerprint is folded into the cache key.
type CacheFingerprinter interface {
	CacheFingerprint() string
}

// Result is the outcome of a successful run.
type Result struct {
	Transcript transcription.Transcript
	Elapsed    time.Duration
	RunID      string
	Cached     bool
}

// Outcome pairs a provider name with its result or error.
type Outcome struct {
	Provider string
	Result   Result
	Err      error
}

// Runner coordinates providers with the cache and history stores.
type Runner struct {
	cache   *transcriptcache.Cache
	history HistoryWriter
	logger  *slog.Logger
	now     func() time.Time
	newID   func() string
}

// Option customizes the runner.
type Option func(*Runner)

// WithCache enables transcript cache lookups and stores.
func WithCache(cache *transcriptcache.Cache) Option {
	return func(r *Runner) { r.cache = cache }
}

// WithHistory records every run.
func WithHistory(writer HistoryWriter) Option {
	return func(r *Runner) { r.history = writer }
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithClock overrides the wall clock used for elapsed time.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		if now != nil {
			r.now = now
		}
	}
}

// New constructs a runner. Without options it only calls the provider.
func New(opts ...Option) *Runner {
	r := &Runner{
		logger: logging.NewNop(),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logging.NewComponentLogger(r.logger, "runner")
	return r
}

// Run executes provider on req. The returned Result carries the run id and
// elapsed time even when err is non-nil.
func (r *Runner) Run(ctx context.Context, provider transcription.Provider, req transcription.Request) (Result, error) {
	if provider == nil {
		return Result{}, services.Wrap(services.ErrConfiguration, "", "run", "provider required", nil)
	}
	name := provider.Name()
	runID := r.newID()
	ctx = services.WithRunID(ctx, runID)
	ctx = services.WithProvider(ctx, name)
	logger := logging.WithContext(ctx, r.logger)

	start := r.now()
	cacheKey := r.cacheKey(logger, req, provider)
	if entry, ok := r.lookup(ctx, logger, cacheKey); ok {
		result := Result{
			Transcript: transcription.Transcript{
				Provider:   name,
				Text:       entry.Text,
				Confidence: entry.Confidence,
				Language:   entry.Language,
			},
			Elapsed: r.now().Sub(start),
			RunID:   runID,
			Cached:  true,
		}
		logger.Info("transcript served from cache",
			logging.String("cache_key", cacheKey),
			logging.String(logging.FieldEventType, "cache_hit"))
		r.record(ctx, logger, req, result, nil)
		return result, nil
	}

	logger.Info("transcription started",
		logging.String("source", req.Source()),
		logging.Bool("remote", req.IsRemote()))

	transcript, err := provider.Transcribe(ctx, req)
	result := Result{Transcript: transcript, Elapsed: r.now().Sub(start), RunID: runID}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info("transcription canceled", logging.Duration("elapsed", result.Elapsed))
		} else {
			logging.ErrorWithContext(logger, "transcription failed", "transcription_failed",
				logging.Error(err),
				logging.ErrorKind(err),
				logging.Duration("elapsed", result.Elapsed),
				logging.String(logging.FieldErrorHint, hintFor(err)))
		}
		r.record(ctx, logger, req, result, err)
		return result, err
	}
	if transcript.Provider == "" {
		result.Transcript.Provider = name
	}

	logger.Info("transcription finished",
		logging.Duration("elapsed", result.Elapsed),
		logging.Int("characters", len(transcript.Text)),
		logging.Float64("confidence", transcript.Confidence),
		logging.String(logging.FieldJobID, transcript.JobID))

	r.store(ctx, logger, cacheKey, req, result)
	r.record(ctx, logger, req, result, nil)
	return result, nil
}

// Compare runs every provider sequentially on the same request.
func (r *Runner) Compare(ctx context.Context, providers []transcription.Provider, req transcription.Request) []Outcome {
	outcomes := make([]Outcome, 0, len(providers))
	for _, provider := range providers {
		if ctx.Err() != nil {
			break
		}
		result, err := r.Run(ctx, provider, req)
		outcomes = append(outcomes, Outcome{Provider: provider.Name(), Result: result, Err: err})
	}
	return outcomes
}

func (r *Runner) cacheKey(logger *slog.Logger, req transcription.Request, provider transcription.Provider) string {
	if !r.cache.Enabled() {
		return ""
	}
	var settings string
	if fp, ok := provider.(CacheFingerprinter); ok {
		settings = fp.CacheFingerprint()
	}
	key, err := transcriptcache.Key(req, provider.Name(), settings)
	if err != nil {
		logging.WarnWithContext(logger, "cache key unavailable", "cache_key_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check that the audio file is readable"),
			logging.String(logging.FieldImpact, "transcript cache skipped for this run"))
		return ""
	}
	return key
}

func (r *Runner) lookup(ctx context.Context, logger *slog.Logger, key string) (transcriptcache.Entry, bool) {
	if key == "" {
		return transcriptcache.Entry{}, false
	}
	entry, ok, err := r.cache.Lookup(ctx, key)
	if err != nil {
		logging.WarnWithContext(logger, "cache lookup failed", "cache_lookup_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "run scribe cache clear if the cache file is corrupt"),
			logging.String(logging.FieldImpact, "provider called without cache"))
		return transcriptcache.Entry{}, false
	}
	return entry, ok
}

func (r *Runner) store(ctx context.Context, logger *slog.Logger, key string, req transcription.Request, result Result) {
	if key == "" {
		return
	}
	err := r.cache.Store(context.WithoutCancel(ctx), transcriptcache.Entry{
		Key:        key,
		Provider:   result.Transcript.Provider,
		Source:     req.Source(),
		Text:       result.Transcript.Text,
		Confidence: result.Transcript.Confidence,
		Language:   result.Transcript.Language,
	})
	if err != nil {
		logging.WarnWithContext(logger, "cache store failed", "cache_store_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check permissions on the cache directory"),
			logging.String(logging.FieldImpact, "next run will call the provider again"))
	}
}

func (r *Runner) record(ctx context.Context, logger *slog.Logger, req transcription.Request, result Result, runErr error) {
	if r.history == nil {
		return
	}
	provider, _ := services.ProviderFromContext(ctx)
	rec := history.Record{
		ID:         result.RunID,
		Provider:   provider,
		Source:     req.Source(),
		Status:     history.StatusCompleted,
		Transcript: result.Transcript.Text,
		Confidence: result.Transcript.Confidence,
		Language:   result.Transcript.Language,
		JobID:      result.Transcript.JobID,
		Cached:     result.Cached,
		Elapsed:    result.Elapsed,
	}
	if runErr != nil {
		rec.Status = history.StatusFailed
		rec.Error = runErr.Error()
		rec.ErrorKind = services.Kind(runErr)
	}
	if _, err := r.history.Append(context.WithoutCancel(ctx), rec); err != nil {
		logging.WarnWithContext(logger, "history append failed", "history_append_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the history database path or delete it to reset"),
			logging.String(logging.FieldImpact, "run not recorded in history"))
	}
}

func hintFor(err error) string {
	switch {
	case errors.Is(err, services.ErrConfiguration):
		return "set the provider api_key in the config file or its environment variable"
	case errors.Is(err, services.ErrValidation):
		return "check the audio source path and option names"
	case errors.Is(err, services.ErrTimedOut):
		return "raise poll_timeout_seconds or max_poll_attempts"
	case errors.Is(err, services.ErrSubmission):
		return "inspect the provider response payload"
	case errors.Is(err, services.ErrTransport):
		return "check network connectivity to the provider"
	default:
		return "check logs for details"
	}
}
