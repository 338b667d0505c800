package transcription

import (
	"context"
	"net/url"
	"sort"
	"strings"
	"time"

	"scribe/internal/services"
)

// JobStatus is the remote state of an asynchronous transcription job.
type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusError      JobStatus = "error"
)

// Terminal reports whether no further transition can occur from s.
func (s JobStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// Job is the last observed state of a remote transcription job.
type Job struct {
	ID         string
	Status     JobStatus
	Text       string
	Error      string
	Confidence float64
	Language   string
	Duration   float64
	Raw        string
}

// Request is one audio source plus provider option overrides.
type Request struct {
	source  string
	options map[string]string
}

// NewRequest validates the source and copies options so later mutation of the
// caller's map cannot leak into the request.
func NewRequest(source string, options map[string]string) (Request, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return Request{}, services.Wrap(services.ErrValidation, "", "request", "audio source required", nil)
	}
	copied := make(map[string]string, len(options))
	for key, value := range options {
		key = strings.ToLower(strings.TrimSpace(key))
		if key == "" {
			continue
		}
		copied[key] = strings.TrimSpace(value)
	}
	return Request{source: source, options: copied}, nil
}

// Source returns the audio URL or local path.
func (r Request) Source() string {
	return r.source
}

// IsRemote reports whether the source is an http(s) URL.
func (r Request) IsRemote() bool {
	parsed, err := url.Parse(r.source)
	if err != nil {
		return false
	}
	scheme := strings.ToLower(parsed.Scheme)
	return (scheme == "http" || scheme == "https") && parsed.Host != ""
}

// Option returns the override for key, if present.
func (r Request) Option(key string) (string, bool) {
	value, ok := r.options[strings.ToLower(strings.TrimSpace(key))]
	return value, ok
}

// Options returns a copy of all overrides.
func (r Request) Options() map[string]string {
	out := make(map[string]string, len(r.options))
	for key, value := range r.options {
		out[key] = value
	}
	return out
}

// OptionKeys returns the override names in sorted order.
func (r Request) OptionKeys() []string {
	keys := make([]string, 0, len(r.options))
	for key := range r.options {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Transcript is the provider-neutral transcription result.
type Transcript struct {
	Provider   string
	Text       string
	Confidence float64
	Language   string
	JobID      string
	RequestID  string
	Duration   time.Duration
	Raw        string
}

// Provider is the capability every speech-to-text backend implements.
type Provider interface {
	Name() string
	Transcribe(ctx context.Context, req Request) (Transcript, error)
}

// SettingsFingerprint renders settings as sorted key=value pairs joined by
// newlines. Providers use it to describe the configuration that shapes their
// output.
func SettingsFingerprint(settings map[string]string) string {
	keys := make([]string, 0, len(settings))
	for key := range settings {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	var b strings.Builder
	for i, key := range keys {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(key)
		b.WriteByte('=')
		b.WriteString(settings[key])
	}
	return b.String()
}

// ParseBool accepts the option spellings used on the command line and in the
// vendor query strings.
func ParseBool(value string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "1", "yes", "on":
		return true, true
	case "false", "0", "no", "off":
		return false, true
	default:
		return false, false
	}
}
