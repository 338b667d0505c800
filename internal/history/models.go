package history

import (
	"strings"
	"time"
)

// Status is the outcome recorded for a run.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Record is one transcription run.
type Record struct {
	ID         string        `json:"id"`
	Provider   string        `json:"provider"`
	Source     string        `json:"source"`
	Status     Status        `json:"status"`
	Transcript string        `json:"transcript,omitempty"`
	Error      string        `json:"error,omitempty"`
	ErrorKind  string        `json:"error_kind,omitempty"`
	Confidence float64       `json:"confidence,omitempty"`
	Language   string        `json:"language,omitempty"`
	JobID      string        `json:"job_id,omitempty"`
	Cached     bool          `json:"cached"`
	Elapsed    time.Duration `json:"elapsed_ns"`
	CreatedAt  time.Time     `json:"created_at"`
}

// Preview returns the first line of the transcript truncated to limit runes.
func (r Record) Preview(limit int) string {
	text := r.Transcript
	if r.Status == StatusFailed {
		text = r.Error
	}
	text = strings.TrimSpace(text)
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		text = text[:idx]
	}
	runes := []rune(text)
	if limit > 0 && len(runes) > limit {
		if limit <= 3 {
			return string(runes[:limit])
		}
		return string(runes[:limit-3]) + "..."
	}
	return text
}
