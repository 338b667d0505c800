package transcription

import (
	"context"
	"errors"
	"fmt"
	"time"

	"scribe/internal/services"
)

const (
	DefaultPollInterval    = 3 * time.Second
	DefaultPollMaxAttempts = 200
)

// FetchFunc retrieves the current state of a job.
type FetchFunc func(ctx context.Context) (Job, error)

// SleepFunc suspends between polls. Implementations must return early with the
// context error when ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// PollConfig bounds the poll loop.
type PollConfig struct {
	Provider    string
	Interval    time.Duration
	MaxAttempts int
	// Timeout is the overall deadline; zero disables it.
	Timeout time.Duration
	Sleep   SleepFunc
	// OnPoll, when set, observes every fetched job.
	OnPoll func(attempt int, job Job)
}

// PollUntilTerminal polls fetch until the job is completed or errored. It
// never sleeps after a terminal poll.
func PollUntilTerminal(ctx context.Context, fetch FetchFunc, cfg PollConfig) (Job, error) {
	if fetch == nil {
		return Job{}, errors.New("poll: fetch function required")
	}
	interval := cfg.Interval
	if interval < 0 {
		interval = 0
	}
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultPollMaxAttempts
	}
	sleep := cfg.Sleep
	if sleep == nil {
		sleep = SleepContext
	}

	parent := ctx
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	var last Job
	for attempt := 1; attempt <= attempts; attempt++ {
		job, err := fetch(ctx)
		if err != nil {
			if deadlineHit(parent, ctx) {
				return last, timedOut(cfg, attempt)
			}
			return last, err
		}
		last = job
		if cfg.OnPoll != nil {
			cfg.OnPoll(attempt, job)
		}
		switch job.Status {
		case StatusCompleted:
			return job, nil
		case StatusError:
			return job, services.Wrap(services.ErrJobFailed, cfg.Provider, "poll",
				fmt.Sprintf("transcription failed: %s", job.Error), nil)
		}
		if attempt == attempts {
			break
		}
		if err := sleep(ctx, interval); err != nil {
			if deadlineHit(parent, ctx) {
				return last, timedOut(cfg, attempt)
			}
			return last, err
		}
	}
	return last, services.Wrap(services.ErrTimedOut, cfg.Provider, "poll",
		fmt.Sprintf("job still %s after %d attempts", statusLabel(last.Status), attempts), nil)
}

// SleepContext waits for d or until ctx is done.
func SleepContext(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// deadlineHit reports whether the poll deadline expired while the caller's
// context is still live.
func deadlineHit(parent, ctx context.Context) bool {
	return parent.Err() == nil && errors.Is(ctx.Err(), context.DeadlineExceeded)
}

func timedOut(cfg PollConfig, attempt int) error {
	return services.Wrap(services.ErrTimedOut, cfg.Provider, "poll",
		fmt.Sprintf("deadline %s exceeded after %d attempts", cfg.Timeout, attempt), nil)
}

func statusLabel(status JobStatus) string {
	if status == "" {
		return "pending"
	}
	return string(status)
}
