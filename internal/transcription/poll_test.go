package transcription

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"scribe/internal/services"
)

type scriptedFetcher struct {
	jobs  []Job
	calls int
}

func (f *scriptedFetcher) fetch(context.Context) (Job, error) {
	idx := f.calls
	if idx >= len(f.jobs) {
		idx = len(f.jobs) - 1
	}
	f.calls++
	return f.jobs[idx], nil
}

type countingSleeper struct {
	slept []time.Duration
}

func (s *countingSleeper) sleep(_ context.Context, d time.Duration) error {
	s.slept = append(s.slept, d)
	return nil
}

func TestPollCompletesAfterThreePollsAndTwoSleeps(t *testing.T) {
	fetcher := &scriptedFetcher{jobs: []Job{
		{ID: "X", Status: StatusProcessing},
		{ID: "X", Status: StatusProcessing},
		{ID: "X", Status: StatusCompleted, Text: "hi"},
	}}
	sleeper := &countingSleeper{}

	job, err := PollUntilTerminal(context.Background(), fetcher.fetch, PollConfig{
		Provider: "assemblyai",
		Interval: 3 * time.Second,
		Sleep:    sleeper.sleep,
	})
	if err != nil {
		t.Fatalf("PollUntilTerminal returned error: %v", err)
	}
	if job.Text != "hi" {
		t.Fatalf("expected text hi, got %q", job.Text)
	}
	if fetcher.calls != 3 {
		t.Fatalf("expected 3 polls, got %d", fetcher.calls)
	}
	if len(sleeper.slept) != 2 {
		t.Fatalf("expected 2 sleeps, got %d", len(sleeper.slept))
	}
	for _, d := range sleeper.slept {
		if d != 3*time.Second {
			t.Fatalf("expected fixed 3s interval, got %v", d)
		}
	}
}

func TestPollErrorStatusStopsImmediately(t *testing.T) {
	fetcher := &scriptedFetcher{jobs: []Job{
		{ID: "X", Status: StatusError, Error: "bad audio"},
		{ID: "X", Status: StatusCompleted, Text: "unreachable"},
	}}
	sleeper := &countingSleeper{}

	_, err := PollUntilTerminal(context.Background(), fetcher.fetch, PollConfig{Sleep: sleeper.sleep})
	if err == nil {
		t.Fatal("expected job failure")
	}
	if !errors.Is(err, services.ErrJobFailed) {
		t.Fatalf("expected ErrJobFailed, got %v", err)
	}
	if !strings.Contains(err.Error(), "bad audio") {
		t.Fatalf("expected remote detail in error, got %q", err.Error())
	}
	if fetcher.calls != 1 {
		t.Fatalf("expected no further polls, got %d calls", fetcher.calls)
	}
	if len(sleeper.slept) != 0 {
		t.Fatalf("expected no sleeps, got %d", len(sleeper.slept))
	}
}

func TestPollMaxAttemptsTimesOut(t *testing.T) {
	fetcher := &scriptedFetcher{jobs: []Job{{ID: "X", Status: StatusQueued}}}
	sleeper := &countingSleeper{}

	_, err := PollUntilTerminal(context.Background(), fetcher.fetch, PollConfig{
		MaxAttempts: 4,
		Sleep:       sleeper.sleep,
	})
	if !errors.Is(err, services.ErrTimedOut) {
		t.Fatalf("expected ErrTimedOut, got %v", err)
	}
	if fetcher.calls != 4 {
		t.Fatalf("expected 4 polls, got %d", fetcher.calls)
	}
	if len(sleeper.slept) != 3 {
		t.Fatalf("expected 3 sleeps, got %d", len(sleeper.slept))
	}
	if !strings.Contains(err.Error(), "queued") {
		t.Fatalf("expected last status in error, got %q", err.Error())
	}
}

func TestPollDeadlineTimesOut(t *testing.T) {
	fetcher := &scriptedFetcher{jobs: []Job{{ID: "X", Status: StatusProcessing}}}

	_, err := PollUntilTerminal(context.Background(), fetcher.fetch, PollConfig{
		Interval:    time.Hour,
		MaxAttempts: 10,
		Timeout:     20 * time.Millisecond,
	})
	if !errors.Is(err, services.ErrTimedOut) {
		t.Fatalf("expected ErrTimedOut, got %v", err)
	}
	if fetcher.calls != 1 {
		t.Fatalf("expected the deadline to interrupt the first sleep, got %d calls", fetcher.calls)
	}
}

func TestPollParentCancellationIsNotTimeout(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	fetcher := &scriptedFetcher{jobs: []Job{{ID: "X", Status: StatusProcessing}}}

	_, err := PollUntilTerminal(ctx, fetcher.fetch, PollConfig{
		Timeout: time.Minute,
		Sleep: func(context.Context, time.Duration) error {
			cancel()
			return context.Canceled
		},
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if errors.Is(err, services.ErrTimedOut) {
		t.Fatal("cancellation must not be reported as a timeout")
	}
}

func TestPollPropagatesFetchError(t *testing.T) {
	boom := errors.New("boom")
	_, err := PollUntilTerminal(context.Background(), func(context.Context) (Job, error) {
		return Job{}, boom
	}, PollConfig{})
	if !errors.Is(err, boom) {
		t.Fatalf("expected fetch error, got %v", err)
	}
}

func TestPollObserverSeesEveryAttempt(t *testing.T) {
	fetcher := &scriptedFetcher{jobs: []Job{
		{Status: StatusQueued},
		{Status: StatusProcessing},
		{Status: StatusCompleted},
	}}
	var seen []JobStatus
	_, err := PollUntilTerminal(context.Background(), fetcher.fetch, PollConfig{
		Sleep:  (&countingSleeper{}).sleep,
		OnPoll: func(_ int, job Job) { seen = append(seen, job.Status) },
	})
	if err != nil {
		t.Fatalf("PollUntilTerminal returned error: %v", err)
	}
	if len(seen) != 3 || seen[2] != StatusCompleted {
		t.Fatalf("unexpected observed statuses %v", seen)
	}
}

func TestSleepContextHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := SleepContext(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if err := SleepContext(context.Background(), 0); err != nil {
		t.Fatalf("expected zero sleep to succeed, got %v", err)
	}
}
