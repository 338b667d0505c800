package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"scribe/internal/history"
	"scribe/internal/services"
	"scribe/internal/services/deepgram"
	"scribe/internal/testsupport"
	"scribe/internal/transcriptcache"
	"scribe/internal/transcription"
)

type fakeProvider struct {
	name  string
	text  string
	err   error
	calls int
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Transcribe(ctx context.Context, _ transcription.Request) (transcription.Transcript, error) {
	f.calls++
	if id, ok := services.RunIDFromContext(ctx); !ok || id == "" {
		return transcription.Transcript{}, errors.New("run id missing from context")
	}
	if f.err != nil {
		return transcription.Transcript{}, f.err
	}
	return transcription.Transcript{Text: f.text, Confidence: 0.8, JobID: "job-1"}, nil
}

type memoryHistory struct {
	records []history.Record
	err     error
}

func (m *memoryHistory) Append(_ context.Context, rec history.Record) (history.Record, error) {
	if m.err != nil {
		return history.Record{}, m.err
	}
	m.records = append(m.records, rec)
	return rec, nil
}

func steppingClock(step time.Duration) func() time.Time {
	current := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		now := current
		current = current.Add(step)
		return now
	}
}

func newRequest(t *testing.T) transcription.Request {
	t.Helper()
	path := testsupport.WriteAudio(t, t.TempDir(), "clip.wav", []byte("riff"))
	req, err := transcription.NewRequest(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	return req
}

func TestRunRecordsSuccess(t *testing.T) {
	provider := &fakeProvider{name: "deepgram", text: "hello"}
	hist := &memoryHistory{}
	r := New(WithHistory(hist), WithClock(steppingClock(1500*time.Millisecond)))

	result, err := r.Run(context.Background(), provider, newRequest(t))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Transcript.Text != "hello" || result.Transcript.Provider != "deepgram" {
		t.Fatalf("unexpected transcript %+v", result.Transcript)
	}
	if result.Elapsed != 1500*time.Millisecond {
		t.Fatalf("elapsed = %s", result.Elapsed)
	}
	if result.RunID == "" || result.Cached {
		t.Fatalf("unexpected result metadata %+v", result)
	}
	if len(hist.records) != 1 {
		t.Fatalf("expected 1 history record, got %d", len(hist.records))
	}
	rec := hist.records[0]
	if rec.ID != result.RunID || rec.Status != history.StatusCompleted || rec.Provider != "deepgram" || rec.JobID != "job-1" {
		t.Fatalf("unexpected record %+v", rec)
	}
}

func TestRunLogsConfidence(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	r := New(WithLogger(logger))

	if _, err := r.Run(context.Background(), &fakeProvider{name: "deepgram", text: "hello"}, newRequest(t)); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(buf.String(), `"confidence":0.8`) {
		t.Fatalf("expected confidence in log output: %s", buf.String())
	}
}

func TestRunRecordsFailure(t *testing.T) {
	remote := services.Wrap(services.ErrJobFailed, "assemblyai", "poll", "bad audio", nil)
	provider := &fakeProvider{name: "assemblyai", err: remote}
	hist := &memoryHistory{}

	result, err := New(WithHistory(hist)).Run(context.Background(), provider, newRequest(t))
	if !errors.Is(err, services.ErrJobFailed) {
		t.Fatalf("expected ErrJobFailed, got %v", err)
	}
	if result.RunID == "" {
		t.Fatal("failed run should still carry a run id")
	}
	if len(hist.records) != 1 || hist.records[0].Status != history.StatusFailed {
		t.Fatalf("expected failed record, got %+v", hist.records)
	}
	if hist.records[0].ErrorKind != services.KindJobFailed {
		t.Fatalf("error kind = %s", hist.records[0].ErrorKind)
	}
}

func TestRunUsesCache(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cache := transcriptcache.NewCache(cfg.Cache.Path, nil)
	provider := &fakeProvider{name: "openai", text: "cached words"}
	r := New(WithCache(cache))
	req := newRequest(t)

	first, err := r.Run(context.Background(), provider, req)
	if err != nil {
		t.Fatalf("first Run: %v", err)
	}
	second, err := r.Run(context.Background(), provider, req)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if provider.calls != 1 {
		t.Fatalf("provider called %d times, want 1", provider.calls)
	}
	if !second.Cached || second.Transcript.Text != first.Transcript.Text {
		t.Fatalf("second run should be served from cache: %+v", second)
	}
	if first.RunID == second.RunID {
		t.Fatal("each run needs its own id")
	}
}

func TestRunCacheSeparatesProviderSettings(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lang := r.URL.Query().Get("language")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"metadata":{"request_id":"req-%s"},"results":{"channels":[{"alternatives":[{"transcript":"lang=%s","confidence":0.9}]}]}}`, lang, lang)
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t)
	cache := transcriptcache.NewCache(cfg.Cache.Path, nil)
	r := New(WithCache(cache))
	req := newRequest(t)

	english := deepgram.NewClient(deepgram.Config{APIKey: "k", BaseURL: server.URL, Language: "en"})
	french := deepgram.NewClient(deepgram.Config{APIKey: "k", BaseURL: server.URL, Language: "fr"})

	first, err := r.Run(context.Background(), english, req)
	if err != nil {
		t.Fatalf("english Run: %v", err)
	}
	second, err := r.Run(context.Background(), french, req)
	if err != nil {
		t.Fatalf("french Run: %v", err)
	}
	if first.Transcript.Text != "lang=en" || first.Cached {
		t.Fatalf("unexpected english result %+v", first)
	}
	if second.Cached || second.Transcript.Text != "lang=fr" {
		t.Fatalf("language change served a stale cache entry: %+v", second)
	}

	again, err := r.Run(context.Background(), french, req)
	if err != nil {
		t.Fatalf("repeat Run: %v", err)
	}
	if !again.Cached || again.Transcript.Text != "lang=fr" {
		t.Fatalf("expected cached french transcript, got %+v", again)
	}
}

func TestRunSkipsCacheOnFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cache := transcriptcache.NewCache(cfg.Cache.Path, nil)
	provider := &fakeProvider{name: "deepgram", err: errors.New("boom")}

	if _, err := New(WithCache(cache)).Run(context.Background(), provider, newRequest(t)); err == nil {
		t.Fatal("expected provider error")
	}
	count, err := cache.Count(context.Background())
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 0 {
		t.Fatalf("failed run should not be cached, count = %d", count)
	}
}

func TestRunIgnoresHistoryFailure(t *testing.T) {
	provider := &fakeProvider{name: "deepgram", text: "ok"}
	hist := &memoryHistory{err: errors.New("disk full")}

	result, err := New(WithHistory(hist)).Run(context.Background(), provider, newRequest(t))
	if err != nil {
		t.Fatalf("history failure must not fail the run: %v", err)
	}
	if result.Transcript.Text != "ok" {
		t.Fatalf("text = %q", result.Transcript.Text)
	}
}

func TestRunRequiresProvider(t *testing.T) {
	if _, err := New().Run(context.Background(), nil, newRequest(t)); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestCompareRunsEachProvider(t *testing.T) {
	good := &fakeProvider{name: "deepgram", text: "one"}
	bad := &fakeProvider{name: "openai", err: errors.New("nope")}
	other := &fakeProvider{name: "assemblyai", text: "two"}

	outcomes := New().Compare(context.Background(), []transcription.Provider{good, bad, other}, newRequest(t))
	if len(outcomes) != 3 {
		t.Fatalf("expected 3 outcomes, got %d", len(outcomes))
	}
	if outcomes[0].Err != nil || outcomes[0].Result.Transcript.Text != "one" {
		t.Fatalf("unexpected first outcome %+v", outcomes[0])
	}
	if outcomes[1].Err == nil || outcomes[1].Provider != "openai" {
		t.Fatalf("unexpected second outcome %+v", outcomes[1])
	}
	if outcomes[2].Result.Transcript.Text != "two" {
		t.Fatalf("a failure must not stop later providers: %+v", outcomes[2])
	}
}

func TestCompareStopsWhenCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	provider := &fakeProvider{name: "deepgram", text: "x"}
	outcomes := New().Compare(ctx, []transcription.Provider{provider}, newRequest(t))
	if len(outcomes) != 0 || provider.calls != 0 {
		t.Fatalf("canceled compare should not call providers: %+v", outcomes)
	}
}
