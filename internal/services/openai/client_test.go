package openai_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	gopenai "github.com/sashabaranov/go-openai"

	"scribe/internal/services"
	"scribe/internal/services/openai"
	"scribe/internal/transcription"
)

type fakeTranscriber struct {
	text    string
	err     error
	request gopenai.AudioRequest
	calls   int
}

func (f *fakeTranscriber) CreateTranscription(_ context.Context, req gopenai.AudioRequest) (gopenai.AudioResponse, error) {
	f.calls++
	f.request = req
	if f.err != nil {
		return gopenai.AudioResponse{}, f.err
	}
	return gopenai.AudioResponse{Text: f.text}, nil
}

func writeAudio(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test2.mp3")
	if err := os.WriteFile(path, []byte("fake-mp3"), 0o644); err != nil {
		t.Fatalf("write audio: %v", err)
	}
	return path
}

func mustRequest(t *testing.T, source string, opts map[string]string) transcription.Request {
	t.Helper()
	req, err := transcription.NewRequest(source, opts)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	return req
}

func TestTranscribeReturnsSDKTextUnchanged(t *testing.T) {
	fake := &fakeTranscriber{text: "hello"}
	client := openai.NewClient(openai.Config{APIKey: "sk-test"}, openai.WithTranscriber(fake))
	audio := writeAudio(t)

	transcript, err := client.Transcribe(context.Background(), mustRequest(t, audio, nil))
	if err != nil {
		t.Fatalf("Transcribe returned error: %v", err)
	}
	if transcript.Text != "hello" {
		t.Fatalf("expected exactly hello, got %q", transcript.Text)
	}
	if fake.request.Model != "whisper-1" {
		t.Fatalf("expected whisper-1, got %q", fake.request.Model)
	}
	if fake.request.Format != gopenai.AudioResponseFormatText {
		t.Fatalf("expected text format, got %q", fake.request.Format)
	}
	if fake.request.FilePath != audio {
		t.Fatalf("unexpected file path %q", fake.request.FilePath)
	}
}

func TestTranscribePreservesWhitespace(t *testing.T) {
	fake := &fakeTranscriber{text: " hello world\n"}
	client := openai.NewClient(openai.Config{APIKey: "sk-test"}, openai.WithTranscriber(fake))

	transcript, err := client.Transcribe(context.Background(), mustRequest(t, writeAudio(t), nil))
	if err != nil {
		t.Fatalf("Transcribe returned error: %v", err)
	}
	if transcript.Text != " hello world\n" {
		t.Fatalf("expected untransformed text, got %q", transcript.Text)
	}
}

func TestTranscribeAppliesOptions(t *testing.T) {
	fake := &fakeTranscriber{text: "ok"}
	client := openai.NewClient(openai.Config{APIKey: "sk-test"}, openai.WithTranscriber(fake))

	_, err := client.Transcribe(context.Background(), mustRequest(t, writeAudio(t), map[string]string{
		"prompt":          "This is a song",
		"language":        "en",
		"response_format": "srt",
		"temperature":     "0.2",
	}))
	if err != nil {
		t.Fatalf("Transcribe returned error: %v", err)
	}
	if fake.request.Prompt != "This is a song" || fake.request.Language != "en" {
		t.Fatalf("unexpected request %+v", fake.request)
	}
	if fake.request.Format != gopenai.AudioResponseFormatSRT {
		t.Fatalf("expected srt, got %q", fake.request.Format)
	}
	if fake.request.Temperature < 0.19 || fake.request.Temperature > 0.21 {
		t.Fatalf("unexpected temperature %v", fake.request.Temperature)
	}
}

func TestTranscribeRejectsUnknownOption(t *testing.T) {
	fake := &fakeTranscriber{text: "ok"}
	client := openai.NewClient(openai.Config{APIKey: "sk-test"}, openai.WithTranscriber(fake))

	_, err := client.Transcribe(context.Background(), mustRequest(t, writeAudio(t), map[string]string{"punctuate": "true"}))
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if fake.calls != 0 {
		t.Fatalf("expected no SDK call, got %d", fake.calls)
	}
}

func TestTranscribeRejectsRemoteSource(t *testing.T) {
	client := openai.NewClient(openai.Config{APIKey: "sk-test"}, openai.WithTranscriber(&fakeTranscriber{}))
	_, err := client.Transcribe(context.Background(), mustRequest(t, "https://example.com/a.mp3", nil))
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestTranscribeWrapsSDKFailure(t *testing.T) {
	boom := errors.New("connection reset")
	client := openai.NewClient(openai.Config{APIKey: "sk-test"}, openai.WithTranscriber(&fakeTranscriber{err: boom}))

	_, err := client.Transcribe(context.Background(), mustRequest(t, writeAudio(t), nil))
	if !errors.Is(err, services.ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
	if !errors.Is(err, boom) {
		t.Fatalf("expected SDK error in chain, got %v", err)
	}
}

func TestTranscribeAgainstHTTPServer(t *testing.T) {
	var gotAuth, gotModel, gotFormat, gotFile string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/audio/transcriptions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		gotModel = r.FormValue("model")
		gotFormat = r.FormValue("response_format")
		if file, _, err := r.FormFile("file"); err == nil {
			data, _ := io.ReadAll(file)
			gotFile = string(data)
			file.Close()
		}
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("hello"))
	}))
	defer server.Close()

	client := openai.NewClient(openai.Config{APIKey: "sk-test", BaseURL: server.URL + "/v1"})
	transcript, err := client.Transcribe(context.Background(), mustRequest(t, writeAudio(t), nil))
	if err != nil {
		t.Fatalf("Transcribe returned error: %v", err)
	}
	if transcript.Text != "hello" {
		t.Fatalf("expected hello, got %q", transcript.Text)
	}
	if gotAuth != "Bearer sk-test" || gotModel != "whisper-1" || gotFormat != "text" || gotFile != "fake-mp3" {
		t.Fatalf("unexpected request auth=%q model=%q format=%q file=%q", gotAuth, gotModel, gotFormat, gotFile)
	}
}

func TestTranscribeAPIErrorIsSubmissionError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`))
	}))
	defer server.Close()

	client := openai.NewClient(openai.Config{APIKey: "sk-bad", BaseURL: server.URL + "/v1"})
	_, err := client.Transcribe(context.Background(), mustRequest(t, writeAudio(t), nil))
	if !errors.Is(err, services.ErrSubmission) {
		t.Fatalf("expected ErrSubmission, got %v", err)
	}
	var apiErr *gopenai.APIError
	if !errors.As(err, &apiErr) || apiErr.HTTPStatusCode != http.StatusUnauthorized {
		t.Fatalf("expected SDK APIError in chain, got %v", err)
	}
}

func TestCacheFingerprintTracksOutputSettings(t *testing.T) {
	text := openai.NewClient(openai.Config{APIKey: "k", ResponseFormat: "text"}, openai.WithTranscriber(&fakeTranscriber{}))
	srt := openai.NewClient(openai.Config{APIKey: "k", ResponseFormat: "SRT"}, openai.WithTranscriber(&fakeTranscriber{}))
	if text.CacheFingerprint() == srt.CacheFingerprint() {
		t.Fatal("response format should change the fingerprint")
	}
	rotated := openai.NewClient(openai.Config{APIKey: "other", BaseURL: "http://proxy", ResponseFormat: "text"}, openai.WithTranscriber(&fakeTranscriber{}))
	if rotated.CacheFingerprint() != text.CacheFingerprint() {
		t.Fatal("api key and base url must not change the fingerprint")
	}
}
