package main

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
)

// fakeVendors serves the AssemblyAI, Deepgram, and OpenAI endpoints scribe
// calls from a single httptest server.
type fakeVendors struct {
	server         *httptest.Server
	deepgramCalls  atomic.Int32
	assemblyPolls  atomic.Int32
	openaiCalls    atomic.Int32
	deepgramBroken atomic.Bool
}

const brokenDeepgramPayload = `{"metadata":{"request_id":"req-9"}}`

func newFakeVendors(t *testing.T) *fakeVendors {
	t.Helper()
	f := &fakeVendors{}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v2/upload", func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, `{"upload_url":"https://cdn.example.com/upload/1"}`)
	})
	mux.HandleFunc("POST /v2/transcript", func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, `{"id":"job-42","status":"queued"}`)
	})
	mux.HandleFunc("GET /v2/transcript/job-42", func(w http.ResponseWriter, r *http.Request) {
		f.assemblyPolls.Add(1)
		_, _ = fmt.Fprint(w, `{"id":"job-42","status":"completed","text":"assembly text","confidence":0.91,"language_code":"en"}`)
	})
	mux.HandleFunc("POST /v1/listen", func(w http.ResponseWriter, r *http.Request) {
		f.deepgramCalls.Add(1)
		if f.deepgramBroken.Load() {
			_, _ = fmt.Fprint(w, brokenDeepgramPayload)
			return
		}
		_, _ = fmt.Fprint(w, `{"metadata":{"request_id":"req-1","duration":2.5},"results":{"channels":[{"alternatives":[{"transcript":"deepgram text","confidence":0.88}]}]}}`)
	})
	mux.HandleFunc("POST /v1/audio/transcriptions", func(w http.ResponseWriter, r *http.Request) {
		f.openaiCalls.Add(1)
		w.Header().Set("Content-Type", "text/plain")
		_, _ = fmt.Fprint(w, "whisper text")
	})
	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

type cliTestEnv struct {
	vendors    *fakeVendors
	baseDir    string
	configPath string
	audioPath  string
}

// setupCLITestEnv writes a config file pointing every provider at the fake
// vendor server and isolates HOME so no user config is read.
func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	home := filepath.Join(base, "home")
	if err := os.MkdirAll(home, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", home)
	t.Setenv("XDG_CACHE_HOME", filepath.Join(base, "xdg-cache"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(base, "xdg-data"))
	for _, key := range []string{"ASSEMBLYAI_API_KEY", "DEEPGRAM_API_KEY", "OPENAI_API_KEY"} {
		t.Setenv(key, "")
	}

	vendors := newFakeVendors(t)
	env := &cliTestEnv{
		vendors:    vendors,
		baseDir:    base,
		configPath: filepath.Join(base, "scribe.toml"),
		audioPath:  filepath.Join(base, "audio", "test2.mp3"),
	}
	if err := os.MkdirAll(filepath.Dir(env.audioPath), 0o755); err != nil {
		t.Fatalf("mkdir audio: %v", err)
	}
	if err := os.WriteFile(env.audioPath, []byte("fake-mp3-bytes"), 0o644); err != nil {
		t.Fatalf("write audio: %v", err)
	}
	writeTestConfig(t, env, true)
	return env
}

func writeTestConfig(t *testing.T, env *cliTestEnv, withKeys bool) {
	t.Helper()
	key := func(value string) string {
		if withKeys {
			return value
		}
		return ""
	}
	url := env.vendors.server.URL
	content := fmt.Sprintf(`provider = "deepgram"

[assemblyai]
api_key = %q
base_url = %q
poll_interval_seconds = 1

[deepgram]
api_key = %q
base_url = %q

[openai]
api_key = %q
base_url = %q

[cache]
enabled = true
path = %q

[history]
enabled = true
path = %q

[logging]
level = "error"
`,
		key("aai-key"), url,
		key("dg-key"), url,
		key("sk-key"), url+"/v1",
		filepath.Join(env.baseDir, "cache", "transcripts.json"),
		filepath.Join(env.baseDir, "data", "history.db"),
	)
	if err := os.WriteFile(env.configPath, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, env *cliTestEnv, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", env.configPath}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
