package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"scribe/internal/transcriptcache"
)

func TestCompareRendersEveryConfiguredProvider(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env, "compare", env.audioPath)
	if err != nil {
		t.Fatalf("compare: %v", err)
	}
	for _, want := range []string{"assemblyai", "deepgram", "openai", "assembly text", "deepgram text", "whisper text", "Agreement", "ref"} {
		requireContains(t, out, want)
	}
	if env.vendors.deepgramCalls.Load() != 1 || env.vendors.openaiCalls.Load() != 1 {
		t.Fatalf("each provider should be called once")
	}
}

func TestCompareSubsetAndFailure(t *testing.T) {
	env := setupCLITestEnv(t)
	env.vendors.deepgramBroken.Store(true)

	out, _, err := runCLI(t, env, "compare", "--providers", "deepgram,openai", env.audioPath)
	if err != nil {
		t.Fatalf("one success should not fail compare: %v", err)
	}
	requireContains(t, out, "failed (response_shape)")
	requireContains(t, out, "whisper text")
	if strings.Contains(out, "assemblyai") {
		t.Fatalf("assemblyai was not requested: %s", out)
	}
}

func TestProvidersCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, env, "providers")
	if err != nil {
		t.Fatalf("providers: %v", err)
	}
	requireContains(t, out, "DEEPGRAM_API_KEY")
	requireContains(t, out, "Configured")
}

func TestHistoryListShowAndClear(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, env, "transcribe", env.audioPath); err != nil {
		t.Fatalf("transcribe: %v", err)
	}

	out, _, err := runCLI(t, env, "history")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "deepgram")
	requireContains(t, out, "completed")

	jsonOut, _, err := runCLI(t, env, "history", "--json")
	if err != nil {
		t.Fatalf("history --json: %v", err)
	}
	idx := strings.Index(jsonOut, `"id": "`)
	if idx < 0 {
		t.Fatalf("history json missing id: %s", jsonOut)
	}
	id := jsonOut[idx+len(`"id": "`):]
	id = id[:8]

	show, _, err := runCLI(t, env, "history", "show", id)
	if err != nil {
		t.Fatalf("history show: %v", err)
	}
	requireContains(t, show, "deepgram text")

	out, _, err = runCLI(t, env, "history", "clear")
	if err != nil {
		t.Fatalf("history clear: %v", err)
	}
	requireContains(t, out, "Cleared 1 run(s)")

	out, _, err = runCLI(t, env, "history")
	if err != nil {
		t.Fatalf("history after clear: %v", err)
	}
	requireContains(t, out, "No runs recorded")
}

func TestCacheListAndClear(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, env, "transcribe", env.audioPath); err != nil {
		t.Fatalf("transcribe: %v", err)
	}

	out, _, err := runCLI(t, env, "cache", "list")
	if err != nil {
		t.Fatalf("cache list: %v", err)
	}
	requireContains(t, out, "deepgram text")

	out, _, err = runCLI(t, env, "cache", "clear")
	if err != nil {
		t.Fatalf("cache clear: %v", err)
	}
	requireContains(t, out, "Cleared 1 cached transcript(s)")

	out, _, err = runCLI(t, env, "cache", "list")
	if err != nil {
		t.Fatalf("cache list after clear: %v", err)
	}
	requireContains(t, out, "Cache is empty")
}

func TestCacheRemove(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, env, "transcribe", env.audioPath); err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	cache := transcriptcache.NewCache(filepath.Join(env.baseDir, "cache", "transcripts.json"), nil)
	entries, err := cache.List(context.Background())
	if err != nil || len(entries) != 1 {
		t.Fatalf("expected one cached entry, got %d (%v)", len(entries), err)
	}

	out, _, err := runCLI(t, env, "cache", "remove", entries[0].Key[:12])
	if err != nil {
		t.Fatalf("cache remove: %v", err)
	}
	requireContains(t, out, "Removed cached deepgram transcript")

	if _, _, err := runCLI(t, env, "cache", "remove", entries[0].Key); err == nil {
		t.Fatal("expected error removing an already removed key")
	}
	out, _, err = runCLI(t, env, "cache", "list")
	if err != nil {
		t.Fatalf("cache list after remove: %v", err)
	}
	requireContains(t, out, "Cache is empty")
}

func TestCheckCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env, "check", env.audioPath)
	if err != nil {
		t.Fatalf("check: %v\n%s", err, out)
	}
	requireContains(t, out, "== Preflight ==")
	requireContains(t, out, "[OK] configured")
	requireContains(t, out, "Audio source:")

	out, _, err = runCLI(t, env, "check", filepath.Join(env.baseDir, "missing.wav"))
	if err == nil {
		t.Fatal("expected failure for missing audio")
	}
	requireContains(t, out, "[ERROR]")
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, env.configPath)

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, env, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, env, "config", "init", "--path", target); err == nil {
		t.Fatal("expected error when config exists without --overwrite")
	}
	if _, _, err := runCLI(t, env, "config", "init", "--path", target, "--overwrite"); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}

func TestInvalidLogLevelFlag(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, env, "--log-level", "loud", "providers"); err == nil {
		t.Fatal("expected error for invalid --log-level")
	}
}

func TestRenderTable(t *testing.T) {
	out := renderTable([]string{"Name", "Count"}, [][]string{{"a", "1"}, {"b"}}, []columnAlignment{alignLeft, alignRight})
	requireContains(t, out, "Name")
	requireContains(t, out, "Count")
	if strings.Contains(out, "NAME") {
		t.Fatalf("headers should keep their case: %s", out)
	}
	if renderTable(nil, nil, nil) != "" {
		t.Fatal("no headers should render nothing")
	}
}
