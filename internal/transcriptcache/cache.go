package transcriptcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"scribe/internal/fileutil"
	"scribe/internal/logging"
	"scribe/internal/transcription"
)

const lockRetryDelay = 25 * time.Millisecond

// Entry is one cached transcript.
type Entry struct {
	Key        string    `json:"key"`
	Provider   string    `json:"provider"`
	Source     string    `json:"source"`
	Text       string    `json:"text"`
	Confidence float64   `json:"confidence,omitempty"`
	Language   string    `json:"language,omitempty"`
	CachedAt   time.Time `json:"cached_at"`
}

// Cache provides process-safe access to the transcript cache file.
type Cache struct {
	path   string
	lock   *flock.Flock
	logger *slog.Logger
}

// NewCache creates a cache backed by path. An empty path yields a disabled
// cache.
func NewCache(path string, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = logging.NewNop()
	}
	c := &Cache{
		path:   strings.TrimSpace(path),
		logger: logging.NewComponentLogger(logger, "transcriptcache"),
	}
	if c.path != "" {
		c.lock = flock.New(c.path + ".lock")
	}
	return c
}

// Enabled reports whether the cache has a backing file.
func (c *Cache) Enabled() bool {
	return c != nil && c.path != ""
}

// Path returns the cache file location.
func (c *Cache) Path() string {
	if c == nil {
		return ""
	}
	return c.path
}

// Key derives the cache key for req sent to provider configured as described
// by settings. Local sources are keyed by content digest, remote sources by URL.
func Key(req transcription.Request, provider, settings string) (string, error) {
	var digest string
	if req.IsRemote() {
		digest = "url:" + fileutil.HashString(req.Source())
	} else {
		hash, _, err := fileutil.HashFile(req.Source())
		if err != nil {
			return "", fmt.Errorf("hash audio: %w", err)
		}
		digest = "file:" + hash
	}
	var b strings.Builder
	b.WriteString(digest)
	b.WriteByte(0)
	b.WriteString(strings.ToLower(strings.TrimSpace(provider)))
	b.WriteByte(0)
	b.WriteString(settings)
	for _, key := range req.OptionKeys() {
		value, _ := req.Option(key)
		b.WriteByte(0)
		b.WriteString(key)
		b.WriteByte('=')
		b.WriteString(value)
	}
	return fileutil.HashString(b.String()), nil
}

// Lookup returns the entry stored under key.
func (c *Cache) Lookup(ctx context.Context, key string) (Entry, bool, error) {
	key = strings.TrimSpace(key)
	if !c.Enabled() || key == "" {
		return Entry{}, false, nil
	}
	var (
		entry Entry
		found bool
	)
	err := c.withLock(ctx, false, func() error {
		entries, err := c.load()
		if err != nil {
			return err
		}
		entry, found = entries[key]
		return nil
	})
	return entry, found, err
}

// Store adds or replaces an entry and persists the cache.
func (c *Cache) Store(ctx context.Context, entry Entry) error {
	entry.Key = strings.TrimSpace(entry.Key)
	if entry.Key == "" {
		return errors.New("cache key cannot be empty")
	}
	if !c.Enabled() {
		return nil
	}
	if entry.CachedAt.IsZero() {
		entry.CachedAt = time.Now().UTC()
	}
	err := c.withLock(ctx, true, func() error {
		entries, err := c.load()
		if err != nil {
			return err
		}
		entries[entry.Key] = entry
		return c.save(entries)
	})
	if err != nil {
		return err
	}
	c.logger.Debug("cached transcript",
		logging.String("cache_key", entry.Key),
		logging.String(logging.FieldProvider, entry.Provider),
		logging.String("source", entry.Source))
	return nil
}

// Remove deletes the entry stored under key or under the only key starting
// with it, and returns what was removed.
func (c *Cache) Remove(ctx context.Context, key string) (Entry, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return Entry{}, errors.New("cache key cannot be empty")
	}
	if !c.Enabled() {
		return Entry{}, nil
	}
	var removed Entry
	err := c.withLock(ctx, true, func() error {
		entries, err := c.load()
		if err != nil {
			return err
		}
		match, err := resolveKey(entries, key)
		if err != nil {
			return err
		}
		removed = entries[match]
		delete(entries, match)
		return c.save(entries)
	})
	if err != nil {
		return Entry{}, err
	}
	c.logger.Debug("removed cached transcript",
		logging.String("cache_key", removed.Key),
		logging.String(logging.FieldProvider, removed.Provider))
	return removed, nil
}

func resolveKey(entries map[string]Entry, key string) (string, error) {
	if _, ok := entries[key]; ok {
		return key, nil
	}
	var match string
	for candidate := range entries {
		if !strings.HasPrefix(candidate, key) {
			continue
		}
		if match != "" {
			return "", fmt.Errorf("cache key prefix %q is ambiguous", key)
		}
		match = candidate
	}
	if match == "" {
		return "", fmt.Errorf("cache key %q not found", key)
	}
	return match, nil
}

// List returns all entries, newest first.
func (c *Cache) List(ctx context.Context) ([]Entry, error) {
	if !c.Enabled() {
		return nil, nil
	}
	var out []Entry
	err := c.withLock(ctx, false, func() error {
		entries, err := c.load()
		if err != nil {
			return err
		}
		out = sortedEntries(entries)
		return nil
	})
	return out, err
}

// Count returns the number of cached transcripts.
func (c *Cache) Count(ctx context.Context) (int, error) {
	entries, err := c.List(ctx)
	return len(entries), err
}

// Clear removes every entry and persists the empty cache.
func (c *Cache) Clear(ctx context.Context) error {
	if !c.Enabled() {
		return nil
	}
	err := c.withLock(ctx, true, func() error {
		return c.save(map[string]Entry{})
	})
	if err == nil {
		c.logger.Debug("cleared transcript cache", logging.String("path", c.path))
	}
	return err
}

func (c *Cache) withLock(ctx context.Context, exclusive bool, fn func() error) error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}
	var (
		ok  bool
		err error
	)
	if exclusive {
		ok, err = c.lock.TryLockContext(ctx, lockRetryDelay)
	} else {
		ok, err = c.lock.TryRLockContext(ctx, lockRetryDelay)
	}
	if err != nil {
		return fmt.Errorf("acquire cache lock: %w", err)
	}
	if !ok {
		return errors.New("acquire cache lock: lock busy")
	}
	defer func() {
		if err := c.lock.Unlock(); err != nil {
			c.logger.Warn("failed to release cache lock",
				logging.String(logging.FieldEventType, "cache_unlock_failed"),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "remove the stale .lock file if it persists"),
				logging.String(logging.FieldImpact, "later scribe runs may wait for the lock"))
		}
	}()
	return fn()
}

func (c *Cache) load() (map[string]Entry, error) {
	entries := make(map[string]Entry)
	data, err := os.ReadFile(c.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return entries, nil
		}
		return nil, fmt.Errorf("read cache file: %w", err)
	}
	if len(data) == 0 {
		return entries, nil
	}
	var list []Entry
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("parse cache file: %w", err)
	}
	for _, entry := range list {
		if strings.TrimSpace(entry.Key) != "" {
			entries[entry.Key] = entry
		}
	}
	return entries, nil
}

func (c *Cache) save(entries map[string]Entry) error {
	data, err := json.MarshalIndent(sortedEntries(entries), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal cache: %w", err)
	}
	if err := fileutil.WriteFileAtomic(c.path, data, 0o644); err != nil {
		return fmt.Errorf("persist cache: %w", err)
	}
	return nil
}

func sortedEntries(entries map[string]Entry) []Entry {
	out := make([]Entry, 0, len(entries))
	for _, entry := range entries {
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CachedAt.Equal(out[j].CachedAt) {
			return out[i].Key < out[j].Key
		}
		return out[i].CachedAt.After(out[j].CachedAt)
	})
	return out
}
