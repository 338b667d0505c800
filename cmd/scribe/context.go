package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"scribe/internal/config"
	"scribe/internal/history"
	"scribe/internal/logging"
	"scribe/internal/providers"
	"scribe/internal/runner"
	"scribe/internal/transcriptcache"
)

type commandContext struct {
	configFlag   string
	logLevelFlag string

	// providerOptions is passed to every providers.New call.
	providerOptions []providers.Option

	configOnce   sync.Once
	config       *config.Config
	configPath   string
	configExists bool
	configErr    error
}

func newCommandContext(opts ...providers.Option) *commandContext {
	return &commandContext{providerOptions: opts}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, path, exists, err := config.Load(strings.TrimSpace(c.configFlag))
		if err != nil {
			c.configErr = err
			return
		}
		if level := strings.TrimSpace(c.logLevelFlag); level != "" {
			cfg.Logging.Level = strings.ToLower(level)
			if err := cfg.Validate(); err != nil {
				c.configErr = fmt.Errorf("--log-level: %w", err)
				return
			}
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = path
		c.configExists = exists
	})
	return c.config, c.configErr
}

func (c *commandContext) logger(cmd *cobra.Command) (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := logging.NewFromConfig(cfg, cmd.ErrOrStderr())
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return logger, nil
}

func (c *commandContext) cache(logger *slog.Logger) *transcriptcache.Cache {
	cfg, err := c.ensureConfig()
	if err != nil || !cfg.Cache.Enabled {
		return transcriptcache.NewCache("", logger)
	}
	return transcriptcache.NewCache(cfg.Cache.Path, logger)
}

// openHistory returns nil without error when history is disabled.
func (c *commandContext) openHistory() (*history.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if !cfg.History.Enabled {
		return nil, nil
	}
	store, err := history.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	return store, nil
}

// newRunner wires the cache and history stores into a runner. The returned
// cleanup closes the history database.
func (c *commandContext) newRunner(logger *slog.Logger, useCache bool) (*runner.Runner, func()) {
	opts := []runner.Option{runner.WithLogger(logger)}
	if useCache {
		opts = append(opts, runner.WithCache(c.cache(logger)))
	}
	store, err := c.openHistory()
	if err != nil {
		logging.WarnWithContext(logger, "history unavailable", "history_open_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "delete the history database to reset it"),
			logging.String(logging.FieldImpact, "this run will not be recorded"))
	}
	cleanup := func() {}
	if store != nil {
		opts = append(opts, runner.WithHistory(store))
		cleanup = func() { _ = store.Close() }
	}
	return runner.New(opts...), cleanup
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
