// Package warmup preloads hot keys into the cache on startup. Keys come
// from a JSON keys file; values come from providers registered per key
// pattern.
package warmup

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path"
	"time"

	"github.com/saviornt/CacheManager/internal/config"
)

// Provider produces the value for a key during warmup.
type Provider func(ctx context.Context, key string) (any, error)

// Setter writes a warmed value into the cache.
type Setter func(ctx context.Context, key string, value any, ttl time.Duration) error

// Stats summarizes one warmup run.
type Stats struct {
	Total    int
	Warmed   int
	Failed   int
	Skipped  int
	Duration time.Duration
}

type providerEntry struct {
	pattern  string
	provider Provider
}

// Warmer drives cache warmup from a keys file.
type Warmer struct {
	cfg       config.WarmupConfig
	logger    *slog.Logger
	providers []providerEntry
}

func NewWarmer(cfg config.WarmupConfig, logger *slog.Logger) *Warmer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Warmer{
		cfg:    cfg,
		logger: logger.With("component", "warmup"),
	}
}

// Register adds a provider for keys matching the glob pattern. The
// first matching provider wins.
func (w *Warmer) Register(pattern string, p Provider) {
	w.providers = append(w.providers, providerEntry{pattern: pattern, provider: p})
}

type keysFile struct {
	Keys []string `json:"keys"`
}

// LoadKeys reads the configured keys file. A missing file is not an
// error; warmup just has nothing to do.
func (w *Warmer) LoadKeys() ([]string, error) {
	if w.cfg.KeysFile == "" {
		return nil, nil
	}

	data, err := os.ReadFile(w.cfg.KeysFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("warmup: read keys file: %w", err)
	}

	var kf keysFile
	if err := json.Unmarshal(data, &kf); err != nil {
		return nil, fmt.Errorf("warmup: parse keys file: %w", err)
	}
	return kf.Keys, nil
}

// Run warms every key from the keys file through set. Keys with no
// matching provider are skipped; provider and set failures are counted
// but do not abort the run.
func (w *Warmer) Run(ctx context.Context, set Setter) (Stats, error) {
	start := time.Now()

	keys, err := w.LoadKeys()
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{Total: len(keys)}
	for _, key := range keys {
		if ctx.Err() != nil {
			stats.Duration = time.Since(start)
			return stats, ctx.Err()
		}

		provider := w.providerFor(key)
		if provider == nil {
			stats.Skipped++
			continue
		}

		value, err := provider(ctx, key)
		if err != nil {
			stats.Failed++
			w.logger.Debug("Warmup provider failed", "key", key, "error", err)
			continue
		}

		if err := set(ctx, key, value, w.cfg.TTL); err != nil {
			stats.Failed++
			w.logger.Debug("Warmup set failed", "key", key, "error", err)
			continue
		}
		stats.Warmed++
	}

	stats.Duration = time.Since(start)
	w.logger.Info("Cache warmup complete",
		"total", stats.Total,
		"warmed", stats.Warmed,
		"failed", stats.Failed,
		"skipped", stats.Skipped,
		"duration", stats.Duration,
	)
	return stats, nil
}

func (w *Warmer) providerFor(key string) Provider {
	for _, entry := range w.providers {
		if ok, err := path.Match(entry.pattern, key); err == nil && ok {
			return entry.provider
		}
	}
	return nil
}

// SaveKeys writes a keys file listing the given keys, typically the
// hottest keys from the previous run.
func SaveKeys(filePath string, keys []string) error {
	data, err := json.MarshalIndent(keysFile{Keys: keys}, "", "  ")
	if err != nil {
		return fmt.Errorf("warmup: encode keys file: %w", err)
	}
	if err := os.WriteFile(filePath, data, 0o600); err != nil {
		return fmt.Errorf("warmup: write keys file: %w", err)
	}
	return nil
}
