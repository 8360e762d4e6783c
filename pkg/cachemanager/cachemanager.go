package cachemanager

import (
	"github.com/saviornt/CacheManager/internal/cache"
	"github.com/saviornt/CacheManager/internal/config"
)

// New creates a cache manager with the default configuration.
func New(opts ...ManagerOption) (*Manager, error) {
	return NewFromConfig(config.DefaultConfig(), opts...)
}

// NewFromConfig creates a cache manager from a configuration.
func NewFromConfig(cfg *config.Config, opts ...ManagerOption) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	managerOpts := &ManagerOptions{}
	for _, opt := range opts {
		opt(managerOpts)
	}
	return cache.NewManager(cfg, managerOpts)
}

// NewFromFile creates a cache manager from a JSON config file.
// Environment variables override file values.
func NewFromFile(path string, opts ...ManagerOption) (*Manager, error) {
	cfg, err := config.LoadWithEnv(path)
	if err != nil {
		return nil, err
	}
	return NewFromConfig(cfg, opts...)
}

// NewMemoryOnly creates a cache manager backed only by the in-memory layer.
func NewMemoryOnly(opts ...ManagerOption) (*Manager, error) {
	cfg := config.DefaultConfig()
	cfg.Disk.Enabled = false
	cfg.Redis.Enabled = false
	return NewFromConfig(cfg, opts...)
}

// Config returns a default configuration that can be modified before
// creating a manager.
func Config() *config.Config {
	return config.DefaultConfig()
}

// TestConfig returns a configuration suitable for unit tests.
func TestConfig() *config.Config {
	return config.ForTesting()
}
