// Package config carries the tunables for the preview server and the sync
// engine. Everything has a working default; a YAML file overrides selectively.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"epubsync/internal/engine"
	"epubsync/internal/mapping"
)

type Config struct {
	// Addr is the preview server's listen address.
	Addr string `yaml:"addr"`

	Sync SyncConfig `yaml:"sync"`
	Toc  TocConfig  `yaml:"toc"`
}

type SyncConfig struct {
	ScrollThrottleMs  int     `yaml:"scroll_throttle_ms"`
	SyncCooldownMs    int     `yaml:"sync_cooldown_ms"`
	AckTimeoutMs      int     `yaml:"ack_timeout_ms"`
	ContentDebounceMs int     `yaml:"content_debounce_ms"`
	RemapDelayMs      int     `yaml:"remap_delay_ms"`
	MaxDiffBytes      int     `yaml:"max_diff_bytes"`
	BuildThreshold    float64 `yaml:"build_threshold"`
	LookupThreshold   float64 `yaml:"lookup_threshold"`
	MinLineLength     int     `yaml:"min_line_length"`
}

type TocConfig struct {
	MaxLevel  int `yaml:"max_level"`
	CacheSize int `yaml:"cache_size"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Addr: "127.0.0.1:7788",
		Sync: SyncConfig{
			ScrollThrottleMs:  50,
			SyncCooldownMs:    50,
			AckTimeoutMs:      200,
			ContentDebounceMs: 300,
			RemapDelayMs:      100,
			MaxDiffBytes:      5000,
			BuildThreshold:    0.7,
			LookupThreshold:   mapping.DefaultLookupThreshold,
			MinLineLength:     3,
		},
		Toc: TocConfig{
			CacheSize: 32,
		},
	}
}

// Load reads a YAML file over the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Engine converts the sync section to the engine's shape.
func (c Config) Engine() engine.Config {
	ms := func(v int) time.Duration { return time.Duration(v) * time.Millisecond }
	return engine.Config{
		ScrollThrottle:  ms(c.Sync.ScrollThrottleMs),
		SyncCooldown:    ms(c.Sync.SyncCooldownMs),
		AckTimeout:      ms(c.Sync.AckTimeoutMs),
		ContentDebounce: ms(c.Sync.ContentDebounceMs),
		RemapDelay:      ms(c.Sync.RemapDelayMs),
		MaxDiffBytes:    c.Sync.MaxDiffBytes,
	}
}

// Mapping converts the sync section to mapping build options.
func (c Config) Mapping() mapping.BuildOptions {
	return mapping.BuildOptions{
		Threshold:     c.Sync.BuildThreshold,
		MinLineLength: c.Sync.MinLineLength,
	}
}
