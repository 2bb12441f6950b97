package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	if cfg.Addr == "" {
		t.Errorf("default addr empty")
	}
	if cfg.Sync.BuildThreshold != 0.7 || cfg.Sync.LookupThreshold != 0.3 {
		t.Errorf("default thresholds = %v / %v, want 0.7 / 0.3",
			cfg.Sync.BuildThreshold, cfg.Sync.LookupThreshold)
	}
	if cfg.Engine().MaxDiffBytes != 5000 {
		t.Errorf("default diff ceiling = %d, want 5000", cfg.Engine().MaxDiffBytes)
	}
}

func TestLoadOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "epubsync.yaml")
	body := "addr: 127.0.0.1:9999\nsync:\n  max_diff_bytes: 100\n  build_threshold: 0.8\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != "127.0.0.1:9999" {
		t.Errorf("addr = %q", cfg.Addr)
	}
	if cfg.Sync.MaxDiffBytes != 100 {
		t.Errorf("max_diff_bytes = %d, want 100", cfg.Sync.MaxDiffBytes)
	}
	if cfg.Sync.BuildThreshold != 0.8 {
		t.Errorf("build_threshold = %v, want 0.8", cfg.Sync.BuildThreshold)
	}
	// Untouched keys keep their defaults.
	if cfg.Sync.ContentDebounceMs != 300 {
		t.Errorf("content_debounce_ms = %d, want default 300", cfg.Sync.ContentDebounceMs)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Errorf("Load of missing file should error")
	}
}
