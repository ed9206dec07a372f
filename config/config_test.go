package config

import (
	"os"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Port != 8080 {
		t.Errorf("expected Port=8080, got %d", cfg.Port)
	}
	if cfg.FlipParkTimeoutMS != 30_000 {
		t.Errorf("expected FlipParkTimeoutMS=30000, got %d", cfg.FlipParkTimeoutMS)
	}
	if cfg.DefaultWatchTimeoutMS != 60_000 {
		t.Errorf("expected DefaultWatchTimeoutMS=60000, got %d", cfg.DefaultWatchTimeoutMS)
	}
	if cfg.BoardPath != "board.txt" {
		t.Errorf("expected BoardPath=board.txt, got %q", cfg.BoardPath)
	}
	if got := cfg.FlipParkTimeout(); got != 30*time.Second {
		t.Errorf("expected FlipParkTimeout=30s, got %v", got)
	}
	if got := cfg.DefaultWatchTimeout(); got != 60*time.Second {
		t.Errorf("expected DefaultWatchTimeout=60s, got %v", got)
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	os.Setenv("MEMORY_PORT", "9090")
	os.Setenv("MEMORY_FLIP_PARK_TIMEOUT_MS", "5000")
	os.Setenv("MEMORY_BOARD_PATH", "custom-board.txt")
	defer func() {
		os.Unsetenv("MEMORY_PORT")
		os.Unsetenv("MEMORY_FLIP_PARK_TIMEOUT_MS")
		os.Unsetenv("MEMORY_BOARD_PATH")
	}()

	cfg := Load()

	if cfg.Port != 9090 {
		t.Errorf("expected Port=9090 after env override, got %d", cfg.Port)
	}
	if cfg.FlipParkTimeoutMS != 5000 {
		t.Errorf("expected FlipParkTimeoutMS=5000 after env override, got %d", cfg.FlipParkTimeoutMS)
	}
	if cfg.BoardPath != "custom-board.txt" {
		t.Errorf("expected BoardPath=custom-board.txt after env override, got %q", cfg.BoardPath)
	}
	// Non-overridden fields should remain default
	if cfg.DefaultWatchTimeoutMS != 60_000 {
		t.Errorf("expected DefaultWatchTimeoutMS=60000 (default), got %d", cfg.DefaultWatchTimeoutMS)
	}
}

func TestLoadWithInvalidEnv(t *testing.T) {
	os.Setenv("MEMORY_PORT", "not-a-number")
	defer os.Unsetenv("MEMORY_PORT")

	cfg := Load()

	// Should fall back to default when env value is invalid
	if cfg.Port != 8080 {
		t.Errorf("expected Port=8080 (default) with invalid env, got %d", cfg.Port)
	}
}
