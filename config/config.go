// Package config loads the server's runtime parameters: compiled-in
// defaults, then an optional config.json overlay, then environment
// variable overrides.
package config

import (
	"encoding/json"
	"log"
	"os"
	"strconv"
	"time"
)

// Config holds all configurable server parameters.
type Config struct {
	// Port is the HTTP listen port (default 8080, override MEMORY_PORT).
	Port int `json:"port"`

	// FlipParkTimeoutMS bounds how long a Rule 1-D park waits before
	// failing with timeout.
	FlipParkTimeoutMS int `json:"flip_park_timeout_ms"`

	// DefaultWatchTimeoutMS is used when a watch request supplies no
	// timeout of its own.
	DefaultWatchTimeoutMS int `json:"default_watch_timeout_ms"`

	// BoardPath is the board file loaded at startup.
	BoardPath string `json:"board_path"`
}

// Defaults returns a Config with the server's built-in default values.
func Defaults() *Config {
	return &Config{
		Port:                  8080,
		FlipParkTimeoutMS:     30_000,
		DefaultWatchTimeoutMS: 60_000,
		BoardPath:             "board.txt",
	}
}

// FlipParkTimeout returns FlipParkTimeoutMS as a time.Duration.
func (c *Config) FlipParkTimeout() time.Duration {
	return time.Duration(c.FlipParkTimeoutMS) * time.Millisecond
}

// DefaultWatchTimeout returns DefaultWatchTimeoutMS as a time.Duration.
func (c *Config) DefaultWatchTimeout() time.Duration {
	return time.Duration(c.DefaultWatchTimeoutMS) * time.Millisecond
}

// Load reads configuration from an optional config.json file, then
// applies environment variable overrides. Fields not set in either
// source retain their default values.
func Load() *Config {
	cfg := Defaults()

	// Try to load from config.json
	if f, err := os.Open("config.json"); err == nil {
		defer f.Close()
		if err := json.NewDecoder(f).Decode(cfg); err != nil {
			log.Printf("Warning: failed to parse config.json: %v", err)
		}
	}

	// Environment variable overrides
	overrideInt(&cfg.Port, "MEMORY_PORT")
	overrideInt(&cfg.FlipParkTimeoutMS, "MEMORY_FLIP_PARK_TIMEOUT_MS")
	overrideInt(&cfg.DefaultWatchTimeoutMS, "MEMORY_WATCH_TIMEOUT_MS")
	overrideString(&cfg.BoardPath, "MEMORY_BOARD_PATH")

	return cfg
}

func overrideInt(field *int, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			*field = n
		} else {
			log.Printf("Warning: invalid value for %s: %q", envKey, val)
		}
	}
}

func overrideString(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}
