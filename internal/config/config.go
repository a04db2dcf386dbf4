package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains runtime configuration required by the service.
type Config struct {
	ListenAddr string

	CacheDir      string
	CacheMaxBytes int64
	CacheTTL      time.Duration
	CacheMaxAge   time.Duration

	EventsDir   string
	EventMaxAge time.Duration

	SweepInterval time.Duration

	CatalogBaseURL  string
	CatalogMinDelay time.Duration
}

// Load reads configuration from environment variables. Every value has a
// local-dev fallback so the service runs out-of-the-box; malformed values are
// errors rather than silent defaults.
func Load() (Config, error) {
	cfg := Config{
		ListenAddr:      ":8080",
		CacheDir:        "data/cache",
		CacheMaxBytes:   64 << 20,
		CacheTTL:        24 * time.Hour,
		CacheMaxAge:     7 * 24 * time.Hour,
		EventsDir:       "data/events",
		EventMaxAge:     30 * 24 * time.Hour,
		SweepInterval:   time.Hour,
		CatalogBaseURL:  "https://api.boardgamecatalog.example/v2",
		CatalogMinDelay: 5 * time.Second,
	}

	if v := strings.TrimSpace(os.Getenv("LISTEN_ADDR")); v != "" {
		cfg.ListenAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("CACHE_DIR")); v != "" {
		cfg.CacheDir = v
	}
	if v := strings.TrimSpace(os.Getenv("EVENTS_DIR")); v != "" {
		cfg.EventsDir = v
	}
	if v := strings.TrimSpace(os.Getenv("CATALOG_BASE_URL")); v != "" {
		cfg.CatalogBaseURL = v
	}

	if v := strings.TrimSpace(os.Getenv("CACHE_MAX_BYTES")); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			return Config{}, fmt.Errorf("CACHE_MAX_BYTES must be a positive integer, got %q", v)
		}
		cfg.CacheMaxBytes = n
	}

	durations := []struct {
		env string
		dst *time.Duration
	}{
		{"CACHE_TTL", &cfg.CacheTTL},
		{"CACHE_MAX_AGE", &cfg.CacheMaxAge},
		{"EVENT_MAX_AGE", &cfg.EventMaxAge},
		{"SWEEP_INTERVAL", &cfg.SweepInterval},
		{"CATALOG_MIN_DELAY", &cfg.CatalogMinDelay},
	}
	for _, d := range durations {
		v := strings.TrimSpace(os.Getenv(d.env))
		if v == "" {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil || parsed <= 0 {
			return Config{}, fmt.Errorf("%s must be a positive duration like \"30s\", got %q", d.env, v)
		}
		*d.dst = parsed
	}

	return cfg, nil
}
