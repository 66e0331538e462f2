package config

import (
	"os"
	"strconv"
	"time"
)

// RateLimitConfig drives the Redis token-bucket limiter applied in front of
// the auth routes. Defaults allow 500 requests with a steady refill, roughly
// the 500-per-5-minutes window the service has always enforced.
type RateLimitConfig struct {
	Enabled        bool
	Capacity       int
	RefillTokens   int
	RefillInterval time.Duration
	TTL            time.Duration // idle bucket expiry
	Prefix         string        // redis key prefix
}

// LoadRateLimitConfig reads the limiter settings from the environment and
// clamps them to sane values.
func LoadRateLimitConfig() RateLimitConfig {
	cfg := RateLimitConfig{
		Enabled:        rlBool("RATE_LIMIT_ENABLED", true),
		Capacity:       rlInt("RATE_LIMIT_CAPACITY", 500),
		RefillTokens:   rlInt("RATE_LIMIT_REFILL_TOKENS", 5),
		RefillInterval: rlDur("RATE_LIMIT_REFILL_INTERVAL", 3*time.Second),
		TTL:            rlDur("RATE_LIMIT_TTL", 10*time.Minute),
		Prefix:         rlStr("RATE_LIMIT_PREFIX", "rl"),
	}
	if cfg.Capacity < 1 {
		cfg.Capacity = 1
	}
	if cfg.RefillTokens < 1 {
		cfg.RefillTokens = 1
	}
	if cfg.RefillInterval <= 0 {
		cfg.RefillInterval = time.Second
	}
	if min := 5 * cfg.RefillInterval; cfg.TTL < min {
		cfg.TTL = min
	}
	return cfg
}

func rlStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func rlBool(k string, d bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "yes", "on":
		return true
	case "0", "false", "FALSE", "no", "off":
		return false
	}
	return d
}

func rlInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return d
}

func rlDur(k string, d time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if dur, err := time.ParseDuration(v); err == nil {
		return dur
	}
	return d
}
