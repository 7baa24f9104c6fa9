package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// RateLimitConfig configures one token bucket limiter.  Capacity is the
// bucket size; RefillTokens are added every RefillInterval.  Burst and
// RefillEvery are shorthands kept for older deployments.
type RateLimitConfig struct {
	Enabled        bool          `env:"RATE_LIMIT_ENABLED"`
	Capacity       int           `env:"RATE_LIMIT_CAPACITY"`
	RefillTokens   int           `env:"RATE_LIMIT_REFILL_TOKENS"`
	RefillInterval time.Duration `env:"RATE_LIMIT_REFILL_INTERVAL"`
	TTL            time.Duration `env:"RATE_LIMIT_TTL"`
	KeyStrategy    string        `env:"RATE_LIMIT_KEY_STRATEGY"`
	Prefix         string        `env:"RATE_LIMIT_PREFIX"`
	Debug          bool          `env:"RATE_LIMIT_DEBUG"`
	Burst          int           `env:"RATE_LIMIT_BURST"`
	RefillEvery    time.Duration `env:"RATE_LIMIT_REFILL_EVERY"`
}

// LoadRateLimitConfig returns the limiter applied to every API route.
func LoadRateLimitConfig() (RateLimitConfig, error) {
	cfg := RateLimitConfig{
		Enabled:        true,
		Capacity:       60,
		RefillTokens:   1,
		RefillInterval: time.Second,
		TTL:            10 * time.Minute,
		KeyStrategy:    "ip_user_route",
		Prefix:         "rl",
	}
	return parseRateLimit(cfg, "")
}

// LoadAuthRateLimitConfig returns the stricter limiter for register and
// login: 5 requests per minute per client unless overridden by the
// AUTH_RATE_LIMIT_* variables.
func LoadAuthRateLimitConfig() (RateLimitConfig, error) {
	cfg := RateLimitConfig{
		Enabled:        true,
		Capacity:       5,
		RefillTokens:   5,
		RefillInterval: time.Minute,
		TTL:            10 * time.Minute,
		KeyStrategy:    "ip_route",
		Prefix:         "rl:auth",
	}
	return parseRateLimit(cfg, "AUTH_")
}

func parseRateLimit(cfg RateLimitConfig, prefix string) (RateLimitConfig, error) {
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: prefix}); err != nil {
		return RateLimitConfig{}, fmt.Errorf("config: rate limit: %w", err)
	}
	return cfg.normalize(), nil
}

func (cfg RateLimitConfig) normalize() RateLimitConfig {
	if cfg.Burst > 0 {
		cfg.Capacity = cfg.Burst
	}
	if cfg.RefillEvery > 0 {
		cfg.RefillTokens = 1
		cfg.RefillInterval = cfg.RefillEvery
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
	if minTTL := 5 * cfg.RefillInterval; cfg.TTL < minTTL {
		cfg.TTL = minTTL
	}
	return cfg
}
