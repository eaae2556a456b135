package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"APP_ENV", "APP_PORT", "WS_PATH", "WS_PONG_WAIT", "WS_PING_PERIOD", "WS_ALLOWED_ORIGINS"} {
		t.Setenv(k, "")
	}
	cfg := Load()
	if cfg.Env != "dev" || cfg.Port != "8080" || cfg.WSPath != "/cinema" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.PingPeriod != 54*time.Second {
		t.Fatalf("ping period = %s, want 54s", cfg.PingPeriod)
	}
	if len(cfg.AllowedOrigins) != 0 {
		t.Fatalf("origins = %v", cfg.AllowedOrigins)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("WS_PATH", "seats")
	t.Setenv("WS_PONG_WAIT", "10s")
	t.Setenv("WS_PING_PERIOD", "30s")
	t.Setenv("WS_MAX_PENDING", "oops")
	t.Setenv("WS_ALLOWED_ORIGINS", " http://a.test , ,http://b.test")
	cfg := Load()
	if cfg.WSPath != "/seats" {
		t.Fatalf("path = %q", cfg.WSPath)
	}
	if cfg.PingPeriod != 9*time.Second {
		t.Fatalf("ping period = %s, want 9s when above pong wait", cfg.PingPeriod)
	}
	if cfg.MaxPending != 65536 {
		t.Fatalf("max pending = %d, want default on parse error", cfg.MaxPending)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "http://b.test" {
		t.Fatalf("origins = %v", cfg.AllowedOrigins)
	}
}

func TestRateLimitNormalization(t *testing.T) {
	t.Setenv("WS_RATE_LIMIT_CAPACITY", "0")
	t.Setenv("WS_RATE_LIMIT_REFILL_EVERY", "2s")
	t.Setenv("WS_RATE_LIMIT_TTL", "1s")
	c := LoadMessageRateLimitConfig()
	if c.Capacity != 1 || c.RefillTokens != 1 || c.RefillInterval != 2*time.Second {
		t.Fatalf("unexpected config %+v", c)
	}
	if c.TTL != 10*time.Second {
		t.Fatalf("ttl = %s, want 5x refill interval", c.TTL)
	}
	if c.Prefix != "rl:ws" || c.KeyStrategy != "conn" {
		t.Fatalf("unexpected key settings %+v", c)
	}
}

func TestEventsConfigURLFallback(t *testing.T) {
	t.Setenv("RABBITMQ_URL", "")
	t.Setenv("AMQP_URL", "amqp://broker:5672/")
	if got := LoadEventsConfig().URL; got != "amqp://broker:5672/" {
		t.Fatalf("url = %q", got)
	}
}

func TestCacheConfigMethods(t *testing.T) {
	t.Setenv("CACHE_METHODS", "get, head")
	c := LoadCacheConfig()
	if !c.Methods["GET"] || !c.Methods["HEAD"] || c.Enabled {
		t.Fatalf("unexpected cache config %+v", c)
	}
}
