package config // package config loads application configuration from environment variables

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the runtime settings of the coordinator process.  Every
// field has a default so the server starts with an empty environment.
type Config struct {
	Env             string        // application environment (e.g. "dev", "prod")
	Port            string        // HTTP port to listen on
	WSPath          string        // path of the WebSocket endpoint
	WriteWait       time.Duration // deadline for a single frame write
	PongWait        time.Duration // how long a connection may stay silent
	PingPeriod      time.Duration // keepalive ping interval, below PongWait
	MaxMessageBytes int64         // largest inbound frame accepted
	MaxPending      int           // queued outbound frames before a client is dropped
	AllowedOrigins  []string      // permitted Origin headers; empty allows any
}

// Load reads a .env file when present and then builds a Config from the
// environment.  Unparsable values fall back to their defaults.
func Load() Config {
	if err := godotenv.Load(); err == nil {
		log.Printf("config: loaded .env")
	}
	cfg := Config{
		Env:             envStr("APP_ENV", "dev"),
		Port:            envStr("APP_PORT", "8080"),
		WSPath:          envStr("WS_PATH", "/cinema"),
		WriteWait:       envDur("WS_WRITE_WAIT", 10*time.Second),
		PongWait:        envDur("WS_PONG_WAIT", 60*time.Second),
		PingPeriod:      envDur("WS_PING_PERIOD", 0),
		MaxMessageBytes: int64(envInt("WS_MAX_MESSAGE_BYTES", 4096)),
		MaxPending:      envInt("WS_MAX_PENDING", 65536),
		AllowedOrigins:  envList("WS_ALLOWED_ORIGINS"),
	}
	return cfg.normalize()
}

func (c Config) normalize() Config {
	if !strings.HasPrefix(c.WSPath, "/") {
		c.WSPath = "/" + c.WSPath
	}
	if c.PongWait <= 0 {
		c.PongWait = 60 * time.Second
	}
	if c.PingPeriod <= 0 || c.PingPeriod >= c.PongWait {
		c.PingPeriod = c.PongWait * 9 / 10
	}
	if c.WriteWait <= 0 {
		c.WriteWait = 10 * time.Second
	}
	if c.MaxMessageBytes <= 0 {
		c.MaxMessageBytes = 4096
	}
	if c.MaxPending < 1 {
		c.MaxPending = 1
	}
	return c
}
