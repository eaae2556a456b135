package middleware

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-seat-sync/internal/config"
)

func TestPayloadRoundTrip(t *testing.T) {
	hdr := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodePayload(http.StatusOK, hdr, []byte(`{"rows":2}`))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	status, got, body, ok := decodePayload(bs)
	if !ok || status != http.StatusOK || got.Get("Content-Type") != "application/json" || !bytes.Equal(body, []byte(`{"rows":2}`)) {
		t.Fatalf("decode = %d %v %q %v", status, got, body, ok)
	}
	if _, _, _, ok := decodePayload([]byte{0, 0, 0}); ok {
		t.Fatal("short payload decoded")
	}
	if _, _, _, ok := decodePayload([]byte{0, 0, 0, 200, 0, 0, 1, 0}); ok {
		t.Fatal("payload with oversized header length decoded")
	}
}

func TestCaptureWriterLimit(t *testing.T) {
	rec := httptest.NewRecorder()
	cw := &captureWriter{ResponseWriter: rec, status: http.StatusOK, limit: 4}
	_, _ = cw.Write([]byte("ab"))
	_, _ = cw.Write([]byte("cdef"))
	if cw.buf.String() != "abcd" || !cw.truncated() {
		t.Fatalf("captured %q truncated=%v", cw.buf.String(), cw.truncated())
	}
	if rec.Body.String() != "abcdef" {
		t.Fatalf("client got %q", rec.Body.String())
	}
}

func TestCacheKeyStrategies(t *testing.T) {
	e := echo.New()
	newCtx := func(target string) echo.Context {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, target, nil), httptest.NewRecorder())
		c.SetPath("/v1/room")
		return c
	}
	cfg := config.CacheConfig{Prefix: "cache", KeyStrategy: "route_query"}
	if cacheKeyFrom(cfg, newCtx("/v1/room?a=1")) == cacheKeyFrom(cfg, newCtx("/v1/room?a=2")) {
		t.Fatal("route_query should distinguish queries")
	}
	cfg.KeyStrategy = "route"
	if cacheKeyFrom(cfg, newCtx("/v1/room?a=1")) != cacheKeyFrom(cfg, newCtx("/v1/room?a=2")) {
		t.Fatal("route should ignore queries")
	}
}

func TestDisabledMiddlewarePassThrough(t *testing.T) {
	e := echo.New()
	called := 0
	h := func(c echo.Context) error { called++; return c.String(http.StatusOK, "ok") }

	bucket := NewTokenBucket(config.RateLimitConfig{Enabled: true}, nil)
	if bucket != nil {
		t.Fatal("bucket without redis should be nil")
	}
	wrapped := NewRedisCache(config.CacheConfig{Enabled: true}, nil)(bucket.Middleware()(h))
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/v1/room", nil), rec)
		if err := wrapped(c); err != nil || rec.Code != http.StatusOK {
			t.Fatalf("request %d: %v %d", i, err, rec.Code)
		}
	}
	if called != 3 {
		t.Fatalf("handler called %d times", called)
	}
	d, err := bucket.Allow(context.Background(), bucket.Key("conn", "x"))
	if err != nil || !d.Allowed {
		t.Fatalf("nil bucket decision = %+v, %v", d, err)
	}
}

func TestParseDecision(t *testing.T) {
	d, ok := parseDecision([]interface{}{int64(0), int64(0), int64(1500)})
	if !ok || d.Allowed || d.RetryAfter != 1500*time.Millisecond {
		t.Fatalf("decision = %+v, %v", d, ok)
	}
	d, ok = parseDecision([]interface{}{"1", int64(9), int64(0)})
	if !ok || !d.Allowed || d.Remaining != 9 {
		t.Fatalf("decision = %+v, %v", d, ok)
	}
	if _, ok := parseDecision("bogus"); ok {
		t.Fatal("bogus result parsed")
	}
}

func TestRateKey(t *testing.T) {
	b := &TokenBucket{cfg: config.RateLimitConfig{Prefix: "rl", KeyStrategy: "ip"}}
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/cinema", nil)
	req.Header.Set(echo.HeaderXRealIP, "10.0.0.1")
	c := e.NewContext(req, httptest.NewRecorder())
	if got := buildRateKey(b, c); got != "rl:ip:10.0.0.1" {
		t.Fatalf("key = %q", got)
	}
}
