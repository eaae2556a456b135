package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-seat-sync/internal/config"
	"github.com/iliyamo/cinema-seat-sync/internal/hub"
	"github.com/iliyamo/cinema-seat-sync/internal/message"
	"github.com/iliyamo/cinema-seat-sync/internal/room"
)

func testConfig() config.Config {
	return config.Config{
		WSPath:          "/cinema",
		WriteWait:       time.Second,
		PongWait:        5 * time.Second,
		PingPeriod:      4 * time.Second,
		MaxMessageBytes: 4096,
		MaxPending:      1024,
	}
}

func startServer(t *testing.T, cfg config.Config) (*httptest.Server, *hub.Hub, *room.Room) {
	t.Helper()
	r := room.New()
	h := hub.New()
	ws := NewWSHandler(cfg, NewSeatHandler(r, h, nil), h, nil)
	e := echo.New()
	e.GET(cfg.WSPath, ws.Serve)
	e.GET("/v1/room", NewRoomHandler(r).GetRoom)
	e.GET("/healthz", Health(h))
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return srv, h, r
}

func dial(t *testing.T, srv *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + path
	c, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func send(t *testing.T, c *websocket.Conn, frame string) {
	t.Helper()
	if err := c.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func read(t *testing.T, c *websocket.Conn) message.Message {
	t.Helper()
	_ = c.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := c.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	m, err := message.Decode(data)
	if err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	return m
}

func waitConnections(t *testing.T, h *hub.Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.Len() != n {
		if time.Now().After(deadline) {
			t.Fatalf("hub has %d connections, want %d", h.Len(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestWebSocketSession(t *testing.T) {
	srv, h, _ := startServer(t, testConfig())
	alice := dial(t, srv, "/cinema")
	bob := dial(t, srv, "/cinema")
	waitConnections(t, h, 2)

	send(t, alice, `{"type":"initRoom","rows":2,"columns":2}`)
	for _, c := range []*websocket.Conn{alice, bob} {
		if m := read(t, c); m.Type != message.TypeRoomSize {
			t.Fatalf("got %+v, want roomSize", m)
		}
	}

	send(t, bob, `{"type":"lockSeat","row":1,"column":2}`)
	res := read(t, bob)
	if res.Type != message.TypeLockResult {
		t.Fatalf("got %+v, want lockResult", res)
	}
	lockID, _ := res.String("lockId")
	for _, c := range []*websocket.Conn{alice, bob} {
		m := read(t, c)
		if s, _ := m.String("status"); m.Type != message.TypeSeatStatus || s != "locked" {
			t.Fatalf("got %+v, want locked seatStatus", m)
		}
	}

	send(t, alice, `{"type":"lockSeat","row":1,"column":2}`)
	if m := read(t, alice); m.Type != message.TypeError {
		t.Fatalf("got %+v, want error", m)
	}

	quoted, _ := json.Marshal(`"` + lockID + `"`)
	send(t, bob, `{"type":"reserveSeat","lockId":`+string(quoted)+`}`)
	for _, c := range []*websocket.Conn{alice, bob} {
		m := read(t, c)
		if s, _ := m.String("status"); s != "reserved" {
			t.Fatalf("got %+v, want reserved", m)
		}
	}

	send(t, alice, `not json`)
	send(t, alice, `{"type":"getRoomSize"}`)
	if m := read(t, alice); m.Type != message.TypeRoomSize {
		t.Fatalf("malformed frame broke the session: %+v", m)
	}

	_ = bob.Close()
	waitConnections(t, h, 1)
}

func TestDisconnectKeepsLocks(t *testing.T) {
	srv, h, r := startServer(t, testConfig())
	c := dial(t, srv, "/cinema")
	waitConnections(t, h, 1)
	send(t, c, `{"type":"initRoom","rows":1,"columns":1}`)
	read(t, c)
	send(t, c, `{"type":"lockSeat","row":1,"column":1}`)
	read(t, c)
	read(t, c)
	_ = c.Close()
	waitConnections(t, h, 0)

	_, _, seats := r.Snapshot()
	if seats[0].Status.Wire() != "locked" {
		t.Fatalf("seat status after disconnect = %s, want locked", seats[0].Status)
	}
}

func TestRoomSnapshotEndpoint(t *testing.T) {
	srv, _, r := startServer(t, testConfig())
	_ = r.Atomically(func(tx *room.Tx) error {
		_, _, err := tx.Initialize(1, 2)
		return err
	})
	resp, err := http.Get(srv.URL + "/v1/room")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	var body roomResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Rows != 1 || body.Columns != 2 || len(body.Seats) != 2 || body.Seats[1].Column != 2 || body.Seats[1].Status != "free" {
		t.Fatalf("snapshot = %+v", body)
	}
}

func TestHealth(t *testing.T) {
	srv, _, _ := startServer(t, testConfig())
	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"https://box.office"})
	req := httptest.NewRequest(http.MethodGet, "/cinema", nil)
	req.Header.Set("Origin", "https://evil.test")
	if check(req) {
		t.Fatal("foreign origin accepted")
	}
	req.Header.Set("Origin", "https://box.office")
	if !check(req) {
		t.Fatal("allowed origin rejected")
	}
	if !originChecker(nil)(req) {
		t.Fatal("empty allow list should accept any origin")
	}
}

func TestUnquote(t *testing.T) {
	for in, want := range map[string]string{`"lock1"`: "lock1", "lock1": "lock1", `"`: `"`, `""`: ""} {
		if got := unquote(in); got != want {
			t.Fatalf("unquote(%q) = %q, want %q", in, got, want)
		}
	}
}
