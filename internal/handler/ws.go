package handler

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-seat-sync/internal/config"
	"github.com/iliyamo/cinema-seat-sync/internal/hub"
	"github.com/iliyamo/cinema-seat-sync/internal/message"
	"github.com/iliyamo/cinema-seat-sync/internal/middleware"
)

const limiterTimeout = 500 * time.Millisecond

var (
	errConnClosed = errors.New("connection closed")
	errTooSlow    = errors.New("outbound queue full")
)

// WSHandler upgrades HTTP requests to WebSocket connections, registers
// them with the hub and feeds their frames to the seat handler.
type WSHandler struct {
	Seats   *SeatHandler
	Hub     *hub.Hub
	Limiter *middleware.TokenBucket // per-connection message limiter, nil disables

	cfg      config.Config
	upgrader websocket.Upgrader
}

// NewWSHandler builds the transport for the given config.
func NewWSHandler(cfg config.Config, seats *SeatHandler, h *hub.Hub, limiter *middleware.TokenBucket) *WSHandler {
	if seats == nil || h == nil {
		panic("nil dependency passed to NewWSHandler")
	}
	return &WSHandler{
		Seats:   seats,
		Hub:     h,
		Limiter: limiter,
		cfg:     cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(cfg.AllowedOrigins),
		},
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(r *http.Request) bool { return true }
	}
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		set[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set[origin]
	}
}

// Serve handles GET on the WebSocket path.  It blocks until the client
// disconnects.
func (h *WSHandler) Serve(c echo.Context) error {
	ws, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// The upgrader has already written the HTTP error.
		c.Logger().Warnf("[ws] upgrade failed: %v", err)
		return nil
	}
	conn := newWSConn(uuid.NewString(), ws, h.cfg)
	h.Hub.Register(conn)
	c.Logger().Infof("[ws] opened id=%s remote=%s", conn.id, c.RealIP())

	go conn.writePump(c.Logger())
	h.readPump(c, conn)

	h.Hub.Unregister(conn)
	conn.close()
	c.Logger().Infof("[ws] closed id=%s", conn.id)
	return nil
}

func (h *WSHandler) readPump(c echo.Context, conn *wsConn) {
	ws := conn.ws
	ws.SetReadLimit(h.cfg.MaxMessageBytes)
	_ = ws.SetReadDeadline(time.Now().Add(h.cfg.PongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(h.cfg.PongWait))
	})

	key := h.Limiter.Key("conn", conn.id)
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.Logger().Warnf("[ws] error id=%s: %v", conn.id, err)
			}
			return
		}
		_ = ws.SetReadDeadline(time.Now().Add(h.cfg.PongWait))

		msg, err := message.Decode(data)
		if err != nil {
			c.Logger().Warnf("[ws] dropping frame from %s: %v", conn.id, err)
			continue
		}
		if d, err := h.allow(key); err != nil {
			c.Logger().Warnf("[ws] rate limiter error for %s: %v", conn.id, err)
		} else if !d.Allowed {
			_ = h.Hub.Unicast(message.Error("rate limit exceeded"), conn)
			continue
		}
		h.Seats.Handle(conn, msg)
	}
}

func (h *WSHandler) allow(key string) (middleware.Decision, error) {
	if h.Limiter == nil {
		return middleware.Decision{Allowed: true}, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), limiterTimeout)
	defer cancel()
	return h.Limiter.Allow(ctx, key)
}

// wsConn adapts a gorilla connection to hub.Conn.  Send only queues the
// frame; writePump owns every write to the socket.
type wsConn struct {
	id         string
	ws         *websocket.Conn
	writeWait  time.Duration
	pingPeriod time.Duration
	maxPending int

	mu     sync.Mutex
	queue  [][]byte
	closed bool

	wake      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

func newWSConn(id string, ws *websocket.Conn, cfg config.Config) *wsConn {
	return &wsConn{
		id:         id,
		ws:         ws,
		writeWait:  cfg.WriteWait,
		pingPeriod: cfg.PingPeriod,
		maxPending: cfg.MaxPending,
		wake:       make(chan struct{}, 1),
		done:       make(chan struct{}),
	}
}

func (c *wsConn) ID() string { return c.id }

// Send queues a text frame.  A client that lets more than maxPending
// frames pile up is disconnected.
func (c *wsConn) Send(frame []byte) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return errConnClosed
	}
	if len(c.queue) >= c.maxPending {
		c.mu.Unlock()
		c.close()
		return errTooSlow
	}
	c.queue = append(c.queue, frame)
	c.mu.Unlock()

	select {
	case c.wake <- struct{}{}:
	default:
	}
	return nil
}

func (c *wsConn) drain() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	frames := c.queue
	c.queue = nil
	return frames
}

func (c *wsConn) close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.queue = nil
		c.mu.Unlock()
		close(c.done)
		_ = c.ws.Close()
	})
}

func (c *wsConn) writePump(logger echo.Logger) {
	ticker := time.NewTicker(c.pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()
	for {
		select {
		case <-c.done:
			return
		case <-c.wake:
			for _, frame := range c.drain() {
				_ = c.ws.SetWriteDeadline(time.Now().Add(c.writeWait))
				if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
					logger.Warnf("[ws] write to %s failed: %v", c.id, err)
					return
				}
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
