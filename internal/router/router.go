package router // package router defines how HTTP routes are registered

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-seat-sync/internal/handler"
	"github.com/iliyamo/cinema-seat-sync/internal/hub"
)

// RegisterRoutes registers the health check at /healthz.
func RegisterRoutes(e *echo.Echo, h *hub.Hub) {
	e.GET("/healthz", handler.Health(h))
}

// RegisterRealtime mounts the WebSocket endpoint at path.  mw runs before
// the upgrade, which is where connection attempts are rate limited.
func RegisterRealtime(e *echo.Echo, path string, ws *handler.WSHandler, mw ...echo.MiddlewareFunc) {
	e.GET(path, ws.Serve, mw...)
}

// RegisterPublic registers the read-only room snapshot under /v1.
func RegisterPublic(e *echo.Echo, p *handler.RoomHandler, mw ...echo.MiddlewareFunc) {
	g := e.Group("/v1")
	g.GET("/room", p.GetRoom, mw...)
}
