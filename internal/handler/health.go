package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-seat-sync/internal/hub"
)

// Health returns a health-check handler for load balancers and
// monitoring.  It answers 200 with the number of open WebSocket
// connections.
func Health(h *hub.Hub) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok", "connections": h.Len()})
	}
}
