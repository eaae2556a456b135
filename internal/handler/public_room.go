package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-seat-sync/internal/room"
)

// RoomHandler exposes a read-only HTTP view of the room for clients that
// want the current seat map without opening a WebSocket.
type RoomHandler struct {
	Room *room.Room
}

// NewRoomHandler panics if r is nil.
func NewRoomHandler(r *room.Room) *RoomHandler {
	if r == nil {
		panic("nil room passed to NewRoomHandler")
	}
	return &RoomHandler{Room: r}
}

type seatResponse struct {
	Row    int    `json:"row"`
	Column int    `json:"column"`
	Status string `json:"status"`
}

type roomResponse struct {
	Rows    int            `json:"rows"`
	Columns int            `json:"columns"`
	Seats   []seatResponse `json:"seats"`
}

// GetRoom handles GET /v1/room.  Seats are listed in grid order with the
// same lower case status strings the WebSocket protocol uses.
func (h *RoomHandler) GetRoom(c echo.Context) error {
	rows, columns, seats := h.Room.Snapshot()
	resp := roomResponse{Rows: rows, Columns: columns, Seats: make([]seatResponse, 0, len(seats))}
	for _, s := range seats {
		resp.Seats = append(resp.Seats, seatResponse{Row: s.Row, Column: s.Column, Status: s.Status.Wire()})
	}
	return c.JSON(http.StatusOK, resp)
}
