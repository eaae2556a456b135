// Package queue defines message payloads exchanged over the message broker.
package queue

// Seat event kinds.
const (
	EventRoomInitialized = "room.initialized"
	EventSeatLocked      = "seat.locked"
	EventSeatFreed       = "seat.freed"
	EventSeatReserved    = "seat.reserved"
)

// SeatEvent is published after every committed change to the room.  It
// carries enough for downstream consumers to keep an audit trail without
// talking to the coordinator.  Row, Column, Seat and LockID are empty
// for room.initialized; Rows and Columns are set only for it.
type SeatEvent struct {
	Kind       string `json:"kind"`
	Row        int    `json:"row,omitempty"`
	Column     int    `json:"column,omitempty"`
	Seat       string `json:"seat,omitempty"`
	Status     string `json:"status,omitempty"`
	LockID     string `json:"lock_id,omitempty"`
	Rows       int    `json:"rows,omitempty"`
	Columns    int    `json:"columns,omitempty"`
	OccurredAt string `json:"occurred_at"`
}
