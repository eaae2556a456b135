// Package message defines the unit of communication between clients and
// the seat coordinator together with its JSON wire codec.  A message is a
// type tag plus a flat set of string or integer properties.
package message

import (
	"strconv"

	"github.com/iliyamo/cinema-seat-sync/internal/model"
)

// Inbound message types.
const (
	TypeInitRoom    = "initRoom"
	TypeGetRoomSize = "getRoomSize"
	TypeUpdateSeats = "updateSeats"
	TypeLockSeat    = "lockSeat"
	TypeUnlockSeat  = "unlockSeat"
	TypeReserveSeat = "reserveSeat"
)

// Outbound message types.
const (
	TypeRoomSize   = "roomSize"
	TypeSeatStatus = "seatStatus"
	TypeLockResult = "lockResult"
	TypeError      = "error"
)

// Message is a typed bag of properties.  Property values are either
// string or int; the codec drops anything else.
type Message struct {
	Type       string
	Properties map[string]any
}

// New returns an empty message of the given type.
func New(typ string) Message {
	return Message{Type: typ, Properties: map[string]any{}}
}

// Set stores a property and returns the message for chaining.
func (m Message) Set(key string, value any) Message {
	if m.Properties == nil {
		m.Properties = map[string]any{}
	}
	m.Properties[key] = value
	return m
}

// Has reports whether the property is present.
func (m Message) Has(key string) bool {
	_, ok := m.Properties[key]
	return ok
}

// Int returns an integer property.  Numeric strings are accepted as
// well so that {"row":"3"} and {"row":3} mean the same thing.
func (m Message) Int(key string) (int, bool) {
	switch v := m.Properties[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

// String returns a property in its textual form.  Integers are
// formatted in base 10.
func (m Message) String(key string) (string, bool) {
	switch v := m.Properties[key].(type) {
	case string:
		return v, true
	case int:
		return strconv.Itoa(v), true
	case int64:
		return strconv.FormatInt(v, 10), true
	}
	return "", false
}

// RoomSize builds a roomSize message.
func RoomSize(rows, columns int) Message {
	return New(TypeRoomSize).Set("rows", rows).Set("columns", columns)
}

// SeatStatus builds a seatStatus message carrying the lower case status.
func SeatStatus(s model.Seat) Message {
	return New(TypeSeatStatus).
		Set("row", s.Row).
		Set("column", s.Column).
		Set("status", s.Status.Wire())
}

// LockResult builds the reply that hands a lock id to its owner.
func LockResult(lockID string) Message {
	return New(TypeLockResult).Set("lockId", lockID)
}

// Error builds an error reply.
func Error(text string) Message {
	return New(TypeError).Set("message", text)
}
