package model

import (
	"strconv"
	"strings"
)

// SeatStatus is the availability state of a seat in the room.  A seat
// starts FREE, moves to LOCKED while a client holds a lock on it and
// leaves LOCKED either back to FREE (unlock) or to RESERVED (reserve).
type SeatStatus int

const (
	SeatFree SeatStatus = iota
	SeatLocked
	SeatReserved
)

// String returns the upper case status name (FREE, LOCKED, RESERVED).
func (s SeatStatus) String() string {
	switch s {
	case SeatFree:
		return "FREE"
	case SeatLocked:
		return "LOCKED"
	case SeatReserved:
		return "RESERVED"
	}
	return "UNKNOWN"
}

// Wire returns the lower case form used in seatStatus messages.
func (s SeatStatus) Wire() string { return strings.ToLower(s.String()) }

// Coord addresses a seat by its 1-based row and column.
type Coord struct {
	Row    int
	Column int
}

// Seat describes one cell of the room grid.  Seats are uniquely
// identified by their coordinate within the current room and are
// replaced wholesale whenever the room is reinitialized.
//
// Fields:
//  Row    – 1-based row number.
//  Column – 1-based column number.
//  Status – current availability (FREE, LOCKED, RESERVED).
type Seat struct {
	Row    int
	Column int
	Status SeatStatus
}

// Coord returns the seat's coordinate.
func (s Seat) Coord() Coord { return Coord{Row: s.Row, Column: s.Column} }

// RowLabel converts a 1-based row number to an alphabetical label like
// A, B, ..., Z, AA.  Rows below 1 yield an empty label.
func RowLabel(row int) string {
	i := row - 1
	if i < 0 {
		return ""
	}
	res := []rune{}
	for {
		res = append(res, rune('A'+i%26))
		i = i/26 - 1
		if i < 0 {
			break
		}
	}
	for j, k := 0, len(res)-1; j < k; j, k = j+1, k-1 {
		res[j], res[k] = res[k], res[j]
	}
	return string(res)
}

// Label returns a human friendly seat label such as "B7".
func (s Seat) Label() string { return RowLabel(s.Row) + strconv.Itoa(s.Column) }

