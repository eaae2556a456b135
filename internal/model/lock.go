package model

// Lock represents a temporary claim on exactly one seat.  While a lock
// exists its seat is LOCKED.  The lock is removed when the client that
// received its ID unlocks or reserves the seat, or when the room is
// reinitialized.  Locks have no expiry.
//
// Fields:
//  ID     – opaque token returned to the client, unique for the process lifetime.
//  Row    – row of the locked seat.
//  Column – column of the locked seat.
type Lock struct {
	ID     string
	Row    int
	Column int
}

// Coord returns the coordinate of the locked seat.
func (l Lock) Coord() Coord { return Coord{Row: l.Row, Column: l.Column} }
