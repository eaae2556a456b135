// Package room holds the in-memory state of the single seat room: its
// dimensions, the seat grid and the table of active locks.  All access
// goes through Room.Atomically so that a read-check-mutate sequence is
// never interleaved with another request's mutation.
package room

import "errors"

// ErrInvalidDimensions is returned by Initialize when rows or columns
// is not positive.  The current room is left untouched.
var ErrInvalidDimensions = errors.New("invalid room dimensions")

// ErrSeatNotFound is returned when a coordinate lies outside the grid.
var ErrSeatNotFound = errors.New("seat not found")

// ErrSeatNotFree is returned when a lock is requested on a seat that is
// LOCKED or RESERVED, or that already has a live lock.
var ErrSeatNotFree = errors.New("seat is not free")

// ErrSeatMutationFailed signals that a status change could not be
// applied to a seat the caller expected to exist.
var ErrSeatMutationFailed = errors.New("seat mutation failed")

// ErrLockNotFound is returned for unknown or already released lock ids.
var ErrLockNotFound = errors.New("lock not found")
