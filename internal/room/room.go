package room

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/iliyamo/cinema-seat-sync/internal/model"
)

// LockIDPrefix prefixes every issued lock id.
const LockIDPrefix = "lock"

// Room owns the grid dimensions, the seats and the lock table as one
// unit.  The zero value is not usable; call New.
type Room struct {
	mu sync.Mutex

	rows    int
	columns int
	seats   map[model.Coord]model.SeatStatus

	locks  map[string]model.Lock
	bySeat map[model.Coord]string

	// nextLock survives reinitialization so stale ids never match.
	nextLock uint64
}

// New returns an uninitialized room with dimensions 0x0.
func New() *Room {
	return &Room{
		seats:  map[model.Coord]model.SeatStatus{},
		locks:  map[string]model.Lock{},
		bySeat: map[model.Coord]string{},
	}
}

// Tx exposes the room operations to a function running under the room
// mutex.  A Tx must not be retained after Atomically returns.
type Tx struct {
	r *Room
}

// Atomically runs fn with exclusive access to the room.  Whatever fn
// observes and changes is seen by other callers as a single step.  fn
// must not block on I/O.
func (r *Room) Atomically(fn func(tx *Tx) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn(&Tx{r: r})
}

// Dimensions returns the current rows and columns, (0,0) before the first
// initialization.
func (r *Room) Dimensions() (rows, columns int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rows, r.columns
}

// Snapshot returns the dimensions and a copy of every seat in grid order.
func (r *Room) Snapshot() (rows, columns int, seats []model.Seat) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tx := Tx{r: r}
	return r.rows, r.columns, tx.Seats()
}

// Initialize replaces the grid with rows x columns FREE seats and drops
// every lock.  The new grid is built aside and swapped in, so a failed
// call leaves the previous room intact.
func (tx *Tx) Initialize(rows, columns int) (int, int, error) {
	if rows <= 0 || columns <= 0 {
		return 0, 0, fmt.Errorf("%w: rows=%d columns=%d", ErrInvalidDimensions, rows, columns)
	}
	seats := make(map[model.Coord]model.SeatStatus, rows*columns)
	for i := 1; i <= rows; i++ {
		for j := 1; j <= columns; j++ {
			seats[model.Coord{Row: i, Column: j}] = model.SeatFree
		}
	}
	r := tx.r
	r.rows, r.columns = rows, columns
	r.seats = seats
	r.locks = map[string]model.Lock{}
	r.bySeat = map[model.Coord]string{}
	return rows, columns, nil
}

// Dimensions returns the current rows and columns.
func (tx *Tx) Dimensions() (rows, columns int) { return tx.r.rows, tx.r.columns }

// FindSeat returns the seat at (row, column).
func (tx *Tx) FindSeat(row, column int) (model.Seat, error) {
	st, ok := tx.r.seats[model.Coord{Row: row, Column: column}]
	if !ok {
		return model.Seat{}, fmt.Errorf("%w: row=%d column=%d", ErrSeatNotFound, row, column)
	}
	return model.Seat{Row: row, Column: column, Status: st}, nil
}

// SetSeatStatus replaces the status of an existing seat and returns the
// updated seat.
func (tx *Tx) SetSeatStatus(row, column int, status model.SeatStatus) (model.Seat, error) {
	c := model.Coord{Row: row, Column: column}
	if _, ok := tx.r.seats[c]; !ok {
		return model.Seat{}, fmt.Errorf("%w: row=%d column=%d", ErrSeatNotFound, row, column)
	}
	tx.r.seats[c] = status
	return model.Seat{Row: row, Column: column, Status: status}, nil
}

// CreateLock issues a fresh lock for (row, column).  The caller is
// expected to have moved the seat to LOCKED in the same transaction.
func (tx *Tx) CreateLock(row, column int) (model.Lock, error) {
	r := tx.r
	c := model.Coord{Row: row, Column: column}
	if _, ok := r.seats[c]; !ok {
		return model.Lock{}, fmt.Errorf("%w: row=%d column=%d", ErrSeatNotFound, row, column)
	}
	if id, held := r.bySeat[c]; held {
		return model.Lock{}, fmt.Errorf("%w: held by %s", ErrSeatNotFree, id)
	}
	l := model.Lock{
		ID:     LockIDPrefix + strconv.FormatUint(r.nextLock, 10),
		Row:    row,
		Column: column,
	}
	r.nextLock++
	r.locks[l.ID] = l
	r.bySeat[c] = l.ID
	return l, nil
}

// FindLockByID returns the live lock with the given id.
func (tx *Tx) FindLockByID(id string) (model.Lock, error) {
	l, ok := tx.r.locks[id]
	if !ok {
		return model.Lock{}, fmt.Errorf("%w: %s", ErrLockNotFound, id)
	}
	return l, nil
}

// FindLockBySeat returns the live lock on (row, column), if any.
func (tx *Tx) FindLockBySeat(row, column int) (model.Lock, error) {
	id, ok := tx.r.bySeat[model.Coord{Row: row, Column: column}]
	if !ok {
		return model.Lock{}, fmt.Errorf("%w: row=%d column=%d", ErrLockNotFound, row, column)
	}
	return tx.r.locks[id], nil
}

// ReleaseLock removes a lock.  Releasing the same id twice fails the
// second time.
func (tx *Tx) ReleaseLock(id string) error {
	l, ok := tx.r.locks[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrLockNotFound, id)
	}
	delete(tx.r.locks, id)
	delete(tx.r.bySeat, l.Coord())
	return nil
}

// Seats returns every seat in grid order: row by row, column by column.
func (tx *Tx) Seats() []model.Seat {
	r := tx.r
	out := make([]model.Seat, 0, r.rows*r.columns)
	for i := 1; i <= r.rows; i++ {
		for j := 1; j <= r.columns; j++ {
			out = append(out, model.Seat{Row: i, Column: j, Status: r.seats[model.Coord{Row: i, Column: j}]})
		}
	}
	return out
}

// LockCount returns the number of live locks.
func (tx *Tx) LockCount() int { return len(tx.r.locks) }
