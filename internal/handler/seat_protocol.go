package handler

import (
	"errors"
	"fmt"
	"log"

	"github.com/iliyamo/cinema-seat-sync/internal/hub"
	"github.com/iliyamo/cinema-seat-sync/internal/message"
	"github.com/iliyamo/cinema-seat-sync/internal/model"
	"github.com/iliyamo/cinema-seat-sync/internal/queue"
	"github.com/iliyamo/cinema-seat-sync/internal/room"
)

// EventSink receives a SeatEvent for every committed room change.  Emit
// is called while the room is locked and must not block.
type EventSink interface {
	Emit(ev queue.SeatEvent)
}

// SeatHandler interprets inbound messages and drives the room through
// its seat transitions.  Replies go to the requesting connection only;
// state changes are broadcast to every registered connection.
//
// Each mutation and the broadcast describing it are produced inside one
// room transaction.  Hub delivery only queues frames, so all clients
// observe changes in commit order without the room lock being held
// across network writes.
type SeatHandler struct {
	Room   *room.Room
	Hub    *hub.Hub
	Events EventSink // optional
}

// NewSeatHandler wires a handler to its room and hub and panics if
// either is nil.  events may be nil.
func NewSeatHandler(r *room.Room, h *hub.Hub, events EventSink) *SeatHandler {
	if r == nil || h == nil {
		panic("nil dependency passed to NewSeatHandler")
	}
	return &SeatHandler{Room: r, Hub: h, Events: events}
}

// Handle dispatches one decoded message from conn.  Messages that lack
// a required property are dropped without a reply, and unknown types
// are ignored.
func (h *SeatHandler) Handle(conn hub.Conn, m message.Message) {
	switch m.Type {
	case message.TypeInitRoom:
		h.initRoom(conn, m)
	case message.TypeGetRoomSize:
		h.sendRoomSize(conn)
	case message.TypeUpdateSeats:
		h.updateSeats(conn)
	case message.TypeLockSeat:
		h.lockSeat(conn, m)
	case message.TypeUnlockSeat:
		h.releaseSeat(conn, m, model.SeatFree)
	case message.TypeReserveSeat:
		h.releaseSeat(conn, m, model.SeatReserved)
	default:
		log.Printf("seat-handler: message type cannot be handled: %q", m.Type)
	}
}

func (h *SeatHandler) initRoom(conn hub.Conn, m message.Message) {
	rows, okRows := m.Int("rows")
	columns, okCols := m.Int("columns")
	if !okRows || !okCols {
		return
	}
	err := h.Room.Atomically(func(tx *room.Tx) error {
		r, c, err := tx.Initialize(rows, columns)
		if err != nil {
			return err
		}
		h.Hub.Broadcast(message.RoomSize(r, c))
		h.emit(queue.SeatEvent{Kind: queue.EventRoomInitialized, Rows: r, Columns: c})
		return nil
	})
	if err != nil {
		h.replyError(conn, "Number of rows and columns must be greater than 0.")
	}
}

func (h *SeatHandler) sendRoomSize(conn hub.Conn) {
	_ = h.Room.Atomically(func(tx *room.Tx) error {
		rows, columns := tx.Dimensions()
		_ = h.Hub.Unicast(message.RoomSize(rows, columns), conn)
		return nil
	})
}

func (h *SeatHandler) updateSeats(conn hub.Conn) {
	_ = h.Room.Atomically(func(tx *room.Tx) error {
		for _, s := range tx.Seats() {
			if err := h.Hub.Unicast(message.SeatStatus(s), conn); err != nil {
				return err
			}
		}
		return nil
	})
}

func (h *SeatHandler) lockSeat(conn hub.Conn, m message.Message) {
	row, okRow := m.Int("row")
	column, okCol := m.Int("column")
	if !okRow || !okCol {
		return
	}
	err := h.Room.Atomically(func(tx *room.Tx) error {
		seat, err := tx.FindSeat(row, column)
		if err != nil {
			return err
		}
		if seat.Status != model.SeatFree {
			return room.ErrSeatNotFree
		}
		if seat, err = tx.SetSeatStatus(row, column, model.SeatLocked); err != nil {
			return fmt.Errorf("%w: %v", room.ErrSeatMutationFailed, err)
		}
		lock, err := tx.CreateLock(row, column)
		if err != nil {
			// Undo the status change so the seat is never LOCKED without a lock.
			_, _ = tx.SetSeatStatus(row, column, model.SeatFree)
			return fmt.Errorf("%w: %v", room.ErrSeatMutationFailed, err)
		}
		_ = h.Hub.Unicast(message.LockResult(lock.ID), conn)
		h.Hub.Broadcast(message.SeatStatus(seat))
		h.emitSeat(queue.EventSeatLocked, seat, lock.ID)
		return nil
	})
	switch {
	case err == nil:
	case errors.Is(err, room.ErrSeatNotFound):
		h.replyError(conn, fmt.Sprintf("Seat at row: %d, column: %d does not exist.", row, column))
	case errors.Is(err, room.ErrSeatNotFree):
		h.replyError(conn, "Seat is not free!")
	default:
		h.replyError(conn, fmt.Sprintf("Failed to change seat status at row: %d, column: %d.", row, column))
	}
}

// releaseSeat ends the lock named by lockId and moves its seat to status,
// FREE for unlockSeat and RESERVED for reserveSeat.
func (h *SeatHandler) releaseSeat(conn hub.Conn, m message.Message, status model.SeatStatus) {
	raw, ok := m.String("lockId")
	if !ok {
		return
	}
	lockID := unquote(raw)

	var lock model.Lock
	err := h.Room.Atomically(func(tx *room.Tx) error {
		var err error
		if lock, err = tx.FindLockByID(lockID); err != nil {
			return err
		}
		seat, err := tx.SetSeatStatus(lock.Row, lock.Column, status)
		if err != nil {
			return fmt.Errorf("%w: %v", room.ErrSeatMutationFailed, err)
		}
		if err := tx.ReleaseLock(lock.ID); err != nil {
			return err
		}
		h.Hub.Broadcast(message.SeatStatus(seat))
		kind := queue.EventSeatFreed
		if status == model.SeatReserved {
			kind = queue.EventSeatReserved
		}
		h.emitSeat(kind, seat, lock.ID)
		return nil
	})
	switch {
	case err == nil:
	case errors.Is(err, room.ErrSeatMutationFailed):
		h.replyError(conn, fmt.Sprintf("Failed to change seat status at row: %d, column: %d.", lock.Row, lock.Column))
	default:
		h.replyError(conn, lockID+" lock does not exist.")
	}
}

// unquote strips one pair of surrounding double quotes, which is how a
// lock id arrives when a client sends the JSON-encoded token as the value.
func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

func (h *SeatHandler) replyError(conn hub.Conn, text string) {
	_ = h.Hub.Unicast(message.Error(text), conn)
}

func (h *SeatHandler) emit(ev queue.SeatEvent) {
	if h.Events != nil {
		h.Events.Emit(ev)
	}
}

func (h *SeatHandler) emitSeat(kind string, s model.Seat, lockID string) {
	h.emit(queue.SeatEvent{
		Kind:   kind,
		Row:    s.Row,
		Column: s.Column,
		Seat:   s.Label(),
		Status: s.Status.Wire(),
		LockID: lockID,
	})
}
