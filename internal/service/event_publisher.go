// Package service publishes seat events to RabbitMQ.  Publishing never
// sits on the request path: events are queued in memory and a single
// worker delivers them in the order they were emitted.  Failures are
// logged and dropped.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/cinema-seat-sync/internal/config"
	q "github.com/iliyamo/cinema-seat-sync/internal/queue"
)

// EventPublisher buffers events and forwards them to the broker.
type EventPublisher struct {
	events  chan q.SeatEvent
	timeout time.Duration
	publish func(ctx context.Context, ev q.SeatEvent) error

	mu     sync.RWMutex
	closed bool
}

// NewEventPublisher starts a publisher bound to the configured queue.
// The returned value must be closed to stop its worker.
func NewEventPublisher(cfg config.EventsConfig) *EventPublisher {
	b := &brokerChannel{cfg: cfg}
	p := newEventPublisher(cfg.Buffer, cfg.PublishTimeout, b.publish)
	go func() {
		p.run()
		b.close()
	}()
	return p
}

func newEventPublisher(buffer int, timeout time.Duration, publish func(context.Context, q.SeatEvent) error) *EventPublisher {
	if buffer < 1 {
		buffer = 1
	}
	return &EventPublisher{
		events:  make(chan q.SeatEvent, buffer),
		timeout: timeout,
		publish: publish,
	}
}

// Emit queues an event without blocking.  When the buffer is full the
// event is dropped and logged.
func (p *EventPublisher) Emit(ev q.SeatEvent) {
	if p == nil {
		return
	}
	if ev.OccurredAt == "" {
		ev.OccurredAt = time.Now().UTC().Format(time.RFC3339Nano)
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return
	}
	select {
	case p.events <- ev:
	default:
		log.Printf("rabbitmq: event buffer full, dropping %s", ev.Kind)
	}
}

// Close stops accepting events and lets the worker drain what is queued.
func (p *EventPublisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		close(p.events)
	}
}

func (p *EventPublisher) run() {
	for ev := range p.events {
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		if err := p.publish(ctx, ev); err != nil {
			log.Printf("rabbitmq: publish %s failed: %v", ev.Kind, err)
		}
		cancel()
	}
}

// brokerChannel keeps one connection and channel open across publishes
// and redials on the next event after a failure.
type brokerChannel struct {
	cfg  config.EventsConfig
	conn *amqp.Connection
	ch   *amqp.Channel
}

func (b *brokerChannel) open() error {
	if b.ch != nil && !b.ch.IsClosed() {
		return nil
	}
	b.close()
	conn, err := amqp.Dial(b.cfg.URL)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("channel open: %w", err)
	}
	// Durable so events survive broker restarts.
	if _, err := ch.QueueDeclare(b.cfg.Queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("queue declare: %w", err)
	}
	b.conn, b.ch = conn, ch
	return nil
}

func (b *brokerChannel) publish(ctx context.Context, ev q.SeatEvent) error {
	if err := b.open(); err != nil {
		return err
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Type:         ev.Kind,
		Body:         body,
	}
	if err := b.ch.PublishWithContext(ctx, "", b.cfg.Queue, false, false, pub); err != nil {
		b.close()
		return err
	}
	return nil
}

func (b *brokerChannel) close() {
	if b.ch != nil {
		_ = b.ch.Close()
		b.ch = nil
	}
	if b.conn != nil {
		_ = b.conn.Close()
		b.conn = nil
	}
}
