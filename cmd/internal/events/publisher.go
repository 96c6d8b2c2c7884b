package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slotbook/cmd/internal/logger"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

type Publisher interface {
	Publish(ctx context.Context, event *BookingEvent) error
	Close() error
}

// broker is the open channel the publisher writes to.
type broker interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	NotifyClose(c chan *amqp.Error) chan *amqp.Error
	IsClosed() bool
	Close() error
}

// amqpBroker closes its connection together with the channel. A dropped
// connection closes the channel, so watching the channel covers both.
type amqpBroker struct {
	*amqp.Channel
	conn *amqp.Connection
}

func (b *amqpBroker) Close() error {
	_ = b.Channel.Close()
	return b.conn.Close()
}

func dial(url, exchange string) (broker, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &amqpBroker{Channel: ch, conn: conn}, nil
}

var ErrPublisherClosed = errors.New("publisher closed")

// AMQPPublisher publishes booking events on a topic exchange. When the broker
// drops the channel it redials in the background; a publish that finds the
// channel closed redials on the spot.
type AMQPPublisher struct {
	mu       sync.Mutex
	b        broker
	exchange string
	connect  func() (broker, error)
	done     chan struct{}
	closed   bool

	RetryDelay time.Duration
}

func NewAMQPPublisher(url, exchange string) (*AMQPPublisher, error) {
	return newPublisher(exchange, func() (broker, error) { return dial(url, exchange) })
}

func newPublisher(exchange string, connect func() (broker, error)) (*AMQPPublisher, error) {
	p := &AMQPPublisher{exchange: exchange, connect: connect, done: make(chan struct{}), RetryDelay: time.Second}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.redial(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, event *BookingEvent) error {
	b, err := json.Marshal(event)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPublisherClosed
	}
	if p.b == nil || p.b.IsClosed() {
		if err := p.redial(); err != nil {
			return fmt.Errorf("reconnect rabbitmq: %w", err)
		}
	}
	return p.b.PublishWithContext(ctx, p.exchange, event.RoutingKey(), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.ID,
		Type:         string(event.Type),
		Body:         b,
	})
}

// redial replaces the current broker. Callers hold mu.
func (p *AMQPPublisher) redial() error {
	if p.b != nil {
		_ = p.b.Close()
		p.b = nil
	}
	b, err := p.connect()
	if err != nil {
		return err
	}
	p.b = b
	go p.watch(b)
	return nil
}

// watch waits for b to close and redials until a new broker is up, the
// publisher is closed or a publish has already replaced b.
func (p *AMQPPublisher) watch(b broker) {
	closed := b.NotifyClose(make(chan *amqp.Error, 1))
	select {
	case <-p.done:
		return
	case reason := <-closed:
		logger.Get().Warn("rabbitmq channel closed", zap.Any("reason", reason))
	}

	for attempt := 1; ; attempt++ {
		select {
		case <-p.done:
			return
		case <-time.After(p.RetryDelay):
		}

		p.mu.Lock()
		if p.closed || p.b != b {
			p.mu.Unlock()
			return
		}
		err := p.redial()
		p.mu.Unlock()
		if err == nil {
			logger.Get().Info("rabbitmq reconnected", zap.Int("attempt", attempt))
			return
		}
		logger.Get().Warn("rabbitmq reconnect failed", zap.Int("attempt", attempt), zap.Error(err))
	}
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	close(p.done)
	if p.b != nil {
		return p.b.Close()
	}
	return nil
}

// NopPublisher drops every event. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, *BookingEvent) error { return nil }

func (NopPublisher) Close() error { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []*BookingEvent
}

func (r *Recorder) Publish(_ context.Context, event *BookingEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *Recorder) Close() error { return nil }

func (r *Recorder) Events() []*BookingEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*BookingEvent(nil), r.events...)
}
