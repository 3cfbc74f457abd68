package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/streadway/amqp"
)

// ResultSubmitted is the routing key used when a result is stored.
const ResultSubmitted = "result.submitted"

// Publisher emits domain events to whoever listens downstream.
type Publisher interface {
	Publish(ctx context.Context, eventType string, payload any) error
	Close() error
}

// Envelope is the wire form of every event.
type Envelope struct {
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurredAt"`
	Payload    any       `json:"payload"`
}

// Encode marshals an event envelope.
func Encode(eventType string, at time.Time, payload any) ([]byte, error) {
	return json.Marshal(Envelope{Type: eventType, OccurredAt: at, Payload: payload})
}

// AMQPPublisher publishes to a durable topic exchange; the event type is the routing key.
type AMQPPublisher struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	now      func() time.Time
}

func NewAMQPPublisher(amqpURL, exchange string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	return &AMQPPublisher{conn: conn, channel: ch, exchange: exchange, now: time.Now}, nil
}

func (p *AMQPPublisher) Publish(_ context.Context, eventType string, payload any) error {
	now := p.now()
	body, err := Encode(eventType, now, payload)
	if err != nil {
		return err
	}
	return p.channel.Publish(
		p.exchange,
		eventType,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    now,
			Body:         body,
		},
	)
}

func (p *AMQPPublisher) Close() error {
	if p.channel != nil {
		_ = p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// Nop discards events. Used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, string, any) error { return nil }
func (Nop) Close() error                               { return nil }
