package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/multierr"

	"github.com/dejobratic/bookstore/internal/bookstore/domain"
)

// Channel is the subset of *amqp.Channel the publisher uses.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPPublisher publishes JSON events to a durable RabbitMQ topic exchange.
type AMQPPublisher struct {
	conn     *amqp.Connection
	ch       Channel
	exchange string
	now      func() time.Time
}

// NewAMQPPublisher dials the broker and declares the exchange.
func NewAMQPPublisher(url, exchange string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open rabbitmq channel: %w", err)
	}

	p, err := NewAMQPPublisherWithChannel(ch, exchange)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	p.conn = conn
	return p, nil
}

// NewAMQPPublisherWithChannel declares the exchange on an already open channel.
func NewAMQPPublisherWithChannel(ch Channel, exchange string) (*AMQPPublisher, error) {
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	return &AMQPPublisher{
		ch:       ch,
		exchange: exchange,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

func (p *AMQPPublisher) PublishItemAdded(ctx context.Context, book domain.Book) error {
	return p.publishJSON(ctx, RoutingKeyItemAdded, newItemAdded(book, p.now()))
}

func (p *AMQPPublisher) PublishItemRolledBack(ctx context.Context, bookID int64) error {
	return p.publishJSON(ctx, RoutingKeyItemRolledBack, ItemRolledBack{BookID: bookID, OccurredAt: p.now()})
}

func (p *AMQPPublisher) PublishOrderSubmitted(ctx context.Context, order domain.SubmittedOrder) error {
	return p.publishJSON(ctx, RoutingKeyOrderSubmitted, newOrderSubmitted(order))
}

func (p *AMQPPublisher) publishJSON(ctx context.Context, routingKey string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", routingKey, err)
	}

	err = p.ch.PublishWithContext(ctx, p.exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    p.now(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", routingKey, err)
	}
	return nil
}

// Close releases the channel and, when owned, the connection.
func (p *AMQPPublisher) Close() error {
	var errs error
	if err := p.ch.Close(); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("close channel: %w", err))
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("close connection: %w", err))
		}
	}
	return errs
}
