// Package amqp moves export events between the ledger and its worker over
// RabbitMQ: a direct exchange with one durable queue, manual acks, and
// persistent messages.
package amqp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

const publishTimeout = 5 * time.Second

type Client struct {
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	exchangeName string
	queueName    string
}

func NewClient(url, exchangeName, queueName string) (*Client, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	client := &Client{
		conn:         conn,
		channel:      channel,
		exchangeName: exchangeName,
		queueName:    queueName,
	}

	if err := client.setup(); err != nil {
		client.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}

	return client, nil
}

func (c *Client) setup() error {
	err := c.channel.ExchangeDeclare(
		c.exchangeName,
		"direct",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	_, err = c.channel.QueueDeclare(
		c.queueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	// Routing key matches the queue name on a direct exchange.
	if err := c.channel.QueueBind(c.queueName, c.queueName, c.exchangeName, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

// PublishTransactionSync enqueues a sync request for a stored transaction.
func (c *Client) PublishTransactionSync(ctx context.Context, ownerID, id, version int64) error {
	return c.publish(ctx, NewTransactionSyncMessage(ownerID, id, version))
}

// PublishTransactionDelete enqueues a delete request for a mirrored row.
func (c *Client) PublishTransactionDelete(ctx context.Context, ownerID, id int64) error {
	return c.publish(ctx, NewTransactionDeleteMessage(ownerID, id))
}

func (c *Client) publish(ctx context.Context, msg any) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = c.channel.PublishWithContext(
		ctx,
		c.exchangeName,
		c.queueName, // routing key
		false,       // mandatory
		false,       // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}

	slog.InfoContext(ctx, "Published export message",
		"exchange", c.exchangeName,
		"queue", c.queueName)
	return nil
}

// SyncHandler processes one sync message; a returned error requeues it.
type SyncHandler func(ctx context.Context, msg *TransactionSyncMessage) error

// DeleteHandler processes one delete message; a returned error requeues it.
type DeleteHandler func(ctx context.Context, msg *TransactionDeleteMessage) error

// ConsumeMessages reads the queue until ctx is done, dispatching by message
// type. Malformed messages are rejected without requeue; handler failures are
// requeued.
func (c *Client) ConsumeMessages(ctx context.Context, onSync SyncHandler, onDelete DeleteHandler) error {
	deliveries, err := c.channel.Consume(
		c.queueName,
		"",    // consumer tag
		false, // manual ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	slog.InfoContext(ctx, "Consuming export messages", "queue", c.queueName)

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("message channel closed")
			}
			if err := c.dispatch(ctx, delivery.Body, onSync, onDelete); err != nil {
				slog.ErrorContext(ctx, "Failed to handle export message", "error", err)
				delivery.Nack(false, !isMalformed(err))
				continue
			}
			delivery.Ack(false)
		}
	}
}

type malformedError struct{ err error }

func (e malformedError) Error() string { return e.err.Error() }
func (e malformedError) Unwrap() error { return e.err }

func isMalformed(err error) bool {
	_, ok := err.(malformedError)
	return ok
}

func (c *Client) dispatch(ctx context.Context, body []byte, onSync SyncHandler, onDelete DeleteHandler) error {
	msgType, err := MessageType(body)
	if err != nil {
		return malformedError{err}
	}
	switch msgType {
	case TypeTransactionSync:
		var msg TransactionSyncMessage
		if err := json.Unmarshal(body, &msg); err != nil {
			return malformedError{fmt.Errorf("decode sync message: %w", err)}
		}
		return onSync(ctx, &msg)
	case TypeTransactionDelete:
		var msg TransactionDeleteMessage
		if err := json.Unmarshal(body, &msg); err != nil {
			return malformedError{fmt.Errorf("decode delete message: %w", err)}
		}
		return onDelete(ctx, &msg)
	default:
		return malformedError{fmt.Errorf("unknown message type %q", msgType)}
	}
}

func (c *Client) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
