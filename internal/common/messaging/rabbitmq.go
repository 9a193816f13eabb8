package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rizkirmdhn/universal-media-downloader/internal/common/config"
	"github.com/rizkirmdhn/universal-media-downloader/pkg/models"
	"github.com/sirupsen/logrus"
)

var (
	ErrNotConnected   = errors.New("rabbitmq channel is not open")
	ErrMalformed      = errors.New("malformed message")
	ErrConsumerClosed = errors.New("consumer channel closed")
)

// Handler processes one delivery. Returning an error requeues the message.
type Handler func(routingKey string, body []byte) error

// Client defines the messaging client interface
type Client interface {
	// PublishJSON publishes a JSON message to the configured exchange with the given routing key
	PublishJSON(ctx context.Context, routingKey string, data interface{}) error

	// Subscribe binds queueName to the exchange and passes every delivery to handler until ctx is done
	Subscribe(ctx context.Context, queueName, bindingKey string, handler Handler) error

	// Errors reports failures the client could not recover from, such as a
	// lost connection that did not come back
	Errors() <-chan error

	// Close closes the connection
	Close() error
}

var _ Client = (*RabbitMQClient)(nil)

type subscription struct {
	ctx     context.Context
	queue   string
	binding string
	handler Handler
}

// RabbitMQClient implements the Client interface using RabbitMQ
type RabbitMQClient struct {
	mu      sync.RWMutex
	conn    *amqp.Connection
	channel *amqp.Channel
	config  *config.RabbitMQConfig
	log     *logrus.Logger
	closed  bool
	subs    []subscription
	errs    chan error
}

// NewRabbitMQClient creates a new RabbitMQ client
func NewRabbitMQClient(cfg *config.RabbitMQConfig, log *logrus.Logger) (*RabbitMQClient, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("rabbitmq URL is required")
	}

	if cfg.Exchange == "" {
		return nil, fmt.Errorf("rabbitmq exchange name is required")
	}

	client := &RabbitMQClient{
		config: cfg,
		log:    log,
		errs:   make(chan error, 1),
	}

	if err := client.connect(); err != nil {
		return nil, err
	}

	return client, nil
}

// connect establishes a connection to RabbitMQ
func (c *RabbitMQClient) connect() error {
	conn, err := amqp.Dial(c.config.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to open a channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		c.config.Exchange,        // name
		config.ExchangeTypeTopic, // type
		true,                     // durable
		false,                    // auto-deleted
		false,                    // internal
		false,                    // no-wait
		nil,                      // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return fmt.Errorf("failed to declare an exchange: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.channel = channel
	c.mu.Unlock()

	// Set up connection recovery
	go c.handleReconnect(conn)

	return nil
}

// handleReconnect attempts to reconnect to RabbitMQ when the connection is lost
func (c *RabbitMQClient) handleReconnect(conn *amqp.Connection) {
	err, ok := <-conn.NotifyClose(make(chan *amqp.Error, 1))
	if !ok {
		// Closed on purpose
		return
	}

	c.mu.Lock()
	c.channel = nil
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return
	}

	c.log.WithFields(logrus.Fields{
		"component": "messaging",
		"error":     err,
	}).Warn("RabbitMQ connection closed, attempting to reconnect")

	for i := 0; i < c.config.ReconnectRetries; i++ {
		time.Sleep(time.Duration(c.config.ReconnectTimeout) * time.Millisecond)

		if err := c.connect(); err == nil {
			c.log.WithField("component", "messaging").Info("Successfully reconnected to RabbitMQ")
			if err := c.resubscribe(); err != nil {
				c.log.WithFields(logrus.Fields{
					"component": "messaging",
					"error":     err,
				}).Error("Failed to restore consumers after reconnect")
				c.fail(err)
			}
			return
		}

		c.log.WithFields(logrus.Fields{
			"component": "messaging",
			"attempt":   i + 1,
			"retries":   c.config.ReconnectRetries,
		}).Warn("Failed to reconnect to RabbitMQ")
	}

	c.log.WithField("component", "messaging").Error("Failed to reconnect to RabbitMQ after multiple attempts")
	c.fail(fmt.Errorf("failed to reconnect to RabbitMQ after %d attempts: %w", c.config.ReconnectRetries, err))
}

// fail reports err on the Errors channel without blocking
func (c *RabbitMQClient) fail(err error) {
	select {
	case c.errs <- err:
	default:
	}
}

// Errors returns the channel unrecoverable client failures are sent on
func (c *RabbitMQClient) Errors() <-chan error {
	return c.errs
}

// PublishJSON publishes a JSON message to the exchange with the given routing key
func (c *RabbitMQClient) PublishJSON(ctx context.Context, routingKey string, data interface{}) error {
	body, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON message: %w", err)
	}

	c.mu.RLock()
	channel := c.channel
	c.mu.RUnlock()
	if channel == nil {
		return ErrNotConnected
	}

	return channel.PublishWithContext(
		ctx,
		c.config.Exchange, // exchange
		routingKey,        // routing key
		false,             // mandatory
		false,             // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
			Timestamp:    time.Now(),
		},
	)
}

// Notify publishes a download lifecycle event using its type as routing key
func (c *RabbitMQClient) Notify(ctx context.Context, event models.ActivityEvent) {
	if err := c.PublishJSON(ctx, event.Type, event); err != nil {
		c.log.WithFields(logrus.Fields{
			"component": "messaging",
			"event":     event.Type,
			"error":     err,
		}).Warn("Failed to publish activity event")
	}
}

// Subscribe declares a durable queue bound to the exchange and consumes it.
// The consumer is restored after a reconnect.
func (c *RabbitMQClient) Subscribe(ctx context.Context, queueName, bindingKey string, handler Handler) error {
	sub := subscription{ctx: ctx, queue: queueName, binding: bindingKey, handler: handler}
	if err := c.subscribe(sub); err != nil {
		return err
	}

	c.mu.Lock()
	c.subs = append(c.subs, sub)
	c.mu.Unlock()
	return nil
}

func (c *RabbitMQClient) subscribe(sub subscription) error {
	c.mu.RLock()
	channel := c.channel
	c.mu.RUnlock()
	if channel == nil {
		return ErrNotConnected
	}

	queue, err := channel.QueueDeclare(
		sub.queue, // name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		nil,       // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	if err := channel.QueueBind(queue.Name, sub.binding, c.config.Exchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue: %w", err)
	}

	msgs, err := channel.Consume(
		queue.Name, // queue
		"",         // consumer
		false,      // auto-ack
		false,      // exclusive
		false,      // no-local
		false,      // no-wait
		nil,        // args
	)
	if err != nil {
		return fmt.Errorf("failed to register a consumer: %w", err)
	}

	go func() {
		if err := c.consume(sub.ctx, msgs, sub.handler); err != nil {
			c.log.WithFields(logrus.Fields{
				"component": "messaging",
				"queue":     queue.Name,
			}).Warn("Consumer channel closed")
			return
		}
		c.log.WithField("component", "messaging").Info("Consumer stopped")
	}()

	return nil
}

// resubscribe restores the consumers whose context is still live
func (c *RabbitMQClient) resubscribe() error {
	c.mu.RLock()
	subs := append([]subscription(nil), c.subs...)
	c.mu.RUnlock()

	var result *multierror.Error
	for _, sub := range subs {
		if sub.ctx.Err() != nil {
			continue
		}
		if err := c.subscribe(sub); err != nil {
			result = multierror.Append(result, fmt.Errorf("queue %s: %w", sub.queue, err))
		}
	}
	return result.ErrorOrNil()
}

// consume passes deliveries to handler until ctx is done, returning nil, or
// until msgs is closed, returning ErrConsumerClosed
func (c *RabbitMQClient) consume(ctx context.Context, msgs <-chan amqp.Delivery, handler Handler) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return ErrConsumerClosed
			}

			if err := handler(msg.RoutingKey, msg.Body); err != nil {
				c.log.WithFields(logrus.Fields{
					"component":   "messaging",
					"routing_key": msg.RoutingKey,
					"error":       err,
				}).Warn("Failed to process message")
				// Malformed payloads would loop forever if requeued
				msg.Nack(false, !errors.Is(err, ErrMalformed))
				continue
			}
			msg.Ack(false)
		}
	}
}

// Close closes the connection and channel
func (c *RabbitMQClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}

	if c.conn != nil {
		return c.conn.Close()
	}

	return nil
}
