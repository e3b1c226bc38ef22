// Package messaging wraps the message-broker clients: a reconnecting
// RabbitMQ client for the delivery task queues and a Kafka producer for the
// outbound event relay.
package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitConfig holds connection and resilience settings.
type RabbitConfig struct {
	URL               string
	ReconnectDelay    time.Duration
	MaxReconnectDelay time.Duration
	HeartbeatTimeout  time.Duration
}

// DefaultRabbitConfig returns sane resilience defaults.
func DefaultRabbitConfig(url string) RabbitConfig {
	return RabbitConfig{
		URL:               url,
		ReconnectDelay:    time.Second,
		MaxReconnectDelay: time.Minute,
		HeartbeatTimeout:  10 * time.Second,
	}
}

// RabbitClient is a RabbitMQ connection that transparently reconnects.
// Publishing while disconnected returns an error rather than blocking.
type RabbitClient struct {
	config RabbitConfig
	logger *slog.Logger

	mu          sync.RWMutex
	conn        *amqp.Connection
	ch          *amqp.Channel
	closed      bool
	notifyClose chan *amqp.Error
}

func NewRabbitClient(config RabbitConfig, logger *slog.Logger) (*RabbitClient, error) {
	c := &RabbitClient{config: config, logger: logger}
	if err := c.connect(); err != nil {
		return nil, err
	}
	go c.watchConnection()
	return c, nil
}

func (c *RabbitClient) connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	conn, err := amqp.DialConfig(c.config.URL, amqp.Config{Heartbeat: c.config.HeartbeatTimeout})
	if err != nil {
		return fmt.Errorf("connect to rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open rabbitmq channel: %w", err)
	}

	c.conn = conn
	c.ch = ch
	c.notifyClose = make(chan *amqp.Error, 1)
	conn.NotifyClose(c.notifyClose)
	c.logger.Info("connected to rabbitmq")
	return nil
}

func (c *RabbitClient) watchConnection() {
	for {
		c.mu.RLock()
		closed := c.closed
		notify := c.notifyClose
		c.mu.RUnlock()
		if closed {
			return
		}

		if err := <-notify; err != nil {
			c.logger.Warn("rabbitmq connection lost, reconnecting", "error", err)
			c.reconnect()
		} else {
			return
		}
	}
}

func (c *RabbitClient) reconnect() {
	delay := c.config.ReconnectDelay
	for {
		c.mu.RLock()
		closed := c.closed
		c.mu.RUnlock()
		if closed {
			return
		}
		if err := c.connect(); err == nil {
			return
		}
		time.Sleep(delay)
		if delay *= 2; delay > c.config.MaxReconnectDelay {
			delay = c.config.MaxReconnectDelay
		}
	}
}

// DeclareQueue declares a durable queue with a matching dead-letter queue
// for messages that exhaust their retries.
func (c *RabbitClient) DeclareQueue(name string) (amqp.Queue, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.ch == nil {
		return amqp.Queue{}, fmt.Errorf("channel not initialized")
	}

	dlq := name + ".dlq"
	if _, err := c.ch.QueueDeclare(dlq, true, false, false, false, nil); err != nil {
		return amqp.Queue{}, fmt.Errorf("declare dead-letter queue: %w", err)
	}
	return c.ch.QueueDeclare(name, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": dlq,
	})
}

// Publish sends a JSON body to the named queue.
func (c *RabbitClient) Publish(ctx context.Context, queue string, body []byte) error {
	c.mu.RLock()
	ch := c.ch
	c.mu.RUnlock()
	if ch == nil {
		return fmt.Errorf("rabbitmq connection not available")
	}
	return ch.PublishWithContext(ctx, "", queue, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
}

// Consume delivers queue messages to handler until ctx is cancelled. A
// handler error nacks the message to the dead-letter queue.
func (c *RabbitClient) Consume(ctx context.Context, queue string, handler func(body []byte) error) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		c.mu.RLock()
		ch := c.ch
		c.mu.RUnlock()
		if ch == nil {
			time.Sleep(time.Second)
			continue
		}

		msgs, err := ch.Consume(queue, "", false, false, false, false, nil)
		if err != nil {
			c.logger.Warn("consumer registration failed, retrying", "queue", queue, "error", err)
			time.Sleep(2 * time.Second)
			continue
		}

	deliveries:
		for {
			select {
			case <-ctx.Done():
				return nil
			case d, ok := <-msgs:
				if !ok {
					// Channel dropped; reconnect loop takes over.
					break deliveries
				}
				if err := handler(d.Body); err != nil {
					c.logger.Error("message handling failed", "queue", queue, "error", err)
					_ = d.Nack(false, false)
					continue
				}
				_ = d.Ack(false)
			}
		}
	}
}

// IsHealthy reports whether the connection is currently usable.
func (c *RabbitClient) IsHealthy() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn != nil && !c.conn.IsClosed()
}

func (c *RabbitClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.ch != nil {
		c.ch.Close()
	}
	if c.conn != nil {
		c.conn.Close()
	}
}
