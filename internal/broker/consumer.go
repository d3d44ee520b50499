// Package broker connects the service to RabbitMQ: a consumer that feeds
// ingestion tasks to the document pipeline and a publisher used by tooling
// to enqueue them.
package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/Birzhan20/neuro-search-core/internal/metrics"
	"github.com/Birzhan20/neuro-search-core/internal/models"
	"github.com/Birzhan20/neuro-search-core/internal/repositories"
)

// TaskProcessor handles a single ingestion task.
type TaskProcessor interface {
	Process(ctx context.Context, task models.IngestionTask) error
}

// ConsumerConfig holds the broker connection settings.
type ConsumerConfig struct {
	URL        string
	Queue      string
	MaxRetries int
	RetryDelay time.Duration
}

// Consumer reads ingestion tasks from a durable queue one at a time and
// hands them to the processor. Every delivery is acknowledged exactly once,
// whether processing succeeded or not: the task status store is the record
// of failures, not the queue.
type Consumer struct {
	cfg    ConsumerConfig
	proc   TaskProcessor
	logger *slog.Logger
}

// NewConsumer creates a consumer. It does not connect until Run is called.
func NewConsumer(cfg ConsumerConfig, proc TaskProcessor, logger *slog.Logger) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{
		cfg:    cfg,
		proc:   proc,
		logger: logger.With("component", "broker-consumer"),
	}
}

// Run connects to the broker and consumes until ctx is canceled. A lost
// connection triggers a fresh bounded dial loop; once the attempts are
// exhausted Run returns a connectivity error and the caller decides what
// a dead consumer means for the process.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		conn, err := c.dial(ctx)
		if err != nil {
			return err
		}

		err = c.consume(ctx, conn)
		conn.Close()

		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			c.logger.Warn("consumer connection lost, reconnecting", "err", err)
		}
	}
}

// dial attempts the broker connection up to MaxRetries times with a fixed
// delay between attempts.
func (c *Consumer) dial(ctx context.Context) (*amqp.Connection, error) {
	var lastErr error

	for attempt := 1; attempt <= c.cfg.MaxRetries; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		conn, err := amqp.Dial(c.cfg.URL)
		if err == nil {
			c.logger.Info("connected to broker", "attempt", attempt)
			return conn, nil
		}

		lastErr = err
		c.logger.Warn("broker connection failed",
			"attempt", attempt, "max_attempts", c.cfg.MaxRetries, "err", err)

		if attempt < c.cfg.MaxRetries {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.cfg.RetryDelay):
			}
		}
	}

	return nil, fmt.Errorf("%w: broker unreachable after %d attempts: %v",
		repositories.ErrConnectivity, c.cfg.MaxRetries, lastErr)
}

// consume opens a channel on the connection and processes deliveries until
// the channel closes or ctx is canceled. Returning nil means ctx ended the
// loop; any other return asks Run to reconnect.
func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()

	// One task in flight at a time: ingestion is heavy and order within the
	// queue should hold.
	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}

	if _, err := declareQueue(ch, c.cfg.Queue); err != nil {
		return fmt.Errorf("declare queue %q: %w", c.cfg.Queue, err)
	}

	deliveries, err := ch.Consume(c.cfg.Queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("start consume: %w", err)
	}

	c.logger.Info("consuming", "queue", c.cfg.Queue)

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}
			c.handleDelivery(ctx, d)
		}
	}
}

// handleDelivery processes one message. The delivery is always acknowledged:
// a malformed or failed task must not wedge the queue, and a panic in the
// pipeline must not take the consumer loop down with it.
func (c *Consumer) handleDelivery(ctx context.Context, d amqp.Delivery) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("panic while processing task", "panic", r)
			metrics.TasksConsumed.WithLabelValues(metrics.TaskOutcomeFailed).Inc()
		}
		if err := d.Ack(false); err != nil {
			c.logger.Warn("failed to ack delivery", "err", err)
		}
	}()

	var task models.IngestionTask
	if err := json.Unmarshal(d.Body, &task); err != nil {
		c.logger.Error("malformed task payload", "err", err)
		metrics.TasksConsumed.WithLabelValues(metrics.TaskOutcomeMalformed).Inc()
		return
	}

	// The task context is detached from ctx: shutdown stops the consume loop
	// between deliveries, but a delivery already in flight is acked below and
	// must run to completion, or a healthy task would be dropped for good.
	taskCtx := context.WithoutCancel(ctx)
	if err := c.proc.Process(taskCtx, task); err != nil {
		metrics.TasksConsumed.WithLabelValues(metrics.TaskOutcomeFailed).Inc()
		return
	}
	metrics.TasksConsumed.WithLabelValues(metrics.TaskOutcomeProcessed).Inc()
}

// declareQueue declares the durable ingestion queue. Both consumer and
// publisher declare it so either side can start first.
func declareQueue(ch *amqp.Channel, name string) (amqp.Queue, error) {
	return ch.QueueDeclare(name, true, false, false, false, nil)
}
