package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"

	"github.com/therealutkarshpriyadarshi/vidsum/internal/config"
	"github.com/therealutkarshpriyadarshi/vidsum/internal/metrics"
	"github.com/therealutkarshpriyadarshi/vidsum/pkg/models"
)

const (
	FeedbackQueueName = "feedback"
	ExchangeName      = "vidsum"
)

// publisher is the part of an AMQP channel used to publish
type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// FeedbackHandler delivers one feedback message
type FeedbackHandler func(ctx context.Context, fb *models.Feedback) error

// Queue carries feedback messages from the API to the mail worker
type Queue struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	pub     publisher
}

// New creates a new queue client and declares the feedback topology
func New(cfg config.QueueConfig) (*Queue, error) {
	url := fmt.Sprintf("amqp://%s:%s@%s:%d%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Vhost)

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	q := &Queue{conn: conn, channel: channel, pub: channel}
	if err := q.declare(); err != nil {
		q.Close()
		return nil, err
	}

	return q, nil
}

func (q *Queue) declare() error {
	// Declare exchange
	err := q.channel.ExchangeDeclare(
		ExchangeName,
		"direct",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	// Rejected messages are dead-lettered
	_, err = q.channel.QueueDeclare(
		FeedbackQueueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		amqp.Table{
			"x-dead-letter-exchange":    DeadLetterExchangeName,
			"x-dead-letter-routing-key": DeadLetterQueueName,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	// Bind queue to exchange
	err = q.channel.QueueBind(
		FeedbackQueueName,
		FeedbackQueueName,
		ExchangeName,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to bind queue: %w", err)
	}

	return q.SetupDeadLetterQueue()
}

// Close closes the queue connection
func (q *Queue) Close() error {
	if q.channel != nil {
		q.channel.Close()
	}
	if q.conn != nil {
		return q.conn.Close()
	}
	return nil
}

// PublishFeedback enqueues a feedback message for delivery
func (q *Queue) PublishFeedback(ctx context.Context, fb *models.Feedback) error {
	err := q.publish(ctx, ExchangeName, FeedbackQueueName, fb, nil, "")
	metrics.RecordFeedback("enqueue", err == nil)
	if err != nil {
		return fmt.Errorf("failed to publish feedback: %w", err)
	}
	return nil
}

func (q *Queue) publish(ctx context.Context, exchange, key string, fb *models.Feedback, headers amqp.Table, expiration string) error {
	body, err := json.Marshal(fb)
	if err != nil {
		return fmt.Errorf("failed to marshal feedback: %w", err)
	}

	return q.pub.PublishWithContext(ctx,
		exchange,
		key,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Body:         body,
			Timestamp:    time.Now(),
			Headers:      headers,
			Expiration:   expiration,
		},
	)
}

// ConsumeFeedback starts consuming feedback messages. Failed deliveries are
// retried with backoff and dead-lettered after MaxRetries.
func (q *Queue) ConsumeFeedback(ctx context.Context, handler FeedbackHandler) error {
	// Set QoS to limit concurrent processing
	err := q.channel.Qos(
		1,     // prefetch count
		0,     // prefetch size
		false, // global
	)
	if err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	msgs, err := q.channel.Consume(
		FeedbackQueueName,
		"",    // consumer
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				q.process(ctx, msg, handler)
			}
		}
	}()

	return nil
}

// process runs handler for one delivery and settles it
func (q *Queue) process(ctx context.Context, msg amqp.Delivery, handler FeedbackHandler) {
	var fb models.Feedback
	if err := json.Unmarshal(msg.Body, &fb); err != nil {
		log.Warn().Err(err).Msg("Dropping malformed feedback message")
		msg.Nack(false, false)
		return
	}

	err := handler(ctx, &fb)
	metrics.RecordFeedback("deliver", err == nil)
	if err == nil {
		msg.Ack(false)
		return
	}

	log.Warn().Err(err).Str("feedback_id", fb.ID).Msg("Feedback delivery failed")

	if rerr := q.PublishToRetryQueue(ctx, &fb, retryCount(msg.Headers)); rerr != nil {
		log.Error().Err(rerr).Str("feedback_id", fb.ID).Msg("Failed to schedule feedback retry")
		msg.Nack(false, true)
		return
	}
	msg.Ack(false)
}

// Health reports whether the broker connection is open
func (q *Queue) Health(ctx context.Context) error {
	if q.conn == nil || q.conn.IsClosed() {
		return errors.New("rabbitmq connection closed")
	}
	return nil
}

// GetQueueDepth returns the number of messages in the queue
func (q *Queue) GetQueueDepth() (int, error) {
	info, err := q.channel.QueueInspect(FeedbackQueueName)
	if err != nil {
		return 0, fmt.Errorf("failed to inspect queue: %w", err)
	}

	return info.Messages, nil
}
