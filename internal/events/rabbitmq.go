package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

type RabbitMQConfig struct {
	URL      string
	Exchange string
	// DialAttempts bounds the connection retry loop. Zero means 5.
	DialAttempts int
}

// RabbitMQ publishes JSON envelopes to a durable topic exchange.
type RabbitMQ struct {
	conn     *amqp.Connection
	mu       sync.Mutex
	channel  *amqp.Channel
	exchange string
}

// NewRabbitMQ dials the broker with a growing back-off and declares the exchange.
func NewRabbitMQ(cfg RabbitMQConfig, logger *logrus.Logger) (*RabbitMQ, error) {
	if cfg.Exchange == "" {
		return nil, fmt.Errorf("exchange name cannot be empty")
	}
	attempts := cfg.DialAttempts
	if attempts <= 0 {
		attempts = 5
	}

	var conn *amqp.Connection
	var err error
	for i := 0; i < attempts; i++ {
		conn, err = amqp.Dial(cfg.URL)
		if err == nil {
			break
		}
		if i == attempts-1 {
			break
		}
		wait := time.Duration(i*i)*time.Second + time.Second
		logger.WithError(err).WithField("retry_in", wait.String()).Warn("failed to connect to RabbitMQ")
		time.Sleep(wait)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", attempts, err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		cfg.Exchange, // name
		"topic",      // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", cfg.Exchange, err)
	}
	logger.WithField("exchange", cfg.Exchange).Info("rabbitmq exchange ready")

	return &RabbitMQ{conn: conn, channel: channel, exchange: cfg.Exchange}, nil
}

func (r *RabbitMQ) Publish(ctx context.Context, routingKey string, payload any) error {
	body, err := json.Marshal(newEnvelope(routingKey, payload))
	if err != nil {
		return fmt.Errorf("failed to marshal event %s: %w", routingKey, err)
	}

	// amqp channels are not safe for concurrent publishing.
	r.mu.Lock()
	defer r.mu.Unlock()

	err = r.channel.PublishWithContext(ctx,
		r.exchange, // exchange
		routingKey, // routing key
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish to exchange %s with routing key %s: %w", r.exchange, routingKey, err)
	}
	return nil
}

func (r *RabbitMQ) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.channel != nil {
		if err := r.channel.Close(); err != nil {
			return err
		}
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}
