package config

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// NewRabbitMQ dials the broker, or returns nil when RABBITMQ_URL is unset.
func NewRabbitMQ(cfg *Config) (*amqp.Connection, error) {
	if cfg.RabbitMQURL == "" {
		return nil, nil
	}
	conn, err := amqp.Dial(cfg.RabbitMQURL)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq connect: %w", err)
	}
	return conn, nil
}
