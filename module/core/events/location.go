// Package events owns the RabbitMQ topology and payload of location events,
// shared by the server's publisher and the event listener.
package events

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	ExchangeName       = "owntracker.events"
	QueueName          = "location_events"
	LocationRecorded   = "location.recorded"
	ContentTypeJSON    = "application/json"
	exchangeKindFanout = "fanout"
)

type LocationEvent struct {
	Event      string  `json:"event"`
	DeviceID   string  `json:"deviceId"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	Timestamp  string  `json:"timestamp"`
	RecordedAt int64   `json:"recordedAt"`
}

// Declarer is the subset of *amqp.Channel needed to declare the topology.
type Declarer interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
}

// DeclareTopology declares the durable fanout exchange and the durable queue
// bound to it. Declaring is idempotent, so publisher and consumers both call it.
func DeclareTopology(ch Declarer) error {
	if err := ch.ExchangeDeclare(ExchangeName, exchangeKindFanout, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	if _, err := ch.QueueDeclare(QueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	if err := ch.QueueBind(QueueName, "", ExchangeName, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}
