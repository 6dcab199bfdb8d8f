package config

import (
	"context"
	"database/sql"
	"net/http"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gin-gonic/gin"
	amqp "github.com/rabbitmq/amqp091-go"
)

type pinger interface {
	PingContext(ctx context.Context) error
}

type closer interface {
	IsClosed() bool
}

type connector interface {
	IsConnected() bool
}

// HealthChecker reports the state of optional dependencies. A dependency
// that is not configured is reported as disabled and never fails the check.
type HealthChecker struct {
	db       pinger
	amqpConn closer
	mqtt     connector
}

func NewHealthChecker(db *sql.DB, amqpConn *amqp.Connection, mqttClient mqtt.Client) *HealthChecker {
	h := &HealthChecker{}
	if db != nil {
		h.db = db
	}
	if amqpConn != nil {
		h.amqpConn = amqpConn
	}
	if mqttClient != nil {
		h.mqtt = mqttClient
	}
	return h
}

func (h *HealthChecker) Register(r *gin.Engine) {
	r.GET("/healthz", h.Handle)
}

func (h *HealthChecker) Handle(c *gin.Context) {
	status := http.StatusOK
	deps := gin.H{}

	if h.db == nil {
		deps["archive"] = gin.H{"status": "disabled"}
	} else if err := h.db.PingContext(c.Request.Context()); err != nil {
		deps["archive"] = gin.H{"status": "down", "error": err.Error()}
		status = http.StatusServiceUnavailable
	} else {
		deps["archive"] = gin.H{"status": "up"}
	}

	switch {
	case h.amqpConn == nil:
		deps["rabbitmq"] = gin.H{"status": "disabled"}
	case h.amqpConn.IsClosed():
		deps["rabbitmq"] = gin.H{"status": "down", "error": "connection closed"}
		status = http.StatusServiceUnavailable
	default:
		deps["rabbitmq"] = gin.H{"status": "up"}
	}

	switch {
	case h.mqtt == nil:
		deps["mqtt"] = gin.H{"status": "disabled"}
	case !h.mqtt.IsConnected():
		deps["mqtt"] = gin.H{"status": "down", "error": "not connected"}
		status = http.StatusServiceUnavailable
	default:
		deps["mqtt"] = gin.H{"status": "up"}
	}

	overall := "healthy"
	if status != http.StatusOK {
		overall = "unhealthy"
	}

	c.JSON(status, gin.H{
		"status":       overall,
		"dependencies": deps,
	})
}
