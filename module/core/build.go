package core

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	handler "github.com/anusthan12/owntracker/module/core/internal/handler/http"
	"github.com/anusthan12/owntracker/module/core/internal/handler/subscriber"
	"github.com/anusthan12/owntracker/module/core/internal/handler/tcp"
	"github.com/anusthan12/owntracker/module/core/internal/repository/archive/sqlstore"
	"github.com/anusthan12/owntracker/module/core/internal/repository/history/memory"
	"github.com/anusthan12/owntracker/module/core/internal/repository/publisher/rabbitmq"
	"github.com/anusthan12/owntracker/module/core/metrics"
	"github.com/anusthan12/owntracker/module/core/service"
)

// Deps are the collaborators the core module is built from. Every
// connection is optional; a nil connection disables the matching sink.
type Deps struct {
	HistoryLimit         int
	AllowZeroCoordinates bool

	ArchiveDB      *sql.DB
	ArchiveDialect string
	AMQPConn       *amqp.Connection
	SinkTimeout    time.Duration

	MQTTTopic     string
	TCPListenAddr string

	Registerer prometheus.Registerer
	Logger     zerolog.Logger
}

type Module struct {
	LocationSvc *service.LocationService
	handler     *handler.LocationHandler
	subscriber  *subscriber.LocationSubscriber
	listener    *tcp.LocationListener
}

func Build(ctx context.Context, deps Deps) (*Module, error) {
	store := memory.NewHistoryStore(deps.HistoryLimit)

	sinks := service.Sinks{Timeout: deps.SinkTimeout}
	if deps.ArchiveDB != nil {
		arch, err := sqlstore.NewLocationArchive(deps.ArchiveDB, sqlstore.Dialect(deps.ArchiveDialect))
		if err != nil {
			return nil, fmt.Errorf("location archive: %w", err)
		}
		if err := arch.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		sinks.Archive = arch
	}
	if deps.AMQPConn != nil {
		pub, err := rabbitmq.NewLocationPublisher(deps.AMQPConn)
		if err != nil {
			return nil, fmt.Errorf("location publisher: %w", err)
		}
		sinks.Publisher = pub
	}

	reg := deps.Registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	locationSvc := service.NewLocationService(store, sinks, metrics.New(reg), deps.Logger, deps.AllowZeroCoordinates)

	m := &Module{
		LocationSvc: locationSvc,
		handler:     handler.NewLocationHandler(locationSvc, deps.Logger),
		subscriber:  subscriber.NewLocationSubscriber(deps.MQTTTopic, locationSvc, deps.Logger),
	}
	if deps.TCPListenAddr != "" {
		m.listener = tcp.NewLocationListener(deps.TCPListenAddr, locationSvc, deps.Logger)
	}
	return m, nil
}

func (m *Module) RegisterRoutes(r *gin.RouterGroup) {
	m.handler.Register(r)
}

// OnMQTTConnect subscribes the location topic on client. Install it as the
// client's OnConnectHandler so reconnects subscribe again.
func (m *Module) OnMQTTConnect(client mqtt.Client) {
	m.subscriber.OnConnect(client)
}

// Start opens the TCP ingest listener, if one is configured.
func (m *Module) Start() error {
	if m.listener == nil {
		return nil
	}
	return m.listener.Start()
}

// TCPAddr is the bound TCP ingest address, or nil when TCP ingest is off.
func (m *Module) TCPAddr() net.Addr {
	if m.listener == nil {
		return nil
	}
	return m.listener.Addr()
}

func (m *Module) Stop() error {
	if m.listener == nil {
		return nil
	}
	return m.listener.Stop()
}
