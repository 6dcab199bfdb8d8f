package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/anusthan12/owntracker/config"
	"github.com/anusthan12/owntracker/internal/httpx"
	"github.com/anusthan12/owntracker/module/core"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := config.NewLogger(cfg)

	db, err := config.NewArchiveDB(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("archive")
	}
	if db != nil {
		defer func() { _ = db.Close() }()
	}

	amqpConn, err := config.NewRabbitMQ(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("rabbitmq")
	}
	if amqpConn != nil {
		defer func() { _ = amqpConn.Close() }()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	coreModule, err := core.Build(context.Background(), core.Deps{
		HistoryLimit:         cfg.HistoryLimit,
		AllowZeroCoordinates: cfg.AllowZeroCoordinates,
		ArchiveDB:            db,
		ArchiveDialect:       cfg.ArchiveDriver,
		AMQPConn:             amqpConn,
		SinkTimeout:          cfg.SinkTimeout,
		MQTTTopic:            cfg.MQTTTopic,
		TCPListenAddr:        cfg.TCPListenAddr,
		Registerer:           reg,
		Logger:               log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("core module")
	}

	mqttClient, err := config.NewMQTT(cfg, coreModule.OnMQTTConnect)
	if err != nil {
		log.Fatal().Err(err).Msg("mqtt")
	}
	if mqttClient != nil {
		defer mqttClient.Disconnect(250)
	}

	if err := coreModule.Start(); err != nil {
		log.Fatal().Err(err).Msg("tcp ingest")
	}
	defer func() { _ = coreModule.Stop() }()

	gin.SetMode(gin.ReleaseMode)
	r := httpx.NewEngine(log)

	health := config.NewHealthChecker(db, amqpConn, mqttClient)
	health.Register(r)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	coreModule.RegisterRoutes(&r.RouterGroup)

	if cfg.StaticDir != "" {
		httpx.ServeStatic(r, cfg.StaticDir)
	}

	log.Info().
		Int("history_limit", cfg.HistoryLimit).
		Bool("allow_zero_coordinates", cfg.AllowZeroCoordinates).
		Str("archive", cfg.ArchiveDriver).
		Bool("publisher", amqpConn != nil).
		Bool("mqtt", mqttClient != nil).
		Str("tcp_ingest", cfg.TCPListenAddr).
		Msgf("open http://localhost:%s in your browser", cfg.Port)

	server := httpx.NewServer(":"+cfg.Port, r, log)
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			log.Fatal().Err(err).Msg("server")
		}
	case s := <-sig:
		log.Info().Str("signal", s.String()).Msg("shutting down")
		if err := server.Stop(cfg.ShutdownTimeout); err != nil {
			log.Error().Err(err).Msg("shutdown")
		}
	}
}
