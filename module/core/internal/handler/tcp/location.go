package tcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/anusthan12/owntracker/module/core/domain"
)

// DefaultIdleTimeout closes a connection that sends nothing for this long.
const DefaultIdleTimeout = 5 * time.Minute

type locationService interface {
	Record(ctx context.Context, source domain.Source, report *domain.LocationReport) error
}

// message is one JSON object on the stream. Trackers on raw sockets send
// device_id; deviceId is accepted too.
type message struct {
	DeviceID      string   `json:"device_id"`
	DeviceIDCamel string   `json:"deviceId"`
	Latitude      *float64 `json:"latitude"`
	Longitude     *float64 `json:"longitude"`
	Timestamp     string   `json:"timestamp"`
}

// LocationListener accepts TCP connections carrying a stream of JSON
// location objects. Objects may be concatenated with or without separators.
type LocationListener struct {
	addr        string
	idleTimeout time.Duration
	locationSvc locationService
	logger      zerolog.Logger

	mu     sync.Mutex
	ln     net.Listener
	conns  map[net.Conn]struct{}
	closed bool
	wg     sync.WaitGroup
}

func NewLocationListener(addr string, locationSvc locationService, logger zerolog.Logger) *LocationListener {
	return &LocationListener{
		addr:        addr,
		idleTimeout: DefaultIdleTimeout,
		locationSvc: locationSvc,
		logger:      logger,
		conns:       make(map[net.Conn]struct{}),
	}
}

func (l *LocationListener) Start() error {
	ln, err := net.Listen("tcp", l.addr)
	if err != nil {
		return fmt.Errorf("tcp listen %s: %w", l.addr, err)
	}

	l.mu.Lock()
	l.ln = ln
	l.mu.Unlock()

	l.logger.Info().Str("addr", ln.Addr().String()).Msg("tcp location listener started")

	l.wg.Add(1)
	go l.acceptLoop(ln)
	return nil
}

// Addr is the bound address, or nil before Start.
func (l *LocationListener) Addr() net.Addr {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ln == nil {
		return nil
	}
	return l.ln.Addr()
}

// Stop closes the listener and every open connection, then waits for the
// connection goroutines to exit.
func (l *LocationListener) Stop() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	var err error
	if l.ln != nil {
		err = l.ln.Close()
	}
	for c := range l.conns {
		_ = c.Close()
	}
	l.mu.Unlock()

	l.wg.Wait()
	return err
}

func (l *LocationListener) acceptLoop(ln net.Listener) {
	defer l.wg.Done()
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			l.logger.Warn().Err(err).Msg("tcp accept failed")
			continue
		}

		if !l.track(conn) {
			_ = conn.Close()
			return
		}
		l.wg.Add(1)
		go l.serve(conn)
	}
}

func (l *LocationListener) track(conn net.Conn) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return false
	}
	l.conns[conn] = struct{}{}
	return true
}

func (l *LocationListener) untrack(conn net.Conn) {
	l.mu.Lock()
	delete(l.conns, conn)
	l.mu.Unlock()
	_ = conn.Close()
}

func (l *LocationListener) serve(conn net.Conn) {
	defer l.wg.Done()
	defer l.untrack(conn)

	peer := peerHost(conn.RemoteAddr())
	log := l.logger.With().Str("peer", conn.RemoteAddr().String()).Logger()
	dec := json.NewDecoder(conn)

	for {
		_ = conn.SetReadDeadline(time.Now().Add(l.idleTimeout))

		var msg message
		err := dec.Decode(&msg)
		var typeErr *json.UnmarshalTypeError
		switch {
		case err == nil:
		case errors.As(err, &typeErr):
			// The decoder has consumed the offending object; keep reading.
			log.Warn().Err(err).Msg("invalid location message")
			continue
		case errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed):
			return
		default:
			log.Warn().Err(err).Msg("closing tcp location stream")
			return
		}

		report := msg.report(peer)
		if err := l.locationSvc.Record(context.Background(), domain.SourceTCP, report); err != nil {
			log.Warn().Err(err).Str("device_id", report.DeviceID).Msg("location rejected")
		}
	}
}

func (m *message) report(peer string) *domain.LocationReport {
	id := m.DeviceID
	if id == "" {
		id = m.DeviceIDCamel
	}
	if id == "" {
		id = fmt.Sprintf("Unknown (%s)", peer)
	}
	return &domain.LocationReport{
		DeviceID:  id,
		Latitude:  m.Latitude,
		Longitude: m.Longitude,
		Timestamp: m.Timestamp,
	}
}

func peerHost(addr net.Addr) string {
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	return host
}
