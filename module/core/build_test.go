package core

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild_InMemoryOnly(t *testing.T) {
	m, err := Build(context.Background(), Deps{
		Registerer: prometheus.NewRegistry(),
		Logger:     zerolog.Nop(),
	})
	require.NoError(t, err)
	assert.NoError(t, m.Start())
	assert.Nil(t, m.TCPAddr())
	assert.NoError(t, m.Stop())

	gin.SetMode(gin.TestMode)
	r := gin.New()
	m.RegisterRoutes(&r.RouterGroup)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/location", strings.NewReader(`{"latitude":1,"longitude":2,"deviceId":"d"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/api/location/d", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"latitude":1`)
}

func TestBuild_WithArchive(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS location_samples`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE INDEX IF NOT EXISTS`).WillReturnResult(sqlmock.NewResult(0, 0))

	_, err = Build(context.Background(), Deps{
		ArchiveDB:      db,
		ArchiveDialect: "sqlite",
		Registerer:     prometheus.NewRegistry(),
		Logger:         zerolog.Nop(),
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBuild_ArchiveSchemaError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectExec(`CREATE TABLE`).WillReturnError(sqlmock.ErrCancelled)

	_, err = Build(context.Background(), Deps{
		ArchiveDB:      db,
		ArchiveDialect: "postgres",
		Registerer:     prometheus.NewRegistry(),
		Logger:         zerolog.Nop(),
	})
	assert.Error(t, err)
}

type subscribeRecorder struct {
	mqtt.Client
	topics []string
}

func (s *subscribeRecorder) Subscribe(topic string, _ byte, _ mqtt.MessageHandler) mqtt.Token {
	s.topics = append(s.topics, topic)
	return &doneToken{}
}

type doneToken struct{}

func (doneToken) Wait() bool                     { return true }
func (doneToken) WaitTimeout(time.Duration) bool { return true }
func (doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (doneToken) Error() error { return nil }

func TestModule_OnMQTTConnectResubscribes(t *testing.T) {
	m, err := Build(context.Background(), Deps{
		MQTTTopic:  "fleet/+/location",
		Registerer: prometheus.NewRegistry(),
		Logger:     zerolog.Nop(),
	})
	require.NoError(t, err)

	client := &subscribeRecorder{}
	m.OnMQTTConnect(client)
	m.OnMQTTConnect(client)

	assert.Equal(t, []string{"fleet/+/location", "fleet/+/location"}, client.topics)
}

func TestModule_TCPIngest(t *testing.T) {
	m, err := Build(context.Background(), Deps{
		TCPListenAddr: "127.0.0.1:0",
		Registerer:    prometheus.NewRegistry(),
		Logger:        zerolog.Nop(),
	})
	require.NoError(t, err)
	require.NoError(t, m.Start())
	defer func() { _ = m.Stop() }()

	conn, err := net.Dial("tcp", m.TCPAddr().String())
	require.NoError(t, err)
	_, err = conn.Write([]byte(`{"device_id":"tcp-1","latitude":1,"longitude":2}`))
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	assert.Eventually(t, func() bool {
		return len(m.LocationSvc.History(context.Background(), "tcp-1")) == 1
	}, 2*time.Second, 10*time.Millisecond)
}
