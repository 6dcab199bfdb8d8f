package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/anusthan12/owntracker/module/core/domain"
	"github.com/anusthan12/owntracker/module/core/events"
)

type fakeChannel struct {
	exchange string
	msg      amqp.Publishing
	err      error
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, _ string, _, _ bool, msg amqp.Publishing) error {
	f.exchange = exchange
	f.msg = msg
	return f.err
}

func TestPublishLocation(t *testing.T) {
	ch := &fakeChannel{}
	p := &LocationPublisher{ch: ch, now: func() time.Time { return time.Unix(1715003456, 0) }}

	err := p.PublishLocation(context.Background(), &domain.DeviceLocation{
		DeviceID: "phone-1",
		Location: domain.Location{Lat: -6.2088, Lon: 106.8456, Timestamp: "2024-05-06T13:50:56.000Z"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ch.exchange != events.ExchangeName {
		t.Errorf("expected exchange %s, got %s", events.ExchangeName, ch.exchange)
	}
	if ch.msg.ContentType != "application/json" {
		t.Errorf("expected application/json, got %s", ch.msg.ContentType)
	}

	var ev events.LocationEvent
	if err := json.Unmarshal(ch.msg.Body, &ev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if ev.Event != events.LocationRecorded {
		t.Errorf("expected %s, got %s", events.LocationRecorded, ev.Event)
	}
	if ev.DeviceID != "phone-1" {
		t.Errorf("expected phone-1, got %s", ev.DeviceID)
	}
	if ev.Latitude != -6.2088 || ev.Longitude != 106.8456 {
		t.Errorf("unexpected coordinates %f,%f", ev.Latitude, ev.Longitude)
	}
	if ev.RecordedAt != 1715003456 {
		t.Errorf("expected 1715003456, got %d", ev.RecordedAt)
	}
}

func TestPublishLocation_Error(t *testing.T) {
	ch := &fakeChannel{err: errors.New("channel closed")}
	p := &LocationPublisher{ch: ch, now: time.Now}

	err := p.PublishLocation(context.Background(), &domain.DeviceLocation{DeviceID: "phone-1"})
	if err == nil {
		t.Fatal("expected error")
	}
}
