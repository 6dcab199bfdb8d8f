package main

import (
	"math"
	"testing"
	"time"

	"github.com/adrianmo/go-nmea"
)

func TestRMCSentence_RoundTrip(t *testing.T) {
	ts := time.Date(2024, 5, 6, 13, 50, 56, 250000000, time.UTC)
	raw := rmcSentence(-6.2088, 106.8456, ts)

	s, err := nmea.Parse(raw)
	if err != nil {
		t.Fatalf("parse %q: %v", raw, err)
	}
	rmc, ok := s.(nmea.RMC)
	if !ok {
		t.Fatalf("expected RMC, got %T", s)
	}
	if math.Abs(rmc.Latitude-(-6.2088)) > 1e-5 || math.Abs(rmc.Longitude-106.8456) > 1e-5 {
		t.Errorf("coordinates = %f,%f", rmc.Latitude, rmc.Longitude)
	}
	if rmc.Date.DD != 6 || rmc.Date.MM != 5 || rmc.Date.YY != 24 {
		t.Errorf("date = %+v", rmc.Date)
	}
	if rmc.Time.Millisecond != 250 {
		t.Errorf("time = %+v", rmc.Time)
	}
}

func TestNMEADegrees(t *testing.T) {
	if got := nmeaDegrees(48.1173, 2); got != "4807.0380" {
		t.Errorf("got %s", got)
	}
	if got := nmeaDegrees(6.5, 3); got != "00630.0000" {
		t.Errorf("got %s", got)
	}
}

func TestNMEADegrees_CarriesRoundedMinutes(t *testing.T) {
	tests := []struct {
		v     float64
		width int
		want  string
	}{
		{48.9999999, 2, "4900.0000"},
		{106.99999995, 3, "10700.0000"},
		{0.9999999, 2, "0100.0000"},
		{48.99999, 2, "4859.9994"},
	}
	for _, tt := range tests {
		if got := nmeaDegrees(tt.v, tt.width); got != tt.want {
			t.Errorf("nmeaDegrees(%v) = %s, want %s", tt.v, got, tt.want)
		}
	}

	raw := rmcSentence(48.9999999, 106.99999995, time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC))
	if _, err := nmea.Parse(raw); err != nil {
		t.Fatalf("parse %q: %v", raw, err)
	}
}
