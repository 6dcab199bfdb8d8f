package domain

import "errors"

var (
	ErrValidation = errors.New("missing required fields")
	ErrNotFound   = errors.New("device not found")
)

// TimestampLayout is the ISO-8601 form used for server generated timestamps.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

type Location struct {
	Lat       float64 `json:"latitude"`
	Lon       float64 `json:"longitude"`
	Timestamp string  `json:"timestamp"`
}

type DeviceLocation struct {
	DeviceID string   `json:"deviceId"`
	Location Location `json:"location"`
}

type Device struct {
	DeviceID string `json:"deviceId"`
	Samples  int    `json:"samples"`
}

// LocationReport is an inbound sample before validation. Coordinates are
// pointers so an absent field can be told apart from zero.
type LocationReport struct {
	DeviceID  string   `json:"deviceId"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Timestamp string   `json:"timestamp"`
}

type Source string

const (
	SourceHTTP Source = "http"
	SourceMQTT Source = "mqtt"
	SourceTCP  Source = "tcp"
)
