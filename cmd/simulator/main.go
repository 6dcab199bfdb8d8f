package main

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"os"
	"strconv"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type locationMessage struct {
	DeviceID  string  `json:"deviceId"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timestamp string  `json:"timestamp"`
}

type device struct {
	id       string
	lat, lon float64
}

// step moves the device up to ~50m in a random direction.
func (d *device) step() {
	d.lat += (rand.Float64() - 0.5) * 0.0009
	d.lon += (rand.Float64() - 0.5) * 0.0009
}

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()

	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <interval_seconds>\n", os.Args[0])
		os.Exit(1)
	}

	intervalSec, err := strconv.Atoi(os.Args[1])
	if err != nil || intervalSec <= 0 {
		fmt.Fprintf(os.Stderr, "error: interval must be a positive integer\n")
		os.Exit(1)
	}

	broker := "tcp://localhost:1883"
	if v := os.Getenv("MQTT_BROKER"); v != "" {
		broker = v
	}

	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID("owntracker-simulator-" + uuid.NewString())

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		log.Fatal().Err(token.Error()).Msg("mqtt connect")
	}
	defer client.Disconnect(250)

	devices := make([]*device, 5)
	for i := range devices {
		devices[i] = &device{
			id:  fmt.Sprintf("sim-%s", uuid.NewString()[:8]),
			lat: -6.2088 + (rand.Float64()-0.5)*0.1,
			lon: 106.8456 + (rand.Float64()-0.5)*0.1,
		}
	}

	log.Info().Str("broker", broker).Int("interval_s", intervalSec).Msg("publishing simulated locations")

	ticker := time.NewTicker(time.Duration(intervalSec) * time.Second)
	defer ticker.Stop()

	for n := 0; ; n++ {
		<-ticker.C
		d := devices[rand.Intn(len(devices))]
		d.step()
		now := time.Now().UTC()

		var payload []byte
		if n%2 == 0 {
			payload, _ = json.Marshal(locationMessage{
				DeviceID:  d.id,
				Latitude:  d.lat,
				Longitude: d.lon,
				Timestamp: now.Format("2006-01-02T15:04:05.000Z"),
			})
		} else {
			payload = []byte(rmcSentence(d.lat, d.lon, now))
		}

		topic := fmt.Sprintf("owntracker/device/%s/location", d.id)
		token := client.Publish(topic, 1, false, payload)
		token.Wait()
		if err := token.Error(); err != nil {
			log.Error().Err(err).Str("topic", topic).Msg("publish failed")
			continue
		}

		log.Info().Str("topic", topic).Bytes("payload", payload).Msg("published")
	}
}

func rmcSentence(lat, lon float64, t time.Time) string {
	latHemi, lonHemi := "N", "E"
	if lat < 0 {
		latHemi, lat = "S", -lat
	}
	if lon < 0 {
		lonHemi, lon = "W", -lon
	}

	body := fmt.Sprintf("GPRMC,%s,A,%s,%s,%s,%s,0.0,0.0,%s,,",
		t.Format("150405.000"),
		nmeaDegrees(lat, 2), latHemi,
		nmeaDegrees(lon, 3), lonHemi,
		t.Format("020106"),
	)
	return fmt.Sprintf("$%s*%02X", body, nmeaChecksum(body))
}

// nmeaDegrees renders decimal degrees as zero padded (d)ddmm.mmmm. Minutes
// are rounded first so 59.99996 carries into the degrees instead of
// printing as 60.0000.
func nmeaDegrees(v float64, width int) string {
	deg := math.Floor(v)
	minutes := math.Round((v-deg)*60*1e4) / 1e4
	if minutes >= 60 {
		deg++
		minutes -= 60
	}
	return fmt.Sprintf("%0*d%07.4f", width, int(deg), minutes)
}

func nmeaChecksum(body string) byte {
	var c byte
	for i := 0; i < len(body); i++ {
		c ^= body[i]
	}
	return c
}
