package config

import (
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

// NewMQTT connects to the broker, or returns nil when MQTT_BROKER is unset.
// The client id gets a random suffix so replicas never evict each other.
// onConnect runs after the first connect and after every automatic
// reconnect; sessions are clean, so subscriptions belong in it.
func NewMQTT(cfg *Config, onConnect mqtt.OnConnectHandler) (mqtt.Client, error) {
	if cfg.MQTTBroker == "" {
		return nil, nil
	}

	client := mqtt.NewClient(mqttOptions(cfg, onConnect))
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect: %w", token.Error())
	}
	return client, nil
}

func mqttOptions(cfg *Config, onConnect mqtt.OnConnectHandler) *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientID + "-" + uuid.NewString()).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectTimeout(10 * time.Second)
	if onConnect != nil {
		opts.SetOnConnectHandler(onConnect)
	}
	return opts
}
