package config

import (
	"strings"
	"testing"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMQTT_Disabled(t *testing.T) {
	client, err := NewMQTT(&Config{}, nil)
	require.NoError(t, err)
	assert.Nil(t, client)
}

func TestMQTTOptions_ResubscribeHook(t *testing.T) {
	calls := 0
	opts := mqttOptions(&Config{MQTTBroker: "tcp://broker:1883", MQTTClientID: "owntracker"}, func(mqtt.Client) { calls++ })

	assert.True(t, opts.AutoReconnect)
	assert.True(t, opts.CleanSession)
	assert.True(t, strings.HasPrefix(opts.ClientID, "owntracker-"))
	require.NotNil(t, opts.OnConnect)

	// paho calls the same handler after each automatic reconnect.
	opts.OnConnect(nil)
	opts.OnConnect(nil)
	assert.Equal(t, 2, calls)
}

func TestMQTTOptions_NoHook(t *testing.T) {
	opts := mqttOptions(&Config{MQTTBroker: "tcp://broker:1883", MQTTClientID: "owntracker"}, nil)
	assert.Nil(t, opts.OnConnect)
}
