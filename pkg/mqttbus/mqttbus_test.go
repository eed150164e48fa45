package mqttbus

import (
	"context"
	"errors"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeonardoBeccarini/smart-irrigation/pkg/mqttbus/mqtttest"
)

func TestPublishJSON(t *testing.T) {
	fc := mqtttest.NewClient()
	p := NewPublisher(fc, time.Second)

	require.NoError(t, p.PublishJSON("device/d1/command", 1, true, map[string]string{"command": "ON"}))

	got := fc.Published()
	require.Len(t, got, 1)
	assert.Equal(t, "device/d1/command", got[0].Topic)
	assert.Equal(t, byte(1), got[0].QoS)
	assert.True(t, got[0].Retained)
	assert.JSONEq(t, `{"command":"ON"}`, string(got[0].Payload))
}

func TestPublish_Error(t *testing.T) {
	fc := mqtttest.NewClient()
	fc.PublishErr = errors.New("not connected")

	err := NewPublisher(fc, time.Second).Publish("t", 0, false, []byte("x"))
	assert.ErrorContains(t, err, "not connected")
}

func TestConsume(t *testing.T) {
	fc := mqtttest.NewClient()
	got := make(chan string, 1)
	c := NewConsumer(fc, "sensor/telemetry/+", 1, func(topic string, msg mqtt.Message) error {
		got <- topic + " " + string(msg.Payload())
		return nil
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Consume(ctx) }()

	require.Eventually(t, func() bool { return fc.Subscribed("sensor/telemetry/+") }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, fc.Deliver("sensor/telemetry/esp32", []byte("hi")))
	assert.Equal(t, "sensor/telemetry/esp32 hi", <-got)

	cancel()
	require.NoError(t, <-done)
	assert.False(t, fc.Subscribed("sensor/telemetry/+"))
}

func TestConsume_SubscribeError(t *testing.T) {
	fc := mqtttest.NewClient()
	fc.SubscribeErr = errors.New("denied")
	c := NewConsumer(fc, "x", 0, func(string, mqtt.Message) error { return nil }, nil)

	assert.ErrorContains(t, c.Consume(context.Background()), "denied")
}

func TestMatch(t *testing.T) {
	assert.True(t, mqtttest.Match("sensor/telemetry/+", "sensor/telemetry/a"))
	assert.False(t, mqtttest.Match("sensor/telemetry/+", "sensor/telemetry/a/b"))
	assert.True(t, mqtttest.Match("sensor/#", "sensor/telemetry/a/b"))
	assert.False(t, mqtttest.Match("device/+/command", "device/a/state"))
}
