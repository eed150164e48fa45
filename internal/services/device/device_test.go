package device

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeonardoBeccarini/smart-irrigation/internal/model/entities"
	"github.com/LeonardoBeccarini/smart-irrigation/internal/model/messages"
	"github.com/LeonardoBeccarini/smart-irrigation/internal/services/irrigation"
	"github.com/LeonardoBeccarini/smart-irrigation/pkg/dedup"
	"github.com/LeonardoBeccarini/smart-irrigation/pkg/mqttbus"
	"github.com/LeonardoBeccarini/smart-irrigation/pkg/mqttbus/mqtttest"
)

type ingestSpy struct {
	mu  sync.Mutex
	got []messages.Telemetry
}

func (s *ingestSpy) Ingest(_ context.Context, t messages.Telemetry, source string) (*irrigation.DailyPlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, t)
	return &irrigation.DailyPlan{Action: irrigation.ActionSkip}, nil
}

func (s *ingestSpy) calls() []messages.Telemetry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]messages.Telemetry(nil), s.got...)
}

func startService(t *testing.T) (*mqtttest.Client, *ingestSpy) {
	t.Helper()
	fc := mqtttest.NewClient()
	spy := &ingestSpy{}
	svc := NewDeviceService(fc, "sensor/telemetry/+", 1, spy, dedup.New(time.Minute, 100), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = svc.Start(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	require.Eventually(t, func() bool { return fc.Subscribed("sensor/telemetry/+") }, time.Second, 5*time.Millisecond)
	return fc, spy
}

func TestTelemetryIsIngested(t *testing.T) {
	fc, spy := startService(t)

	fc.Deliver("sensor/telemetry/esp32-1", []byte(`{"soil_moisture":2548,"pump_state":"ON"}`))

	got := spy.calls()
	require.Len(t, got, 1)
	assert.Equal(t, "esp32-1", got[0].DeviceID)
	assert.Equal(t, 2548, *got[0].SoilMoisture)
	assert.Equal(t, entities.PumpOn, got[0].PumpState)
}

func TestSteadyReadingsAreAllIngested(t *testing.T) {
	fc, spy := startService(t)

	for i := 0; i < 5; i++ {
		fc.Deliver("sensor/telemetry/esp32-1", []byte(`{"soil_moisture":3000}`))
	}

	assert.Len(t, spy.calls(), 5)
}

func TestRedeliveredTelemetryIsDropped(t *testing.T) {
	fc, spy := startService(t)
	payload := []byte(`{"soil_moisture":3000}`)

	fc.Deliver("sensor/telemetry/esp32-1", payload)
	fc.Redeliver("sensor/telemetry/esp32-1", payload)

	assert.Len(t, spy.calls(), 1)
}

func TestTimestampedTelemetryIsDeduplicated(t *testing.T) {
	fc, spy := startService(t)
	first := []byte(`{"soil_moisture":3000,"timestamp":"2026-07-14T06:30:00Z"}`)

	fc.Deliver("sensor/telemetry/esp32-1", first)
	fc.Deliver("sensor/telemetry/esp32-1", first)
	// same instant from another device is a different reading
	fc.Deliver("sensor/telemetry/esp32-2", first)
	fc.Deliver("sensor/telemetry/esp32-1", []byte(`{"soil_moisture":3000,"timestamp":"2026-07-14T06:31:00Z"}`))

	got := spy.calls()
	require.Len(t, got, 3)
	assert.Equal(t, "esp32-2", got[1].DeviceID)
}

func TestInvalidTelemetryIsIgnored(t *testing.T) {
	fc, spy := startService(t)

	fc.Deliver("sensor/telemetry/esp32-1", []byte(`not json`))
	fc.Deliver("sensor/telemetry/esp32-1", []byte(`{"pump_state":"ON"}`))
	fc.Deliver("sensor/telemetry/esp32-1", []byte(`{"soil_moisture":2000,"pump_state":"MAYBE"}`))

	assert.Empty(t, spy.calls())
}

func TestNotifierPublishesRetainedCommand(t *testing.T) {
	fc := mqtttest.NewClient()
	n := NewNotifier(mqttbus.NewPublisher(fc, time.Second), "device/{device}/command", 1, true, nil)
	at := time.Date(2026, 7, 14, 6, 30, 0, 0, time.UTC)

	require.NoError(t, n.NotifyPump(context.Background(), messages.NewPumpCommand("esp32-1", entities.PumpOn, true, at)))

	pub := fc.Published()
	require.Len(t, pub, 1)
	assert.Equal(t, "device/esp32-1/command", pub[0].Topic)
	assert.Equal(t, byte(1), pub[0].QoS)
	assert.True(t, pub[0].Retained)

	var cmd messages.PumpCommandEvent
	require.NoError(t, json.Unmarshal(pub[0].Payload, &cmd))
	assert.Equal(t, "ON", cmd.Command)
	assert.True(t, cmd.Manual)
	assert.True(t, at.Equal(cmd.Timestamp))
}

func TestDeviceFromTopic(t *testing.T) {
	assert.Equal(t, "esp32-1", deviceFromTopic("sensor/telemetry/esp32-1"))
	assert.Equal(t, "bare", deviceFromTopic("bare"))
}
