package cloud

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/LeonardoBeccarini/smart-irrigation/internal/model/entities"
	"github.com/LeonardoBeccarini/smart-irrigation/internal/model/messages"
)

func TestFetchTelemetry(t *testing.T) {
	tb := NewThingsBoard("https://thingsboard.example", nil)

	out := tb.FetchTelemetry(context.Background(), "field-1", "tok")

	assert.False(t, out.IsDegraded())
	assert.Equal(t, Reading{SoilMoisture: 45, PumpState: entities.PumpOff}, out.Value)
}

func TestFetchTelemetry_Fallback(t *testing.T) {
	tb := NewThingsBoard("", nil)

	out := tb.FetchTelemetry(context.Background(), "", "")
	assert.True(t, out.IsDegraded())
	assert.Equal(t, Reading{SoilMoisture: 0, PumpState: entities.PumpOff}, out.Value)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out = tb.FetchTelemetry(ctx, "field-1", "tok")
	assert.ErrorIs(t, out.Err, context.Canceled)
}

func TestNotifyPump(t *testing.T) {
	tb := NewThingsBoard("", nil)
	cmd := messages.NewPumpCommand("field-1", entities.PumpOn, true, time.Now())
	assert.NoError(t, tb.NotifyPump(context.Background(), cmd))
}
