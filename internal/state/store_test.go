package state

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeonardoBeccarini/smart-irrigation/internal/model/entities"
)

func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }

func TestNew_Defaults(t *testing.T) {
	s := New().Get()
	assert.Equal(t, 0, s.SoilMoisturePercent)
	assert.Equal(t, entities.PumpOff, s.PumpState)
	assert.False(t, s.ManualOverride)
	assert.Nil(t, s.LastUpdated)
	assert.False(t, s.HasData())
	assert.Equal(t, 100, s.BatteryLevel)
	assert.Equal(t, 40, s.MoistureThreshold)
}

func TestIngestTelemetry(t *testing.T) {
	at := time.Date(2025, 12, 29, 10, 0, 0, 0, time.UTC)
	st := New(WithClock(fixedClock(at)))

	got := st.IngestTelemetry(1000, entities.PumpOn)
	assert.Equal(t, 1000, got.SoilMoistureRaw)
	assert.Equal(t, 100, got.SoilMoisturePercent)
	assert.Equal(t, entities.PumpOn, got.PumpState)
	require.NotNil(t, got.LastUpdated)
	assert.True(t, at.Equal(*got.LastUpdated))

	// empty pump status keeps the previous state
	got = st.IngestTelemetry(4095, "")
	assert.Equal(t, 0, got.SoilMoisturePercent)
	assert.Equal(t, entities.PumpOn, got.PumpState)
}

func TestSetPump_OverrideOnlyOnManualPath(t *testing.T) {
	st := New()

	st.SetPump(entities.PumpOn, false)
	s := st.Get()
	assert.Equal(t, entities.PumpOn, s.PumpState)
	assert.False(t, s.ManualOverride)

	st.SetPump(entities.PumpOff, true)
	s = st.Get()
	assert.Equal(t, entities.PumpOff, s.PumpState)
	assert.True(t, s.ManualOverride)

	// automatic update after a manual one leaves the flag raised
	st.SetPump(entities.PumpOn, false)
	assert.True(t, st.Get().ManualOverride)

	st.ClearOverride()
	s = st.Get()
	assert.False(t, s.ManualOverride)
	assert.Equal(t, entities.PumpOn, s.PumpState)
}

func TestGet_ReturnsCopy(t *testing.T) {
	st := New()
	st.IngestTelemetry(2000, "")
	snap := st.Get()
	*snap.LastUpdated = time.Time{}
	assert.False(t, st.Get().LastUpdated.IsZero())
}

func TestSetBattery_Clamped(t *testing.T) {
	st := New()
	st.SetBattery(150)
	assert.Equal(t, 100, st.Get().BatteryLevel)
	st.SetBattery(-3)
	assert.Equal(t, 0, st.Get().BatteryLevel)
}

func TestStore_ConcurrentWritersLastOneWins(t *testing.T) {
	st := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				st.SetPump(entities.PumpOn, false)
			} else {
				st.SetPump(entities.PumpOff, false)
			}
			_ = st.Get()
		}(i)
	}
	wg.Wait()
	p := st.Get().PumpState
	assert.Contains(t, []entities.PumpState{entities.PumpOn, entities.PumpOff}, p)
}
