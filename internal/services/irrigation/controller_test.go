package irrigation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/LeonardoBeccarini/smart-irrigation/internal/model/entities"
	"github.com/LeonardoBeccarini/smart-irrigation/internal/model/messages"
	"github.com/LeonardoBeccarini/smart-irrigation/internal/services/weather"
	"github.com/LeonardoBeccarini/smart-irrigation/internal/state"
	"github.com/LeonardoBeccarini/smart-irrigation/pkg/fallback"
)

type mockWeather struct{ mock.Mock }

func (m *mockWeather) Current(ctx context.Context, lat, lon float64) fallback.Outcome[weather.Weather] {
	args := m.Called(lat, lon)
	return args.Get(0).(fallback.Outcome[weather.Weather])
}

type mockNotifier struct{ mock.Mock }

func (m *mockNotifier) NotifyPump(ctx context.Context, cmd messages.PumpCommandEvent) error {
	args := m.Called(cmd.Command, cmd.Manual)
	return args.Error(0)
}

type recorderSpy struct {
	telemetry int
	decisions []messages.IrrigationDecisionEvent
	commands  []messages.PumpCommandEvent
}

func (r *recorderSpy) RecordTelemetry(context.Context, string, string, entities.SystemState) {
	r.telemetry++
}

func (r *recorderSpy) RecordDecision(_ context.Context, evt messages.IrrigationDecisionEvent) {
	r.decisions = append(r.decisions, evt)
}

func (r *recorderSpy) RecordCommand(_ context.Context, cmd messages.PumpCommandEvent) {
	r.commands = append(r.commands, cmd)
}

var clearSky = fallback.Live(weather.Weather{Temperature: 30, RainProbability: 0})

func newTestController(t *testing.T, w *mockWeather, n *mockNotifier) (*Controller, *state.Store, *recorderSpy) {
	t.Helper()
	clock := func() time.Time { return fixedNow }
	st := state.New(state.WithClock(clock))
	rec := &recorderSpy{}
	c := NewController(st, w, n, rec, entities.DefaultPolicy(), nil,
		WithDeviceID("esp32-1"), WithControllerClock(clock))
	return c, st, rec
}

func soilRaw(v int) *int { return &v }

func TestRunOnce_NoDataUsesFiftyPercent(t *testing.T) {
	w := &mockWeather{}
	w.On("Current", 28.61, 77.20).Return(clearSky)
	n := &mockNotifier{}
	n.On("NotifyPump", "ON", false).Return(nil)
	c, st, rec := newTestController(t, w, n)

	plan, err := c.RunOnce(context.Background())

	require.NoError(t, err)
	require.NotNil(t, plan)
	assert.Equal(t, "50% Moisture", plan.SoilStatus)
	// rice vegetative at 50%: 7.15 * 0.6 = 4.29mm
	assert.Equal(t, ActionIrrigate, plan.Action)
	assert.Equal(t, entities.PumpOn, st.Get().PumpState)
	assert.False(t, st.Get().ManualOverride)

	require.Len(t, rec.decisions, 1)
	assert.Equal(t, 50, rec.decisions[0].SoilPct)
	assert.Equal(t, "live", rec.decisions[0].WeatherSource)
	assert.NotEmpty(t, rec.decisions[0].DecisionID)
	n.AssertExpectations(t)
}

func TestRunOnce_PumpChangeIsNotified(t *testing.T) {
	w := &mockWeather{}
	w.On("Current", mock.Anything, mock.Anything).Return(clearSky)
	n := &mockNotifier{}
	n.On("NotifyPump", "ON", false).Return(nil).Once()
	c, _, rec := newTestController(t, w, n)

	_, err := c.Ingest(context.Background(), messages.Telemetry{SoilMoisture: soilRaw(3800)}, "http")
	require.NoError(t, err)

	n.AssertExpectations(t)
	assert.Equal(t, 1, rec.telemetry)
	require.Len(t, rec.commands, 1)
	assert.Equal(t, "esp32-1", rec.commands[0].DeviceID)

	// same recommendation again: no second command
	_, err = c.Ingest(context.Background(), messages.Telemetry{SoilMoisture: soilRaw(3800)}, "http")
	require.NoError(t, err)
	n.AssertNumberOfCalls(t, "NotifyPump", 1)
}

func TestIngest_UpdatesStoreAndDecides(t *testing.T) {
	w := &mockWeather{}
	w.On("Current", mock.Anything, mock.Anything).Return(fallback.Degraded(weather.Fallback, errors.New("down")))
	n := &mockNotifier{}
	c, st, rec := newTestController(t, w, n)

	battery := 80
	plan, err := c.Ingest(context.Background(), messages.Telemetry{
		SoilMoisture: soilRaw(1500),
		PumpState:    entities.PumpOff,
		Battery:      &battery,
	}, "mqtt")

	require.NoError(t, err)
	require.NotNil(t, plan)
	got := st.Get()
	assert.Equal(t, 1500, got.SoilMoistureRaw)
	assert.Equal(t, 84, got.SoilMoisturePercent)
	assert.Equal(t, 80, got.BatteryLevel)
	assert.Equal(t, ActionSkip, plan.Action)
	assert.Equal(t, "fallback", plan.WeatherSource)
	assert.Equal(t, "fallback", rec.decisions[0].WeatherSource)
}

func TestIngest_MissingSoil(t *testing.T) {
	c, _, _ := newTestController(t, &mockWeather{}, &mockNotifier{})
	_, err := c.Ingest(context.Background(), messages.Telemetry{}, "http")
	assert.Error(t, err)
}

func TestRunOnce_ManualOverrideSkipsEngine(t *testing.T) {
	w := &mockWeather{}
	n := &mockNotifier{}
	n.On("NotifyPump", "OFF", true).Return(nil)
	c, st, rec := newTestController(t, w, n)

	require.NoError(t, c.SetPump(context.Background(), entities.PumpOff, true))
	st.IngestTelemetry(3900, "")

	plan, err := c.RunOnce(context.Background())

	assert.NoError(t, err)
	assert.Nil(t, plan)
	assert.Equal(t, entities.PumpOff, st.Get().PumpState)
	assert.Empty(t, rec.decisions)
	w.AssertNotCalled(t, "Current", mock.Anything, mock.Anything)
}

func TestClearOverride_KeepsPumpAndSendsAuto(t *testing.T) {
	w := &mockWeather{}
	n := &mockNotifier{}
	n.On("NotifyPump", "ON", true).Return(nil)
	n.On("NotifyPump", "AUTO", false).Return(nil)
	c, st, _ := newTestController(t, w, n)

	require.NoError(t, c.SetPump(context.Background(), entities.PumpOn, true))
	assert.True(t, st.Get().ManualOverride)

	require.NoError(t, c.ClearOverride(context.Background()))

	got := st.Get()
	assert.False(t, got.ManualOverride)
	assert.Equal(t, entities.PumpOn, got.PumpState)
	n.AssertExpectations(t)
}

func TestSetPump_AutomaticDoesNotNotify(t *testing.T) {
	n := &mockNotifier{}
	c, st, _ := newTestController(t, &mockWeather{}, n)

	require.NoError(t, c.SetPump(context.Background(), entities.PumpOn, false))

	assert.Equal(t, entities.PumpOn, st.Get().PumpState)
	assert.False(t, st.Get().ManualOverride)
	n.AssertNotCalled(t, "NotifyPump", mock.Anything, mock.Anything)
}

func TestIngest_UndeliveredCommandStillReturnsPlan(t *testing.T) {
	w := &mockWeather{}
	w.On("Current", mock.Anything, mock.Anything).Return(clearSky)
	n := &mockNotifier{}
	n.On("NotifyPump", "ON", false).Return(errors.New("broker down"))
	c, st, rec := newTestController(t, w, n)

	plan, err := c.Ingest(context.Background(), messages.Telemetry{SoilMoisture: soilRaw(3800)}, "http")

	require.NoError(t, err)
	require.NotNil(t, plan)
	assert.Equal(t, ActionIrrigate, plan.Action)
	assert.Equal(t, entities.PumpOn, st.Get().PumpState)
	require.Len(t, rec.commands, 1)
	n.AssertExpectations(t)
}

func TestSetPump_NotifierErrorIsReturned(t *testing.T) {
	n := &mockNotifier{}
	n.On("NotifyPump", "ON", true).Return(errors.New("broker down"))
	c, st, _ := newTestController(t, &mockWeather{}, n)

	err := c.SetPump(context.Background(), entities.PumpOn, true)

	assert.EqualError(t, err, "broker down")
	// the store is still the source of truth for the dashboard
	assert.Equal(t, entities.PumpOn, st.Get().PumpState)
}

func TestNotifiers_JoinsErrors(t *testing.T) {
	ok := &mockNotifier{}
	ok.On("NotifyPump", "ON", true).Return(nil)
	bad := &mockNotifier{}
	bad.On("NotifyPump", "ON", true).Return(errors.New("boom"))

	err := Notifiers{ok, bad}.NotifyPump(context.Background(),
		messages.NewPumpCommand("d", entities.PumpOn, true, fixedNow))

	assert.ErrorContains(t, err, "boom")
	ok.AssertExpectations(t)
	bad.AssertExpectations(t)
}
