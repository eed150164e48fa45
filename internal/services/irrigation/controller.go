package irrigation

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/LeonardoBeccarini/smart-irrigation/internal/metrics"
	"github.com/LeonardoBeccarini/smart-irrigation/internal/model/entities"
	"github.com/LeonardoBeccarini/smart-irrigation/internal/model/messages"
	"github.com/LeonardoBeccarini/smart-irrigation/internal/services/weather"
	"github.com/LeonardoBeccarini/smart-irrigation/internal/state"
	"github.com/LeonardoBeccarini/smart-irrigation/pkg/fallback"
)

const (
	// soil% assumed before the first reading arrives
	noDataSoilPercent = 50

	defaultDeviceID       = "field-1"
	defaultWeatherTimeout = 5 * time.Second
)

// WeatherLookup returns current conditions; it must always yield a usable value.
type WeatherLookup interface {
	Current(ctx context.Context, lat, lon float64) fallback.Outcome[weather.Weather]
}

// DeviceNotifier forwards pump commands to the hardware side.
type DeviceNotifier interface {
	NotifyPump(ctx context.Context, cmd messages.PumpCommandEvent) error
}

// Recorder receives an audit trail of what the controller saw and did.
type Recorder interface {
	RecordTelemetry(ctx context.Context, deviceID, source string, st entities.SystemState)
	RecordDecision(ctx context.Context, evt messages.IrrigationDecisionEvent)
	RecordCommand(ctx context.Context, cmd messages.PumpCommandEvent)
}

// Notifiers fans a command out to every notifier, returning the joined errors.
type Notifiers []DeviceNotifier

func (ns Notifiers) NotifyPump(ctx context.Context, cmd messages.PumpCommandEvent) error {
	var errs []error
	for _, n := range ns {
		if err := n.NotifyPump(ctx, cmd); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Controller applies the decision engine to live data and keeps the store,
// the device layer and the event sink in step.
type Controller struct {
	store    *state.Store
	weather  WeatherLookup
	notifier DeviceNotifier
	recorder Recorder
	policy   entities.IrrigationPolicy
	logger   *zap.Logger

	deviceID       string
	weatherTimeout time.Duration
	now            func() time.Time
}

type ControllerOption func(*Controller)

func WithDeviceID(id string) ControllerOption {
	return func(c *Controller) {
		if id != "" {
			c.deviceID = id
		}
	}
}

func WithWeatherTimeout(d time.Duration) ControllerOption {
	return func(c *Controller) {
		if d > 0 {
			c.weatherTimeout = d
		}
	}
}

func WithControllerClock(now func() time.Time) ControllerOption {
	return func(c *Controller) { c.now = now }
}

func NewController(
	store *state.Store,
	w WeatherLookup,
	notifier DeviceNotifier,
	recorder Recorder,
	policy entities.IrrigationPolicy,
	logger *zap.Logger,
	opts ...ControllerOption,
) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = Notifiers{}
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	c := &Controller{
		store:          store,
		weather:        w,
		notifier:       notifier,
		recorder:       recorder,
		policy:         policy,
		logger:         logger.Named("controller"),
		deviceID:       defaultDeviceID,
		weatherTimeout: defaultWeatherTimeout,
		now:            time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Policy returns the crop and field configuration used for live decisions.
func (c *Controller) Policy() entities.IrrigationPolicy { return c.policy }

// DeviceID is the device live commands are addressed to.
func (c *Controller) DeviceID() string { return c.deviceID }

// Ingest records a telemetry reading and re-evaluates the plan. The plan is nil
// while a manual override is active.
func (c *Controller) Ingest(ctx context.Context, t messages.Telemetry, source string) (*DailyPlan, error) {
	if t.SoilMoisture == nil {
		return nil, errors.New("telemetry without soil_moisture")
	}
	if t.Battery != nil {
		c.store.SetBattery(*t.Battery)
	}
	st := c.store.IngestTelemetry(*t.SoilMoisture, t.PumpState)

	deviceID := t.DeviceID
	if deviceID == "" {
		deviceID = c.deviceID
	}
	metrics.TelemetryIngested.WithLabelValues(source).Inc()
	metrics.SoilMoisturePercent.Set(float64(st.SoilMoisturePercent))
	c.recorder.RecordTelemetry(ctx, deviceID, source, st)
	c.logger.Debug("telemetry ingested",
		zap.String("device_id", deviceID),
		zap.String("source", source),
		zap.Int("raw", st.SoilMoistureRaw),
		zap.Int("percent", st.SoilMoisturePercent))

	return c.RunOnce(ctx)
}

// RunOnce evaluates the current state. It returns (nil, nil) without touching the
// pump when a manual override is active.
func (c *Controller) RunOnce(ctx context.Context) (*DailyPlan, error) {
	st := c.store.Get()
	if st.ManualOverride {
		metrics.DecisionsSkippedOverride.Inc()
		c.logger.Info("manual override active, skipping automatic decision",
			zap.String("pump", string(st.PumpState)))
		return nil, nil
	}

	soil := noDataSoilPercent
	if st.HasData() {
		soil = st.SoilMoisturePercent
	}

	wctx, cancel := context.WithTimeout(ctx, c.weatherTimeout)
	wo := c.weather.Current(wctx, c.policy.Latitude, c.policy.Longitude)
	cancel()

	plan := Decide(Inputs{
		SoilPercent:     soil,
		RainProbability: wo.Value.RainProbability,
		IsRaining:       wo.Value.IsRaining,
		Temperature:     wo.Value.Temperature,
		CropType:        c.policy.CropType,
		GrowthStage:     c.policy.Stage,
		FieldSize:       c.policy.FieldSizeHa,
		WeatherSource:   string(wo.Source),
		Now:             c.now(),
	})

	rec := plan.PumpStateRecommendation
	c.store.SetPump(rec, false)
	c.setPumpGauge(rec)

	metrics.Decisions.WithLabelValues(string(plan.Action), string(rec)).Inc()
	metrics.RecommendedLiters.Observe(plan.TotalAmountLiters)

	evt := messages.IrrigationDecisionEvent{
		DecisionID:    uuid.NewString(),
		DeviceID:      c.deviceID,
		Crop:          c.policy.CropType,
		Stage:         string(c.policy.Stage),
		SoilPct:       soil,
		RainPct:       wo.Value.RainProbability,
		Action:        string(plan.Action),
		Pump:          string(rec),
		RequiredMM:    plan.RequiredMM,
		TotalLiters:   plan.TotalAmountLiters,
		WeatherSource: string(wo.Source),
		Timestamp:     c.now().UTC(),
	}
	c.recorder.RecordDecision(ctx, evt)
	c.logger.Info("decision",
		zap.String("decision_id", evt.DecisionID),
		zap.String("action", evt.Action),
		zap.String("pump", evt.Pump),
		zap.Int("soil_pct", soil),
		zap.Int("rain_pct", evt.RainPct),
		zap.Float64("required_mm", plan.RequiredMM),
		zap.String("weather_source", evt.WeatherSource))

	if rec != st.PumpState {
		// the decision already stands; notify logs a failed delivery
		_ = c.notify(ctx, messages.NewPumpCommand(c.deviceID, rec, false, c.now()))
	}
	return &plan, nil
}

// SetPump applies a pump state. A manual change raises the override and is
// forwarded to the device layer.
func (c *Controller) SetPump(ctx context.Context, pump entities.PumpState, manual bool) error {
	c.store.SetPump(pump, manual)
	c.setPumpGauge(pump)
	if !manual {
		return nil
	}
	c.logger.Info("manual pump command", zap.String("pump", string(pump)))
	return c.notify(ctx, messages.NewPumpCommand(c.deviceID, pump, true, c.now()))
}

// ClearOverride hands control back to the engine. The pump keeps its state
// until the next evaluation.
func (c *Controller) ClearOverride(ctx context.Context) error {
	c.store.ClearOverride()
	c.logger.Info("manual override cleared")
	return c.notify(ctx, messages.PumpCommandEvent{
		DeviceID:  c.deviceID,
		Command:   messages.CommandAuto,
		Manual:    false,
		Timestamp: c.now().UTC(),
	})
}

func (c *Controller) notify(ctx context.Context, cmd messages.PumpCommandEvent) error {
	c.recorder.RecordCommand(ctx, cmd)
	if err := c.notifier.NotifyPump(ctx, cmd); err != nil {
		c.logger.Warn("pump command not delivered",
			zap.String("device_id", cmd.DeviceID),
			zap.String("command", cmd.Command),
			zap.Error(err))
		return err
	}
	return nil
}

func (c *Controller) setPumpGauge(p entities.PumpState) {
	if p == entities.PumpOn {
		metrics.PumpOn.Set(1)
		return
	}
	metrics.PumpOn.Set(0)
}

type nopRecorder struct{}

func (nopRecorder) RecordTelemetry(context.Context, string, string, entities.SystemState) {}
func (nopRecorder) RecordDecision(context.Context, messages.IrrigationDecisionEvent)      {}
func (nopRecorder) RecordCommand(context.Context, messages.PumpCommandEvent)              {}
