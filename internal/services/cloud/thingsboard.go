// Package cloud talks to the ThingsBoard device cloud. Only the shapes of the
// calls are in place: telemetry reads return a fixed sample and pump updates are
// logged, not sent.
package cloud

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/LeonardoBeccarini/smart-irrigation/internal/metrics"
	"github.com/LeonardoBeccarini/smart-irrigation/internal/model/entities"
	"github.com/LeonardoBeccarini/smart-irrigation/internal/model/messages"
	"github.com/LeonardoBeccarini/smart-irrigation/pkg/fallback"
)

// Reading is the latest telemetry the cloud holds for a device.
type Reading struct {
	SoilMoisture int                `json:"soil_moisture"`
	PumpState    entities.PumpState `json:"pump_state"`
}

var (
	stubReading     = Reading{SoilMoisture: 45, PumpState: entities.PumpOff}
	fallbackReading = Reading{SoilMoisture: 0, PumpState: entities.PumpOff}
)

var errNoDevice = errors.New("thingsboard: device id required")

type ThingsBoard struct {
	baseURL string
	logger  *zap.Logger
}

func NewThingsBoard(baseURL string, logger *zap.Logger) *ThingsBoard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ThingsBoard{baseURL: baseURL, logger: logger.Named("thingsboard")}
}

// FetchTelemetry returns the device's latest reading. Failures degrade to a
// zero reading and are never returned as errors.
func (tb *ThingsBoard) FetchTelemetry(ctx context.Context, deviceID, token string) fallback.Outcome[Reading] {
	r, err := tb.fetch(ctx, deviceID, token)
	if err != nil {
		metrics.UpstreamFallbacks.WithLabelValues("thingsboard").Inc()
		tb.logger.Warn("telemetry fetch failed, using fallback", zap.String("device_id", deviceID), zap.Error(err))
		return fallback.Degraded(fallbackReading, err)
	}
	return fallback.Live(r)
}

func (tb *ThingsBoard) fetch(ctx context.Context, deviceID, _ string) (Reading, error) {
	if err := ctx.Err(); err != nil {
		return Reading{}, err
	}
	if deviceID == "" {
		return Reading{}, errNoDevice
	}
	tb.logger.Debug("fetching telemetry", zap.String("device_id", deviceID), zap.String("base_url", tb.baseURL))
	return stubReading, nil
}

// NotifyPump records the shared-attribute update the cloud would receive.
func (tb *ThingsBoard) NotifyPump(_ context.Context, cmd messages.PumpCommandEvent) error {
	tb.logger.Info("shared attribute update",
		zap.String("device_id", cmd.DeviceID),
		zap.String("command", cmd.Command),
		zap.Bool("manual", cmd.Manual))
	return nil
}
