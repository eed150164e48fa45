// Package poller periodically pulls device telemetry from the cloud and feeds
// it to the controller.
package poller

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/LeonardoBeccarini/smart-irrigation/internal/model/messages"
	"github.com/LeonardoBeccarini/smart-irrigation/internal/services/cloud"
	"github.com/LeonardoBeccarini/smart-irrigation/internal/services/irrigation"
	"github.com/LeonardoBeccarini/smart-irrigation/pkg/fallback"
)

const telemetrySource = "thingsboard"

type TelemetrySource interface {
	FetchTelemetry(ctx context.Context, deviceID, token string) fallback.Outcome[cloud.Reading]
}

type Ingester interface {
	Ingest(ctx context.Context, t messages.Telemetry, source string) (*irrigation.DailyPlan, error)
}

type Poller struct {
	source   TelemetrySource
	ingester Ingester
	deviceID string
	token    string
	interval time.Duration
	logger   *zap.Logger
}

func New(source TelemetrySource, ingester Ingester, deviceID, token string, interval time.Duration, logger *zap.Logger) *Poller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{
		source:   source,
		ingester: ingester,
		deviceID: deviceID,
		token:    token,
		interval: interval,
		logger:   logger.Named("poller"),
	}
}

// Enabled is false when the interval is zero.
func (p *Poller) Enabled() bool { return p.interval > 0 }

// Start syncs once immediately and then every interval until ctx is done.
// It returns at once when the poller is disabled.
func (p *Poller) Start(ctx context.Context) error {
	if !p.Enabled() {
		p.logger.Info("cloud sync disabled")
		return nil
	}
	p.logger.Info("cloud sync started", zap.Duration("interval", p.interval))

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.SyncOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			p.SyncOnce(ctx)
		}
	}
}

// SyncOnce fetches and ingests one reading. Degraded readings are not ingested:
// a zero fallback would look like bone-dry soil.
func (p *Poller) SyncOnce(ctx context.Context) {
	out := p.source.FetchTelemetry(ctx, p.deviceID, p.token)
	if out.IsDegraded() {
		p.logger.Warn("cloud telemetry unavailable, keeping last state", zap.Error(out.Err))
		return
	}
	raw := out.Value.SoilMoisture
	t := messages.Telemetry{
		DeviceID:     p.deviceID,
		SoilMoisture: &raw,
		PumpState:    out.Value.PumpState,
		Timestamp:    time.Now().UTC(),
	}
	if _, err := p.ingester.Ingest(ctx, t, telemetrySource); err != nil {
		p.logger.Warn("ingest cloud telemetry failed", zap.Error(err))
	}
}
