// Package sensor_simulator is a virtual field device: a soil probe that dries
// out over time and a pump that waters it, driven by the gateway's commands.
package sensor_simulator

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/LeonardoBeccarini/smart-irrigation/internal/model/entities"
	"github.com/LeonardoBeccarini/smart-irrigation/internal/model/messages"
	"github.com/LeonardoBeccarini/smart-irrigation/pkg/moisture"
)

type SensorSimulator struct {
	mu        sync.Mutex
	deviceID  string
	pump      entities.PumpState
	generator *DataGenerator
	transport Transport
	logger    *zap.Logger
	now       func() time.Time
}

func NewSensorSimulator(deviceID string, gen *DataGenerator, tr Transport, logger *zap.Logger) *SensorSimulator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SensorSimulator{
		deviceID:  deviceID,
		pump:      entities.PumpOff,
		generator: gen,
		transport: tr,
		logger:    logger.Named("sensor").With(zap.String("device_id", deviceID)),
		now:       time.Now,
	}
}

func (s *SensorSimulator) Pump() entities.PumpState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pump
}

// Tick runs one device cycle: update moisture, upload, then follow the command.
// A failed upload does not prevent the command check.
func (s *SensorSimulator) Tick(ctx context.Context) error {
	pump := s.Pump()
	pct := s.generator.Next(pump)
	raw := moisture.Raw(pct)

	var errs []error
	err := s.transport.Upload(ctx, messages.Telemetry{
		DeviceID:     s.deviceID,
		SoilMoisture: &raw,
		PumpState:    pump,
		Timestamp:    s.now().UTC(),
	})
	if err != nil {
		errs = append(errs, err)
	} else {
		s.logger.Debug("telemetry sent", zap.Int("moisture", pct), zap.Int("raw", raw), zap.String("pump", string(pump)))
	}

	cmd, err := s.transport.Command(ctx)
	if err != nil {
		errs = append(errs, err)
	} else if cmd != "" && cmd != pump {
		s.mu.Lock()
		s.pump = cmd
		s.mu.Unlock()
		s.logger.Info("pump command received", zap.String("from", string(pump)), zap.String("to", string(cmd)))
	}
	return errors.Join(errs...)
}

// Start ticks every interval until ctx is done.
func (s *SensorSimulator) Start(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		if err := s.Tick(ctx); err != nil {
			s.logger.Warn("device cycle failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}
