package event

import (
	"context"
	"sync"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"go.uber.org/zap"

	"github.com/LeonardoBeccarini/smart-irrigation/internal/model/entities"
	"github.com/LeonardoBeccarini/smart-irrigation/internal/model/messages"
)

// PointWriter is the part of influx api.WriteAPI the Writer uses.
type PointWriter interface {
	WritePoint(point *write.Point)
	Flush()
	Errors() <-chan error
}

// Writer records events through the non-blocking Influx write API and keeps the
// time of the last asynchronous write error for health reporting.
type Writer struct {
	api    PointWriter
	logger *zap.Logger
	now    func() time.Time

	mu      sync.RWMutex
	lastErr time.Time
	counts  map[string]int64
}

func NewWriter(w PointWriter, logger *zap.Logger) *Writer {
	if logger == nil {
		logger = zap.NewNop()
	}
	ww := &Writer{
		api:     w,
		logger:  logger.Named("influx"),
		now:     time.Now,
		lastErr: time.Now().Add(-24 * time.Hour),
		counts:  make(map[string]int64),
	}
	go ww.watchErrors()
	return ww
}

func (w *Writer) watchErrors() {
	for err := range w.api.Errors() {
		if err == nil {
			continue
		}
		w.mu.Lock()
		w.lastErr = w.now()
		w.mu.Unlock()
		w.logger.Warn("write failed", zap.Error(err))
	}
}

func (w *Writer) RecordTelemetry(_ context.Context, deviceID, source string, st entities.SystemState) {
	w.write(FromTelemetry(deviceID, source, st))
}

func (w *Writer) RecordDecision(_ context.Context, d messages.IrrigationDecisionEvent) {
	w.write(FromDecision(d))
}

func (w *Writer) RecordCommand(_ context.Context, c messages.PumpCommandEvent) {
	w.write(FromCommand(c))
}

func (w *Writer) write(evt CommonEvent) {
	w.api.WritePoint(EventToPoint(evt))
	w.mu.Lock()
	w.counts[evt.EventType]++
	w.mu.Unlock()
}

// LastErrorAge is the time since the last failed write.
func (w *Writer) LastErrorAge() time.Duration {
	if w == nil {
		return 99999 * time.Hour
	}
	w.mu.RLock()
	t := w.lastErr
	w.mu.RUnlock()
	return w.now().Sub(t)
}

// Count is the number of events of a type written so far.
func (w *Writer) Count(eventType string) int64 {
	if w == nil {
		return 0
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.counts[eventType]
}

// Flush pushes buffered points; call it before closing the Influx client.
func (w *Writer) Flush() {
	w.api.Flush()
}

// Nop is the recorder used when no InfluxDB is configured.
type Nop struct{}

func (Nop) RecordTelemetry(context.Context, string, string, entities.SystemState) {}
func (Nop) RecordDecision(context.Context, messages.IrrigationDecisionEvent)      {}
func (Nop) RecordCommand(context.Context, messages.PumpCommandEvent)              {}
