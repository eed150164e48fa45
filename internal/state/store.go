// Package state holds the process-wide record of last-known sensor values and pump state.
//
// A Store is created once at startup and handed to every component that needs it.
// Each method is atomic on its own, so a Get never observes a half-applied update,
// but sequences such as "read soil, decide, write pump" spanning several calls are
// not transactional: two concurrent requests may interleave and the last writer wins.
package state

import (
	"sync"
	"time"

	"github.com/LeonardoBeccarini/smart-irrigation/internal/model/entities"
	"github.com/LeonardoBeccarini/smart-irrigation/pkg/moisture"
)

const (
	defaultBattery   = 100
	defaultThreshold = 40
)

type Store struct {
	mu  sync.RWMutex
	s   entities.SystemState
	now func() time.Time
}

type Option func(*Store)

// WithClock overrides the time source used for lastUpdated.
func WithClock(now func() time.Time) Option {
	return func(st *Store) { st.now = now }
}

// WithThreshold sets the moisture threshold shown to the dashboard.
func WithThreshold(pct int) Option {
	return func(st *Store) {
		if pct > 0 {
			st.s.MoistureThreshold = pct
		}
	}
}

// New returns a Store with defaults: 0% moisture, pump OFF, no override, no data yet.
func New(opts ...Option) *Store {
	st := &Store{
		s: entities.SystemState{
			BatteryLevel:      defaultBattery,
			PumpState:         entities.PumpOff,
			MoistureThreshold: defaultThreshold,
		},
		now: time.Now,
	}
	for _, o := range opts {
		o(st)
	}
	return st
}

// Get returns a copy of the current state.
func (st *Store) Get() entities.SystemState {
	st.mu.RLock()
	defer st.mu.RUnlock()
	out := st.s
	if st.s.LastUpdated != nil {
		t := *st.s.LastUpdated
		out.LastUpdated = &t
	}
	return out
}

// IngestTelemetry normalizes raw and records it. An empty pump leaves the pump state as is.
func (st *Store) IngestTelemetry(raw int, pump entities.PumpState) entities.SystemState {
	pct := moisture.Normalize(raw)
	now := st.now()

	st.mu.Lock()
	st.s.SoilMoistureRaw = raw
	st.s.SoilMoisturePercent = pct
	if pump != "" {
		st.s.PumpState = pump
	}
	st.s.LastUpdated = &now
	st.mu.Unlock()

	return st.Get()
}

// SetBattery records the device battery level, clamped to [0,100].
func (st *Store) SetBattery(level int) {
	if level < 0 {
		level = 0
	}
	if level > 100 {
		level = 100
	}
	st.mu.Lock()
	st.s.BatteryLevel = level
	st.mu.Unlock()
}

// SetPump sets the pump state. manual=true also raises the override flag;
// the automatic path (manual=false) never touches it.
func (st *Store) SetPump(pump entities.PumpState, manual bool) {
	st.mu.Lock()
	st.s.PumpState = pump
	if manual {
		st.s.ManualOverride = true
	}
	st.mu.Unlock()
}

// ClearOverride drops the manual flag. The current pump state is kept.
func (st *Store) ClearOverride() {
	st.mu.Lock()
	st.s.ManualOverride = false
	st.mu.Unlock()
}
