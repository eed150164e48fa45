package event

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Probe checks one dependency. Required probes gate readiness; the others only
// degrade the health status.
type Probe struct {
	Name     string
	Required bool
	Check    func() error
}

// MQTTProbe reports whether the broker connection is open.
func MQTTProbe(c mqtt.Client, required bool) Probe {
	return Probe{Name: "mqtt", Required: required, Check: func() error {
		if c == nil || !c.IsConnectionOpen() {
			return errors.New("not connected")
		}
		return nil
	}}
}

// WriterProbe fails while the last Influx write error is younger than minAge.
func WriterProbe(w *Writer, minAge time.Duration, required bool) Probe {
	return Probe{Name: "influx", Required: required, Check: func() error {
		if age := w.LastErrorAge(); age <= minAge {
			return fmt.Errorf("write error %s ago", age.Round(time.Second))
		}
		return nil
	}}
}

type checkResult struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

func run(probes []Probe) (map[string]checkResult, int) {
	out := make(map[string]checkResult, len(probes))
	okCount := 0
	for _, p := range probes {
		if err := p.Check(); err != nil {
			out[p.Name] = checkResult{Error: err.Error()}
			continue
		}
		out[p.Name] = checkResult{OK: true}
		okCount++
	}
	return out, okCount
}

type healthHandler struct{ probes []Probe }

// NewHealthHandler serves /healthz: "ok" when every probe passes, "degraded"
// when some do, "down" when none do. It always answers 200.
func NewHealthHandler(probes ...Probe) http.Handler {
	return &healthHandler{probes: probes}
}

func (h *healthHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	checks, ok := run(h.probes)
	status := "ok"
	switch {
	case ok == len(h.probes):
	case ok > 0:
		status = "degraded"
	default:
		status = "down"
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(struct {
		Status string                 `json:"status"`
		Checks map[string]checkResult `json:"checks"`
	}{status, checks})
}

type readyHandler struct{ probes []Probe }

// NewReadyHandler serves /readyz: 503 unless every required probe passes.
func NewReadyHandler(probes ...Probe) http.Handler {
	return &readyHandler{probes: probes}
}

func (h *readyHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	ready := Ready(h.probes...)
	w.Header().Set("Content-Type", "application/json")
	if !ready {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(struct {
		Ready bool `json:"ready"`
	}{ready})
}

// Ready reports whether every required probe passes.
func Ready(probes ...Probe) bool {
	for _, p := range probes {
		if p.Required && p.Check() != nil {
			return false
		}
	}
	return true
}
