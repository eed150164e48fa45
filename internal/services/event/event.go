// Package event turns what the gateway sees and does into system events and
// stores them in InfluxDB.
package event

import (
	"time"

	"github.com/LeonardoBeccarini/smart-irrigation/internal/model/entities"
	"github.com/LeonardoBeccarini/smart-irrigation/internal/model/messages"
)

const (
	TypeTelemetry = "sensor.telemetry"
	TypeDecision  = "irrigation.decision"
	TypeCommand   = "device.command"

	sourceController = "irrigation-controller"
	sourceDevice     = "device-bridge"
)

type CommonEvent struct {
	EventType     string
	SourceService string
	DeviceID      string
	Severity      string // info|warning|error
	Fields        map[string]interface{}
	Timestamp     time.Time
}

func FromTelemetry(deviceID, source string, st entities.SystemState) CommonEvent {
	ts := time.Now().UTC()
	if st.LastUpdated != nil {
		ts = st.LastUpdated.UTC()
	}
	return CommonEvent{
		EventType:     TypeTelemetry,
		SourceService: sourceDevice,
		DeviceID:      deviceID,
		Severity:      "info",
		Fields: map[string]interface{}{
			"raw":     st.SoilMoistureRaw,
			"percent": st.SoilMoisturePercent,
			"battery": st.BatteryLevel,
			"pump":    string(st.PumpState),
			"via":     source,
		},
		Timestamp: ts,
	}
}

func FromDecision(d messages.IrrigationDecisionEvent) CommonEvent {
	sev := "info"
	if d.WeatherSource != "live" {
		sev = "warning"
	}
	return CommonEvent{
		EventType:     TypeDecision,
		SourceService: sourceController,
		DeviceID:      d.DeviceID,
		Severity:      sev,
		Fields: map[string]interface{}{
			"decision_id":    d.DecisionID,
			"crop":           d.Crop,
			"stage":          d.Stage,
			"soil_pct":       d.SoilPct,
			"rain_pct":       d.RainPct,
			"action":         d.Action,
			"pump":           d.Pump,
			"required_mm":    d.RequiredMM,
			"total_liters":   d.TotalLiters,
			"weather_source": d.WeatherSource,
		},
		Timestamp: d.Timestamp,
	}
}

func FromCommand(c messages.PumpCommandEvent) CommonEvent {
	return CommonEvent{
		EventType:     TypeCommand,
		SourceService: sourceController,
		DeviceID:      c.DeviceID,
		Severity:      "info",
		Fields: map[string]interface{}{
			"command": c.Command,
			"manual":  c.Manual,
		},
		Timestamp: c.Timestamp,
	}
}
