package entities

import "time"

// SystemState is the last-known picture of the field: sensor values and pump state.
type SystemState struct {
	SoilMoistureRaw     int        `json:"soilMoistureRaw"`
	SoilMoisturePercent int        `json:"soilMoisturePercent"`
	BatteryLevel        int        `json:"batteryLevel"`
	LastUpdated         *time.Time `json:"lastUpdated"` // nil until the first reading arrives
	PumpState           PumpState  `json:"pumpState"`
	ManualOverride      bool       `json:"manualOverride"`
	MoistureThreshold   int        `json:"moistureThreshold"`
}

// HasData reports whether at least one telemetry reading was received.
func (s SystemState) HasData() bool { return s.LastUpdated != nil }
