package messages

import "time"

// IrrigationDecisionEvent records WHY/WHAT the controller decided on live data.
type IrrigationDecisionEvent struct {
	DecisionID    string    `json:"decision_id"`
	DeviceID      string    `json:"device_id"`
	Crop          string    `json:"crop"`
	Stage         string    `json:"stage"`
	SoilPct       int       `json:"soil_pct"`
	RainPct       int       `json:"rain_pct"`
	Action        string    `json:"action"`
	Pump          string    `json:"pump"`
	RequiredMM    float64   `json:"required_mm"`
	TotalLiters   float64   `json:"total_liters"`
	WeatherSource string    `json:"weather_source"`
	Timestamp     time.Time `json:"timestamp"`
}
