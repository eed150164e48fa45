package messages

import (
	"time"

	"github.com/LeonardoBeccarini/smart-irrigation/internal/model/entities"
)

// Telemetry is what a device pushes: the raw ADC soil reading and, optionally, its pump state.
// SoilMoisture is a pointer so a missing field can be told apart from a zero reading.
type Telemetry struct {
	DeviceID     string             `json:"device_id,omitempty"`
	SoilMoisture *int               `json:"soil_moisture" validate:"required"`
	PumpState    entities.PumpState `json:"pump_state,omitempty" validate:"omitempty,oneof=ON OFF"`
	Battery      *int               `json:"battery,omitempty" validate:"omitempty,min=0,max=100"`
	Timestamp    time.Time          `json:"timestamp,omitempty"`
}
