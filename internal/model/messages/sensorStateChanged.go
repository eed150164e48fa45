package messages

import (
	"time"

	"github.com/LeonardoBeccarini/smart-irrigation/internal/model/entities"
)

// CommandAuto is sent to the device when the manual override is released.
const CommandAuto = "AUTO"

// PumpCommandEvent is published to the device layer whenever the pump command changes.
type PumpCommandEvent struct {
	DeviceID  string    `json:"device_id"`
	Command   string    `json:"command"` // ON | OFF | AUTO
	Manual    bool      `json:"manual"`
	Timestamp time.Time `json:"timestamp"`
}

// NewPumpCommand builds an ON/OFF command event.
func NewPumpCommand(deviceID string, pump entities.PumpState, manual bool, at time.Time) PumpCommandEvent {
	return PumpCommandEvent{DeviceID: deviceID, Command: string(pump), Manual: manual, Timestamp: at.UTC()}
}
