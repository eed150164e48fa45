package entities

import "strings"

// PumpState indicates whether the irrigation pump is on or off.
type PumpState string

const (
	PumpOff PumpState = "OFF"
	PumpOn  PumpState = "ON"
)

// ParsePumpState accepts "on"/"off" in any case. Anything else is rejected.
func ParsePumpState(s string) (PumpState, bool) {
	switch PumpState(strings.ToUpper(strings.TrimSpace(s))) {
	case PumpOn:
		return PumpOn, true
	case PumpOff:
		return PumpOff, true
	}
	return "", false
}
