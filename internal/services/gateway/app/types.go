package app

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/LeonardoBeccarini/smart-irrigation/internal/model/entities"
	"github.com/LeonardoBeccarini/smart-irrigation/internal/model/messages"
	"github.com/LeonardoBeccarini/smart-irrigation/internal/services/irrigation"
)

// ---------- requests ----------

type commandRequest struct {
	Action string `json:"action" validate:"required,oneof=ON OFF AUTO"`
}

var errBadNumber = errors.New("not a number")

// uploadRequest is what a device POSTs to /api/upload. Firmware is not always
// careful with types, so numbers are also accepted as numeric strings.
type uploadRequest struct {
	SoilMoisture *int
	PumpState    entities.PumpState `validate:"omitempty,oneof=ON OFF"`
	Battery      *int               `validate:"omitempty,min=0,max=100"`
	DeviceID     string
}

func (u *uploadRequest) UnmarshalJSON(b []byte) error {
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	if v, ok := m["device_id"].(string); ok {
		u.DeviceID = strings.TrimSpace(v)
	}
	if v, ok := m["pump_state"].(string); ok {
		u.PumpState = entities.PumpState(strings.ToUpper(strings.TrimSpace(v)))
	}
	var err error
	if u.SoilMoisture, err = optionalInt(m, "soil_moisture"); err != nil {
		return err
	}
	if u.Battery, err = optionalInt(m, "battery"); err != nil {
		return err
	}
	return nil
}

func (u uploadRequest) telemetry() messages.Telemetry {
	return messages.Telemetry{
		DeviceID:     u.DeviceID,
		SoilMoisture: u.SoilMoisture,
		PumpState:    u.PumpState,
		Battery:      u.Battery,
	}
}

// optionalInt reads key as a rounded integer. Missing or null yields nil.
func optionalInt(m map[string]any, key string) (*int, error) {
	raw, ok := m[key]
	if !ok || raw == nil {
		return nil, nil
	}
	var f float64
	switch x := raw.(type) {
	case float64:
		f = x
	case string:
		p, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return nil, errBadNumber
		}
		f = p
	default:
		return nil, errBadNumber
	}
	if math.IsNaN(f) || f < math.MinInt32 || f > math.MaxInt32 {
		return nil, errBadNumber
	}
	n := int(math.Round(f))
	return &n, nil
}

// planQuery holds the what-if parameters of GET /api/plan.
type planQuery struct {
	SoilCorrection int     `validate:"min=-100,max=100"`
	RainCorrection int     `validate:"min=-100,max=100"`
	CropType       string  `validate:"required"`
	Stage          string  `validate:"required"`
	FieldSize      float64 `validate:"gt=0,lte=100000"`
}

// ---------- responses ----------

type commandState struct {
	Command   entities.PumpState `json:"command"`
	Manual    bool               `json:"manual"`
	Timestamp string             `json:"timestamp"`
}

type commandResult struct {
	Status string             `json:"status"`
	Mode   string             `json:"mode"`
	State  entities.PumpState `json:"state,omitempty"`
}

type uploadResult struct {
	Status   string                `json:"status"`
	Received json.RawMessage       `json:"received"`
	Plan     *irrigation.DailyPlan `json:"plan"`
}

type liveResult struct {
	Skipped bool   `json:"skipped"`
	Reason  string `json:"reason"`
}

type cropsResult struct {
	Crops     entities.CropProfile `json:"crops"`
	Stages    []entities.Stage     `json:"stages"`
	DefaultKc float64              `json:"default_kc"`
}

type statusError struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type plainError struct {
	Error string `json:"error"`
}
