// Package entities internal/model/entities/irrigation-policy.go
package entities

// IrrigationPolicy is the configuration the controller uses when deciding on live data.
type IrrigationPolicy struct {
	CropType          string  `json:"crop_type"`
	Stage             Stage   `json:"stage"`
	FieldSizeHa       float64 `json:"field_size_ha"`
	MoistureThreshold int     `json:"moisture_threshold"` // informative, shown on the dashboard
	Latitude          float64 `json:"latitude"`
	Longitude         float64 `json:"longitude"`
}

// DefaultPolicy matches the demo field: 1.5 ha of paddy rice near New Delhi.
func DefaultPolicy() IrrigationPolicy {
	return IrrigationPolicy{
		CropType:          CropRice,
		Stage:             StageVegetative,
		FieldSizeHa:       1.5,
		MoistureThreshold: 40,
		Latitude:          28.61,
		Longitude:         77.20,
	}
}
