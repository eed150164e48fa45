package entities

// SoilStatus is the three-way soil moisture classification.
type SoilStatus string

const (
	SoilDry     SoilStatus = "Dry"
	SoilOptimal SoilStatus = "Optimal"
	SoilWet     SoilStatus = "Wet"
)
