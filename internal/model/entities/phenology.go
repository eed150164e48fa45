package entities

import "sort"

type Stage string

const (
	StageVegetative   Stage = "Vegetative"
	StageReproductive Stage = "Reproductive"
	StageRipening     Stage = "Ripening"
)

const (
	CropRice      = "Rice (Paddy)"
	CropWheat     = "Wheat"
	CropSugarcane = "Sugarcane"
	CropCotton    = "Cotton"
)

// DefaultKc is used for any crop or stage missing from the table.
const DefaultKc = 1.0

// StageParams holds the per-stage crop coefficient.
type StageParams struct {
	Kc float64 `json:"kc"`
}

// CropProfile maps crop -> stage -> parameters. Read-only after init.
type CropProfile map[string]map[Stage]StageParams

var cropProfile = CropProfile{
	CropRice: {
		StageVegetative:   {Kc: 1.1},
		StageReproductive: {Kc: 1.25},
		StageRipening:     {Kc: 1.0},
	},
	CropWheat: {
		StageVegetative:   {Kc: 0.7},
		StageReproductive: {Kc: 1.15},
		StageRipening:     {Kc: 0.4},
	},
	CropSugarcane: {
		StageVegetative:   {Kc: 0.8},
		StageReproductive: {Kc: 1.25},
		StageRipening:     {Kc: 0.7},
	},
	CropCotton: {
		StageVegetative:   {Kc: 0.35},
		StageReproductive: {Kc: 1.2},
		StageRipening:     {Kc: 0.6},
	},
}

// Crops returns the built-in profile table.
func Crops() CropProfile { return cropProfile }

// Kc returns the coefficient for crop/stage and whether it came from the table.
// Unknown crop or stage yields DefaultKc with found=false.
func (p CropProfile) Kc(crop string, stage Stage) (kc float64, found bool) {
	stages, ok := p[crop]
	if !ok {
		return DefaultKc, false
	}
	sp, ok := stages[stage]
	if !ok {
		return DefaultKc, false
	}
	return sp.Kc, true
}

// Names lists crop names in stable order.
func (p CropProfile) Names() []string {
	out := make([]string, 0, len(p))
	for k := range p {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
