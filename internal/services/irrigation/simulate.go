package irrigation

import (
	"time"

	"github.com/LeonardoBeccarini/smart-irrigation/internal/model/entities"
)

// Baselines for the dashboard's what-if sliders.
const (
	simBaseSoil        = 30
	simBaseRain        = 10
	simTemperature     = 28.0
	simulatedWeatherID = "simulated"
)

// Scenario is a what-if request: offsets applied to the simulation baselines.
type Scenario struct {
	SoilCorrection int
	RainCorrection int
	CropType       string
	GrowthStage    entities.Stage
	FieldSize      float64
}

// Simulate evaluates a scenario without touching live data: soil starts at 30%,
// rain probability at 10%, both shifted by the corrections and clamped to [0,100].
func Simulate(sc Scenario, now time.Time) DailyPlan {
	return Decide(Inputs{
		SoilPercent:     clampPct(simBaseSoil + sc.SoilCorrection),
		RainProbability: clampPct(simBaseRain + sc.RainCorrection),
		IsRaining:       false,
		Temperature:     simTemperature,
		CropType:        sc.CropType,
		GrowthStage:     sc.GrowthStage,
		FieldSize:       sc.FieldSize,
		WeatherSource:   simulatedWeatherID,
		Now:             now,
	})
}

func clampPct(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
