package irrigation

import (
	"fmt"
	"math"
	"math/rand"
)

const (
	impactDays      = 7
	impactMinFactor = 0.6
	impactSpread    = 0.2
)

// ImpactPoint compares a fixed schedule against engine usage for one day, in liters.
type ImpactPoint struct {
	Name  string  `json:"name"`
	Fixed float64 `json:"fixed"`
	AI    float64 `json:"ai"`
}

// WeeklyImpact builds the illustrative 7-day chart. Engine usage is the fixed
// baseline times a random factor in [0.6, 0.8). Output is not deterministic
// unless rng is seeded; a nil rng uses the global source.
func WeeklyImpact(fieldSize float64, rng *rand.Rand) []ImpactPoint {
	draw := rand.Float64
	if rng != nil {
		draw = rng.Float64
	}
	out := make([]ImpactPoint, 0, impactDays)
	for i := 0; i < impactDays; i++ {
		fixed := FixedLitersPerHectare * fieldSize
		ai := fixed * (impactMinFactor + draw()*impactSpread)
		out = append(out, ImpactPoint{
			Name:  fmt.Sprintf("Day %d", i+1),
			Fixed: math.Round(fixed),
			AI:    math.Round(ai),
		})
	}
	return out
}
