// Package moisture converts raw capacitive/resistive probe readings into a moisture percentage.
//
// The probe is read through a 12-bit ADC: a high value means dry soil, a low value wet soil.
// Readings outside [MinRaw, MaxRaw] are clamped rather than rejected, so a noisy sample
// saturates at 0% or 100% instead of failing the ingestion.
package moisture

import "math"

const (
	MinRaw = 1000 // fully wet
	MaxRaw = 4095 // dry / in air

	// rawPerPercent is the slope the virtual device uses to synthesize readings.
	rawPerPercent = 30.95
)

// Normalize maps a raw reading to an integer percentage in [0,100].
// It is monotonically non-increasing in raw.
func Normalize(raw int) int {
	clamped := raw
	if clamped < MinRaw {
		clamped = MinRaw
	}
	if clamped > MaxRaw {
		clamped = MaxRaw
	}
	pct := float64(MaxRaw-clamped) / float64(MaxRaw-MinRaw) * 100
	return int(math.Round(pct))
}

// Raw is the approximate inverse of Normalize used by simulated devices.
func Raw(percent int) int {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	return int(MaxRaw - float64(percent)*rawPerPercent)
}
