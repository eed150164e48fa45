package irrigation

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/LeonardoBeccarini/smart-irrigation/internal/model/entities"
)

// Rule table. Values and comparison operators are part of the contract:
// boundary inputs (soil exactly 30, requirement exactly 2mm) must keep their outcome.
const (
	BaseET0 = 6.5 // mm/day reference evapotranspiration

	DrySoilBelow = 30 // soil% < 30 is Dry
	WetSoilAbove = 70 // soil% > 70 is Wet

	HighRainAbove     = 60   // rain% > 60: high chance
	ModerateRainAbove = 30   // 30 < rain% <= 60: moderate risk
	RainReferenceMM   = 10.0 // mm expected at 100% probability

	SoilWeight = 0.8 // soil saturation discounts at most 80% of demand

	IrrigateAboveMM = 2.0 // required > 2mm and not Wet: irrigate
	SkipAtOrBelowMM = 0.5 // required <= 0.5mm: skip

	LitersPerMMHectare    = 10000 // 1mm over 1ha
	FixedLitersPerHectare = 70000 // fixed-schedule baseline
)

// Action is the plan's headline recommendation.
type Action string

const (
	ActionIrrigate Action = "Irrigate"
	ActionSkip     Action = "Skip"
	ActionMonitor  Action = "Monitor"
)

// Inputs are everything one evaluation needs. Weather fields describe the
// conditions already looked up by the caller.
type Inputs struct {
	SoilPercent     int
	RainProbability int
	IsRaining       bool
	Temperature     float64
	CropType        string
	GrowthStage     entities.Stage
	FieldSize       float64 // hectares, > 0
	WeatherSource   string
	Now             time.Time
}

// DailyPlan is the engine's output. It is never modified after Decide returns.
type DailyPlan struct {
	Date                    string              `json:"date"`
	Time                    string              `json:"time"`
	Action                  Action              `json:"action"`
	AmountLitersPerHectare  float64             `json:"amount_liters_per_hectare"`
	TotalAmountLiters       float64             `json:"total_amount_liters"`
	ReasoningTrace          Trace               `json:"reasoning_trace"`
	SavingsVsFixed          float64             `json:"savings_vs_fixed"`
	WeatherSummary          string              `json:"weather_summary"`
	WeatherSource           string              `json:"weather_source,omitempty"`
	SoilStatus              string              `json:"soil_status"`
	SoilClass               entities.SoilStatus `json:"soil_class"`
	CropStageName           string              `json:"crop_stage_name"`
	PumpStateRecommendation entities.PumpState  `json:"pump_state_recommendation"`
	RequiredMM              float64             `json:"required_mm"`
}

// evaluation is the working state threaded through the pipeline.
type evaluation struct {
	in Inputs

	kc           float64
	demandMM     float64
	soilFactor   float64
	soilStatus   entities.SoilStatus
	expectedRain float64
	requiredMM   float64
	action       Action
	pump         entities.PumpState

	trace Trace
}

// outcome is what a step returns: either carry on, or stop with a final plan.
type outcome struct {
	final *DailyPlan
}

func proceed() outcome { return outcome{} }

func terminate(p DailyPlan) outcome { return outcome{final: &p} }

type step func(e *evaluation) outcome

var pipeline = []step{
	assessCropDemand,
	classifySoil,
	checkRealtimeRain,
	classifyForecast,
	computeRequirement,
	chooseAction,
}

// Decide runs the rule table once. It is pure apart from reading in.Now.
func Decide(in Inputs) DailyPlan {
	e := &evaluation{in: in}
	for _, s := range pipeline {
		if o := s(e); o.final != nil {
			return *o.final
		}
	}
	return e.plan(e.requiredMM, e.action, e.pump)
}

func assessCropDemand(e *evaluation) outcome {
	kc, _ := entities.Crops().Kc(e.in.CropType, e.in.GrowthStage)
	e.kc = kc
	e.demandMM = BaseET0 * kc
	e.trace.add("Assess Crop Needs", ResultSafe,
		fmt.Sprintf("%s (%s, Kc: %s). Demand: %.2f mm.", e.in.CropType, e.in.GrowthStage, num(kc), e.demandMM))
	return proceed()
}

func classifySoil(e *evaluation) outcome {
	soil := e.in.SoilPercent
	switch {
	case soil < DrySoilBelow:
		e.soilStatus, e.soilFactor = entities.SoilDry, 0
		e.trace.add("Analyze Soil Moisture", ResultWater, fmt.Sprintf("Soil is Dry (%d%%). Irrigation vital.", soil))
	case soil > WetSoilAbove:
		e.soilStatus, e.soilFactor = entities.SoilWet, 1
		e.trace.add("Analyze Soil Moisture", ResultSkip, fmt.Sprintf("Soil is Wet (%d%%). Irrigation skipped.", soil))
	default:
		e.soilStatus = entities.SoilOptimal
		e.soilFactor = float64(soil-DrySoilBelow) / float64(WetSoilAbove-DrySoilBelow)
		e.trace.add("Analyze Soil Moisture", ResultSafe, fmt.Sprintf("Soil is Optimal (%d%%).", soil))
	}
	return proceed()
}

// checkRealtimeRain overrides every other signal, a Dry soil included.
func checkRealtimeRain(e *evaluation) outcome {
	if !e.in.IsRaining {
		return proceed()
	}
	e.trace.add("Real-time Weather", ResultSkip, "It is currently raining! Pump disabled.")
	return terminate(e.plan(0, ActionSkip, entities.PumpOff))
}

// classifyForecast only feeds the trace; the numeric effect is in computeRequirement.
func classifyForecast(e *evaluation) outcome {
	p := e.in.RainProbability
	e.expectedRain = float64(p) / 100 * RainReferenceMM
	switch {
	case p > HighRainAbove:
		e.trace.add("Weather Forecast", ResultSkip, fmt.Sprintf("High rain chance (%d%%).", p))
	case p > ModerateRainAbove:
		e.trace.add("Weather Forecast", ResultWarning, fmt.Sprintf("Moderate rain risk (%d%%).", p))
	default:
		e.trace.add("Weather Forecast", ResultSafe, fmt.Sprintf("Clear forecast (%d%%).", p))
	}
	return proceed()
}

func computeRequirement(e *evaluation) outcome {
	required := e.demandMM * (1 - e.soilFactor*SoilWeight)
	required -= e.expectedRain
	e.requiredMM = math.Max(0, required)
	return proceed()
}

// chooseAction leaves (0.5, 2] on the default Monitor/OFF: there is no rule for that band.
func chooseAction(e *evaluation) outcome {
	e.action, e.pump = ActionMonitor, entities.PumpOff

	if e.requiredMM > IrrigateAboveMM && e.soilStatus != entities.SoilWet {
		e.action, e.pump = ActionIrrigate, entities.PumpOn
	} else if e.requiredMM <= SkipAtOrBelowMM {
		e.action, e.pump = ActionSkip, entities.PumpOff
	}

	if e.soilStatus == entities.SoilWet {
		e.action, e.pump = ActionSkip, entities.PumpOff
	}

	result := ResultSkip
	if e.pump == entities.PumpOn {
		result = ResultWater
	}
	e.trace.add("AI Decision", result, fmt.Sprintf("Net Need: %.2fmm. Pump set to %s.", e.requiredMM, e.pump))
	return terminate(e.plan(e.requiredMM, e.action, e.pump))
}

func (e *evaluation) plan(requiredMM float64, action Action, pump entities.PumpState) DailyPlan {
	now := e.in.Now
	if now.IsZero() {
		now = time.Now()
	}
	perHa := math.Round(requiredMM * LitersPerMMHectare)
	total := perHa * e.in.FieldSize
	fixed := FixedLitersPerHectare * e.in.FieldSize

	trace := make(Trace, len(e.trace))
	copy(trace, e.trace)

	return DailyPlan{
		Date:                    now.Format("2006-01-02"),
		Time:                    now.Format("15:04:05"),
		Action:                  action,
		AmountLitersPerHectare:  perHa,
		TotalAmountLiters:       total,
		ReasoningTrace:          trace,
		SavingsVsFixed:          math.Max(0, fixed-total),
		WeatherSummary:          fmt.Sprintf("%s°C, %d%% Rain", num(e.in.Temperature), e.in.RainProbability),
		WeatherSource:           e.in.WeatherSource,
		SoilStatus:              fmt.Sprintf("%d%% Moisture", e.in.SoilPercent),
		SoilClass:               e.soilStatus,
		CropStageName:           string(e.in.GrowthStage),
		PumpStateRecommendation: pump,
		RequiredMM:              requiredMM,
	}
}

func num(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }
