package irrigation

// StepResult tags one step of the decision trace.
type StepResult string

const (
	ResultSafe    StepResult = "SAFE"
	ResultWarning StepResult = "WARNING"
	ResultSkip    StepResult = "SKIP"
	ResultWater   StepResult = "WATER"
)

// Decision is one entry of the reasoning trace shown on the dashboard.
type Decision struct {
	Step        int        `json:"step"`
	Description string     `json:"description"`
	Result      StepResult `json:"result"`
	Details     string     `json:"details,omitempty"`
}

// Trace is append-only while a plan is evaluated.
type Trace []Decision

func (t *Trace) add(description string, result StepResult, details string) {
	*t = append(*t, Decision{
		Step:        len(*t) + 1,
		Description: description,
		Result:      result,
		Details:     details,
	})
}
