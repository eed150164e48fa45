// Package fallback tags the result of a call to an upstream collaborator as either
// live data or a substituted default, so callers can tell the two apart.
package fallback

// Source says where an Outcome's value came from.
type Source string

const (
	SourceLive     Source = "live"
	SourceFallback Source = "fallback"
)

// Outcome carries a value plus its provenance. Err is only set for fallbacks
// and is informative: the value is always usable.
type Outcome[T any] struct {
	Value  T
	Source Source
	Err    error
}

func Live[T any](v T) Outcome[T] {
	return Outcome[T]{Value: v, Source: SourceLive}
}

func Degraded[T any](v T, err error) Outcome[T] {
	return Outcome[T]{Value: v, Source: SourceFallback, Err: err}
}

// IsDegraded reports whether the value is a substituted default.
func (o Outcome[T]) IsDegraded() bool { return o.Source == SourceFallback }
