package domain

// Outcome carries the value produced by one pipeline stage together with
// whether the stage had to fall back to a degraded value. Degraded values are
// still well defined ("unknown", zero confidence, nil feature); the warnings
// explain why in human-readable form.
type Outcome[T any] struct {
	Value    T
	Degraded bool
	Warnings []string
}

// Ok wraps a value produced without degradation.
func Ok[T any](v T) Outcome[T] {
	return Outcome[T]{Value: v}
}

// Fallback wraps a degraded value and the warnings describing why.
func Fallback[T any](v T, warnings ...string) Outcome[T] {
	return Outcome[T]{Value: v, Degraded: true, Warnings: warnings}
}

// Warn appends a warning without marking the outcome degraded.
func (o Outcome[T]) Warn(msg string) Outcome[T] {
	o.Warnings = append(append([]string(nil), o.Warnings...), msg)
	return o
}
