package domain

import (
	"fmt"
	"math"
)

// Waveform is a decoded mono signal. It is immutable once constructed.
type Waveform struct {
	samples    []float64
	sampleRate int
}

// NewWaveform validates and copies samples into a Waveform.
func NewWaveform(samples []float64, sampleRate int) (Waveform, error) {
	if sampleRate <= 0 {
		return Waveform{}, fmt.Errorf("%w: sample rate must be positive, got %d", ErrInvalid, sampleRate)
	}
	cp := make([]float64, len(samples))
	for i, v := range samples {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Waveform{}, fmt.Errorf("%w: non-finite sample at index %d", ErrInvalid, i)
		}
		cp[i] = v
	}
	return Waveform{samples: cp, sampleRate: sampleRate}, nil
}

// Samples returns the underlying samples. Callers must not modify the slice.
func (w Waveform) Samples() []float64 { return w.samples }

// SampleRate returns the sample rate in Hz.
func (w Waveform) SampleRate() int { return w.sampleRate }

// Len returns the number of samples.
func (w Waveform) Len() int { return len(w.samples) }

// Duration returns the length of the signal in seconds.
func (w Waveform) Duration() float64 {
	if w.sampleRate <= 0 {
		return 0
	}
	return float64(len(w.samples)) / float64(w.sampleRate)
}

// Head returns a waveform holding at most the first seconds of w. A
// non-positive limit returns w unchanged.
func (w Waveform) Head(seconds float64) Waveform {
	if seconds <= 0 {
		return w
	}
	n := int(seconds * float64(w.sampleRate))
	if n >= len(w.samples) {
		return w
	}
	return Waveform{samples: w.samples[:n:n], sampleRate: w.sampleRate}
}
