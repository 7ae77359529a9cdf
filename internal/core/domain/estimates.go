package domain

import (
	"fmt"
	"math"
)

const (
	// MinBPM and MaxBPM bound every determined tempo.
	MinBPM = 40.0
	MaxBPM = 220.0

	// UnknownLabel marks a categorical estimate that could not be made.
	UnknownLabel = "unknown"
)

// PitchClasses lists key names indexed by pitch class (C = 0).
var PitchClasses = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// TempoEstimate is a BPM value with a confidence score. A BPM of 0 means
// the tempo could not be determined.
type TempoEstimate struct {
	BPM        float64 `json:"bpm"`
	Confidence float64 `json:"confidence"`
}

// NewTempoEstimate validates bpm ∈ {0} ∪ [MinBPM, MaxBPM] and confidence ∈ [0,1].
func NewTempoEstimate(bpm, confidence float64) (TempoEstimate, error) {
	if !isFinite(bpm) || (bpm != 0 && (bpm < MinBPM || bpm > MaxBPM)) {
		return TempoEstimate{}, fmt.Errorf("%w: bpm %v outside [%v,%v]", ErrInvalid, bpm, MinBPM, MaxBPM)
	}
	if err := checkUnit("tempo confidence", confidence); err != nil {
		return TempoEstimate{}, err
	}
	return TempoEstimate{BPM: bpm, Confidence: confidence}, nil
}

// Determined reports whether a BPM value was found.
func (t TempoEstimate) Determined() bool { return t.BPM > 0 }

// Scale is the mode of a key estimate.
type Scale string

const (
	ScaleMajor   Scale = "major"
	ScaleMinor   Scale = "minor"
	ScaleUnknown Scale = UnknownLabel
)

// KeyEstimate is a tonal center and mode with a confidence score.
type KeyEstimate struct {
	Key        string  `json:"key"`
	Scale      Scale   `json:"scale"`
	Confidence float64 `json:"confidence"`
}

// NewKeyEstimate validates the key name, the scale and the pairing rule
// that a key is unknown exactly when its scale is unknown.
func NewKeyEstimate(key string, scale Scale, confidence float64) (KeyEstimate, error) {
	if key != UnknownLabel && PitchClassIndex(key) < 0 {
		return KeyEstimate{}, fmt.Errorf("%w: unknown key name %q", ErrInvalid, key)
	}
	switch scale {
	case ScaleMajor, ScaleMinor, ScaleUnknown:
	default:
		return KeyEstimate{}, fmt.Errorf("%w: unknown scale %q", ErrInvalid, scale)
	}
	if (key == UnknownLabel) != (scale == ScaleUnknown) {
		return KeyEstimate{}, fmt.Errorf("%w: key %q and scale %q must both be known or unknown", ErrInvalid, key, scale)
	}
	if err := checkUnit("key confidence", confidence); err != nil {
		return KeyEstimate{}, err
	}
	return KeyEstimate{Key: key, Scale: scale, Confidence: confidence}, nil
}

// UnknownKey returns the undetermined key with the given confidence.
func UnknownKey(confidence float64) KeyEstimate {
	return KeyEstimate{Key: UnknownLabel, Scale: ScaleUnknown, Confidence: confidence}
}

// Known reports whether a key was resolved.
func (k KeyEstimate) Known() bool { return k.Key != UnknownLabel && k.Key != "" }

// PitchClassIndex returns the index of name in PitchClasses, or -1.
func PitchClassIndex(name string) int {
	for i, pc := range PitchClasses {
		if pc == name {
			return i
		}
	}
	return -1
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func checkUnit(name string, v float64) error {
	if !isFinite(v) || v < 0 || v > 1 {
		return fmt.Errorf("%w: %s %v outside [0,1]", ErrInvalid, name, v)
	}
	return nil
}
