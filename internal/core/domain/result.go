package domain

import (
	"fmt"
	"math"
	"strings"
)

// Preset selects how much of a track the local estimators analyze.
type Preset string

const (
	PresetFast Preset = "fast"
	PresetFull Preset = "full"
)

// ParsePreset accepts "fast" or "full" (case-insensitive). An empty string
// selects full.
func ParsePreset(s string) (Preset, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(PresetFast):
		return PresetFast, nil
	case "", string(PresetFull):
		return PresetFull, nil
	default:
		return "", fmt.Errorf("%w: preset must be fast or full, got %q", ErrInvalid, s)
	}
}

// TrackInfo describes the analyzed signal.
type TrackInfo struct {
	DurationSec float64 `json:"duration_sec"`
	SampleRate  int     `json:"sample_rate"`
}

// Instruments is the instrument detection block. Detection is not
// implemented; when requested the block reports a single unknown entry.
type Instruments struct {
	Top          TagDistribution `json:"top"`
	Distribution TagDistribution `json:"distribution"`
}

// UnknownInstruments returns the placeholder instrument block.
func UnknownInstruments() *Instruments {
	return &Instruments{Top: UnknownDistribution(), Distribution: UnknownDistribution()}
}

// Segments is the structural block of a result.
type Segments struct {
	BeatsCount *int      `json:"beats_count"`
	Sections   []Section `json:"sections"`
}

// Section is a labeled span of a track.
type Section struct {
	Label    string  `json:"label"`
	StartSec float64 `json:"start_sec"`
	EndSec   float64 `json:"end_sec"`
}

// NewSegments derives the beat count from the duration and tempo. Sections
// are left nil.
func NewSegments(durationSec float64, tempo TempoEstimate) *Segments {
	s := &Segments{}
	if tempo.Determined() {
		n := int(math.Floor(durationSec * tempo.BPM / 60))
		s.BeatsCount = &n
	}
	return s
}

// Meta carries bookkeeping for one analysis run.
type Meta struct {
	JobID        string   `json:"job_id"`
	Preset       Preset   `json:"preset"`
	ProcessingMs int64    `json:"processing_ms"`
	Warnings     []string `json:"warnings"`
}

// AnalysisResult is the complete, immutable output of one analysis run.
type AnalysisResult struct {
	Track         TrackInfo     `json:"track"`
	Tempo         TempoEstimate `json:"tempo"`
	Key           KeyEstimate   `json:"key"`
	Genre         GenreResult   `json:"genre"`
	Mood          MoodResult    `json:"mood"`
	Instruments   *Instruments  `json:"instruments"`
	AudioFeatures AudioFeatures `json:"audio_features"`
	Segments      *Segments     `json:"segments"`
	Meta          Meta          `json:"meta"`
	Summary       Summary       `json:"ai_summary"`
}

// ResultParts groups the inputs of NewAnalysisResult.
type ResultParts struct {
	Track        TrackInfo
	Tempo        TempoEstimate
	Key          KeyEstimate
	GenreMood    GenreMoodResult
	Features     FeatureSet
	LoudnessLUFS *float64
	Instruments  *Instruments
	Segments     *Segments
	Meta         Meta
	Summary      Summary
}

// NewAnalysisResult validates every bounded value and assembles the result.
func NewAnalysisResult(p ResultParts) (AnalysisResult, error) {
	if p.Meta.JobID == "" {
		return AnalysisResult{}, fmt.Errorf("%w: empty job id", ErrInvalid)
	}
	if p.Track.SampleRate <= 0 || !isFinite(p.Track.DurationSec) || p.Track.DurationSec < 0 {
		return AnalysisResult{}, fmt.Errorf("%w: invalid track info %+v", ErrInvalid, p.Track)
	}
	if _, err := NewTempoEstimate(p.Tempo.BPM, p.Tempo.Confidence); err != nil {
		return AnalysisResult{}, err
	}
	if _, err := NewKeyEstimate(p.Key.Key, p.Key.Scale, p.Key.Confidence); err != nil {
		return AnalysisResult{}, err
	}
	if err := p.GenreMood.Validate(); err != nil {
		return AnalysisResult{}, err
	}
	if err := p.Features.validate(); err != nil {
		return AnalysisResult{}, err
	}
	if (p.Features.Danceability == nil) != !p.Tempo.Determined() {
		return AnalysisResult{}, fmt.Errorf("%w: danceability must be null exactly when tempo is undetermined", ErrInvalid)
	}
	if p.LoudnessLUFS != nil && !isFinite(*p.LoudnessLUFS) {
		return AnalysisResult{}, errNonFinite("loudness_lufs")
	}
	if err := p.Summary.validate(); err != nil {
		return AnalysisResult{}, err
	}
	meta := p.Meta
	meta.Warnings = make([]string, len(p.Meta.Warnings))
	copy(meta.Warnings, p.Meta.Warnings)
	return AnalysisResult{
		Track:         p.Track,
		Tempo:         p.Tempo,
		Key:           p.Key,
		Genre:         p.GenreMood.Genre,
		Mood:          p.GenreMood.Mood,
		Instruments:   p.Instruments,
		AudioFeatures: AudioFeatures{LoudnessLUFS: p.LoudnessLUFS, FeatureSet: p.Features},
		Segments:      p.Segments,
		Meta:          meta,
		Summary:       p.Summary,
	}, nil
}

func errNonFinite(name string) error {
	return fmt.Errorf("%w: %s is not finite", ErrInvalid, name)
}
