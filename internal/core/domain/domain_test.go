package domain

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"
)

func TestNewWaveform(t *testing.T) {
	tests := []struct {
		name    string
		samples []float64
		sr      int
		wantErr bool
	}{
		{name: "valid", samples: []float64{0, 0.5, -0.5}, sr: 8000},
		{name: "empty", samples: nil, sr: 8000},
		{name: "zero sample rate", samples: []float64{0}, sr: 0, wantErr: true},
		{name: "nan sample", samples: []float64{0, math.NaN()}, sr: 8000, wantErr: true},
		{name: "inf sample", samples: []float64{math.Inf(1)}, sr: 8000, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewWaveform(tt.samples, tt.sr)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalid) {
					t.Fatalf("expected ErrInvalid, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestWaveformCopiesAndHead(t *testing.T) {
	in := make([]float64, 1000)
	w, err := NewWaveform(in, 100)
	if err != nil {
		t.Fatalf("NewWaveform: %v", err)
	}
	in[0] = 1
	if w.Samples()[0] != 0 {
		t.Fatal("waveform shares the caller's slice")
	}
	if got := w.Duration(); got != 10 {
		t.Fatalf("Duration = %v, want 10", got)
	}
	if got := w.Head(2.5).Len(); got != 250 {
		t.Fatalf("Head(2.5).Len = %d, want 250", got)
	}
	if got := w.Head(60).Len(); got != 1000 {
		t.Fatalf("Head(60).Len = %d, want 1000", got)
	}
	if got := w.Head(0).Len(); got != 1000 {
		t.Fatalf("Head(0).Len = %d, want 1000", got)
	}
}

func TestNewTempoEstimate(t *testing.T) {
	tests := []struct {
		bpm, conf float64
		wantErr   bool
	}{
		{0, 0, false},
		{40, 0.5, false},
		{220, 1, false},
		{39.9, 0.5, true},
		{221, 0.5, true},
		{120, 1.01, true},
		{120, -0.1, true},
		{math.NaN(), 0.5, true},
	}
	for _, tt := range tests {
		_, err := NewTempoEstimate(tt.bpm, tt.conf)
		if (err != nil) != tt.wantErr {
			t.Errorf("NewTempoEstimate(%v, %v) err = %v, wantErr %v", tt.bpm, tt.conf, err, tt.wantErr)
		}
	}
}

func TestNewKeyEstimate(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		scale   Scale
		wantErr bool
	}{
		{name: "known", key: "A", scale: ScaleMinor},
		{name: "sharp", key: "F#", scale: ScaleMajor},
		{name: "unknown pair", key: UnknownLabel, scale: ScaleUnknown},
		{name: "key without scale", key: "C", scale: ScaleUnknown, wantErr: true},
		{name: "scale without key", key: UnknownLabel, scale: ScaleMajor, wantErr: true},
		{name: "flat spelling", key: "Bb", scale: ScaleMajor, wantErr: true},
		{name: "bad scale", key: "C", scale: "dorian", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewKeyEstimate(tt.key, tt.scale, 0.5)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestOutcomeWarnDoesNotAlias(t *testing.T) {
	base := Fallback(1, "first")
	a := base.Warn("a")
	b := base.Warn("b")
	if len(base.Warnings) != 1 || a.Warnings[1] != "a" || b.Warnings[1] != "b" {
		t.Fatalf("warnings aliased: base=%v a=%v b=%v", base.Warnings, a.Warnings, b.Warnings)
	}
	if !a.Degraded {
		t.Fatal("Warn must keep the degraded flag")
	}
	if Ok(1).Degraded {
		t.Fatal("Ok must not be degraded")
	}
}

func TestParsePreset(t *testing.T) {
	for in, want := range map[string]Preset{"": PresetFull, "fast": PresetFast, "FULL": PresetFull} {
		got, err := ParsePreset(in)
		if err != nil || got != want {
			t.Errorf("ParsePreset(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParsePreset("slow"); !errors.Is(err, ErrInvalid) {
		t.Errorf("expected ErrInvalid, got %v", err)
	}
}

func TestNewSegments(t *testing.T) {
	s := NewSegments(30, TempoEstimate{BPM: 120, Confidence: 0.9})
	if s.BeatsCount == nil || *s.BeatsCount != 60 {
		t.Fatalf("beats_count = %v, want 60", s.BeatsCount)
	}
	if NewSegments(30, TempoEstimate{}).BeatsCount != nil {
		t.Fatal("beats_count must be nil without a tempo")
	}
}

func TestNewTagDistributionSorts(t *testing.T) {
	d, err := NewTagDistribution([]LabelScore{{"a", 0.1}, {"b", 0.5}, {"c", 0.5}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := strings.Join(d.TopLabels(2), ","); got != "b,c" {
		t.Fatalf("TopLabels = %s, want b,c", got)
	}
	if _, err := NewTagDistribution([]LabelScore{{"a", -1}}); err == nil {
		t.Fatal("expected error for negative score")
	}
}

func validParts() ResultParts {
	dance := 0.7
	return ResultParts{
		Track:     TrackInfo{DurationSec: 30, SampleRate: 22050},
		Tempo:     TempoEstimate{BPM: 120, Confidence: 0.8},
		Key:       KeyEstimate{Key: "A", Scale: ScaleMinor, Confidence: 0.5},
		GenreMood: UnknownGenreMood(),
		Features:  FeatureSet{Energy: 0.5, Danceability: &dance, LoudnessNorm: 0.5, LoudnessProxyDB: -12},
		Meta:      Meta{JobID: "job-1", Preset: PresetFast},
		Summary:   Summary{Text: "x", TempoLabel: TempoMid},
	}
}

func TestNewAnalysisResult(t *testing.T) {
	res, err := NewAnalysisResult(validParts())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Meta.Warnings == nil {
		t.Fatal("warnings must serialize as an empty list")
	}
	raw, err := json.Marshal(res)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(raw), `"warnings":[]`) {
		t.Errorf("clean run must serialize an empty warnings list, got %s", raw)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"track", "tempo", "key", "genre", "mood", "instruments", "audio_features", "segments", "meta", "ai_summary"} {
		if _, ok := m[key]; !ok {
			t.Errorf("missing top-level key %q", key)
		}
	}
	af := m["audio_features"].(map[string]any)
	if _, ok := af["loudness_lufs"]; !ok {
		t.Error("audio_features must carry loudness_lufs")
	}
	if _, ok := af["energy"]; !ok {
		t.Error("audio_features must inline the feature set")
	}
}

func TestNewAnalysisResultCopiesWarnings(t *testing.T) {
	for _, in := range [][]string{nil, {}, {"tempo: audio too short"}} {
		parts := validParts()
		parts.Meta.Warnings = in
		res, err := NewAnalysisResult(parts)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Meta.Warnings == nil || len(res.Meta.Warnings) != len(in) {
			t.Fatalf("warnings = %#v, want %d entries", res.Meta.Warnings, len(in))
		}
		if len(in) > 0 {
			in[0] = "mutated"
			if res.Meta.Warnings[0] == "mutated" {
				t.Fatal("result must not alias the caller's warnings")
			}
		}
	}
}

func TestNewAnalysisResultRejects(t *testing.T) {
	nan := math.NaN()
	tests := []struct {
		name   string
		mutate func(p *ResultParts)
	}{
		{"empty job id", func(p *ResultParts) { p.Meta.JobID = "" }},
		{"energy out of range", func(p *ResultParts) { p.Features.Energy = 1.2 }},
		{"nan centroid", func(p *ResultParts) { p.Features.SpectralCentroidHz = nan }},
		{"nan lufs", func(p *ResultParts) { p.LoudnessLUFS = &nan }},
		{"danceability without tempo", func(p *ResultParts) { p.Tempo = TempoEstimate{} }},
		{"missing danceability", func(p *ResultParts) { p.Features.Danceability = nil }},
		{"valence out of range", func(p *ResultParts) { p.GenreMood.Mood.Valence = 2 }},
		{"summary score out of range", func(p *ResultParts) { p.Summary.Scores.Club = -0.1 }},
		{"mismatched key", func(p *ResultParts) { p.Key.Scale = ScaleUnknown }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validParts()
			tt.mutate(&p)
			if _, err := NewAnalysisResult(p); !errors.Is(err, ErrInvalid) {
				t.Fatalf("expected ErrInvalid, got %v", err)
			}
		})
	}
}
