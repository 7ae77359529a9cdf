package sqlite

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/ewilliams-labs/cadence/internal/core/domain"
)

func newResult(t *testing.T, jobID string, bpm float64) domain.AnalysisResult {
	t.Helper()
	var dance *float64
	if bpm > 0 {
		v := 0.6
		dance = &v
	}
	lufs := -9.5
	r, err := domain.NewAnalysisResult(domain.ResultParts{
		Track:     domain.TrackInfo{DurationSec: 30, SampleRate: 44100},
		Tempo:     domain.TempoEstimate{BPM: bpm, Confidence: 0.7},
		Key:       domain.KeyEstimate{Key: "A", Scale: domain.ScaleMinor, Confidence: 0.5},
		GenreMood: domain.UnknownGenreMood(),
		Features: domain.FeatureSet{
			LoudnessProxyDB:    -12,
			LoudnessNorm:       0.8,
			Energy:             0.4,
			Danceability:       dance,
			Acousticness:       0.3,
			Speechiness:        0.1,
			SpectralCentroidHz: 1800,
			SpectralRolloffHz:  4200,
			SpectralFlatness:   0.05,
			ZCR:                0.07,
		},
		LoudnessLUFS: &lufs,
		Segments:     domain.NewSegments(30, domain.TempoEstimate{BPM: bpm}),
		Meta:         domain.Meta{JobID: jobID, Preset: domain.PresetFull, ProcessingMs: 12},
		Summary: domain.Summary{
			Text:       "Tempo is mid.",
			Vibe:       []string{"neutral"},
			TempoLabel: domain.TempoMid,
			TopGenres:  []string{},
			TopMoods:   []string{},
			Scores:     domain.FitScores{Club: 0.1, Chill: 0.2, Focus: 0.3},
			Confidence: domain.SummaryConfidence{Overall: 0.4, Genre: 0, Tempo: 0.7},
		},
	})
	if err != nil {
		t.Fatalf("build result: %v", err)
	}
	return r
}

func TestAdapter_GetByID(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(t *testing.T, a *Adapter) string
		wantErr error
		wantBPM float64
	}{
		{
			name: "not found",
			setup: func(t *testing.T, a *Adapter) string {
				return "missing"
			},
			wantErr: domain.ErrNotFound,
		},
		{
			name: "returns stored result",
			setup: func(t *testing.T, a *Adapter) string {
				if err := a.Save(context.Background(), newResult(t, "job-1", 120)); err != nil {
					t.Fatalf("save: %v", err)
				}
				return "job-1"
			},
			wantBPM: 120,
		},
		{
			name: "upsert replaces payload",
			setup: func(t *testing.T, a *Adapter) string {
				ctx := context.Background()
				if err := a.Save(ctx, newResult(t, "job-2", 90)); err != nil {
					t.Fatalf("save: %v", err)
				}
				if err := a.Save(ctx, newResult(t, "job-2", 0)); err != nil {
					t.Fatalf("save: %v", err)
				}
				return "job-2"
			},
			wantBPM: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := NewAdapter(":memory:")
			if err != nil {
				t.Fatalf("new adapter: %v", err)
			}
			defer a.Close()

			id := tt.setup(t, a)
			got, err := a.GetByID(context.Background(), id)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected error %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Meta.JobID != id {
				t.Errorf("job id = %q, want %q", got.Meta.JobID, id)
			}
			if got.Tempo.BPM != tt.wantBPM {
				t.Errorf("bpm = %v, want %v", got.Tempo.BPM, tt.wantBPM)
			}
			if (got.AudioFeatures.Danceability == nil) != (tt.wantBPM <= 0) {
				t.Errorf("danceability = %v for bpm %v", got.AudioFeatures.Danceability, tt.wantBPM)
			}
			if got.AudioFeatures.LoudnessLUFS == nil || *got.AudioFeatures.LoudnessLUFS != -9.5 {
				t.Errorf("loudness = %v", got.AudioFeatures.LoudnessLUFS)
			}
			if got.Meta.Warnings == nil {
				t.Error("warnings must not be nil")
			}
		})
	}
}

func TestAdapter_ListRecent(t *testing.T) {
	a, err := NewAdapter(":memory:")
	if err != nil {
		t.Fatalf("new adapter: %v", err)
	}
	defer a.Close()

	ctx := context.Background()
	empty, err := a.ListRecent(ctx, 5)
	if err != nil {
		t.Fatalf("list empty: %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Fatalf("expected empty non-nil slice, got %v", empty)
	}

	for i := 0; i < 4; i++ {
		if err := a.Save(ctx, newResult(t, fmt.Sprintf("job-%d", i), 100+float64(i))); err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
	}

	got, err := a.ListRecent(ctx, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Meta.JobID != "job-3" || got[1].Meta.JobID != "job-2" {
		t.Errorf("order = %s, %s", got[0].Meta.JobID, got[1].Meta.JobID)
	}

	all, err := a.ListRecent(ctx, 0)
	if err != nil {
		t.Fatalf("list default: %v", err)
	}
	if len(all) != 4 {
		t.Errorf("len = %d, want 4", len(all))
	}
}

func TestAdapter_SaveRejectsEmptyID(t *testing.T) {
	a, err := NewAdapter(":memory:")
	if err != nil {
		t.Fatalf("new adapter: %v", err)
	}
	defer a.Close()

	if err := a.Save(context.Background(), domain.AnalysisResult{}); !errors.Is(err, domain.ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
}

func TestAdapter_MigrateIsIdempotent(t *testing.T) {
	a, err := NewAdapter(":memory:")
	if err != nil {
		t.Fatalf("new adapter: %v", err)
	}
	defer a.Close()

	if err := a.migrate(); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
}
