package ports

import (
	"context"

	"github.com/ewilliams-labs/cadence/internal/core/domain"
)

// GenreMoodModel tags a decoded track with genre and mood estimates.
// Implementations never fail: problems are reported as a degraded outcome
// holding domain.UnknownGenreMood.
type GenreMoodModel interface {
	Classify(ctx context.Context, wavPath string) domain.Outcome[domain.GenreMoodResult]
}

// LoudnessMeter measures integrated loudness in LUFS. A nil value means the
// measurement was not possible.
type LoudnessMeter interface {
	Measure(ctx context.Context, wavPath string) domain.Outcome[*float64]
}
