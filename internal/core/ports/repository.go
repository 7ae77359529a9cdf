package ports

import (
	"context"

	"github.com/ewilliams-labs/cadence/internal/core/domain"
)

// ResultRepository stores finished analyses.
type ResultRepository interface {
	Save(ctx context.Context, r domain.AnalysisResult) error
	GetByID(ctx context.Context, jobID string) (domain.AnalysisResult, error)
	ListRecent(ctx context.Context, limit int) ([]domain.AnalysisResult, error)
}

// ResultPublisher announces finished analyses to downstream consumers.
type ResultPublisher interface {
	Publish(ctx context.Context, r domain.AnalysisResult) error
}
