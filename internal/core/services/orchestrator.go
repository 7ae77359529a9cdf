package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ewilliams-labs/cadence/internal/core/analysis"
	"github.com/ewilliams-labs/cadence/internal/core/domain"
	"github.com/ewilliams-labs/cadence/internal/core/ports"
)

var (
	// ErrDecode marks a failure to decode or load the input audio.
	ErrDecode = errors.New("service: failed to decode audio")
	// ErrStorageDisabled is returned by lookups when no repository is configured.
	ErrStorageDisabled = errors.New("service: result storage disabled")
)

// Options configures the analysis pipeline.
type Options struct {
	TargetSampleRate int
	FastMaxSeconds   float64
}

// DefaultOptions returns the pipeline defaults.
func DefaultOptions() Options {
	return Options{TargetSampleRate: 44100, FastMaxSeconds: 60}
}

// AnalyzeRequest describes one analysis run.
type AnalyzeRequest struct {
	JobID              string
	InputPath          string
	Filename           string
	Preset             domain.Preset
	IncludeInstruments bool
	IncludeSegments    bool
}

// localAnalyzer runs the in-process estimators.
type localAnalyzer interface {
	Analyze(ctx context.Context, w domain.Waveform) (analysis.LocalResult, error)
}

// Orchestrator runs the full analysis pipeline for uploaded tracks.
type Orchestrator struct {
	decoder   ports.Decoder
	loader    ports.WaveformLoader
	model     ports.GenreMoodModel
	meter     ports.LoudnessMeter
	repo      ports.ResultRepository
	publisher ports.ResultPublisher
	local     localAnalyzer
	opts      Options
	logger    *zap.Logger
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithRepository stores every finished result in repo.
func WithRepository(repo ports.ResultRepository) Option {
	return func(o *Orchestrator) { o.repo = repo }
}

// WithPublisher announces every finished result through p.
func WithPublisher(p ports.ResultPublisher) Option {
	return func(o *Orchestrator) { o.publisher = p }
}

// WithLogger sets the logger. A nil logger disables logging.
func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l.Named("orchestrator")
		}
	}
}

// NewOrchestrator constructs an Orchestrator.
func NewOrchestrator(decoder ports.Decoder, loader ports.WaveformLoader, model ports.GenreMoodModel, meter ports.LoudnessMeter, opts Options, options ...Option) *Orchestrator {
	o := &Orchestrator{
		decoder: decoder,
		loader:  loader,
		model:   model,
		meter:   meter,
		local:   analysis.NewLocalAnalyzer(),
		opts:    opts,
		logger:  zap.NewNop(),
	}
	for _, opt := range options {
		opt(o)
	}
	return o
}

// Analyze decodes the request's input file and produces a complete result.
// Decode and load failures wrap ErrDecode. Every other stage degrades
// instead of failing; the reasons are listed in the result's warnings.
func (o *Orchestrator) Analyze(ctx context.Context, req AnalyzeRequest) (domain.AnalysisResult, error) {
	start := time.Now()
	if req.JobID == "" {
		req.JobID = uuid.NewString()
	}
	if req.Preset == "" {
		req.Preset = domain.PresetFull
	}
	log := o.logger.With(zap.String("job_id", req.JobID))

	if err := ctx.Err(); err != nil {
		return domain.AnalysisResult{}, err
	}

	decoded, err := o.decoder.Decode(ctx, req.InputPath, o.opts.TargetSampleRate)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return domain.AnalysisResult{}, ctxErr
		}
		return domain.AnalysisResult{}, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	defer func() {
		if err := decoded.Release(); err != nil {
			log.Warn("failed to release decoded audio", zap.String("path", decoded.WAVPath), zap.Error(err))
		}
	}()

	wave, err := o.loader.Load(decoded.WAVPath)
	if err != nil {
		return domain.AnalysisResult{}, fmt.Errorf("%w: %w", ErrDecode, err)
	}

	local := wave
	if req.Preset == domain.PresetFast {
		local = wave.Head(o.opts.FastMaxSeconds)
	}

	var (
		wg       sync.WaitGroup
		tags     domain.Outcome[domain.GenreMoodResult]
		loudness domain.Outcome[*float64]
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		tags = o.classify(ctx, decoded.WAVPath, log)
	}()
	go func() {
		defer wg.Done()
		loudness = o.measure(ctx, decoded.WAVPath, log)
	}()
	lr, localErr := o.local.Analyze(ctx, local)
	wg.Wait()

	if localErr != nil {
		return domain.AnalysisResult{}, localErr
	}
	if err := ctx.Err(); err != nil {
		return domain.AnalysisResult{}, err
	}

	tempo := lr.Tempo.Value
	summary := analysis.BuildSummary(analysis.SummaryInput{
		Tempo:     tempo,
		Key:       lr.Key.Value,
		GenreMood: tags.Value,
		Features:  lr.Features.Value,
	})

	warnings := lr.Warnings()
	warnings = append(warnings, tags.Warnings...)
	warnings = append(warnings, loudness.Warnings...)

	parts := domain.ResultParts{
		Track:        domain.TrackInfo{DurationSec: wave.Duration(), SampleRate: wave.SampleRate()},
		Tempo:        tempo,
		Key:          lr.Key.Value,
		GenreMood:    tags.Value,
		Features:     lr.Features.Value,
		LoudnessLUFS: loudness.Value,
		Summary:      summary,
		Meta: domain.Meta{
			JobID:        req.JobID,
			Preset:       req.Preset,
			ProcessingMs: time.Since(start).Milliseconds(),
			Warnings:     warnings,
		},
	}
	if req.IncludeInstruments {
		parts.Instruments = domain.UnknownInstruments()
	}
	if req.IncludeSegments {
		parts.Segments = domain.NewSegments(wave.Duration(), tempo)
	}

	result, err := domain.NewAnalysisResult(parts)
	if err != nil {
		return domain.AnalysisResult{}, fmt.Errorf("service: failed to assemble result: %w", err)
	}

	o.deliver(ctx, result, log)
	log.Info("analysis complete",
		zap.String("file", req.Filename),
		zap.String("preset", string(req.Preset)),
		zap.Int64("processing_ms", result.Meta.ProcessingMs),
		zap.Int("warnings", len(result.Meta.Warnings)),
	)
	return result, nil
}

// Result returns a stored analysis by job id.
func (o *Orchestrator) Result(ctx context.Context, jobID string) (domain.AnalysisResult, error) {
	if o.repo == nil {
		return domain.AnalysisResult{}, ErrStorageDisabled
	}
	r, err := o.repo.GetByID(ctx, jobID)
	if err != nil {
		return domain.AnalysisResult{}, fmt.Errorf("service: failed to load result: %w", err)
	}
	return r, nil
}

// Recent returns up to limit stored analyses, newest first.
func (o *Orchestrator) Recent(ctx context.Context, limit int) ([]domain.AnalysisResult, error) {
	if o.repo == nil {
		return nil, ErrStorageDisabled
	}
	rs, err := o.repo.ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("service: failed to list results: %w", err)
	}
	return rs, nil
}

func (o *Orchestrator) classify(ctx context.Context, path string, log *zap.Logger) (out domain.Outcome[domain.GenreMoodResult]) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("genre/mood model panicked", zap.Any("panic", r))
			out = domain.Fallback(domain.UnknownGenreMood(), fmt.Sprintf("genre/mood: model failed: %v", r))
		}
	}()
	out = o.model.Classify(ctx, path)
	if err := out.Value.Validate(); err != nil {
		log.Warn("genre/mood model returned invalid output", zap.Error(err))
		return domain.Fallback(domain.UnknownGenreMood(), append(out.Warnings, "genre/mood: invalid model output")...)
	}
	return out
}

func (o *Orchestrator) measure(ctx context.Context, path string, log *zap.Logger) (out domain.Outcome[*float64]) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("loudness meter panicked", zap.Any("panic", r))
			out = domain.Fallback[*float64](nil, fmt.Sprintf("loudness: meter failed: %v", r))
		}
	}()
	out = o.meter.Measure(ctx, path)
	if v := out.Value; v != nil && (math.IsNaN(*v) || math.IsInf(*v, 0)) {
		return domain.Fallback[*float64](nil, append(out.Warnings, "loudness: non-finite measurement")...)
	}
	return out
}

// deliver stores and publishes a finished result. Failures are logged only.
func (o *Orchestrator) deliver(ctx context.Context, r domain.AnalysisResult, log *zap.Logger) {
	if o.repo != nil {
		if err := o.repo.Save(ctx, r); err != nil {
			log.Warn("failed to store result", zap.Error(err))
		}
	}
	if o.publisher != nil {
		if err := o.publisher.Publish(ctx, r); err != nil {
			log.Warn("failed to publish result", zap.Error(err))
		}
	}
}
