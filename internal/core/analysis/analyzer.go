// Package analysis implements the local signal estimators: tempo, key,
// heuristic audio features and the rule-based summary.
package analysis

import (
	"context"

	"github.com/ewilliams-labs/cadence/internal/core/domain"
	"github.com/ewilliams-labs/cadence/internal/dsp"
)

// LocalResult holds the outcomes of the local estimators for one waveform.
type LocalResult struct {
	Tempo    domain.Outcome[domain.TempoEstimate]
	Key      domain.Outcome[domain.KeyEstimate]
	Features domain.Outcome[domain.FeatureSet]
}

// Warnings returns the estimator warnings in stage order.
func (r LocalResult) Warnings() []string {
	var out []string
	out = append(out, r.Tempo.Warnings...)
	out = append(out, r.Key.Warnings...)
	out = append(out, r.Features.Warnings...)
	return out
}

// LocalAnalyzer runs tempo, key and feature estimation over a single
// shared spectrogram.
type LocalAnalyzer struct {
	params dsp.Params
}

// NewLocalAnalyzer returns an analyzer using the default framing.
func NewLocalAnalyzer() *LocalAnalyzer {
	return &LocalAnalyzer{params: dsp.DefaultParams()}
}

// Analyze runs the estimators in order. It returns ctx.Err() if the context
// is cancelled between stages.
func (a *LocalAnalyzer) Analyze(ctx context.Context, w domain.Waveform) (LocalResult, error) {
	var res LocalResult
	if err := ctx.Err(); err != nil {
		return res, err
	}
	spec := dsp.STFT(w.Samples(), w.SampleRate(), a.params)

	if w.Duration() < minTempoSeconds {
		res.Tempo = domain.Fallback(domain.TempoEstimate{}, WarnTempoShort)
	} else {
		res.Tempo = estimateTempo(spec)
	}
	if err := ctx.Err(); err != nil {
		return LocalResult{}, err
	}

	if w.Duration() < minKeySeconds {
		res.Key = domain.Fallback(domain.UnknownKey(0), WarnKeyShort)
	} else {
		res.Key = estimateKey(spec)
	}
	if err := ctx.Err(); err != nil {
		return LocalResult{}, err
	}

	res.Features = extractFeatures(w.Samples(), spec, a.params, res.Tempo.Value)
	return res, nil
}
