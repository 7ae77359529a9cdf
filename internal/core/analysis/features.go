package analysis

import (
	"math"

	"github.com/ewilliams-labs/cadence/internal/core/domain"
	"github.com/ewilliams-labs/cadence/internal/dsp"
)

// WarnSilent is reported when the signal carries no energy at all.
const WarnSilent = "features: audio is silent"

// ExtractFeatures computes heuristic energy and timbre descriptors of w.
// Danceability is only set when tempo carries a determined BPM.
func ExtractFeatures(w domain.Waveform, tempo domain.TempoEstimate) domain.Outcome[domain.FeatureSet] {
	p := dsp.DefaultParams()
	spec := dsp.STFT(w.Samples(), w.SampleRate(), p)
	return extractFeatures(w.Samples(), spec, p, tempo)
}

func extractFeatures(samples []float64, spec *dsp.Spectrogram, p dsp.Params, tempo domain.TempoEstimate) domain.Outcome[domain.FeatureSet] {
	ff := dsp.Frames(samples, spec, p)

	rmsMean := dsp.Mean(ff.RMS)
	rmsP95 := dsp.Percentile(ff.RMS, 95)
	energy := clamp01((safeLog(rmsMean) - safeLog(0.01)) / (safeLog(0.20) - safeLog(0.01)))

	centroid := dsp.Mean(ff.Centroid)
	rolloff := dsp.Mean(ff.Rolloff)
	flatness := dsp.Mean(ff.Flatness)
	zcr := dsp.Mean(ff.ZCR)

	centroidN := clamp01((centroid - 1000) / (4500 - 1000))
	rolloffN := clamp01((rolloff - 2000) / (8000 - 2000))
	flatnessN := clamp01(flatness)

	acousticness := clamp01(1 - (0.55*centroidN + 0.30*rolloffN + 0.15*flatnessN))
	speechiness := clamp01(0.45*clamp01(zcr/0.15) + 0.35*flatnessN + 0.20*centroidN)

	var danceability *float64
	if tempo.Determined() {
		fit := clamp01(math.Exp(-math.Pow(tempo.BPM-120, 2) / (2 * 25 * 25)))
		d := clamp01(0.55*fit + 0.30*clamp01(tempo.Confidence) + 0.15*energy)
		danceability = &d
	}

	loudness := 20 * math.Log10(math.Max(rmsP95, 1e-12))
	loudnessNorm := clamp01((loudness + 35) / 30)

	fs := domain.FeatureSet{
		LoudnessProxyDB:    loudness,
		LoudnessNorm:       loudnessNorm,
		Energy:             energy,
		Danceability:       danceability,
		Acousticness:       acousticness,
		Speechiness:        speechiness,
		SpectralCentroidHz: centroid,
		SpectralRolloffHz:  rolloff,
		SpectralFlatness:   flatness,
		ZCR:                zcr,
	}
	if dsp.Max(ff.RMS) == 0 {
		return domain.Fallback(fs, WarnSilent)
	}
	return domain.Ok(fs)
}
