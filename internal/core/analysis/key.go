package analysis

import (
	"math"

	"github.com/ewilliams-labs/cadence/internal/core/domain"
	"github.com/ewilliams-labs/cadence/internal/dsp"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const (
	minKeySeconds = 6.0

	pitchMinMIDI     = 36
	pitchMaxMIDI     = 108
	keyTimeKernel    = 31
	keyFreqKernel    = 17
	minChromaSum     = 1e-6
	minKeyConfidence = 0.25
)

// Key warnings.
const (
	WarnKeyShort      = "key: audio shorter than 6s"
	WarnKeySilent     = "key: no tonal content detected"
	WarnKeySeparation = "key: harmonic separation failed, using full spectrum"
)

// Krumhansl–Kessler probe-tone profiles, tonic first.
var (
	majorProfile = [12]float64{6.35, 2.23, 3.48, 2.33, 4.38, 4.09, 2.52, 5.19, 2.39, 3.66, 2.29, 2.88}
	minorProfile = [12]float64{6.33, 2.68, 3.52, 5.38, 2.60, 3.53, 2.54, 4.75, 3.98, 2.69, 3.34, 3.17}
)

// EstimateKey estimates the tonal center and mode of w.
func EstimateKey(w domain.Waveform) domain.Outcome[domain.KeyEstimate] {
	if w.Duration() < minKeySeconds {
		return domain.Fallback(domain.UnknownKey(0), WarnKeyShort)
	}
	return estimateKey(dsp.STFT(w.Samples(), w.SampleRate(), dsp.DefaultParams()))
}

func estimateKey(spec *dsp.Spectrogram) domain.Outcome[domain.KeyEstimate] {
	var warnings []string
	pitch := dsp.PitchSpectrogram(spec, pitchMinMIDI, pitchMaxMIDI)
	harmonic, _, err := dsp.HPSS(pitch, keyTimeKernel, keyFreqKernel)
	if err != nil {
		warnings = append(warnings, WarnKeySeparation)
		harmonic = pitch
	}

	chroma := dsp.Chroma(harmonic, pitchMinMIDI)
	if !chromaUsable(chroma) {
		return domain.Fallback(domain.UnknownKey(0), append(warnings, WarnKeySilent)...)
	}

	est := matchKeyProfiles(chroma)
	out := domain.Ok(est)
	for _, w := range warnings {
		out = out.Warn(w)
	}
	return out
}

func chromaUsable(chroma [12]float64) bool {
	var sum float64
	for _, v := range chroma {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
		sum += v
	}
	return sum >= minChromaSum
}

// matchKeyProfiles correlates the chroma vector against all 24 rotated key
// profiles. Ties between the best major and best minor favour major.
func matchKeyProfiles(chroma [12]float64) domain.KeyEstimate {
	c := zscore(chroma[:])
	maj := zscore(majorProfile[:])
	minr := zscore(minorProfile[:])

	var majScores, minScores [12]float64
	rolled := make([]float64, 12)
	for i := 0; i < 12; i++ {
		for j := range rolled {
			rolled[j] = c[(j+i)%12]
		}
		majScores[i] = floats.Dot(rolled, maj)
		minScores[i] = floats.Dot(rolled, minr)
	}

	bestMaj := floats.MaxIdx(majScores[:])
	bestMin := floats.MaxIdx(minScores[:])

	key, scale, best, bestGlobal := domain.PitchClasses[bestMaj], domain.ScaleMajor, majScores[bestMaj], bestMaj
	if minScores[bestMin] > majScores[bestMaj] {
		key, scale, best, bestGlobal = domain.PitchClasses[bestMin], domain.ScaleMinor, minScores[bestMin], 12+bestMin
	}

	second := math.Inf(-1)
	for i, s := range append(majScores[:], minScores[:]...) {
		if i != bestGlobal && s > second {
			second = s
		}
	}

	separation := clamp01(((best-second)/(math.Abs(best)+eps) + 0.2) / 1.2)
	strength := sigmoid(best / 2.5)
	conf := clamp01(0.65*separation + 0.35*strength)

	if conf < minKeyConfidence {
		return domain.UnknownKey(conf)
	}
	return domain.KeyEstimate{Key: key, Scale: scale, Confidence: conf}
}

func zscore(x []float64) []float64 {
	mean, std := stat.PopMeanStdDev(x, nil)
	std += eps
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = (v - mean) / std
	}
	return out
}
