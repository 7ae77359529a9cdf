package analysis

import (
	"math"

	"github.com/ewilliams-labs/cadence/internal/core/domain"
	"github.com/ewilliams-labs/cadence/internal/dsp"
	"gonum.org/v1/gonum/dsp/fourier"
)

const (
	minTempoSeconds = 3.0
	minOnsetFrames  = 16

	melBands        = 128
	tempoHPSSKernel = 31
	powerAmin       = 1e-10
	topDB           = 80.0
	weakOnsetDB     = 0.1

	tempogramWindow = 384
	autocorrSize    = 1024
	priorBPM        = 120.0
	priorOctaves    = 1.0
	minLagBPM       = 30.0
	maxLagBPM       = 300.0

	peakNeighborhood = 2

	tempogramFailureConfidence = 0.35
	noTempoBinsConfidence      = 0.25
	weakOnsetConfidence        = 0.25
)

// Tempo warnings.
const (
	WarnTempoShort      = "tempo: audio shorter than 3s"
	WarnTempoNoOnsets   = "tempo: no rhythmic onset structure detected"
	WarnTempoWeakOnsets = "tempo: weak onset structure, confidence lowered"
	WarnTempoFewFrames  = "tempo: onset envelope too short"
	WarnTempoSeparation = "tempo: percussive separation failed, using full spectrum"
	WarnTempogram       = "tempo: tempogram failed, confidence lowered"
)

// EstimateTempo estimates the global tempo of w.
func EstimateTempo(w domain.Waveform) domain.Outcome[domain.TempoEstimate] {
	if w.Duration() < minTempoSeconds {
		return domain.Fallback(domain.TempoEstimate{}, WarnTempoShort)
	}
	return estimateTempo(dsp.STFT(w.Samples(), w.SampleRate(), dsp.DefaultParams()))
}

func estimateTempo(spec *dsp.Spectrogram) domain.Outcome[domain.TempoEstimate] {
	var warnings []string
	env, err := onsetEnvelope(spec)
	if err != nil {
		warnings = append(warnings, WarnTempoSeparation)
	}
	if len(env) < minOnsetFrames {
		return domain.Fallback(domain.TempoEstimate{}, append(warnings, WarnTempoFewFrames)...)
	}
	frameRate := spec.FrameRate()
	candidates := tempoCandidates(env, frameRate)
	if len(candidates) == 0 {
		return domain.Fallback(domain.TempoEstimate{}, append(warnings, WarnTempoNoOnsets)...)
	}
	bpm := math.Max(domain.MinBPM, math.Min(domain.MaxBPM, dsp.Median(candidates)))

	conf, err := tempoConfidence(env, frameRate, bpm)
	if err != nil {
		conf = tempogramFailureConfidence
		warnings = append(warnings, WarnTempogram)
	}
	// Envelopes peaking below weakOnsetDB keep their BPM; confidence is
	// capped in proportion to the peak.
	if peak := dsp.Max(env); peak < weakOnsetDB {
		conf = math.Min(conf, weakOnsetConfidence*clamp01(peak/weakOnsetDB))
		warnings = append(warnings, WarnTempoWeakOnsets)
	}

	est, err := domain.NewTempoEstimate(bpm, conf)
	if err != nil {
		return domain.Fallback(domain.TempoEstimate{}, append(warnings, WarnTempoNoOnsets)...)
	}
	out := domain.Ok(est)
	for _, w := range warnings {
		out = out.Warn(w)
	}
	return out
}

// onsetEnvelope computes a spectral-flux onset strength curve from the
// percussive part of the mel power spectrogram. When separation fails the
// full mel spectrogram is used and the error is returned alongside the curve.
func onsetEnvelope(spec *dsp.Spectrogram) ([]float64, error) {
	fb := dsp.NewMelFilterbank(spec.SampleRate, spec.NFFT, melBands)
	mel := fb.Apply(spec.Power())

	source := mel
	_, perc, sepErr := dsp.HPSS(mel, tempoHPSSKernel, tempoHPSSKernel)
	if sepErr == nil {
		source = perc
	}

	var ref float64
	for _, row := range mel {
		ref = math.Max(ref, dsp.Max(row))
	}
	floor := 10*math.Log10(math.Max(ref, powerAmin)) - topDB

	n := len(source)
	env := make([]float64, n)
	prev := make([]float64, melBands)
	cur := make([]float64, melBands)
	for t := 0; t < n; t++ {
		for m, v := range source[t] {
			db := 10 * math.Log10(math.Max(v, powerAmin))
			if math.IsNaN(db) {
				db = floor
			}
			cur[m] = math.Max(db, floor)
		}
		if t > 0 {
			var sum float64
			for m := range cur {
				sum += math.Max(0, cur[m]-prev[m])
			}
			env[t] = sum / float64(len(cur))
		}
		prev, cur = cur, prev
	}

	// Frames that overlap the centering pad see a spurious step.
	edge := spec.NFFT/(2*spec.Hop) + 1
	for i := 0; i < edge && i < n; i++ {
		env[i] = 0
		env[n-1-i] = 0
	}
	return env, sepErr
}

// tempoCandidates returns one BPM estimate per frame from the windowed
// autocorrelation of the onset envelope, weighted by a log-normal prior.
// Frames whose window holds no onset energy are skipped.
func tempoCandidates(env []float64, frameRate float64) []float64 {
	lagLo := int(math.Ceil(60 * frameRate / maxLagBPM))
	lagHi := int(math.Floor(60 * frameRate / minLagBPM))
	if lagLo < 1 {
		lagLo = 1
	}
	if lagHi > tempogramWindow-1 {
		lagHi = tempogramWindow - 1
	}
	if lagLo > lagHi {
		return nil
	}

	prior := make([]float64, lagHi+1)
	for lag := lagLo; lag <= lagHi; lag++ {
		bpm := 60 * frameRate / float64(lag)
		z := math.Log2(bpm/priorBPM) / priorOctaves
		prior[lag] = -0.5 * z * z
	}

	win := dsp.PeriodicHann(tempogramWindow)
	padded := make([]float64, len(env)+tempogramWindow)
	copy(padded[tempogramWindow/2:], env)

	fft := fourier.NewFFT(autocorrSize)
	frame := make([]float64, autocorrSize)
	coeffs := make([]complex128, autocorrSize/2+1)
	ac := make([]float64, autocorrSize)

	candidates := make([]float64, 0, len(env))
	for t := range env {
		for i := 0; i < tempogramWindow; i++ {
			frame[i] = padded[t+i] * win[i]
		}
		coeffs = fft.Coefficients(coeffs, frame)
		for k, c := range coeffs {
			re, im := real(c), imag(c)
			coeffs[k] = complex(re*re+im*im, 0)
		}
		ac = fft.Sequence(ac, coeffs)
		if ac[0] <= 0 {
			continue
		}

		best, bestScore := -1, math.Inf(-1)
		for lag := lagLo; lag <= lagHi; lag++ {
			r := math.Max(0, ac[lag]/ac[0])
			score := math.Log1p(1e6*r) + prior[lag]
			if score > bestScore {
				best, bestScore = lag, score
			}
		}
		if best > 0 {
			candidates = append(candidates, 60*frameRate/float64(best))
		}
	}
	return candidates
}

// tempoConfidence scores how clearly bpm dominates the time-averaged
// Fourier tempogram of env.
func tempoConfidence(env []float64, frameRate, bpm float64) (float64, error) {
	for _, v := range env {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, dsp.ErrNonFinite
		}
	}

	mean := fourierTempogram(env)
	binBPM := func(k int) float64 { return float64(k) * frameRate * 60 / tempogramWindow }

	var valid []int
	for k := range mean {
		b := binBPM(k)
		if b >= domain.MinBPM && b <= domain.MaxBPM && !math.IsNaN(mean[k]) && !math.IsInf(mean[k], 0) {
			valid = append(valid, k)
		}
	}
	if len(valid) == 0 {
		return noTempoBinsConfidence, nil
	}

	idx := 0
	for i, k := range valid {
		if math.Abs(binBPM(k)-bpm) < math.Abs(binBPM(valid[idx])-bpm) {
			idx = i
		}
	}
	peak1 := mean[valid[idx]]
	peak2 := 0.0
	for i, k := range valid {
		if i >= idx-peakNeighborhood && i <= idx+peakNeighborhood {
			continue
		}
		peak2 = math.Max(peak2, mean[k])
	}

	ratio := peak1 / (peak1 + peak2 + eps)
	prominence := (peak1 - peak2) / (math.Abs(peak1) + eps)
	onsetNorm := dsp.Mean(env) / (dsp.Percentile(env, 95) + eps)

	conf := 0.55*clamp01(ratio) + 0.35*clamp01(prominence) + 0.10*clamp01(onsetNorm)
	return clamp01(conf), nil
}

// fourierTempogram returns the mean magnitude per tempo-frequency bin of
// Hann-windowed, mean-removed envelope segments centered on every frame.
func fourierTempogram(env []float64) []float64 {
	win := dsp.PeriodicHann(tempogramWindow)
	padded := make([]float64, len(env)+tempogramWindow)
	copy(padded[tempogramWindow/2:], env)

	fft := fourier.NewFFT(tempogramWindow)
	frame := make([]float64, tempogramWindow)
	coeffs := make([]complex128, tempogramWindow/2+1)
	sum := make([]float64, len(coeffs))
	for t := range env {
		seg := padded[t : t+tempogramWindow]
		mu := dsp.Mean(seg)
		for i := range frame {
			frame[i] = (seg[i] - mu) * win[i]
		}
		coeffs = fft.Coefficients(coeffs, frame)
		for k, c := range coeffs {
			sum[k] += math.Hypot(real(c), imag(c))
		}
	}
	for k := range sum {
		sum[k] /= float64(len(env))
	}
	return sum
}
