package dsp

import (
	"math"
)

const flatnessAmin = 1e-10

// FrameFeatures holds per-frame descriptors aligned to spectrogram frames.
type FrameFeatures struct {
	RMS      []float64
	Centroid []float64
	Rolloff  []float64
	Flatness []float64
	ZCR      []float64
}

// Frames computes per-frame RMS, spectral centroid, rolloff, flatness and
// zero-crossing rate. spec must have been computed from samples with p.
func Frames(samples []float64, spec *Spectrogram, p Params) FrameFeatures {
	n := spec.Frames()
	ff := FrameFeatures{
		RMS:      make([]float64, n),
		Centroid: make([]float64, n),
		Rolloff:  make([]float64, n),
		Flatness: make([]float64, n),
		ZCR:      make([]float64, n),
	}

	padded := centerPad(samples, p.FrameLength)
	edge := edgePad(samples, p.FrameLength)
	for t := 0; t < n; t++ {
		start := t * p.HopLength
		ff.RMS[t] = rms(padded[start : start+p.FrameLength])
		ff.ZCR[t] = zeroCrossingRate(edge[start : start+p.FrameLength])

		row := spec.Mag[t]
		ff.Centroid[t] = centroid(row, spec)
		ff.Rolloff[t] = rolloff(row, spec, p.RolloffPercent)
		ff.Flatness[t] = flatness(row)
	}
	return ff
}

func rms(frame []float64) float64 {
	var sum float64
	for _, v := range frame {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(frame)))
}

func centroid(row []float64, spec *Spectrogram) float64 {
	var num, den float64
	for k, v := range row {
		num += spec.BinFrequency(k) * v
		den += v
	}
	if den <= 0 {
		return 0
	}
	return num / den
}

func rolloff(row []float64, spec *Spectrogram, percent float64) float64 {
	var total float64
	for _, v := range row {
		total += v
	}
	threshold := percent * total
	var cum float64
	for k, v := range row {
		cum += v
		if cum >= threshold {
			return spec.BinFrequency(k)
		}
	}
	return spec.BinFrequency(len(row) - 1)
}

// flatness is the ratio of geometric to arithmetic mean of the power
// spectrum. An all-zero frame yields 1.
func flatness(row []float64) float64 {
	var logSum, sum float64
	for _, v := range row {
		p := math.Max(v*v, flatnessAmin)
		logSum += math.Log(p)
		sum += p
	}
	n := float64(len(row))
	return math.Exp(logSum/n) / (sum / n)
}

// edgePad extends samples by repeating the boundary values.
func edgePad(samples []float64, frameLength int) []float64 {
	half := frameLength / 2
	out := make([]float64, len(samples)+2*half)
	copy(out[half:], samples)
	if len(samples) == 0 {
		return out
	}
	first, last := samples[0], samples[len(samples)-1]
	for i := 0; i < half; i++ {
		out[i] = first
		out[len(out)-1-i] = last
	}
	return out
}

// zeroCrossingRate counts sign changes per sample. Values within 1e-10 of
// zero count as positive.
func zeroCrossingRate(frame []float64) float64 {
	const threshold = 1e-10
	neg := func(v float64) bool { return v < -threshold }
	var crossings int
	for i := 1; i < len(frame); i++ {
		if neg(frame[i]) != neg(frame[i-1]) {
			crossings++
		}
	}
	return float64(crossings) / float64(len(frame))
}
