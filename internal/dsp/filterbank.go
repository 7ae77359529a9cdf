package dsp

import (
	"math"
)

// Slaney mel scale: linear below 1 kHz, logarithmic above.
const (
	melFSp      = 200.0 / 3
	melMinLogHz = 1000.0
)

var (
	melMinLog  = melMinLogHz / melFSp
	melLogStep = math.Log(6.4) / 27
)

// HzToMel converts a frequency to the Slaney mel scale.
func HzToMel(hz float64) float64 {
	if hz < melMinLogHz {
		return hz / melFSp
	}
	return melMinLog + math.Log(hz/melMinLogHz)/melLogStep
}

// MelToHz is the inverse of HzToMel.
func MelToHz(mel float64) float64 {
	if mel < melMinLog {
		return mel * melFSp
	}
	return melMinLogHz * math.Exp(melLogStep*(mel-melMinLog))
}

type melBand struct {
	start   int
	weights []float64
}

// MelFilterbank maps STFT bins onto triangular, area-normalized mel bands
// spanning 0 Hz to Nyquist.
type MelFilterbank struct {
	bands []melBand
}

// NewMelFilterbank builds nMels bands for an nfft-point STFT at sampleRate.
func NewMelFilterbank(sampleRate, nfft, nMels int) *MelFilterbank {
	nBins := nfft/2 + 1
	maxMel := HzToMel(float64(sampleRate) / 2)
	edges := make([]float64, nMels+2)
	for i := range edges {
		edges[i] = MelToHz(maxMel * float64(i) / float64(nMels+1))
	}
	binHz := float64(sampleRate) / float64(nfft)

	fb := &MelFilterbank{bands: make([]melBand, nMels)}
	for m := 0; m < nMels; m++ {
		lo, center, hi := edges[m], edges[m+1], edges[m+2]
		norm := 2 / (hi - lo)
		band := melBand{start: -1}
		for k := 0; k < nBins; k++ {
			f := float64(k) * binHz
			w := math.Max(0, math.Min((f-lo)/(center-lo), (hi-f)/(hi-center)))
			if w <= 0 {
				if band.start >= 0 {
					break
				}
				continue
			}
			if band.start < 0 {
				band.start = k
			}
			band.weights = append(band.weights, w*norm)
		}
		if band.start < 0 {
			band.start = 0
		}
		fb.bands[m] = band
	}
	return fb
}

// Bands returns the number of mel bands.
func (fb *MelFilterbank) Bands() int { return len(fb.bands) }

// Apply projects a [frame][bin] matrix onto the mel bands.
func (fb *MelFilterbank) Apply(s [][]float64) [][]float64 {
	out := newMatrix(len(s), len(fb.bands))
	for t, row := range s {
		for m, band := range fb.bands {
			var sum float64
			for i, w := range band.weights {
				sum += w * row[band.start+i]
			}
			out[t][m] = sum
		}
	}
	return out
}

// MIDIToHz converts a (fractional) MIDI note number to frequency.
func MIDIToHz(midi float64) float64 {
	return 440 * math.Pow(2, (midi-69)/12)
}

// HzToMIDI converts a frequency to a fractional MIDI note number.
func HzToMIDI(hz float64) float64 {
	return 69 + 12*math.Log2(hz/440)
}

// PitchSpectrogram pools STFT magnitudes into semitone bins from minMIDI
// to maxMIDI inclusive. Each STFT bin contributes to its nearest semitone.
func PitchSpectrogram(spec *Spectrogram, minMIDI, maxMIDI int) [][]float64 {
	nPitches := maxMIDI - minMIDI + 1
	target := make([]int, spec.Bins())
	for k := range target {
		target[k] = -1
		f := spec.BinFrequency(k)
		if f <= 0 {
			continue
		}
		note := int(math.Round(HzToMIDI(f)))
		if note >= minMIDI && note <= maxMIDI {
			target[k] = note - minMIDI
		}
	}

	out := newMatrix(spec.Frames(), nPitches)
	for t, row := range spec.Mag {
		for k, v := range row {
			if idx := target[k]; idx >= 0 {
				out[t][idx] += v
			}
		}
	}
	return out
}

// Chroma folds a semitone matrix whose first column is minMIDI into twelve
// pitch classes (C = 0). Each frame is normalized by its maximum and the
// result is averaged over time. Frames without energy contribute zeros.
func Chroma(pitch [][]float64, minMIDI int) [12]float64 {
	var mean [12]float64
	if len(pitch) == 0 {
		return mean
	}
	for _, row := range pitch {
		var frame [12]float64
		for i, v := range row {
			frame[(minMIDI+i)%12] += v
		}
		var peak float64
		for _, v := range frame {
			peak = math.Max(peak, v)
		}
		if peak <= 0 {
			continue
		}
		for pc, v := range frame {
			mean[pc] += v / peak
		}
	}
	for pc := range mean {
		mean[pc] /= float64(len(pitch))
	}
	return mean
}
