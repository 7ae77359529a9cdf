// Package dsp holds the short-time spectral primitives used by the
// estimators: STFT magnitude, per-frame descriptors, median-filter
// harmonic/percussive separation and mel/semitone filterbanks.
package dsp

import (
	"math/cmplx"

	"github.com/mjibson/go-dsp/window"
	"gonum.org/v1/gonum/dsp/fourier"
)

// Params configures framing.
type Params struct {
	FrameLength    int
	HopLength      int
	RolloffPercent float64
}

// DefaultParams returns the framing used throughout the analyzer.
func DefaultParams() Params {
	return Params{FrameLength: 2048, HopLength: 512, RolloffPercent: 0.85}
}

// Spectrogram is an STFT magnitude matrix indexed [frame][bin].
type Spectrogram struct {
	Mag        [][]float64
	SampleRate int
	NFFT       int
	Hop        int
}

// Frames returns the number of frames.
func (s *Spectrogram) Frames() int { return len(s.Mag) }

// Bins returns the number of frequency bins per frame (NFFT/2+1).
func (s *Spectrogram) Bins() int { return s.NFFT/2 + 1 }

// BinFrequency returns the center frequency of bin k in Hz.
func (s *Spectrogram) BinFrequency(k int) float64 {
	return float64(k) * float64(s.SampleRate) / float64(s.NFFT)
}

// FrameRate returns frames per second.
func (s *Spectrogram) FrameRate() float64 {
	return float64(s.SampleRate) / float64(s.Hop)
}

// Power returns the squared magnitude matrix.
func (s *Spectrogram) Power() [][]float64 {
	out := make([][]float64, len(s.Mag))
	for t, row := range s.Mag {
		p := make([]float64, len(row))
		for k, v := range row {
			p[k] = v * v
		}
		out[t] = p
	}
	return out
}

// PeriodicHann returns an n-point periodic Hann window.
func PeriodicHann(n int) []float64 {
	if n <= 1 {
		return []float64{1}
	}
	return window.Hann(n + 1)[:n]
}

// centerPad zero-pads samples by half a frame on both sides.
func centerPad(samples []float64, frameLength int) []float64 {
	half := frameLength / 2
	padded := make([]float64, len(samples)+2*half)
	copy(padded[half:], samples)
	return padded
}

// frameCount is the number of centered frames for n samples.
func frameCount(n int, p Params) int {
	return 1 + n/p.HopLength
}

// STFT computes the centered, Hann-windowed magnitude spectrogram.
func STFT(samples []float64, sampleRate int, p Params) *Spectrogram {
	padded := centerPad(samples, p.FrameLength)
	nFrames := frameCount(len(samples), p)
	win := PeriodicHann(p.FrameLength)
	fft := fourier.NewFFT(p.FrameLength)

	frame := make([]float64, p.FrameLength)
	coeffs := make([]complex128, p.FrameLength/2+1)
	mag := make([][]float64, nFrames)
	for t := 0; t < nFrames; t++ {
		start := t * p.HopLength
		for i := range frame {
			frame[i] = padded[start+i] * win[i]
		}
		coeffs = fft.Coefficients(coeffs, frame)
		row := make([]float64, len(coeffs))
		for k, c := range coeffs {
			row[k] = cmplx.Abs(c)
		}
		mag[t] = row
	}
	return &Spectrogram{Mag: mag, SampleRate: sampleRate, NFFT: p.FrameLength, Hop: p.HopLength}
}
