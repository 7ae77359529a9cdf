package dsp

import (
	"errors"
	"math"
	"sort"
)

// ErrNonFinite is returned when a matrix holds NaN or Inf values.
var ErrNonFinite = errors.New("dsp: non-finite input")

const maskPower = 2.0

// HPSS splits a non-negative [frame][bin] matrix into harmonic and
// percussive parts. Harmonic energy is found by median filtering each bin
// across timeKernel frames, percussive energy by median filtering each frame
// across freqKernel bins; both are then applied as soft masks to the input.
func HPSS(s [][]float64, timeKernel, freqKernel int) (harmonic, percussive [][]float64, err error) {
	for _, row := range s {
		for _, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, nil, ErrNonFinite
			}
		}
	}
	if len(s) == 0 {
		return [][]float64{}, [][]float64{}, nil
	}
	nFrames, nBins := len(s), len(s[0])

	h := newMatrix(nFrames, nBins)
	col := make([]float64, nFrames)
	filtered := make([]float64, nFrames)
	for k := 0; k < nBins; k++ {
		for t := 0; t < nFrames; t++ {
			col[t] = s[t][k]
		}
		medianFilter(filtered, col, timeKernel)
		for t := 0; t < nFrames; t++ {
			h[t][k] = filtered[t]
		}
	}

	p := newMatrix(nFrames, nBins)
	for t := 0; t < nFrames; t++ {
		medianFilter(p[t], s[t], freqKernel)
	}

	harmonic = newMatrix(nFrames, nBins)
	percussive = newMatrix(nFrames, nBins)
	for t := 0; t < nFrames; t++ {
		for k := 0; k < nBins; k++ {
			mh, mp := softMasks(h[t][k], p[t][k])
			harmonic[t][k] = s[t][k] * mh
			percussive[t][k] = s[t][k] * mp
		}
	}
	return harmonic, percussive, nil
}

// softMasks returns Wiener-style masks for x against ref. Where both are
// zero both masks are zero.
func softMasks(x, ref float64) (mx, mref float64) {
	z := math.Max(x, ref)
	if z <= 0 {
		return 0, 0
	}
	a := math.Pow(x/z, maskPower)
	b := math.Pow(ref/z, maskPower)
	return a / (a + b), b / (a + b)
}

// medianFilter writes the running median of src with the given odd-sized
// kernel into dst, reflecting at the boundaries (d c b a | a b c d).
func medianFilter(dst, src []float64, kernel int) {
	n := len(src)
	half := kernel / 2
	buf := make([]float64, kernel)
	for i := 0; i < n; i++ {
		for j := -half; j <= half; j++ {
			buf[j+half] = src[reflectIndex(i+j, n)]
		}
		sort.Float64s(buf)
		dst[i] = buf[half]
	}
}

func reflectIndex(i, n int) int {
	if n == 1 {
		return 0
	}
	period := 2 * n
	i %= period
	if i < 0 {
		i += period
	}
	if i >= n {
		i = period - 1 - i
	}
	return i
}

func newMatrix(rows, cols int) [][]float64 {
	m := make([][]float64, rows)
	for i := range m {
		m[i] = make([]float64, cols)
	}
	return m
}
