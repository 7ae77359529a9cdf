package analysis

import "math"

const eps = 1e-9

func clamp01(x float64) float64 {
	if math.IsNaN(x) {
		return 0
	}
	return math.Max(0, math.Min(1, x))
}

func safeLog(x float64) float64 {
	return math.Log(math.Max(x, 1e-12))
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
