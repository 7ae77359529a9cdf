package ffmpeg

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"

	"go.uber.org/zap"

	"github.com/ewilliams-labs/cadence/internal/adapters/wavfile"
	"github.com/ewilliams-labs/cadence/internal/core/domain"
	"github.com/ewilliams-labs/cadence/internal/core/ports"
)

const minLoudnessSeconds = 1.0

// Loudness warnings.
const (
	WarnLoudnessShort       = "loudness: audio too short"
	WarnLoudnessUnavailable = "loudness: meter not available"
)

// The ebur128 summary prints "I: <value> LUFS" under "Integrated loudness:".
// Per-frame progress lines use the same form, so the last match wins.
var integratedRe = regexp.MustCompile(`\bI:\s*(-?inf|-?[\d.]+)\s*LUFS`)

// LoudnessMeter measures integrated loudness with ffmpeg's ebur128 filter.
type LoudnessMeter struct {
	bin    string
	logger *zap.Logger
}

var _ ports.LoudnessMeter = (*LoudnessMeter)(nil)

// NewLoudnessMeter uses the ffmpeg binary at bin.
func NewLoudnessMeter(bin string, logger *zap.Logger) *LoudnessMeter {
	if bin == "" {
		bin = DefaultBinary
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LoudnessMeter{bin: bin, logger: logger.Named("loudness")}
}

// Measure implements ports.LoudnessMeter.
func (m *LoudnessMeter) Measure(ctx context.Context, wavPath string) domain.Outcome[*float64] {
	info, err := wavfile.Stat(wavPath)
	if err != nil {
		return domain.Fallback[*float64](nil, fmt.Sprintf("loudness: could not read audio: %v", err))
	}
	if info.DurationSec < minLoudnessSeconds {
		return domain.Fallback[*float64](nil, WarnLoudnessShort)
	}

	args := []string{"-hide_banner", "-nostats", "-vn", "-i", wavPath, "-filter_complex", "ebur128", "-f", "null", "-"}
	out, err := runCmd(ctx, m.bin, args...)
	if err != nil {
		m.logger.Debug("ebur128 failed", zap.Error(err), zap.String("output", tail(out, 500)))
		return domain.Fallback[*float64](nil, fmt.Sprintf("loudness: ebur128 failed: %v", err))
	}
	lufs, err := parseIntegratedLoudness(out)
	if err != nil {
		return domain.Fallback[*float64](nil, fmt.Sprintf("loudness: %v", err))
	}
	return domain.Ok(&lufs)
}

func parseIntegratedLoudness(out string) (float64, error) {
	matches := integratedRe.FindAllStringSubmatch(out, -1)
	if len(matches) == 0 {
		return 0, fmt.Errorf("no integrated loudness in ffmpeg output")
	}
	raw := matches[len(matches)-1][1]
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("integrated loudness %q is not a finite number", raw)
	}
	return v, nil
}

// NoLoudness is the meter used when no ffmpeg binary is available.
type NoLoudness struct{}

var _ ports.LoudnessMeter = NoLoudness{}

// Measure always reports that no measurement could be made.
func (NoLoudness) Measure(ctx context.Context, wavPath string) domain.Outcome[*float64] {
	return domain.Fallback[*float64](nil, WarnLoudnessUnavailable)
}
