package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/ewilliams-labs/cadence/internal/core/ports"
)

// Decoder converts any input ffmpeg understands into mono 16-bit WAV.
type Decoder struct {
	bin    string
	tmpDir string
}

var _ ports.Decoder = (*Decoder)(nil)

// NewDecoder uses the ffmpeg binary at bin and writes into tmpDir.
func NewDecoder(bin, tmpDir string) *Decoder {
	if bin == "" {
		bin = DefaultBinary
	}
	return &Decoder{bin: bin, tmpDir: tmpDir}
}

// Decode implements ports.Decoder.
func (d *Decoder) Decode(ctx context.Context, inputPath string, targetSampleRate int) (ports.DecodedAudio, error) {
	if targetSampleRate <= 0 {
		return ports.DecodedAudio{}, fmt.Errorf("ffmpeg: invalid target sample rate %d", targetSampleRate)
	}
	out, err := os.CreateTemp(d.tmpDir, "decoded-*.wav")
	if err != nil {
		return ports.DecodedAudio{}, fmt.Errorf("ffmpeg: failed to create output: %w", err)
	}
	path := out.Name()
	_ = out.Close()

	args := []string{
		"-hide_banner", "-nostats", "-y",
		"-i", inputPath,
		"-ac", "1",
		"-ar", strconv.Itoa(targetSampleRate),
		"-vn",
		"-map_metadata", "-1",
		"-fflags", "+bitexact",
		"-f", "wav",
		"-acodec", "pcm_s16le",
		path,
	}
	if output, err := runCmd(ctx, d.bin, args...); err != nil {
		_ = os.Remove(path)
		return ports.DecodedAudio{}, fmt.Errorf("ffmpeg: decode failed: %w: %s", err, tail(output, 1000))
	}

	return ports.NewDecodedAudio(path, targetSampleRate, func() error {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		return nil
	}), nil
}
