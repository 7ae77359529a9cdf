// Package native decodes MP3 and WAV uploads in-process, for hosts without
// an ffmpeg binary.
package native

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/hajimehoshi/go-mp3"

	"github.com/ewilliams-labs/cadence/internal/adapters/wavfile"
	"github.com/ewilliams-labs/cadence/internal/core/ports"
)

// Decoder converts .mp3 and .wav files into mono 16-bit WAV at a target
// sample rate.
type Decoder struct {
	tmpDir string
}

var _ ports.Decoder = (*Decoder)(nil)

// NewDecoder writes decoded files into tmpDir (the OS default when empty).
func NewDecoder(tmpDir string) *Decoder {
	return &Decoder{tmpDir: tmpDir}
}

// Decode implements ports.Decoder.
func (d *Decoder) Decode(ctx context.Context, inputPath string, targetSampleRate int) (ports.DecodedAudio, error) {
	if targetSampleRate <= 0 {
		return ports.DecodedAudio{}, fmt.Errorf("native: invalid target sample rate %d", targetSampleRate)
	}
	ext := strings.ToLower(filepath.Ext(inputPath))
	if ext != ".mp3" && ext != ".wav" {
		return ports.DecodedAudio{}, ports.UnsupportedFormatError{Ext: ext}
	}

	in, err := os.Open(inputPath)
	if err != nil {
		return ports.DecodedAudio{}, fmt.Errorf("native: %w", err)
	}
	defer in.Close()

	var (
		samples []float64
		rate    int
	)
	switch ext {
	case ".mp3":
		samples, rate, err = decodeMP3(in)
	case ".wav":
		samples, rate, err = wavfile.Read(in)
	}
	if err != nil {
		return ports.DecodedAudio{}, fmt.Errorf("native: failed to decode %s: %w", filepath.Base(inputPath), err)
	}
	if err := ctx.Err(); err != nil {
		return ports.DecodedAudio{}, err
	}

	samples = Resample(samples, rate, targetSampleRate)

	out, err := os.CreateTemp(d.tmpDir, "decoded-*.wav")
	if err != nil {
		return ports.DecodedAudio{}, fmt.Errorf("native: failed to create output: %w", err)
	}
	path := out.Name()
	werr := wavfile.Write(out, samples, targetSampleRate)
	cerr := out.Close()
	if err := errors.Join(werr, cerr); err != nil {
		_ = os.Remove(path)
		return ports.DecodedAudio{}, fmt.Errorf("native: failed to write output: %w", err)
	}

	return ports.NewDecodedAudio(path, targetSampleRate, func() error {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		return nil
	}), nil
}

// decodeMP3 reads a whole MP3 stream. go-mp3 always yields 16-bit
// little-endian stereo, which is mixed down to mono.
func decodeMP3(r io.Reader) ([]float64, int, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, 0, fmt.Errorf("mp3 decode failed: %w", err)
	}

	var samples []float64
	if n := dec.Length(); n > 0 {
		samples = make([]float64, 0, n/4)
	}
	buf := make([]byte, 4096)
	var pending []byte
	for {
		n, err := dec.Read(buf)
		if n > 0 {
			chunk := append(pending, buf[:n]...)
			i := 0
			for ; i+3 < len(chunk); i += 4 {
				left := int16(chunk[i]) | int16(chunk[i+1])<<8
				right := int16(chunk[i+2]) | int16(chunk[i+3])<<8
				samples = append(samples, (float64(left)+float64(right))/2/32768)
			}
			pending = append(pending[:0], chunk[i:]...)
		}
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, 0, fmt.Errorf("mp3 read failed: %w", err)
		}
	}
	if len(samples) == 0 {
		return nil, 0, errors.New("mp3 contains no samples")
	}
	return samples, dec.SampleRate(), nil
}
