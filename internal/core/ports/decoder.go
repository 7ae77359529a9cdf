package ports

import (
	"context"
	"errors"
	"fmt"

	"github.com/ewilliams-labs/cadence/internal/core/domain"
)

// ErrUnsupportedFormat indicates a decoder cannot handle the input container.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// UnsupportedFormatError provides context for a rejected input.
type UnsupportedFormatError struct {
	Ext string
}

func (e UnsupportedFormatError) Error() string {
	if e.Ext == "" {
		return ErrUnsupportedFormat.Error()
	}
	return fmt.Sprintf("unsupported audio format %q", e.Ext)
}

func (e UnsupportedFormatError) Is(target error) bool {
	return target == ErrUnsupportedFormat
}

// DecodedAudio is a mono 16-bit PCM WAV file produced by a Decoder. The
// caller owns the file and must call Release when done with it.
type DecodedAudio struct {
	WAVPath    string
	SampleRate int
	release    func() error
}

// NewDecodedAudio wraps a decoded file and its cleanup function.
func NewDecodedAudio(path string, sampleRate int, release func() error) DecodedAudio {
	return DecodedAudio{WAVPath: path, SampleRate: sampleRate, release: release}
}

// Release removes the decoded file. It is safe to call on a zero value.
func (d DecodedAudio) Release() error {
	if d.release == nil {
		return nil
	}
	return d.release()
}

// Decoder converts an uploaded audio file into mono PCM at a target rate.
type Decoder interface {
	Decode(ctx context.Context, inputPath string, targetSampleRate int) (DecodedAudio, error)
}

// WaveformLoader reads a decoded WAV file into memory.
type WaveformLoader interface {
	Load(path string) (domain.Waveform, error)
}
