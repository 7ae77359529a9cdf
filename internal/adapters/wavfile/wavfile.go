// Package wavfile reads and writes mono PCM WAV files.
package wavfile

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/mjibson/go-dsp/wav"

	"github.com/ewilliams-labs/cadence/internal/core/domain"
	"github.com/ewilliams-labs/cadence/internal/core/ports"
)

// Info describes a WAV stream without its samples.
type Info struct {
	SampleRate  int
	Channels    int
	Frames      int
	DurationSec float64
}

// Read decodes a PCM or IEEE-float WAV stream and mixes it down to mono
// samples in [-1, 1].
func Read(r io.Reader) ([]float64, int, error) {
	w, frames, err := open(r)
	if err != nil {
		return nil, 0, err
	}
	channels := int(w.NumChannels)
	if frames == 0 {
		return []float64{}, int(w.SampleRate), nil
	}
	data, err := w.ReadSamples(frames * channels)
	if err != nil {
		return nil, 0, fmt.Errorf("wavfile: failed to read samples: %w", err)
	}
	raw, err := toFloat(data)
	if err != nil {
		return nil, 0, err
	}

	mono := make([]float64, frames)
	for i := range mono {
		var sum float64
		for c := 0; c < channels; c++ {
			sum += raw[i*channels+c]
		}
		mono[i] = sum / float64(channels)
	}
	return mono, int(w.SampleRate), nil
}

// Stat reads only the header of the WAV file at path.
func Stat(path string) (Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return Info{}, fmt.Errorf("wavfile: %w", err)
	}
	defer f.Close()
	w, frames, err := open(f)
	if err != nil {
		return Info{}, err
	}
	return Info{
		SampleRate:  int(w.SampleRate),
		Channels:    int(w.NumChannels),
		Frames:      frames,
		DurationSec: float64(frames) / float64(w.SampleRate),
	}, nil
}

// open parses the header and returns the number of whole frames in the data
// chunk. wav.Wav.Samples rounds the count down to a multiple of eight, so
// the chunk size is taken from the bytes wav.New consumed last.
func open(r io.Reader) (*wav.Wav, int, error) {
	cr := &chunkReader{r: r}
	w, err := wav.New(cr)
	if err != nil {
		return nil, 0, fmt.Errorf("wavfile: failed to parse header: %w", err)
	}
	channels := int(w.NumChannels)
	if channels < 1 || w.SampleRate == 0 {
		return nil, 0, fmt.Errorf("wavfile: invalid header: %d channels at %d Hz", channels, w.SampleRate)
	}
	width := int(w.BitsPerSample) / 8
	if width < 1 {
		return nil, 0, fmt.Errorf("wavfile: unsupported sample width %d bits", w.BitsPerSample)
	}
	size := int(binary.LittleEndian.Uint32(cr.last[:]))
	return w, size / (width * channels), nil
}

// chunkReader remembers the last four bytes read. wav.New stops right after
// the data chunk header, whose final field is the chunk size.
type chunkReader struct {
	r    io.Reader
	last [4]byte
}

func (c *chunkReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if n >= len(c.last) {
		copy(c.last[:], p[n-len(c.last):n])
	} else if n > 0 {
		buf := append(c.last[n:], p[:n]...)
		copy(c.last[:], buf)
	}
	return n, err
}

// toFloat converts the sample slice returned by wav.ReadSamples to [-1, 1].
func toFloat(data any) ([]float64, error) {
	switch d := data.(type) {
	case []int16:
		out := make([]float64, len(d))
		for i, v := range d {
			out[i] = float64(v) / 32768
		}
		return out, nil
	case []uint8:
		out := make([]float64, len(d))
		for i, v := range d {
			out[i] = (float64(v) - 128) / 128
		}
		return out, nil
	case []float32:
		out := make([]float64, len(d))
		for i, v := range d {
			out[i] = float64(v)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("wavfile: unsupported sample type %T", data)
	}
}

// Write encodes mono samples as a 16-bit PCM WAV stream. Samples outside
// [-1, 1] are clipped.
func Write(out io.Writer, samples []float64, sampleRate int) error {
	const (
		channels      = 1
		bitsPerSample = 16
		blockAlign    = channels * bitsPerSample / 8
	)
	dataSize := uint32(len(samples) * blockAlign)
	header := []any{
		[4]byte{'R', 'I', 'F', 'F'},
		36 + dataSize,
		[4]byte{'W', 'A', 'V', 'E'},
		[4]byte{'f', 'm', 't', ' '},
		uint32(16),
		uint16(1), // PCM
		uint16(channels),
		uint32(sampleRate),
		uint32(sampleRate * blockAlign),
		uint16(blockAlign),
		uint16(bitsPerSample),
		[4]byte{'d', 'a', 't', 'a'},
		dataSize,
	}
	for _, field := range header {
		if err := binary.Write(out, binary.LittleEndian, field); err != nil {
			return fmt.Errorf("wavfile: failed to write header: %w", err)
		}
	}

	pcm := make([]int16, len(samples))
	for i, v := range samples {
		v = math.Max(-1, math.Min(1, v))
		pcm[i] = int16(math.Round(v * math.MaxInt16))
	}
	if err := binary.Write(out, binary.LittleEndian, pcm); err != nil {
		return fmt.Errorf("wavfile: failed to write samples: %w", err)
	}
	return nil
}

// Loader reads decoded WAV files into waveforms.
type Loader struct{}

var _ ports.WaveformLoader = Loader{}

// Load reads the file at path as a mono waveform at its native rate.
func (Loader) Load(path string) (domain.Waveform, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.Waveform{}, fmt.Errorf("wavfile: %w", err)
	}
	defer f.Close()

	samples, sr, err := Read(f)
	if err != nil {
		return domain.Waveform{}, err
	}
	return domain.NewWaveform(samples, sr)
}
