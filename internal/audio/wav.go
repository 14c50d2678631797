package audio

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
)

var (
	ErrUnsupportedWAV = errors.New("unsupported wav format")
	ErrInvalidWAV     = errors.New("invalid wav file")
)

const (
	encodingPCM   = 1
	encodingFloat = 3
)

// Format is the fmt chunk of a WAV file.
type Format struct {
	Encoding      uint16
	Channels      uint16
	SampleRate    uint32
	BitsPerSample uint16
}

// Levels are signal levels in dBFS over every sample of every channel.
// An all-zero signal measures -Inf.
type Levels struct {
	RMS     float64
	Peak    float64
	Samples int64
}

// Silent reports whether the signal stays under thresholdDBFS. The peak
// may exceed the threshold by 6 dB to tolerate clicks.
func (l Levels) Silent(thresholdDBFS float64) bool {
	if l.Samples == 0 {
		return true
	}
	return l.RMS <= thresholdDBFS && l.Peak <= thresholdDBFS+6
}

// MeasureWAV reads the WAV file at path and returns its format and levels.
func MeasureWAV(path string) (Format, Levels, error) {
	f, err := os.Open(path)
	if err != nil {
		return Format{}, Levels{}, fmt.Errorf("open wav: %w", err)
	}
	defer f.Close()

	return Measure(bufio.NewReader(f))
}

// Measure is MeasureWAV over a stream. Chunks after the data chunk are
// not read.
func Measure(r io.Reader) (Format, Levels, error) {
	var riff [12]byte
	if _, err := io.ReadFull(r, riff[:]); err != nil {
		return Format{}, Levels{}, invalid(err)
	}
	if string(riff[:4]) != "RIFF" || string(riff[8:12]) != "WAVE" {
		return Format{}, Levels{}, ErrInvalidWAV
	}

	var (
		format Format
		hasFmt bool
	)
	for {
		var header [8]byte
		if _, err := io.ReadFull(r, header[:]); err != nil {
			return Format{}, Levels{}, invalid(err)
		}
		id := string(header[:4])
		size := int64(binary.LittleEndian.Uint32(header[4:]))

		switch id {
		case "fmt ":
			if size < 16 {
				return Format{}, Levels{}, ErrInvalidWAV
			}
			var body [16]byte
			if _, err := io.ReadFull(r, body[:]); err != nil {
				return Format{}, Levels{}, invalid(err)
			}
			format = Format{
				Encoding:      binary.LittleEndian.Uint16(body[0:2]),
				Channels:      binary.LittleEndian.Uint16(body[2:4]),
				SampleRate:    binary.LittleEndian.Uint32(body[4:8]),
				BitsPerSample: binary.LittleEndian.Uint16(body[14:16]),
			}
			if err := skip(r, size-16+size%2); err != nil {
				return Format{}, Levels{}, err
			}
			hasFmt = true
		case "data":
			if !hasFmt {
				return Format{}, Levels{}, fmt.Errorf("%w: data chunk before fmt chunk", ErrInvalidWAV)
			}
			decode, err := sampleDecoder(format)
			if err != nil {
				return Format{}, Levels{}, err
			}
			levels, err := measureSamples(io.LimitReader(r, size), int(format.BitsPerSample/8), decode)
			if err != nil {
				return Format{}, Levels{}, err
			}
			return format, levels, nil
		default:
			if err := skip(r, size+size%2); err != nil {
				return Format{}, Levels{}, err
			}
		}
	}
}

func invalid(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: truncated", ErrInvalidWAV)
	}
	return fmt.Errorf("read wav: %w", err)
}

func skip(r io.Reader, n int64) error {
	if n <= 0 {
		return nil
	}
	if _, err := io.CopyN(io.Discard, r, n); err != nil {
		return invalid(err)
	}
	return nil
}

type decoder func(sample []byte) float64

func sampleDecoder(format Format) (decoder, error) {
	switch {
	case format.Encoding == encodingPCM && format.BitsPerSample == 8:
		return func(s []byte) float64 { return (float64(s[0]) - 128) / 128 }, nil
	case format.Encoding == encodingPCM && format.BitsPerSample == 16:
		return func(s []byte) float64 { return float64(int16(binary.LittleEndian.Uint16(s))) / (1 << 15) }, nil
	case format.Encoding == encodingPCM && format.BitsPerSample == 24:
		return func(s []byte) float64 {
			v := int32(uint32(s[0])<<8|uint32(s[1])<<16|uint32(s[2])<<24) >> 8
			return float64(v) / (1 << 23)
		}, nil
	case format.Encoding == encodingPCM && format.BitsPerSample == 32:
		return func(s []byte) float64 { return float64(int32(binary.LittleEndian.Uint32(s))) / (1 << 31) }, nil
	case format.Encoding == encodingFloat && format.BitsPerSample == 32:
		return func(s []byte) float64 { return float64(math.Float32frombits(binary.LittleEndian.Uint32(s))) }, nil
	case format.Encoding == encodingFloat && format.BitsPerSample == 64:
		return func(s []byte) float64 { return math.Float64frombits(binary.LittleEndian.Uint64(s)) }, nil
	default:
		return nil, fmt.Errorf("%w: encoding %d with %d bits per sample", ErrUnsupportedWAV, format.Encoding, format.BitsPerSample)
	}
}

// measureSamples streams r in whole samples. A trailing partial sample is
// ignored.
func measureSamples(r io.Reader, width int, decode decoder) (Levels, error) {
	buf := make([]byte, width*4096)

	var peak, sumSquares float64
	var samples int64
	for {
		n, err := io.ReadFull(r, buf)
		for i := 0; i+width <= n; i += width {
			v := math.Abs(decode(buf[i : i+width]))
			peak = math.Max(peak, v)
			sumSquares += v * v
			samples++
		}
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			break
		}
		if err != nil {
			return Levels{}, fmt.Errorf("read wav data: %w", err)
		}
	}

	if samples == 0 {
		return Levels{RMS: math.Inf(-1), Peak: math.Inf(-1)}, nil
	}
	return Levels{
		RMS:     dbfs(math.Sqrt(sumSquares / float64(samples))),
		Peak:    dbfs(peak),
		Samples: samples,
	}, nil
}

func dbfs(amplitude float64) float64 {
	if amplitude <= 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(amplitude)
}
