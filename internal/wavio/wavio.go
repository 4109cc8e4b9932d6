// Package wavio reads and writes the WAV files used for samples, impulse
// responses and rendered output.
package wavio

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	dspresample "github.com/cwbudde/algo-dsp/dsp/resample"
	"github.com/cwbudde/wav"
	"github.com/go-audio/audio"
)

// Stereo holds de-interleaved audio. Mono files are duplicated into both
// channels.
type Stereo struct {
	Left       []float32
	Right      []float32
	SampleRate int
	Channels   int // channel count of the source file
}

// Read decodes a WAV file into de-interleaved float32 channels. Channels
// beyond the second are ignored.
func Read(path string) (*Stereo, error) {
	buf, err := decode(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	ch := buf.Format.NumChannels
	frames := len(buf.Data) / ch
	out := &Stereo{
		Left:       make([]float32, frames),
		Right:      make([]float32, frames),
		SampleRate: buf.Format.SampleRate,
		Channels:   ch,
	}
	right := min(1, ch-1)
	for i := range frames {
		frame := buf.Data[i*ch : (i+1)*ch]
		out.Left[i], out.Right[i] = frame[0], frame[right]
	}
	return out, nil
}

func decode(path string) (*audio.Float32Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, errors.New("not a wav file")
	}
	buf, err := dec.FullPCMBuffer()
	switch {
	case err != nil:
		return nil, err
	case buf == nil || buf.Format == nil || buf.Format.NumChannels < 1:
		return nil, errors.New("missing format chunk")
	case buf.Format.SampleRate <= 0:
		return nil, fmt.Errorf("bad sample rate %d", buf.Format.SampleRate)
	case len(buf.Data) < buf.Format.NumChannels:
		return nil, errors.New("no audio frames")
	}
	return buf, nil
}

// ReadMono decodes a WAV file and averages its channels.
func ReadMono(path string) ([]float32, int, error) {
	st, err := Read(path)
	if err != nil {
		return nil, 0, err
	}
	out := make([]float32, len(st.Left))
	for i := range out {
		out[i] = 0.5 * (st.Left[i] + st.Right[i])
	}
	return out, st.SampleRate, nil
}

// Resample converts in from one rate to another. Equal rates return in.
func Resample(in []float32, fromRate, toRate int) ([]float32, error) {
	if fromRate == toRate || len(in) == 0 {
		return in, nil
	}
	r, err := dspresample.NewForRates(
		float64(fromRate),
		float64(toRate),
		dspresample.WithQuality(dspresample.QualityBest),
	)
	if err != nil {
		return nil, err
	}
	in64 := make([]float64, len(in))
	for i, v := range in {
		in64[i] = float64(v)
	}
	out64 := r.Process(in64)
	out := make([]float32, len(out64))
	for i, v := range out64 {
		out[i] = float32(v)
	}
	return out, nil
}

// WriteStereo writes left/right as a 16-bit stereo WAV, creating parent
// directories as needed.
func WriteStereo(path string, left, right []float32, sampleRate int) error {
	if len(left) != len(right) {
		return fmt.Errorf("%s: channel lengths differ (%d, %d)", path, len(left), len(right))
	}
	data := make([]float32, 0, 2*len(left))
	for i, l := range left {
		data = append(data, l, right[i])
	}
	return write(path, data, 2, sampleRate)
}

// WriteMono writes a 16-bit mono WAV.
func WriteMono(path string, data []float32, sampleRate int) error {
	return write(path, data, 1, sampleRate)
}

func write(path string, samples []float32, channels, sampleRate int) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	enc := wav.NewEncoder(f, sampleRate, 16, channels, 1)
	format := &audio.Format{SampleRate: sampleRate, NumChannels: channels}
	if err := enc.Write(&audio.Float32Buffer{Format: format, Data: samples, SourceBitDepth: 16}); err != nil {
		return err
	}
	return enc.Close()
}
