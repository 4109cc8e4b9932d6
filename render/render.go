// Package render drives a synth.Core offline until a piece has finished
// sounding.
package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/cwbudde/algo-sfsynth/reverb"
	"github.com/cwbudde/algo-sfsynth/synth"
)

// ErrCancelled is returned when the context is cancelled mid-render.
var ErrCancelled = errors.New("render cancelled")

const (
	DefaultSampleRate     = 44100
	DefaultBufferSize     = 500
	DefaultSilenceTimeout = 5 * time.Second
	DefaultYieldInterval  = 1000
)

// Options configures Render. Zero values select the defaults.
type Options struct {
	SampleRate     int
	BufferSize     int
	SilenceTimeout time.Duration
	// YieldInterval is the number of buffers between cancellation checks.
	YieldInterval int
	// Progress is called with the frames rendered so far and the upper bound.
	Progress func(done, total int)
	Logger   *slog.Logger
	// OutputGain scales the final mix; 0 means 1.
	OutputGain float64
	Reverb     *reverb.Options
	// Table, when set, is shared with the render core. Sample events passed
	// to Render are added to it. Renders only read the table, so concurrent
	// renders may share one as long as they pass no sample events.
	Table *synth.SampleTable
}

func (o *Options) withDefaults() Options {
	out := *o
	if out.SampleRate <= 0 {
		out.SampleRate = DefaultSampleRate
	}
	if out.BufferSize <= 0 {
		out.BufferSize = DefaultBufferSize
	}
	if out.SilenceTimeout <= 0 {
		out.SilenceTimeout = DefaultSilenceTimeout
	}
	if out.YieldInterval <= 0 {
		out.YieldInterval = DefaultYieldInterval
	}
	if out.Logger == nil {
		out.Logger = slog.Default()
	}
	return out
}

// Audio is a rendered stereo piece.
type Audio struct {
	Left       []float32
	Right      []float32
	SampleRate int
}

// Len returns the number of frames.
func (a *Audio) Len() int { return len(a.Left) }

// Duration returns the playing time.
func (a *Audio) Duration() time.Duration {
	if a.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(len(a.Left)) / float64(a.SampleRate) * float64(time.Second))
}

// Interleaved returns L/R interleaved samples.
func (a *Audio) Interleaved() []float32 {
	out := make([]float32, len(a.Left)*2)
	for i := range a.Left {
		out[i*2] = a.Left[i]
		out[i*2+1] = a.Right[i]
	}
	return out
}

// LoadTable applies sample events to a new table that several renders can
// share through Options.Table.
func LoadTable(samples []synth.Event, logger *slog.Logger) *synth.SampleTable {
	core := synth.NewCore(DefaultSampleRate, nil, synth.WithLogger(logger))
	for _, e := range samples {
		core.AddEvent(e)
	}
	return core.Table()
}

// SongLength returns the largest event delay in frames.
func SongLength(events []synth.MIDIEvent) int {
	n := 0
	for _, e := range events {
		n = max(n, e.Delay)
	}
	return n
}

// Render plays samples and events through a fresh core. Sample events are
// applied first, then every MIDI event is scheduled relative to frame 0.
// Rendering continues after the last event until the output is silent or
// the silence timeout has elapsed; the result is trimmed to the frames
// actually rendered.
func Render(ctx context.Context, samples []synth.Event, events []synth.MIDIEvent, opts Options) (*Audio, error) {
	o := opts.withDefaults()
	buf := o.BufferSize

	var currentFrame int64
	core := synth.NewCore(o.SampleRate, func() int64 { return currentFrame },
		synth.WithLogger(o.Logger), synth.WithSampleTable(o.Table))
	for _, e := range samples {
		core.AddEvent(e)
	}
	for _, e := range events {
		core.AddEvent(e)
	}

	iterCount := ceilDiv(SongLength(events), buf)
	extra := ceilDiv(int(o.SilenceTimeout.Seconds()*float64(o.SampleRate)), buf)
	total := (iterCount + extra) * buf

	left := make([]float32, total)
	right := make([]float32, total)
	for i := 0; i < iterCount+extra; i++ {
		offset := i * buf
		outL := left[offset : offset+buf]
		outR := right[offset : offset+buf]
		core.Process(outL, outR)
		currentFrame += int64(buf)

		if i > iterCount && isSilent(outL) && isSilent(outR) {
			o.Logger.Debug("render reached silence", "iteration", i, "of", iterCount+extra)
			break
		}
		if i%o.YieldInterval == 0 {
			runtime.Gosched()
			if o.Progress != nil {
				o.Progress(offset, total)
			}
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("%w: %w", ErrCancelled, err)
			}
		}
	}

	out := &Audio{
		Left:       left[:currentFrame],
		Right:      right[:currentFrame],
		SampleRate: o.SampleRate,
	}
	if o.Reverb != nil && o.Reverb.WetMix > 0 {
		conv, err := reverb.New(o.SampleRate, *o.Reverb)
		if err != nil {
			return nil, fmt.Errorf("reverb: %w", err)
		}
		l, r, err := reverb.Apply(conv, out.Left, out.Right, o.Reverb.WetMix)
		if err != nil {
			return nil, fmt.Errorf("reverb: %w", err)
		}
		out.Left, out.Right = trimSilence(l, r, 1e-5)
	}
	if o.OutputGain > 0 && o.OutputGain != 1 {
		g := float32(o.OutputGain)
		for i := range out.Left {
			out.Left[i] *= g
			out.Right[i] *= g
		}
	}
	if o.Progress != nil {
		o.Progress(out.Len(), out.Len())
	}
	return out, nil
}

func ceilDiv(a, b int) int {
	if a <= 0 {
		return 0
	}
	return (a + b - 1) / b
}

func isSilent(buf []float32) bool {
	for _, v := range buf {
		if v != 0 {
			return false
		}
	}
	return true
}

// trimSilence cuts trailing frames where both channels stay below threshold.
func trimSilence(left, right []float32, threshold float32) ([]float32, []float32) {
	n := len(left)
	for n > 0 && abs32(left[n-1]) < threshold && abs32(right[n-1]) < threshold {
		n--
	}
	return left[:n], right[:n]
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
