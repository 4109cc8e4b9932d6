// Package audio plays a synth.Core live on a sound device.
package audio

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cwbudde/algo-sfsynth/reverb"
	"github.com/cwbudde/algo-sfsynth/synth"
)

// BlockSize is the number of frames rendered per core call.
const BlockSize = 128

// Options configures a Player.
type Options struct {
	SampleRate int
	// QueueSize bounds the events in flight between Send and the audio
	// thread. It must be a power of two; 0 selects 4096.
	QueueSize  int
	OutputGain float64
	Reverb     *reverb.Options
	Logger     *slog.Logger
	// Setup events (samples, parameters) are applied before playback starts.
	Setup []synth.Event
}

// Player owns a Core and renders it in fixed blocks for a device callback.
// Send and SendAt may be called from any number of goroutines while the
// device pulls audio through Read or ProcessPortAudio.
type Player struct {
	sampleRate int
	core       *synth.Core
	frame      atomic.Int64
	dropped    atomic.Uint64
	logger     *slog.Logger

	// sendMu makes every sender a single producer for both queues. timed
	// carries MIDI events whose Delay is an absolute frame.
	sendMu sync.Mutex
	queue  *synth.EventQueue
	timed  *synth.EventQueue

	gain        float32
	conv        *reverb.Convolver
	wet         float32
	left, right []float32
	wetL, wetR  []float32
	pos         int
}

// NewPlayer creates a player and applies opts.Setup to its core.
func NewPlayer(opts Options) (*Player, error) {
	if opts.SampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be > 0")
	}
	if opts.QueueSize == 0 {
		opts.QueueSize = 4096
	}
	if opts.QueueSize < 0 || opts.QueueSize&(opts.QueueSize-1) != 0 {
		return nil, fmt.Errorf("queue size must be a power of 2, got %d", opts.QueueSize)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	gain := opts.OutputGain
	if gain <= 0 {
		gain = 1
	}

	p := &Player{
		sampleRate: opts.SampleRate,
		queue:      synth.NewEventQueue(opts.QueueSize),
		timed:      synth.NewEventQueue(opts.QueueSize),
		logger:     opts.Logger,
		gain:       float32(gain),
		left:       make([]float32, BlockSize),
		right:      make([]float32, BlockSize),
		pos:        BlockSize,
	}
	p.core = synth.NewCore(opts.SampleRate, p.frame.Load, synth.WithLogger(opts.Logger))
	for _, e := range opts.Setup {
		p.core.AddEvent(e)
	}

	if opts.Reverb != nil && opts.Reverb.WetMix > 0 {
		conv, err := reverb.New(opts.SampleRate, *opts.Reverb)
		if err != nil {
			return nil, fmt.Errorf("reverb: %w", err)
		}
		p.conv = conv
		p.wet = float32(opts.Reverb.WetMix)
		p.wetL = make([]float32, BlockSize)
		p.wetR = make([]float32, BlockSize)
	}
	return p, nil
}

// SampleRate returns the output rate.
func (p *Player) SampleRate() int { return p.sampleRate }

// Frame returns the number of frames rendered so far.
func (p *Player) Frame() int64 { return p.frame.Load() }

// Dropped returns how many events Send could not queue.
func (p *Player) Dropped() uint64 { return p.dropped.Load() }

// Send queues e for the audio thread; MIDI delays count from the block
// that picks the event up. It reports false, and drops the event, when the
// queue is full.
func (p *Player) Send(e synth.Event) bool {
	p.sendMu.Lock()
	ok := p.queue.TryPush(e)
	p.sendMu.Unlock()
	return p.accepted(ok)
}

// SendAt queues e to sound at the absolute output frame. The delay is
// resolved when the audio thread drains the event, so the event plays in
// the first block starting at or after frame however late it is picked up.
// Frames already past play in the next block.
func (p *Player) SendAt(e synth.MIDIEvent, frame int64) bool {
	e.Delay = int(frame)
	p.sendMu.Lock()
	ok := p.timed.TryPush(e)
	p.sendMu.Unlock()
	return p.accepted(ok)
}

func (p *Player) accepted(ok bool) bool {
	if !ok {
		p.dropped.Add(1)
		p.logger.Warn("event queue full, dropping event", "dropped", p.dropped.Load())
	}
	return ok
}

// PlayEvents sends events whose delays are frame offsets from the moment
// of the call. Events are queued up to a quarter second ahead with their
// absolute target frame. It returns when every event is sent or ctx is
// done.
func (p *Player) PlayEvents(ctx context.Context, events []synth.MIDIEvent) error {
	start := p.Frame()
	lookahead := int64(p.sampleRate / 4)
	tick := time.NewTicker(10 * time.Millisecond)
	defer tick.Stop()

	for i := 0; i < len(events); {
		now := p.Frame()
		for ; i < len(events); i++ {
			at := start + int64(events[i].Delay)
			if at-now > lookahead {
				break
			}
			if !p.SendAt(events[i], at) {
				break
			}
		}
		if i == len(events) {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick.C:
		}
	}
	return nil
}

// render drains the queues and renders the next block.
func (p *Player) render() {
	p.queue.Drain(p.core.AddEvent)
	now := p.frame.Load()
	p.timed.Drain(func(e synth.Event) {
		m := e.(synth.MIDIEvent)
		m.Delay = int(max(0, int64(m.Delay)-now))
		p.core.AddEvent(m)
	})

	clear(p.left)
	clear(p.right)
	p.core.Process(p.left, p.right)

	if p.conv != nil {
		if err := p.conv.Process(p.left, p.right, p.wetL, p.wetR); err != nil {
			p.logger.Error("reverb failed, disabling", "err", err)
			p.conv = nil
		} else {
			for i := range p.left {
				p.left[i] += p.wet * p.wetL[i]
				p.right[i] += p.wet * p.wetR[i]
			}
		}
	}
	if p.gain != 1 {
		for i := range p.left {
			p.left[i] *= p.gain
			p.right[i] *= p.gain
		}
	}
	p.frame.Add(BlockSize)
	p.pos = 0
}

// next returns the next stereo frame.
func (p *Player) next() (float32, float32) {
	if p.pos == BlockSize {
		p.render()
	}
	l, r := p.left[p.pos], p.right[p.pos]
	p.pos++
	return l, r
}

// Read fills b with interleaved float32 little-endian stereo frames. It
// implements io.Reader for oto.
func (p *Player) Read(b []byte) (int, error) {
	frames := len(b) / 8
	for i := 0; i < frames; i++ {
		l, r := p.next()
		binary.LittleEndian.PutUint32(b[i*8:], math.Float32bits(l))
		binary.LittleEndian.PutUint32(b[i*8+4:], math.Float32bits(r))
	}
	return frames * 8, nil
}

// ProcessPortAudio is a non-interleaved stream callback. Mono or stereo
// output buffers are accepted; a mono device receives the left channel.
func (p *Player) ProcessPortAudio(out [][]float32) {
	if len(out) == 0 {
		return
	}
	for i := range out[0] {
		l, r := p.next()
		out[0][i] = l
		if len(out) > 1 {
			out[1][i] = r
		}
	}
}
