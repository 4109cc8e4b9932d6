package audio

import (
	"context"
	"sync"
	"encoding/binary"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/cwbudde/algo-sfsynth/synth"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupEvents(frames int) []synth.Event {
	pcm := make([]float32, frames)
	for i := range pcm {
		pcm[i] = 0.5
	}
	return []synth.Event{
		synth.LoadSampleEvent{SampleID: 1, Data: pcm},
		synth.SampleParameterEvent{
			Parameter: synth.SampleParameter{
				SampleID:    1,
				Pitch:       60,
				SampleEnd:   frames,
				SampleRate:  8000,
				Envelope:    synth.EnvelopeParams{SustainLevel: 1, ReleaseTime: 0.01},
				ScaleTuning: 1,
				Volume:      1,
			},
			Range: synth.SampleRange{KeyRange: [2]int{0, 127}, VelRange: [2]int{0, 127}},
		},
	}
}

func newTestPlayer(t *testing.T, opts Options) *Player {
	t.Helper()
	opts.SampleRate = 8000
	opts.Logger = quietLogger()
	if opts.Setup == nil {
		opts.Setup = setupEvents(8000)
	}
	p, err := NewPlayer(opts)
	if err != nil {
		t.Fatalf("NewPlayer: %v", err)
	}
	return p
}

func peakOf(b []byte) float64 {
	var peak float64
	for i := 0; i+4 <= len(b); i += 4 {
		v := math.Float32frombits(binary.LittleEndian.Uint32(b[i:]))
		peak = math.Max(peak, math.Abs(float64(v)))
	}
	return peak
}

func TestReadRendersQueuedNotes(t *testing.T) {
	p := newTestPlayer(t, Options{})
	buf := make([]byte, BlockSize*8)

	if n, err := p.Read(buf); err != nil || n != len(buf) {
		t.Fatalf("Read = %d, %v", n, err)
	}
	if peakOf(buf) != 0 {
		t.Fatalf("expected silence before any note")
	}

	if !p.Send(synth.MIDIEvent{Message: synth.NoteOn(0, 60, 127)}) {
		t.Fatalf("Send failed on an empty queue")
	}
	for range 4 {
		p.Read(buf)
	}
	if peakOf(buf) == 0 {
		t.Fatalf("expected sound after note on")
	}
	if p.Frame() != 5*BlockSize {
		t.Fatalf("frame = %d, want %d", p.Frame(), 5*BlockSize)
	}
}

func TestReadKeepsPartialBlocks(t *testing.T) {
	p := newTestPlayer(t, Options{})
	buf := make([]byte, 100*8+3)
	n, _ := p.Read(buf)
	if n != 100*8 {
		t.Fatalf("Read = %d, want whole frames only", n)
	}
	p.Read(make([]byte, 28*8))
	if p.Frame() != BlockSize {
		t.Fatalf("frame = %d after exactly one block", p.Frame())
	}
}

func TestProcessPortAudioStereo(t *testing.T) {
	p := newTestPlayer(t, Options{OutputGain: 0.5})
	p.Send(synth.MIDIEvent{Message: synth.NoteOn(0, 60, 127)})
	out := [][]float32{make([]float32, 256), make([]float32, 256)}
	p.ProcessPortAudio(out)
	p.ProcessPortAudio(out)

	var peak float32
	for i := range out[0] {
		if math.Abs(float64(out[0][i]-out[1][i])) > 1e-6 {
			t.Fatalf("centered note should match on both channels at %d", i)
		}
		peak = max(peak, out[0][i])
	}
	if peak <= 0 {
		t.Fatalf("expected output")
	}
}

func TestSendDropsWhenFull(t *testing.T) {
	p := newTestPlayer(t, Options{QueueSize: 2})
	for range 3 {
		p.Send(synth.MIDIEvent{Message: synth.NoteOff(0, 60)})
	}
	if p.Dropped() != 1 {
		t.Fatalf("dropped = %d, want 1", p.Dropped())
	}
}

func TestNewPlayerRejectsBadOptions(t *testing.T) {
	if _, err := NewPlayer(Options{}); err == nil {
		t.Fatalf("expected error for zero sample rate")
	}
	if _, err := NewPlayer(Options{SampleRate: 8000, QueueSize: 3}); err == nil {
		t.Fatalf("expected error for a non power of two queue")
	}
}

func TestPlayEventsHonoursContext(t *testing.T) {
	p := newTestPlayer(t, Options{})
	events := []synth.MIDIEvent{
		{Message: synth.NoteOn(0, 60, 100)},
		{Message: synth.NoteOff(0, 60), Delay: 80000},
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	// Nothing pulls audio, so the second event never comes due.
	if err := p.PlayEvents(ctx, events); err == nil {
		t.Fatalf("expected a context error")
	}
	if p.timed.Len() != 1 {
		t.Fatalf("queued = %d, want the first event only", p.timed.Len())
	}
}

func TestPlayEventsSendsDueEvents(t *testing.T) {
	p := newTestPlayer(t, Options{})
	events := []synth.MIDIEvent{
		{Message: synth.NoteOn(0, 60, 100)},
		{Message: synth.NoteOff(0, 60), Delay: 100},
	}
	if err := p.PlayEvents(context.Background(), events); err != nil {
		t.Fatalf("PlayEvents: %v", err)
	}
	if p.timed.Len() != 2 {
		t.Fatalf("queued = %d, want 2", p.timed.Len())
	}
}

func TestConcurrentSendersLoseNothing(t *testing.T) {
	const perSender = 20000
	p := newTestPlayer(t, Options{QueueSize: 1 << 16})

	start := make(chan struct{})
	var wg sync.WaitGroup
	for sender := range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			for i := range perSender {
				e := synth.MIDIEvent{Message: synth.ControlChange(sender, synth.CCVolume, i%128), Delay: i}
				if sender == 0 {
					p.Send(e)
				} else {
					p.SendAt(e, int64(i))
				}
			}
		}()
	}
	close(start)
	wg.Wait()

	if p.Dropped() != 0 {
		t.Fatalf("dropped = %d", p.Dropped())
	}
	var next [2]int
	check := func(e synth.Event) {
		m := e.(synth.MIDIEvent)
		ch := m.Message.Channel
		if m.Delay != next[ch] {
			t.Fatalf("channel %d: got delay %d, want %d", ch, m.Delay, next[ch])
		}
		next[ch]++
	}
	p.queue.Drain(check)
	p.timed.Drain(check)
	if next != [2]int{perSender, perSender} {
		t.Fatalf("received %v events, want %d per sender", next, perSender)
	}
}

func TestSendAtTargetsAbsoluteFrames(t *testing.T) {
	buf := make([]byte, BlockSize*8)
	for _, readFirst := range []int{0, 1} {
		p := newTestPlayer(t, Options{})
		for range readFirst {
			p.Read(buf)
		}
		// The target is absolute, so it does not matter how many blocks
		// were rendered before the event is drained.
		if !p.SendAt(synth.MIDIEvent{Message: synth.NoteOn(0, 60, 127)}, 2*BlockSize) {
			t.Fatalf("SendAt failed on an empty queue")
		}
		for block := readFirst; block < 3; block++ {
			p.Read(buf)
			if silent := peakOf(buf) == 0; silent != (block < 2) {
				t.Fatalf("read first %d: block %d silent=%v", readFirst, block, silent)
			}
		}
	}

	// A target already in the past plays in the next block.
	p := newTestPlayer(t, Options{})
	p.Read(buf)
	p.Read(buf)
	p.SendAt(synth.MIDIEvent{Message: synth.NoteOn(0, 60, 127)}, 0)
	p.Read(buf)
	if peakOf(buf) == 0 {
		t.Fatalf("late event should play in the next block")
	}
}
