package synth

import (
	"fmt"
	"log/slog"
)

// Core is the synthesizer engine. It is not safe for concurrent use: all
// calls must come from the goroutine that renders audio. Use EventQueue to
// feed it from another goroutine.
type Core struct {
	sampleRate int
	clock      func() int64
	frame      int64 // used when no clock is supplied
	logger     *slog.Logger
	table      *SampleTable
	scheduler  Scheduler
	channels   [NumChannels]*channelState
	active     int
}

// Option configures a Core.
type Option func(*Core)

// WithLogger sets the logger used for skipped notes and regions.
func WithLogger(l *slog.Logger) Option {
	return func(c *Core) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithSampleTable makes the core play from an already loaded table.
func WithSampleTable(t *SampleTable) Option {
	return func(c *Core) {
		if t != nil {
			c.table = t
		}
	}
}

// NewCore creates an engine rendering at sampleRate. clock returns the
// frame position of the buffer about to be processed; if nil, the core
// counts the frames it has rendered itself.
func NewCore(sampleRate int, clock func() int64, opts ...Option) *Core {
	c := &Core{
		sampleRate: sampleRate,
		clock:      clock,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.table == nil {
		c.table = NewSampleTable(c.logger)
	}
	return c
}

// SampleRate returns the output sample rate.
func (c *Core) SampleRate() int { return c.sampleRate }

// Table returns the sample table.
func (c *Core) Table() *SampleTable { return c.table }

// CurrentFrame returns the frame position the scheduler uses as "now".
func (c *Core) CurrentFrame() int64 {
	if c.clock != nil {
		return c.clock()
	}
	return c.frame
}

// ActiveVoices returns the number of voices alive after the last Process.
func (c *Core) ActiveVoices() int { return c.active }

// PendingEvents returns the number of scheduled events not yet dispatched.
func (c *Core) PendingEvents() int { return c.scheduler.Len() }

// AddEvent accepts an event. Sample data and parameters are applied
// immediately; MIDI events are scheduled relative to the current frame.
func (c *Core) AddEvent(e Event) {
	switch ev := e.(type) {
	case LoadSampleEvent:
		c.table.AddSample(ev.SampleID, ev.Data)
	case *LoadSampleEvent:
		c.table.AddSample(ev.SampleID, ev.Data)
	case SampleParameterEvent:
		c.table.AddParameter(ev.Parameter, ev.Range)
	case *SampleParameterEvent:
		c.table.AddParameter(ev.Parameter, ev.Range)
	case MIDIEvent:
		c.scheduler.Schedule(ev.Message, c.CurrentFrame(), ev.Delay)
	case *MIDIEvent:
		c.scheduler.Schedule(ev.Message, c.CurrentFrame(), ev.Delay)
	default:
		c.logger.Warn("ignoring unknown event", "type", fmt.Sprintf("%T", e))
	}
}

// Process renders one buffer. Output is added to left and right, so the
// caller must clear them first if it wants only this buffer's signal.
func (c *Core) Process(left, right []float32) {
	c.scheduler.ProcessDue(c.CurrentFrame(), c.dispatch)

	active := 0
	for _, st := range c.channels {
		if st == nil {
			continue
		}
		active += st.process(left, right)
	}
	c.active = active

	if c.clock == nil {
		c.frame += int64(len(left))
	}
}

func (c *Core) channel(ch int) *channelState {
	if ch < 0 || ch >= NumChannels {
		c.logger.Warn("invalid channel", "channel", ch)
		return nil
	}
	st := c.channels[ch]
	if st == nil {
		st = newChannelState()
		c.channels[ch] = st
	}
	return st
}

// NoteOn starts one voice per matching region. Notes without samples are
// logged and dropped.
func (c *Core) NoteOn(channel, note, velocity int) {
	st := c.channel(channel)
	if st == nil {
		return
	}
	if note < 0 || note > 127 {
		c.logger.Warn("note out of range", "channel", channel, "note", note)
		return
	}
	velocity = clampInt(velocity, 0, 127)

	bank := st.bank
	if channel == PercussionChannel {
		bank = PercussionBank
	}
	regions := c.table.Lookup(bank, st.instrument, note, velocity)
	if len(regions) == 0 {
		c.logger.Warn("no sample for note",
			"channel", channel, "note", note, "velocity", velocity,
			"bank", bank, "instrument", st.instrument)
		return
	}

	started := make([]*Voice, 0, len(regions))
	for _, r := range regions {
		if class := r.ExclusiveClass; class != 0 {
			st.forEachVoice(func(v *Voice) {
				if v.ExclusiveClass() == class {
					v.ForceStop()
				}
			})
		}
		v := NewVoice(r, c.sampleRate)
		v.NoteOn(note, float64(velocity)/127)
		started = append(started, v)
	}
	st.voices[note] = append(st.voices[note], started...)
}

// NoteOff releases the voices of note, or parks them while hold is down.
func (c *Core) NoteOff(channel, note int) {
	st := c.channel(channel)
	if st == nil || note < 0 || note > 127 {
		return
	}
	for _, v := range st.voices[note] {
		if v.IsNoteOff() {
			continue
		}
		if st.hold {
			v.holdPending = true
			continue
		}
		v.NoteOff()
	}
}

// PitchBend sets the channel bend from a 14-bit value (8192 = center).
func (c *Core) PitchBend(channel, value int) {
	st := c.channel(channel)
	if st == nil {
		return
	}
	value = clampInt(value, 0, 16383)
	st.pitchBend = (float64(value)/8192 - 1) * st.bendSensitivity
}

// ProgramChange selects the channel instrument.
func (c *Core) ProgramChange(channel, program int) {
	st := c.channel(channel)
	if st == nil {
		return
	}
	st.instrument = program
}

// AllSoundsOff drops the channel's scheduled events and fades out its voices.
func (c *Core) AllSoundsOff(channel int) {
	st := c.channel(channel)
	if st == nil {
		return
	}
	c.scheduler.Purge(channel)
	st.forEachVoice(func(v *Voice) { v.ForceStop() })
}

// AllNotesOff releases every voice on the channel.
func (c *Core) AllNotesOff(channel int) {
	st := c.channel(channel)
	if st == nil {
		return
	}
	st.forEachVoice(func(v *Voice) { v.NoteOff() })
}

// ResetChannel discards the channel state and its scheduled events. Voices
// that were sounding fade out instead of being cut.
func (c *Core) ResetChannel(channel int) {
	if channel < 0 || channel >= NumChannels {
		return
	}
	c.scheduler.Purge(channel)
	old := c.channels[channel]
	if old == nil {
		return
	}
	fresh := newChannelState()
	old.forEachVoice(func(v *Voice) { v.ForceStop() })
	fresh.voices = old.voices
	c.channels[channel] = fresh
}

// Panic purges every scheduled event and force-stops every voice.
func (c *Core) Panic() {
	for ch := 0; ch < NumChannels; ch++ {
		c.scheduler.Purge(ch)
		if st := c.channels[ch]; st != nil {
			st.forEachVoice(func(v *Voice) { v.ForceStop() })
		}
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
