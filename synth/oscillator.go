package synth

import "math"

// modulationDepthCents is the vibrato depth at full modulation wheel.
const modulationDepthCents = 50.0

// Voice plays one sample region from note-on until its envelope stops.
type Voice struct {
	region     Region
	sampleRate int
	env        *Envelope
	vibrato    lfo

	cursor      float64
	baseSpeed   float64
	velocity    float64
	playing     bool
	noteOff     bool
	holdPending bool

	// Channel controls, refreshed before every buffer.
	bend       float64
	volume     float64
	pan        float64
	modulation float64
}

// NewVoice creates an idle voice for r rendering at sampleRate.
func NewVoice(r Region, sampleRate int) *Voice {
	return &Voice{
		region:     r,
		sampleRate: sampleRate,
		env:        NewEnvelope(r.Envelope, sampleRate),
		vibrato:    lfo{rateHz: vibratoRate},
		baseSpeed:  1,
		bend:       1,
		volume:     1,
	}
}

// NoteOn starts playback of pitch with velocity in [0,1].
func (v *Voice) NoteOn(pitch int, velocity float64) {
	v.velocity = velocity
	v.playing = true
	v.noteOff = false
	v.cursor = float64(v.region.SampleStart)
	v.baseSpeed = math.Exp2((float64(pitch) - v.region.Pitch) / 12 * v.region.ScaleTuning)
	v.env.NoteOn()
}

// NoteOff releases the voice.
func (v *Voice) NoteOff() {
	v.holdPending = false
	v.noteOff = true
	v.env.NoteOff()
}

// ForceStop fades the voice out quickly.
func (v *Voice) ForceStop() {
	v.env.ForceStop()
}

// IsPlaying reports whether the voice still produces sound.
func (v *Voice) IsPlaying() bool {
	return v.playing && v.env.IsPlaying()
}

// IsNoteOff reports whether NoteOff was called.
func (v *Voice) IsNoteOff() bool { return v.noteOff }

// ExclusiveClass returns the region's exclusive class (0 = none).
func (v *Voice) ExclusiveClass() int { return v.region.ExclusiveClass }

// Envelope exposes the voice envelope for inspection.
func (v *Voice) Envelope() *Envelope { return v.env }

func (v *Voice) looping() bool {
	l := v.region.Loop
	if l.End <= l.Start {
		return false
	}
	switch l.Mode {
	case LoopContinuous:
		return true
	case LoopSustain:
		return !v.noteOff
	}
	return false
}

// Process renders len(left) frames and adds them to left and right.
func (v *Voice) Process(left, right []float32) {
	if !v.playing {
		return
	}
	n := len(left)
	if len(right) < n {
		n = len(right)
	}
	r := &v.region

	speed := v.baseSpeed * v.bend
	if r.SampleRate > 0 {
		speed *= float64(r.SampleRate) / float64(v.sampleRate)
	}
	vib := v.vibrato.next(n, v.sampleRate)
	speed *= 1 + vib*v.modulation*(modulationDepthCents/1200)

	level := v.velocity * v.volume
	gain := v.env.Amplitude(n) * level * level * r.Volume
	theta := (clampPan(v.pan+r.Pan) + 1) * math.Pi / 4
	lg := float32(gain * math.Cos(theta))
	rg := float32(gain * math.Sin(theta))

	looping := v.looping()
	loopStart, loopEnd := r.Loop.Start, r.Loop.End
	end := float64(r.SampleEnd)

	for i := 0; i < n; i++ {
		idx := int(v.cursor)
		next := idx + 1
		if looping && next >= loopEnd {
			next = loopStart + (next - loopEnd)
		} else if next > r.SampleEnd-1 {
			next = r.SampleEnd - 1
		}

		cur := r.PCM.At(idx)
		s := cur + (r.PCM.At(next)-cur)*float32(v.cursor-float64(idx))
		left[i] += s * lg
		right[i] += s * rg

		advanced := v.cursor + speed
		if looping && advanced >= float64(loopEnd) {
			advanced = wrapLoop(advanced, loopStart, loopEnd)
		}
		v.cursor = advanced
		if v.cursor >= end {
			v.playing = false
			break
		}
	}
}

// wrapLoop folds pos back into [start, end) keeping the fractional part.
func wrapLoop(pos float64, start, end int) float64 {
	s := float64(start)
	return s + math.Mod(pos-s, float64(end-start))
}

func clampPan(p float64) float64 {
	if p < -1 {
		return -1
	}
	if p > 1 {
		return 1
	}
	return p
}
