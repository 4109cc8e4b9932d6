package synth

import (
	"math"

	dspcore "github.com/cwbudde/algo-dsp/dsp/core"
)

// Phase is the state of an amplitude envelope.
type Phase uint8

const (
	PhaseAttack Phase = iota
	PhaseHold
	PhaseDecay
	PhaseSustain
	PhaseRelease
	PhaseForceStop
	PhaseStopped
)

var phaseNames = [...]string{"attack", "hold", "decay", "sustain", "release", "forceStop", "stopped"}

func (p Phase) String() string {
	if int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return "unknown"
}

const (
	// ForceStopTime is the fixed fade used by voice stealing and panic.
	ForceStopTime = 0.1
	// releaseFloorDB is the level the release curve heads for.
	releaseFloorDB = -100.0
)

// Envelope is a per-voice AHDSR gain state machine evaluated once per buffer.
type Envelope struct {
	params     EnvelopeParams
	sampleRate int

	phase     Phase
	phaseTime float64 // seconds spent in the current phase
	noteOff   bool
	fromLevel float64 // start level of the release curve
	last      float64
}

// NewEnvelope returns a stopped envelope.
func NewEnvelope(p EnvelopeParams, sampleRate int) *Envelope {
	return &Envelope{params: p, sampleRate: sampleRate, phase: PhaseStopped}
}

// transition switches phase and restarts the phase clock.
func (e *Envelope) transition(p Phase) {
	e.phase = p
	e.phaseTime = 0
}

// NoteOn restarts the envelope from its current level.
func (e *Envelope) NoteOn() {
	e.noteOff = false
	e.transition(PhaseAttack)
}

// NoteOff requests the release phase; it takes effect on the next buffer.
func (e *Envelope) NoteOff() {
	e.noteOff = true
}

// ForceStop fades out over ForceStopTime regardless of the release time.
func (e *Envelope) ForceStop() {
	if e.phase == PhaseStopped || e.phase == PhaseForceStop {
		return
	}
	e.transition(PhaseForceStop)
}

// Phase returns the current phase.
func (e *Envelope) Phase() Phase { return e.phase }

// IsPlaying reports whether the envelope has not reached PhaseStopped.
func (e *Envelope) IsPlaying() bool { return e.phase != PhaseStopped }

// Amplitude returns the gain for the next buffer of frames samples and then
// advances the phase clock by the buffer duration.
func (e *Envelope) Amplitude(frames int) float64 {
	v := clamp01(e.compute(frames))
	e.last = v
	e.phaseTime += float64(frames) / float64(e.sampleRate)
	return v
}

func (e *Envelope) compute(frames int) float64 {
	p := e.params
	sr := float64(e.sampleRate)

	if e.noteOff {
		switch e.phase {
		case PhaseAttack, PhaseHold, PhaseDecay, PhaseSustain:
			e.fromLevel = e.last
			e.transition(PhaseRelease)
		}
	}

	switch e.phase {
	case PhaseAttack:
		if p.AttackTime <= 0 {
			e.transition(PhaseHold)
			return 1
		}
		v := e.last + float64(frames)/(p.AttackTime*sr)
		if v >= 1 {
			e.transition(PhaseHold)
			return 1
		}
		return v

	case PhaseHold:
		if e.phaseTime >= p.HoldTime {
			e.transition(PhaseDecay)
		}
		return 1

	case PhaseDecay:
		if e.phaseTime > p.DecayTime || p.DecayTime <= 0 {
			if p.SustainLevel <= 0 {
				e.transition(PhaseStopped)
				return 0
			}
			e.transition(PhaseSustain)
			return p.SustainLevel
		}
		return attenuate(1, levelToDB(p.SustainLevel), p.DecayTime, e.phaseTime)

	case PhaseSustain:
		return p.SustainLevel

	case PhaseRelease:
		if p.ReleaseTime <= 0 || e.phaseTime > p.ReleaseTime {
			e.transition(PhaseStopped)
			return 0
		}
		v := dspcore.FlushDenormals(attenuate(e.fromLevel, releaseFloorDB, p.ReleaseTime, e.phaseTime))
		if v <= 0 {
			e.transition(PhaseStopped)
			return 0
		}
		return v

	case PhaseForceStop:
		v := e.last - float64(frames)/(ForceStopTime*sr)
		if v <= 1e-9 {
			e.transition(PhaseStopped)
			return 0
		}
		return v
	}
	return 0
}

// attenuate follows a curve that is linear in decibels: after duration
// seconds the level has dropped by db.
func attenuate(from, db, duration, t float64) float64 {
	return from * math.Pow(10, (db/duration)*t/20)
}

func levelToDB(v float64) float64 {
	if v <= 0 {
		return releaseFloorDB
	}
	db := 20 * math.Log10(v)
	if db < releaseFloorDB {
		return releaseFloorDB
	}
	return db
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
