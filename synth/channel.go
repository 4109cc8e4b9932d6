package synth

import "github.com/cwbudde/algo-approx"

const (
	// NumChannels is the number of MIDI channels.
	NumChannels = 16
	// PercussionChannel is MIDI channel 10 (zero based).
	PercussionChannel = 9
	// PercussionBank is the bank used for every note on PercussionChannel.
	PercussionBank = 128

	defaultBendSensitivity = 2
	holdThreshold          = 64
)

// rpnState tracks a registered parameter number sequence in progress.
type rpnState struct {
	msb, lsb         int
	hasMSB, hasLSB   bool
	dataMSB, dataLSB int
}

// channelState is the controller and voice state of one MIDI channel.
type channelState struct {
	volume          float64
	expression      float64
	pan             float64
	modulation      float64
	pitchBend       float64 // semitones
	bendSensitivity float64 // semitones at full deflection
	bank            int
	instrument      int
	hold            bool

	bankMSB    int
	hasBankMSB bool
	rpn        *rpnState

	voices [128][]*Voice
}

func newChannelState() *channelState {
	c := &channelState{}
	c.resetControllers()
	return c
}

// resetControllers restores controller defaults; sounding voices are kept.
func (c *channelState) resetControllers() {
	c.volume = 1
	c.expression = 1
	c.pan = 0
	c.modulation = 0
	c.pitchBend = 0
	c.bendSensitivity = defaultBendSensitivity
	c.bank = 0
	c.instrument = 0
	c.hold = false
	c.hasBankMSB = false
	c.rpn = nil
}

// bendMultiplier converts the channel pitch bend into a playback speed factor.
func (c *channelState) bendMultiplier() float64 {
	if c.pitchBend == 0 {
		return 1
	}
	const ln2 = 0.69314718055994530942
	return float64(approx.FastExp(float32(c.pitchBend / 12 * ln2)))
}

// forEachVoice visits voices in ascending note order.
func (c *channelState) forEachVoice(fn func(v *Voice)) {
	for note := range c.voices {
		for _, v := range c.voices[note] {
			fn(v)
		}
	}
}

// process renders every voice of the channel and prunes finished ones.
func (c *channelState) process(left, right []float32) (active int) {
	bend := c.bendMultiplier()
	volume := c.volume * c.expression
	for note := range c.voices {
		list := c.voices[note]
		if len(list) == 0 {
			continue
		}
		kept := list[:0]
		for _, v := range list {
			v.bend = bend
			v.volume = volume
			v.pan = c.pan
			v.modulation = c.modulation
			v.Process(left, right)
			if v.IsPlaying() {
				kept = append(kept, v)
			}
		}
		for i := len(kept); i < len(list); i++ {
			list[i] = nil
		}
		if len(kept) == 0 {
			kept = nil
		}
		c.voices[note] = kept
		active += len(kept)
	}
	return active
}
