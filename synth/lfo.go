package synth

import "math"

// vibratoRate is the frequency of the modulation-wheel vibrato.
const vibratoRate = 5.0

// lfo is a sine oscillator sampled once per buffer.
type lfo struct {
	rateHz float64
	phase  float64 // radians in [0, 2π)
}

// next returns the current value and advances by frames samples.
func (l *lfo) next(frames int, sampleRate int) float64 {
	v := math.Sin(l.phase)
	if sampleRate > 0 {
		l.phase += 2 * math.Pi * l.rateHz * float64(frames) / float64(sampleRate)
		if l.phase >= 2*math.Pi {
			l.phase = math.Mod(l.phase, 2*math.Pi)
		}
	}
	return v
}
