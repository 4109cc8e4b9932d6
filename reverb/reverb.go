package reverb

// Options selects the impulse response and the wet level.
type Options struct {
	IRPath string  // WAV impulse response; empty = synthetic room
	WetMix float64 // gain of the reverberated signal added to the dry signal
	Room   RoomConfig
}

// New builds a convolver from opts at sampleRate.
func New(sampleRate int, opts Options) (*Convolver, error) {
	c := NewConvolver(sampleRate)
	if opts.IRPath != "" {
		if err := c.SetIRFromWAV(opts.IRPath); err != nil {
			return nil, err
		}
		return c, nil
	}
	room := opts.Room
	if room.SampleRate == 0 {
		room = DefaultRoomConfig(sampleRate)
	}
	room.SampleRate = sampleRate
	l, r, err := GenerateRoom(room)
	if err != nil {
		return nil, err
	}
	if err := c.SetIR(l, r); err != nil {
		return nil, err
	}
	return c, nil
}

// Apply returns dry + wet*reverb(dry), extended by the reverb tail.
func Apply(c *Convolver, left, right []float32, wet float64) ([]float32, []float32, error) {
	n := len(left) + c.TailLen()
	inL := make([]float32, n)
	inR := make([]float32, n)
	copy(inL, left)
	copy(inR, right)
	outL := make([]float32, n)
	outR := make([]float32, n)

	c.Reset()
	if err := c.Process(inL, inR, outL, outR); err != nil {
		return nil, nil, err
	}
	w := float32(wet)
	for i := 0; i < n; i++ {
		outL[i] = inL[i] + w*outL[i]
		outR[i] = inR[i] + w*outR[i]
	}
	return outL, outR, nil
}
