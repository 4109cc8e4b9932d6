package reverb

import (
	"fmt"
	"math"
	"math/rand"
)

// RoomConfig controls the synthetic stereo room response.
type RoomConfig struct {
	SampleRate  int
	Seconds     float64
	Seed        int64
	Reflections int     // early reflections in the first 50 ms
	TailLevel   float64 // diffuse tail gain
	Width       float64 // 0 = mono reflections, 1 = hard panned
	LowDecay    float64 // seconds, dark part of the tail
	HighDecay   float64 // seconds, bright part of the tail
	FadeOut     float64 // cosine fade at the end, seconds
	Peak        float64
}

// DefaultRoomConfig returns a small, fairly dry hall.
func DefaultRoomConfig(sampleRate int) RoomConfig {
	return RoomConfig{
		SampleRate:  sampleRate,
		Seconds:     1.2,
		Seed:        1,
		Reflections: 24,
		TailLevel:   0.08,
		Width:       0.6,
		LowDecay:    1.1,
		HighDecay:   0.25,
		FadeOut:     0.02,
		Peak:        0.5,
	}
}

// Validate reports the first invalid field.
func (c *RoomConfig) Validate() error {
	switch {
	case c.SampleRate < 8000:
		return fmt.Errorf("sample rate too low: %d", c.SampleRate)
	case c.Seconds <= 0:
		return fmt.Errorf("room seconds must be > 0")
	case c.Reflections < 0:
		return fmt.Errorf("reflections must be >= 0")
	case c.TailLevel < 0:
		return fmt.Errorf("tail level must be >= 0")
	case c.Width < 0 || c.Width > 1:
		return fmt.Errorf("width must be in [0,1]")
	case c.LowDecay <= 0 || c.HighDecay <= 0:
		return fmt.Errorf("decay seconds must be > 0")
	case c.Peak <= 0:
		return fmt.Errorf("peak must be > 0")
	}
	return nil
}

// GenerateRoom builds a stereo impulse response from random early
// reflections and two bands of decaying noise. The same seed always gives
// the same response.
func GenerateRoom(cfg RoomConfig) ([]float32, []float32, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	sr := float64(cfg.SampleRate)
	n := max(1, int(math.Round(cfg.Seconds*sr)))
	left := make([]float64, n)
	right := make([]float64, n)
	rng := rand.New(rand.NewSource(cfg.Seed))

	for i := 0; i < cfg.Reflections; i++ {
		at := 0.001 + 0.049*rng.Float64()
		idx := int(at * sr)
		if idx <= 0 || idx >= n {
			continue
		}
		amp := (0.1 + 0.35*rng.Float64()) * math.Exp(-20*at)
		pan := (2*rng.Float64() - 1) * cfg.Width
		left[idx] += amp * (1 - 0.5*pan)
		right[idx] += amp * (1 + 0.5*pan)
	}

	if cfg.TailLevel > 0 {
		var darkL, darkR, brightL, brightR float64
		for i := 0; i < n; i++ {
			t := float64(i) / sr
			lowEnv := math.Exp(-t / (0.75 * cfg.LowDecay))
			highEnv := math.Exp(-t / (0.75 * cfg.HighDecay))
			nl, nr := rng.NormFloat64(), rng.NormFloat64()
			darkL = 0.985*darkL + 0.015*nl
			darkR = 0.985*darkR + 0.015*nr
			brightL = 0.15*nl - 0.15*brightL
			brightR = 0.15*nr - 0.15*brightR
			left[i] += cfg.TailLevel * (lowEnv*darkL + 0.3*highEnv*brightL)
			right[i] += cfg.TailLevel * (lowEnv*darkR + 0.3*highEnv*brightR)
		}
	}

	blockDC(left)
	blockDC(right)
	fadeOut(left, cfg.FadeOut, cfg.SampleRate)
	fadeOut(right, cfg.FadeOut, cfg.SampleRate)

	peak := math.Max(peakAbs(left), peakAbs(right))
	if peak < 1e-12 {
		peak = 1e-12
	}
	g := cfg.Peak / peak
	outL := make([]float32, n)
	outR := make([]float32, n)
	for i := range left {
		outL[i] = float32(left[i] * g)
		outR[i] = float32(right[i] * g)
	}
	return outL, outR, nil
}

// blockDC is a one-pole DC blocker applied in place.
func blockDC(x []float64) {
	var prevIn, prevOut float64
	for i, v := range x {
		y := v - prevIn + 0.995*prevOut
		prevIn, prevOut = v, y
		x[i] = y
	}
}

func peakAbs(x []float64) float64 {
	m := 0.0
	for _, v := range x {
		m = math.Max(m, math.Abs(v))
	}
	return m
}

func fadeOut(buf []float64, seconds float64, sampleRate int) {
	if seconds <= 0 || len(buf) == 0 {
		return
	}
	n := min(len(buf), int(math.Round(seconds*float64(sampleRate))))
	start := len(buf) - n
	for i := 0; i < n; i++ {
		buf[start+i] *= 0.5 * (1 + math.Cos(math.Pi*float64(i)/float64(n)))
	}
}
