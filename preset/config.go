// Package preset holds the synth configuration and its JSON file format.
package preset

import (
	"log/slog"
	"time"

	"github.com/cwbudde/algo-sfsynth/render"
	"github.com/cwbudde/algo-sfsynth/reverb"
	"github.com/cwbudde/algo-sfsynth/sampleset"
	"github.com/cwbudde/algo-sfsynth/synth"
)

// Config is everything needed to set up a synth and render with it.
type Config struct {
	SampleRate        int
	BufferSize        int
	SilenceTimeoutSec float64
	OutputGain        float64
	SoundFontPath     string
	Reverb            ReverbConfig
	Samples           []sampleset.Sample
}

// ReverbConfig selects the room. WetMix 0 disables it.
type ReverbConfig struct {
	IRWavPath   string
	WetMix      float64
	RoomSeconds float64
	Seed        int64
}

// DefaultConfig returns the render defaults without any instruments.
func DefaultConfig() *Config {
	return &Config{
		SampleRate:        render.DefaultSampleRate,
		BufferSize:        render.DefaultBufferSize,
		SilenceTimeoutSec: render.DefaultSilenceTimeout.Seconds(),
		OutputGain:        1,
		Reverb: ReverbConfig{
			RoomSeconds: 1.2,
			Seed:        1,
		},
	}
}

// DefaultSample is the starting point for every sample entry: the full key
// and velocity range, root key 60 and a gate-like envelope.
func DefaultSample() sampleset.Sample {
	return sampleset.Sample{
		KeyHi:    127,
		VelHi:    127,
		RootKey:  60,
		Envelope: synth.DefaultEnvelope(),
		Volume:   1,
	}
}

// ReverbOptions returns the reverb settings, or nil when reverb is off.
func (c *Config) ReverbOptions() *reverb.Options {
	if c.Reverb.WetMix <= 0 {
		return nil
	}
	room := reverb.DefaultRoomConfig(c.SampleRate)
	room.Seconds = c.Reverb.RoomSeconds
	room.Seed = c.Reverb.Seed
	return &reverb.Options{IRPath: c.Reverb.IRWavPath, WetMix: c.Reverb.WetMix, Room: room}
}

// RenderOptions converts the config into renderer options.
func (c *Config) RenderOptions(logger *slog.Logger) render.Options {
	return render.Options{
		SampleRate:     c.SampleRate,
		BufferSize:     c.BufferSize,
		SilenceTimeout: time.Duration(c.SilenceTimeoutSec * float64(time.Second)),
		OutputGain:     c.OutputGain,
		Reverb:         c.ReverbOptions(),
		Logger:         logger,
	}
}
