package preset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cwbudde/algo-sfsynth/sampleset"
	"github.com/cwbudde/algo-sfsynth/synth"
)

// File is the JSON schema for synth presets.
type File struct {
	SampleRate        *int          `json:"sample_rate"`
	BufferSize        *int          `json:"buffer_size"`
	SilenceTimeoutSec *float64      `json:"silence_timeout_sec"`
	OutputGain        *float64      `json:"output_gain"`
	SoundFontPath     string        `json:"soundfont_path"`
	Reverb            *ReverbFile   `json:"reverb"`
	Samples           []SampleEntry `json:"samples"`
}

// ReverbFile is the reverb section of a preset file.
type ReverbFile struct {
	IRWavPath   string   `json:"ir_wav_path"`
	WetMix      *float64 `json:"wet_mix"`
	RoomSeconds *float64 `json:"room_seconds"`
	Seed        *int64   `json:"seed"`
}

// SampleEntry maps one WAV file onto an instrument. Unset fields take the
// defaults of DefaultSample.
type SampleEntry struct {
	Path           string     `json:"path"`
	Bank           *int       `json:"bank"`
	Instrument     *int       `json:"instrument"`
	KeyLo          *int       `json:"key_lo"`
	KeyHi          *int       `json:"key_hi"`
	VelLo          *int       `json:"vel_lo"`
	VelHi          *int       `json:"vel_hi"`
	RootKey        *int       `json:"root_key"`
	Loop           *LoopEntry `json:"loop"`
	Attack         *float64   `json:"attack"`
	Hold           *float64   `json:"hold"`
	Decay          *float64   `json:"decay"`
	Sustain        *float64   `json:"sustain"`
	Release        *float64   `json:"release"`
	Pan            *float64   `json:"pan"`
	Volume         *float64   `json:"volume"`
	ExclusiveClass *int       `json:"exclusive_class"`
}

// LoopEntry selects the loop mode by name: "none", "continuous" or
// "sustain". An end of 0 means the end of the file.
type LoopEntry struct {
	Mode  string `json:"mode"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// LoadJSON loads a preset JSON file and applies it on top of DefaultConfig.
// Relative paths are resolved against the preset's directory.
func LoadJSON(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f File
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, err
	}

	c := DefaultConfig()
	if err := ApplyFile(c, &f); err != nil {
		return nil, err
	}

	base := filepath.Dir(path)
	c.SoundFontPath = resolve(base, c.SoundFontPath)
	c.Reverb.IRWavPath = resolve(base, c.Reverb.IRWavPath)
	for i := range c.Samples {
		c.Samples[i].Path = resolve(base, c.Samples[i].Path)
	}
	return c, nil
}

func resolve(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}

// ApplyFile applies a parsed preset file onto an existing config.
func ApplyFile(dst *Config, f *File) error {
	if dst == nil {
		return fmt.Errorf("nil destination config")
	}
	if f == nil {
		return nil
	}

	if f.SampleRate != nil {
		if *f.SampleRate <= 0 {
			return fmt.Errorf("sample_rate must be > 0")
		}
		dst.SampleRate = *f.SampleRate
	}
	if f.BufferSize != nil {
		if *f.BufferSize <= 0 {
			return fmt.Errorf("buffer_size must be > 0")
		}
		dst.BufferSize = *f.BufferSize
	}
	if f.SilenceTimeoutSec != nil {
		if *f.SilenceTimeoutSec <= 0 {
			return fmt.Errorf("silence_timeout_sec must be > 0")
		}
		dst.SilenceTimeoutSec = *f.SilenceTimeoutSec
	}
	if f.OutputGain != nil {
		if *f.OutputGain <= 0 {
			return fmt.Errorf("output_gain must be > 0")
		}
		dst.OutputGain = *f.OutputGain
	}
	if f.SoundFontPath != "" {
		dst.SoundFontPath = strings.TrimSpace(f.SoundFontPath)
	}

	if r := f.Reverb; r != nil {
		if r.IRWavPath != "" {
			dst.Reverb.IRWavPath = strings.TrimSpace(r.IRWavPath)
		}
		if r.WetMix != nil {
			if *r.WetMix < 0 {
				return fmt.Errorf("reverb.wet_mix must be >= 0")
			}
			dst.Reverb.WetMix = *r.WetMix
		}
		if r.RoomSeconds != nil {
			if *r.RoomSeconds <= 0 {
				return fmt.Errorf("reverb.room_seconds must be > 0")
			}
			dst.Reverb.RoomSeconds = *r.RoomSeconds
		}
		if r.Seed != nil {
			dst.Reverb.Seed = *r.Seed
		}
	}

	for i, e := range f.Samples {
		s, err := e.sample(i)
		if err != nil {
			return err
		}
		dst.Samples = append(dst.Samples, s)
	}
	return nil
}

func (e SampleEntry) sample(i int) (sampleset.Sample, error) {
	s := DefaultSample()
	s.Path = strings.TrimSpace(e.Path)
	if s.Path == "" {
		return s, fmt.Errorf("samples[%d].path is required", i)
	}

	midi := []struct {
		name string
		src  *int
		dst  *int
	}{
		{"key_lo", e.KeyLo, &s.KeyLo},
		{"key_hi", e.KeyHi, &s.KeyHi},
		{"vel_lo", e.VelLo, &s.VelLo},
		{"vel_hi", e.VelHi, &s.VelHi},
		{"root_key", e.RootKey, &s.RootKey},
	}
	for _, f := range midi {
		if f.src == nil {
			continue
		}
		if *f.src < 0 || *f.src > 127 {
			return s, fmt.Errorf("samples[%d].%s must be in [0,127]", i, f.name)
		}
		*f.dst = *f.src
	}
	if s.KeyLo > s.KeyHi || s.VelLo > s.VelHi {
		return s, fmt.Errorf("samples[%d] has an empty key or velocity range", i)
	}
	if e.Bank != nil {
		s.Bank = *e.Bank
	}
	if e.Instrument != nil {
		s.Instrument = *e.Instrument
	}

	times := []struct {
		name string
		src  *float64
		dst  *float64
	}{
		{"attack", e.Attack, &s.Envelope.AttackTime},
		{"hold", e.Hold, &s.Envelope.HoldTime},
		{"decay", e.Decay, &s.Envelope.DecayTime},
		{"release", e.Release, &s.Envelope.ReleaseTime},
	}
	for _, f := range times {
		if f.src == nil {
			continue
		}
		if *f.src < 0 {
			return s, fmt.Errorf("samples[%d].%s must be >= 0", i, f.name)
		}
		*f.dst = *f.src
	}
	if e.Sustain != nil {
		if *e.Sustain < 0 || *e.Sustain > 1 {
			return s, fmt.Errorf("samples[%d].sustain must be in [0,1]", i)
		}
		s.Envelope.SustainLevel = *e.Sustain
	}
	if e.Pan != nil {
		if *e.Pan < -1 || *e.Pan > 1 {
			return s, fmt.Errorf("samples[%d].pan must be in [-1,1]", i)
		}
		s.Pan = *e.Pan
	}
	if e.Volume != nil {
		if *e.Volume <= 0 {
			return s, fmt.Errorf("samples[%d].volume must be > 0", i)
		}
		s.Volume = *e.Volume
	}
	if e.ExclusiveClass != nil {
		s.ExclusiveClass = *e.ExclusiveClass
	}

	if l := e.Loop; l != nil {
		mode, err := parseLoopMode(l.Mode)
		if err != nil {
			return s, fmt.Errorf("samples[%d].loop: %w", i, err)
		}
		if l.Start < 0 || (l.End != 0 && l.End <= l.Start) {
			return s, fmt.Errorf("samples[%d].loop range %d..%d is invalid", i, l.Start, l.End)
		}
		s.Loop = synth.Loop{Mode: mode, Start: l.Start, End: l.End}
	}
	return s, nil
}

func parseLoopMode(s string) (synth.LoopMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return synth.LoopNone, nil
	case "continuous":
		return synth.LoopContinuous, nil
	case "sustain":
		return synth.LoopSustain, nil
	}
	return synth.LoopNone, fmt.Errorf("unknown mode %q", s)
}
