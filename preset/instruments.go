package preset

import (
	"fmt"
	"log/slog"

	"github.com/cwbudde/algo-sfsynth/sampleset"
	"github.com/cwbudde/algo-sfsynth/soundfont"
	"github.com/cwbudde/algo-sfsynth/synth"
)

// Instruments loads the configured SoundFont and sample set and returns the
// events that register them, plus the SoundFont's preset list. Sample-set
// IDs follow the SoundFont's so both can be loaded into one core.
func (c *Config) Instruments(logger *slog.Logger) ([]synth.Event, []soundfont.Preset, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var (
		events  []synth.Event
		presets []soundfont.Preset
		firstID int
	)
	if c.SoundFontPath != "" {
		f, err := soundfont.Load(c.SoundFontPath)
		if err != nil {
			return nil, nil, fmt.Errorf("soundfont %q: %w", c.SoundFontPath, err)
		}
		sf, err := f.Events(logger)
		if err != nil {
			return nil, nil, fmt.Errorf("soundfont %q: %w", c.SoundFontPath, err)
		}
		events = append(events, sf...)
		presets = f.Presets()
		firstID = len(f.Samples())
		logger.Info("loaded soundfont", "path", c.SoundFontPath, "name", f.Name, "presets", len(presets), "samples", firstID)
	}
	if len(c.Samples) > 0 {
		set, err := sampleset.Events(c.Samples, firstID, logger)
		if err != nil {
			return nil, nil, err
		}
		events = append(events, set...)
	}
	if len(events) == 0 {
		return nil, nil, fmt.Errorf("no instruments: set a soundfont or samples")
	}
	return events, presets, nil
}
