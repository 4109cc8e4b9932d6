package preset

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/cwbudde/algo-sfsynth/internal/wavio"
	"github.com/cwbudde/algo-sfsynth/synth"
)

func TestInstrumentsFromSamples(t *testing.T) {
	dir := t.TempDir()
	wavPath := filepath.Join(dir, "tone.wav")
	data := make([]float32, 400)
	for i := range data {
		data[i] = 0.25
	}
	if err := wavio.WriteMono(wavPath, data, 8000); err != nil {
		t.Fatalf("write wav: %v", err)
	}

	c := DefaultConfig()
	s := DefaultSample()
	s.Path = wavPath
	c.Samples = append(c.Samples, s, s)

	events, presets, err := c.Instruments(slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("Instruments: %v", err)
	}
	if len(presets) != 0 {
		t.Fatalf("no soundfont, but got presets %v", presets)
	}
	if len(events) != 3 {
		t.Fatalf("expected 1 load + 2 parameter events, got %d", len(events))
	}
	load, ok := events[0].(synth.LoadSampleEvent)
	if !ok || load.SampleID != 0 || len(load.Data) != 400 {
		t.Fatalf("unexpected first event %#v", events[0])
	}
}

func TestInstrumentsErrors(t *testing.T) {
	c := DefaultConfig()
	if _, _, err := c.Instruments(nil); err == nil {
		t.Fatalf("expected error without instruments")
	}
	c.SoundFontPath = filepath.Join(t.TempDir(), "missing.sf2")
	if _, _, err := c.Instruments(nil); err == nil {
		t.Fatalf("expected error for a missing soundfont")
	}
}
