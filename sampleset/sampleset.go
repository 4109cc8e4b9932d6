// Package sampleset builds synth sample events from plain WAV files, one
// region per file.
package sampleset

import (
	"fmt"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/cwbudde/algo-sfsynth/internal/wavio"
	"github.com/cwbudde/algo-sfsynth/synth"
)

// Sample maps one WAV file onto a key/velocity area of an instrument.
type Sample struct {
	Path           string
	Bank           int
	Instrument     int
	KeyLo, KeyHi   int
	VelLo, VelHi   int
	RootKey        int // MIDI note recorded in the file
	Loop           synth.Loop
	Envelope       synth.EnvelopeParams
	Pan            float64
	Volume         float64
	ExclusiveClass int
}

type pcm struct {
	data []float32
	rate int
}

// Events loads every file once, in parallel, and returns one
// LoadSampleEvent per distinct path followed by one SampleParameterEvent per
// sample. Sample IDs start at firstID so they can sit next to a SoundFont.
func Events(samples []Sample, firstID int, logger *slog.Logger) ([]synth.Event, error) {
	if logger == nil {
		logger = slog.Default()
	}
	ids := map[string]int{}
	var paths []string
	for _, s := range samples {
		if _, ok := ids[s.Path]; !ok {
			ids[s.Path] = firstID + len(paths)
			paths = append(paths, s.Path)
		}
	}

	loaded := make([]pcm, len(paths))
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, path := range paths {
		g.Go(func() error {
			data, rate, err := wavio.ReadMono(path)
			if err != nil {
				return fmt.Errorf("sample %s: %w", path, err)
			}
			loaded[i] = pcm{data: data, rate: rate}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	events := make([]synth.Event, 0, len(paths)+len(samples))
	for i, path := range paths {
		events = append(events, synth.LoadSampleEvent{SampleID: ids[path], Data: loaded[i].data})
	}
	for _, s := range samples {
		i := ids[s.Path] - firstID
		p, err := s.parameter(ids[s.Path], loaded[i])
		if err != nil {
			return nil, err
		}
		logger.Debug("sample region", "path", s.Path, "bank", s.Bank, "instrument", s.Instrument,
			"keys", fmt.Sprintf("%d-%d", s.KeyLo, s.KeyHi), "frames", len(loaded[i].data))
		events = append(events, synth.SampleParameterEvent{
			Parameter: p,
			Range: synth.SampleRange{
				Bank:       s.Bank,
				Instrument: s.Instrument,
				KeyRange:   [2]int{s.KeyLo, s.KeyHi},
				VelRange:   [2]int{s.VelLo, s.VelHi},
			},
		})
	}
	return events, nil
}

func (s Sample) parameter(id int, p pcm) (synth.SampleParameter, error) {
	n := len(p.data)
	loop := s.Loop
	if loop.Mode != synth.LoopNone {
		if loop.End == 0 {
			loop.End = n
		}
		if loop.Start < 0 || loop.End > n || loop.Start >= loop.End {
			return synth.SampleParameter{}, fmt.Errorf("sample %s: loop %d..%d outside %d frames", s.Path, loop.Start, loop.End, n)
		}
	}
	volume := s.Volume
	if volume == 0 {
		volume = 1
	}
	return synth.SampleParameter{
		Name:           s.Path,
		SampleID:       id,
		Pitch:          float64(s.RootKey),
		Loop:           loop,
		SampleEnd:      n,
		SampleRate:     p.rate,
		Envelope:       s.Envelope,
		ScaleTuning:    1,
		Pan:            s.Pan,
		Volume:         volume,
		ExclusiveClass: s.ExclusiveClass,
	}, nil
}
