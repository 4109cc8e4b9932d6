package soundfont

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/cwbudde/algo-sfsynth/internal/wavio"
	"github.com/cwbudde/algo-sfsynth/synth"
)

// minSampleRate is the lowest rate kept as is; slower samples are
// upsampled by powers of two.
const minSampleRate = 22050

// Preset names one playable program of the bank.
type Preset struct {
	Name    string
	Bank    int
	Program int
}

// Presets lists the presets in file order.
func (f *File) Presets() []Preset {
	out := make([]Preset, len(f.presets))
	for i, p := range f.presets {
		out[i] = Preset{Name: p.name, Bank: p.bank, Program: p.program}
	}
	return out
}

type loadedSample struct {
	data []float32
	rate int
	mult int
}

// Events converts every preset zone into sample events: one LoadSampleEvent
// per referenced sample, then one SampleParameterEvent per region. Zones
// pointing at missing instruments or samples are logged and skipped.
func (f *File) Events(logger *slog.Logger) ([]synth.Event, error) {
	if logger == nil {
		logger = slog.Default()
	}
	loaded := map[int]loadedSample{}
	var params []synth.Event

	for pi, p := range f.presets {
		pglobal, pzones := zonesOf(f.pbags, f.pgens, f.bagSpan(pi, true), genInstrument)
		for _, pz := range pzones {
			var pgen zone
			if pglobal != nil {
				pgen.overlay(pglobal)
			}
			pgen.overlay(&pz)

			inst := int(pgen.vals[genInstrument])
			if inst >= len(f.instruments) {
				logger.Warn("skipping preset zone with invalid instrument",
					"preset", p.name, "instrument", inst, "instruments", len(f.instruments))
				continue
			}
			iglobal, izones := zonesOf(f.ibags, f.igens, f.bagSpan(inst, false), genSampleID)
			for _, iz := range izones {
				sid := int(iz.vals[genSampleID])
				if sid >= len(f.samples) {
					logger.Warn("skipping instrument zone with invalid sample",
						"instrument", f.instruments[inst].name, "sample", sid, "samples", len(f.samples))
					continue
				}
				s, ok := loaded[sid]
				if !ok {
					var err error
					if s, err = f.loadSample(sid); err != nil {
						return nil, fmt.Errorf("sample %q: %w", f.samples[sid].Name, err)
					}
					loaded[sid] = s
				}
				ev, ok := f.region(p, &pgen, iglobal, &iz, sid, s)
				if !ok {
					logger.Warn("skipping zone with empty key range", "preset", p.name, "sample", f.samples[sid].Name)
					continue
				}
				params = append(params, ev)
			}
		}
	}

	events := make([]synth.Event, 0, len(loaded)+len(params))
	for _, id := range slices.Sorted(maps.Keys(loaded)) {
		events = append(events, synth.LoadSampleEvent{SampleID: id, Data: loaded[id].data})
	}
	return append(events, params...), nil
}

// bagSpan returns the bag indexes [first, last) of preset or instrument i.
func (f *File) bagSpan(i int, preset bool) [2]int {
	var first, last, n int
	if preset {
		n = len(f.pbags)
		first = f.presets[i].bagIndex
		if i+1 < len(f.presets) {
			last = f.presets[i+1].bagIndex
		} else if f.presetBagEnd >= 0 {
			last = f.presetBagEnd
		} else {
			last = n
		}
	} else {
		n = len(f.ibags)
		first = f.instruments[i].bagIndex
		if i+1 < len(f.instruments) {
			last = f.instruments[i+1].bagIndex
		} else if f.instBagEnd >= 0 {
			last = f.instBagEnd
		} else {
			last = n
		}
	}
	last = min(last, n)
	return [2]int{min(first, last), last}
}

// zonesOf splits bags into zones. A first zone without the terminal
// generator is the global zone; later zones without it are dropped.
func zonesOf(bags []bag, gens []generator, span [2]int, terminal genOp) (*zone, []zone) {
	var global *zone
	var zones []zone
	for b := span[0]; b < span[1]; b++ {
		start := min(bags[b].genIndex, len(gens))
		end := len(gens)
		if b+1 < len(bags) {
			end = min(bags[b+1].genIndex, len(gens))
		}
		var z zone
		for _, g := range gens[start:max(start, end)] {
			z.put(g)
		}
		switch {
		case z.has(terminal):
			zones = append(zones, z)
		case b == span[0]:
			global = &z
		}
	}
	return global, zones
}

func (f *File) loadSample(id int) (loadedSample, error) {
	h := f.samples[id]
	data := f.pcm(id)
	mult := 1
	if h.SampleRate > 0 {
		for h.SampleRate*mult < minSampleRate {
			mult *= 2
		}
	}
	if mult > 1 {
		up, err := wavio.Resample(data, h.SampleRate, h.SampleRate*mult)
		if err != nil {
			return loadedSample{}, err
		}
		want := len(data) * mult
		if len(up) < want {
			up = append(up, make([]float32, want-len(up))...)
		}
		data = up[:want]
	}
	return loadedSample{data: data, rate: h.SampleRate * mult, mult: mult}, nil
}

// additive reports whether a preset-level generator is added to the
// instrument value.
func additive(op genOp) bool {
	switch op {
	case genInstrument, genKeyRange, genVelRange, genSampleID:
		return false
	}
	return !instrumentOnly[op]
}

func (f *File) region(p presetHeader, pgen, iglobal, izone *zone, sid int, s loadedSample) (synth.Event, bool) {
	gen := instrumentDefaults()
	if iglobal != nil {
		gen.overlay(iglobal)
	}
	gen.overlay(izone)
	get := func(op genOp, def int) int {
		v := gen.value(op, def)
		if additive(op) {
			v += pgen.value(op, 0)
		}
		return v
	}

	keyLo, keyHi, _ := gen.span(genKeyRange)
	if lo, hi, ok := pgen.span(genKeyRange); ok {
		keyLo, keyHi = max(keyLo, lo), min(keyHi, hi)
	}
	if keyLo > keyHi {
		return nil, false
	}
	velLo, velHi, ok := gen.span(genVelRange)
	if !ok {
		velLo, velHi, _ = pgen.span(genVelRange)
	}

	h := f.samples[sid]
	root := gen.value(genOverridingRootKey, -1)
	if root < 0 {
		root = h.OriginalPitch
	}
	pitch := float64(root) - float64(get(genCoarseTune, 0)) -
		float64(get(genFineTune, 0))/100 - float64(h.PitchCorrection)/100

	n := len(s.data)
	offset := func(coarse, fine genOp) int {
		return (gen.value(coarse, 0)*32768 + gen.value(fine, 0)) * s.mult
	}
	start := clamp(offset(genStartAddrsCoarseOffset, genStartAddrsOffset), 0, n)
	end := clamp(n+offset(genEndAddrsCoarseOffset, genEndAddrsOffset), start, n)
	loopStart := h.LoopStart*s.mult + offset(genStartloopAddrsCoarseOffset, genStartloopAddrsOffset)
	loopEnd := min(h.LoopEnd*s.mult+offset(genEndloopAddrsCoarseOffset, genEndloopAddrsOffset), n)

	loop := synth.Loop{Mode: synth.LoopNone}
	if loopEnd > 0 && loopStart >= 0 && loopStart < loopEnd {
		switch gen.value(genSampleModes, 0) {
		case 1:
			loop = synth.Loop{Mode: synth.LoopContinuous, Start: loopStart, End: loopEnd}
		case 3:
			loop = synth.Loop{Mode: synth.LoopSustain, Start: loopStart, End: loopEnd}
		}
	}

	param := synth.SampleParameter{
		Name:        h.Name,
		SampleID:    sid,
		Pitch:       pitch,
		Loop:        loop,
		SampleStart: start,
		SampleEnd:   end,
		SampleRate:  s.rate,
		Envelope: synth.EnvelopeParams{
			AttackTime:   timecentsToSeconds(get(genAttackVolEnv, -12000)),
			HoldTime:     timecentsToSeconds(get(genHoldVolEnv, -12000)),
			DecayTime:    timecentsToSeconds(get(genDecayVolEnv, -12000)),
			SustainLevel: min(centibelsToGain(get(genSustainVolEnv, 0)), 1),
			ReleaseTime:  timecentsToSeconds(get(genReleaseVolEnv, -12000)),
		},
		ScaleTuning:    float64(get(genScaleTuning, 100)) / 100,
		Pan:            float64(get(genPan, 0)) / 500,
		Volume:         centibelsToGain(get(genInitialAttenuation, 0)),
		ExclusiveClass: gen.value(genExclusiveClass, 0),
	}
	return synth.SampleParameterEvent{
		Parameter: param,
		Range: synth.SampleRange{
			Bank:       p.bank,
			Instrument: p.program,
			KeyRange:   [2]int{keyLo, keyHi},
			VelRange:   [2]int{velLo, velHi},
		},
	}, true
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
