package synth

import (
	"log/slog"
	"sync"
)

// LoopMode controls whether a voice wraps inside its loop points.
type LoopMode uint8

const (
	LoopNone LoopMode = iota
	// LoopContinuous wraps for the whole lifetime of the voice.
	LoopContinuous
	// LoopSustain wraps until note-off, then plays through to the sample end.
	LoopSustain
)

func (m LoopMode) String() string {
	switch m {
	case LoopContinuous:
		return "continuous"
	case LoopSustain:
		return "sustain"
	default:
		return "none"
	}
}

// Loop describes the loop points of a region in frames.
type Loop struct {
	Mode  LoopMode
	Start int
	End   int
}

// EnvelopeParams are the volume envelope times in seconds and the linear
// sustain level.
type EnvelopeParams struct {
	AttackTime   float64
	HoldTime     float64
	DecayTime    float64
	SustainLevel float64
	ReleaseTime  float64
}

// DefaultEnvelope is a gate-like envelope used when a region does not
// specify one.
func DefaultEnvelope() EnvelopeParams {
	return EnvelopeParams{
		AttackTime:   0.001,
		HoldTime:     0,
		DecayTime:    0,
		SustainLevel: 1,
		ReleaseTime:  0.05,
	}
}

// SampleParameter describes how a sample is played back.
type SampleParameter struct {
	Name        string
	SampleID    int
	Pitch       float64 // native pitch as a MIDI note number
	Loop        Loop
	SampleStart int
	SampleEnd   int
	SampleRate  int
	Envelope    EnvelopeParams
	ScaleTuning float64
	Pan         float64
	Volume      float64
	// ExclusiveClass groups regions that steal from each other; 0 means none.
	ExclusiveClass int
}

// SampleRange is the (bank, instrument, key, velocity) area a parameter
// answers for. Ranges are inclusive.
type SampleRange struct {
	Bank       int
	Instrument int
	KeyRange   [2]int
	VelRange   [2]int
}

// PCM is a read-only view of a registered sample buffer.
type PCM struct {
	data []float32
}

// Len returns the number of frames.
func (p PCM) Len() int { return len(p.data) }

// At returns frame i, or 0 outside the buffer.
func (p PCM) At(i int) float32 {
	if i < 0 || i >= len(p.data) {
		return 0
	}
	return p.data[i]
}

// Region is a sample parameter resolved against its PCM buffer.
type Region struct {
	SampleParameter
	Range SampleRange
	PCM   PCM
}

type regionEntry struct {
	param SampleParameter
	rng   SampleRange
}

type instrumentKey struct {
	bank       int
	instrument int
}

// SampleTable maps (bank, instrument, key, velocity) to sample regions.
// It is written while loading and only read while voices play; the mutex
// lets a table be shared by several cores.
type SampleTable struct {
	mu      sync.RWMutex
	logger  *slog.Logger
	samples map[int]PCM
	entries []regionEntry
	index   map[instrumentKey]*[128][]int
}

// NewSampleTable creates an empty table.
func NewSampleTable(logger *slog.Logger) *SampleTable {
	if logger == nil {
		logger = slog.Default()
	}
	return &SampleTable{
		logger:  logger,
		samples: make(map[int]PCM),
		index:   make(map[instrumentKey]*[128][]int),
	}
}

// AddSample registers PCM data under id. The data is copied.
func (t *SampleTable) AddSample(id int, data []float32) {
	buf := make([]float32, len(data))
	copy(buf, data)
	t.mu.Lock()
	t.samples[id] = PCM{data: buf}
	t.mu.Unlock()
}

// AddParameter indexes p under every key of r.KeyRange.
func (t *SampleTable) AddParameter(p SampleParameter, r SampleRange) {
	lo, hi := clampKey(r.KeyRange[0]), clampKey(r.KeyRange[1])
	if lo > hi {
		t.logger.Warn("ignoring sample parameter with empty key range",
			"sample", p.SampleID, "name", p.Name, "lo", r.KeyRange[0], "hi", r.KeyRange[1])
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	idx := len(t.entries)
	t.entries = append(t.entries, regionEntry{param: p, rng: r})
	k := instrumentKey{bank: r.Bank, instrument: r.Instrument}
	keys, ok := t.index[k]
	if !ok {
		keys = new([128][]int)
		t.index[k] = keys
	}
	for key := lo; key <= hi; key++ {
		keys[key] = append(keys[key], idx)
	}
}

// Lookup returns the regions for a note. If bank has nothing registered for
// instrument, bank 0 is tried instead. Regions whose PCM was never loaded
// are skipped.
func (t *SampleTable) Lookup(bank, instrument, key, velocity int) []Region {
	if key < 0 || key > 127 {
		return nil
	}
	t.mu.RLock()
	defer t.mu.RUnlock()

	keys, ok := t.index[instrumentKey{bank: bank, instrument: instrument}]
	if !ok {
		keys, ok = t.index[instrumentKey{bank: 0, instrument: instrument}]
		if !ok {
			return nil
		}
	}

	var out []Region
	for _, idx := range keys[key] {
		e := t.entries[idx]
		if velocity < e.rng.VelRange[0] || velocity > e.rng.VelRange[1] {
			continue
		}
		pcm, ok := t.samples[e.param.SampleID]
		if !ok {
			t.logger.Warn("sample data not loaded", "sample", e.param.SampleID, "name", e.param.Name)
			continue
		}
		out = append(out, Region{SampleParameter: e.param, Range: e.rng, PCM: pcm})
	}
	return out
}

// Instruments lists the registered (bank, instrument) pairs.
func (t *SampleTable) Instruments() [][2]int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([][2]int, 0, len(t.index))
	for k := range t.index {
		out = append(out, [2]int{k.bank, k.instrument})
	}
	return out
}

func clampKey(k int) int {
	if k < 0 {
		return 0
	}
	if k > 127 {
		return 127
	}
	return k
}
