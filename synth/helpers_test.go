package synth

import (
	"io"
	"log/slog"
	"math"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func constPCM(n int, v float32) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func sinePCM(n int, period float64) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(math.Sin(2 * math.Pi * float64(i) / period))
	}
	return out
}

// testParam returns a sustaining, unlooped parameter for sample id.
func testParam(id, frames, sampleRate int) SampleParameter {
	return SampleParameter{
		Name:        "test",
		SampleID:    id,
		Pitch:       60,
		SampleStart: 0,
		SampleEnd:   frames,
		SampleRate:  sampleRate,
		Envelope: EnvelopeParams{
			AttackTime:   0,
			HoldTime:     0,
			DecayTime:    0,
			SustainLevel: 1,
			ReleaseTime:  0.05,
		},
		ScaleTuning: 1,
		Volume:      1,
	}
}

func fullRange(bank, instrument int) SampleRange {
	return SampleRange{Bank: bank, Instrument: instrument, KeyRange: [2]int{0, 127}, VelRange: [2]int{0, 127}}
}

func testRegion(p SampleParameter, pcm []float32) Region {
	return Region{SampleParameter: p, PCM: PCM{data: pcm}}
}

// stepCore clears the buffers and renders one block.
func stepCore(c *Core, left, right []float32) {
	for i := range left {
		left[i] = 0
		right[i] = 0
	}
	c.Process(left, right)
}

func rms(buf []float32) float64 {
	if len(buf) == 0 {
		return 0
	}
	var sum float64
	for _, s := range buf {
		v := float64(s)
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(buf)))
}

func allVoices(c *Core, channel int) []*Voice {
	st := c.channels[channel]
	if st == nil {
		return nil
	}
	var out []*Voice
	st.forEachVoice(func(v *Voice) { out = append(out, v) })
	return out
}
