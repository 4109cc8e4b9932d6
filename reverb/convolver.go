// Package reverb adds a convolution room to rendered synth output.
package reverb

import (
	"fmt"

	dspconv "github.com/cwbudde/algo-dsp/dsp/conv"

	"github.com/cwbudde/algo-sfsynth/internal/wavio"
)

const partSize = 128

// Convolver is a stereo partitioned convolver: each input channel is
// convolved with its own impulse response.
type Convolver struct {
	sampleRate int
	irLen      int

	leftOLA  *dspconv.StreamingOverlapAddT[float32, complex64]
	rightOLA *dspconv.StreamingOverlapAddT[float32, complex64]

	// Reused block buffers.
	blockL, blockR []float32
	outL, outR     []float32
}

// NewConvolver creates a convolver with an identity impulse response.
func NewConvolver(sampleRate int) *Convolver {
	c := &Convolver{
		sampleRate: sampleRate,
		blockL:     make([]float32, partSize),
		blockR:     make([]float32, partSize),
		outL:       make([]float32, partSize),
		outR:       make([]float32, partSize),
	}
	if err := c.SetIR([]float32{1}, []float32{1}); err != nil {
		panic(err)
	}
	return c
}

// SetIR installs left/right impulse responses. An empty channel becomes an
// identity response.
func (c *Convolver) SetIR(leftIR, rightIR []float32) error {
	if len(leftIR) == 0 {
		leftIR = []float32{1}
	}
	if len(rightIR) == 0 {
		rightIR = []float32{1}
	}
	leftOLA, err := dspconv.NewStreamingOverlapAdd32(leftIR, partSize)
	if err != nil {
		return fmt.Errorf("left ir: %w", err)
	}
	rightOLA, err := dspconv.NewStreamingOverlapAdd32(rightIR, partSize)
	if err != nil {
		return fmt.Errorf("right ir: %w", err)
	}
	c.leftOLA = leftOLA
	c.rightOLA = rightOLA
	c.irLen = max(len(leftIR), len(rightIR))
	c.Reset()
	return nil
}

// SetIRFromWAV loads a mono or stereo impulse response, resampled to the
// convolver rate.
func (c *Convolver) SetIRFromWAV(path string) error {
	st, err := wavio.Read(path)
	if err != nil {
		return err
	}
	left, err := wavio.Resample(st.Left, st.SampleRate, c.sampleRate)
	if err != nil {
		return err
	}
	right, err := wavio.Resample(st.Right, st.SampleRate, c.sampleRate)
	if err != nil {
		return err
	}
	return c.SetIR(left, right)
}

// TailLen returns the number of frames the response rings after the input
// stops.
func (c *Convolver) TailLen() int {
	if c.irLen <= 1 {
		return 0
	}
	return c.irLen - 1
}

// Process convolves inL/inR into outL/outR. All slices must have the same
// length; outputs are overwritten. When streaming, pass multiples of 128
// frames: a short final block is zero padded.
func (c *Convolver) Process(inL, inR, outL, outR []float32) error {
	n := len(inL)
	if len(inR) != n || len(outL) != n || len(outR) != n {
		return fmt.Errorf("reverb: channel length mismatch")
	}
	for done := 0; done < n; {
		blockLen := min(partSize, n-done)

		clear(c.blockL)
		clear(c.blockR)
		copy(c.blockL, inL[done:done+blockLen])
		copy(c.blockR, inR[done:done+blockLen])

		if err := c.leftOLA.ProcessBlockTo(c.outL, c.blockL); err != nil {
			return err
		}
		if err := c.rightOLA.ProcessBlockTo(c.outR, c.blockR); err != nil {
			return err
		}
		copy(outL[done:done+blockLen], c.outL[:blockLen])
		copy(outR[done:done+blockLen], c.outR[:blockLen])
		done += blockLen
	}
	return nil
}

// Reset clears the convolution history.
func (c *Convolver) Reset() {
	if c.leftOLA != nil {
		c.leftOLA.Reset()
	}
	if c.rightOLA != nil {
		c.rightOLA.Reset()
	}
}
