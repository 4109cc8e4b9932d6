// Package analysis measures rendered synth output.
package analysis

import (
	"math"
	"math/cmplx"

	algofft "github.com/cwbudde/algo-fft"
)

const (
	silenceThreshold = 1e-4 // -80 dBFS
	fftSize          = 4096
	fftHop           = 2048
)

// Levels summarizes a stereo render.
type Levels struct {
	Frames             int     `json:"frames"`
	PeakDBFS           float64 `json:"peak_dbfs"`
	RMSDBFS            float64 `json:"rms_dbfs"`
	ClippedSamples     int     `json:"clipped_samples"`
	SilentTailFrames   int     `json:"silent_tail_frames"`
	SpectralCentroidHz float64 `json:"spectral_centroid_hz"`
}

// Measure returns the levels of a stereo signal. Samples at or beyond
// full scale count as clipped; the silent tail is the run of trailing
// frames below -80 dBFS on both channels.
func Measure(left, right []float32, sampleRate int) Levels {
	n := min(len(left), len(right))
	l := Levels{Frames: n, PeakDBFS: linToDB(0), RMSDBFS: linToDB(0)}
	if n == 0 {
		return l
	}

	var peak, sum float64
	for i := 0; i < n; i++ {
		for _, v := range [2]float64{float64(left[i]), float64(right[i])} {
			a := math.Abs(v)
			peak = math.Max(peak, a)
			sum += v * v
			if a >= 1 {
				l.ClippedSamples++
			}
		}
	}
	l.PeakDBFS = linToDB(peak)
	l.RMSDBFS = linToDB(math.Sqrt(sum / float64(2*n)))

	for i := n - 1; i >= 0; i-- {
		if math.Abs(float64(left[i])) >= silenceThreshold || math.Abs(float64(right[i])) >= silenceThreshold {
			break
		}
		l.SilentTailFrames++
	}

	mono := make([]float64, n)
	for i := range mono {
		mono[i] = 0.5 * float64(left[i]+right[i])
	}
	if mag := averageSpectrum(mono); mag != nil && sampleRate > 0 {
		binHz := float64(sampleRate) / fftSize
		var num, den float64
		for k := 1; k < len(mag); k++ {
			num += float64(k) * binHz * mag[k]
			den += mag[k]
		}
		if den > 0 {
			l.SpectralCentroidHz = num / den
		}
	}
	return l
}

// averageSpectrum returns the mean Hann-windowed magnitude spectrum over
// fftSize frames with fftHop overlap. Signals shorter than one frame are
// zero padded. It returns nil for silence or when no plan can be built.
func averageSpectrum(x []float64) []float64 {
	plan, err := algofft.NewPlanReal64(fftSize)
	if err != nil {
		return nil
	}
	win := hann(fftSize)
	spec := make([]complex128, fftSize/2+1)
	buf := make([]float64, fftSize)
	avg := make([]float64, fftSize/2)

	frames := 0
	for pos := 0; frames == 0 || pos+fftSize <= len(x); pos += fftHop {
		clear(buf)
		for i := 0; i < fftSize && pos+i < len(x); i++ {
			buf[i] = x[pos+i] * win[i]
		}
		plan.Forward(spec, buf)
		for k := range avg {
			avg[k] += cmplx.Abs(spec[k])
		}
		frames++
	}

	total := 0.0
	for k := range avg {
		avg[k] /= float64(frames)
		total += avg[k]
	}
	if total == 0 {
		return nil
	}
	return avg
}

func hann(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n-1))
	}
	return w
}

func linToDB(x float64) float64 {
	if x < 1e-12 {
		x = 1e-12
	}
	return 20.0 * math.Log10(x)
}
