package analysis

import (
	"math"

	algofft "github.com/cwbudde/algo-fft"
)

// lagWindowSec bounds the audio used to align two renders.
const lagWindowSec = 4

// Metrics compares a render against a reference render of the same piece.
type Metrics struct {
	SampleRate     int     `json:"sample_rate"`
	AlignedFrames  int     `json:"aligned_frames"`
	LagFrames      int     `json:"lag_frames"`
	TimeRMSE       float64 `json:"time_rmse"`
	EnvelopeRMSEDB float64 `json:"envelope_rmse_db"`
	SpectralRMSEDB float64 `json:"spectral_rmse_db"`
	// Score combines the three distances into [0,1]; 0 means identical.
	Score float64 `json:"score"`
}

// Compare measures how far candidate is from reference. Both are mono
// mixdowns; the candidate is aligned to the reference by cross-correlation
// within half a second before the distances are taken.
func Compare(reference, candidate []float32, sampleRate int) Metrics {
	m := Metrics{SampleRate: sampleRate, Score: 1}
	if sampleRate <= 0 || len(reference) == 0 || len(candidate) == 0 {
		return m
	}
	maxLag := max(1, min(sampleRate/2, len(reference)-1, len(candidate)-1))
	m.LagFrames = estimateLag(reference, candidate, maxLag, lagWindowSec*sampleRate)
	ref, cand := alignByLag(toFloat64(reference), toFloat64(candidate), m.LagFrames)
	n := min(len(ref), len(cand))
	if n < 256 {
		return m
	}
	ref, cand = ref[:n], cand[:n]
	m.AlignedFrames = n

	m.TimeRMSE = rmse(ref, cand)

	refEnv := rmsEnvelope(ref, 256, 128)
	candEnv := rmsEnvelope(cand, 256, 128)
	if len(refEnv) > 0 {
		diff := make([]float64, len(refEnv))
		for i := range diff {
			diff[i] = linToDB(refEnv[i]) - linToDB(candEnv[i])
		}
		m.EnvelopeRMSEDB = rms(diff)
	}

	if a, b := averageSpectrum(ref), averageSpectrum(cand); a != nil && b != nil {
		diff := make([]float64, len(a)-1)
		for k := 1; k < len(a); k++ {
			diff[k-1] = linToDB(a[k]) - linToDB(b[k])
		}
		m.SpectralRMSEDB = rms(diff)
	}

	m.Score = clamp01(0.4*clamp01(m.TimeRMSE/0.25) +
		0.3*clamp01(m.EnvelopeRMSEDB/30) +
		0.3*clamp01(m.SpectralRMSEDB/30))
	return m
}

// MonoMix averages two channels.
func MonoMix(left, right []float32) []float32 {
	out := make([]float32, min(len(left), len(right)))
	for i := range out {
		out[i] = 0.5 * (left[i] + right[i])
	}
	return out
}

func toFloat64(x []float32) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = float64(v)
	}
	return out
}

// estimateLag returns the shift of cand against ref, within maxLag, that
// maximizes their cross-correlation over the first window frames. Positive
// lags mean cand starts late.
func estimateLag(ref, cand []float32, maxLag, window int) int {
	ref = ref[:min(len(ref), window)]
	cand = cand[:min(len(cand), window)]
	// Correlating is convolving with the time-reversed reference:
	// corr[lag] = conv[lag+len(ref)-1].
	rev := make([]float32, len(ref))
	for i, v := range ref {
		rev[len(ref)-1-i] = v
	}
	conv := make([]float32, len(rev)+len(cand)-1)
	if err := algofft.ConvolveReal(conv, rev, cand); err != nil {
		return 0
	}
	best, bestLag := math.Inf(-1), 0
	for lag := -maxLag; lag <= maxLag; lag++ {
		k := lag + len(ref) - 1
		if k < 0 || k >= len(conv) {
			continue
		}
		if s := float64(conv[k]); s > best {
			best, bestLag = s, lag
		}
	}
	return bestLag
}

func alignByLag(ref, cand []float64, lag int) ([]float64, []float64) {
	if lag >= 0 {
		return ref, cand[min(lag, len(cand)):]
	}
	return ref[min(-lag, len(ref)):], cand
}

func rmse(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(a)))
}

func rms(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	var sum float64
	for _, v := range x {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(x)))
}

func rmsEnvelope(x []float64, frame, hop int) []float64 {
	if len(x) < frame {
		return nil
	}
	out := make([]float64, 1+(len(x)-frame)/hop)
	for i := range out {
		out[i] = rms(x[i*hop : i*hop+frame])
	}
	return out
}

func clamp01(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}
