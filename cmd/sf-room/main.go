package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/cwbudde/algo-sfsynth/analysis"
	"github.com/cwbudde/algo-sfsynth/internal/wavio"
	"github.com/cwbudde/algo-sfsynth/reverb"
)

func main() {
	cfg := reverb.DefaultRoomConfig(44100)

	output := flag.String("output", "room.wav", "Output WAV path")
	flag.IntVar(&cfg.SampleRate, "sample-rate", cfg.SampleRate, "Output sample rate")
	flag.Float64Var(&cfg.Seconds, "duration", cfg.Seconds, "IR length in seconds")
	flag.Int64Var(&cfg.Seed, "seed", cfg.Seed, "Random seed")
	flag.IntVar(&cfg.Reflections, "early", cfg.Reflections, "Number of early reflections")
	flag.Float64Var(&cfg.TailLevel, "late", cfg.TailLevel, "Diffuse tail level")
	flag.Float64Var(&cfg.Width, "stereo-width", cfg.Width, "Stereo width of the reflections (0-1)")
	flag.Float64Var(&cfg.LowDecay, "low-decay", cfg.LowDecay, "Low-frequency decay time (s)")
	flag.Float64Var(&cfg.HighDecay, "high-decay", cfg.HighDecay, "High-frequency decay time (s)")
	flag.Float64Var(&cfg.Peak, "normalize", cfg.Peak, "Peak normalization target")
	flag.Parse()

	left, right, err := reverb.GenerateRoom(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sf-room error: %v\n", err)
		os.Exit(1)
	}
	if err := wavio.WriteStereo(*output, left, right, cfg.SampleRate); err != nil {
		fmt.Fprintf(os.Stderr, "wav write error: %v\n", err)
		os.Exit(1)
	}

	l := analysis.Measure(left, right, cfg.SampleRate)
	fmt.Printf("Wrote %s\n", *output)
	fmt.Printf("SampleRate: %d Hz, Duration: %.3f s, Samples: %d\n", cfg.SampleRate, cfg.Seconds, len(left))
	fmt.Printf("Peak: %.1f dBFS, RMS: %.1f dBFS, centroid %.0f Hz\n", l.PeakDBFS, l.RMSDBFS, l.SpectralCentroidHz)
}
