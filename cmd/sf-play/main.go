package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/cwbudde/algo-sfsynth/internal/audio"
	"github.com/cwbudde/algo-sfsynth/midifile"
	"github.com/cwbudde/algo-sfsynth/preset"
)

func main() {
	sf2 := flag.String("sf2", "", "SoundFont 2 file (overrides the preset)")
	presetPath := flag.String("preset", "", "Preset JSON file path")
	backend := flag.String("backend", "oto", "Audio backend: oto or portaudio (needs -tags portaudio)")
	latency := flag.Duration("latency", 40*time.Millisecond, "Device buffer length")
	sampleRate := flag.Int("sample-rate", 0, "Output sample rate in Hz (default from preset)")
	midiPath := flag.String("midi", "", "MIDI file to play on start")
	verbose := flag.Bool("v", false, "Verbose logging")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg := preset.DefaultConfig()
	if *presetPath != "" {
		var err error
		if cfg, err = preset.LoadJSON(*presetPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error loading preset %q: %v\n", *presetPath, err)
			os.Exit(1)
		}
	}
	if *sf2 != "" {
		cfg.SoundFontPath = *sf2
	}
	if *sampleRate > 0 {
		cfg.SampleRate = *sampleRate
	}

	instruments, presets, err := cfg.Instruments(logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading instruments: %v\n", err)
		os.Exit(1)
	}
	player, err := audio.NewPlayer(audio.Options{
		SampleRate: cfg.SampleRate,
		OutputGain: cfg.OutputGain,
		Reverb:     cfg.ReverbOptions(),
		Logger:     logger,
		Setup:      instruments,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating player: %v\n", err)
		os.Exit(1)
	}
	dev, err := audio.NewBackend(*backend, player, *latency)
	if err == nil {
		err = dev.Start()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error starting audio: %v\n", err)
		os.Exit(1)
	}
	defer dev.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if *midiPath != "" {
		events, err := midifile.ReadFile(*midiPath, cfg.SampleRate)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading MIDI file: %v\n", err)
			os.Exit(1)
		}
		go func() {
			if err := player.PlayEvents(ctx, events); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("midi playback stopped", "err", err)
			}
		}()
	}

	s := &session{send: player.Send, presets: presets, out: os.Stdout}
	if err := repl(s); err != nil && !errors.Is(err, io.EOF) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
