package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/cwbudde/algo-sfsynth/analysis"
	"github.com/cwbudde/algo-sfsynth/internal/wavio"
	"github.com/cwbudde/algo-sfsynth/midifile"
	"github.com/cwbudde/algo-sfsynth/preset"
	"github.com/cwbudde/algo-sfsynth/render"
	"github.com/cwbudde/algo-sfsynth/synth"
)

type options struct {
	sf2        string
	presetPath string
	out        string
	outDir     string
	sampleRate int
	buffer     int
	irPath     string
	wet        float64
	jobs       int
	verbose    bool
	reference  string
	jsonOut    bool
	progress   bool
}

// result is one rendered file.
type result struct {
	Input     string            `json:"input"`
	Output    string            `json:"output"`
	Levels    analysis.Levels   `json:"levels"`
	Reference *analysis.Metrics `json:"reference,omitempty"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("sf-render", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var o options
	fs.StringVar(&o.sf2, "sf2", "", "SoundFont 2 file (overrides the preset)")
	fs.StringVar(&o.presetPath, "preset", "", "Preset JSON file path")
	fs.StringVar(&o.out, "out", "output.wav", "Output WAV path for a single MIDI file")
	fs.StringVar(&o.outDir, "out-dir", "", "Output directory; each input renders to <name>.wav")
	fs.IntVar(&o.sampleRate, "sample-rate", 0, "Render sample rate in Hz (default from preset)")
	fs.IntVar(&o.buffer, "buffer", 0, "Render buffer size in frames (default from preset)")
	fs.StringVar(&o.irPath, "reverb", "", "Reverb IR WAV path (empty uses a synthetic room when -wet > 0)")
	fs.Float64Var(&o.wet, "wet", -1, "Reverb wet mix (0 disables; default from preset)")
	fs.IntVar(&o.jobs, "jobs", runtime.NumCPU(), "Files rendered in parallel")
	fs.BoolVar(&o.verbose, "v", false, "Verbose logging")
	fs.StringVar(&o.reference, "reference", "", "Reference WAV to compare a single render against")
	fs.BoolVar(&o.jsonOut, "json", false, "Print results as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	inputs := fs.Args()
	if len(inputs) == 0 {
		return errors.New("usage: sf-render [flags] song.mid [more.mid ...]")
	}
	if len(inputs) > 1 && o.outDir == "" {
		return errors.New("-out-dir is required with more than one MIDI file")
	}
	if o.reference != "" && len(inputs) > 1 {
		return errors.New("-reference needs exactly one MIDI file")
	}
	if f, ok := stderr.(*os.File); ok {
		o.progress = term.IsTerminal(int(f.Fd()))
	}

	level := slog.LevelInfo
	if o.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	cfg, err := loadConfig(o)
	if err != nil {
		return err
	}
	instruments, _, err := cfg.Instruments(logger)
	if err != nil {
		return err
	}
	table := render.LoadTable(instruments, logger)
	logger.Debug("sample table loaded", "events", len(instruments), "instruments", len(table.Instruments()))

	results := make([]result, len(inputs))
	prog := newProgress(stderr, o.progress)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, o.jobs))
	for i, in := range inputs {
		out := outputPath(in, o.out, o.outDir)
		g.Go(func() error {
			r, err := renderFile(gctx, cfg, table, in, out, o.reference, logger, prog)
			if err != nil {
				return fmt.Errorf("%s: %w", in, err)
			}
			results[i] = r
			return nil
		})
	}
	err = g.Wait()
	prog.done()
	if err != nil {
		return err
	}
	return report(stdout, results, o.jsonOut)
}

func loadConfig(o options) (*preset.Config, error) {
	cfg := preset.DefaultConfig()
	if o.presetPath != "" {
		var err error
		if cfg, err = preset.LoadJSON(o.presetPath); err != nil {
			return nil, fmt.Errorf("loading preset %q: %w", o.presetPath, err)
		}
	}
	if o.sf2 != "" {
		cfg.SoundFontPath = o.sf2
	}
	if o.sampleRate > 0 {
		cfg.SampleRate = o.sampleRate
	}
	if o.buffer > 0 {
		cfg.BufferSize = o.buffer
	}
	if o.irPath != "" {
		cfg.Reverb.IRWavPath = o.irPath
	}
	if o.wet >= 0 {
		cfg.Reverb.WetMix = o.wet
	}
	if cfg.Reverb.WetMix > 1 {
		return nil, fmt.Errorf("wet mix must be in [0,1], got %g", cfg.Reverb.WetMix)
	}
	return cfg, nil
}

// outputPath maps a MIDI path to its WAV path.
func outputPath(in, out, outDir string) string {
	if outDir == "" {
		return out
	}
	base := strings.TrimSuffix(filepath.Base(in), filepath.Ext(in))
	return filepath.Join(outDir, base+".wav")
}

func renderFile(ctx context.Context, cfg *preset.Config, table *synth.SampleTable, in, out, reference string,
	logger *slog.Logger, prog *progress) (result, error) {
	events, err := midifile.ReadFile(in, cfg.SampleRate)
	if err != nil {
		return result{}, err
	}
	logger.Debug("rendering", "input", in, "events", len(events), "frames", render.SongLength(events))

	opts := cfg.RenderOptions(logger)
	opts.Progress = func(done, total int) { prog.update(in, done, total) }
	opts.Table = table
	a, err := render.Render(ctx, nil, events, opts)
	if err != nil {
		return result{}, err
	}
	if dir := filepath.Dir(out); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return result{}, err
		}
	}
	if err := wavio.WriteStereo(out, a.Left, a.Right, a.SampleRate); err != nil {
		return result{}, fmt.Errorf("writing %s: %w", out, err)
	}

	r := result{Input: in, Output: out, Levels: analysis.Measure(a.Left, a.Right, a.SampleRate)}
	if reference != "" {
		m, err := compareWith(reference, a)
		if err != nil {
			return result{}, err
		}
		r.Reference = &m
	}
	return r, nil
}

func compareWith(path string, a *render.Audio) (analysis.Metrics, error) {
	ref, err := wavio.Read(path)
	if err != nil {
		return analysis.Metrics{}, fmt.Errorf("reference %s: %w", path, err)
	}
	mono := analysis.MonoMix(ref.Left, ref.Right)
	if ref.SampleRate != a.SampleRate {
		if mono, err = wavio.Resample(mono, ref.SampleRate, a.SampleRate); err != nil {
			return analysis.Metrics{}, fmt.Errorf("reference %s: %w", path, err)
		}
	}
	return analysis.Compare(mono, analysis.MonoMix(a.Left, a.Right), a.SampleRate), nil
}

func report(w io.Writer, results []result, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}
	for _, r := range results {
		l := r.Levels
		fmt.Fprintf(w, "%s -> %s: %d frames, peak %.1f dBFS, rms %.1f dBFS, clipped %d, silent tail %d, centroid %.0f Hz\n",
			r.Input, r.Output, l.Frames, l.PeakDBFS, l.RMSDBFS, l.ClippedSamples, l.SilentTailFrames, l.SpectralCentroidHz)
		if m := r.Reference; m != nil {
			fmt.Fprintf(w, "  vs reference: lag %d, time rmse %.4f, envelope %.2f dB, spectral %.2f dB, score %.4f\n",
				m.LagFrames, m.TimeRMSE, m.EnvelopeRMSEDB, m.SpectralRMSEDB, m.Score)
		}
	}
	return nil
}

// progress prints one status line for all running renders when enabled.
type progress struct {
	mu      sync.Mutex
	w       io.Writer
	enabled bool
	percent map[string]int
}

func newProgress(w io.Writer, enabled bool) *progress {
	return &progress{w: w, enabled: enabled, percent: map[string]int{}}
}

func (p *progress) update(name string, done, total int) {
	if !p.enabled || total <= 0 {
		return
	}
	pct := done * 100 / total
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.percent[name] == pct {
		return
	}
	p.percent[name] = pct
	var parts []string
	for _, n := range slices.Sorted(maps.Keys(p.percent)) {
		if v := p.percent[n]; v < 100 {
			parts = append(parts, fmt.Sprintf("%s %d%%", filepath.Base(n), v))
		}
	}
	fmt.Fprintf(p.w, "\r\033[K%s", strings.Join(parts, "  "))
}

func (p *progress) done() {
	if p.enabled {
		fmt.Fprint(p.w, "\r\033[K")
	}
}
