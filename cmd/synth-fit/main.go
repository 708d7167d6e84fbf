package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cwbudde/algo-synth/internal/audioio"
	"github.com/cwbudde/algo-synth/preset"
	"github.com/cwbudde/algo-synth/synth"
)

type fitReport struct {
	Reference  string             `json:"reference"`
	Mode       string             `json:"mode"`
	Note       int                `json:"note"`
	Velocity   int                `json:"velocity"`
	SampleRate int                `json:"sample_rate"`
	Variant    string             `json:"variant"`
	Evals      int                `json:"evals"`
	ElapsedSec float64            `json:"elapsed_sec"`
	Score      float64            `json:"score"`
	Similarity float64            `json:"similarity"`
	Dominant   string             `json:"dominant"`
	Knobs      map[string]float64 `json:"knobs"`
}

func die(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

func main() {
	referencePath := flag.String("reference", "", "Reference WAV path")
	presetPath := flag.String("preset", "", "Starting preset JSON (optional)")
	mode := flag.String("mode", "", "Play mode to fit: voice, pulse, noise or sine")
	knobs := flag.String("knobs", "Modulation,Decay,Pan", "Comma-separated knobs: parameter names, output_gain, render.velocity")
	note := flag.Int("note", 69, "MIDI note for rendered candidates")
	velocity := flag.Int("velocity", 100, "Starting MIDI velocity")
	releaseAfter := flag.Float64("release-after", 1.0, "Note hold time before NoteOff in seconds (negative holds)")
	sampleRate := flag.Int("sample-rate", 48000, "Analysis sample rate in Hz")
	maxDuration := flag.Float64("max-duration", 4.0, "Maximum compared duration in seconds")
	block := flag.Int("block", 100, "Render host block size in frames")
	seed := flag.Int64("seed", 1, "Random seed")
	timeBudget := flag.Float64("time-budget", 60, "Time budget in seconds")
	maxEvals := flag.Int("max-evals", 400, "Maximum candidate evaluations")
	reportEvery := flag.Int("report-every", 25, "Progress output interval in evals")
	variant := flag.String("mayfly-variant", "desma", "Mayfly variant: ma, desma, olce, eobbma, gsasma, mpma, aoblmoa")
	pop := flag.Int("mayfly-pop", 10, "Mayfly population size")
	roundEvals := flag.Int("mayfly-round-evals", 120, "Evaluations per mayfly round")
	outputPreset := flag.String("output-preset", "out/fit.json", "Fitted preset output path")
	reportPath := flag.String("report", "", "Optional JSON report path")
	flag.Parse()

	if *referencePath == "" {
		die("-reference is required")
	}
	ref, refSR, err := audioio.ReadMonoWAV(*referencePath)
	if err != nil {
		die("failed to read reference: %v", err)
	}
	ref, err = audioio.Resample64(ref, refSR, *sampleRate)
	if err != nil {
		die("failed to resample reference: %v", err)
	}
	if maxFrames := int(*maxDuration * float64(*sampleRate)); maxFrames > 0 && len(ref) > maxFrames {
		ref = ref[:maxFrames]
	}

	base := synth.NewDefaultConfig()
	if *presetPath != "" {
		base, err = preset.LoadJSON(*presetPath)
		if err != nil {
			die("failed to load preset: %v", err)
		}
	}
	if *mode != "" {
		m, ok := synth.ParsePlayMode(*mode)
		if !ok {
			die("unknown mode %q", *mode)
		}
		base.SetValue(synth.ParamMode, m.Value())
	}

	defs, err := parseKnobs(*knobs)
	if err != nil {
		die("%v", err)
	}

	res, err := runFit(&fitConfig{
		reference:    ref,
		base:         base,
		defs:         defs,
		note:         *note,
		velocity:     *velocity,
		releaseAfter: *releaseAfter,
		sampleRate:   *sampleRate,
		blockSize:    *block,
		seed:         *seed,
		timeBudget:   *timeBudget,
		maxEvals:     *maxEvals,
		reportEvery:  *reportEvery,
		variant:      strings.ToLower(*variant),
		pop:          *pop,
		roundEvals:   *roundEvals,
	})
	if err != nil {
		die("fit failed: %v", err)
	}

	if err := preset.WriteJSON(*outputPreset, preset.FromConfig(res.bestConfig)); err != nil {
		die("failed to write preset: %v", err)
	}
	if *reportPath != "" {
		rep := fitReport{
			Reference:  *referencePath,
			Mode:       (synth.Snapshot{Values: res.bestConfig.Values}).Mode().String(),
			Note:       *note,
			Velocity:   res.velocity,
			SampleRate: *sampleRate,
			Variant:    strings.ToLower(*variant),
			Evals:      res.evals,
			ElapsedSec: res.elapsed,
			Score:      res.bestMetrics.Score,
			Similarity: res.bestMetrics.Similarity,
			Dominant:   res.bestMetrics.Dominant,
			Knobs:      make(map[string]float64, len(defs)),
		}
		for i, d := range defs {
			rep.Knobs[d.Name] = res.best.Vals[i]
		}
		if err := writeReport(*reportPath, &rep); err != nil {
			die("failed to write report: %v", err)
		}
	}

	fmt.Printf("Done evals=%d elapsed=%.1fs best_score=%.4f best_similarity=%.2f%% preset=%s\n",
		res.evals, res.elapsed, res.bestMetrics.Score, res.bestMetrics.Similarity*100.0, *outputPreset)
}

func writeReport(path string, rep *fitReport) error {
	b, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, append(b, '\n'), 0o644)
}
