package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/cwbudde/algo-synth/internal/audioio"
	"github.com/cwbudde/algo-synth/roomir"
)

func main() {
	cfg := roomir.DefaultConfig()

	output := flag.String("output", "assets/ir/room_48k.wav", "Output WAV path")
	flag.IntVar(&cfg.SampleRate, "sample-rate", cfg.SampleRate, "Output sample rate")
	flag.Float64Var(&cfg.DurationS, "duration", cfg.DurationS, "IR length in seconds")
	flag.Uint64Var(&cfg.Seed, "seed", cfg.Seed, "Random seed")
	flag.IntVar(&cfg.EarlyCount, "early", cfg.EarlyCount, "Number of early reflections")
	flag.Float64Var(&cfg.EarlySpanS, "early-span", cfg.EarlySpanS, "Time span of early reflections (s)")
	flag.Float64Var(&cfg.LateLevel, "late", cfg.LateLevel, "Diffuse late-tail level")
	flag.Float64Var(&cfg.StereoWidth, "stereo-width", cfg.StereoWidth, "Stereo spread of reflections [0,1]")
	flag.Float64Var(&cfg.Brightness, "brightness", cfg.Brightness, "Spectral brightness control (>0)")
	flag.Float64Var(&cfg.LowDecayS, "low-decay", cfg.LowDecayS, "Low-frequency decay time (s)")
	flag.Float64Var(&cfg.HighDecayS, "high-decay", cfg.HighDecayS, "High-frequency decay time (s)")
	flag.Float64Var(&cfg.FadeOutS, "fade-out", cfg.FadeOutS, "Cosine fade-out at the end (s)")
	flag.Float64Var(&cfg.NormalizePeak, "normalize", cfg.NormalizePeak, "Peak normalization target")
	flag.Parse()

	left, right, err := roomir.Generate(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "room-ir error: %v\n", err)
		os.Exit(1)
	}

	interleaved := make([]float32, len(left)*2)
	for i := range left {
		interleaved[i*2] = left[i]
		interleaved[i*2+1] = right[i]
	}
	if err := audioio.WriteStereoWAV(*output, interleaved, cfg.SampleRate); err != nil {
		fmt.Fprintf(os.Stderr, "wav write error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Wrote %s\n", *output)
	fmt.Printf("SampleRate: %d Hz, Duration: %.3f s, Samples: %d\n", cfg.SampleRate, cfg.DurationS, len(left))
	fmt.Printf("Peak: %.6f, RMS: %.6f\n", audioio.Peak(interleaved), audioio.RMS(interleaved))
}
