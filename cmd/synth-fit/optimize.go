package main

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/cwbudde/algo-synth/analysis"
	"github.com/cwbudde/algo-synth/internal/audioio"
	"github.com/cwbudde/algo-synth/synth"
	"github.com/cwbudde/mayfly"
)

type fitConfig struct {
	reference    []float64
	base         *synth.Config
	defs         []knobDef
	note         int
	velocity     int
	releaseAfter float64
	sampleRate   int
	blockSize    int
	seed         int64
	timeBudget   float64
	maxEvals     int
	reportEvery  int
	variant      string
	pop          int
	roundEvals   int
}

type fitResult struct {
	best        candidate
	bestMetrics analysis.Metrics
	bestConfig  *synth.Config
	velocity    int
	evals       int
	elapsed     float64
}

// renderCandidate renders one note of cfg for exactly frames samples and
// returns the mono mix.
func renderCandidate(cfg *synth.Config, note, velocity int, releaseAfter float64, sampleRate, frames, blockSize int) []float64 {
	e := synth.NewEngine(sampleRate, cfg)
	if blockSize < 1 {
		blockSize = synth.BlockSize
	}
	releaseAt := int(releaseAfter * float64(sampleRate))
	left := make([]float32, frames)
	right := make([]float32, frames)
	released := releaseAfter < 0
	for pos := 0; pos < frames; pos += blockSize {
		n := blockSize
		if pos+n > frames {
			n = frames - pos
		}
		if pos == 0 {
			e.NoteOn(uint8(note), uint8(velocity), 0)
		}
		if !released && releaseAt < pos+n {
			e.NoteOff(uint8(note), 0, max(0, releaseAt-pos))
			released = true
		}
		e.Process([][]float32{left[pos : pos+n], right[pos : pos+n]})
	}
	st := make([]float32, frames*2)
	for i := range left {
		st[i*2] = left[i]
		st[i*2+1] = right[i]
	}
	return audioio.StereoToMono(st)
}

func evaluate(cfg *fitConfig, c candidate) (analysis.Metrics, *synth.Config, int) {
	sc, velocity := applyCandidate(cfg.base, cfg.defs, c, cfg.velocity)
	mono := renderCandidate(sc, cfg.note, velocity, cfg.releaseAfter, cfg.sampleRate, len(cfg.reference), cfg.blockSize)
	return analysis.Compare(cfg.reference, mono, cfg.sampleRate), sc, velocity
}

func runFit(cfg *fitConfig) (*fitResult, error) {
	cfg.pop = max(2, cfg.pop)
	start := time.Now()
	deadline := start.Add(time.Duration(cfg.timeBudget * float64(time.Second)))

	best := initCandidate(cfg.base, cfg.defs, cfg.velocity)
	bestM, bestCfg, bestVel := evaluate(cfg, best)
	evals := 1
	improves := 0
	fmt.Printf("Start score=%.4f similarity=%.2f%%\n", bestM.Score, bestM.Similarity*100.0)

	round := 0
	for evals < cfg.maxEvals && time.Now().Before(deadline) {
		round++
		budget := min(cfg.roundEvals, cfg.maxEvals-evals)
		iters := max(1, budget/(2*cfg.pop))

		mcfg, err := newMayflyConfig(cfg.variant, cfg.pop, len(cfg.defs), iters)
		if err != nil {
			return nil, err
		}
		mcfg.Rand = rand.New(rand.NewSource(cfg.seed + int64(round)*7919))
		mcfg.ObjectiveFunc = func(pos []float64) float64 {
			if evals >= cfg.maxEvals || time.Now().After(deadline) {
				return bestM.Score + 1.0
			}
			c := fromNormalized(pos, cfg.defs)
			m, sc, vel := evaluate(cfg, c)
			evals++
			if m.Score < bestM.Score {
				best, bestM, bestCfg, bestVel = c, m, sc, vel
				improves++
				fmt.Printf("Improved #%d eval=%d score=%.4f sim=%.2f%%\n", improves, evals, bestM.Score, bestM.Similarity*100.0)
			}
			if cfg.reportEvery > 0 && evals%cfg.reportEvery == 0 {
				fmt.Printf("Progress round=%d eval=%d elapsed=%.1fs best=%.4f\n", round, evals, time.Since(start).Seconds(), bestM.Score)
			}
			return m.Score
		}

		if _, err := runMayfly(mcfg); err != nil {
			fmt.Printf("mayfly round %d failed: %v\n", round, err)
		}
	}

	return &fitResult{
		best:        best,
		bestMetrics: bestM,
		bestConfig:  bestCfg,
		velocity:    bestVel,
		evals:       evals,
		elapsed:     time.Since(start).Seconds(),
	}, nil
}

func newMayflyConfig(variant string, pop int, dims int, iters int) (*mayfly.Config, error) {
	var cfg *mayfly.Config
	switch variant {
	case "ma":
		cfg = mayfly.NewDefaultConfig()
	case "desma":
		cfg = mayfly.NewDESMAConfig()
	case "olce":
		cfg = mayfly.NewOLCEConfig()
	case "eobbma":
		cfg = mayfly.NewEOBBMAConfig()
	case "gsasma":
		cfg = mayfly.NewGSASMAConfig()
	case "mpma":
		cfg = mayfly.NewMPMAConfig()
	case "aoblmoa":
		cfg = mayfly.NewAOBLMOAConfig()
	default:
		return nil, fmt.Errorf("unsupported variant %q", variant)
	}
	if pop < 2 {
		pop = 2
	}
	cfg.ProblemSize = dims
	cfg.LowerBound = 0.0
	cfg.UpperBound = 1.0
	cfg.MaxIterations = iters
	cfg.NPop = pop
	cfg.NPopF = pop
	// Offspring come from NC/2 male/female pairs.
	cfg.NC = 2 * pop
	cfg.NM = max(1, int(math.Round(0.05*float64(pop))))
	return cfg, nil
}

func runMayfly(cfg *mayfly.Config) (_ *mayfly.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("mayfly panic: %v", r)
		}
	}()
	return mayfly.Optimize(cfg)
}
