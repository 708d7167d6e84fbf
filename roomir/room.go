// Package roomir synthesizes stereo room impulse responses: sparse early
// reflections followed by a two-band noise tail with separate decay times.
package roomir

import (
	"fmt"
	"math"
	"math/rand/v2"
)

// Config controls room IR generation.
type Config struct {
	SampleRate  int
	DurationS   float64
	Seed        uint64
	EarlyCount  int
	EarlySpanS  float64 // reflections land in [1ms, 1ms+EarlySpanS)
	LateLevel   float64
	StereoWidth float64
	Brightness  float64
	LowDecayS   float64
	HighDecayS  float64
	FadeOutS    float64

	NormalizePeak float64
}

// DefaultConfig returns a small, fairly dry room.
func DefaultConfig() Config {
	return Config{
		SampleRate:    48000,
		DurationS:     0.8,
		Seed:          1,
		EarlyCount:    24,
		EarlySpanS:    0.049,
		LateLevel:     0.06,
		StereoWidth:   0.6,
		Brightness:    0.8,
		LowDecayS:     1.0,
		HighDecayS:    0.2,
		FadeOutS:      0.01,
		NormalizePeak: 0.9,
	}
}

func (c *Config) Validate() error {
	switch {
	case c.SampleRate < 8000:
		return fmt.Errorf("sample rate too low: %d", c.SampleRate)
	case c.DurationS <= 0:
		return fmt.Errorf("duration must be > 0")
	case c.EarlyCount < 0:
		return fmt.Errorf("early count must be >= 0")
	case c.EarlySpanS <= 0:
		return fmt.Errorf("early span must be > 0")
	case c.LateLevel < 0:
		return fmt.Errorf("late level must be >= 0")
	case c.StereoWidth < 0 || c.StereoWidth > 1:
		return fmt.Errorf("stereo width must be in [0,1]")
	case c.Brightness <= 0:
		return fmt.Errorf("brightness must be > 0")
	case c.LowDecayS <= 0 || c.HighDecayS <= 0:
		return fmt.Errorf("decay seconds must be > 0")
	case c.NormalizePeak <= 0:
		return fmt.Errorf("normalize peak must be > 0")
	}
	return nil
}

// Generate returns the left and right IR channels, peak-normalized to
// cfg.NormalizePeak. Equal configs give identical output.
func Generate(cfg Config) ([]float32, []float32, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	n := max(1, int(math.Round(cfg.DurationS*float64(cfg.SampleRate))))
	left := make([]float64, n)
	right := make([]float64, n)
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))

	addEarly(left, right, &cfg, rng)
	addTail(left, right, &cfg, rng)

	blockDC(left, 0.995)
	blockDC(right, 0.995)
	fadeOut(left, cfg.FadeOutS, cfg.SampleRate)
	fadeOut(right, cfg.FadeOutS, cfg.SampleRate)

	peak := max(peakAbs(left), peakAbs(right), 1e-12)
	g := cfg.NormalizePeak / peak
	outL := make([]float32, n)
	outR := make([]float32, n)
	for i := range left {
		outL[i] = float32(left[i] * g)
		outR[i] = float32(right[i] * g)
	}
	return outL, outR, nil
}

func addEarly(left, right []float64, cfg *Config, rng *rand.Rand) {
	sr := float64(cfg.SampleRate)
	for i := 0; i < cfg.EarlyCount; i++ {
		t := 0.001 + cfg.EarlySpanS*rng.Float64()
		idx := int(t * sr)
		if idx <= 0 || idx >= len(left) {
			continue
		}
		amp := (0.10 + 0.35*rng.Float64()) * math.Exp(-20*t)
		// Duller rooms lose more of each reflection.
		amp *= math.Pow(0.5+0.5*rng.Float64(), 1/cfg.Brightness)
		pan := (2*rng.Float64() - 1) * cfg.StereoWidth
		left[idx] += amp * (1 - 0.5*pan)
		right[idx] += amp * (1 + 0.5*pan)
	}
}

func addTail(left, right []float64, cfg *Config, rng *rand.Rand) {
	if cfg.LateLevel <= 0 {
		return
	}
	sr := float64(cfg.SampleRate)
	lowRate := math.Exp(-1 / (0.75 * cfg.LowDecayS * sr))
	highRate := math.Exp(-1 / (0.75 * cfg.HighDecayS * sr))
	air := max(0, 0.3*(cfg.Brightness-0.3))

	var lowL, lowR, highL, highR float64
	lowEnv, highEnv := 1.0, 1.0
	for i := range left {
		nl := rng.NormFloat64()
		nr := rng.NormFloat64()
		lowL = 0.985*lowL + 0.015*nl
		lowR = 0.985*lowR + 0.015*nr
		highL = 0.15*nl - 0.15*highL
		highR = 0.15*nr - 0.15*highR

		left[i] += cfg.LateLevel * (lowEnv*lowL + air*highEnv*highL)
		right[i] += cfg.LateLevel * (lowEnv*lowR + air*highEnv*highR)
		lowEnv *= lowRate
		highEnv *= highRate
	}
}

func blockDC(x []float64, r float64) {
	var prevIn, prevOut float64
	for i, v := range x {
		y := v - prevIn + r*prevOut
		prevIn = v
		prevOut = y
		x[i] = y
	}
}

func fadeOut(x []float64, secs float64, sampleRate int) {
	if secs <= 0 || len(x) == 0 {
		return
	}
	m := min(len(x), int(math.Round(secs*float64(sampleRate))))
	start := len(x) - m
	for i := 0; i < m; i++ {
		x[start+i] *= 0.5 * (1 + math.Cos(math.Pi*float64(i)/float64(m)))
	}
}

func peakAbs(x []float64) float64 {
	p := 0.0
	for _, v := range x {
		p = max(p, math.Abs(v))
	}
	return p
}
