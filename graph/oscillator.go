package graph

import (
	"math"
	"math/rand/v2"
)

const defaultSampleRate = 48000

type constant struct {
	value float64
}

// Const returns a mono node emitting value on every frame.
func Const(value float64) Node {
	return &constant{value: value}
}

func (c *constant) Channels() int { return 1 }

func (c *constant) Reset(float64) {}

func (c *constant) Process(n int, out [][]float64) {
	dst := out[0][:n]
	for i := range dst {
		dst[i] = c.value
	}
}

// SineOsc is a phase-accumulating sine oscillator driven by a frequency signal in Hz.
type SineOsc struct {
	freq       Node
	phase      float64
	sampleRate float64
	fbuf       [][]float64
}

// Sine returns a sine oscillator whose frequency follows the mono node freq.
func Sine(freq Node) *SineOsc {
	mustMono("Sine", freq)
	return &SineOsc{freq: freq, sampleRate: defaultSampleRate, fbuf: scratch(1)}
}

func (s *SineOsc) Channels() int { return 1 }

// Reset zeroes the phase and adopts sampleRate.
func (s *SineOsc) Reset(sampleRate float64) {
	if sampleRate > 0 {
		s.sampleRate = sampleRate
	}
	s.phase = 0
	s.freq.Reset(sampleRate)
}

func (s *SineOsc) Process(n int, out [][]float64) {
	s.freq.Process(n, s.fbuf)
	f := s.fbuf[0][:n]
	dst := out[0][:n]
	inv := 1.0 / s.sampleRate
	for i := range dst {
		dst[i] = math.Sin(2 * math.Pi * s.phase)
		s.phase = wrapPhase(s.phase + f[i]*inv)
	}
}

// PulseOsc is a band-limited (PolyBLEP) pulse oscillator with variable duty cycle.
type PulseOsc struct {
	freq       Node
	duty       Node
	phase      float64
	sampleRate float64
	fbuf       [][]float64
	dbuf       [][]float64
}

// Pulse returns a pulse oscillator. Duty is clamped to [0.01, 0.99].
func Pulse(freq, duty Node) *PulseOsc {
	mustMono("Pulse", freq)
	mustMono("Pulse", duty)
	return &PulseOsc{freq: freq, duty: duty, sampleRate: defaultSampleRate, fbuf: scratch(1), dbuf: scratch(1)}
}

func (p *PulseOsc) Channels() int { return 1 }

// Reset zeroes the phase and adopts sampleRate.
func (p *PulseOsc) Reset(sampleRate float64) {
	if sampleRate > 0 {
		p.sampleRate = sampleRate
	}
	p.phase = 0
	p.freq.Reset(sampleRate)
	p.duty.Reset(sampleRate)
}

func (p *PulseOsc) Process(n int, out [][]float64) {
	p.freq.Process(n, p.fbuf)
	p.duty.Process(n, p.dbuf)
	f := p.fbuf[0][:n]
	d := p.dbuf[0][:n]
	dst := out[0][:n]
	inv := 1.0 / p.sampleRate
	for i := range dst {
		duty := clamp(d[i], 0.01, 0.99)
		dt := math.Abs(f[i] * inv)
		if dt > 0.49 {
			dt = 0.49
		}
		v := -1.0
		if p.phase < duty {
			v = 1.0
		}
		v += polyBLEP(p.phase, dt)
		v -= polyBLEP(wrapPhase(p.phase+1-duty), dt)
		dst[i] = v
		p.phase = wrapPhase(p.phase + f[i]*inv)
	}
}

// polyBLEP returns the band-limited step residual at phase t for increment dt.
func polyBLEP(t, dt float64) float64 {
	if dt <= 0 {
		return 0
	}
	if t < dt {
		t /= dt
		return t + t - t*t - 1
	}
	if t > 1-dt {
		t = (t - 1) / dt
		return t*t + t + t + 1
	}
	return 0
}

// NoiseGen emits uniform white noise in [-1, 1].
type NoiseGen struct {
	seed uint64
	rng  *rand.Rand
}

// Noise returns a deterministic noise generator; Reset reseeds it.
func Noise(seed uint64) *NoiseGen {
	return &NoiseGen{seed: seed, rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (g *NoiseGen) Channels() int { return 1 }

func (g *NoiseGen) Reset(float64) {
	g.rng = rand.New(rand.NewPCG(g.seed, g.seed^0x9e3779b97f4a7c15))
}

func (g *NoiseGen) Process(n int, out [][]float64) {
	dst := out[0][:n]
	for i := range dst {
		dst[i] = g.rng.Float64()*2 - 1
	}
}

func wrapPhase(p float64) float64 {
	p -= math.Floor(p)
	if p >= 1 {
		p = 0
	}
	return p
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// scratch allocates a MaxBlock buffer per channel.
func scratch(channels int) [][]float64 {
	bufs := make([][]float64, channels)
	for c := range bufs {
		bufs[c] = make([]float64, MaxBlock)
	}
	return bufs
}

func mustMono(name string, n Node) {
	if n == nil {
		panic("graph: " + name + " input is nil")
	}
	if n.Channels() != 1 {
		panic("graph: " + name + " input must be mono")
	}
}
