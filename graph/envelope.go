package graph

import (
	"math"

	dspcore "github.com/cwbudde/algo-dsp/dsp/core"
)

const minDecaySeconds = 1e-3

// EnvelopeGen produces a decaying quarter-circle arc that restarts whenever
// the onset signal moves. Output is 1 at the onset instant, falls to 0 after
// decay seconds and is 0 before the onset.
type EnvelopeGen struct {
	patch *Patch
	onset Node
	decay Node
	obuf  [][]float64
	dbuf  [][]float64
}

// Envelope returns an envelope clocked by the patch's graph clock.
// onset carries the trigger time in seconds, decay the arc length in seconds.
func (p *Patch) Envelope(onset, decay Node) *EnvelopeGen {
	mustMono("Envelope", onset)
	mustMono("Envelope", decay)
	return &EnvelopeGen{patch: p, onset: onset, decay: decay, obuf: scratch(1), dbuf: scratch(1)}
}

func (e *EnvelopeGen) Channels() int { return 1 }

func (e *EnvelopeGen) Reset(sampleRate float64) {
	e.onset.Reset(sampleRate)
	e.decay.Reset(sampleRate)
}

func (e *EnvelopeGen) Process(n int, out [][]float64) {
	e.onset.Process(n, e.obuf)
	e.decay.Process(n, e.dbuf)
	on := e.obuf[0][:n]
	dec := e.dbuf[0][:n]
	dst := out[0][:n]
	t0 := e.patch.clock
	inv := 1.0 / e.patch.sampleRate
	for i := range dst {
		d := dec[i]
		if d < minDecaySeconds {
			d = minDecaySeconds
		}
		x := (t0 + float64(i)*inv - on[i]) / d
		dst[i] = dspcore.FlushDenormals(arcDecay(x))
	}
}

// arcDecay is sqrt(1-x^2) on [0,1] and zero elsewhere.
func arcDecay(x float64) float64 {
	// Guard against the engine clock landing a hair before the onset stamp.
	if x < 0 && x > -1e-9 {
		x = 0
	}
	if x < 0 || x >= 1 {
		return 0
	}
	return math.Sqrt(1 - x*x)
}

type declick struct {
	in     Node
	length float64
	secs   float64
	pos    int64
}

// Declick fades in from silence over seconds after every Reset.
func Declick(in Node, seconds float64) Node {
	if in == nil {
		panic("graph: Declick input is nil")
	}
	if seconds <= 0 {
		seconds = 0.01
	}
	d := &declick{in: in, secs: seconds}
	d.length = seconds * defaultSampleRate
	return d
}

func (d *declick) Channels() int { return d.in.Channels() }

func (d *declick) Reset(sampleRate float64) {
	if sampleRate > 0 {
		d.length = d.secs * sampleRate
	}
	d.pos = 0
	d.in.Reset(sampleRate)
}

func (d *declick) Process(n int, out [][]float64) {
	d.in.Process(n, out)
	if float64(d.pos) >= d.length {
		return
	}
	for i := 0; i < n; i++ {
		x := float64(d.pos+int64(i)) / d.length
		if x >= 1 {
			break
		}
		g := x * x * (3 - 2*x)
		for c := range out[:d.in.Channels()] {
			out[c][i] *= g
		}
	}
	d.pos += int64(n)
}
