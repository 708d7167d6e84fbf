package synth

import (
	"github.com/cwbudde/algo-synth/graph"
)

const (
	pulseLFOHz      = 0.05
	pulseLevel      = 0.5
	declickSeconds  = 0.01
	noiseResonance  = 0.9
	noiseLevel      = 0.5
	sineLevel       = 1.0
	velocityDivisor = 127.0
)

// Voice is the note a graph is built for.
type Voice struct {
	Note   Note
	Active bool
}

// Builder constructs a fresh graph from a parameter snapshot and the
// sounding voice. Builders must not touch shared state besides their
// arguments so they can run off the render path.
type Builder func(s Snapshot, v Voice, sampleRate float64) *graph.Graph

// NewBuilder returns the default builder with noise seeded by seed.
func NewBuilder(seed uint64) Builder {
	if seed == 0 {
		seed = DefaultNoiseSeed
	}
	return func(s Snapshot, v Voice, sampleRate float64) *graph.Graph {
		return buildGraph(s, v, sampleRate, seed)
	}
}

// BuildGraph is the default Builder.
func BuildGraph(s Snapshot, v Voice, sampleRate float64) *graph.Graph {
	return buildGraph(s, v, sampleRate, DefaultNoiseSeed)
}

func buildGraph(s Snapshot, v Voice, sampleRate float64, seed uint64) *graph.Graph {
	tags := tagValues(s, v, 0)
	p := graph.NewPatch()
	tag := func(t graph.Tag) graph.Node {
		return p.Tag(t, tags[t])
	}

	var root graph.Node
	switch s.Mode() {
	case ModePulse:
		// Duty sweeps 0.01..0.99 with a slow sine LFO.
		duty := graph.Sum(graph.Scale(graph.Sine(graph.Const(pulseLFOHz)), 0.49), graph.Const(0.5))
		osc := graph.Declick(graph.Pulse(tag(graph.TagFreq), duty), declickSeconds)
		root = graph.Pan(graph.Product(graph.Scale(osc, pulseLevel), noteGain(tag)), tag(graph.TagPan))
	case ModeNoise:
		src := graph.Lowpass(graph.Noise(seed), tag(graph.TagFreq), noiseResonance)
		root = graph.Pan(graph.Product(graph.Scale(src, noiseLevel), noteGain(tag)), tag(graph.TagPan))
	case ModeSine:
		root = graph.Split(2, graph.Scale(graph.Sine(tag(graph.TagFreq)), sineLevel))
	default:
		freq := tag(graph.TagFreq)
		modulator := graph.Product(graph.Product(graph.Sine(freq), freq), tag(graph.TagModulation))
		carrier := graph.Sine(graph.Sum(modulator, freq))
		env := p.Envelope(tag(graph.TagNoteOn), tag(graph.TagDecay))
		amp := graph.Product(env, noteGain(tag))
		root = graph.Pan(graph.Product(carrier, amp), tag(graph.TagPan))
	}
	return p.Build(root, sampleRate)
}

// noteGain is gate times normalized velocity.
func noteGain(tag func(graph.Tag) graph.Node) graph.Node {
	return graph.Product(tag(graph.TagGate), tag(graph.TagVelocity))
}

// tagValues derives every tag value from the parameters, the sounding
// voice and the last onset time.
func tagValues(s Snapshot, v Voice, onset float64) [graph.NumTags]float64 {
	var t [graph.NumTags]float64
	t[graph.TagFreq] = s.Frequency()
	if v.Active {
		t[graph.TagFreq] = midiNoteToFreq(v.Note.Pitch)
		t[graph.TagGate] = 1
		t[graph.TagVelocity] = float64(v.Note.Velocity) / velocityDivisor
	}
	t[graph.TagModulation] = s.Modulation()
	t[graph.TagNoteOn] = onset
	t[graph.TagPan] = s.Pan()
	t[graph.TagDecay] = s.Decay()
	return t
}
