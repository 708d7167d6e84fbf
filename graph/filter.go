package graph

import (
	"math"

	dspcore "github.com/cwbudde/algo-dsp/dsp/core"
	"github.com/cwbudde/algo-dsp/dsp/filter/biquad"
	"github.com/cwbudde/algo-dsp/dsp/filter/design"
)

type lowpass struct {
	in         Node
	cutoff     Node
	q          float64
	sampleRate float64
	sections   []*biquad.Section
	cbuf       [][]float64
}

// Lowpass filters every channel of in with a resonant two-pole lowpass.
// The cutoff (Hz) is sampled once per block at the block's first frame.
func Lowpass(in, cutoff Node, q float64) Node {
	if in == nil {
		panic("graph: Lowpass input is nil")
	}
	mustMono("Lowpass", cutoff)
	if q <= 0 {
		q = math.Sqrt2 / 2
	}
	sections := make([]*biquad.Section, in.Channels())
	for i := range sections {
		sections[i] = biquad.NewSection(biquad.Coefficients{B0: 1})
	}
	return &lowpass{
		in:         in,
		cutoff:     cutoff,
		q:          q,
		sampleRate: defaultSampleRate,
		sections:   sections,
		cbuf:       scratch(1),
	}
}

func (l *lowpass) Channels() int { return l.in.Channels() }

func (l *lowpass) Reset(sampleRate float64) {
	if sampleRate > 0 {
		l.sampleRate = sampleRate
	}
	for _, s := range l.sections {
		s.Reset()
	}
	l.in.Reset(sampleRate)
	l.cutoff.Reset(sampleRate)
}

// Process retunes each section in place so the filter state carries across
// cutoff changes.
func (l *lowpass) Process(n int, out [][]float64) {
	l.in.Process(n, out)
	l.cutoff.Process(n, l.cbuf)
	fc := clamp(l.cbuf[0][0], 10, 0.45*l.sampleRate)
	coeffs := design.Lowpass(fc, l.q, l.sampleRate)
	for c, s := range l.sections {
		s.Coefficients = coeffs
		s.ProcessBlock(out[c][:n])
		st := s.State()
		s.SetState([2]float64{dspcore.FlushDenormals(st[0]), dspcore.FlushDenormals(st[1])})
	}
}
