package graph

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-dsp/dsp/filter/biquad"
	"github.com/cwbudde/algo-dsp/dsp/filter/design"
)

func TestSinePeriodMatchesFrequency(t *testing.T) {
	const sampleRate = 48000.0
	for _, freq := range []float64{110, 440, 1234.5} {
		p := NewPatch()
		g := p.Build(Sine(p.Tag(TagFreq, freq)), sampleRate)
		out := renderMono(g, int(sampleRate))

		period := meanRisingPeriod(out)
		want := sampleRate / freq
		if math.Abs(period-want) > 0.01*want {
			t.Fatalf("freq=%v: period mismatch got=%f want=%f", freq, period, want)
		}
	}
}

func TestResetIsIdempotent(t *testing.T) {
	build := func() *Graph {
		p := NewPatch()
		freq := p.Tag(TagFreq, 330)
		root := Sum(Sine(freq), Scale(Noise(7), 0.1))
		return p.Build(Split(2, root), 44100)
	}
	g := build()
	scratchOut := [][]float64{make([]float64, 1000), make([]float64, 1000)}
	g.Render(1000, scratchOut)

	g.Reset(44100)
	once := [][]float64{make([]float64, 256), make([]float64, 256)}
	g.Render(256, once)

	g.Reset(44100)
	g.Reset(44100)
	twice := [][]float64{make([]float64, 256), make([]float64, 256)}
	g.Render(256, twice)

	for c := range once {
		for i := range once[c] {
			if once[c][i] != twice[c][i] {
				t.Fatalf("reset not idempotent at ch=%d i=%d: once=%f twice=%f", c, i, once[c][i], twice[c][i])
			}
		}
	}
	if g.Elapsed() <= 0 {
		t.Fatalf("expected clock to advance after render, got %f", g.Elapsed())
	}
}

func TestRenderChunkingIsTransparent(t *testing.T) {
	build := func() *Graph {
		p := NewPatch()
		env := p.Envelope(p.Tag(TagNoteOn, 0), Const(0.002))
		return p.Build(Product(env, Sine(Const(700))), 48000)
	}
	whole := build()
	a := make([]float64, 200)
	whole.Render(200, [][]float64{a})

	parts := build()
	b := make([]float64, 200)
	for off := 0; off < 200; off += 50 {
		parts.Render(50, [][]float64{b[off : off+50]})
	}
	for i := range a {
		if math.Abs(a[i]-b[i]) > 1e-9 {
			t.Fatalf("chunked render differs at %d: whole=%f parts=%f", i, a[i], b[i])
		}
	}
}

func TestEnvelopePeaksAtOnsetAndDecays(t *testing.T) {
	const sampleRate = 48000
	p := NewPatch()
	g := p.Build(p.Envelope(p.Tag(TagNoteOn, 0), p.Tag(TagDecay, 1)), sampleRate)

	out := renderMono(g, sampleRate+MaxBlock)
	if out[0] != 1 {
		t.Fatalf("expected envelope peak at onset, got %f", out[0])
	}
	mid := out[sampleRate/2]
	if math.Abs(mid-math.Sqrt(0.75)) > 1e-9 {
		t.Fatalf("envelope at half decay mismatch: got=%f want=%f", mid, math.Sqrt(0.75))
	}
	for i := 1; i < sampleRate/2; i++ {
		if out[i] > out[i-1] {
			t.Fatalf("expected monotonic decay, rose at %d: %f > %f", i, out[i], out[i-1])
		}
	}
	if out[sampleRate+1] != 0 {
		t.Fatalf("expected silence after decay, got %f", out[sampleRate+1])
	}

	// Re-trigger at the current clock restarts the arc.
	g.Set(TagNoteOn, g.Elapsed())
	out = renderMono(g, MaxBlock)
	if out[0] != 1 {
		t.Fatalf("expected retrigger to restart at peak, got %f", out[0])
	}

	// An onset in the future keeps the envelope closed.
	g.Set(TagNoteOn, g.Elapsed()+10)
	out = renderMono(g, MaxBlock)
	if out[0] != 0 {
		t.Fatalf("expected closed envelope before onset, got %f", out[0])
	}
}

func TestUndeclaredTagsReadZeroAndIgnoreWrites(t *testing.T) {
	p := NewPatch()
	g := p.Build(Sine(p.Tag(TagFreq, 440)), 48000)

	if g.Declares(TagPan) {
		t.Fatalf("pan should not be declared")
	}
	g.Set(TagPan, 0.7)
	if got := g.Get(TagPan); got != 0 {
		t.Fatalf("undeclared tag should read 0, got %f", got)
	}
	if got := g.Get(Tag(99)); got != 0 {
		t.Fatalf("unknown tag should read 0, got %f", got)
	}
	g.Set(TagFreq, math.NaN())
	if got := g.Get(TagFreq); got != 0 {
		t.Fatalf("non-finite tag value should be stored as 0, got %f", got)
	}
	g.Set(TagFreq, 880)
	if got := g.Get(TagFreq); got != 880 {
		t.Fatalf("tag write lost: got=%f want=880", got)
	}
}

func TestPanGainsEqualPower(t *testing.T) {
	l, r := PanGains(0)
	if math.Abs(l-math.Sqrt2/2) > 1e-12 || math.Abs(r-math.Sqrt2/2) > 1e-12 {
		t.Fatalf("centre gains mismatch: l=%f r=%f", l, r)
	}
	l, r = PanGains(-1)
	if math.Abs(l-1) > 1e-12 || math.Abs(r) > 1e-12 {
		t.Fatalf("hard left mismatch: l=%f r=%f", l, r)
	}
	l, r = PanGains(5)
	if math.Abs(l) > 1e-12 || math.Abs(r-1) > 1e-12 {
		t.Fatalf("expected out-of-range pan to clamp hard right: l=%f r=%f", l, r)
	}
	for _, pos := range []float64{-0.8, -0.3, 0.25, 0.9} {
		l, r = PanGains(pos)
		if math.Abs(l*l+r*r-1) > 1e-12 {
			t.Fatalf("pan %f not equal power: l=%f r=%f", pos, l, r)
		}
	}
}

func TestPanAndSplitChannels(t *testing.T) {
	p := NewPatch()
	g := p.Build(Pan(Const(1), p.Tag(TagPan, 0.5)), 48000)
	out := [][]float64{make([]float64, 8), make([]float64, 8)}
	g.Render(8, out)
	if !(out[1][0] > out[0][0]) {
		t.Fatalf("expected right-leaning pan: l=%f r=%f", out[0][0], out[1][0])
	}

	p = NewPatch()
	g = p.Build(Split(2, Sine(Const(440))), 48000)
	out = [][]float64{make([]float64, 100), make([]float64, 100)}
	g.Render(100, out)
	for i := range out[0] {
		if out[0][i] != out[1][i] {
			t.Fatalf("split channels differ at %d", i)
		}
	}
}

func TestPulseDutyCycleSetsMean(t *testing.T) {
	for _, duty := range []float64{0.25, 0.5, 0.8} {
		p := NewPatch()
		g := p.Build(Pulse(Const(100), Const(duty)), 48000)
		out := renderMono(g, 48000)
		var sum float64
		for _, v := range out {
			sum += v
		}
		mean := sum / float64(len(out))
		want := 2*duty - 1
		if math.Abs(mean-want) > 0.02 {
			t.Fatalf("duty=%f mean mismatch: got=%f want=%f", duty, mean, want)
		}
	}
}

func TestNoiseIsBoundedAndReseeded(t *testing.T) {
	p := NewPatch()
	g := p.Build(Noise(42), 48000)
	a := renderMono(g, 4096)
	for i, v := range a {
		if v < -1 || v > 1 {
			t.Fatalf("noise out of range at %d: %f", i, v)
		}
	}
	g.Reset(48000)
	b := renderMono(g, 4096)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("expected reseeded noise to repeat at %d", i)
		}
	}
}

func TestDeclickFadesIn(t *testing.T) {
	p := NewPatch()
	g := p.Build(Declick(Const(1), 0.01), 48000)
	out := renderMono(g, 1024)
	if out[0] != 0 {
		t.Fatalf("expected declick to start silent, got %f", out[0])
	}
	if out[240] <= 0 || out[240] >= 1 {
		t.Fatalf("expected partial gain mid-fade, got %f", out[240])
	}
	if out[600] != 1 {
		t.Fatalf("expected full gain after fade, got %f", out[600])
	}
}

func TestLowpassAttenuatesNoise(t *testing.T) {
	p := NewPatch()
	dry := p.Build(Noise(3), 48000)
	q := NewPatch()
	wet := q.Build(Lowpass(Noise(3), q.Tag(TagFreq, 200), 0.707), 48000)

	in := renderMono(dry, 48000)
	out := renderMono(wet, 48000)
	if rms(out) > 0.5*rms(in) {
		t.Fatalf("expected lowpass to attenuate broadband noise: in=%f out=%f", rms(in), rms(out))
	}
	for i, v := range out {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("non-finite lowpass output at %d", i)
		}
	}
}

func TestLowpassMatchesDesignedSection(t *testing.T) {
	const sampleRate = 48000.0
	p := NewPatch()
	dry := p.Build(Noise(5), sampleRate)
	q := NewPatch()
	wet := q.Build(Lowpass(Noise(5), q.Tag(TagFreq, 1234), 0.9), sampleRate)

	in := renderMono(dry, 1000)
	out := renderMono(wet, 1000)

	ref := biquad.NewSection(design.Lowpass(1234, 0.9, sampleRate))
	ref.ProcessBlock(in)
	for i := range out {
		if math.Abs(out[i]-in[i]) > 1e-12 {
			t.Fatalf("lowpass mismatch at %d: got=%g want=%g", i, out[i], in[i])
		}
	}
}

func TestLowpassKeepsStateAcrossCutoffChange(t *testing.T) {
	p := NewPatch()
	cutoff := p.Tag(TagFreq, 500)
	g := p.Build(Lowpass(Const(1), cutoff, 0.707), 48000)

	before := renderMono(g, 4800)
	g.Set(TagFreq, 800)
	after := renderMono(g, 64)

	last := before[len(before)-1]
	if math.Abs(last-1) > 1e-3 {
		t.Fatalf("expected settled DC gain before retune, got %f", last)
	}
	if math.Abs(after[0]-last) > 1e-2 {
		t.Fatalf("retune should not restart the filter: before=%f after=%f", last, after[0])
	}
}

func TestCombinatorChannelMismatchPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on channel mismatch")
		}
	}()
	Sum(Split(2, Const(1)), Split(3, Const(1)))
}

func TestProductBroadcastsMono(t *testing.T) {
	p := NewPatch()
	g := p.Build(Product(Const(0.5), Split(2, Const(4))), 48000)
	out := [][]float64{make([]float64, 4), make([]float64, 4)}
	g.Render(4, out)
	for c := range out {
		if out[c][3] != 2 {
			t.Fatalf("broadcast product mismatch ch=%d: got=%f want=2", c, out[c][3])
		}
	}
}

func TestPatchBuildTwicePanics(t *testing.T) {
	p := NewPatch()
	p.Build(Const(1), 48000)
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on second build")
		}
	}()
	p.Build(Const(1), 48000)
}
