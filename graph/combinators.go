package graph

import (
	"fmt"
	"math"
)

type binary struct {
	a, b     Node
	channels int
	bbuf     [][]float64
	mul      bool
}

// Sum adds the outputs of a and b. A mono operand is broadcast to the
// other operand's channels.
func Sum(a, b Node) Node {
	return newBinary("Sum", a, b, false)
}

// Product multiplies the outputs of a and b, with mono broadcast as in Sum.
func Product(a, b Node) Node {
	return newBinary("Product", a, b, true)
}

func newBinary(name string, a, b Node, mul bool) *binary {
	if a == nil || b == nil {
		panic("graph: " + name + " operand is nil")
	}
	ca, cb := a.Channels(), b.Channels()
	if ca != cb && ca != 1 && cb != 1 {
		panic(fmt.Sprintf("graph: %s channel mismatch %d vs %d", name, ca, cb))
	}
	ch := ca
	if cb > ch {
		ch = cb
	}
	return &binary{a: a, b: b, channels: ch, bbuf: scratch(cb), mul: mul}
}

func (s *binary) Channels() int { return s.channels }

func (s *binary) Reset(sampleRate float64) {
	s.a.Reset(sampleRate)
	s.b.Reset(sampleRate)
}

func (s *binary) Process(n int, out [][]float64) {
	s.a.Process(n, out)
	if s.a.Channels() == 1 {
		for c := 1; c < s.channels; c++ {
			copy(out[c][:n], out[0][:n])
		}
	}
	s.b.Process(n, s.bbuf)
	for c := 0; c < s.channels; c++ {
		src := s.bbuf[0]
		if len(s.bbuf) > 1 {
			src = s.bbuf[c]
		}
		dst := out[c][:n]
		if s.mul {
			for i := range dst {
				dst[i] *= src[i]
			}
		} else {
			for i := range dst {
				dst[i] += src[i]
			}
		}
	}
}

// Scale multiplies every channel of in by k.
func Scale(in Node, k float64) Node {
	return Product(in, Const(k))
}

type split struct {
	in       Node
	channels int
}

// Split duplicates the mono node in onto n output channels.
func Split(n int, in Node) Node {
	mustMono("Split", in)
	if n < 1 || n > maxViewChannels {
		panic(fmt.Sprintf("graph: Split channel count %d out of range", n))
	}
	return &split{in: in, channels: n}
}

func (s *split) Channels() int { return s.channels }

func (s *split) Reset(sampleRate float64) { s.in.Reset(sampleRate) }

func (s *split) Process(n int, out [][]float64) {
	s.in.Process(n, out[:1])
	for c := 1; c < s.channels; c++ {
		copy(out[c][:n], out[0][:n])
	}
}

type pan struct {
	in   Node
	pos  Node
	pbuf [][]float64
}

// Pan places the mono node in on a stereo field with an equal-power law.
// pos is read per frame and clamped to [-1, 1]: -1 hard left, 0 centre, 1 hard right.
func Pan(in, pos Node) Node {
	mustMono("Pan", in)
	mustMono("Pan", pos)
	return &pan{in: in, pos: pos, pbuf: scratch(1)}
}

func (p *pan) Channels() int { return 2 }

func (p *pan) Reset(sampleRate float64) {
	p.in.Reset(sampleRate)
	p.pos.Reset(sampleRate)
}

func (p *pan) Process(n int, out [][]float64) {
	p.in.Process(n, out[:1])
	p.pos.Process(n, p.pbuf)
	pos := p.pbuf[0][:n]
	left := out[0][:n]
	right := out[1][:n]
	for i := range left {
		l, r := PanGains(pos[i])
		x := left[i]
		left[i] = x * l
		right[i] = x * r
	}
}

// PanGains returns the equal-power left/right gains for pos in [-1, 1].
func PanGains(pos float64) (float64, float64) {
	theta := (clamp(pos, -1, 1) + 1) * math.Pi / 4
	return math.Cos(theta), math.Sin(theta)
}
