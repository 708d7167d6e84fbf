// Package graph implements block-rendered signal graphs: oscillators,
// envelopes and combinators wired together under a Patch whose tags are
// refreshed before every render call.
package graph

import "math"

// MaxBlock is the largest number of frames a node renders in one Process call.
// Nodes size their scratch buffers for it at construction time.
const MaxBlock = 64

// Node is a renderable unit of a signal graph.
//
// Process writes n frames (n <= MaxBlock) to each of the first Channels()
// slices of out. Nodes own their children and must not allocate in Process.
type Node interface {
	Channels() int
	Reset(sampleRate float64)
	Process(n int, out [][]float64)
}

// Graph is a complete, renderable signal chain together with the tag slots
// declared by its patch. A Graph is owned by a single goroutine once installed.
type Graph struct {
	root       Node
	patch      *Patch
	sampleRate float64
	frames     int64
	offset     float64
	view       [][]float64
}

// Channels returns the number of output channels.
func (g *Graph) Channels() int {
	return g.root.Channels()
}

// SampleRate returns the rate the graph was last reset to.
func (g *Graph) SampleRate() float64 {
	return g.sampleRate
}

// Set writes a tag value. Writes to undeclared tags are ignored and
// non-finite values are stored as zero.
func (g *Graph) Set(tag Tag, value float64) {
	g.patch.set(tag, value)
}

// Get returns the current value of a tag, or zero if the tag is undeclared.
func (g *Graph) Get(tag Tag) float64 {
	return g.patch.get(tag)
}

// Declares reports whether the graph's patch declared tag.
func (g *Graph) Declares(tag Tag) bool {
	return g.patch.declares(tag)
}

// Elapsed returns the graph clock in seconds.
func (g *Graph) Elapsed() float64 {
	return g.offset + float64(g.frames)/g.sampleRate
}

// Seek moves the graph clock without touching oscillator state.
func (g *Graph) Seek(seconds float64) {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		seconds = 0
	}
	g.offset = seconds
	g.frames = 0
	g.patch.clock = seconds
}

// Reset re-derives rate dependent state for sampleRate and zeroes the clock,
// oscillator phases and envelope counters. Non-positive rates keep the
// previous rate.
func (g *Graph) Reset(sampleRate float64) {
	if sampleRate > 0 {
		g.sampleRate = sampleRate
	}
	g.offset = 0
	g.frames = 0
	g.patch.sampleRate = g.sampleRate
	g.patch.clock = 0
	g.root.Reset(g.sampleRate)
}

// Render writes n frames into out, processing in MaxBlock chunks.
// out must hold at least Channels() slices of at least n samples.
func (g *Graph) Render(n int, out [][]float64) {
	if n <= 0 {
		return
	}
	ch := len(g.view)
	done := 0
	for done < n {
		m := n - done
		if m > MaxBlock {
			m = MaxBlock
		}
		for c := 0; c < ch; c++ {
			g.view[c] = out[c][done : done+m]
		}
		g.patch.clock = g.Elapsed()
		g.root.Process(m, g.view)
		g.frames += int64(m)
		done += m
	}
}

// maxViewChannels bounds the channel count of a graph root.
const maxViewChannels = 8
