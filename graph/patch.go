package graph

import (
	"fmt"
	"math"
)

// Tag names a live input slot of a graph.
type Tag int

const (
	TagFreq Tag = iota
	TagModulation
	TagNoteOn
	TagGate
	TagVelocity
	TagPan
	TagDecay

	// NumTags is the size of the tag identifier space.
	NumTags
)

var tagNames = [NumTags]string{
	TagFreq:       "freq",
	TagModulation: "modulation",
	TagNoteOn:     "note_on",
	TagGate:       "gate",
	TagVelocity:   "velocity",
	TagPan:        "pan",
	TagDecay:      "decay",
}

func (t Tag) String() string {
	if t < 0 || t >= NumTags {
		return fmt.Sprintf("tag(%d)", int(t))
	}
	return tagNames[t]
}

// Patch is the tag scope of one graph under construction. Tag sources and
// clock-driven nodes are created through it; Build seals it into a Graph.
type Patch struct {
	values     [NumTags]float64
	declared   [NumTags]bool
	clock      float64
	sampleRate float64
	built      bool
}

// NewPatch returns an empty patch.
func NewPatch() *Patch {
	return &Patch{sampleRate: defaultSampleRate}
}

// Tag declares tag with an initial value and returns a node emitting the
// tag's current value for every frame of a block.
func (p *Patch) Tag(tag Tag, initial float64) Node {
	if tag < 0 || tag >= NumTags {
		panic(fmt.Sprintf("graph: unknown tag %d", int(tag)))
	}
	p.declared[tag] = true
	p.set(tag, initial)
	return &tagSource{patch: p, tag: tag}
}

// Build seals the patch into a Graph rooted at root and resets it to
// sampleRate. A patch can only be built once.
func (p *Patch) Build(root Node, sampleRate float64) *Graph {
	if p.built {
		panic("graph: patch already built")
	}
	if root == nil || root.Channels() < 1 {
		panic("graph: root must produce at least one channel")
	}
	if root.Channels() > maxViewChannels {
		panic(fmt.Sprintf("graph: root has %d channels, max %d", root.Channels(), maxViewChannels))
	}
	p.built = true
	g := &Graph{root: root, patch: p, sampleRate: defaultSampleRate, view: make([][]float64, root.Channels())}
	g.Reset(sampleRate)
	return g
}

func (p *Patch) set(tag Tag, v float64) {
	if !p.declares(tag) {
		return
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		v = 0
	}
	p.values[tag] = v
}

func (p *Patch) get(tag Tag) float64 {
	if !p.declares(tag) {
		return 0
	}
	return p.values[tag]
}

func (p *Patch) declares(tag Tag) bool {
	return tag >= 0 && tag < NumTags && p.declared[tag]
}

type tagSource struct {
	patch *Patch
	tag   Tag
}

func (t *tagSource) Channels() int { return 1 }

func (t *tagSource) Reset(float64) {}

func (t *tagSource) Process(n int, out [][]float64) {
	v := t.patch.values[t.tag]
	dst := out[0][:n]
	for i := range dst {
		dst[i] = v
	}
}
