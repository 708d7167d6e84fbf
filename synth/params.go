package synth

import (
	"math"
	"sync/atomic"
)

// Parameter identifies a host-visible control value.
type Parameter int

const (
	// ParamFrequency sets the pitch of the sine test tone and the default
	// voice pitch before any note arrives. Notes override it in the other
	// modes, which are gated and stay silent without a held note.
	ParamFrequency Parameter = iota
	ParamModulation
	ParamPan
	ParamMode
	ParamDecay

	// NumParams is the number of host-visible parameters.
	NumParams
)

// FrequencyScale maps the normalized frequency parameter to Hz.
const FrequencyScale = 1000.0

const (
	minDecaySeconds = 0.05
	maxDecaySeconds = 4.0
)

var paramNames = [NumParams]string{
	ParamFrequency:  "Frequency",
	ParamModulation: "Modulation",
	ParamPan:        "Pan",
	ParamMode:       "Mode",
	ParamDecay:      "Decay",
}

var defaultValues = [NumParams]float32{
	ParamFrequency:  0.44,
	ParamModulation: 1.0,
	ParamPan:        0.5,
	ParamMode:       0,
	ParamDecay:      0.24,
}

func (p Parameter) String() string {
	if !p.valid() {
		return "unknown"
	}
	return paramNames[p]
}

// Structural reports whether writing p requires a graph rebuild.
func (p Parameter) Structural() bool {
	return p == ParamMode
}

func (p Parameter) valid() bool {
	return p >= 0 && p < NumParams
}

// ParameterByName resolves a display name, case-sensitively.
func ParameterByName(name string) (Parameter, bool) {
	for i, n := range paramNames {
		if n == name {
			return Parameter(i), true
		}
	}
	return 0, false
}

// PlayMode selects the shape of the signal graph.
type PlayMode int

const (
	ModeVoice PlayMode = iota
	ModePulse
	ModeNoise
	ModeSine

	numModes
)

var modeNames = [numModes]string{"voice", "pulse", "noise", "sine"}

func (m PlayMode) String() string {
	if m < 0 || m >= numModes {
		return "unknown"
	}
	return modeNames[m]
}

// Next returns the mode after m, wrapping back to ModeVoice.
func (m PlayMode) Next() PlayMode {
	if m < 0 || m+1 >= numModes {
		return ModeVoice
	}
	return m + 1
}

// Value returns the normalized parameter value that selects m.
func (m PlayMode) Value() float32 {
	if m < 0 || m >= numModes {
		return 0
	}
	return (float32(m) + 0.5) / float32(numModes)
}

// ParsePlayMode resolves a mode name as printed by String.
func ParsePlayMode(name string) (PlayMode, bool) {
	for i, n := range modeNames {
		if n == name {
			return PlayMode(i), true
		}
	}
	return 0, false
}

// Params is the control surface shared between the control and render
// contexts. Every value is a float32 in [0,1] stored in an atomic word;
// writes are clamped and NaN writes are dropped, so readers always observe
// an in-range value without locking.
type Params struct {
	values     [NumParams]atomic.Uint32
	generation atomic.Uint64
	dirty      atomic.Bool
}

// NewParams creates a control surface holding the given initial values.
func NewParams(initial [NumParams]float32) *Params {
	p := &Params{}
	for i, v := range initial {
		p.values[i].Store(math.Float32bits(clampUnit(v, defaultValues[i])))
	}
	return p
}

// Get returns the current value of id, or 0 for an unknown identifier.
func (p *Params) Get(id Parameter) float32 {
	if !id.valid() {
		return 0
	}
	return math.Float32frombits(p.values[id].Load())
}

// Set stores v clamped to [0,1]. Unknown identifiers and NaN are ignored.
// Writing a structural parameter marks the graph dirty.
func (p *Params) Set(id Parameter, v float32) {
	if !id.valid() || v != v {
		return
	}
	p.values[id].Store(math.Float32bits(clampUnit(v, 0)))
	if id.Structural() {
		p.MarkDirty()
	}
}

// MarkDirty requests a graph rebuild before the next processed block.
func (p *Params) MarkDirty() {
	p.generation.Add(1)
	p.dirty.Store(true)
}

// Dirty reports whether a rebuild is pending.
func (p *Params) Dirty() bool {
	return p.dirty.Load()
}

// Generation counts structural writes.
func (p *Params) Generation() uint64 {
	return p.generation.Load()
}

// ClearDirty clears the dirty flag once a graph for generation built is in
// use. A structural write newer than built keeps the flag set.
func (p *Params) ClearDirty(built uint64) {
	p.dirty.Store(false)
	if p.generation.Load() > built {
		p.dirty.Store(true)
	}
}

// Snapshot copies all values. The generation is read first so a snapshot
// never claims to be newer than the values it holds.
func (p *Params) Snapshot() Snapshot {
	s := Snapshot{Generation: p.generation.Load()}
	for i := range p.values {
		s.Values[i] = math.Float32frombits(p.values[i].Load())
	}
	return s
}

// Snapshot is a point-in-time copy of the control surface.
type Snapshot struct {
	Values     [NumParams]float32
	Generation uint64
}

// DefaultSnapshot returns the factory parameter values.
func DefaultSnapshot() Snapshot {
	return Snapshot{Values: defaultValues}
}

// Frequency returns the parameter frequency in Hz.
func (s Snapshot) Frequency() float64 {
	return float64(s.Values[ParamFrequency]) * FrequencyScale
}

// Modulation returns the FM depth as a ratio of the carrier frequency.
func (s Snapshot) Modulation() float64 {
	return float64(s.Values[ParamModulation])
}

// Pan returns the stereo position in [-1,1]; 0 is centre.
func (s Snapshot) Pan() float64 {
	return 2*float64(s.Values[ParamPan]) - 1
}

// Mode returns the selected play mode.
func (s Snapshot) Mode() PlayMode {
	m := PlayMode(s.Values[ParamMode] * float32(numModes))
	if m >= numModes {
		m = numModes - 1
	}
	if m < 0 {
		m = 0
	}
	return m
}

// Decay returns the envelope length in seconds.
func (s Snapshot) Decay() float64 {
	return minDecaySeconds + float64(s.Values[ParamDecay])*(maxDecaySeconds-minDecaySeconds)
}

func clampUnit(v float32, nanValue float32) float32 {
	if v != v {
		return nanValue
	}
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
