package main

import (
	"fmt"
	"math"
	"strings"

	"github.com/cwbudde/algo-synth/synth"
)

type knobDef struct {
	Name  string
	Min   float64
	Max   float64
	IsInt bool
}

type candidate struct {
	Vals []float64
}

const (
	knobOutputGain = "output_gain"
	knobVelocity   = "render.velocity"
)

// parseKnobs resolves a comma-separated list of parameter names plus the
// output_gain and render.velocity extras into knob definitions.
func parseKnobs(raw string) ([]knobDef, error) {
	var defs []knobDef
	seen := map[string]bool{}
	for _, s := range strings.Split(raw, ",") {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		switch s {
		case knobOutputGain:
			defs = append(defs, knobDef{Name: s, Min: 0.2, Max: 2.0})
			continue
		case knobVelocity:
			defs = append(defs, knobDef{Name: s, Min: 20, Max: 127, IsInt: true})
			continue
		}
		id, ok := synth.ParameterByName(s)
		if !ok {
			return nil, fmt.Errorf("unknown knob %q", s)
		}
		if id.Structural() {
			return nil, fmt.Errorf("knob %q selects the graph and cannot be fitted; use -mode", s)
		}
		defs = append(defs, knobDef{Name: s, Min: 0, Max: 1})
	}
	if len(defs) == 0 {
		return nil, fmt.Errorf("no knobs specified")
	}
	return defs, nil
}

// initCandidate reads the starting knob values from base.
func initCandidate(base *synth.Config, defs []knobDef, velocity int) candidate {
	vals := make([]float64, len(defs))
	for i, d := range defs {
		switch d.Name {
		case knobOutputGain:
			vals[i] = float64(base.OutputGain)
		case knobVelocity:
			vals[i] = float64(velocity)
		default:
			id, _ := synth.ParameterByName(d.Name)
			vals[i] = float64(base.Values[id])
		}
		vals[i] = clamp(vals[i], d.Min, d.Max)
	}
	return candidate{Vals: vals}
}

// applyCandidate returns a copy of base with the candidate's knobs applied
// and the render velocity it selects.
func applyCandidate(base *synth.Config, defs []knobDef, c candidate, velocity int) (*synth.Config, int) {
	out := *base
	for i, d := range defs {
		if i >= len(c.Vals) {
			break
		}
		v := c.Vals[i]
		switch d.Name {
		case knobOutputGain:
			out.OutputGain = float32(v)
		case knobVelocity:
			velocity = int(math.Round(v))
		default:
			id, _ := synth.ParameterByName(d.Name)
			out.SetValue(id, float32(v))
		}
	}
	return &out, velocity
}

func fromNormalized(pos []float64, defs []knobDef) candidate {
	vals := make([]float64, len(defs))
	for i := range defs {
		x := 0.0
		if i < len(pos) {
			x = clamp(pos[i], 0, 1)
		}
		v := defs[i].Min + x*(defs[i].Max-defs[i].Min)
		if defs[i].IsInt {
			v = math.Round(v)
		}
		vals[i] = v
	}
	return candidate{Vals: vals}
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
