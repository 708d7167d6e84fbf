package analysis

import (
	"math"

	"github.com/cwbudde/algo-synth/synth"
)

const testRate = 48000

// renderNote plays one note on a fresh engine and returns the mono mix.
func renderNote(mode synth.PlayMode, note uint8, decay, modulation float32, seconds float64) []float64 {
	cfg := synth.NewDefaultConfig()
	cfg.SetValue(synth.ParamMode, mode.Value())
	cfg.SetValue(synth.ParamDecay, decay)
	cfg.SetValue(synth.ParamModulation, modulation)
	e := synth.NewEngine(testRate, cfg)
	e.NoteOn(note, 100, 0)
	st := e.Render(int(seconds * testRate))
	out := make([]float64, len(st)/2)
	for i := range out {
		out[i] = 0.5 * (float64(st[2*i]) + float64(st[2*i+1]))
	}
	return out
}

func makeArcSine(sr int, freq, seconds, decay float64) []float64 {
	out := make([]float64, int(float64(sr)*seconds))
	for i := range out {
		t := float64(i) / float64(sr)
		env := 0.0
		if x := t / decay; x < 1 {
			env = math.Sqrt(1 - x*x)
		}
		out[i] = env * math.Sin(2*math.Pi*freq*t)
	}
	return out
}
