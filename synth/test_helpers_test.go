package synth

import (
	"math"
	"testing"
)

func countZeroCrossings(samples []float32) int {
	crossings := 0
	for i := 1; i < len(samples); i++ {
		if (samples[i-1] < 0 && samples[i] >= 0) || (samples[i-1] >= 0 && samples[i] < 0) {
			crossings++
		}
	}
	return crossings
}

func measureFundamentalFreq(samples []float32, sampleRate float32) float32 {
	startIdx := len(samples) / 10
	crossings := countZeroCrossings(samples[startIdx:])
	if crossings == 0 {
		return 0
	}
	duration := float32(len(samples)-startIdx) / sampleRate
	return float32(crossings) / (2.0 * duration)
}

func windowRMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		v := float64(s)
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(samples)))
}

func stereoBuffers(frames int) [][]float32 {
	return [][]float32{make([]float32, frames), make([]float32, frames)}
}

// renderChannels processes numFrames in calls of at most block frames and
// returns the concatenated left and right channels.
func renderChannels(e *Engine, numFrames int, block int) ([]float32, []float32) {
	left := make([]float32, 0, numFrames)
	right := make([]float32, 0, numFrames)
	buf := stereoBuffers(block)
	for len(left) < numFrames {
		n := numFrames - len(left)
		if n > block {
			n = block
		}
		out := [][]float32{buf[0][:n], buf[1][:n]}
		e.Process(out)
		left = append(left, out[0]...)
		right = append(right, out[1]...)
	}
	return left, right
}

func assertFinite(t *testing.T, label string, samples []float32) {
	t.Helper()
	for i, s := range samples {
		if math.IsNaN(float64(s)) || math.IsInf(float64(s), 0) {
			t.Fatalf("%s: non-finite sample at %d: %v", label, i, s)
		}
	}
}

func configWithMode(mode PlayMode) *Config {
	cfg := NewDefaultConfig()
	cfg.SetValue(ParamMode, mode.Value())
	return cfg
}
