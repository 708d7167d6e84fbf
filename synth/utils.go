package synth

import (
	"github.com/cwbudde/algo-approx"
)

// midiNoteToFreq converts a MIDI note number to frequency in Hz.
func midiNoteToFreq(note uint8) float64 {
	const a4Freq = 440.0
	const a4Note = 69
	exponent := float32(int(note)-a4Note) / 12.0
	return a4Freq * float64(pow2Approx(exponent))
}

func pow2Approx(x float32) float32 {
	const ln2 = 0.69314718055994530942
	return approx.FastExp(x * ln2)
}

func clampf(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
