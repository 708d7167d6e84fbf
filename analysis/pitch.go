package analysis

import (
	"math"
	"math/cmplx"

	algofft "github.com/cwbudde/algo-fft"
)

const (
	pitchMaxFrames = 32768
	pitchFFTSize   = 1 << 16
	pitchMinHz     = 20.0
)

// EstimateFundamental returns the frequency in Hz of the strongest spectral
// peak of samples, refined by parabolic interpolation on the log magnitude.
// It returns 0 when the input is silent or too short.
func EstimateFundamental(samples []float64, sampleRate int) float64 {
	if sampleRate <= 0 {
		return 0
	}
	x := trimLeadingSilence(samples, 1e-6)
	if len(x) < 256 {
		return 0
	}
	if len(x) > pitchMaxFrames {
		x = x[:pitchMaxFrames]
	}

	size := pitchFFTSize
	if len(x) > size {
		size = nextPow2(len(x))
	}
	plan, err := algofft.NewPlanReal64(size)
	if err != nil {
		return 0
	}
	buf := make([]float64, size)
	n := len(x)
	for i := 0; i < n; i++ {
		buf[i] = x[i] * hann(i, n)
	}
	bins := make([]complex128, size/2+1)
	if err := plan.Forward(bins, buf); err != nil {
		return 0
	}

	binHz := float64(sampleRate) / float64(size)
	lo := int(math.Ceil(pitchMinHz / binHz))
	if lo < 1 {
		lo = 1
	}
	hi := size/2 - 1
	best := lo
	bestMag := 0.0
	for k := lo; k <= hi; k++ {
		if m := cmplx.Abs(bins[k]); m > bestMag {
			bestMag = m
			best = k
		}
	}
	if bestMag <= 1e-12 {
		return 0
	}

	offset := 0.0
	if best > lo && best < hi {
		a := linToDB(cmplx.Abs(bins[best-1]))
		b := linToDB(bestMag)
		c := linToDB(cmplx.Abs(bins[best+1]))
		if den := a - 2*b + c; math.Abs(den) > 1e-12 {
			offset = 0.5 * (a - c) / den
		}
	}
	return (float64(best) + offset) * binHz
}

// PeakDB returns the absolute peak level of x in dBFS.
func PeakDB(x []float64) float64 {
	peak := 0.0
	for _, v := range x {
		if a := math.Abs(v); a > peak {
			peak = a
		}
	}
	return linToDB(peak)
}
