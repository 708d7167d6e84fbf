package graph

import "math"

func renderMono(g *Graph, n int) []float64 {
	out := make([]float64, n)
	g.Render(n, [][]float64{out})
	return out
}

// meanRisingPeriod estimates the period in samples from interpolated
// negative-to-positive zero crossings.
func meanRisingPeriod(x []float64) float64 {
	first, last := -1.0, -1.0
	count := 0
	for i := 1; i < len(x); i++ {
		if x[i-1] < 0 && x[i] >= 0 {
			pos := float64(i-1) + x[i-1]/(x[i-1]-x[i])
			if first < 0 {
				first = pos
			}
			last = pos
			count++
		}
	}
	if count < 2 {
		return 0
	}
	return (last - first) / float64(count-1)
}

func rms(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	var sum float64
	for _, v := range x {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(x)))
}
