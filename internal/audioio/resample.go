package audioio

import (
	"fmt"

	dspresample "github.com/cwbudde/algo-dsp/dsp/resample"
)

// Resample64 converts in from fromRate to toRate. Equal rates and inputs
// too short to filter are returned unchanged.
func Resample64(in []float64, fromRate int, toRate int) ([]float64, error) {
	if fromRate == toRate || len(in) <= 1 {
		return in, nil
	}
	if fromRate <= 0 || toRate <= 0 {
		return nil, fmt.Errorf("invalid resample rates %d -> %d", fromRate, toRate)
	}
	r, err := dspresample.NewForRates(
		float64(fromRate),
		float64(toRate),
		dspresample.WithQuality(dspresample.QualityBest),
	)
	if err != nil {
		return nil, fmt.Errorf("resampler %d -> %d: %w", fromRate, toRate, err)
	}
	return r.Process(in), nil
}

// Resample is Resample64 for float32 buffers.
func Resample(in []float32, fromRate int, toRate int) ([]float32, error) {
	if fromRate == toRate || len(in) <= 1 {
		return in, nil
	}
	in64 := make([]float64, len(in))
	for i, v := range in {
		in64[i] = float64(v)
	}
	out64, err := Resample64(in64, fromRate, toRate)
	if err != nil {
		return nil, err
	}
	out := make([]float32, len(out64))
	for i, v := range out64 {
		out[i] = float32(v)
	}
	return out, nil
}
