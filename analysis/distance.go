package analysis

import (
	"math"
	"math/cmplx"

	algofft "github.com/cwbudde/algo-fft"
)

// Metrics compares a rendered note against a reference recording in the
// terms a monophonic voice is tuned by: pitch, amplitude envelope, length of
// the decay arc and averaged spectral balance.
type Metrics struct {
	SampleRate int `json:"sample_rate"`

	ReferenceFrames int `json:"reference_frames"`
	CandidateFrames int `json:"candidate_frames"`
	AlignedFrames   int `json:"aligned_frames"`
	LagSamples      int `json:"lag_samples"`

	RefPitchHz      float64 `json:"ref_pitch_hz"`
	CandPitchHz     float64 `json:"cand_pitch_hz"`
	PitchErrorCents float64 `json:"pitch_error_cents"`

	EnvelopeRMSEDB float64 `json:"envelope_rmse_db"`
	RefDecayS      float64 `json:"ref_decay_s"`
	CandDecayS     float64 `json:"cand_decay_s"`
	DecayErrorS    float64 `json:"decay_error_s"`
	SpectralRMSEDB float64 `json:"spectral_rmse_db"`

	PitchNorm    float64 `json:"pitch_norm"`
	EnvelopeNorm float64 `json:"envelope_norm"`
	DecayNorm    float64 `json:"decay_norm"`
	SpectralNorm float64 `json:"spectral_norm"`
	Dominant     string  `json:"dominant"`

	Score      float64 `json:"score"`
	Similarity float64 `json:"similarity"`
}

// Weights of the normalized sub-metrics in Metrics.Score.
const (
	WeightPitch    = 0.35
	WeightEnvelope = 0.20
	WeightDecay    = 0.20
	WeightSpectral = 0.25
)

const (
	envFrame       = 512
	envHop         = 256
	envFloorDB     = -60.0
	decayDropDB    = 40.0
	spectrumFrame  = 2048
	spectrumFrames = 16
	spectrumFloor  = -80.0

	// A semitone of pitch error, 20 dB of envelope or spectral error and a
	// decay off by its own length each saturate their term.
	pitchFullCents = 100.0
	levelFullDB    = 20.0
)

// Compare returns distance metrics and a combined score in [0,1], where 0
// means the candidate matches the reference.
func Compare(reference []float64, candidate []float64, sampleRate int) Metrics {
	m := Metrics{
		SampleRate:      sampleRate,
		ReferenceFrames: len(reference),
		CandidateFrames: len(candidate),
		Score:           1,
	}
	if sampleRate <= 0 {
		return m
	}
	ref := trimLeadingSilence(reference, 1e-6)
	cand := trimLeadingSilence(candidate, 1e-6)
	if len(ref) < 4*envFrame || len(cand) < 4*envFrame {
		return m
	}

	m.RefPitchHz = EstimateFundamental(ref, sampleRate)
	m.CandPitchHz = EstimateFundamental(cand, sampleRate)
	switch {
	case m.RefPitchHz > 0 && m.CandPitchHz > 0:
		m.PitchErrorCents = 1200 * math.Log2(m.CandPitchHz/m.RefPitchHz)
		m.PitchNorm = clamp01(math.Abs(m.PitchErrorCents) / pitchFullCents)
	case m.RefPitchHz > 0 || m.CandPitchHz > 0:
		m.PitchNorm = 1
	}

	maxLag := min(sampleRate/10, len(ref)-1, len(cand)-1)
	m.LagSamples = estimateLag(ref, cand, maxLag)
	refA, candA := alignByLag(ref, cand, m.LagSamples)
	n := min(len(refA), len(candA))
	if n < 4*envFrame {
		return m
	}
	refA, candA = refA[:n], candA[:n]
	m.AlignedFrames = n

	refEnv := envelopeDB(refA)
	candEnv := envelopeDB(candA)
	var sum float64
	for i := range refEnv {
		d := refEnv[i] - candEnv[i]
		sum += d * d
	}
	m.EnvelopeRMSEDB = math.Sqrt(sum / float64(len(refEnv)))
	m.EnvelopeNorm = clamp01(m.EnvelopeRMSEDB / levelFullDB)

	hopSec := float64(envHop) / float64(sampleRate)
	m.RefDecayS = decayTime(refEnv, hopSec)
	m.CandDecayS = decayTime(candEnv, hopSec)
	m.DecayErrorS = math.Abs(m.RefDecayS - m.CandDecayS)
	m.DecayNorm = clamp01(m.DecayErrorS / math.Max(m.RefDecayS, 0.05))

	m.SpectralRMSEDB = spectralDistanceDB(refA, candA)
	m.SpectralNorm = clamp01(m.SpectralRMSEDB / levelFullDB)

	parts := []struct {
		name string
		v    float64
	}{
		{"pitch", WeightPitch * m.PitchNorm},
		{"envelope", WeightEnvelope * m.EnvelopeNorm},
		{"decay", WeightDecay * m.DecayNorm},
		{"spectral", WeightSpectral * m.SpectralNorm},
	}
	var total, top float64
	for _, p := range parts {
		total += p.v
		if p.v > top {
			top = p.v
			m.Dominant = p.name
		}
	}
	m.Score = clamp01(total)
	m.Similarity = math.Exp(-4 * m.Score)
	return m
}

func trimLeadingSilence(x []float64, threshold float64) []float64 {
	for i, v := range x {
		if math.Abs(v) > threshold {
			return x[i:]
		}
	}
	return nil
}

// estimateLag returns the lag in [-maxLag, maxLag] maximizing the
// cross-correlation of ref and cand. A positive lag means ref starts later.
func estimateLag(ref []float64, cand []float64, maxLag int) int {
	if len(ref) == 0 || len(cand) == 0 || maxLag < 1 {
		return 0
	}
	size := nextPow2(len(ref) + len(cand) - 1)
	plan, err := algofft.NewPlan64(size)
	if err != nil {
		return estimateLagExhaustive(ref, cand, maxLag)
	}
	a := make([]complex128, size)
	b := make([]complex128, size)
	for i, v := range ref {
		a[i] = complex(v, 0)
	}
	for i, v := range cand {
		b[i] = complex(v, 0)
	}
	fa := make([]complex128, size)
	fb := make([]complex128, size)
	if plan.Forward(fa, a) != nil || plan.Forward(fb, b) != nil {
		return estimateLagExhaustive(ref, cand, maxLag)
	}
	for i := range fa {
		fa[i] *= cmplx.Conj(fb[i])
	}
	xc := a
	if plan.Inverse(xc, fa) != nil {
		return estimateLagExhaustive(ref, cand, maxLag)
	}

	// Negative lags wrap to the tail of the circular correlation.
	best, bestLag := math.Inf(-1), 0
	for lag := -maxLag; lag <= maxLag; lag++ {
		idx := lag
		if idx < 0 {
			idx += size
		}
		if v := real(xc[idx]); v > best {
			best, bestLag = v, lag
		}
	}
	return bestLag
}

func estimateLagExhaustive(ref []float64, cand []float64, maxLag int) int {
	best, bestLag := math.Inf(-1), 0
	for lag := -maxLag; lag <= maxLag; lag++ {
		a, b := alignByLag(ref, cand, lag)
		var s float64
		for i := range min(len(a), len(b)) {
			s += a[i] * b[i]
		}
		if s > best {
			best, bestLag = s, lag
		}
	}
	return bestLag
}

func alignByLag(ref []float64, cand []float64, lag int) ([]float64, []float64) {
	if lag >= 0 {
		if lag >= len(ref) {
			return nil, nil
		}
		return ref[lag:], cand
	}
	if -lag >= len(cand) {
		return nil, nil
	}
	return ref, cand[-lag:]
}

// envelopeDB returns the framed RMS level of x in dB relative to its own
// peak frame, floored at envFloorDB. Gain differences between recordings
// therefore do not count as envelope error.
func envelopeDB(x []float64) []float64 {
	n := 1 + (len(x)-envFrame)/envHop
	env := make([]float64, n)
	peak := 0.0
	for i := range env {
		env[i] = rms(x[i*envHop : i*envHop+envFrame])
		peak = math.Max(peak, env[i])
	}
	for i, v := range env {
		if peak <= 0 {
			env[i] = envFloorDB
			continue
		}
		env[i] = math.Max(linToDB(v/peak), envFloorDB)
	}
	return env
}

// decayTime measures how long the envelope takes to fall decayDropDB below
// its peak. A decay arc closes at a finite time, so this tracks the voice's
// decay length directly. Envelopes that never drop that far report the time
// to their last frame.
func decayTime(envDB []float64, hopSec float64) float64 {
	peakIdx := 0
	for i, v := range envDB {
		if v > envDB[peakIdx] {
			peakIdx = i
		}
	}
	for i := peakIdx; i < len(envDB); i++ {
		if envDB[i] < envDB[peakIdx]-decayDropDB {
			return float64(i-peakIdx) * hopSec
		}
	}
	return float64(len(envDB)-1-peakIdx) * hopSec
}

// spectralDistanceDB compares the peak-normalized long-term spectra of a and
// b, averaged over up to spectrumFrames Hann-windowed frames. Averaging keeps
// pulse and noise voices comparable even though their phases never line up.
func spectralDistanceDB(a []float64, b []float64) float64 {
	sa := averageSpectrumDB(a)
	sb := averageSpectrumDB(b)
	if sa == nil || sb == nil {
		return 0
	}
	var sum float64
	count := 0
	for k := 1; k < len(sa)-1; k++ {
		if sa[k] <= spectrumFloor && sb[k] <= spectrumFloor {
			continue
		}
		d := sa[k] - sb[k]
		sum += d * d
		count++
	}
	if count == 0 {
		return 0
	}
	return math.Sqrt(sum / float64(count))
}

func averageSpectrumDB(x []float64) []float64 {
	if len(x) < spectrumFrame {
		return nil
	}
	plan, err := algofft.NewPlanReal64(spectrumFrame)
	if err != nil {
		return nil
	}
	frames := min(spectrumFrames, 1+(len(x)-spectrumFrame)/(spectrumFrame/2))
	buf := make([]float64, spectrumFrame)
	bins := make([]complex128, spectrumFrame/2+1)
	power := make([]float64, len(bins))
	for f := 0; f < frames; f++ {
		start := f * spectrumFrame / 2
		for i := range buf {
			buf[i] = x[start+i] * hann(i, spectrumFrame)
		}
		if err := plan.Forward(bins, buf); err != nil {
			return nil
		}
		for k, c := range bins {
			re, im := real(c), imag(c)
			power[k] += re*re + im*im
		}
	}
	peak := 0.0
	for _, p := range power {
		peak = math.Max(peak, p)
	}
	if peak <= 0 {
		return nil
	}
	for k, p := range power {
		power[k] = math.Max(10*math.Log10(math.Max(p/peak, 1e-30)), spectrumFloor)
	}
	return power
}

func hann(i, n int) float64 {
	return 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n-1))
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

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

func linToDB(x float64) float64 {
	if x < 1e-12 {
		x = 1e-12
	}
	return 20.0 * math.Log10(x)
}

func clamp01(x float64) float64 {
	return math.Min(math.Max(x, 0), 1)
}
