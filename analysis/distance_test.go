package analysis

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-synth/synth"
)

func TestCompareIdenticalRendersScoreZero(t *testing.T) {
	x := renderNote(synth.ModeVoice, 60, 0.24, 1.0, 1.5)
	m := Compare(x, x, testRate)
	if m.Score != 0 || m.LagSamples != 0 || m.PitchErrorCents != 0 {
		t.Fatalf("identical renders should match exactly: %+v", m)
	}
	if m.Similarity != 1 {
		t.Fatalf("similarity mismatch: got=%f want=1", m.Similarity)
	}
}

func TestComparePitchErrorInCents(t *testing.T) {
	ref := renderNote(synth.ModeVoice, 69, 0.24, 0, 1.2)
	cand := renderNote(synth.ModeVoice, 71, 0.24, 0, 1.2)
	m := Compare(ref, cand, testRate)
	if math.Abs(m.RefPitchHz-440) > 0.005*440 {
		t.Fatalf("reference pitch mismatch: got=%f want=440", m.RefPitchHz)
	}
	if math.Abs(m.PitchErrorCents-200) > 10 {
		t.Fatalf("pitch error mismatch: got=%f want=200", m.PitchErrorCents)
	}
	if m.PitchNorm != 1 || m.Dominant != "pitch" {
		t.Fatalf("a whole tone off should dominate the score: %+v", m)
	}
}

func TestCompareMeasuresArcDecayLength(t *testing.T) {
	// Decay 0.24 and 0.5 give arcs of about 1.0 s and 2.0 s.
	ref := renderNote(synth.ModeVoice, 57, 0.24, 0, 3)
	cand := renderNote(synth.ModeVoice, 57, 0.5, 0, 3)
	m := Compare(ref, cand, testRate)
	wantRef := 0.05 + 0.24*3.95
	wantCand := 0.05 + 0.5*3.95
	if math.Abs(m.RefDecayS-wantRef) > 0.05 || math.Abs(m.CandDecayS-wantCand) > 0.05 {
		t.Fatalf("decay length mismatch: ref=%f want=%f cand=%f want=%f", m.RefDecayS, wantRef, m.CandDecayS, wantCand)
	}
	if math.Abs(m.PitchErrorCents) > 2 {
		t.Fatalf("same note should not report pitch error: %f cents", m.PitchErrorCents)
	}
	if m.DecayNorm < 0.9 {
		t.Fatalf("a decay twice as long should saturate the decay term, got %f", m.DecayNorm)
	}
}

func TestCompareSeparatesNoiseFromTone(t *testing.T) {
	tone := renderNote(synth.ModeVoice, 69, 0.5, 0, 1)
	noise := renderNote(synth.ModeNoise, 69, 0.5, 0, 1)
	m := Compare(tone, noise, testRate)
	if m.SpectralRMSEDB < 10 {
		t.Fatalf("expected a large spectral distance between tone and noise, got %f dB", m.SpectralRMSEDB)
	}
	same := Compare(noise, noise, testRate)
	if same.SpectralRMSEDB != 0 {
		t.Fatalf("identical noise should have no spectral distance, got %f", same.SpectralRMSEDB)
	}
}

func TestCompareIgnoresOutputGain(t *testing.T) {
	ref := renderNote(synth.ModePulse, 48, 0.24, 1.0, 1)
	quiet := make([]float64, len(ref))
	for i, v := range ref {
		quiet[i] = 0.25 * v
	}
	m := Compare(ref, quiet, testRate)
	if m.Score > 0.02 {
		t.Fatalf("a gain change alone should not count as distance: %+v", m)
	}
}

func TestCompareRejectsShortOrInvalidInput(t *testing.T) {
	x := makeArcSine(testRate, 440, 1, 1)
	if m := Compare(x[:1000], x, testRate); m.Score != 1 {
		t.Fatalf("short reference should score 1, got %f", m.Score)
	}
	if m := Compare(x, x, 0); m.Score != 1 {
		t.Fatalf("invalid sample rate should score 1, got %f", m.Score)
	}
}

func TestEstimateLagOnShiftedNoise(t *testing.T) {
	noise := renderNote(synth.ModeNoise, 72, 0.5, 0, 0.5)
	for _, shift := range []int{237, -191} {
		ref := noise
		cand := make([]float64, len(noise))
		if shift > 0 {
			copy(cand, noise[shift:])
		} else {
			copy(cand[-shift:], noise)
		}
		if got := estimateLag(ref, cand, 600); got != shift {
			t.Fatalf("lag mismatch: got=%d want=%d", got, shift)
		}
	}
}

func TestEstimateLagFFTMatchesExhaustive(t *testing.T) {
	ref := renderNote(synth.ModeNoise, 64, 0.5, 0, 0.3)
	cand := ref[443:]
	got := estimateLag(ref, cand, 1000)
	want := estimateLagExhaustive(ref, cand, 1000)
	if got != want {
		t.Fatalf("estimateLag() = %d, exhaustive = %d", got, want)
	}
}
