package synth

import (
	"math"
	"testing"
)

func TestParamsClampAndVisibility(t *testing.T) {
	p := NewParams(defaultValues)
	cases := []struct {
		in, want float32
	}{
		{0.3, 0.3},
		{-2, 0},
		{7, 1},
		{float32(math.Inf(1)), 1},
		{float32(math.Inf(-1)), 0},
	}
	for _, tc := range cases {
		p.Set(ParamModulation, tc.in)
		if got := p.Get(ParamModulation); got != tc.want {
			t.Fatalf("set %v: got=%v want=%v", tc.in, got, tc.want)
		}
	}

	p.Set(ParamModulation, 0.25)
	p.Set(ParamModulation, float32(math.NaN()))
	if got := p.Get(ParamModulation); got != 0.25 {
		t.Fatalf("NaN write should be ignored, got %v", got)
	}
}

func TestParamsUnknownIdentifier(t *testing.T) {
	p := NewParams(defaultValues)
	p.Set(Parameter(42), 0.5)
	p.Set(Parameter(-1), 0.5)
	if got := p.Get(Parameter(42)); got != 0 {
		t.Fatalf("unknown parameter should read 0, got %v", got)
	}
	if got := Parameter(99).String(); got != "unknown" {
		t.Fatalf("unknown parameter name mismatch: got=%q", got)
	}
	if p.Dirty() {
		t.Fatalf("unknown parameter write must not request a rebuild")
	}
}

func TestParamsStructuralWriteSetsDirty(t *testing.T) {
	p := NewParams(defaultValues)
	p.Set(ParamFrequency, 0.5)
	p.Set(ParamPan, 0.1)
	if p.Dirty() {
		t.Fatalf("non-structural writes must not request a rebuild")
	}

	before := p.Snapshot().Generation
	p.Set(ParamMode, ModePulse.Value())
	if !p.Dirty() {
		t.Fatalf("mode write should request a rebuild")
	}
	after := p.Snapshot().Generation
	if after <= before {
		t.Fatalf("expected generation to advance: before=%d after=%d", before, after)
	}
	p.ClearDirty(after - 1)
	if !p.Dirty() {
		t.Fatalf("a graph older than the last write must not clear the flag")
	}
	p.ClearDirty(after)
	if p.Dirty() {
		t.Fatalf("a graph for the last write should clear the flag")
	}
}

func TestSnapshotScaling(t *testing.T) {
	s := DefaultSnapshot()
	if got := s.Frequency(); math.Abs(got-440) > 1e-3 {
		t.Fatalf("default frequency mismatch: got=%f want=440", got)
	}
	if got := s.Pan(); got != 0 {
		t.Fatalf("default pan should be centred, got %f", got)
	}
	if s.Mode() != ModeVoice {
		t.Fatalf("default mode mismatch: got=%v", s.Mode())
	}
	if got := s.Decay(); got < minDecaySeconds || got > maxDecaySeconds {
		t.Fatalf("decay out of range: %f", got)
	}

	s.Values[ParamDecay] = 1
	if got := s.Decay(); math.Abs(got-maxDecaySeconds) > 1e-9 {
		t.Fatalf("max decay mismatch: got=%f want=%f", got, maxDecaySeconds)
	}
	s.Values[ParamMode] = 1
	if s.Mode() != ModeSine {
		t.Fatalf("mode value 1 should select the last mode, got %v", s.Mode())
	}
}

func TestPlayModeValueRoundTrip(t *testing.T) {
	for m := ModeVoice; m < numModes; m++ {
		s := DefaultSnapshot()
		s.Values[ParamMode] = m.Value()
		if s.Mode() != m {
			t.Fatalf("mode %v did not survive its normalized value: got %v", m, s.Mode())
		}
		parsed, ok := ParsePlayMode(m.String())
		if !ok || parsed != m {
			t.Fatalf("mode %v did not parse back from %q", m, m.String())
		}
	}
	if _, ok := ParsePlayMode("organ"); ok {
		t.Fatalf("unexpected parse of unknown mode")
	}
}

func TestParameterByName(t *testing.T) {
	for id := ParamFrequency; id < NumParams; id++ {
		got, ok := ParameterByName(id.String())
		if !ok || got != id {
			t.Fatalf("lookup of %q failed: got=%v ok=%v", id.String(), got, ok)
		}
	}
}

func TestPlayModeNextWraps(t *testing.T) {
	seen := map[PlayMode]bool{}
	m := ModeVoice
	for i := 0; i < int(numModes); i++ {
		seen[m] = true
		m = m.Next()
	}
	if m != ModeVoice || len(seen) != int(numModes) {
		t.Fatalf("Next should cycle through every mode: end=%v seen=%d", m, len(seen))
	}
}
