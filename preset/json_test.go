package preset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cwbudde/algo-synth/synth"
)

func TestLoadJSONAppliesSettingsAndParams(t *testing.T) {
	dir := t.TempDir()
	irPath := filepath.Join(dir, "room.wav")
	if err := os.WriteFile(irPath, []byte("fake"), 0o644); err != nil {
		t.Fatalf("write ir: %v", err)
	}
	presetPath := filepath.Join(dir, "preset.json")
	content := `{
  "output_gain": 0.9,
  "room_ir_wav_path": "room.wav",
  "room_size_s": 0.6,
  "room_wet_mix": 0.25,
  "room_gain": 1.5,
  "noise_seed": 7,
  "mode": "Pulse",
  "params": {
    "Frequency": 0.22,
    "Modulation": 0.5,
    "Mode": 0
  }
}`
	if err := os.WriteFile(presetPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write preset: %v", err)
	}

	c, err := LoadJSON(presetPath)
	if err != nil {
		t.Fatalf("LoadJSON: %v", err)
	}
	if c.OutputGain != 0.9 {
		t.Fatalf("output_gain mismatch: %f", c.OutputGain)
	}
	if c.RoomIRWavPath != irPath {
		t.Fatalf("room path mismatch: got=%q want=%q", c.RoomIRWavPath, irPath)
	}
	if c.RoomWetMix != 0.25 || c.RoomGain != 1.5 || c.NoiseSeed != 7 || c.RoomSize != 0.6 {
		t.Fatalf("room fields mismatch: %+v", c)
	}
	if c.Values[synth.ParamFrequency] != 0.22 || c.Values[synth.ParamModulation] != 0.5 {
		t.Fatalf("param values mismatch: %v", c.Values)
	}
	if got := (synth.Snapshot{Values: c.Values}).Mode(); got != synth.ModePulse {
		t.Fatalf("mode name should override numeric mode: got=%v", got)
	}
	if c.Values[synth.ParamDecay] != synth.NewDefaultConfig().Values[synth.ParamDecay] {
		t.Fatalf("unset params must keep their defaults")
	}
}

func TestLoadJSONRejectsUnknownParameter(t *testing.T) {
	dir := t.TempDir()
	presetPath := filepath.Join(dir, "preset.json")
	content := `{"params": {"Cutoff": 0.5}}`
	if err := os.WriteFile(presetPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write preset: %v", err)
	}
	if _, err := LoadJSON(presetPath); err == nil {
		t.Fatalf("expected error for unknown parameter")
	}
}

func TestLoadJSONRejectsInvalidRanges(t *testing.T) {
	cases := []string{
		`{"params": {"Pan": 1.2}}`,
		`{"output_gain": 0}`,
		`{"room_wet_mix": -0.1}`,
		`{"room_size_s": -1}`,
		`{"mode": "organ"}`,
	}
	dir := t.TempDir()
	for i, content := range cases {
		presetPath := filepath.Join(dir, "preset.json")
		if err := os.WriteFile(presetPath, []byte(content), 0o644); err != nil {
			t.Fatalf("write preset: %v", err)
		}
		if _, err := LoadJSON(presetPath); err == nil {
			t.Fatalf("case %d: expected error for %s", i, content)
		}
	}
}

func TestWriteJSONThenLoad(t *testing.T) {
	c := synth.NewDefaultConfig()
	c.OutputGain = 0.7
	c.SetValue(synth.ParamModulation, 0.33)
	c.SetValue(synth.ParamMode, synth.ModeNoise.Value())

	path := filepath.Join(t.TempDir(), "out", "fit.json")
	if err := WriteJSON(path, FromConfig(c)); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	got, err := LoadJSON(path)
	if err != nil {
		t.Fatalf("LoadJSON: %v", err)
	}
	if got.OutputGain != 0.7 || got.Values[synth.ParamModulation] != 0.33 {
		t.Fatalf("written preset did not load back: %+v", got)
	}
	if (synth.Snapshot{Values: got.Values}).Mode() != synth.ModeNoise {
		t.Fatalf("mode did not survive: %v", got.Values[synth.ParamMode])
	}
}
