package preset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cwbudde/algo-synth/synth"
)

// File is the JSON schema for synth presets.
type File struct {
	OutputGain    *float32           `json:"output_gain,omitempty"`
	RoomIRWavPath string             `json:"room_ir_wav_path,omitempty"`
	RoomSize      *float32           `json:"room_size_s,omitempty"`
	RoomWetMix    *float32           `json:"room_wet_mix,omitempty"`
	RoomGain      *float32           `json:"room_gain,omitempty"`
	NoiseSeed     *uint64            `json:"noise_seed,omitempty"`
	Mode          string             `json:"mode,omitempty"`
	Params        map[string]float32 `json:"params,omitempty"`
}

// LoadJSON loads a preset JSON file and applies it on top of the default config.
func LoadJSON(path string) (*synth.Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f File
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse preset %s: %w", path, err)
	}

	c := synth.NewDefaultConfig()
	if err := ApplyFile(c, &f); err != nil {
		return nil, fmt.Errorf("preset %s: %w", path, err)
	}

	if c.RoomIRWavPath != "" && !filepath.IsAbs(c.RoomIRWavPath) {
		base := filepath.Dir(path)
		c.RoomIRWavPath = filepath.Clean(filepath.Join(base, c.RoomIRWavPath))
	}
	return c, nil
}

// ApplyFile applies a parsed preset file onto an existing config.
func ApplyFile(dst *synth.Config, f *File) error {
	if dst == nil {
		return fmt.Errorf("nil destination config")
	}
	if f == nil {
		return nil
	}

	if f.OutputGain != nil {
		if *f.OutputGain <= 0 {
			return fmt.Errorf("output_gain must be > 0")
		}
		dst.OutputGain = *f.OutputGain
	}
	if f.RoomIRWavPath != "" {
		dst.RoomIRWavPath = strings.TrimSpace(f.RoomIRWavPath)
	}
	if f.RoomSize != nil {
		if *f.RoomSize < 0 || *f.RoomSize > 10 {
			return fmt.Errorf("room_size_s must be in [0,10]")
		}
		dst.RoomSize = *f.RoomSize
	}
	if f.RoomWetMix != nil {
		if *f.RoomWetMix < 0 || *f.RoomWetMix > 1 {
			return fmt.Errorf("room_wet_mix must be in [0,1]")
		}
		dst.RoomWetMix = *f.RoomWetMix
	}
	if f.RoomGain != nil {
		if *f.RoomGain <= 0 {
			return fmt.Errorf("room_gain must be > 0")
		}
		dst.RoomGain = *f.RoomGain
	}
	if f.NoiseSeed != nil {
		dst.NoiseSeed = *f.NoiseSeed
	}

	keys := make([]string, 0, len(f.Params))
	for k := range f.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		id, ok := synth.ParameterByName(k)
		if !ok {
			return fmt.Errorf("unknown parameter %q", k)
		}
		v := f.Params[k]
		if v < 0 || v > 1 {
			return fmt.Errorf("params[%s] must be in [0,1]", k)
		}
		dst.SetValue(id, v)
	}

	// An explicit mode name wins over a numeric Mode value.
	if f.Mode != "" {
		m, ok := synth.ParsePlayMode(strings.ToLower(strings.TrimSpace(f.Mode)))
		if !ok {
			return fmt.Errorf("unknown mode %q", f.Mode)
		}
		dst.SetValue(synth.ParamMode, m.Value())
	}
	return nil
}

// FromConfig captures every setting of c as a preset file.
func FromConfig(c *synth.Config) *File {
	if c == nil {
		return &File{}
	}
	gain := c.OutputGain
	wet := c.RoomWetMix
	roomGain := c.RoomGain
	seed := c.NoiseSeed
	roomSize := c.RoomSize
	f := &File{
		OutputGain:    &gain,
		RoomIRWavPath: c.RoomIRWavPath,
		RoomSize:      &roomSize,
		RoomWetMix:    &wet,
		RoomGain:      &roomGain,
		NoiseSeed:     &seed,
		Params:        make(map[string]float32, synth.NumParams),
	}
	for id := synth.Parameter(0); id < synth.NumParams; id++ {
		if id == synth.ParamMode {
			continue
		}
		f.Params[id.String()] = c.Values[id]
	}
	snap := synth.Snapshot{Values: c.Values}
	f.Mode = snap.Mode().String()
	return f
}

// WriteJSON writes f as indented JSON, creating the parent directory.
func WriteJSON(path string, f *File) error {
	b, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, append(b, '\n'), 0o644)
}
