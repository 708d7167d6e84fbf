package synth

// DefaultNoiseSeed seeds the noise generator when a Config leaves it at zero.
const DefaultNoiseSeed = 0x5eed

// Config holds the engine settings that are not host parameters.
type Config struct {
	Values [NumParams]float32

	OutputGain float32

	// Stereo room impulse response applied after the graph, mixed on top
	// of the dry signal. Without a WAV path, a RoomSize above zero
	// synthesizes an IR of that many seconds instead.
	RoomIRWavPath string
	RoomSize      float32
	RoomWetMix    float32
	RoomGain      float32

	NoiseSeed uint64
}

// NewDefaultConfig creates default engine settings.
func NewDefaultConfig() *Config {
	return &Config{
		Values:     defaultValues,
		OutputGain: 1.0,
		RoomWetMix: 0.0,
		RoomGain:   1.0,
		NoiseSeed:  DefaultNoiseSeed,
	}
}

// SetValue stores a normalized parameter value, clamped to [0,1].
func (c *Config) SetValue(id Parameter, v float32) {
	if !id.valid() {
		return
	}
	c.Values[id] = clampUnit(v, c.Values[id])
}
