package main

import (
	"encoding/binary"
	"math"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/cwbudde/algo-synth/synth"
)

// enginePlayer streams an engine to oto as interleaved float32 stereo.
// Read runs on oto's goroutine and is the engine's only render caller.
type enginePlayer struct {
	engine *synth.Engine
	left   []float32
	right  []float32
	out    [][]float32

	ctx    *oto.Context
	player *oto.Player
	mu     sync.Mutex
}

func newEnginePlayer(e *synth.Engine, maxFrames int) *enginePlayer {
	return &enginePlayer{
		engine: e,
		left:   make([]float32, maxFrames),
		right:  make([]float32, maxFrames),
		out:    make([][]float32, 2),
	}
}

// Open creates the oto context and starts playback.
func (p *enginePlayer) Open(sampleRate int, bufferFrames int) error {
	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 2,
		Format:       oto.FormatFloat32LE,
		BufferSize:   0,
	}
	if bufferFrames > 0 && sampleRate > 0 {
		op.BufferSize = time.Duration(bufferFrames) * time.Second / time.Duration(sampleRate)
	}
	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return err
	}
	<-ready

	p.mu.Lock()
	defer p.mu.Unlock()
	p.ctx = ctx
	p.player = ctx.NewPlayer(p)
	p.player.Play()
	return nil
}

func (p *enginePlayer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.player == nil {
		return nil
	}
	err := p.player.Close()
	p.player = nil
	return err
}

func (p *enginePlayer) Read(b []byte) (int, error) {
	frames := len(b) / 8
	if frames > len(p.left) {
		frames = len(p.left)
	}
	if frames == 0 {
		return 0, nil
	}
	p.out[0] = p.left[:frames]
	p.out[1] = p.right[:frames]
	p.engine.Process(p.out)
	for i := 0; i < frames; i++ {
		binary.LittleEndian.PutUint32(b[i*8:], math.Float32bits(p.left[i]))
		binary.LittleEndian.PutUint32(b[i*8+4:], math.Float32bits(p.right[i]))
	}
	return frames * 8, nil
}
