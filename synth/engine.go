// Package synth drives a monophonic signal graph from host parameters and
// note events in fixed-size blocks, rebuilding the graph when a structural
// parameter changes.
package synth

import (
	"context"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/cwbudde/algo-synth/graph"
	"github.com/cwbudde/algo-synth/roomir"
)

// BlockSize is the number of frames rendered per sub-block. Tags and note
// events are applied at this granularity.
const BlockSize = graph.MaxBlock

const (
	maxPendingEvents     = 256
	defaultQueueCapacity = 1024

	// MIDI controller number for "all notes off".
	ccAllNotesOff = 123
)

type prepared struct {
	g          *graph.Graph
	generation uint64
}

// Engine is the render loop around a single signal graph.
//
// Process, Render, NoteOn, NoteOff, HandleMIDI, Drain and SetSampleRate
// belong to the render context and must not be called concurrently with
// each other. Parameter access, Prepare, RunRebuilder and pushes to Queue
// may come from any goroutine.
type Engine struct {
	params     *Params
	builder    Builder
	outputGain float32

	sampleRate float64
	frames     int64
	onset      float64
	tracker    NoteTracker

	graph      *graph.Graph
	generation uint64

	// Published for off-path builds.
	pending     atomic.Pointer[prepared]
	preparedGen atomic.Uint64
	voice   atomic.Uint32
	rate    atomic.Uint64

	events  [maxPendingEvents]Event
	nEvents int
	queue   *EventQueue

	scratch [][]float64
	room    *RoomConvolver
	roomWet float32
	roomErr error
}

// NewEngine creates an engine with the default graph builder.
func NewEngine(sampleRate int, cfg *Config) *Engine {
	if cfg == nil {
		cfg = NewDefaultConfig()
	}
	return NewEngineWithBuilder(sampleRate, cfg, NewBuilder(cfg.NoiseSeed))
}

// NewEngineWithBuilder creates an engine that builds its graphs with b.
// It panics if b returns a graph that is not mono or stereo.
func NewEngineWithBuilder(sampleRate int, cfg *Config, b Builder) *Engine {
	if cfg == nil {
		cfg = NewDefaultConfig()
	}
	if sampleRate <= 0 {
		sampleRate = 48000
	}
	e := &Engine{
		params:     NewParams(cfg.Values),
		builder:    b,
		outputGain: cfg.OutputGain,
		sampleRate: float64(sampleRate),
		queue:      NewEventQueue(defaultQueueCapacity),
		scratch:    [][]float64{make([]float64, BlockSize), make([]float64, BlockSize)},
		roomWet:    cfg.RoomWetMix * cfg.RoomGain,
	}
	if e.outputGain <= 0 {
		e.outputGain = 1.0
	}
	e.rate.Store(math.Float64bits(e.sampleRate))

	snap := e.params.Snapshot()
	if !e.install(b(snap, Voice{}, e.sampleRate), snap.Generation) {
		panic("synth: builder must return a mono or stereo graph")
	}

	if e.roomWet > 0 {
		switch {
		case cfg.RoomIRWavPath != "":
			room := NewRoomConvolver(sampleRate, e.roomWet)
			if err := room.SetIRFromWAV(cfg.RoomIRWavPath); err != nil {
				e.roomErr = fmt.Errorf("room IR %s: %w", cfg.RoomIRWavPath, err)
			} else {
				e.room = room
			}
		case cfg.RoomSize > 0:
			if err := e.synthesizeRoom(float64(cfg.RoomSize), cfg.NoiseSeed); err != nil {
				e.roomErr = fmt.Errorf("synthetic room: %w", err)
			}
		}
	}
	return e
}

func (e *Engine) synthesizeRoom(seconds float64, seed uint64) error {
	rc := roomir.DefaultConfig()
	rc.SampleRate = int(e.sampleRate)
	rc.DurationS = seconds
	rc.Seed = seed
	rc.LowDecayS = max(0.05, 1.25*seconds)
	rc.HighDecayS = max(0.02, 0.25*seconds)
	left, right, err := roomir.Generate(rc)
	if err != nil {
		return err
	}
	return e.SetRoomIR(left, right)
}

// Params returns the engine's control surface.
func (e *Engine) Params() *Params {
	return e.params
}

// Queue returns the queue for note events produced on another goroutine.
// Queued events are drained at the start of the next Process call.
func (e *Engine) Queue() *EventQueue {
	return e.queue
}

// RoomError returns the error from loading the configured room IR, if any.
// A failed load leaves the room stage bypassed.
func (e *Engine) RoomError() error {
	return e.roomErr
}

// SetRoomIR installs a stereo room IR given at the engine's sample rate.
func (e *Engine) SetRoomIR(left, right []float32) error {
	wet := e.roomWet
	if wet <= 0 {
		wet = 1
	}
	room := NewRoomConvolver(int(e.sampleRate), wet)
	if err := room.SetIR(left, right); err != nil {
		return err
	}
	e.room = room
	e.roomErr = nil
	return nil
}

// SampleRate returns the current sample rate.
func (e *Engine) SampleRate() float64 {
	return e.sampleRate
}

// Elapsed returns the engine clock in seconds.
func (e *Engine) Elapsed() float64 {
	return float64(e.frames) / e.sampleRate
}

// CurrentNote returns the sounding note.
func (e *Engine) CurrentNote() (Note, bool) {
	return e.tracker.Current()
}

// TagValue returns the value last pushed to tag of the installed graph.
func (e *Engine) TagValue(tag graph.Tag) float64 {
	return e.graph.Get(tag)
}

// Mode returns the play mode selected by the parameters.
func (e *Engine) Mode() PlayMode {
	return e.params.Snapshot().Mode()
}

// GetParameter returns the normalized value at index, or 0 if unknown.
func (e *Engine) GetParameter(index int) float32 {
	return e.params.Get(Parameter(index))
}

// SetParameter stores a normalized value, clamped to [0,1].
func (e *Engine) SetParameter(index int, value float32) {
	e.params.Set(Parameter(index), value)
}

// ParameterCount returns the number of host parameters.
func (e *Engine) ParameterCount() int {
	return int(NumParams)
}

// ParameterName returns the display name at index, or "unknown".
func (e *Engine) ParameterName(index int) string {
	return Parameter(index).String()
}

// NoteOn schedules a key press offset frames into the next Process call.
// A velocity of zero is a key release, as in MIDI.
func (e *Engine) NoteOn(pitch, velocity uint8, offset int) {
	if velocity == 0 {
		e.NoteOff(pitch, 0, offset)
		return
	}
	e.schedule(Event{Kind: EventNoteOn, Note: Note{Pitch: pitch, Velocity: velocity}, Offset: offset})
}

// NoteOff schedules a key release offset frames into the next Process call.
func (e *Engine) NoteOff(pitch, velocity uint8, offset int) {
	e.schedule(Event{Kind: EventNoteOff, Note: Note{Pitch: pitch, Velocity: velocity}, Offset: offset})
}

// AllNotesOff schedules the release of every held key.
func (e *Engine) AllNotesOff(offset int) {
	e.schedule(Event{Kind: EventAllNotesOff, Offset: offset})
}

// Drain moves events pushed to Queue into the pending event list.
func (e *Engine) Drain() {
	for {
		ev, ok := e.queue.Pop()
		if !ok {
			return
		}
		e.schedule(ev)
	}
}

// schedule inserts ev keeping events ordered by offset, after any event
// with the same offset. Events past capacity are dropped.
func (e *Engine) schedule(ev Event) {
	if e.nEvents == len(e.events) {
		return
	}
	if ev.Offset < 0 {
		ev.Offset = 0
	}
	i := e.nEvents
	for i > 0 && e.events[i-1].Offset > ev.Offset {
		e.events[i] = e.events[i-1]
		i--
	}
	e.events[i] = ev
	e.nEvents++
}

// SetSampleRate adopts a new rate and resets the clock, onset and graph
// state. Non-positive rates are ignored.
func (e *Engine) SetSampleRate(rate float64) {
	if !(rate > 0) || math.IsInf(rate, 0) {
		return
	}
	e.sampleRate = rate
	e.rate.Store(math.Float64bits(rate))
	e.frames = 0
	e.onset = 0
	e.graph.Reset(rate)
	if e.room != nil {
		if err := e.room.SetSampleRate(int(rate)); err != nil {
			e.roomErr = fmt.Errorf("room IR at %v Hz: %w", rate, err)
			e.room = nil
		}
	}
}

// Reset silences the voice, drops pending events and rewinds the clock.
func (e *Engine) Reset() {
	e.tracker.Reset()
	e.publishVoice()
	e.nEvents = 0
	e.frames = 0
	e.onset = 0
	e.graph.Reset(e.sampleRate)
	if e.room != nil {
		e.room.Reset()
	}
}

// Prepare builds a graph for a pending rebuild request on the calling
// goroutine and hands it to the render context for the next Process call.
// It reports whether a graph was built. The dirty flag stays set until the
// render context installs a graph for the latest structural write, so a
// Process call that runs while Prepare is still building rebuilds inline.
func (e *Engine) Prepare() bool {
	if !e.params.Dirty() {
		return false
	}
	snap := e.params.Snapshot()
	if snap.Generation <= e.preparedGen.Load() {
		return false
	}
	rate := math.Float64frombits(e.rate.Load())
	g := e.builder(snap, unpackVoice(e.voice.Load()), rate)
	e.pending.Store(&prepared{g: g, generation: snap.Generation})
	e.preparedGen.Store(snap.Generation)
	return true
}

// RunRebuilder calls Prepare every interval until ctx is cancelled.
func (e *Engine) RunRebuilder(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.Prepare()
		}
	}
}

// Process renders len(out[0]) frames into the two channel buffers of out.
// Any other channel count, empty or mismatched buffers leave out untouched
// and drop pending events.
func (e *Engine) Process(out [][]float32) {
	e.Drain()
	if len(out) != 2 || len(out[0]) == 0 || len(out[0]) != len(out[1]) {
		e.nEvents = 0
		return
	}

	e.installPending()
	if e.params.Dirty() {
		if e.generation < e.params.Generation() {
			snap := e.params.Snapshot()
			e.install(e.builder(snap, e.currentVoice(), e.sampleRate), snap.Generation)
		}
		e.params.ClearDirty(e.generation)
	}

	left, right := out[0], out[1]
	n := len(left)
	gain := float64(e.outputGain)
	src := e.scratch[0]
	if e.graph.Channels() > 1 {
		src = e.scratch[1]
	}

	next := 0
	for done := 0; done < n; {
		m := n - done
		if m > BlockSize {
			m = BlockSize
		}
		for next < e.nEvents && e.events[next].Offset < done+m {
			e.apply(e.events[next])
			next++
		}
		e.pushTags()
		e.graph.Render(m, e.scratch)

		l := left[done : done+m]
		r := right[done : done+m]
		for i := range l {
			l[i] = float32(e.scratch[0][i] * gain)
			r[i] = float32(src[i] * gain)
		}
		if e.room != nil {
			e.room.Process(l, r)
		}
		e.frames += int64(m)
		done += m
	}
	for ; next < e.nEvents; next++ {
		e.apply(e.events[next])
	}
	e.nEvents = 0
}

// Render is an allocating convenience that renders numFrames of
// interleaved stereo.
func (e *Engine) Render(numFrames int) []float32 {
	if numFrames <= 0 {
		return nil
	}
	left := make([]float32, numFrames)
	right := make([]float32, numFrames)
	e.Process([][]float32{left, right})
	out := make([]float32, numFrames*2)
	for i := range left {
		out[i*2] = left[i]
		out[i*2+1] = right[i]
	}
	return out
}

func (e *Engine) apply(ev Event) {
	switch ev.Kind {
	case EventNoteOn:
		if e.tracker.NoteOn(ev.Note) {
			e.onset = e.Elapsed()
		}
	case EventNoteOff:
		e.tracker.NoteOff(ev.Note.Pitch)
	case EventAllNotesOff:
		e.tracker.AllNotesOff()
	default:
		return
	}
	e.publishVoice()
}

func (e *Engine) pushTags() {
	tags := tagValues(e.params.Snapshot(), e.currentVoice(), e.onset)
	for t, v := range tags {
		e.graph.Set(graph.Tag(t), v)
	}
}

func (e *Engine) installPending() {
	p := e.pending.Swap(nil)
	if p == nil || p.generation <= e.generation {
		return
	}
	e.install(p.g, p.generation)
}

// install resets g to the engine rate and aligns its clock with the
// engine clock. Graphs with an unsupported channel count are rejected.
func (e *Engine) install(g *graph.Graph, generation uint64) bool {
	if g == nil || g.Channels() < 1 || g.Channels() > 2 {
		return false
	}
	g.Reset(e.sampleRate)
	g.Seek(e.Elapsed())
	e.graph = g
	e.generation = generation
	return true
}

func (e *Engine) currentVoice() Voice {
	n, ok := e.tracker.Current()
	return Voice{Note: n, Active: ok}
}

func (e *Engine) publishVoice() {
	e.voice.Store(packVoice(e.currentVoice()))
}

func packVoice(v Voice) uint32 {
	if !v.Active {
		return 0
	}
	return 1<<16 | uint32(v.Note.Pitch)<<8 | uint32(v.Note.Velocity)
}

func unpackVoice(x uint32) Voice {
	return Voice{
		Note:   Note{Pitch: uint8(x >> 8), Velocity: uint8(x)},
		Active: x&(1<<16) != 0,
	}
}
