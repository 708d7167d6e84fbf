package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/term"

	"github.com/cwbudde/algo-synth/preset"
	"github.com/cwbudde/algo-synth/synth"
)

const version = "0.1.0"

func main() {
	sampleRate := flag.Int("sample-rate", 48000, "Output sample rate in Hz")
	presetPath := flag.String("preset", "", "Preset JSON file path (optional)")
	mode := flag.String("mode", "", "Initial play mode: voice, pulse, noise or sine")
	velocity := flag.Int("velocity", 100, "MIDI velocity for keyboard notes (1-127)")
	octave := flag.Int("octave", 4, "Octave of the lower key row")
	bufferFrames := flag.Int("buffer", 1024, "Output buffer size in frames")
	flag.Parse()

	logger, closeLog := openLog()
	defer closeLog()

	cfg := synth.NewDefaultConfig()
	if *presetPath != "" {
		var err error
		cfg, err = preset.LoadJSON(*presetPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading preset %q: %v\n", *presetPath, err)
			os.Exit(1)
		}
	}
	if *mode != "" {
		m, ok := synth.ParsePlayMode(*mode)
		if !ok {
			fmt.Fprintf(os.Stderr, "Error: unknown mode %q\n", *mode)
			os.Exit(1)
		}
		cfg.SetValue(synth.ParamMode, m.Value())
	}
	if *velocity < 1 || *velocity > 127 {
		*velocity = 100
	}

	e := synth.NewEngine(*sampleRate, cfg)
	if err := e.RoomError(); err != nil {
		logger.Warn("room disabled", "err", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go e.RunRebuilder(ctx, 2*time.Millisecond)

	player := newEnginePlayer(e, *bufferFrames*4)
	if err := player.Open(*sampleRate, *bufferFrames); err != nil {
		fmt.Fprintf(os.Stderr, "Error opening audio output: %v\n", err)
		os.Exit(1)
	}
	defer player.Close()
	logger.Info("audio started", "sample_rate", *sampleRate, "buffer_frames", *bufferFrames, "mode", e.Mode().String())

	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error setting raw terminal mode: %v\n", err)
		os.Exit(1)
	}
	defer term.Restore(fd, oldState)

	fmt.Print("synth-play: keys z..m / q..u play, space releases all, [ ] pan, - = modulation, , . decay, / mode, < > octave, Esc quits\r\n")

	p := &performer{
		engine:   e,
		logger:   logger,
		velocity: uint8(*velocity),
		baseNote: 12 * (*octave + 1),
		held:     make(map[uint8]bool),
	}
	buf := make([]byte, 1)
	for {
		n, err := os.Stdin.Read(buf)
		if err != nil {
			if err != io.EOF {
				logger.Error("stdin read failed", "err", err)
			}
			return
		}
		if n == 0 {
			continue
		}
		if !p.handle(keyAction(buf[0], p.baseNote)) {
			p.push(synth.Event{Kind: synth.EventAllNotesOff})
			return
		}
	}
}

// performer turns keyboard actions into queued note events and parameter
// writes. Terminals report no key releases, so a second press of a held key
// releases it.
type performer struct {
	engine   *synth.Engine
	logger   *slog.Logger
	velocity uint8
	baseNote int
	held     map[uint8]bool
}

// handle applies a; it returns false when the user asked to quit.
func (p *performer) handle(a action) bool {
	switch a.kind {
	case actionQuit:
		return false
	case actionNote:
		if p.held[a.pitch] {
			delete(p.held, a.pitch)
			p.push(synth.Event{Kind: synth.EventNoteOff, Note: synth.Note{Pitch: a.pitch}})
		} else {
			p.held[a.pitch] = true
			p.push(synth.Event{Kind: synth.EventNoteOn, Note: synth.Note{Pitch: a.pitch, Velocity: p.velocity}})
		}
	case actionAllOff:
		clear(p.held)
		p.push(synth.Event{Kind: synth.EventAllNotesOff})
	case actionParam:
		params := p.engine.Params()
		params.Set(a.param, params.Get(a.param)+a.delta)
		p.logger.Info("parameter", "name", a.param.String(), "value", params.Get(a.param))
	case actionMode:
		params := p.engine.Params()
		params.Set(synth.ParamMode, nextMode(params.Get(synth.ParamMode)))
		p.logger.Info("mode", "value", params.Snapshot().Mode().String())
	case actionOctave:
		next := p.baseNote + int(a.delta)*12
		if next >= 0 && next+23 <= 127 {
			p.baseNote = next
		}
	}
	return true
}

func (p *performer) push(ev synth.Event) {
	if !p.engine.Queue().Push(ev) {
		p.logger.Warn("event queue full, dropping event", "kind", int(ev.Kind), "pitch", ev.Note.Pitch)
	}
}

// openLog writes a text log to ~/tmp. Failing to open it only disables
// logging.
func openLog() (*slog.Logger, func()) {
	discard := slog.New(slog.NewTextHandler(io.Discard, nil))
	home, err := os.UserHomeDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: no home directory, logging disabled: %v\n", err)
		return discard, func() {}
	}
	dir := filepath.Join(home, "tmp")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: cannot create log directory: %v\n", err)
		return discard, func() {}
	}
	path := filepath.Join(dir, fmt.Sprintf("synth-play-%s-log.txt", version))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: cannot open log file: %v\n", err)
		return discard, func() {}
	}
	return slog.New(slog.NewTextHandler(f, nil)), func() { _ = f.Close() }
}
