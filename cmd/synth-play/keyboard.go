package main

import (
	"github.com/cwbudde/algo-synth/synth"
)

// Two tracker-style rows, each a chromatic octave starting at C.
const (
	lowerRow = "zsxdcvgbhnjm"
	upperRow = "q2w3er5t6y7u"
)

type actionKind int

const (
	actionNone actionKind = iota
	actionNote
	actionAllOff
	actionParam
	actionMode
	actionOctave
	actionQuit
)

type action struct {
	kind  actionKind
	pitch uint8
	param synth.Parameter
	delta float32
}

// keyAction maps a raw terminal byte to a performance action. baseNote is
// the MIDI pitch of the lower row's C.
func keyAction(b byte, baseNote int) action {
	for i := 0; i < len(lowerRow); i++ {
		if lowerRow[i] == b {
			return noteAction(baseNote + i)
		}
		if upperRow[i] == b {
			return noteAction(baseNote + 12 + i)
		}
	}
	switch b {
	case ' ':
		return action{kind: actionAllOff}
	case '[':
		return action{kind: actionParam, param: synth.ParamPan, delta: -0.05}
	case ']':
		return action{kind: actionParam, param: synth.ParamPan, delta: 0.05}
	case '-':
		return action{kind: actionParam, param: synth.ParamModulation, delta: -0.05}
	case '=':
		return action{kind: actionParam, param: synth.ParamModulation, delta: 0.05}
	case ',':
		return action{kind: actionParam, param: synth.ParamDecay, delta: -0.05}
	case '.':
		return action{kind: actionParam, param: synth.ParamDecay, delta: 0.05}
	case '/':
		return action{kind: actionMode}
	case '<':
		return action{kind: actionOctave, delta: -1}
	case '>':
		return action{kind: actionOctave, delta: 1}
	case 0x1b, 0x03:
		return action{kind: actionQuit}
	}
	return action{}
}

func noteAction(pitch int) action {
	if pitch < 0 || pitch > 127 {
		return action{}
	}
	return action{kind: actionNote, pitch: uint8(pitch)}
}

// nextMode returns the parameter value selecting the mode after the one
// encoded in v.
func nextMode(v float32) float32 {
	s := synth.Snapshot{Values: [synth.NumParams]float32{synth.ParamMode: v}}
	return s.Mode().Next().Value()
}
