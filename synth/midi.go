package synth

import (
	"gitlab.com/gomidi/midi/v2"
)

// HandleMIDI schedules a raw MIDI channel message offset frames into the
// next Process call. Note on/off (including note-on with velocity zero)
// and "all notes off" are understood; everything else is ignored.
// It reports whether the message was used.
func (e *Engine) HandleMIDI(data []byte, offset int) bool {
	return e.ScheduleMessage(midi.Message(data), offset)
}

// ScheduleMessage is HandleMIDI for an already decoded message.
func (e *Engine) ScheduleMessage(msg midi.Message, offset int) bool {
	var ch, key, vel uint8
	switch {
	case msg.GetNoteStart(&ch, &key, &vel):
		e.NoteOn(key, vel, offset)
	case msg.GetNoteEnd(&ch, &key):
		e.NoteOff(key, 0, offset)
	case msg.GetControlChange(&ch, &key, &vel) && key == ccAllNotesOff:
		e.AllNotesOff(offset)
	default:
		return false
	}
	return true
}
