package synth

// Note is a pitch/velocity pair. Pitch follows MIDI numbering.
type Note struct {
	Pitch    uint8
	Velocity uint8
}

// NoteTracker follows the single sounding note with last-note priority.
//
// Held keys are kept in press order. Releasing the sounding key falls back
// to the most recently pressed key that is still down without re-triggering
// the envelope; releasing the last held key silences the voice.
type NoteTracker struct {
	current    Note
	hasCurrent bool
	previous   Note
	hasPrev    bool

	held  [128]Note
	nHeld int
}

// NoteOn makes n the sounding note and reports whether the envelope must
// be re-triggered, which is always the case for a key press.
func (t *NoteTracker) NoteOn(n Note) bool {
	n.Pitch &= 0x7f
	t.remove(n.Pitch)
	t.held[t.nHeld] = n
	t.nHeld++

	if t.hasCurrent && t.current.Pitch != n.Pitch {
		t.previous, t.hasPrev = t.current, true
	}
	if !t.hasPrev {
		t.previous, t.hasPrev = n, true
	}
	t.current, t.hasCurrent = n, true
	return true
}

// NoteOff releases pitch. It reports whether the sounding note changed.
func (t *NoteTracker) NoteOff(pitch uint8) bool {
	pitch &= 0x7f
	released, ok := t.remove(pitch)
	if !t.hasCurrent || t.current.Pitch != pitch {
		if ok {
			t.previous, t.hasPrev = released, true
		}
		return false
	}

	t.previous, t.hasPrev = t.current, true
	if t.nHeld > 0 {
		t.current = t.held[t.nHeld-1]
		return true
	}
	t.hasCurrent = false
	return true
}

// AllNotesOff releases every key and silences the voice.
func (t *NoteTracker) AllNotesOff() {
	if t.hasCurrent {
		t.previous, t.hasPrev = t.current, true
	}
	t.hasCurrent = false
	t.nHeld = 0
}

// Reset forgets all state, including the previous note.
func (t *NoteTracker) Reset() {
	*t = NoteTracker{}
}

// Current returns the sounding note.
func (t *NoteTracker) Current() (Note, bool) {
	return t.current, t.hasCurrent
}

// Previous returns the most recently overridden or released note.
func (t *NoteTracker) Previous() (Note, bool) {
	return t.previous, t.hasPrev
}

// Held returns the number of keys currently down.
func (t *NoteTracker) Held() int {
	return t.nHeld
}

func (t *NoteTracker) remove(pitch uint8) (Note, bool) {
	for i := 0; i < t.nHeld; i++ {
		if t.held[i].Pitch != pitch {
			continue
		}
		n := t.held[i]
		copy(t.held[i:t.nHeld-1], t.held[i+1:t.nHeld])
		t.nHeld--
		return n, true
	}
	return Note{}, false
}
