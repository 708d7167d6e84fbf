package synth

import "sync/atomic"

// EventKind is the type of a note event.
type EventKind uint8

const (
	EventNoteOn EventKind = iota + 1
	EventNoteOff
	EventAllNotesOff
)

// Event is a note event scheduled at a frame offset inside the next
// Process call.
type Event struct {
	Kind   EventKind
	Note   Note
	Offset int
}

const maxEventOffset = 1<<24 - 1

func (ev Event) pack() uint64 {
	off := ev.Offset
	if off < 0 {
		off = 0
	}
	if off > maxEventOffset {
		off = maxEventOffset
	}
	return uint64(ev.Kind)<<40 | uint64(ev.Note.Pitch)<<32 | uint64(ev.Note.Velocity)<<24 | uint64(off)
}

func unpackEvent(v uint64) Event {
	return Event{
		Kind:   EventKind(v >> 40),
		Note:   Note{Pitch: uint8(v >> 32), Velocity: uint8(v >> 24)},
		Offset: int(v & maxEventOffset),
	}
}

// EventQueue is a fixed-capacity single-producer single-consumer ring used
// to hand note events from a control goroutine to the render goroutine
// without locks or allocation.
type EventQueue struct {
	slots []atomic.Uint64
	mask  uint64
	head  atomic.Uint64
	tail  atomic.Uint64
}

// NewEventQueue creates a queue holding at least capacity events.
// Capacity is rounded up to a power of two.
func NewEventQueue(capacity int) *EventQueue {
	n := 16
	for n < capacity {
		n <<= 1
	}
	return &EventQueue{slots: make([]atomic.Uint64, n), mask: uint64(n - 1)}
}

// Push enqueues ev. It reports false when the queue is full.
// Push must only be called from the producer goroutine.
func (q *EventQueue) Push(ev Event) bool {
	t := q.tail.Load()
	if t-q.head.Load() > q.mask {
		return false
	}
	q.slots[t&q.mask].Store(ev.pack())
	q.tail.Store(t + 1)
	return true
}

// Pop dequeues the oldest event. Pop must only be called from the
// consumer goroutine.
func (q *EventQueue) Pop() (Event, bool) {
	h := q.head.Load()
	if h == q.tail.Load() {
		return Event{}, false
	}
	v := q.slots[h&q.mask].Load()
	q.head.Store(h + 1)
	return unpackEvent(v), true
}

// Len returns the number of queued events.
func (q *EventQueue) Len() int {
	return int(q.tail.Load() - q.head.Load())
}
