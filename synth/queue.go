package synth

import "sync/atomic"

// EventQueue is a lock-free single-producer/single-consumer ring of events.
// One goroutine may call TryPush, one other goroutine may call Drain.
type EventQueue struct {
	events      []Event
	read, write atomic.Uint32
}

// NewEventQueue creates a queue holding up to size events. size must be a
// power of two.
func NewEventQueue(size int) *EventQueue {
	if size <= 0 || size&(size-1) != 0 {
		panic("synth: event queue size must be a power of 2")
	}
	return &EventQueue{events: make([]Event, size)}
}

// TryPush appends e and reports false if the queue is full.
func (q *EventQueue) TryPush(e Event) bool {
	write := q.write.Load()
	if write-q.read.Load() == uint32(len(q.events)) {
		return false
	}
	q.events[write%uint32(len(q.events))] = e
	q.write.Store(write + 1)
	return true
}

// Drain hands every queued event to fn in push order.
func (q *EventQueue) Drain(fn func(Event)) int {
	read := q.read.Load()
	write := q.write.Load()
	n := 0
	for read != write {
		slot := read % uint32(len(q.events))
		fn(q.events[slot])
		q.events[slot] = nil
		read++
		n++
	}
	q.read.Store(read)
	return n
}

// Len returns the number of queued events.
func (q *EventQueue) Len() int {
	return int(q.write.Load() - q.read.Load())
}
