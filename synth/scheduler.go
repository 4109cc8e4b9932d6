package synth

import (
	"sort"
)

type scheduledEvent struct {
	msg   ChannelMessage
	frame int64
	seq   uint64
}

// Scheduler holds delayed channel messages until their target frame.
// Pending events are kept sorted by frame; the current frame is always
// supplied by the caller.
type Scheduler struct {
	pending []scheduledEvent
	due     []scheduledEvent
	nextSeq uint64
}

// Schedule queues msg for frame now+delay. Negative delays count as zero.
func (s *Scheduler) Schedule(msg ChannelMessage, now int64, delay int) {
	if delay < 0 {
		delay = 0
	}
	e := scheduledEvent{msg: msg, frame: now + int64(delay), seq: s.nextSeq}
	s.nextSeq++

	// First slot with a later frame, so equal frames keep enqueue order.
	i := sort.Search(len(s.pending), func(i int) bool {
		return s.pending[i].frame > e.frame
	})
	s.pending = append(s.pending, scheduledEvent{})
	copy(s.pending[i+1:], s.pending[i:])
	s.pending[i] = e
}

// ProcessDue dispatches every event whose frame is <= now in
// (frame, sequence) order.
func (s *Scheduler) ProcessDue(now int64, fn func(ChannelMessage)) {
	n := 0
	for n < len(s.pending) && s.pending[n].frame <= now {
		n++
	}
	if n == 0 && len(s.due) == 0 {
		return
	}
	s.due = append(s.due, s.pending[:n]...)
	s.pending = append(s.pending[:0], s.pending[n:]...)

	sort.Slice(s.due, func(i, j int) bool {
		a, b := s.due[i], s.due[j]
		if a.frame != b.frame {
			return a.frame < b.frame
		}
		return a.seq < b.seq
	})

	// fn may purge channels, which edits s.due in place.
	for len(s.due) > 0 {
		e := s.due[0]
		s.due = s.due[1:]
		fn(e.msg)
	}
	s.due = nil
}

// Purge drops all pending and in-flight events for channel.
func (s *Scheduler) Purge(channel int) {
	s.pending = filterChannel(s.pending, channel)
	s.due = filterChannel(s.due, channel)
}

// Len returns the number of pending events.
func (s *Scheduler) Len() int { return len(s.pending) }

func filterChannel(events []scheduledEvent, channel int) []scheduledEvent {
	out := events[:0]
	for _, e := range events {
		if e.msg.Channel != channel {
			out = append(out, e)
		}
	}
	for i := len(out); i < len(events); i++ {
		events[i] = scheduledEvent{}
	}
	return out
}
