package synth

import (
	"math/rand"
	"sort"
	"testing"
)

func TestSchedulerDispatchesByTargetFrameNotEnqueueOrder(t *testing.T) {
	var s Scheduler
	s.Schedule(NoteOn(0, 60, 100), 0, 10)
	s.Schedule(NoteOn(1, 62, 100), 0, 5)

	var got []int
	s.ProcessDue(4, func(m ChannelMessage) { got = append(got, m.Channel) })
	if len(got) != 0 {
		t.Fatalf("nothing should be due at frame 4, got %v", got)
	}
	s.ProcessDue(10, func(m ChannelMessage) { got = append(got, m.Channel) })
	if len(got) != 2 || got[0] != 1 || got[1] != 0 {
		t.Fatalf("expected ch1 before ch0, got %v", got)
	}
	if s.Len() != 0 {
		t.Fatalf("expected empty scheduler, got %d pending", s.Len())
	}
}

func TestSchedulerEqualFramesKeepSequenceOrder(t *testing.T) {
	var s Scheduler
	for i := 0; i < 8; i++ {
		s.Schedule(ControlChange(0, CCVolume, i), 100, 0)
	}
	var got []int
	s.ProcessDue(100, func(m ChannelMessage) { got = append(got, m.Value) })
	for i, v := range got {
		if v != i {
			t.Fatalf("equal-frame events reordered: %v", got)
		}
	}
}

func TestSchedulerRandomInterleavingMatchesFrameSeqOrder(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	type want struct {
		frame int64
		seq   int
	}
	var s Scheduler
	var expected []want
	now := int64(0)
	seq := 0
	for round := 0; round < 20; round++ {
		for i := 0; i < 25; i++ {
			delay := rng.Intn(5000)
			ch := rng.Intn(NumChannels)
			s.Schedule(ControlChange(ch, CCExpression, seq), now, delay)
			expected = append(expected, want{frame: now + int64(delay), seq: seq})
			seq++
		}
		now += int64(rng.Intn(300))
	}
	sort.Slice(expected, func(i, j int) bool {
		if expected[i].frame != expected[j].frame {
			return expected[i].frame < expected[j].frame
		}
		return expected[i].seq < expected[j].seq
	})

	var got []int
	for frame := int64(0); s.Len() > 0; frame += 500 {
		s.ProcessDue(frame, func(m ChannelMessage) { got = append(got, m.Value) })
	}
	if len(got) != len(expected) {
		t.Fatalf("dispatched %d events, want %d", len(got), len(expected))
	}
	for i := range got {
		if got[i] != expected[i].seq {
			t.Fatalf("order mismatch at %d: got seq %d want %d", i, got[i], expected[i].seq)
		}
	}
}

func TestSchedulerPurgeRemovesPendingAndInFlight(t *testing.T) {
	var s Scheduler
	s.Schedule(NoteOn(2, 60, 100), 0, 0)
	s.Schedule(ControlChange(3, CCAllSoundsOff, 0), 0, 0)
	s.Schedule(NoteOn(3, 64, 100), 0, 0)
	s.Schedule(NoteOn(3, 67, 100), 0, 50)
	s.Schedule(NoteOn(2, 62, 100), 0, 50)

	var got []ChannelMessage
	s.ProcessDue(0, func(m ChannelMessage) {
		got = append(got, m)
		if m.Kind == KindControlChange {
			s.Purge(m.Channel)
		}
	})
	if len(got) != 2 {
		t.Fatalf("expected note on ch2 and the purge, got %v", got)
	}
	if s.Len() != 1 {
		t.Fatalf("expected only the ch2 event to remain pending, got %d", s.Len())
	}
	if s.pending[0].frame != 50 {
		t.Fatalf("unexpected remaining frame %d", s.pending[0].frame)
	}
}

func TestSchedulerNegativeDelayIsImmediate(t *testing.T) {
	var s Scheduler
	s.Schedule(NoteOn(0, 60, 1), 1000, -25)
	n := 0
	s.ProcessDue(1000, func(ChannelMessage) { n++ })
	if n != 1 {
		t.Fatalf("expected event at the current frame, got %d", n)
	}
}
