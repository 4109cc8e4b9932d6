package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/cwbudde/algo-sfsynth/soundfont"
	"github.com/cwbudde/algo-sfsynth/synth"
)

func newTestSession(capacity int) (*session, *[]synth.Event, *bytes.Buffer) {
	var sent []synth.Event
	var out bytes.Buffer
	s := &session{
		send: func(e synth.Event) bool {
			if len(sent) == capacity {
				return false
			}
			sent = append(sent, e)
			return true
		},
		presets: []soundfont.Preset{{Name: "Grand", Bank: 0, Program: 0}, {Name: "Kit", Bank: 128, Program: 0}},
		out:     &out,
	}
	return s, &sent, &out
}

func TestEvalSendsChannelMessages(t *testing.T) {
	s, sent, _ := newTestSession(100)
	lines := []string{"on 0 60 100", "off 0 60", "cc 1 7 64", "pc 9 5", "bend 2 0", "  "}
	for _, line := range lines {
		if err := s.eval(line); err != nil {
			t.Fatalf("eval(%q): %v", line, err)
		}
	}
	want := []synth.ChannelMessage{
		synth.NoteOn(0, 60, 100),
		synth.NoteOff(0, 60),
		synth.ControlChange(1, 7, 64),
		synth.ProgramChange(9, 5),
		synth.PitchBend(2, 0),
	}
	if len(*sent) != len(want) {
		t.Fatalf("sent %d events, want %d", len(*sent), len(want))
	}
	for i, e := range *sent {
		if m := e.(synth.MIDIEvent); m.Message != want[i] || m.Delay != 0 {
			t.Fatalf("event %d = %+v, want %v", i, m, want[i])
		}
	}
}

func TestEvalErrors(t *testing.T) {
	s, _, _ := newTestSession(100)
	for _, line := range []string{"on 0 60", "on x 60 100", "on 16 60 100", "warp 1"} {
		if err := s.eval(line); err == nil {
			t.Fatalf("eval(%q): expected error", line)
		}
	}
	if err := s.eval("quit"); !errors.Is(err, errQuit) {
		t.Fatalf("quit returned %v", err)
	}
}

func TestPanicResetsEveryChannel(t *testing.T) {
	s, sent, _ := newTestSession(100)
	if err := s.eval("panic"); err != nil {
		t.Fatalf("panic: %v", err)
	}
	if len(*sent) != 32 {
		t.Fatalf("sent %d events, want 32", len(*sent))
	}

	s, _, _ = newTestSession(3)
	if err := s.eval("panic"); err == nil {
		t.Fatalf("expected a queue full error")
	}
}

func TestPresetsAndHelp(t *testing.T) {
	s, _, out := newTestSession(0)
	if err := s.eval("presets"); err != nil {
		t.Fatalf("presets: %v", err)
	}
	if !strings.Contains(out.String(), "128:0   Kit") {
		t.Fatalf("preset listing:\n%s", out.String())
	}
	out.Reset()
	if err := s.eval("help"); err != nil {
		t.Fatalf("help: %v", err)
	}
	if !strings.Contains(out.String(), "bend <ch> <0-16383>") {
		t.Fatalf("help output:\n%s", out.String())
	}
}
