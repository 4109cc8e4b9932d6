package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	"github.com/cwbudde/algo-sfsynth/soundfont"
	"github.com/cwbudde/algo-sfsynth/synth"
)

// errQuit ends the REPL.
var errQuit = errors.New("quit")

type session struct {
	send    func(synth.Event) bool
	presets []soundfont.Preset
	out     io.Writer
}

type command struct {
	name  string
	usage string
	arity int
	run   func(*session, []int) error
}

var commands []command

func init() {
	commands = []command{
		{"on", "on <ch> <note> <vel>", 3, func(s *session, a []int) error { return s.midi(synth.NoteOn(a[0], a[1], a[2])) }},
		{"off", "off <ch> <note>", 2, func(s *session, a []int) error { return s.midi(synth.NoteOff(a[0], a[1])) }},
		{"cc", "cc <ch> <controller> <value>", 3, func(s *session, a []int) error { return s.midi(synth.ControlChange(a[0], a[1], a[2])) }},
		{"pc", "pc <ch> <program>", 2, func(s *session, a []int) error { return s.midi(synth.ProgramChange(a[0], a[1])) }},
		{"bend", "bend <ch> <0-16383>", 2, func(s *session, a []int) error { return s.midi(synth.PitchBend(a[0], a[1])) }},
		{"panic", "panic", 0, panicCommand},
		{"presets", "presets", 0, presetsCommand},
		{"help", "help", 0, helpCommand},
		{"quit", "quit", 0, func(*session, []int) error { return errQuit }},
	}
}

func (s *session) midi(m synth.ChannelMessage) error {
	if !s.send(synth.MIDIEvent{Message: m}) {
		return errors.New("event queue full")
	}
	return nil
}

// eval runs one input line.
func (s *session) eval(line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	for _, cmd := range commands {
		if fields[0] != cmd.name {
			continue
		}
		if len(fields)-1 != cmd.arity {
			return fmt.Errorf("%s: wrong number of arguments: want %d, got %d (usage: %s)",
				cmd.name, cmd.arity, len(fields)-1, cmd.usage)
		}
		args := make([]int, cmd.arity)
		for i, f := range fields[1:] {
			v, err := strconv.Atoi(f)
			if err != nil {
				return fmt.Errorf("%s: argument %d: %w", cmd.name, i+1, err)
			}
			args[i] = v
		}
		if len(args) > 0 && (args[0] < 0 || args[0] > 15) {
			return fmt.Errorf("%s: channel %d out of range 0-15", cmd.name, args[0])
		}
		return cmd.run(s, args)
	}
	return fmt.Errorf("unknown command: %s (try help)", fields[0])
}

func panicCommand(s *session, _ []int) error {
	for ch := range 16 {
		if err := s.midi(synth.ControlChange(ch, synth.CCAllSoundsOff, 0)); err != nil {
			return err
		}
		if err := s.midi(synth.ControlChange(ch, synth.CCResetControllers, 0)); err != nil {
			return err
		}
	}
	return nil
}

func presetsCommand(s *session, _ []int) error {
	if len(s.presets) == 0 {
		fmt.Fprintln(s.out, "no SoundFont presets loaded")
		return nil
	}
	for _, p := range s.presets {
		fmt.Fprintf(s.out, "%3d:%-3d %s\n", p.Bank, p.Program, p.Name)
	}
	return nil
}

func helpCommand(s *session, _ []int) error {
	for _, cmd := range commands {
		fmt.Fprintln(s.out, cmd.usage)
	}
	return nil
}

func repl(s *session) error {
	rl, err := readline.New("> ")
	if err != nil {
		return err
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err == io.EOF {
			return err
		}
		if err != nil {
			fmt.Fprintln(s.out, err)
			continue
		}
		if err := s.eval(line); errors.Is(err, errQuit) {
			return nil
		} else if err != nil {
			fmt.Fprintln(s.out, err)
		}
	}
}
