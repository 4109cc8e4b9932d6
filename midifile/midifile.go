// Package midifile converts Standard MIDI Files and live MIDI messages into
// synth events.
package midifile

import (
	"fmt"
	"io"
	"math"
	"os"
	"sort"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/cwbudde/algo-sfsynth/synth"
)

// FromMessage converts a channel voice message. It reports false for
// messages the synth does not handle (aftertouch, system messages).
func FromMessage(m midi.Message, delay int) (synth.MIDIEvent, bool) {
	var ch, key, vel, ctl, val uint8
	var rel int16
	var abs uint16

	var msg synth.ChannelMessage
	switch {
	case m.GetNoteStart(&ch, &key, &vel):
		msg = synth.NoteOn(int(ch), int(key), int(vel))
	case m.GetNoteEnd(&ch, &key):
		msg = synth.NoteOff(int(ch), int(key))
	case m.GetControlChange(&ch, &ctl, &val):
		msg = synth.ControlChange(int(ch), int(ctl), int(val))
	case m.GetPitchBend(&ch, &rel, &abs):
		msg = synth.PitchBend(int(ch), int(abs))
	case m.GetProgramChange(&ch, &val):
		msg = synth.ProgramChange(int(ch), int(val))
	default:
		return synth.MIDIEvent{}, false
	}
	return synth.MIDIEvent{Message: msg, Delay: delay}, true
}

// Read decodes an SMF and returns its channel events with delays in frames
// at sampleRate, following every tempo change. Events are ordered by time;
// events at the same time keep their track order.
func Read(r io.Reader, sampleRate int) ([]synth.MIDIEvent, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be > 0")
	}
	var events []synth.MIDIEvent
	err := smf.ReadTracksFrom(r).Do(func(te smf.TrackEvent) {
		if !te.Message.IsPlayable() {
			return
		}
		frame := int(math.Round(float64(te.AbsMicroSeconds) * float64(sampleRate) / 1e6))
		if e, ok := FromMessage(midi.Message(te.Message), frame); ok {
			events = append(events, e)
		}
	}).Error()
	if err != nil {
		return nil, fmt.Errorf("read smf: %w", err)
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].Delay < events[j].Delay })
	return events, nil
}

// ReadFile is Read on a file path.
func ReadFile(path string, sampleRate int) ([]synth.MIDIEvent, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	events, err := Read(f, sampleRate)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return events, nil
}
