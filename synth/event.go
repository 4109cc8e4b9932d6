package synth

import "fmt"

// Event is anything the core accepts through AddEvent.
type Event interface {
	isEvent()
}

// LoadSampleEvent registers a PCM buffer normalized to [-1,1].
type LoadSampleEvent struct {
	SampleID int
	Data     []float32
}

// SampleParameterEvent registers a sample region under a key/velocity range.
type SampleParameterEvent struct {
	Parameter SampleParameter
	Range     SampleRange
}

// MIDIEvent is a channel message delayed by Delay frames (0 = next buffer).
type MIDIEvent struct {
	Message ChannelMessage
	Delay   int
}

func (LoadSampleEvent) isEvent() {}
func (SampleParameterEvent) isEvent() {}
func (MIDIEvent) isEvent() {}

// MessageKind identifies the channel voice message type.
type MessageKind uint8

const (
	KindNoteOn MessageKind = iota + 1
	KindNoteOff
	KindPitchBend
	KindProgramChange
	KindControlChange
)

func (k MessageKind) String() string {
	switch k {
	case KindNoteOn:
		return "noteOn"
	case KindNoteOff:
		return "noteOff"
	case KindPitchBend:
		return "pitchBend"
	case KindProgramChange:
		return "programChange"
	case KindControlChange:
		return "controlChange"
	default:
		return fmt.Sprintf("MessageKind(%d)", uint8(k))
	}
}

// Controller numbers understood by the core.
const (
	CCBankSelectMSB    = 0
	CCModulation       = 1
	CCDataEntryMSB     = 6
	CCVolume           = 7
	CCPan              = 10
	CCExpression       = 11
	CCBankSelectLSB    = 32
	CCDataEntryLSB     = 38
	CCSustain          = 64
	CCNRPNLSB          = 98
	CCNRPNMSB          = 99
	CCRPNLSB           = 100
	CCRPNMSB           = 101
	CCAllSoundsOff     = 120
	CCResetControllers = 121
	CCAllNotesOff      = 123
)

// ChannelMessage is a decoded MIDI channel voice message.
// Value carries the controller value, program number or 14-bit pitch bend.
type ChannelMessage struct {
	Kind       MessageKind
	Channel    int
	Note       int
	Velocity   int
	Controller int
	Value      int
}

func (m ChannelMessage) String() string {
	switch m.Kind {
	case KindNoteOn:
		return fmt.Sprintf("noteOn ch=%d note=%d vel=%d", m.Channel, m.Note, m.Velocity)
	case KindNoteOff:
		return fmt.Sprintf("noteOff ch=%d note=%d", m.Channel, m.Note)
	case KindControlChange:
		return fmt.Sprintf("cc ch=%d ctrl=%d val=%d", m.Channel, m.Controller, m.Value)
	default:
		return fmt.Sprintf("%s ch=%d val=%d", m.Kind, m.Channel, m.Value)
	}
}

// NoteOn builds a note-on message.
func NoteOn(channel, note, velocity int) ChannelMessage {
	return ChannelMessage{Kind: KindNoteOn, Channel: channel, Note: note, Velocity: velocity}
}

// NoteOff builds a note-off message.
func NoteOff(channel, note int) ChannelMessage {
	return ChannelMessage{Kind: KindNoteOff, Channel: channel, Note: note}
}

// PitchBend builds a pitch bend message; value is 0..16383 with 8192 as center.
func PitchBend(channel, value int) ChannelMessage {
	return ChannelMessage{Kind: KindPitchBend, Channel: channel, Value: value}
}

// ProgramChange builds a program change message.
func ProgramChange(channel, program int) ChannelMessage {
	return ChannelMessage{Kind: KindProgramChange, Channel: channel, Value: program}
}

// ControlChange builds a controller message.
func ControlChange(channel, controller, value int) ChannelMessage {
	return ChannelMessage{Kind: KindControlChange, Channel: channel, Controller: controller, Value: value}
}
