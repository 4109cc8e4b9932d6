package synth

// dispatch routes a due channel message to the core.
func (c *Core) dispatch(m ChannelMessage) {
	if m.Channel < 0 || m.Channel >= NumChannels {
		c.logger.Warn("dropping message for invalid channel", "msg", m.String())
		return
	}
	switch m.Kind {
	case KindNoteOn:
		// Running-status style note-on with zero velocity is a note-off.
		if m.Velocity == 0 {
			c.NoteOff(m.Channel, m.Note)
			return
		}
		c.NoteOn(m.Channel, m.Note, m.Velocity)
	case KindNoteOff:
		c.NoteOff(m.Channel, m.Note)
	case KindPitchBend:
		c.PitchBend(m.Channel, m.Value)
	case KindProgramChange:
		c.ProgramChange(m.Channel, m.Value)
	case KindControlChange:
		c.ControlChange(m.Channel, m.Controller, m.Value)
	default:
		c.logger.Debug("ignoring message", "kind", m.Kind.String())
	}
}

// ControlChange applies a controller message.
func (c *Core) ControlChange(channel, controller, value int) {
	st := c.channel(channel)
	if st == nil {
		return
	}
	switch controller {
	case CCNRPNMSB, CCNRPNLSB:
		// Data entry after an NRPN must not reach the RPN handler.
		st.rpn = nil
	case CCRPNMSB:
		if value == 127 {
			st.rpn = nil
			return
		}
		r := st.rpnOrNew()
		r.msb, r.hasMSB = value, true
	case CCRPNLSB:
		if value == 127 {
			st.rpn = nil
			return
		}
		r := st.rpnOrNew()
		r.lsb, r.hasLSB = value, true
	case CCDataEntryMSB:
		r := st.rpnOrNew()
		r.dataMSB = value
		// Pitch bend sensitivity is applied without waiting for data LSB.
		if r.hasLSB && r.lsb == 0 && (!r.hasMSB || r.msb == 0) {
			st.bendSensitivity = float64(value)
		}
	case CCDataEntryLSB:
		st.rpnOrNew().dataLSB = value
	case CCVolume:
		st.volume = float64(value) / 127
	case CCExpression:
		st.expression = float64(value) / 127
	case CCPan:
		st.pan = (float64(value)/127 - 0.5) * 2
	case CCModulation:
		st.modulation = float64(value) / 127
	case CCSustain:
		c.setHold(st, value >= holdThreshold)
	case CCBankSelectMSB:
		st.bankMSB, st.hasBankMSB = value, true
	case CCBankSelectLSB:
		if st.hasBankMSB {
			st.bank = st.bankMSB<<7 + value
		}
	case CCAllSoundsOff:
		c.AllSoundsOff(channel)
	case CCAllNotesOff:
		c.AllNotesOff(channel)
	case CCResetControllers:
		st.resetControllers()
	default:
		c.logger.Debug("ignoring controller", "channel", channel, "controller", controller, "value", value)
	}
}

func (st *channelState) rpnOrNew() *rpnState {
	if st.rpn == nil {
		st.rpn = &rpnState{}
	}
	return st.rpn
}

func (c *Core) setHold(st *channelState, down bool) {
	st.hold = down
	if down {
		return
	}
	st.forEachVoice(func(v *Voice) {
		if v.holdPending {
			v.NoteOff()
		}
	})
}
