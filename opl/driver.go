// Package opl drives an OPL3-style synthesis chip through the narrow
// register-write contract. It owns the register layout knowledge — operator
// slot offsets, F-number math, patch byte packing — while the chip itself
// stays an opaque, stateful device behind the fmtrack.Chip interface.
package opl

import (
	"errors"
	"fmt"

	"github.com/fmtrack/fmtrack"
)

type channelState struct {
	keyBlock     byte // last block/fnum-high byte, without the key-on bit
	carrierLevel byte // patch carrier keyscale/level byte, before velocity
	loaded       bool
}

// Driver implements fmtrack.Device on top of a raw Chip.
type Driver struct {
	chip     fmtrack.Chip
	channels [fmtrack.MaxChannels]channelState
}

// NewDriver wraps the given chip. The chip handle is required here, at
// construction, instead of being looked up when the first note plays.
func NewDriver(chip fmtrack.Chip) (*Driver, error) {
	if chip == nil {
		return nil, errors.New("opl: driver requires a chip")
	}
	return &Driver{chip: chip}, nil
}

// Reset puts the chip into a known-silent state: extended mode on, rhythm
// mode off, every key released and both pan bits open on every channel.
func (d *Driver) Reset() error {
	if err := d.chip.Reset(); err != nil {
		return fmt.Errorf("opl: chip reset failed: %w", err)
	}
	d.chip.WriteReg(regWaveformEnable, 0x20)
	d.chip.WriteReg(regNewMode, newModeOn)
	d.chip.WriteReg(regFourOpSel, 0x00)
	d.chip.WriteReg(regTremoloRhythm, 0x00)
	for ch := 0; ch < fmtrack.MaxChannels; ch++ {
		d.chip.WriteReg(chanReg(regChanKeyBlock, ch), 0x00)
		d.chip.WriteReg(chanReg(regChanFnumLow, ch), 0x00)
		d.chip.WriteReg(chanReg(regChanFeedback, ch), panBoth)
		d.channels[ch] = channelState{}
	}
	return nil
}

// LoadPatch programs one voice of the patch onto a hardware channel. For a
// dual-voice patch the renderer calls this once per allocated channel with
// voice 0 and 1; a degraded allocation gets voice 0 only.
func (d *Driver) LoadPatch(channel int, patch fmtrack.Patch, voice int) error {
	if channel < 0 || channel >= fmtrack.MaxChannels {
		return fmt.Errorf("opl: channel %d out of range 0-%d", channel, fmtrack.MaxChannels-1)
	}
	if err := patch.Validate(); err != nil {
		return fmt.Errorf("opl: patch %q: %w", patch.Name, err)
	}
	pair := patch.Voice(voice)
	d.writeOperator(channel, 0, pair.Modulator)
	d.writeOperator(channel, 1, pair.Carrier)
	connection := byte(0)
	if pair.Additive {
		connection = 1
	}
	d.chip.WriteReg(chanReg(regChanFeedback, channel), panBoth|byte(pair.Feedback)<<1|connection)
	d.channels[channel].carrierLevel = levelByte(pair.Carrier)
	d.channels[channel].loaded = true
	return nil
}

// NoteOn triggers the channel at the given pitch. Velocity attenuates the
// carrier level, so it scales loudness without touching the modulation
// depth.
func (d *Driver) NoteOn(channel int, pitch, velocity byte) {
	if channel < 0 || channel >= fmtrack.MaxChannels || !d.channels[channel].loaded {
		return
	}
	block, fnum := pitchToFnum(pitch)
	d.chip.WriteReg(opReg(regOpLevel, channel, 1), velocityLevel(d.channels[channel].carrierLevel, velocity))
	keyBlock := byte(block)<<2 | byte(fnum>>8)
	d.channels[channel].keyBlock = keyBlock
	d.chip.WriteReg(chanReg(regChanFnumLow, channel), byte(fnum&0xff))
	d.chip.WriteReg(chanReg(regChanKeyBlock, channel), keyOnBit|keyBlock)
}

// NoteOff releases the channel's key, leaving block and F-number intact so
// the release envelope keeps its pitch.
func (d *Driver) NoteOff(channel int) {
	if channel < 0 || channel >= fmtrack.MaxChannels {
		return
	}
	d.chip.WriteReg(chanReg(regChanKeyBlock, channel), d.channels[channel].keyBlock)
}

// ReadSample pulls one stereo sample from the chip.
func (d *Driver) ReadSample() (left, right int16) {
	return d.chip.ReadSample()
}

func (d *Driver) writeOperator(channel, op int, o fmtrack.Operator) {
	flags := byte(o.Multiplier & 0x0f)
	if o.Tremolo {
		flags |= 0x80
	}
	if o.Vibrato {
		flags |= 0x40
	}
	if o.Sustaining {
		flags |= 0x20
	}
	if o.EnvScale {
		flags |= 0x10
	}
	d.chip.WriteReg(opReg(regOpFlags, channel, op), flags)
	d.chip.WriteReg(opReg(regOpLevel, channel, op), levelByte(o))
	d.chip.WriteReg(opReg(regOpAttack, channel, op), byte(o.Attack&0x0f)<<4|byte(o.Decay&0x0f))
	d.chip.WriteReg(opReg(regOpSustain, channel, op), byte(o.SustainLevel&0x0f)<<4|byte(o.Release&0x0f))
	d.chip.WriteReg(opReg(regOpWaveform, channel, op), byte(o.Waveform&0x07))
}

func levelByte(o fmtrack.Operator) byte {
	return byte(o.KeyScale&0x03)<<6 | byte(o.TotalLevel&0x3f)
}

// velocityLevel adds velocity attenuation to the patch's carrier level byte.
// Full velocity plays the patch as programmed; lower velocities attenuate up
// to 15.75 dB further.
func velocityLevel(base byte, velocity byte) byte {
	extra := (127 - int(velocity)) >> 3
	if extra < 0 {
		extra = 0
	}
	attenuation := int(base&0x3f) + extra
	if attenuation > 0x3f {
		attenuation = 0x3f
	}
	return base&0xc0 | byte(attenuation)
}
