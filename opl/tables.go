package opl

import "math"

// Register map of the chip. Channels 0-8 live in the first register bank,
// channels 9-17 in the second (address | 0x100).
const (
	regWaveformEnable = 0x001
	regTremoloRhythm  = 0x0bd
	regFourOpSel      = 0x104
	regNewMode        = 0x105

	regOpFlags    = 0x20 // tremolo/vibrato/sustaining/envscale/mult
	regOpLevel    = 0x40 // keyscale/total level
	regOpAttack   = 0x60 // attack/decay
	regOpSustain  = 0x80 // sustain level/release
	regOpWaveform = 0xe0

	regChanFnumLow  = 0xa0
	regChanKeyBlock = 0xb0 // keyon/block/fnum high
	regChanFeedback = 0xc0 // pan/feedback/connection
)

const (
	keyOnBit  = 0x20
	panBoth   = 0x30
	newModeOn = 0x01
)

// opSlotOffsets maps a channel within a bank to its first operator slot; the
// second operator of the pair is always three slots up.
var opSlotOffsets = [9]uint16{0x00, 0x01, 0x02, 0x08, 0x09, 0x0a, 0x10, 0x11, 0x12}

func bankBit(channel int) uint16 {
	if channel >= 9 {
		return 0x100
	}
	return 0
}

// chanReg returns the register address of a per-channel register.
func chanReg(base uint16, channel int) uint16 {
	return bankBit(channel) | (base + uint16(channel%9))
}

// opReg returns the register address of a per-operator register; op is 0 for
// the modulator, 1 for the carrier.
func opReg(base uint16, channel, op int) uint16 {
	return bankBit(channel) | (base + opSlotOffsets[channel%9] + uint16(op)*3)
}

// fnumScale is 2^20 / SampleRate: the chip's phase accumulator resolution
// over its native rate.
const fnumScale = float64(1<<20) / 49716.0

// pitchToFnum converts a pitch number to the chip's block/F-number pair. The
// chip's frequency formula is freq = fnum * rate / 2^(20-block); the lowest
// block that fits the F-number in 10 bits is chosen for maximal frequency
// resolution.
func pitchToFnum(pitch byte) (block, fnum int) {
	freq := 440 * math.Pow(2, (float64(pitch)-69)/12)
	f := freq * fnumScale
	for f > 1023 && block < 7 {
		f /= 2
		block++
	}
	fnum = int(math.Round(f))
	if fnum > 1023 {
		fnum = 1023
	}
	return block, fnum
}
