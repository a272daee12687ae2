package opl_test

import (
	"testing"

	"github.com/fmtrack/fmtrack"
	"github.com/fmtrack/fmtrack/opl"
)

// fakeChip records register writes so tests can assert the exact bytes the
// driver programs.
type fakeChip struct {
	resets int
	regs   map[uint16]byte
	order  []uint16
}

func (c *fakeChip) Reset() error {
	c.resets++
	c.regs = map[uint16]byte{}
	c.order = nil
	return nil
}

func (c *fakeChip) WriteReg(reg uint16, value byte) {
	if c.regs == nil {
		c.regs = map[uint16]byte{}
	}
	c.regs[reg] = value
	c.order = append(c.order, reg)
}

func (c *fakeChip) ReadSample() (left, right int16) { return 0, 0 }

func newTestDriver(t *testing.T) (*opl.Driver, *fakeChip) {
	t.Helper()
	chip := &fakeChip{}
	d, err := opl.NewDriver(chip)
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Reset(); err != nil {
		t.Fatal(err)
	}
	return d, chip
}

func TestNewDriverRequiresChip(t *testing.T) {
	if _, err := opl.NewDriver(nil); err == nil {
		t.Fatal("expected an error for a nil chip")
	}
}

func TestDriverReset(t *testing.T) {
	_, chip := newTestDriver(t)
	if chip.resets != 1 {
		t.Fatalf("chip reset %d times, want 1", chip.resets)
	}
	if chip.regs[0x105] != 0x01 {
		t.Error("extended mode was not enabled")
	}
	if chip.regs[0x001] != 0x20 {
		t.Error("waveform select was not enabled")
	}
	if v, ok := chip.regs[0x0bd]; !ok || v != 0x00 {
		t.Error("rhythm mode was not cleared")
	}
	// every channel in both banks gets keyed off with both pan bits open
	for _, reg := range []uint16{0x0b0, 0x0b8, 0x1b0, 0x1b8} {
		if v, ok := chip.regs[reg]; !ok || v != 0x00 {
			t.Errorf("key/block register %#x = %#x, want 0", reg, v)
		}
	}
	for _, reg := range []uint16{0x0c0, 0x1c8} {
		if chip.regs[reg] != 0x30 {
			t.Errorf("feedback register %#x = %#x, want pan bits only", reg, chip.regs[reg])
		}
	}
}

func TestLoadPatchRegisterPacking(t *testing.T) {
	d, chip := newTestDriver(t)
	if err := d.LoadPatch(0, fmtrack.DefaultPatch(), 0); err != nil {
		t.Fatal(err)
	}
	want := map[uint16]byte{
		0x20: 0x21, // modulator: sustaining, mult 1
		0x23: 0x21, // carrier: sustaining, mult 1
		0x40: 24,   // modulator level
		0x43: 0,    // carrier level
		0x60: 0xf4, // modulator attack 15, decay 4
		0x63: 0xf3, // carrier attack 15, decay 3
		0x80: 0x47, // modulator sustain 4, release 7
		0x83: 0x27, // carrier sustain 2, release 7
		0xe0: 0,    // sine
		0xe3: 0,
		0xc0: 0x36, // pan both, feedback 3, FM connection
	}
	for reg, value := range want {
		if chip.regs[reg] != value {
			t.Errorf("register %#x = %#x, want %#x", reg, chip.regs[reg], value)
		}
	}
}

func TestLoadPatchSecondBank(t *testing.T) {
	d, chip := newTestDriver(t)
	if err := d.LoadPatch(9, fmtrack.DefaultPatch(), 0); err != nil {
		t.Fatal(err)
	}
	// channel 9 is channel 0 of the second register bank
	if chip.regs[0x120] != 0x21 {
		t.Errorf("second bank modulator flags = %#x, want 0x21", chip.regs[0x120])
	}
	if chip.regs[0x1c0] != 0x36 {
		t.Errorf("second bank feedback register = %#x, want 0x36", chip.regs[0x1c0])
	}
}

func TestLoadPatchOperatorSlots(t *testing.T) {
	d, chip := newTestDriver(t)
	// channel 3 starts the second slot group, at operator offset 8
	if err := d.LoadPatch(3, fmtrack.DefaultPatch(), 0); err != nil {
		t.Fatal(err)
	}
	if chip.regs[0x28] != 0x21 || chip.regs[0x2b] != 0x21 {
		t.Errorf("channel 3 operator flags at %#x/%#x, got %#x/%#x",
			0x28, 0x2b, chip.regs[0x28], chip.regs[0x2b])
	}
}

func TestLoadPatchErrors(t *testing.T) {
	d, _ := newTestDriver(t)
	if err := d.LoadPatch(fmtrack.MaxChannels, fmtrack.DefaultPatch(), 0); err == nil {
		t.Error("out-of-range channel should be rejected")
	}
	bad := fmtrack.DefaultPatch()
	bad.Voices[0].Feedback = 8
	if err := d.LoadPatch(0, bad, 0); err == nil {
		t.Error("invalid patch should be rejected")
	}
}

func TestNoteOnA440(t *testing.T) {
	d, chip := newTestDriver(t)
	if err := d.LoadPatch(0, fmtrack.DefaultPatch(), 0); err != nil {
		t.Fatal(err)
	}
	d.NoteOn(0, 69, 127)
	// 440 Hz lands on F-number 580 in block 4
	if chip.regs[0xa0] != 0x44 {
		t.Errorf("fnum low = %#x, want 0x44", chip.regs[0xa0])
	}
	if chip.regs[0xb0] != 0x32 {
		t.Errorf("key/block = %#x, want key on, block 4, fnum high 2", chip.regs[0xb0])
	}
	d.NoteOff(0)
	if chip.regs[0xb0] != 0x12 {
		t.Errorf("key/block after release = %#x, want key bit cleared and pitch kept", chip.regs[0xb0])
	}
}

func TestNoteOnHigherPitchHigherFnum(t *testing.T) {
	d, chip := newTestDriver(t)
	if err := d.LoadPatch(0, fmtrack.DefaultPatch(), 0); err != nil {
		t.Fatal(err)
	}
	read := func(pitch byte) (block, fnum int) {
		d.NoteOn(0, pitch, 127)
		kb := chip.regs[0xb0]
		return int(kb >> 2 & 0x07), int(kb&0x03)<<8 | int(chip.regs[0xa0])
	}
	prevBlock, prevFnum := read(48)
	for pitch := byte(49); pitch <= 96; pitch++ {
		block, fnum := read(pitch)
		if block < prevBlock {
			t.Fatalf("pitch %d: block %d dropped below %d", pitch, block, prevBlock)
		}
		if block == prevBlock && fnum <= prevFnum {
			t.Fatalf("pitch %d: fnum %d did not rise within block %d", pitch, fnum, block)
		}
		prevBlock, prevFnum = block, fnum
	}
}

func TestNoteOnVelocityAttenuation(t *testing.T) {
	d, chip := newTestDriver(t)
	if err := d.LoadPatch(0, fmtrack.DefaultPatch(), 0); err != nil {
		t.Fatal(err)
	}
	d.NoteOn(0, 60, 127)
	if chip.regs[0x43] != 0 {
		t.Errorf("full velocity carrier level = %#x, want the patch level", chip.regs[0x43])
	}
	d.NoteOn(0, 60, 0)
	if chip.regs[0x43] != 15 {
		t.Errorf("zero velocity carrier level = %d, want 15", chip.regs[0x43])
	}
	// key scale bits survive, attenuation clamps at the register maximum
	loud := fmtrack.DefaultPatch()
	loud.Voices[0].Carrier.KeyScale = 2
	loud.Voices[0].Carrier.TotalLevel = 60
	if err := d.LoadPatch(1, loud, 0); err != nil {
		t.Fatal(err)
	}
	d.NoteOn(1, 60, 0)
	if chip.regs[0x44] != 0x80|0x3f {
		t.Errorf("carrier level = %#x, want key scale kept and attenuation clamped", chip.regs[0x44])
	}
}

func TestNoteOnUnloadedChannelIsNoop(t *testing.T) {
	chip := &fakeChip{}
	d, err := opl.NewDriver(chip)
	if err != nil {
		t.Fatal(err)
	}
	d.NoteOn(0, 60, 100)
	d.NoteOff(5)
	d.NoteOn(-1, 60, 100)
	d.NoteOn(fmtrack.MaxChannels, 60, 100)
	if len(chip.order) != 1 {
		// NoteOff on an in-range channel writes the cached key/block byte
		t.Fatalf("unexpected register writes: %v", chip.order)
	}
}
