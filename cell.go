package fmtrack

import (
	"strconv"
	"strings"
)

// CellKind enumerates the four things a tracker cell can mean. Sustain is
// "keep the previous note ringing" and must never be confused with silence;
// Invalid is anything unparseable and is silently ignored by every consumer.
type CellKind uint8

const (
	CellSustain CellKind = iota
	CellNoteOff
	CellNoteOn
	CellInvalid
)

func (k CellKind) String() string {
	switch k {
	case CellSustain:
		return "sustain"
	case CellNoteOff:
		return "noteoff"
	case CellNoteOn:
		return "noteon"
	}
	return "invalid"
}

// CellAction is the single decision table for cell contents: both the string
// form used by the grid/export path and the numeric form used by the legacy
// playback path normalize to it, so offline renders and live playback can
// never disagree about what a cell means.
type CellAction struct {
	Kind  CellKind
	Pitch byte // valid only when Kind == CellNoteOn
}

// ParseCell maps the string form of a cell to a CellAction. "---", empty and
// whitespace-only cells sustain; "OFF" (any case) releases; valid note names
// trigger; everything else is Invalid. Never panics, for any input.
func ParseCell(cell string) CellAction {
	cell = strings.TrimSpace(cell)
	if cell == "" || cell == "---" {
		return CellAction{Kind: CellSustain}
	}
	if strings.EqualFold(cell, "OFF") {
		return CellAction{Kind: CellNoteOff}
	}
	if pitch, ok := ParseNote(cell); ok {
		return CellAction{Kind: CellNoteOn, Pitch: pitch}
	}
	return CellAction{Kind: CellInvalid}
}

// NumericCell maps the numeric cell form to a CellAction: nil sustains, -1
// releases, 0..127 triggers that pitch and anything else is Invalid.
func NumericCell(value *int) CellAction {
	switch {
	case value == nil:
		return CellAction{Kind: CellSustain}
	case *value == -1:
		return CellAction{Kind: CellNoteOff}
	case *value >= 0 && *value <= 127:
		return CellAction{Kind: CellNoteOn, Pitch: byte(*value)}
	}
	return CellAction{Kind: CellInvalid}
}

var noteSemitones = map[byte]int{'C': 0, 'D': 2, 'E': 4, 'F': 5, 'G': 7, 'A': 9, 'B': 11}

// ParseNote parses a note name such as "C-4", "C#4", "Cs4" or "A5" into a
// pitch number. The grammar is a letter A-G, an optional sharp ('#' or 's'),
// an optional dash separator and an integer octave; pitch is
// (octave+1)*12 + semitone + sharp. There are no flats in this form. Returns
// false for anything outside the grammar or outside pitch range 0..127.
func ParseNote(name string) (pitch byte, ok bool) {
	name = strings.ToUpper(strings.TrimSpace(name))
	if name == "" {
		return 0, false
	}
	semitone, ok := noteSemitones[name[0]]
	if !ok {
		return 0, false
	}
	rest := name[1:]
	if len(rest) > 0 && (rest[0] == '#' || rest[0] == 'S') {
		semitone++
		rest = rest[1:]
	}
	if len(rest) > 0 && rest[0] == '-' {
		rest = rest[1:]
	}
	octave, err := strconv.Atoi(rest)
	if err != nil {
		return 0, false
	}
	p := (octave+1)*12 + semitone
	if p < 0 || p > 127 {
		return 0, false
	}
	return byte(p), true
}
