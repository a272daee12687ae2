package fmtrack

import (
	"errors"
	"fmt"
)

type (
	EventKind uint8

	// NoteEvent is one absolute-time note action on a track. Events are
	// immutable once compiled and ordered ascending by Time, with events
	// sharing a timestamp kept in the order they were compiled in (row first,
	// then track, note-off before note-on within a retrigger).
	NoteEvent struct {
		Time     float64 // seconds from the start of the render
		Track    int
		Kind     EventKind
		Pitch    byte
		Velocity byte // meaningful for EventNoteOn only
	}

	// Timeline is the flat, time-ordered event list the renderer consumes,
	// plus the total duration of the pattern in seconds.
	Timeline struct {
		Events   []NoteEvent
		Duration float64
	}
)

const (
	EventNoteOn EventKind = iota
	EventNoteOff
)

// DefaultVelocity is used for grid cells, which carry no velocity of their
// own.
const DefaultVelocity = 100

// CompileTimeline walks the grid row by row and converts cells into note
// events. A NoteOn over a different sounding pitch retriggers: the old pitch
// gets a NoteOff at the same timestamp, emitted first. Sustain and Invalid
// cells never produce events. Repeating the whole pattern is done here, by
// logically concatenating the rows loopCount times, so sustains carry
// correctly across the seams; the seamless-loop path in loop.go is the
// boundary-correct alternative for audio that must loop.
func CompileTimeline(grid Grid, bpm, rowsPerBeat, loopCount int) (Timeline, error) {
	if bpm < 1 {
		return Timeline{}, errors.New("BPM should be > 0")
	}
	if rowsPerBeat < 1 {
		return Timeline{}, errors.New("rows per beat should be > 0")
	}
	if loopCount < 1 {
		return Timeline{}, fmt.Errorf("loop count should be >= 1, got %d", loopCount)
	}
	secondsPerRow := 60 / (float64(bpm) * float64(rowsPerBeat))
	rows := grid.Rows()
	tracks := grid.NumTracks()
	totalRows := rows * loopCount
	type activeNote struct {
		pitch    byte
		sounding bool
	}
	active := make([]activeNote, tracks)
	var events []NoteEvent
	for r := 0; r < totalRows; r++ {
		t := float64(r) * secondsPerRow
		for track := 0; track < tracks; track++ {
			action := ParseCell(grid.Cell(r%rows, track))
			switch action.Kind {
			case CellNoteOn:
				// retrigger, not overlap: the sounding note (same pitch
				// included) is released at this very timestamp, before the
				// new trigger
				if active[track].sounding {
					events = append(events, NoteEvent{Time: t, Track: track, Kind: EventNoteOff, Pitch: active[track].pitch})
				}
				events = append(events, NoteEvent{Time: t, Track: track, Kind: EventNoteOn, Pitch: action.Pitch, Velocity: DefaultVelocity})
				active[track] = activeNote{pitch: action.Pitch, sounding: true}
			case CellNoteOff:
				if active[track].sounding {
					events = append(events, NoteEvent{Time: t, Track: track, Kind: EventNoteOff, Pitch: active[track].pitch})
					active[track] = activeNote{}
				}
			case CellSustain, CellInvalid:
				// no event; sustain keeps ringing, invalid is silently dropped
			}
		}
	}
	return Timeline{Events: events, Duration: float64(totalRows) * secondsPerRow}, nil
}
