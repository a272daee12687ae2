package fmtrack

import (
	"errors"
	"fmt"
	"io"
	"math"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

const midiTicksPerQuarter = 960

// SMF converts the timeline into a single-track Standard MIDI File at the
// given tempo. Tracks map to MIDI channels modulo 16. The export is a second,
// externally checkable serialization of the compiled timeline; it carries no
// patch information.
func (tl Timeline) SMF(bpm int) (*smf.SMF, error) {
	if bpm < 1 {
		return nil, errors.New("BPM should be > 0")
	}
	ticksAt := func(t float64) uint32 {
		return uint32(math.Round(t * float64(bpm) / 60 * midiTicksPerQuarter))
	}
	s := smf.New()
	s.TimeFormat = smf.MetricTicks(midiTicksPerQuarter)
	var tr smf.Track
	tr.Add(0, smf.MetaTempo(float64(bpm)))
	prev := uint32(0)
	for _, ev := range tl.Events {
		ticks := ticksAt(ev.Time)
		ch := uint8(ev.Track % 16)
		var msg midi.Message
		switch ev.Kind {
		case EventNoteOn:
			msg = midi.NoteOn(ch, ev.Pitch, ev.Velocity)
		case EventNoteOff:
			msg = midi.NoteOff(ch, ev.Pitch)
		default:
			continue
		}
		tr.Add(ticks-prev, msg)
		prev = ticks
	}
	end := ticksAt(tl.Duration)
	if end < prev {
		end = prev
	}
	tr.Close(end - prev)
	if err := s.Add(tr); err != nil {
		return nil, fmt.Errorf("adding SMF track failed: %w", err)
	}
	return s, nil
}

// WriteSMF writes the timeline to w as a Standard MIDI File.
func (tl Timeline) WriteSMF(w io.Writer, bpm int) error {
	s, err := tl.SMF(bpm)
	if err != nil {
		return err
	}
	if _, err := s.WriteTo(w); err != nil {
		return fmt.Errorf("writing SMF failed: %w", err)
	}
	return nil
}
