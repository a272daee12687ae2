package fmtrack_test

import (
	"testing"

	"github.com/fmtrack/fmtrack"
)

func TestCompileTimelineSustain(t *testing.T) {
	grid := fmtrack.Grid{{"C-4"}, {"---"}, {"---"}, {"OFF"}}
	timeline, err := fmtrack.CompileTimeline(grid, 120, 4, 1)
	if err != nil {
		t.Fatal(err)
	}
	// 120 BPM, 4 rows per beat: 0.125 seconds per row
	want := []fmtrack.NoteEvent{
		{Time: 0, Track: 0, Kind: fmtrack.EventNoteOn, Pitch: 60, Velocity: fmtrack.DefaultVelocity},
		{Time: 0.375, Track: 0, Kind: fmtrack.EventNoteOff, Pitch: 60},
	}
	if len(timeline.Events) != len(want) {
		t.Fatalf("got %d events, want %d: %+v", len(timeline.Events), len(want), timeline.Events)
	}
	for i, ev := range want {
		if timeline.Events[i] != ev {
			t.Errorf("event %d = %+v, want %+v", i, timeline.Events[i], ev)
		}
	}
	if timeline.Duration != 0.5 {
		t.Errorf("duration = %v, want 0.5", timeline.Duration)
	}
}

func TestCompileTimelineRetrigger(t *testing.T) {
	grid := fmtrack.Grid{{"C-4"}, {"D-4"}}
	timeline, err := fmtrack.CompileTimeline(grid, 120, 4, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(timeline.Events) != 3 {
		t.Fatalf("got %d events, want 3: %+v", len(timeline.Events), timeline.Events)
	}
	off, on := timeline.Events[1], timeline.Events[2]
	if off.Kind != fmtrack.EventNoteOff || off.Pitch != 60 {
		t.Errorf("retrigger should release the old pitch first, got %+v", off)
	}
	if on.Kind != fmtrack.EventNoteOn || on.Pitch != 62 {
		t.Errorf("retrigger should then trigger the new pitch, got %+v", on)
	}
	if off.Time != on.Time {
		t.Errorf("release and trigger should share the timestamp: %v vs %v", off.Time, on.Time)
	}
}

func TestCompileTimelineSamePitchRetriggers(t *testing.T) {
	grid := fmtrack.Grid{{"C-4"}, {"C-4"}}
	timeline, err := fmtrack.CompileTimeline(grid, 120, 4, 1)
	if err != nil {
		t.Fatal(err)
	}
	// same pitch is a retrigger, not a sustain
	if len(timeline.Events) != 3 {
		t.Fatalf("got %d events, want 3: %+v", len(timeline.Events), timeline.Events)
	}
	if timeline.Events[1].Kind != fmtrack.EventNoteOff {
		t.Errorf("expected a release before the repeated trigger, got %+v", timeline.Events[1])
	}
}

func TestCompileTimelineNoteOffWithoutNote(t *testing.T) {
	grid := fmtrack.Grid{{"OFF"}, {"OFF"}}
	timeline, err := fmtrack.CompileTimeline(grid, 120, 4, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(timeline.Events) != 0 {
		t.Fatalf("releasing silence should produce no events, got %+v", timeline.Events)
	}
}

func TestCompileTimelineDuration(t *testing.T) {
	grid := make(fmtrack.Grid, 64)
	for i := range grid {
		grid[i] = []string{"---"}
	}
	timeline, err := fmtrack.CompileTimeline(grid, 120, 4, 1)
	if err != nil {
		t.Fatal(err)
	}
	if timeline.Duration != 8.0 {
		t.Errorf("64 rows at 120 BPM should last exactly 8 seconds, got %v", timeline.Duration)
	}
	if len(timeline.Events) != 0 {
		t.Errorf("sustain-only grid should produce no events, got %d", len(timeline.Events))
	}
}

func TestCompileTimelineLoopCarriesSustain(t *testing.T) {
	grid := fmtrack.Grid{{"C-4"}, {"---"}}
	timeline, err := fmtrack.CompileTimeline(grid, 120, 4, 2)
	if err != nil {
		t.Fatal(err)
	}
	// the note sustains across the seam, then the repeated row 0 retriggers
	want := []fmtrack.NoteEvent{
		{Time: 0, Track: 0, Kind: fmtrack.EventNoteOn, Pitch: 60, Velocity: fmtrack.DefaultVelocity},
		{Time: 0.25, Track: 0, Kind: fmtrack.EventNoteOff, Pitch: 60},
		{Time: 0.25, Track: 0, Kind: fmtrack.EventNoteOn, Pitch: 60, Velocity: fmtrack.DefaultVelocity},
	}
	if len(timeline.Events) != len(want) {
		t.Fatalf("got %d events, want %d: %+v", len(timeline.Events), len(want), timeline.Events)
	}
	for i, ev := range want {
		if timeline.Events[i] != ev {
			t.Errorf("event %d = %+v, want %+v", i, timeline.Events[i], ev)
		}
	}
	if timeline.Duration != 0.5 {
		t.Errorf("duration = %v, want 0.5", timeline.Duration)
	}
}

func TestCompileTimelineTracksIndependent(t *testing.T) {
	grid := fmtrack.Grid{
		{"C-4", "E-4"},
		{"OFF", "---"},
		{"---", "OFF"},
	}
	timeline, err := fmtrack.CompileTimeline(grid, 120, 4, 1)
	if err != nil {
		t.Fatal(err)
	}
	want := []fmtrack.NoteEvent{
		{Time: 0, Track: 0, Kind: fmtrack.EventNoteOn, Pitch: 60, Velocity: fmtrack.DefaultVelocity},
		{Time: 0, Track: 1, Kind: fmtrack.EventNoteOn, Pitch: 64, Velocity: fmtrack.DefaultVelocity},
		{Time: 0.125, Track: 0, Kind: fmtrack.EventNoteOff, Pitch: 60},
		{Time: 0.25, Track: 1, Kind: fmtrack.EventNoteOff, Pitch: 64},
	}
	if len(timeline.Events) != len(want) {
		t.Fatalf("got %d events, want %d: %+v", len(timeline.Events), len(want), timeline.Events)
	}
	for i, ev := range want {
		if timeline.Events[i] != ev {
			t.Errorf("event %d = %+v, want %+v", i, timeline.Events[i], ev)
		}
	}
}

func TestCompileTimelineInvalidArguments(t *testing.T) {
	grid := fmtrack.Grid{{"---"}}
	if _, err := fmtrack.CompileTimeline(grid, 0, 4, 1); err == nil {
		t.Error("zero BPM should be rejected")
	}
	if _, err := fmtrack.CompileTimeline(grid, 120, 0, 1); err == nil {
		t.Error("zero rows per beat should be rejected")
	}
	if _, err := fmtrack.CompileTimeline(grid, 120, 4, 0); err == nil {
		t.Error("zero loop count should be rejected")
	}
}
