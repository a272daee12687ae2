package fmtrack

import (
	"errors"
	"fmt"
)

type (
	// Song is a complete renderable unit: a pattern grid, the per-track
	// instrument patches and the playback speed. BPM is an integer as it
	// offers already quite much granularity for controlling the speed.
	Song struct {
		BPM         int
		RowsPerBeat int
		Grid        Grid    `yaml:",flow"`
		Patches     []Patch // one per track; missing entries fall back to DefaultPatch
	}

	// Grid is the pattern as rows × tracks of cell strings. Cells outside the
	// grid read as "" (sustain), so ragged rows are not an error; this mirrors
	// the convention that anything out of range just holds the last note.
	Grid [][]string
)

// DefaultRowsPerBeat is the sixteenth-note resolution the grid editor uses.
const DefaultRowsPerBeat = 4

// Rows returns the number of rows (time steps) in the grid.
func (g Grid) Rows() int { return len(g) }

// NumTracks returns the number of tracks, i.e. the widest row of the grid.
func (g Grid) NumTracks() int {
	tracks := 0
	for _, row := range g {
		if len(row) > tracks {
			tracks = len(row)
		}
	}
	return tracks
}

// Cell returns the cell at the given row and track, or "" if the index is
// out of range.
func (g Grid) Cell(row, track int) string {
	if row < 0 || row >= len(g) || track < 0 || track >= len(g[row]) {
		return ""
	}
	return g[row][track]
}

// Copy makes a deep copy of the Grid.
func (g Grid) Copy() Grid {
	ret := make(Grid, len(g))
	for i, row := range g {
		newRow := make([]string, len(row))
		copy(newRow, row)
		ret[i] = newRow
	}
	return ret
}

// Copy makes a deep copy of a Song.
func (s *Song) Copy() Song {
	patches := make([]Patch, len(s.Patches))
	for i, p := range s.Patches {
		patches[i] = p.Copy()
	}
	return Song{BPM: s.BPM, RowsPerBeat: s.RowsPerBeat, Grid: s.Grid.Copy(), Patches: patches}
}

// SecondsPerRow returns the duration of one grid row, or 0 if the song speed
// is not set.
func (s *Song) SecondsPerRow() float64 {
	if divisor := s.BPM * s.rowsPerBeat(); divisor > 0 {
		return 60 / float64(divisor)
	}
	return 0
}

func (s *Song) rowsPerBeat() int {
	if s.RowsPerBeat > 0 {
		return s.RowsPerBeat
	}
	return DefaultRowsPerBeat
}

// PatchForTrack returns the patch assigned to a track, falling back to
// DefaultPatch when the track has none.
func (s *Song) PatchForTrack(track int) Patch {
	if track < 0 || track >= len(s.Patches) {
		return DefaultPatch()
	}
	return s.Patches[track]
}

// Validate checks if the Song looks renderable: positive BPM and at least one
// track. An all-sustain grid is fine; silence is a legitimate render.
func (s *Song) Validate() error {
	if s.BPM < 1 {
		return errors.New("BPM should be > 0")
	}
	if s.Grid.Rows() == 0 {
		return errors.New("song grid contains no rows")
	}
	if s.Grid.NumTracks() == 0 {
		return errors.New("song grid contains no tracks")
	}
	for i, p := range s.Patches {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("patch %d (%q): %w", i, p.Name, err)
		}
	}
	return nil
}

// Timeline compiles the song grid into a Timeline, repeating the whole
// pattern loopCount times. See CompileTimeline.
func (s *Song) Timeline(loopCount int) (Timeline, error) {
	return CompileTimeline(s.Grid, s.BPM, s.rowsPerBeat(), loopCount)
}
