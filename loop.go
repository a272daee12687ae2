package fmtrack

import (
	"context"
	"fmt"
	"math"
)

// DefaultContextRows is the default lead-in/lead-out length for seamless
// renders. Larger values give the chip more time to reach steady state at
// the cost of render time, linearly.
const DefaultContextRows = 8

// MaxContextRows bounds the tunable range; beyond this the extra context
// only burns render time.
const MaxContextRows = 16

// Extended builds the context-extended grid: the last contextRows rows, then
// the whole grid, then the first contextRows rows. When contextRows is at
// least the grid length the borrowed context wraps around and repeats rows;
// that is redundant but valid.
func (g Grid) Extended(contextRows int) Grid {
	rows := g.Rows()
	if rows == 0 {
		return g.Copy()
	}
	ret := make(Grid, 0, rows+2*contextRows)
	for i := rows - contextRows; i < rows; i++ {
		src := ((i % rows) + rows) % rows
		row := make([]string, len(g[src]))
		copy(row, g[src])
		ret = append(ret, row)
	}
	ret = append(ret, g.Copy()...)
	for i := 0; i < contextRows; i++ {
		src := i % rows
		row := make([]string, len(g[src]))
		copy(row, g[src])
		ret = append(ret, row)
	}
	return ret
}

// RenderSeamlessLoop produces audio that loops without an audible seam.
// Rendering the pattern in isolation cannot do that: the chip's envelopes at
// the last row believe the song is ending while the first row attacks from
// silence. Instead the context-extended grid is rendered as one unbroken
// timeline, so chip state carries naturally across every row boundary, and
// exactly the core region is sliced back out. Every sample of the slice was
// generated with the same preceding-state history it would have during real
// continuous playback, so the slice repeated forever is indistinguishable
// from the chip actually playing forever.
func (r *Renderer) RenderSeamlessLoop(ctx context.Context, song *Song, contextRows, loopCount int) (*RenderBuffer, error) {
	if contextRows < 1 || contextRows > MaxContextRows {
		return nil, fmt.Errorf("context rows %d out of range 1-%d", contextRows, MaxContextRows)
	}
	if loopCount < 1 {
		return nil, fmt.Errorf("loop count should be >= 1, got %d", loopCount)
	}
	rows := song.Grid.Rows()
	if rows == 0 {
		return nil, fmt.Errorf("cannot loop an empty grid")
	}
	extended := *song
	extended.Grid = song.Grid.Extended(contextRows)
	timeline, err := extended.Timeline(1)
	if err != nil {
		return nil, err
	}
	full, err := r.Render(ctx, &extended, timeline)
	if err != nil {
		return nil, err
	}
	secondsPerRow := song.SecondsPerRow()
	leadInSamples := int(math.Round(float64(contextRows) * secondsPerRow * SampleRate))
	coreSamples := int(math.Round(float64(rows) * secondsPerRow * SampleRate))
	core, err := full.Slice(leadInSamples, coreSamples)
	if err != nil {
		return nil, fmt.Errorf("extracting loop core: %w", err)
	}
	if loopCount == 1 {
		return core, nil
	}
	// repetitions are sample-identical copies of the core; re-rendering per
	// repetition would gain nothing and cost everything
	return core.Repeat(loopCount)
}
