package fmtrack

import (
	"context"
	"errors"
	"fmt"
	"math"
)

// RenderState tracks where a Renderer is in its lifecycle. Cancelled and
// Failed are terminal states reachable from Rendering at any yield point.
type RenderState int

const (
	StateIdle RenderState = iota
	StateInitializing
	StateRendering
	StateComplete
	StateCancelled
	StateFailed
)

func (s RenderState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateInitializing:
		return "initializing"
	case StateRendering:
		return "rendering"
	case StateComplete:
		return "complete"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// ErrCancelled is returned when a render is cancelled through its context.
// Cancellation is not a failure; it just produces no buffer.
var ErrCancelled = errors.New("render cancelled")

// ProgressFunc receives the fraction of the render completed and a short
// status message. It is invoked at yield points, roughly once per rendered
// second, never concurrently.
type ProgressFunc func(fraction float64, message string)

// yieldInterval is how often, in samples, the render loop reports progress
// and polls for cancellation.
const yieldInterval = SampleRate

// Renderer realizes timelines as PCM by driving a Device one sample at a
// time. A Renderer owns its Device and voice pool exclusively for the
// duration of a render; use a fresh device and renderer per independent
// export so chip state never leaks between unrelated renders.
type Renderer struct {
	dev   Device
	alloc *VoiceAllocator

	// Progress, when set, is called at every yield point.
	Progress ProgressFunc

	state RenderState
}

// NewRenderer returns a renderer driving the given device. The device is
// required at construction, so a missing synthesis backend surfaces here and
// not somewhere in the middle of a render.
func NewRenderer(dev Device) (*Renderer, error) {
	if dev == nil {
		return nil, errors.New("renderer requires a device")
	}
	return &Renderer{dev: dev, alloc: NewVoiceAllocator()}, nil
}

// State returns the renderer's current lifecycle state.
func (r *Renderer) State() RenderState { return r.state }

// Allocator exposes the renderer's voice allocator for introspection.
func (r *Renderer) Allocator() *VoiceAllocator { return r.alloc }

// trackNoteID gives track-bound voices their allocator identity; tracks hold
// their channels for the whole render, not per note.
func trackNoteID(track int) NoteID { return NoteID(-1 - track) }

// Render realizes the timeline as a RenderBuffer. Events are applied in
// compiled order, each no later than its scheduled sample; one stereo sample
// is read from the device per output sample. The context is polled at yield
// points only; on cancellation no partial buffer is returned.
func (r *Renderer) Render(ctx context.Context, song *Song, timeline Timeline) (*RenderBuffer, error) {
	r.state = StateInitializing
	if err := r.dev.Reset(); err != nil {
		r.state = StateFailed
		return nil, fmt.Errorf("chip initialization failed: %w", err)
	}
	channels, err := r.assignChannels(song)
	if err != nil {
		r.state = StateFailed
		return nil, fmt.Errorf("channel setup failed: %w", err)
	}

	totalSamples := int(math.Ceil(timeline.Duration * SampleRate))
	buffer := NewRenderBuffer(totalSamples)
	r.state = StateRendering
	eventIndex := 0
	for sampleIndex := 0; sampleIndex < totalSamples; sampleIndex++ {
		if sampleIndex%yieldInterval == 0 {
			if err := ctx.Err(); err != nil {
				r.state = StateCancelled
				return nil, fmt.Errorf("%w: %v", ErrCancelled, err)
			}
			if r.Progress != nil {
				r.Progress(float64(sampleIndex)/float64(totalSamples),
					fmt.Sprintf("rendering %.1fs / %.1fs", float64(sampleIndex)/SampleRate, timeline.Duration))
			}
		}
		t := float64(sampleIndex) / SampleRate
		for eventIndex < len(timeline.Events) && timeline.Events[eventIndex].Time <= t {
			r.apply(timeline.Events[eventIndex], channels)
			eventIndex++
		}
		buffer.Left[sampleIndex], buffer.Right[sampleIndex] = r.dev.ReadSample()
	}
	if r.Progress != nil {
		r.Progress(1, "render complete")
	}
	r.state = StateComplete
	return buffer, nil
}

// assignChannels gives every track its hardware channels for the whole
// render and loads the track's patch onto them. A degraded dual allocation
// comes back as the same channel twice; in that case only patch voice 0 is
// applied and the note plays mono.
func (r *Renderer) assignChannels(song *Song) ([][]int, error) {
	r.alloc.Reset()
	numTracks := song.Grid.NumTracks()
	channels := make([][]int, numTracks)
	for track := 0; track < numTracks; track++ {
		patch := song.PatchForTrack(track)
		id := trackNoteID(track)
		var chs []int
		if patch.NumVoices() == 2 {
			first, second, ok := r.alloc.AllocateDual(id)
			if !ok {
				continue // defensively drop the track; should be unreachable
			}
			if first == second {
				chs = []int{first}
			} else {
				chs = []int{first, second}
			}
		} else {
			ch, ok := r.alloc.AllocateSingle(id)
			if !ok {
				continue
			}
			chs = []int{ch}
		}
		for voice, ch := range chs {
			if err := r.dev.LoadPatch(ch, patch, voice); err != nil {
				return nil, fmt.Errorf("loading patch %q onto channel %d: %w", patch.Name, ch, err)
			}
		}
		channels[track] = chs
	}
	return channels, nil
}

func (r *Renderer) apply(ev NoteEvent, channels [][]int) {
	if ev.Track < 0 || ev.Track >= len(channels) {
		return
	}
	for _, ch := range channels[ev.Track] {
		switch ev.Kind {
		case EventNoteOn:
			r.dev.NoteOn(ch, ev.Pitch, ev.Velocity)
		case EventNoteOff:
			r.dev.NoteOff(ch)
		}
	}
}

// RenderOptions selects how RenderSong realizes a song.
type RenderOptions struct {
	LoopCount    int  // number of pattern repetitions; 0 means 1
	SeamlessLoop bool // render with borrowed context and extract the loopable core
	ContextRows  int  // lead-in/lead-out rows for seamless renders; 0 means DefaultContextRows
	Progress     ProgressFunc
}

// RenderSong is the render-request entry point: grid plus patches plus tempo
// in, PCM out. It validates the song, builds a renderer around the device
// and dispatches to the plain or the seamless-loop path.
func RenderSong(ctx context.Context, dev Device, song *Song, opt RenderOptions) (*RenderBuffer, error) {
	if err := song.Validate(); err != nil {
		return nil, fmt.Errorf("invalid song: %w", err)
	}
	r, err := NewRenderer(dev)
	if err != nil {
		return nil, err
	}
	r.Progress = opt.Progress
	loopCount := opt.LoopCount
	if loopCount < 1 {
		loopCount = 1
	}
	if opt.SeamlessLoop {
		contextRows := opt.ContextRows
		if contextRows == 0 {
			contextRows = DefaultContextRows
		}
		return r.RenderSeamlessLoop(ctx, song, contextRows, loopCount)
	}
	timeline, err := song.Timeline(loopCount)
	if err != nil {
		return nil, err
	}
	return r.Render(ctx, song, timeline)
}
