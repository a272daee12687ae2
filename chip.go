package fmtrack

import (
	"errors"
	"fmt"
	"math"
)

// SampleRate is the native rate of the synthesis chip. All rendering happens
// at this rate; resampling, if any, is someone else's problem.
const SampleRate = 49716

// MaxChannels is the number of hardware channels the chip exposes.
const MaxChannels = 18

type (
	// Chip is the narrow contract to the synthesis chip: register-like writes
	// in, stereo samples out. The chip is stateful and assumed deterministic
	// given an identical command history; the core never inspects its
	// internals. Reset must bring it to a known-silent state and is the only
	// call that may fail.
	Chip interface {
		Reset() error
		WriteReg(reg uint16, value byte)
		ReadSample() (left, right int16)
	}

	// Device is what the renderer drives: a chip plus enough register-layout
	// knowledge to express patches and notes. opl.Driver is the production
	// implementation; tests substitute fakes.
	Device interface {
		Reset() error
		LoadPatch(channel int, patch Patch, voice int) error
		NoteOn(channel int, pitch, velocity byte)
		NoteOff(channel int)
		ReadSample() (left, right int16)
	}

	// RenderBuffer is rendered stereo PCM. Left and Right always have equal
	// length; the buffer is immutable once rendering completes, apart from
	// the explicit post passes in postprocess.go.
	RenderBuffer struct {
		Left       []int16
		Right      []int16
		SampleRate int
	}
)

// NewRenderBuffer returns an empty buffer of the given length at the chip's
// native rate.
func NewRenderBuffer(numSamples int) *RenderBuffer {
	return &RenderBuffer{
		Left:       make([]int16, numSamples),
		Right:      make([]int16, numSamples),
		SampleRate: SampleRate,
	}
}

// Len returns the number of stereo sample pairs in the buffer.
func (b *RenderBuffer) Len() int { return len(b.Left) }

// Duration returns the buffer length in seconds.
func (b *RenderBuffer) Duration() float64 {
	if b.SampleRate == 0 {
		return 0
	}
	return float64(b.Len()) / float64(b.SampleRate)
}

// Slice returns a new buffer holding samples [start, start+length). The
// result shares no storage with the receiver.
func (b *RenderBuffer) Slice(start, length int) (*RenderBuffer, error) {
	if start < 0 || length < 0 || start+length > b.Len() {
		return nil, fmt.Errorf("slice [%d,%d) out of buffer bounds [0,%d)", start, start+length, b.Len())
	}
	ret := &RenderBuffer{
		Left:       make([]int16, length),
		Right:      make([]int16, length),
		SampleRate: b.SampleRate,
	}
	copy(ret.Left, b.Left[start:start+length])
	copy(ret.Right, b.Right[start:start+length])
	return ret, nil
}

// Repeat returns the buffer concatenated with itself count times, verbatim.
// No resampling or blending happens at the internal seams; a seamlessly
// extracted core loops sample-identically.
func (b *RenderBuffer) Repeat(count int) (*RenderBuffer, error) {
	if count < 1 {
		return nil, errors.New("repeat count should be >= 1")
	}
	ret := &RenderBuffer{
		Left:       make([]int16, 0, b.Len()*count),
		Right:      make([]int16, 0, b.Len()*count),
		SampleRate: b.SampleRate,
	}
	for i := 0; i < count; i++ {
		ret.Left = append(ret.Left, b.Left...)
		ret.Right = append(ret.Right, b.Right...)
	}
	return ret, nil
}

// Peak returns the largest absolute sample value over both channels,
// normalized to 0..1.
func (b *RenderBuffer) Peak() float64 {
	peak := int16(0)
	for _, ch := range [][]int16{b.Left, b.Right} {
		for _, s := range ch {
			if s == math.MinInt16 {
				return 1
			}
			if s < 0 {
				s = -s
			}
			if s > peak {
				peak = s
			}
		}
	}
	return float64(peak) / math.MaxInt16
}

// NullChip is a Chip that accepts every write and generates silence. It lets
// the whole pipeline run with sample-accurate timing when no chip emulator
// is linked in; actual sound requires a real Chip implementation.
type NullChip struct{}

func (NullChip) Reset() error { return nil }

func (NullChip) WriteReg(reg uint16, value byte) {}

func (NullChip) ReadSample() (left, right int16) { return 0, 0 }
