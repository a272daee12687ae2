package fmtrack

import (
	"math"

	"github.com/viterin/vek/vek32"
)

// The post passes below operate on finished buffers only; none of them runs
// inside the render loop, and the chip is assumed to produce in-range
// samples, so clipping decisions stay out of the renderer.

// trimPadding is how much audio is kept after the last audible sample when
// trimming, a quarter of a second.
const trimPadding = SampleRate / 4

// TrimTrailingSilence returns a copy of the buffer truncated shortly after
// the last sample on either channel that exceeds the threshold (in dBFS,
// e.g. -60). A buffer with no audible samples trims to empty.
func (b *RenderBuffer) TrimTrailingSilence(thresholdDB float64) *RenderBuffer {
	threshold := int16(math.MaxInt16 * math.Pow(10, thresholdDB/20))
	last := -1
	for i := b.Len() - 1; i >= 0; i-- {
		if abs16(b.Left[i]) > threshold || abs16(b.Right[i]) > threshold {
			last = i
			break
		}
	}
	length := 0
	if last >= 0 {
		length = last + 1 + trimPadding
		if length > b.Len() {
			length = b.Len()
		}
	}
	trimmed, _ := b.Slice(0, length)
	return trimmed
}

// Normalize scales the buffer in place so its peak hits targetPeak (0..1 of
// full scale). A silent buffer is left untouched.
func (b *RenderBuffer) Normalize(targetPeak float64) {
	peak := b.Peak()
	if peak <= 0 || targetPeak <= 0 {
		return
	}
	gain := float32(targetPeak / peak)
	for _, ch := range [][]int16{b.Left, b.Right} {
		f := toFloat32(ch)
		vek32.MulNumber_Inplace(f, gain)
		fromFloat32(ch, f)
	}
}

// FadeOut applies a linear fade over the last seconds of the buffer, in
// place. Fades longer than the buffer fade the whole buffer.
func (b *RenderBuffer) FadeOut(seconds float64) {
	n := fadeLength(b, seconds)
	if n == 0 {
		return
	}
	ramp := make([]float32, n)
	for i := range ramp {
		ramp[i] = 1 - float32(i+1)/float32(n)
	}
	start := b.Len() - n
	for _, ch := range [][]int16{b.Left, b.Right} {
		f := toFloat32(ch[start:])
		vek32.Mul_Inplace(f, ramp)
		fromFloat32(ch[start:], f)
	}
}

// FadeIn applies a linear fade over the first seconds of the buffer, in
// place.
func (b *RenderBuffer) FadeIn(seconds float64) {
	n := fadeLength(b, seconds)
	if n == 0 {
		return
	}
	ramp := make([]float32, n)
	for i := range ramp {
		ramp[i] = float32(i) / float32(n)
	}
	for _, ch := range [][]int16{b.Left, b.Right} {
		f := toFloat32(ch[:n])
		vek32.Mul_Inplace(f, ramp)
		fromFloat32(ch[:n], f)
	}
}

func fadeLength(b *RenderBuffer, seconds float64) int {
	if seconds <= 0 {
		return 0
	}
	n := int(math.Round(seconds * float64(b.SampleRate)))
	if n > b.Len() {
		n = b.Len()
	}
	return n
}

func abs16(v int16) int16 {
	if v == math.MinInt16 {
		return math.MaxInt16
	}
	if v < 0 {
		return -v
	}
	return v
}

func toFloat32(samples []int16) []float32 {
	f := make([]float32, len(samples))
	for i, s := range samples {
		f[i] = float32(s)
	}
	return f
}

func fromFloat32(samples []int16, f []float32) {
	for i, v := range f {
		if v > math.MaxInt16 {
			v = math.MaxInt16
		} else if v < math.MinInt16 {
			v = math.MinInt16
		}
		samples[i] = int16(v)
	}
}
