// Package oto wraps ebitengine/oto as a playback output for rendered
// buffers. Playback here is fire-and-forget of finished PCM; the
// sample-accurate path is the offline renderer, not this.
package oto

import (
	"bytes"
	"fmt"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/fmtrack/fmtrack"
)

// Context is an audio output at the chip's native rate.
type Context struct {
	ctx *oto.Context
}

// NewContext acquires the system audio output. There can be only one oto
// context per process.
func NewContext() (*Context, error) {
	op := &oto.NewContextOptions{
		SampleRate:   fmtrack.SampleRate,
		ChannelCount: 2,
		Format:       oto.FormatSignedInt16LE,
	}
	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("cannot create oto context: %w", err)
	}
	<-ready
	return &Context{ctx: ctx}, nil
}

// Play starts playing the buffer and returns immediately; use the returned
// Player to wait for completion.
func (c *Context) Play(buffer *fmtrack.RenderBuffer) (*Player, error) {
	raw, err := buffer.Raw()
	if err != nil {
		return nil, fmt.Errorf("cannot convert buffer for playback: %w", err)
	}
	p := c.ctx.NewPlayer(bytes.NewReader(raw))
	p.Play()
	return &Player{player: p}, nil
}

// Player is one playing buffer.
type Player struct {
	player *oto.Player
}

// Wait blocks until playback finishes.
func (p *Player) Wait() {
	for p.player.IsPlaying() {
		time.Sleep(10 * time.Millisecond)
	}
}

// Close stops playback and releases the player.
func (p *Player) Close() error {
	if err := p.player.Close(); err != nil {
		return fmt.Errorf("cannot close oto player: %w", err)
	}
	return nil
}
