package audio

import (
	"fmt"
	"time"

	"github.com/ebitengine/oto/v3"
)

// OtoBackend plays through oto, pulling float32 frames from Player.Read.
type OtoBackend struct {
	player  *Player
	latency time.Duration
	ctx     *oto.Context
	out     *oto.Player
}

// NewOtoBackend creates an oto backend; latency sets the device buffer.
func NewOtoBackend(p *Player, latency time.Duration) *OtoBackend {
	return &OtoBackend{player: p, latency: latency}
}

// Start opens the device and begins playback.
func (b *OtoBackend) Start() error {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   b.player.SampleRate(),
		ChannelCount: 2,
		Format:       oto.FormatFloat32LE,
		BufferSize:   b.latency,
	})
	if err != nil {
		return fmt.Errorf("oto: %w", err)
	}
	<-ready
	b.ctx = ctx
	b.out = ctx.NewPlayer(b.player)
	b.out.Play()
	return nil
}

// Close stops playback.
func (b *OtoBackend) Close() error {
	if b.out == nil {
		return nil
	}
	err := b.out.Close()
	b.out = nil
	return err
}
