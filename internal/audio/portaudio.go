//go:build portaudio

package audio

import (
	"fmt"

	"github.com/gordonklaus/portaudio"
)

// PortAudioBackend plays through the default PortAudio output device.
type PortAudioBackend struct {
	player     *Player
	bufferSize int
	stream     *portaudio.Stream
}

// NewPortAudioBackend creates a PortAudio backend with the given callback
// buffer in frames; 0 lets PortAudio choose.
func NewPortAudioBackend(p *Player, bufferSize int) Backend {
	return &PortAudioBackend{player: p, bufferSize: bufferSize}
}

// Start opens the default stream and begins playback.
func (b *PortAudioBackend) Start() error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("portaudio init: %w", err)
	}
	stream, err := portaudio.OpenDefaultStream(0, 2, float64(b.player.SampleRate()), b.bufferSize, b.player.ProcessPortAudio)
	if err != nil {
		portaudio.Terminate()
		return fmt.Errorf("portaudio open: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return fmt.Errorf("portaudio start: %w", err)
	}
	b.stream = stream
	return nil
}

// Close stops the stream and releases PortAudio.
func (b *PortAudioBackend) Close() error {
	if b.stream == nil {
		return nil
	}
	b.stream.Stop()
	err := b.stream.Close()
	b.stream = nil
	portaudio.Terminate()
	return err
}
