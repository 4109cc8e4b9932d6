package audio

import (
	"fmt"
	"time"
)

// Backend drives a Player from a sound device.
type Backend interface {
	Start() error
	Close() error
}

// NewBackend returns the named backend: "oto" or "portaudio".
func NewBackend(name string, p *Player, latency time.Duration) (Backend, error) {
	switch name {
	case "", "oto":
		return NewOtoBackend(p, latency), nil
	case "portaudio":
		return NewPortAudioBackend(p, int(latency.Seconds()*float64(p.SampleRate()))), nil
	default:
		return nil, fmt.Errorf("unknown audio backend %q", name)
	}
}
