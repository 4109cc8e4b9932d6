//go:build !portaudio

package audio

import "errors"

type noPortAudio struct{}

// NewPortAudioBackend reports that this binary was built without the
// portaudio tag.
func NewPortAudioBackend(*Player, int) Backend { return noPortAudio{} }

func (noPortAudio) Start() error {
	return errors.New("portaudio backend not available, rebuild with -tags portaudio")
}

func (noPortAudio) Close() error { return nil }
