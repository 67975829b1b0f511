//go:build !portaudio

package audio

import "github.com/foxseedlab/kikitori/internal/audio"

// NewDeviceManager reports that audio devices are unavailable. Build with -tags portaudio
// to enable microphone capture and playback.
func NewDeviceManager() (audio.DeviceManager, error) {
	return nil, audio.ErrDeviceUnavailable
}
