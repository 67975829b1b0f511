package audio

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const DefaultChunkFrames = 1600

var (
	ErrInvalidSource      = errors.New("invalid audio source")
	ErrDevice             = errors.New("audio device error")
	ErrDeviceUnavailable  = errors.New("audio devices are not available in this build")
	errNonPositiveFrames  = errors.New("chunk frames must be positive")
	errInvalidAudioFormat = errors.New("sample rate, channels and sample width must be positive")
)

// Format describes interleaved linear PCM.
type Format struct {
	SampleRate  int
	Channels    int
	SampleWidth int
}

func (f Format) FrameSize() int {
	return f.Channels * f.SampleWidth
}

func (f Format) Validate() error {
	if f.SampleRate <= 0 || f.Channels <= 0 || f.SampleWidth <= 0 {
		return fmt.Errorf("%w: %w (rate=%d channels=%d width=%d)", ErrInvalidSource, errInvalidAudioFormat, f.SampleRate, f.Channels, f.SampleWidth)
	}
	return nil
}

// Duration is the playback length of n bytes in this format.
func (f Format) Duration(n int) time.Duration {
	bytesPerSecond := f.SampleWidth * f.Channels * f.SampleRate
	if bytesPerSecond <= 0 || n <= 0 {
		return 0
	}
	return time.Duration(int64(n) * int64(time.Second) / int64(bytesPerSecond))
}

// Chunk is one outbound audio window. Data must not be modified after emission.
type Chunk struct {
	Index int
	Data  []byte
}

// ChunkSource yields chunks in production order and io.EOF once exhausted.
type ChunkSource interface {
	Format() Format
	Next(ctx context.Context) (Chunk, error)
	Close() error
}

type CaptureDevice interface {
	Read(p []byte) (int, error)
	Close() error
}

type PlaybackDevice interface {
	Write(p []byte) (int, error)
	Close() error
}

type DeviceInfo struct {
	Index             int
	Name              string
	MaxInputChannels  int
	MaxOutputChannels int
	DefaultSampleRate float64
}

// DeviceManager opens capture and playback devices. An index below zero selects the
// host default device.
type DeviceManager interface {
	ListDevices() ([]DeviceInfo, error)
	OpenCapture(index int, format Format, framesPerBuffer int) (CaptureDevice, error)
	OpenPlayback(index int, format Format) (PlaybackDevice, error)
	Close() error
}
