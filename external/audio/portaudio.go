//go:build portaudio

package audio

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/foxseedlab/kikitori/internal/audio"
	"github.com/gordonklaus/portaudio"
)

const playbackFramesPerBuffer = 256

type PortAudioManager struct {
	closeOnce sync.Once
	closeErr  error
}

func NewDeviceManager() (audio.DeviceManager, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("%w: initialize portaudio: %w", audio.ErrDevice, err)
	}
	return &PortAudioManager{}, nil
}

func (m *PortAudioManager) ListDevices() ([]audio.DeviceInfo, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("%w: list devices: %w", audio.ErrDevice, err)
	}
	list := make([]audio.DeviceInfo, 0, len(devices))
	for _, d := range devices {
		list = append(list, audio.DeviceInfo{
			Index:             d.Index,
			Name:              d.Name,
			MaxInputChannels:  d.MaxInputChannels,
			MaxOutputChannels: d.MaxOutputChannels,
			DefaultSampleRate: d.DefaultSampleRate,
		})
	}
	return list, nil
}

func (m *PortAudioManager) lookup(index int, input bool) (*portaudio.DeviceInfo, error) {
	if index < 0 {
		if input {
			return portaudio.DefaultInputDevice()
		}
		return portaudio.DefaultOutputDevice()
	}
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, err
	}
	for _, d := range devices {
		if d.Index == index {
			return d, nil
		}
	}
	return nil, fmt.Errorf("no device with index %d", index)
}

func (m *PortAudioManager) OpenCapture(index int, format audio.Format, framesPerBuffer int) (audio.CaptureDevice, error) {
	if format.SampleWidth != 2 {
		return nil, fmt.Errorf("%w: capture supports 16-bit samples only", audio.ErrInvalidSource)
	}
	dev, err := m.lookup(index, true)
	if err != nil {
		return nil, fmt.Errorf("%w: input device: %w", audio.ErrInvalidSource, err)
	}
	if dev.MaxInputChannels < format.Channels {
		return nil, fmt.Errorf("%w: device %q has %d input channels, need %d", audio.ErrInvalidSource, dev.Name, dev.MaxInputChannels, format.Channels)
	}

	buf := make([]int16, framesPerBuffer*format.Channels)
	stream, err := portaudio.OpenStream(portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   dev,
			Channels: format.Channels,
			Latency:  dev.DefaultLowInputLatency,
		},
		SampleRate:      float64(format.SampleRate),
		FramesPerBuffer: framesPerBuffer,
	}, buf)
	if err != nil {
		return nil, fmt.Errorf("%w: open capture stream on %q: %w", audio.ErrDevice, dev.Name, err)
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		return nil, fmt.Errorf("%w: start capture stream on %q: %w", audio.ErrDevice, dev.Name, err)
	}
	return &captureStream{stream: stream, buf: buf}, nil
}

func (m *PortAudioManager) OpenPlayback(index int, format audio.Format) (audio.PlaybackDevice, error) {
	if format.SampleWidth != 2 {
		return nil, fmt.Errorf("%w: playback supports 16-bit samples only", audio.ErrInvalidSource)
	}
	dev, err := m.lookup(index, false)
	if err != nil {
		return nil, fmt.Errorf("%w: output device: %w", audio.ErrInvalidSource, err)
	}
	if dev.MaxOutputChannels < format.Channels {
		return nil, fmt.Errorf("%w: device %q has %d output channels, need %d", audio.ErrInvalidSource, dev.Name, dev.MaxOutputChannels, format.Channels)
	}

	buf := make([]int16, playbackFramesPerBuffer*format.Channels)
	stream, err := portaudio.OpenStream(portaudio.StreamParameters{
		Output: portaudio.StreamDeviceParameters{
			Device:   dev,
			Channels: format.Channels,
			Latency:  dev.DefaultLowOutputLatency,
		},
		SampleRate:      float64(format.SampleRate),
		FramesPerBuffer: playbackFramesPerBuffer,
	}, buf)
	if err != nil {
		return nil, fmt.Errorf("%w: open playback stream on %q: %w", audio.ErrDevice, dev.Name, err)
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		return nil, fmt.Errorf("%w: start playback stream on %q: %w", audio.ErrDevice, dev.Name, err)
	}
	return &playbackStream{stream: stream, buf: buf}, nil
}

func (m *PortAudioManager) Close() error {
	m.closeOnce.Do(func() {
		m.closeErr = portaudio.Terminate()
	})
	return m.closeErr
}

func (m *PortAudioManager) Shutdown() error {
	return m.Close()
}

// captureStream adapts a blocking PortAudio input stream to io.Reader. Close waits for an
// in-flight buffer read to finish before stopping the stream.
type captureStream struct {
	mu      sync.Mutex
	stream  *portaudio.Stream
	buf     []int16
	pending []byte

	closing   atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

func (c *captureStream) Read(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.pending) == 0 {
		if c.closing.Load() {
			return 0, io.ErrClosedPipe
		}
		// An overflow still delivers a full buffer; only the dropped frames are lost.
		if err := c.stream.Read(); err != nil && !errors.Is(err, portaudio.InputOverflowed) {
			return 0, err
		}
		c.pending = samplesToPCM(c.buf)
	}
	n := copy(p, c.pending)
	c.pending = c.pending[n:]
	return n, nil
}

func (c *captureStream) Close() error {
	c.closeOnce.Do(func() {
		c.closing.Store(true)
		c.mu.Lock()
		defer c.mu.Unlock()
		stopErr := c.stream.Stop()
		c.closeErr = errors.Join(stopErr, c.stream.Close())
	})
	return c.closeErr
}

// playbackStream buffers written PCM until a full device buffer is available. Close
// flushes the remainder padded with silence.
type playbackStream struct {
	mu      sync.Mutex
	stream  *portaudio.Stream
	buf     []int16
	pending []byte
	closed  bool

	closeOnce sync.Once
	closeErr  error
}

func (p *playbackStream) Write(data []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, io.ErrClosedPipe
	}
	p.pending = append(p.pending, data...)
	bufBytes := len(p.buf) * 2
	for len(p.pending) >= bufBytes {
		pcmToSamples(p.buf, p.pending[:bufBytes])
		if err := p.stream.Write(); err != nil && !errors.Is(err, portaudio.OutputUnderflowed) {
			return 0, err
		}
		p.pending = p.pending[bufBytes:]
	}
	return len(data), nil
}

func (p *playbackStream) Close() error {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		p.closed = true
		var flushErr error
		if len(p.pending) > 0 {
			clear(p.buf)
			pcmToSamples(p.buf, p.pending)
			p.pending = nil
			if err := p.stream.Write(); err != nil && !errors.Is(err, portaudio.OutputUnderflowed) {
				flushErr = err
			}
		}
		p.closeErr = errors.Join(flushErr, p.stream.Stop(), p.stream.Close())
	})
	return p.closeErr
}
