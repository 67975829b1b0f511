package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
)

const deviceFrameQueueSize = 4

type ReaderSource struct {
	r          io.ReadCloser
	format     Format
	chunkBytes int

	mu        sync.Mutex
	next      int
	exhausted bool
	closeOnce sync.Once
	closeErr  error
}

// NewReaderSource splits r into windows of chunkFrames frames. The final window may be
// shorter than the others.
func NewReaderSource(r io.ReadCloser, format Format, chunkFrames int) (*ReaderSource, error) {
	if chunkFrames <= 0 {
		return nil, fmt.Errorf("%w: %w, got %d", ErrInvalidSource, errNonPositiveFrames, chunkFrames)
	}
	if err := format.Validate(); err != nil {
		return nil, err
	}
	return &ReaderSource{
		r:          r,
		format:     format,
		chunkBytes: chunkFrames * format.FrameSize(),
	}, nil
}

func (s *ReaderSource) Format() Format {
	return s.format
}

func (s *ReaderSource) ChunkBytes() int {
	return s.chunkBytes
}

func (s *ReaderSource) Next(ctx context.Context) (Chunk, error) {
	if err := ctx.Err(); err != nil {
		return Chunk{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.exhausted {
		return Chunk{}, io.EOF
	}

	buf := make([]byte, s.chunkBytes)
	n, err := io.ReadFull(s.r, buf)
	switch {
	case err == nil:
	case errors.Is(err, io.EOF):
		s.exhausted = true
		return Chunk{}, io.EOF
	case errors.Is(err, io.ErrUnexpectedEOF):
		s.exhausted = true
	default:
		return Chunk{}, fmt.Errorf("read audio chunk %d: %w", s.next, err)
	}

	chunk := Chunk{Index: s.next, Data: buf[:n]}
	s.next++
	return chunk, nil
}

func (s *ReaderSource) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.r.Close()
	})
	return s.closeErr
}

type deviceFrame struct {
	data []byte
	err  error
}

// DeviceSource reads fixed-size frames from a capture device. Reads happen on a pump
// goroutine so that Next observes cancellation while the device is blocked.
type DeviceSource struct {
	dev        CaptureDevice
	format     Format
	frameBytes int

	startOnce sync.Once
	frames    chan deviceFrame
	done      chan struct{}

	mu        sync.Mutex
	next      int
	finished  error
	closeOnce sync.Once
	closeErr  error
}

func NewDeviceSource(dev CaptureDevice, format Format, framesPerChunk int) (*DeviceSource, error) {
	if framesPerChunk <= 0 {
		return nil, fmt.Errorf("%w: %w, got %d", ErrInvalidSource, errNonPositiveFrames, framesPerChunk)
	}
	if err := format.Validate(); err != nil {
		return nil, err
	}
	return &DeviceSource{
		dev:        dev,
		format:     format,
		frameBytes: framesPerChunk * format.FrameSize(),
		frames:     make(chan deviceFrame, deviceFrameQueueSize),
		done:       make(chan struct{}),
	}, nil
}

func (s *DeviceSource) Format() Format {
	return s.format
}

func (s *DeviceSource) Next(ctx context.Context) (Chunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finished != nil {
		return Chunk{}, s.finished
	}
	s.startOnce.Do(func() {
		go s.pump()
	})

	select {
	case <-ctx.Done():
		return Chunk{}, ctx.Err()
	case <-s.done:
		s.finished = io.EOF
		return Chunk{}, io.EOF
	case f := <-s.frames:
		if f.err != nil {
			s.finished = f.err
			return Chunk{}, f.err
		}
		chunk := Chunk{Index: s.next, Data: f.data}
		s.next++
		return chunk, nil
	}
}

func (s *DeviceSource) pump() {
	for {
		buf := make([]byte, s.frameBytes)
		_, err := io.ReadFull(s.dev, buf)
		frame := deviceFrame{data: buf}
		if err != nil {
			frame = deviceFrame{err: classifyDeviceReadError(err)}
		}
		select {
		case s.frames <- frame:
		case <-s.done:
			return
		}
		if err != nil {
			return
		}
	}
}

func classifyDeviceReadError(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.ErrClosedPipe) {
		return io.EOF
	}
	return fmt.Errorf("%w: capture read: %w", ErrDevice, err)
}

func (s *DeviceSource) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
		s.closeErr = s.dev.Close()
	})
	return s.closeErr
}
