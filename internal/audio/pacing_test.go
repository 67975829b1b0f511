package audio

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		name   string
		format Format
		bytes  int
		want   time.Duration
	}{
		{name: "16k mono 16bit 1600 frames", format: Format{SampleRate: 16000, Channels: 1, SampleWidth: 2}, bytes: 3200, want: 100 * time.Millisecond},
		{name: "48k stereo 16bit", format: Format{SampleRate: 48000, Channels: 2, SampleWidth: 2}, bytes: 192000, want: time.Second},
		{name: "empty chunk", format: Format{SampleRate: 16000, Channels: 1, SampleWidth: 2}, bytes: 0, want: 0},
		{name: "zero format", format: Format{}, bytes: 100, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.format.Duration(tt.bytes); got != tt.want {
				t.Errorf("Duration(%d) = %v, want %v", tt.bytes, got, tt.want)
			}
		})
	}
}

func TestRealtimePacer_CumulativeDelayMatchesRecordingLength(t *testing.T) {
	format := Format{SampleRate: 16000, Channels: 1, SampleWidth: 2}
	var total time.Duration
	pacer := &RealtimePacer{sleep: func(_ context.Context, d time.Duration) error {
		total += d
		return nil
	}}

	const seconds = 7
	// 7 s of audio split into 1000-frame chunks leaves a short final chunk.
	remaining := seconds * format.SampleRate * format.FrameSize()
	chunkBytes := 1000 * format.FrameSize()
	for i := 0; remaining > 0; i++ {
		n := min(chunkBytes, remaining)
		if err := pacer.Delay(context.Background(), Chunk{Index: i, Data: make([]byte, n)}, format); err != nil {
			t.Fatalf("Delay: %v", err)
		}
		remaining -= n
	}

	diff := total - seconds*time.Second
	if diff < -time.Millisecond || diff > time.Millisecond {
		t.Fatalf("cumulative delay %v not within tolerance of %ds", total, seconds)
	}
}

func TestRealtimePacer_SleepsForChunkDuration(t *testing.T) {
	format := Format{SampleRate: 16000, Channels: 1, SampleWidth: 2}
	pacer := NewRealtimePacer()
	start := time.Now()
	if err := pacer.Delay(context.Background(), Chunk{Data: make([]byte, 1600)}, format); err != nil {
		t.Fatalf("Delay: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 45*time.Millisecond {
		t.Fatalf("expected ~50ms delay, got %v", elapsed)
	}
}

func TestRealtimePacer_Cancellation(t *testing.T) {
	format := Format{SampleRate: 16000, Channels: 1, SampleWidth: 2}
	pacer := NewRealtimePacer()
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	start := time.Now()
	err := pacer.Delay(ctx, Chunk{Data: make([]byte, 32000*10)}, format)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Fatal("cancellation did not interrupt the delay")
	}
}

type recordingPlayback struct {
	mu      sync.Mutex
	written [][]byte
	err     error
	block   chan struct{}
}

func (p *recordingPlayback) Write(b []byte) (int, error) {
	if p.block != nil {
		<-p.block
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return 0, p.err
	}
	p.written = append(p.written, b)
	return len(b), nil
}

func (p *recordingPlayback) Close() error { return nil }

func TestPlaybackPacer_WritesEveryChunkInOrder(t *testing.T) {
	dev := &recordingPlayback{}
	pacer := NewPlaybackPacer(dev)
	for i := 0; i < 3; i++ {
		if err := pacer.Delay(context.Background(), Chunk{Index: i, Data: []byte{byte(i)}}, byteFormat); err != nil {
			t.Fatalf("Delay: %v", err)
		}
	}
	if len(dev.written) != 3 {
		t.Fatalf("expected 3 writes, got %d", len(dev.written))
	}
	for i, b := range dev.written {
		if b[0] != byte(i) {
			t.Fatalf("write %d out of order: %v", i, b)
		}
	}
}

func TestPlaybackPacer_DeviceErrorWrapsErrDevice(t *testing.T) {
	pacer := NewPlaybackPacer(&recordingPlayback{err: errors.New("underrun")})
	err := pacer.Delay(context.Background(), Chunk{Data: []byte{1}}, byteFormat)
	if !errors.Is(err, ErrDevice) {
		t.Fatalf("expected ErrDevice, got %v", err)
	}
}

func TestPlaybackPacer_CancelWhileDeviceBlocked(t *testing.T) {
	dev := &recordingPlayback{block: make(chan struct{})}
	defer close(dev.block)
	pacer := NewPlaybackPacer(dev)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := pacer.Delay(ctx, Chunk{Data: []byte{1}}, byteFormat)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestNoPacing(t *testing.T) {
	if err := (NoPacing{}).Delay(context.Background(), Chunk{Data: make([]byte, 1<<20)}, byteFormat); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}
