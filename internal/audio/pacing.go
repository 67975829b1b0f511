package audio

import (
	"context"
	"fmt"
	"time"
)

// Pacer runs once per chunk, immediately before the chunk is sent.
type Pacer interface {
	Delay(ctx context.Context, chunk Chunk, format Format) error
}

type NoPacing struct{}

func (NoPacing) Delay(ctx context.Context, _ Chunk, _ Format) error {
	return ctx.Err()
}

type sleepFunc func(ctx context.Context, d time.Duration) error

// RealtimePacer holds each chunk back for its own playback duration so a recording is
// sent at the pace it was spoken.
type RealtimePacer struct {
	sleep sleepFunc
}

func NewRealtimePacer() *RealtimePacer {
	return &RealtimePacer{sleep: sleepContext}
}

func (p *RealtimePacer) Delay(ctx context.Context, chunk Chunk, format Format) error {
	return p.sleep(ctx, format.Duration(len(chunk.Data)))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// PlaybackPacer plays every chunk on an output device and returns once the device has
// accepted it. The caller owns the device and closes it after the session.
type PlaybackPacer struct {
	dev PlaybackDevice
}

func NewPlaybackPacer(dev PlaybackDevice) *PlaybackPacer {
	return &PlaybackPacer{dev: dev}
}

func (p *PlaybackPacer) Delay(ctx context.Context, chunk Chunk, _ Format) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	errCh := make(chan error, 1)
	go func() {
		_, err := p.dev.Write(chunk.Data)
		errCh <- err
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("%w: playback chunk %d: %w", ErrDevice, chunk.Index, err)
		}
		return nil
	}
}
