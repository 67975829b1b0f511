package audio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/foxseedlab/kikitori/internal/audio"
	"github.com/go-audio/wav"
)

const (
	InputFormatWAV = "wav"
	InputFormatRaw = "raw"

	wavFormatPCM    = 1
	pcm16BitDepth   = 16
	pcm16SampleSize = 2
)

var errUnsupportedWAV = errors.New("only 16-bit linear PCM WAV is supported")

type FileOptions struct {
	// InputFormat is InputFormatWAV or InputFormatRaw.
	InputFormat string
	// RawFormat describes headerless input. It is ignored for WAV files.
	RawFormat   audio.Format
	ChunkFrames int
}

type fileReader struct {
	io.Reader
	io.Closer
}

// OpenFile opens a WAV or headerless PCM file as a chunk source. The returned source owns
// the file handle.
func OpenFile(path string, opts FileOptions) (*audio.ReaderSource, error) {
	if opts.ChunkFrames == 0 {
		opts.ChunkFrames = audio.DefaultChunkFrames
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", audio.ErrInvalidSource, err)
	}

	var (
		r      io.Reader = f
		format           = opts.RawFormat
	)
	switch strings.ToLower(opts.InputFormat) {
	case InputFormatWAV, "":
		r, format, err = readWAVHeader(f)
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("%w: %s: %w", audio.ErrInvalidSource, path, err)
		}
	case InputFormatRaw:
		if format.SampleWidth != pcm16SampleSize {
			_ = f.Close()
			return nil, fmt.Errorf("%w: raw input must be 16-bit PCM, got sample width %d", audio.ErrInvalidSource, format.SampleWidth)
		}
	default:
		_ = f.Close()
		return nil, fmt.Errorf("%w: unknown input format %q", audio.ErrInvalidSource, opts.InputFormat)
	}

	src, err := audio.NewReaderSource(fileReader{Reader: r, Closer: f}, format, opts.ChunkFrames)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return src, nil
}

// readWAVHeader parses the RIFF header and returns a reader positioned at the first PCM
// byte and limited to the data chunk.
func readWAVHeader(rs io.ReadSeeker) (io.Reader, audio.Format, error) {
	d := wav.NewDecoder(rs)
	d.ReadInfo()
	if err := d.Err(); err != nil {
		return nil, audio.Format{}, fmt.Errorf("read wav header: %w", err)
	}
	if d.NumChans == 0 || d.SampleRate == 0 {
		return nil, audio.Format{}, errors.New("missing wav fmt chunk")
	}
	if d.WavAudioFormat != wavFormatPCM || d.BitDepth != pcm16BitDepth {
		return nil, audio.Format{}, fmt.Errorf("%w (format tag %d, %d bits)", errUnsupportedWAV, d.WavAudioFormat, d.BitDepth)
	}
	if err := d.FwdToPCM(); err != nil {
		return nil, audio.Format{}, fmt.Errorf("find wav data chunk: %w", err)
	}
	if err := d.Err(); err != nil {
		return nil, audio.Format{}, fmt.Errorf("find wav data chunk: %w", err)
	}
	if d.PCMChunk == nil {
		return nil, audio.Format{}, errors.New("missing wav data chunk")
	}

	format := audio.Format{
		SampleRate:  int(d.SampleRate),
		Channels:    int(d.NumChans),
		SampleWidth: pcm16SampleSize,
	}
	return io.LimitReader(d.PCMChunk, int64(d.PCMChunk.Size)), format, nil
}
