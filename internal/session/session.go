package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/foxseedlab/kikitori/internal/audio"
	"github.com/foxseedlab/kikitori/internal/recognition"
	"golang.org/x/sync/errgroup"
)

var (
	ErrStreamInterrupted = errors.New("recognition stream interrupted")
	ErrCancelled         = errors.New("session cancelled")
	ErrAlreadyStarted    = errors.New("session already started")
)

type State int

const (
	StateIdle State = iota
	StateConfigSent
	StateStreaming
	StateDraining
	StateClosed
	StateErrored
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConfigSent:
		return "config_sent"
	case StateStreaming:
		return "streaming"
	case StateDraining:
		return "draining"
	case StateClosed:
		return "closed"
	case StateErrored:
		return "errored"
	case StateCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

func (s State) Terminal() bool {
	return s == StateClosed || s == StateErrored || s == StateCancelled
}

// ResultReceiver is called from the receive leg only, once per result, in arrival order.
type ResultReceiver interface {
	OnResult(result recognition.Result)
}

type ResultReceiverFunc func(result recognition.Result)

func (f ResultReceiverFunc) OnResult(result recognition.Result) {
	f(result)
}

// ResponseObserver is implemented by receivers that group results by the response they
// arrived in. OnResponseStart is called before the first result of each non-empty response.
type ResponseObserver interface {
	OnResponseStart()
}

type multiReceiver []ResultReceiver

func (m multiReceiver) OnResponseStart() {
	for _, r := range m {
		if o, ok := r.(ResponseObserver); ok {
			o.OnResponseStart()
		}
	}
}

func (m multiReceiver) OnResult(result recognition.Result) {
	for _, r := range m {
		r.OnResult(result)
	}
}

// Receivers fans each result out to every non-nil receiver, in argument order.
func Receivers(receivers ...ResultReceiver) ResultReceiver {
	list := make(multiReceiver, 0, len(receivers))
	for _, r := range receivers {
		if r != nil {
			list = append(list, r)
		}
	}
	return list
}

type Stats struct {
	ChunksSent      int64
	BytesSent       int64
	ResultsReceived int64
	FinalResults    int64
}

type Session struct {
	id        string
	transport recognition.Transport
	pacer     audio.Pacer
	logger    *slog.Logger

	mu    sync.Mutex
	state State

	chunksSent      atomic.Int64
	bytesSent       atomic.Int64
	resultsReceived atomic.Int64
	finalResults    atomic.Int64
}

func New(id string, transport recognition.Transport, pacer audio.Pacer, logger *slog.Logger) *Session {
	if pacer == nil {
		pacer = audio.NoPacing{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		id:        id,
		transport: transport,
		pacer:     pacer,
		logger:    logger.With("session_id", id),
		state:     StateIdle,
	}
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Stats() Stats {
	return Stats{
		ChunksSent:      s.chunksSent.Load(),
		BytesSent:       s.bytesSent.Load(),
		ResultsReceived: s.resultsReceived.Load(),
		FinalResults:    s.finalResults.Load(),
	}
}

func (s *Session) transition(next State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Terminal() {
		return
	}
	s.logger.Debug("session state transition", "from", s.state.String(), "to", next.String())
	s.state = next
}

// Run streams source to the recognition service and hands every result to receiver. It
// takes ownership of source and closes it before returning. The returned error is nil
// once the service has closed the stream; otherwise it wraps one of ErrCancelled,
// ErrStreamInterrupted, audio.ErrDevice or recognition.ErrInvalidConfig.
func (s *Session) Run(ctx context.Context, source audio.ChunkSource, cfg recognition.Config, receiver ResultReceiver) (err error) {
	defer func() {
		if cerr := source.Close(); cerr != nil {
			s.logger.Warn("failed to close audio source", "error", cerr)
		}
	}()

	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.mu.Unlock()

	cfg = cfg.Clone()
	if err := cfg.Validate(); err != nil {
		s.transition(StateErrored)
		return err
	}
	if receiver == nil {
		receiver = Receivers()
	}

	defer func() {
		switch {
		case err == nil:
			s.transition(StateClosed)
		case errors.Is(err, ErrCancelled):
			s.transition(StateCancelled)
		default:
			s.transition(StateErrored)
		}
		stats := s.Stats()
		s.logger.Info("session finished",
			"state", s.State().String(),
			"chunks_sent", stats.ChunksSent,
			"bytes_sent", stats.BytesSent,
			"results_received", stats.ResultsReceived,
			"final_results", stats.FinalResults,
			"error", err)
	}()

	g, gctx := errgroup.WithContext(ctx)

	stream, err := s.transport.Open(gctx)
	if err != nil {
		return s.terminalError(ctx, fmt.Errorf("%w: open stream: %w", ErrStreamInterrupted, err))
	}
	defer func() {
		if cerr := stream.Close(); cerr != nil {
			s.logger.Debug("failed to close recognition stream", "error", cerr)
		}
	}()

	if err := stream.Send(recognition.ConfigRequest{Config: cfg}); err != nil {
		return s.terminalError(ctx, fmt.Errorf("%w: send config: %w", ErrStreamInterrupted, err))
	}
	s.transition(StateConfigSent)
	s.logger.Info("recognition config sent", "language", cfg.LanguageCode, "model", cfg.Model, "sample_rate_hertz", cfg.SampleRateHertz)

	sendCtx, stopSend := context.WithCancel(gctx)
	defer stopSend()

	s.transition(StateStreaming)
	g.Go(func() error {
		return s.sendLoop(sendCtx, gctx, source, stream)
	})
	g.Go(func() error {
		defer stopSend()
		return s.receiveLoop(stream, receiver)
	})

	return s.terminalError(ctx, g.Wait())
}

func (s *Session) sendLoop(ctx, groupCtx context.Context, source audio.ChunkSource, stream recognition.Stream) error {
	format := source.Format()
	for {
		chunk, err := source.Next(ctx)
		if errors.Is(err, io.EOF) {
			s.transition(StateDraining)
			s.logger.Debug("audio source exhausted; closing send side", "chunks_sent", s.chunksSent.Load())
			if err := stream.CloseSend(); err != nil {
				return fmt.Errorf("%w: close send: %w", ErrStreamInterrupted, err)
			}
			return nil
		}
		if err != nil {
			return s.sendLegError(groupCtx, err)
		}

		if err := s.pacer.Delay(ctx, chunk, format); err != nil {
			return s.sendLegError(groupCtx, err)
		}
		if err := stream.Send(recognition.AudioRequest{Chunk: chunk}); err != nil {
			// io.EOF means the service already ended the stream; Recv reports its status.
			if errors.Is(err, io.EOF) {
				s.logger.Info("service ended the stream while sending; stopping send", "chunk_index", chunk.Index)
				return nil
			}
			return fmt.Errorf("%w: send chunk %d: %w", ErrStreamInterrupted, chunk.Index, err)
		}
		s.chunksSent.Add(1)
		s.bytesSent.Add(int64(len(chunk.Data)))
	}
}

// sendLegError turns the send context being stopped by the receive leg (service ended
// the stream) into a clean exit.
func (s *Session) sendLegError(groupCtx context.Context, err error) error {
	if errors.Is(err, context.Canceled) && groupCtx.Err() == nil {
		s.logger.Info("service closed the stream before end of audio; stopping send")
		return nil
	}
	return err
}

func (s *Session) receiveLoop(stream recognition.Stream, receiver ResultReceiver) error {
	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			s.logger.Debug("recognition stream closed by service")
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: receive: %w", ErrStreamInterrupted, err)
		}
		if o, ok := receiver.(ResponseObserver); ok && len(resp.Results) > 0 {
			o.OnResponseStart()
		}
		for _, result := range resp.Results {
			s.resultsReceived.Add(1)
			if result.IsFinal {
				s.finalResults.Add(1)
			}
			receiver.OnResult(result)
		}
	}
}

// terminalError reports any failure observed after the caller cancelled ctx as a
// cancellation, since both legs fail as a consequence of it.
func (s *Session) terminalError(ctx context.Context, err error) error {
	if err != nil && ctx.Err() != nil {
		return fmt.Errorf("%w: %w", ErrCancelled, context.Cause(ctx))
	}
	return err
}
