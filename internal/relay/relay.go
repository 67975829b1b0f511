package relay

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/foxseedlab/kikitori/internal/recognition"
)

const (
	DefaultQueueSize   = 64
	defaultSendTimeout = 10 * time.Second
)

// Event is one final transcript forwarded to the relay senders. Index counts final
// results within a session starting at zero.
type Event struct {
	SessionID  string    `json:"session_id"`
	Index      int       `json:"index"`
	Transcript string    `json:"transcript"`
	Confidence float64   `json:"confidence"`
	ReceivedAt time.Time `json:"received_at"`
}

type Sender interface {
	Name() string
	Send(ctx context.Context, event Event) error
	Close() error
}

// NopSender stands in for a sender whose destination is not configured.
type NopSender struct {
	SenderName string
}

func (n NopSender) Name() string                        { return n.SenderName }
func (NopSender) Send(_ context.Context, _ Event) error { return nil }
func (NopSender) Close() error                          { return nil }

// Active drops nil and NopSender entries.
func Active(senders ...Sender) []Sender {
	out := make([]Sender, 0, len(senders))
	for _, s := range senders {
		if s == nil {
			continue
		}
		if _, ok := s.(NopSender); ok {
			continue
		}
		out = append(out, s)
	}
	return out
}

// Dispatcher hands final results to senders on its own goroutine so that slow
// destinations never hold up the receive leg. When the queue is full the event is
// dropped.
type Dispatcher struct {
	sessionID   string
	senders     []Sender
	logger      *slog.Logger
	sendTimeout time.Duration
	now         func() time.Time

	mu        sync.Mutex
	queue     chan Event
	closed    bool
	nextIndex int
	done      chan struct{}
	closeOnce sync.Once
	closeErr  error

	delivered atomic.Int64
	dropped   atomic.Int64
	failed    atomic.Int64
}

func NewDispatcher(sessionID string, senders []Sender, capacity int, logger *slog.Logger) *Dispatcher {
	if capacity <= 0 {
		capacity = DefaultQueueSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	d := &Dispatcher{
		sessionID:   sessionID,
		senders:     senders,
		logger:      logger.With("session_id", sessionID),
		sendTimeout: defaultSendTimeout,
		now:         time.Now,
		queue:       make(chan Event, capacity),
		done:        make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *Dispatcher) OnResult(result recognition.Result) {
	if !result.IsFinal || len(d.senders) == 0 {
		return
	}
	alt, ok := result.Best()
	if !ok {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	ev := Event{
		SessionID:  d.sessionID,
		Index:      d.nextIndex,
		Transcript: alt.Transcript,
		Confidence: alt.Confidence,
		ReceivedAt: d.now(),
	}
	d.nextIndex++
	select {
	case d.queue <- ev:
	default:
		d.dropped.Add(1)
		d.logger.Warn("relay queue full; dropping transcript event", "index", ev.Index, "queue_size", cap(d.queue))
	}
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for ev := range d.queue {
		for _, s := range d.senders {
			ctx, cancel := context.WithTimeout(context.Background(), d.sendTimeout)
			err := s.Send(ctx, ev)
			cancel()
			if err != nil {
				d.failed.Add(1)
				d.logger.Error("failed to relay transcript event", "sender", s.Name(), "index", ev.Index, "error", err)
				continue
			}
			d.delivered.Add(1)
		}
	}
}

// Close stops accepting events, waits until queued events have been handed to every
// sender, and closes the senders.
func (d *Dispatcher) Close() error {
	d.closeOnce.Do(func() {
		d.mu.Lock()
		d.closed = true
		close(d.queue)
		d.mu.Unlock()
		<-d.done

		var errs []error
		for _, s := range d.senders {
			if err := s.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		d.closeErr = errors.Join(errs...)
		d.logger.Info("relay dispatcher closed",
			"delivered", d.delivered.Load(),
			"dropped", d.dropped.Load(),
			"failed", d.failed.Load())
	})
	return d.closeErr
}

func (d *Dispatcher) Dropped() int64 {
	return d.dropped.Load()
}

func (d *Dispatcher) Failed() int64 {
	return d.failed.Load()
}
