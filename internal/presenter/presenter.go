package presenter

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/foxseedlab/kikitori/internal/recognition"
)

type Options struct {
	ShowIntermediate bool
	PrintConfidence  bool
}

// Presenter renders recognition results as lines on w. It writes at most one line per
// result so it never holds up the receive leg for longer than a single write.
type Presenter struct {
	w      io.Writer
	opts   Options
	logger *slog.Logger

	mu       sync.Mutex
	seen     int
	grouped  bool
	pending  []string
	writeErr error
}

func New(w io.Writer, opts Options, logger *slog.Logger) *Presenter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Presenter{w: w, opts: opts, logger: logger}
}

// OnResponseStart marks a new service response. Non-final results of one response are
// consecutive pieces of the same utterance, so they are kept together until the next
// response replaces them.
func (p *Presenter) OnResponseStart() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.grouped = true
	p.pending = p.pending[:0]
}

func (p *Presenter) OnResult(result recognition.Result) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.seen++
	alt, ok := result.Best()
	if !ok {
		p.logger.Debug("result without alternatives", "result_number", p.seen, "is_final", result.IsFinal)
		return
	}
	p.logger.Debug("result received", "result_number", p.seen, "is_final", result.IsFinal, "alternatives", len(result.Alternatives))

	if result.IsFinal {
		p.pending = p.pending[:0]
		line := "Final transcript: " + alt.Transcript
		if p.opts.PrintConfidence {
			line += fmt.Sprintf("  Confidence: %.4f", alt.Confidence)
		}
		p.writeLine(line)
		return
	}

	if !p.grouped {
		p.pending = p.pending[:0]
	}
	p.pending = append(p.pending, alt.Transcript)
	if !p.opts.ShowIntermediate {
		return
	}
	line := "Partial transcript: " + alt.Transcript
	if p.opts.PrintConfidence {
		line += fmt.Sprintf("  Stability: %.4f", result.Stability)
	}
	p.writeLine(line)
}

// Finish reports an utterance that never received a final result as incomplete, then
// err when the session did not end cleanly. It returns the first write error seen.
func (p *Presenter) Finish(err error) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if text := strings.Join(p.pending, ""); text != "" {
		p.writeLine("Incomplete transcript: " + text)
	}
	p.pending = p.pending[:0]
	if err != nil {
		p.writeLine("Error: " + err.Error())
	}
	return p.writeErr
}

func (p *Presenter) writeLine(line string) {
	if p.writeErr != nil {
		return
	}
	if _, err := io.WriteString(p.w, line+"\n"); err != nil {
		p.writeErr = err
		p.logger.Error("failed to write transcript line", "error", err)
	}
}
