package recognition

import "github.com/foxseedlab/kikitori/internal/audio"

// Request is either a ConfigRequest or an AudioRequest. A stream carries exactly one
// ConfigRequest, first, followed by AudioRequests in chunk order.
type Request interface {
	isRequest()
}

type ConfigRequest struct {
	Config Config
}

type AudioRequest struct {
	Chunk audio.Chunk
}

func (ConfigRequest) isRequest() {}
func (AudioRequest) isRequest()  {}

type Alternative struct {
	Transcript string
	Confidence float64
}

// Result is one hypothesis set for an utterance span. Stability only carries meaning
// while IsFinal is false.
type Result struct {
	Alternatives []Alternative
	IsFinal      bool
	Stability    float64
}

func (r Result) Best() (Alternative, bool) {
	if len(r.Alternatives) == 0 {
		return Alternative{}, false
	}
	return r.Alternatives[0], true
}

type Response struct {
	Results []Result
}
