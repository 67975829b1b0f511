package recognition

import "context"

type Transport interface {
	Open(ctx context.Context) (Stream, error)
}

// Stream is one bidirectional recognition exchange. Send and Recv may be called from
// different goroutines; Recv returns io.EOF once the service has closed the stream.
type Stream interface {
	Send(req Request) error
	CloseSend() error
	Recv() (Response, error)
	Close() error
}
