package repository

import "time"

type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusClosed    RunStatus = "closed"
	RunStatusErrored   RunStatus = "errored"
	RunStatusCancelled RunStatus = "cancelled"
)

// Run is one transcription session. Transcript text is never recorded.
type Run struct {
	ID              string
	Source          string
	LanguageCode    string
	Model           string
	StartedAt       time.Time
	EndedAt         *time.Time
	Status          RunStatus
	ChunksSent      int64
	BytesSent       int64
	ResultsReceived int64
	FinalResults    int64
	ErrorMessage    string
}
