package pipeline

import (
	"time"

	"github.com/google/uuid"
)

// State is the driver's position in a run.
type State string

const (
	StateInit       State = "init"
	StateFetching   State = "fetching"
	StateProcessing State = "processing"
	StateKickoff    State = "kickoff"
	StateDone       State = "done"
	StateFailed     State = "failed"
)

// Stage names the step of a run that failed.
type Stage string

const (
	StageFetch       Stage = "fetch"
	StageMitigations Stage = "mitigations"
	StageEmit        Stage = "emit"
	StageKickoff     Stage = "kickoff"
)

// Result summarizes a run. It is returned for failed runs as well.
type Result struct {
	RunID     uuid.UUID
	State     State
	StartedAt time.Time
	Duration  time.Duration

	Total             int
	PageCount         int
	Pages             []PageResult
	FindingsProcessed int

	MitigationFetches   int
	MitigationCacheHits int

	KickedOff bool
}

// PageResult describes one emitted page.
type PageResult struct {
	Page       int
	Findings   int
	Artifact   string
	Location   string
	DataFileID int64
}

// RunError is the terminal failure of a run. Its message is the message of
// the underlying error, unchanged.
type RunError struct {
	Page  int // -1 when the failure is not tied to a page
	Stage Stage
	Err   error
}

func (e *RunError) Error() string {
	return e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *RunError) Unwrap() error {
	return e.Err
}
