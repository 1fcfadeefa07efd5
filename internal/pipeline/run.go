package pipeline

import (
	"time"

	"github.com/google/uuid"
)

// Run is the per-request aggregate: one audio input, three ordered stages,
// one terminal outcome. Runs are created on request arrival, advanced only by
// the orchestrator, and never outlive their request.
type Run struct {
	ID        string
	Stage     Stage
	Summary   string // set only when Stage == StageCompleted
	Err       *StageError
	StartedAt time.Time
}

func newRun() *Run {
	return &Run{
		ID:        uuid.NewString(),
		Stage:     StageReceived,
		StartedAt: time.Now(),
	}
}

// Completed reports whether the run produced a summary.
func (r *Run) Completed() bool { return r.Stage == StageCompleted }

func (r *Run) fail(stage Stage, kind Kind, err error) *Run {
	r.Stage = stage
	r.Err = &StageError{Stage: stage, Kind: kind, Err: err}
	return r
}
