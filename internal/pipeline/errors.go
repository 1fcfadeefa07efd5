package pipeline

import (
	"errors"
	"fmt"

	"github.com/snarg/voicemail-digest/internal/ingest"
)

// Stage identifies where a run currently is, or where it failed.
type Stage string

const (
	StageReceived     Stage = "received"
	StageResolving    Stage = "resolving"
	StageTranscribing Stage = "transcribing"
	StageSummarizing  Stage = "summarizing"
	StageCompleted    Stage = "completed"
)

// Kind classifies a stage failure. Kinds cross the component boundary;
// underlying causes stay in logs.
type Kind string

const (
	KindEmptyInput           Kind = "empty_input"
	KindRecordingUnavailable Kind = "recording_unavailable"
	KindUnauthorized         Kind = "unauthorized"
	KindTransport            Kind = "transport_error"
	KindTranscription        Kind = "transcription_error"
	KindEmptyTranscript      Kind = "empty_transcript"
	KindSummarization        Kind = "summarization_error"
)

// StageError is the terminal failure of a run: which stage failed and how.
// Err carries the raw cause for operator logging, never for caller responses.
type StageError struct {
	Stage Stage
	Kind  Kind
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s failed (%s): %v", e.Stage, e.Kind, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// classifyIngest maps a tagged ingestion error to its failure kind.
func classifyIngest(err error) Kind {
	switch {
	case errors.Is(err, ingest.ErrEmptyInput):
		return KindEmptyInput
	case errors.Is(err, ingest.ErrUnauthorized):
		return KindUnauthorized
	case errors.Is(err, ingest.ErrRecordingUnavailable):
		return KindRecordingUnavailable
	default:
		return KindTransport
	}
}
