package ingest

import (
	"context"
	"errors"
)

// Tagged ingestion failures. Sources wrap the underlying cause with one of
// these so the pipeline can classify failures without inspecting transports.
var (
	ErrEmptyInput           = errors.New("empty audio input")
	ErrRecordingUnavailable = errors.New("recording unavailable")
	ErrUnauthorized         = errors.New("unauthorized recording fetch")
	ErrTransport            = errors.New("recording transport error")
)

// AudioBlob is the normalized in-memory form of one recording, however it
// arrived. It lives for a single pipeline run and is discarded after
// transcription.
type AudioBlob struct {
	Data     []byte
	Ext      string // file extension hint without dot, e.g. "wav"
	Language string // optional ISO-639 recognition hint
}

// Source resolves raw audio bytes from one acquisition path.
// Implementations: DirectSource (request body) and RemoteSource (provider URL).
type Source interface {
	Resolve(ctx context.Context) (*AudioBlob, error)
}
