package transcribe

import "context"

// Provider is the interface for speech-to-text backends.
type Provider interface {
	Transcribe(ctx context.Context, audioPath string, opts TranscribeOpts) (*Response, error)
	Name() string  // "whisper", "elevenlabs"
	Model() string // model identifier for logs
}

// TranscribeOpts are per-request options for any provider.
// Zero-value fields are omitted from the request.
type TranscribeOpts struct {
	Language    string  // ISO-639 hint; empty = provider autodetects
	Temperature float64 // sampling temperature where supported
	Prompt      string  // initial prompt / domain vocabulary
}

// Response is the common transcription result from any provider.
type Response struct {
	Text     string
	Language string  // detected or confirmed language
	Duration float64 // audio duration in seconds, 0 if unknown
}
