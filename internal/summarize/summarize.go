// Package summarize wraps the LLM completion service that turns a voicemail
// transcript into a short natural-language summary.
package summarize

import "context"

// Summarizer produces a summary of a transcript. The instruction is the fixed
// deployment-level system directive (target language, verbosity); it is not
// caller-supplied.
type Summarizer interface {
	Summarize(ctx context.Context, text, instruction string) (string, error)
}
