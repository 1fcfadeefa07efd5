package ingest

import (
	"context"
	"path/filepath"
	"strings"
)

// DirectSource wraps audio bytes already received in the request body.
type DirectSource struct {
	data     []byte
	filename string
	language string
}

// NewDirectSource creates a source over uploaded bytes. The filename is only
// used to infer the audio format; language is an optional recognition hint.
func NewDirectSource(data []byte, filename, language string) *DirectSource {
	return &DirectSource{data: data, filename: filename, language: language}
}

func (s *DirectSource) Resolve(ctx context.Context) (*AudioBlob, error) {
	if len(s.data) == 0 {
		return nil, ErrEmptyInput
	}
	return &AudioBlob{
		Data:     s.data,
		Ext:      extOrDefault(s.filename),
		Language: s.language,
	}, nil
}

// extOrDefault infers the audio format from a filename or URL path.
// Falls back to wav, the telephony provider's recording format.
func extOrDefault(name string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	if ext == "" {
		return "wav"
	}
	return ext
}
