package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/snarg/voicemail-digest/internal/ingest"
	"github.com/snarg/voicemail-digest/internal/pipeline"
	"github.com/snarg/voicemail-digest/internal/storage"
	"github.com/snarg/voicemail-digest/internal/transcribe"
)

// stubProvider implements transcribe.Provider for handler tests.
type stubProvider struct {
	calls    atomic.Int32
	lastLang string
	text     string
	err      error
}

func (p *stubProvider) Transcribe(ctx context.Context, audioPath string, opts transcribe.TranscribeOpts) (*transcribe.Response, error) {
	p.calls.Add(1)
	p.lastLang = opts.Language
	if p.err != nil {
		return nil, p.err
	}
	return &transcribe.Response{Text: p.text, Language: "en"}, nil
}

func (p *stubProvider) Name() string  { return "stub" }
func (p *stubProvider) Model() string { return "stub-model" }

// stubSummarizer implements summarize.Summarizer for handler tests.
type stubSummarizer struct {
	calls   atomic.Int32
	summary string
	err     error
}

func (s *stubSummarizer) Summarize(ctx context.Context, text, instruction string) (string, error) {
	s.calls.Add(1)
	if s.err != nil {
		return "", s.err
	}
	return s.summary, nil
}

func newTestHandler(t *testing.T, provider *stubProvider, summarizer *stubSummarizer, fetch ingest.FetchPolicy) *ProcessHandler {
	t.Helper()
	orch := pipeline.New(pipeline.Options{
		Provider:          provider,
		Summarizer:        summarizer,
		Scratch:           storage.NewScratch(t.TempDir()),
		Instruction:       "Résume le message.",
		TranscribeTimeout: 5 * time.Second,
		SummarizeTimeout:  5 * time.Second,
		Log:               zerolog.Nop(),
	})
	creds := ProviderCredentials{AccountSID: "AC123", AuthToken: "token"}
	return NewProcessHandler(orch, creds, fetch, zerolog.Nop())
}

func buildMultipartForm(t *testing.T, fields map[string]string, fileField string, fileData []byte, fileName string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for k, v := range fields {
		writer.WriteField(k, v)
	}
	if fileField != "" {
		part, err := writer.CreateFormFile(fileField, fileName)
		if err != nil {
			t.Fatal(err)
		}
		part.Write(fileData)
	}
	writer.Close()
	return body, writer.FormDataContentType()
}

func postMultipart(t *testing.T, h *ProcessHandler, fields map[string]string, fileField string, fileData []byte, fileName string) *httptest.ResponseRecorder {
	t.Helper()
	body, ct := buildMultipartForm(t, fields, fileField, fileData, fileName)
	req := httptest.NewRequest("POST", "/process_audio", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	h.Process(rec, req)
	return rec
}

func postWebhook(t *testing.T, h *ProcessHandler, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", "/process_audio", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.Process(rec, req)
	return rec
}

func TestProcessAudio_DirectUpload(t *testing.T) {
	provider := &stubProvider{text: "hello world"}
	summarizer := &stubSummarizer{summary: "A short greeting."}
	h := newTestHandler(t, provider, summarizer, ingest.FetchPolicy{})

	rec := postMultipart(t, h, nil, "audio_file", []byte("RIFF-fake-3s-speech"), "hello_world.wav")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body = %s", rec.Code, rec.Body.String())
	}
	var resp SummaryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if resp.Summary != "A short greeting." {
		t.Errorf("summary = %q, want %q", resp.Summary, "A short greeting.")
	}
	if provider.lastLang != "" {
		t.Errorf("language hint = %q, want empty (none supplied)", provider.lastLang)
	}
}

func TestProcessAudio_LanguageHint(t *testing.T) {
	provider := &stubProvider{text: "bonjour"}
	summarizer := &stubSummarizer{summary: "Un salut."}
	h := newTestHandler(t, provider, summarizer, ingest.FetchPolicy{})

	rec := postMultipart(t, h, map[string]string{"language": "fr"}, "audio_file", []byte("audio"), "msg.wav")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if provider.lastLang != "fr" {
		t.Errorf("language hint = %q, want fr", provider.lastLang)
	}
}

func TestProcessAudio_MissingInputs(t *testing.T) {
	provider := &stubProvider{text: "never"}
	h := newTestHandler(t, provider, &stubSummarizer{}, ingest.FetchPolicy{})

	rec := postMultipart(t, h, map[string]string{"unrelated": "field"}, "", nil, "")

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400; body = %s", rec.Code, rec.Body.String())
	}
	if provider.calls.Load() != 0 {
		t.Errorf("provider called %d times, want 0", provider.calls.Load())
	}
}

func TestProcessAudio_EmptyUpload(t *testing.T) {
	provider := &stubProvider{text: "never"}
	h := newTestHandler(t, provider, &stubSummarizer{}, ingest.FetchPolicy{})

	rec := postMultipart(t, h, nil, "audio_file", []byte{}, "empty.wav")

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400; body = %s", rec.Code, rec.Body.String())
	}
	if provider.calls.Load() != 0 {
		t.Errorf("provider called %d times before ingestion check, want 0", provider.calls.Load())
	}
}

func TestProcessAudio_TranscriptionFailure(t *testing.T) {
	provider := &stubProvider{err: errors.New("decode failure: raw engine detail")}
	h := newTestHandler(t, provider, &stubSummarizer{}, ingest.FetchPolicy{})

	rec := postMultipart(t, h, nil, "audio_file", []byte("audio"), "a.wav")

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	var resp ErrorResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Detail != "Failed to transcribe audio" {
		t.Errorf("detail = %q, want generic transcription failure", resp.Detail)
	}
	if strings.Contains(rec.Body.String(), "raw engine detail") {
		t.Error("response leaked internal error text")
	}
}

func TestProcessAudio_EmptyTranscript(t *testing.T) {
	provider := &stubProvider{text: "   "}
	summarizer := &stubSummarizer{summary: "never"}
	h := newTestHandler(t, provider, summarizer, ingest.FetchPolicy{})

	rec := postMultipart(t, h, nil, "audio_file", []byte("silence"), "a.wav")

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if summarizer.calls.Load() != 0 {
		t.Errorf("summarizer called %d times for empty transcript, want 0", summarizer.calls.Load())
	}
}

func TestProcessAudio_SummarizationFailure(t *testing.T) {
	provider := &stubProvider{text: "some words"}
	summarizer := &stubSummarizer{err: errors.New("rate limit")}
	h := newTestHandler(t, provider, summarizer, ingest.FetchPolicy{})

	rec := postMultipart(t, h, nil, "audio_file", []byte("audio"), "a.wav")

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	var resp ErrorResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Detail != "Failed to summarize text" {
		t.Errorf("detail = %q, want generic summarization failure", resp.Detail)
	}
}

func TestProcessAudio_Webhook_MissingRecordingUrl(t *testing.T) {
	provider := &stubProvider{text: "never"}
	h := newTestHandler(t, provider, &stubSummarizer{}, ingest.FetchPolicy{})

	rec := postWebhook(t, h, url.Values{"CallSid": {"CA999"}})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400; body = %s", rec.Code, rec.Body.String())
	}
}

func TestProcessAudio_Webhook_FetchRetriesThenSucceeds(t *testing.T) {
	var hits atomic.Int32
	var gotUser, gotPass string
	recording := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, gotPass, _ = r.BasicAuth()
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte("RIFF-voicemail"))
	}))
	t.Cleanup(recording.Close)

	provider := &stubProvider{text: "call me back"}
	summarizer := &stubSummarizer{summary: "Caller requests a call back."}
	h := newTestHandler(t, provider, summarizer, ingest.FetchPolicy{
		InitialDelay:  time.Millisecond,
		RetryInterval: time.Millisecond,
		MaxRetries:    3,
		Timeout:       5 * time.Second,
	})

	rec := postWebhook(t, h, url.Values{"RecordingUrl": {recording.URL + "/rec/42"}})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body = %s", rec.Code, rec.Body.String())
	}
	var resp SummaryResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Summary != "Caller requests a call back." {
		t.Errorf("summary = %q", resp.Summary)
	}
	if got := hits.Load(); got != 3 {
		t.Errorf("fetch attempts = %d, want 3", got)
	}
	if gotUser != "AC123" || gotPass != "token" {
		t.Errorf("basic auth = %q/%q, want configured credentials", gotUser, gotPass)
	}
}

func TestProcessAudio_Webhook_ForbiddenNoRetry(t *testing.T) {
	var hits atomic.Int32
	recording := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	t.Cleanup(recording.Close)

	provider := &stubProvider{text: "never"}
	h := newTestHandler(t, provider, &stubSummarizer{}, ingest.FetchPolicy{
		InitialDelay:  time.Millisecond,
		RetryInterval: time.Millisecond,
		MaxRetries:    5,
		Timeout:       5 * time.Second,
	})

	rec := postWebhook(t, h, url.Values{"RecordingUrl": {recording.URL}})

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	var resp ErrorResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Detail != "Failed to fetch recording" {
		t.Errorf("detail = %q, want generic fetch failure", resp.Detail)
	}
	if got := hits.Load(); got != 1 {
		t.Errorf("fetch attempts = %d, want 1 (403 is never retried)", got)
	}
	if provider.calls.Load() != 0 {
		t.Errorf("provider called %d times after fetch failure, want 0", provider.calls.Load())
	}
}

func TestFailureResponse(t *testing.T) {
	tests := []struct {
		name   string
		err    *pipeline.StageError
		status int
		detail string
	}{
		{"empty_input", &pipeline.StageError{Stage: pipeline.StageResolving, Kind: pipeline.KindEmptyInput}, 400, "no audio data provided"},
		{"unavailable", &pipeline.StageError{Stage: pipeline.StageResolving, Kind: pipeline.KindRecordingUnavailable}, 500, "Failed to fetch recording"},
		{"unauthorized", &pipeline.StageError{Stage: pipeline.StageResolving, Kind: pipeline.KindUnauthorized}, 500, "Failed to fetch recording"},
		{"transcription", &pipeline.StageError{Stage: pipeline.StageTranscribing, Kind: pipeline.KindTranscription}, 500, "Failed to transcribe audio"},
		{"empty_transcript", &pipeline.StageError{Stage: pipeline.StageTranscribing, Kind: pipeline.KindEmptyTranscript}, 500, "Failed to transcribe audio"},
		{"summarization", &pipeline.StageError{Stage: pipeline.StageSummarizing, Kind: pipeline.KindSummarization}, 500, "Failed to summarize text"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, detail := failureResponse(tt.err)
			if status != tt.status || detail != tt.detail {
				t.Errorf("failureResponse = (%d, %q), want (%d, %q)", status, detail, tt.status, tt.detail)
			}
		})
	}
}
