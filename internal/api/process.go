package api

import (
	"context"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/snarg/voicemail-digest/internal/ingest"
	"github.com/snarg/voicemail-digest/internal/pipeline"
)

const maxUploadBytes = 32 << 20

// RunProcessor executes one pipeline run for a resolved audio source.
type RunProcessor interface {
	Process(ctx context.Context, src ingest.Source) *pipeline.Run
}

// ProcessHandler serves POST /process_audio in both variants: direct multipart
// upload and telephony-provider webhook pull.
type ProcessHandler struct {
	pipeline RunProcessor
	creds    ProviderCredentials
	fetch    ingest.FetchPolicy
	log      zerolog.Logger
}

// ProviderCredentials is the telephony account pair used to fetch webhook
// recordings. Configured per deployment, never caller-supplied.
type ProviderCredentials struct {
	AccountSID string
	AuthToken  string
}

// NewProcessHandler creates the processing handler.
func NewProcessHandler(p RunProcessor, creds ProviderCredentials, fetch ingest.FetchPolicy, log zerolog.Logger) *ProcessHandler {
	return &ProcessHandler{
		pipeline: p,
		creds:    creds,
		fetch:    fetch,
		log:      log.With().Str("handler", "process_audio").Logger(),
	}
}

// Routes registers the processing endpoint.
func (h *ProcessHandler) Routes(r chi.Router) {
	r.Post("/process_audio", h.Process)
}

// Process handles POST /process_audio.
// Variant A: multipart field "audio_file" (+optional "language" hint).
// Variant B: form field "RecordingUrl" from the provider's voicemail webhook.
// The variant is selected by which field the caller supplied.
func (h *ProcessHandler) Process(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	src, ok := h.selectSource(w, r)
	if !ok {
		return
	}

	run := h.pipeline.Process(r.Context(), src)
	if run.Completed() {
		WriteJSON(w, http.StatusOK, SummaryResponse{Summary: run.Summary})
		return
	}

	status, detail := failureResponse(run.Err)
	WriteError(w, status, detail)
}

// selectSource picks the ingestion variant from the request fields. A false
// return means a 400 has already been written.
func (h *ProcessHandler) selectSource(w http.ResponseWriter, r *http.Request) (ingest.Source, bool) {
	if file, header, err := r.FormFile("audio_file"); err == nil {
		defer file.Close()
		data, readErr := io.ReadAll(file)
		if readErr != nil {
			WriteError(w, http.StatusBadRequest, "failed to read audio file")
			return nil, false
		}
		language := r.FormValue("language")
		return ingest.NewDirectSource(data, header.Filename, language), true
	}

	// FormValue handles both urlencoded webhooks and multipart bodies.
	if recordingURL := r.FormValue("RecordingUrl"); recordingURL != "" {
		ref := ingest.RecordingReference{
			URL:      recordingURL,
			Username: h.creds.AccountSID,
			Password: h.creds.AuthToken,
		}
		return ingest.NewRemoteSource(ref, h.fetch, h.log), true
	}

	WriteError(w, http.StatusBadRequest, "audio_file or RecordingUrl is required")
	return nil, false
}

// failureResponse maps a terminal run failure to the caller-visible status and
// detail. Ingestion input errors are the caller's fault; everything downstream
// is a generic 500 that names the failed phase and nothing else.
func failureResponse(err *pipeline.StageError) (int, string) {
	if err.Kind == pipeline.KindEmptyInput {
		return http.StatusBadRequest, "no audio data provided"
	}
	switch err.Stage {
	case pipeline.StageResolving:
		return http.StatusInternalServerError, "Failed to fetch recording"
	case pipeline.StageTranscribing:
		return http.StatusInternalServerError, "Failed to transcribe audio"
	case pipeline.StageSummarizing:
		return http.StatusInternalServerError, "Failed to summarize text"
	default:
		return http.StatusInternalServerError, "Failed to process audio"
	}
}
