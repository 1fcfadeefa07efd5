package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/snarg/voicemail-digest/internal/ingest"
	"github.com/snarg/voicemail-digest/internal/metrics"
	"github.com/snarg/voicemail-digest/internal/storage"
	"github.com/snarg/voicemail-digest/internal/summarize"
	"github.com/snarg/voicemail-digest/internal/transcribe"
)

// Options configures the orchestrator.
type Options struct {
	Provider          transcribe.Provider
	Summarizer        summarize.Summarizer
	Scratch           *storage.Scratch
	Instruction       string // fixed system directive for summarization
	TranscribeTimeout time.Duration
	SummarizeTimeout  time.Duration
	Log               zerolog.Logger
}

// Orchestrator drives one run through resolve → transcribe → summarize.
// It owns the cross-cutting failure policy; collaborators are shared,
// stateless per call, and safe for concurrent runs.
type Orchestrator struct {
	opts Options
	log  zerolog.Logger
}

// New creates an orchestrator around the injected collaborators.
func New(opts Options) *Orchestrator {
	return &Orchestrator{
		opts: opts,
		log:  opts.Log.With().Str("component", "pipeline").Logger(),
	}
}

// Process executes one run to completion or terminal failure. Transitions are
// strictly forward; a stage failure ends the run with that stage and kind
// recorded. The returned Run always has a terminal stage.
func (o *Orchestrator) Process(ctx context.Context, src ingest.Source) *Run {
	run := newRun()
	log := o.log.With().Str("run_id", run.ID).Logger()

	// Resolving
	run.Stage = StageResolving
	resolveStart := time.Now()
	blob, err := src.Resolve(ctx)
	metrics.StageDuration.WithLabelValues(string(StageResolving)).Observe(time.Since(resolveStart).Seconds())
	if err != nil {
		return o.failed(log, run.fail(StageResolving, classifyIngest(err), err))
	}

	// Staging is internal to the handoff: providers read files, not bytes.
	audioPath, cleanup, err := o.opts.Scratch.Stage(run.ID, blob.Ext, blob.Data)
	if err != nil {
		return o.failed(log, run.fail(StageTranscribing, KindTranscription, err))
	}
	defer cleanup()

	// Transcribing
	run.Stage = StageTranscribing
	tctx, tcancel := stageContext(ctx, o.opts.TranscribeTimeout)
	defer tcancel()
	transcribeStart := time.Now()
	resp, err := o.opts.Provider.Transcribe(tctx, audioPath, transcribe.TranscribeOpts{
		Language: blob.Language,
	})
	metrics.StageDuration.WithLabelValues(string(StageTranscribing)).Observe(time.Since(transcribeStart).Seconds())
	if err != nil {
		return o.failed(log, run.fail(StageTranscribing, KindTranscription, err))
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return o.failed(log, run.fail(StageTranscribing, KindEmptyTranscript, nil))
	}
	log.Debug().
		Str("provider", o.opts.Provider.Name()).
		Str("language", resp.Language).
		Int("chars", len(text)).
		Msg("transcription complete")

	// Summarizing
	run.Stage = StageSummarizing
	sctx, scancel := stageContext(ctx, o.opts.SummarizeTimeout)
	defer scancel()
	summarizeStart := time.Now()
	summary, err := o.opts.Summarizer.Summarize(sctx, text, o.opts.Instruction)
	metrics.StageDuration.WithLabelValues(string(StageSummarizing)).Observe(time.Since(summarizeStart).Seconds())
	if err != nil {
		return o.failed(log, run.fail(StageSummarizing, KindSummarization, err))
	}

	run.Stage = StageCompleted
	run.Summary = summary
	metrics.RunsTotal.WithLabelValues("completed").Inc()
	log.Info().
		Dur("duration_ms", time.Since(run.StartedAt)).
		Int("summary_chars", len(summary)).
		Msg("run completed")

	return run
}

// stageContext bounds a stage call; a non-positive timeout means no bound
// beyond the request's own context.
func stageContext(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// failed records metrics and the operator-facing diagnostic, then returns the run.
func (o *Orchestrator) failed(log zerolog.Logger, run *Run) *Run {
	metrics.RunsTotal.WithLabelValues("failed").Inc()
	metrics.StageFailuresTotal.WithLabelValues(string(run.Err.Stage), string(run.Err.Kind)).Inc()
	log.Warn().
		Err(run.Err.Err).
		Str("stage", string(run.Err.Stage)).
		Str("kind", string(run.Err.Kind)).
		Dur("duration_ms", time.Since(run.StartedAt)).
		Msg("run failed")
	return run
}
