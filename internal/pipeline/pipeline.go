package pipeline

import (
	"context"
	"fmt"
	"time"

	"scribeflow/internal/align"
	"scribeflow/internal/domain"
	"scribeflow/internal/jobs"
	"scribeflow/internal/logging"
	"scribeflow/internal/policy"
)

// Transcriber converts an audio file into ordered transcript chunks.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) ([]domain.TranscriptChunk, error)
}

// Diarizer produces ordered speaker turns for an audio file. Zero turns is
// a legitimate result, not a failure.
type Diarizer interface {
	Diarize(ctx context.Context, audioPath string) ([]domain.SpeakerTurn, error)
}

// Preprocessor converts input media into the audio format the engines
// expect. Cleanup removes the temporary artifact.
type Preprocessor interface {
	Extract(ctx context.Context, inputPath string) (audioPath string, cleanup func(), err error)
}

// Anonymizer rewrites chunk text with sensitive spans redacted.
type Anonymizer interface {
	Redact(ctx context.Context, text string) (string, error)
}

// Summarizer produces a prose summary of an aligned transcript.
type Summarizer interface {
	Summarize(ctx context.Context, result domain.AlignmentResult) (string, error)
}

// StageError is a stage-aware pipeline failure. Only fatal classifications
// surface one; degrading stages log and continue.
type StageError struct {
	Stage   domain.JobState
	Message string
	Err     error

	transient bool
}

// Error formats the failure with its stage.
func (e *StageError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Stage, e.Message)
}

// Unwrap exposes the underlying error for errors.Is / errors.As.
func (e *StageError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Transient reports whether the failed job is worth requeuing. Engine
// failures are not: transcription is expensive and non-idempotent, and an
// alignment failure means malformed upstream data.
func (e *StageError) Transient() bool {
	return e != nil && e.transient
}

// Config holds per-stage timeouts and output shaping for pipeline runs.
type Config struct {
	TranscribeTimeout time.Duration
	DiarizeTimeout    time.Duration
	SummarizeTimeout  time.Duration

	Mode           domain.AlignMode
	ToggleDefaults policy.Defaults
	Anonymize      bool
	Summarize      bool
}

// Pipeline sequences the stages of one job: transcribe, optionally diarize,
// align, then the optional enrichments. Engine calls block for minutes;
// alignment is in-memory and short.
type Pipeline struct {
	preprocessor Preprocessor
	transcriber  Transcriber
	diarizer     Diarizer
	anonymizer   Anonymizer
	summarizer   Summarizer
	engine       *align.Engine
	manager      *jobs.Manager
	events       *jobs.EventBus
	logger       *logging.Logger
	cfg          Config
}

// Deps carries the pipeline's collaborators. Preprocessor, Anonymizer and
// Summarizer are optional; Transcriber, Diarizer, Engine are required.
type Deps struct {
	Preprocessor Preprocessor
	Transcriber  Transcriber
	Diarizer     Diarizer
	Anonymizer   Anonymizer
	Summarizer   Summarizer
	Engine       *align.Engine
	Manager      *jobs.Manager
	Events       *jobs.EventBus
	Logger       *logging.Logger
}

// New wires a pipeline from its collaborators.
func New(deps Deps, cfg Config) *Pipeline {
	if deps.Manager == nil {
		deps.Manager = jobs.NewManager()
	}
	if deps.Events == nil {
		deps.Events = jobs.NewEventBus(0)
	}
	if deps.Logger == nil {
		deps.Logger = logging.New()
	}
	if cfg.Mode == "" {
		cfg.Mode = domain.AlignModeGrouped
	}

	return &Pipeline{
		preprocessor: deps.Preprocessor,
		transcriber:  deps.Transcriber,
		diarizer:     deps.Diarizer,
		anonymizer:   deps.Anonymizer,
		summarizer:   deps.Summarizer,
		engine:       deps.Engine,
		manager:      deps.Manager,
		events:       deps.Events,
		logger:       deps.Logger,
		cfg:          cfg,
	}
}

// Run executes every stage for one job and leaves it Completed or Failed.
// Raw engine errors never escape: they are classified here as fatal (job
// fails) or degrading (enrichment omitted, job still completes).
func (p *Pipeline) Run(ctx context.Context, job *domain.Job) (domain.JobResult, error) {
	if err := p.manager.Begin(job); err != nil {
		return domain.JobResult{}, err
	}
	defer p.manager.Finish()

	logger := p.logger.With("job", job.ID, "source", job.SourcePath)

	audioPath := job.SourcePath
	if p.preprocessor != nil {
		p.transition(job, domain.JobStateExtracting)
		path, cleanup, err := p.preprocessor.Extract(ctx, job.SourcePath)
		if err != nil {
			// Usually transient I/O (partial copy, full disk); the drain
			// worker requeues these within the retry limit.
			return domain.JobResult{}, p.fail(job, logger, &StageError{
				Stage:     domain.JobStateExtracting,
				Message:   "audio extraction failed",
				Err:       err,
				transient: true,
			})
		}
		defer cleanup()
		audioPath = path
	}

	p.transition(job, domain.JobStateTranscribing)
	logger.Info("transcribing", "audio", audioPath)

	tctx, cancel := withTimeout(ctx, p.cfg.TranscribeTimeout)
	chunks, err := p.transcriber.Transcribe(tctx, audioPath)
	cancel()
	if err != nil {
		// Expensive and non-idempotent; not retried automatically.
		return domain.JobResult{}, p.fail(job, logger, &StageError{
			Stage:   domain.JobStateTranscribing,
			Message: "transcription engine failed",
			Err:     err,
		})
	}
	logger.Info("transcription done", "chunks", len(chunks))

	// Decided once and cached on the job; later configuration changes do
	// not affect this run.
	job.Diarize = policy.ShouldDiarize(
		job.ContentType, job.Subcategory, job.DiarizationOverride, p.cfg.ToggleDefaults)

	var turns []domain.SpeakerTurn
	if job.Diarize {
		p.transition(job, domain.JobStateDiarizing)
		logger.Info("diarizing")

		dctx, cancel := withTimeout(ctx, p.cfg.DiarizeTimeout)
		turns, err = p.diarizer.Diarize(dctx, audioPath)
		cancel()
		if err != nil {
			// Degrading: a transcript without speaker labels is still a
			// valid, deliverable result.
			p.degrade(job, logger, domain.JobStateDiarizing, err)
			turns = nil
		} else {
			logger.Info("diarization done", "turns", len(turns))
		}
	}

	p.transition(job, domain.JobStateAligning)
	result, err := p.engine.Align(chunks, turns, p.cfg.Mode)
	if err != nil {
		// Malformed upstream data; a defect, not a transient condition.
		return domain.JobResult{}, p.fail(job, logger, &StageError{
			Stage:   domain.JobStateAligning,
			Message: "alignment failed",
			Err:     err,
		})
	}

	out := domain.JobResult{Alignment: result}

	if p.cfg.Anonymize && p.anonymizer != nil {
		p.transition(job, domain.JobStateAnonymizing)
		if redacted, err := p.redactAll(ctx, result.Chunks); err != nil {
			p.degrade(job, logger, domain.JobStateAnonymizing, err)
		} else {
			out.Alignment.Chunks = redacted
			out.Anonymized = true
		}
	}

	if p.cfg.Summarize && p.summarizer != nil {
		p.transition(job, domain.JobStateSummarizing)

		sctx, cancel := withTimeout(ctx, p.cfg.SummarizeTimeout)
		summary, err := p.summarizer.Summarize(sctx, out.Alignment)
		cancel()
		if err != nil {
			p.degrade(job, logger, domain.JobStateSummarizing, err)
		} else {
			out.Summary = summary
		}
	}

	p.transition(job, domain.JobStateCompleted)
	logger.Info("job completed", "speakers", len(out.Alignment.SpeakerStats))
	out.Job = *job

	p.events.Publish(jobs.Event{
		JobID: job.ID,
		Type:  jobs.EventTypeResult,
		State: domain.JobStateCompleted,
	})
	return out, nil
}

// redactAll rewrites every chunk's text, returning a fresh slice so a
// partial failure never leaves the result half-redacted.
func (p *Pipeline) redactAll(ctx context.Context, chunks []domain.AlignedChunk) ([]domain.AlignedChunk, error) {
	out := make([]domain.AlignedChunk, len(chunks))
	for i, c := range chunks {
		text, err := p.anonymizer.Redact(ctx, c.Text)
		if err != nil {
			return nil, err
		}
		c.Text = text
		out[i] = c
	}
	return out, nil
}

// transition advances the job state and publishes a status event. Edges are
// validated by the manager; a rejection here is a programming error, so it
// is logged loudly rather than swallowed.
func (p *Pipeline) transition(job *domain.Job, state domain.JobState) {
	if err := p.manager.Transition(state); err != nil {
		p.logger.Error("state transition rejected", "job", job.ID, "to", state, "err", err)
		return
	}
	p.events.Publish(jobs.Event{
		JobID: job.ID,
		Type:  jobs.EventTypeStatus,
		State: state,
	})
}

// degrade records an optional-stage failure without failing the job.
func (p *Pipeline) degrade(job *domain.Job, logger *logging.Logger, stage domain.JobState, err error) {
	logger.Warn("optional stage failed, continuing without it", "stage", stage, "err", err)
	p.events.Publish(jobs.Event{
		JobID:   job.ID,
		Type:    jobs.EventTypeLog,
		Stage:   string(stage),
		Message: fmt.Sprintf("stage failed: %v", err),
	})
}

// fail moves the job to Failed and surfaces the classified error.
func (p *Pipeline) fail(job *domain.Job, logger *logging.Logger, stageErr *StageError) error {
	logger.Error("job failed", "stage", stageErr.Stage, "err", stageErr.Err)
	if err := p.manager.Transition(domain.JobStateFailed); err != nil {
		logger.Error("state transition rejected", "to", domain.JobStateFailed, "err", err)
	}
	p.events.Publish(jobs.Event{
		JobID:   job.ID,
		Type:    jobs.EventTypeError,
		State:   domain.JobStateFailed,
		Stage:   string(stageErr.Stage),
		Message: stageErr.Error(),
	})
	return stageErr
}

// withTimeout wraps ctx when a positive timeout is configured.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
