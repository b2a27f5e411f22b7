package app

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/afero"

	"scribeflow/internal/align"
	"scribeflow/internal/anonymize"
	"scribeflow/internal/config"
	"scribeflow/internal/diagnostics"
	"scribeflow/internal/domain"
	"scribeflow/internal/engines/pyannote"
	"scribeflow/internal/engines/whisper"
	"scribeflow/internal/ingest"
	"scribeflow/internal/jobs"
	"scribeflow/internal/logging"
	"scribeflow/internal/media"
	"scribeflow/internal/output"
	"scribeflow/internal/pipeline"
	"scribeflow/internal/policy"
	"scribeflow/internal/summarize"
)

// App wires configuration, queue, pipeline, and engines into one service.
type App struct {
	Settings domain.Settings
	Store    config.Store
	Logger   *logging.Logger
	Events   *jobs.EventBus
	Queue    *ingest.Queue
	Pipeline *pipeline.Pipeline
	Renderer *output.Renderer
	Checker  *diagnostics.Checker
}

// New builds the application from persisted settings.
func New(logger *logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.New()
	}

	fs := afero.NewOsFs()
	store := config.NewJSONStore(fs, config.DefaultPath())
	settings, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	engine := align.NewEngine(align.Options{
		LookAround:  settings.LookAroundSec,
		MaxSilence:  settings.MaxSilenceSec,
		OverlapOnly: settings.OverlapOnly,
	})

	var summarizer pipeline.Summarizer
	if settings.Summarize {
		s, err := summarize.New(settings.OllamaURL, settings.SummaryModel)
		if err != nil {
			// Degrading enrichment: the service still runs without it.
			logger.Warn("summarizer unavailable, stage disabled", "err", err)
		} else {
			summarizer = s
		}
	}

	var anonymizer pipeline.Anonymizer
	if settings.Anonymize {
		r, err := anonymize.New(settings.RedactNames)
		if err != nil {
			return nil, fmt.Errorf("build redactor: %w", err)
		}
		anonymizer = r
	}

	mode := domain.AlignModeChunkLevel
	if settings.GroupedOutput {
		mode = domain.AlignModeGrouped
	}

	events := jobs.NewEventBus(1000)
	pipe := pipeline.New(pipeline.Deps{
		Preprocessor: media.NewExtractor(settings.FFmpegPath),
		Transcriber:  whisper.New(settings.WhisperPath, settings.ModelPath, settings.Language),
		Diarizer:     pyannote.New(settings.DiarizerPath),
		Anonymizer:   anonymizer,
		Summarizer:   summarizer,
		Engine:       engine,
		Manager:      jobs.NewManager(),
		Events:       events,
		Logger:       logger,
	}, pipeline.Config{
		TranscribeTimeout: time.Duration(settings.TranscribeTimeoutMin) * time.Minute,
		DiarizeTimeout:    time.Duration(settings.DiarizeTimeoutMin) * time.Minute,
		SummarizeTimeout:  time.Duration(settings.SummarizeTimeoutMin) * time.Minute,
		Mode:              mode,
		ToggleDefaults:    policy.DefaultsFromSettings(settings),
		Anonymize:         settings.Anonymize && anonymizer != nil,
		Summarize:         settings.Summarize && summarizer != nil,
	})

	quiet := time.Duration(settings.QuietPeriodSec * float64(time.Second))
	queue := ingest.NewQueue(fs, logger, quiet, settings.MaxRetries)

	return &App{
		Settings: settings,
		Store:    store,
		Logger:   logger,
		Events:   events,
		Queue:    queue,
		Pipeline: pipe,
		Renderer: output.NewRenderer(fs, settings.OutputDir),
		Checker:  diagnostics.NewChecker(),
	}, nil
}

// ProcessFile admits one file and runs it to completion, bypassing the
// watch folder. Used by the process command.
func (a *App) ProcessFile(ctx context.Context, req ingest.AdmitRequest) (domain.JobResult, error) {
	job, err := a.Queue.Admit(req)
	if err != nil {
		return domain.JobResult{}, err
	}
	// Single caller, so the admitted job is the head.
	job = a.Queue.Next()
	defer a.Queue.Done(job)

	result, err := a.Pipeline.Run(ctx, job)
	if err != nil {
		return domain.JobResult{}, err
	}

	path, err := a.Renderer.Write(result)
	if err != nil {
		return domain.JobResult{}, fmt.Errorf("write transcript: %w", err)
	}
	result.OutputPath = path
	return result, nil
}

// Watch runs the watch-folder service until ctx is cancelled: a recursive
// watcher feeding the queue and a single drain worker processing it.
func (a *App) Watch(ctx context.Context) error {
	watcher, err := ingest.NewWatcher(
		a.Settings.WatchDir,
		domain.ContentTypeMeeting,
		a.Queue,
		time.Second,
		a.Logger,
	)
	if err != nil {
		return err
	}

	worker := ingest.NewWorker(a.Queue, a.Pipeline, a.Renderer, a.Logger)

	go func() {
		watcher.Scan()
		if err := watcher.Run(ctx); err != nil && ctx.Err() == nil {
			a.Logger.Error("watcher stopped", "err", err)
		}
	}()

	a.Logger.Info("watching for recordings", "dir", a.Settings.WatchDir)
	worker.Drain(ctx)
	return ctx.Err()
}
