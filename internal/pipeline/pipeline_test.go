package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scribeflow/internal/align"
	"scribeflow/internal/domain"
	"scribeflow/internal/jobs"
	"scribeflow/internal/logging"
	"scribeflow/internal/policy"
)

type fakeTranscriber struct {
	chunks []domain.TranscriptChunk
	err    error
	calls  int
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, audioPath string) ([]domain.TranscriptChunk, error) {
	f.calls++
	return f.chunks, f.err
}

type fakeDiarizer struct {
	turns []domain.SpeakerTurn
	err   error
	calls int
}

func (f *fakeDiarizer) Diarize(ctx context.Context, audioPath string) ([]domain.SpeakerTurn, error) {
	f.calls++
	return f.turns, f.err
}

type fakeAnonymizer struct {
	err error
}

func (f *fakeAnonymizer) Redact(ctx context.Context, text string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "[redacted] " + text, nil
}

type fakeSummarizer struct {
	summary string
	err     error
}

func (f *fakeSummarizer) Summarize(ctx context.Context, result domain.AlignmentResult) (string, error) {
	return f.summary, f.err
}

type fakePreprocessor struct {
	path    string
	err     error
	cleaned bool
}

func (f *fakePreprocessor) Extract(ctx context.Context, inputPath string) (string, func(), error) {
	if f.err != nil {
		return "", nil, f.err
	}
	return f.path, func() { f.cleaned = true }, nil
}

func sampleChunks() []domain.TranscriptChunk {
	return []domain.TranscriptChunk{
		{Start: 0, End: 1, Text: "Hello there"},
		{Start: 1, End: 3, Text: "How are you"},
		{Start: 3, End: 5, Text: "I am fine"},
	}
}

func sampleTurns() []domain.SpeakerTurn {
	return []domain.SpeakerTurn{
		{Start: 0, End: 2, SpeakerID: "SpeakerA"},
		{Start: 2, End: 5, SpeakerID: "SpeakerB"},
	}
}

func meetingJob() *domain.Job {
	return &domain.Job{
		ID:          "job-1",
		SourcePath:  "/in/meeting.wav",
		ContentType: domain.ContentTypeMeeting,
		State:       domain.JobStateQueued,
	}
}

func diarizeAllDefaults() policy.Defaults {
	return policy.Defaults{
		ByType: map[domain.ContentType]bool{domain.ContentTypeMeeting: true},
	}
}

func newTestPipeline(deps Deps, cfg Config) (*Pipeline, *jobs.EventBus) {
	if deps.Engine == nil {
		deps.Engine = align.NewEngine(align.DefaultOptions())
	}
	if deps.Events == nil {
		deps.Events = jobs.NewEventBus(100)
	}
	deps.Logger = logging.Nop()
	return New(deps, cfg), deps.Events
}

func statusTrail(bus *jobs.EventBus) []domain.JobState {
	var trail []domain.JobState
	for _, e := range bus.Since(0) {
		if e.Type == jobs.EventTypeStatus {
			trail = append(trail, e.State)
		}
	}
	return trail
}

func TestRunFullPath(t *testing.T) {
	tr := &fakeTranscriber{chunks: sampleChunks()}
	di := &fakeDiarizer{turns: sampleTurns()}
	p, bus := newTestPipeline(
		Deps{Transcriber: tr, Diarizer: di},
		Config{Mode: domain.AlignModeChunkLevel, ToggleDefaults: diarizeAllDefaults()},
	)

	job := meetingJob()
	out, err := p.Run(context.Background(), job)
	require.NoError(t, err)

	assert.Equal(t, domain.JobStateCompleted, job.State)
	assert.True(t, job.Diarize)
	assert.Equal(t, 1, tr.calls)
	assert.Equal(t, 1, di.calls)
	require.Len(t, out.Alignment.Chunks, 3)
	assert.Equal(t, "SpeakerA", out.Alignment.Chunks[0].SpeakerID)
	assert.Equal(t, "SpeakerB", out.Alignment.Chunks[2].SpeakerID)

	assert.Equal(t, []domain.JobState{
		domain.JobStateTranscribing,
		domain.JobStateDiarizing,
		domain.JobStateAligning,
		domain.JobStateCompleted,
	}, statusTrail(bus))
}

func TestRunDiarizationDisabledByPolicy(t *testing.T) {
	di := &fakeDiarizer{turns: sampleTurns()}
	p, bus := newTestPipeline(
		Deps{Transcriber: &fakeTranscriber{chunks: sampleChunks()}, Diarizer: di},
		Config{Mode: domain.AlignModeChunkLevel},
	)

	job := meetingJob()
	out, err := p.Run(context.Background(), job)
	require.NoError(t, err)

	assert.False(t, job.Diarize)
	assert.Zero(t, di.calls)
	assert.False(t, out.Alignment.HasSpeakers())
	assert.NotContains(t, statusTrail(bus), domain.JobStateDiarizing)
}

func TestRunDiarizationFailureDegrades(t *testing.T) {
	di := &fakeDiarizer{err: errors.New("diarizer crashed")}
	p, bus := newTestPipeline(
		Deps{Transcriber: &fakeTranscriber{chunks: sampleChunks()}, Diarizer: di},
		Config{Mode: domain.AlignModeChunkLevel, ToggleDefaults: diarizeAllDefaults()},
	)

	job := meetingJob()
	out, err := p.Run(context.Background(), job)
	require.NoError(t, err)

	// The job completes with an unlabeled transcript, never fails.
	assert.Equal(t, domain.JobStateCompleted, job.State)
	require.Len(t, out.Alignment.Chunks, 3)
	for _, c := range out.Alignment.Chunks {
		assert.Empty(t, c.SpeakerID)
	}

	var degraded bool
	for _, e := range bus.Since(0) {
		if e.Type == jobs.EventTypeLog && e.Stage == string(domain.JobStateDiarizing) {
			degraded = true
		}
	}
	assert.True(t, degraded)
}

func TestRunTranscriptionFailureIsFatal(t *testing.T) {
	p, bus := newTestPipeline(
		Deps{Transcriber: &fakeTranscriber{err: errors.New("model not found")}, Diarizer: &fakeDiarizer{}},
		Config{Mode: domain.AlignModeChunkLevel},
	)

	job := meetingJob()
	_, err := p.Run(context.Background(), job)
	require.Error(t, err)

	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, domain.JobStateTranscribing, stageErr.Stage)
	assert.False(t, stageErr.Transient())
	assert.Equal(t, domain.JobStateFailed, job.State)

	var failed bool
	for _, e := range bus.Since(0) {
		if e.Type == jobs.EventTypeError {
			failed = true
		}
	}
	assert.True(t, failed)
}

func TestRunAlignmentFailureIsFatal(t *testing.T) {
	bad := []domain.TranscriptChunk{{Start: 5, End: 2, Text: "broken"}}
	p, _ := newTestPipeline(
		Deps{Transcriber: &fakeTranscriber{chunks: bad}, Diarizer: &fakeDiarizer{}},
		Config{Mode: domain.AlignModeChunkLevel},
	)

	job := meetingJob()
	_, err := p.Run(context.Background(), job)
	require.Error(t, err)

	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, domain.JobStateAligning, stageErr.Stage)

	var alignErr *align.Error
	assert.ErrorAs(t, err, &alignErr)
	assert.Equal(t, domain.JobStateFailed, job.State)
}

func TestRunPreprocessorFailureIsFatal(t *testing.T) {
	p, bus := newTestPipeline(
		Deps{
			Preprocessor: &fakePreprocessor{err: errors.New("ffmpeg exited 1")},
			Transcriber:  &fakeTranscriber{chunks: sampleChunks()},
			Diarizer:     &fakeDiarizer{},
		},
		Config{Mode: domain.AlignModeChunkLevel},
	)

	job := meetingJob()
	_, err := p.Run(context.Background(), job)
	require.Error(t, err)
	assert.Equal(t, domain.JobStateFailed, job.State)

	// The failure is attributed to extraction, not transcription, and is
	// classified transient so the drain worker may requeue the job.
	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, domain.JobStateExtracting, stageErr.Stage)
	assert.True(t, stageErr.Transient())
	assert.Equal(t, []domain.JobState{domain.JobStateExtracting}, statusTrail(bus))
}

func TestRunPreprocessorCleanupRuns(t *testing.T) {
	pre := &fakePreprocessor{path: "/tmp/extracted.wav"}
	tr := &fakeTranscriber{chunks: sampleChunks()}
	p, _ := newTestPipeline(
		Deps{Preprocessor: pre, Transcriber: tr, Diarizer: &fakeDiarizer{}},
		Config{Mode: domain.AlignModeChunkLevel},
	)

	_, err := p.Run(context.Background(), meetingJob())
	require.NoError(t, err)
	assert.True(t, pre.cleaned)
}

func TestRunAnonymize(t *testing.T) {
	p, _ := newTestPipeline(
		Deps{
			Transcriber: &fakeTranscriber{chunks: sampleChunks()},
			Diarizer:    &fakeDiarizer{},
			Anonymizer:  &fakeAnonymizer{},
		},
		Config{Mode: domain.AlignModeChunkLevel, Anonymize: true},
	)

	job := meetingJob()
	out, err := p.Run(context.Background(), job)
	require.NoError(t, err)
	assert.True(t, out.Anonymized)
	assert.Equal(t, "[redacted] Hello there", out.Alignment.Chunks[0].Text)
	assert.Equal(t, domain.JobStateCompleted, job.State)
}

func TestRunAnonymizeFailureDegrades(t *testing.T) {
	p, _ := newTestPipeline(
		Deps{
			Transcriber: &fakeTranscriber{chunks: sampleChunks()},
			Diarizer:    &fakeDiarizer{},
			Anonymizer:  &fakeAnonymizer{err: errors.New("redaction failed")},
		},
		Config{Mode: domain.AlignModeChunkLevel, Anonymize: true},
	)

	job := meetingJob()
	out, err := p.Run(context.Background(), job)
	require.NoError(t, err)
	assert.False(t, out.Anonymized)
	// Original text survives untouched when redaction fails midway.
	assert.Equal(t, "Hello there", out.Alignment.Chunks[0].Text)
	assert.Equal(t, domain.JobStateCompleted, job.State)
}

func TestRunSummarize(t *testing.T) {
	p, _ := newTestPipeline(
		Deps{
			Transcriber: &fakeTranscriber{chunks: sampleChunks()},
			Diarizer:    &fakeDiarizer{},
			Summarizer:  &fakeSummarizer{summary: "Two people talked."},
		},
		Config{Mode: domain.AlignModeChunkLevel, Summarize: true},
	)

	out, err := p.Run(context.Background(), meetingJob())
	require.NoError(t, err)
	assert.Equal(t, "Two people talked.", out.Summary)
}

func TestRunSummarizeFailureDegrades(t *testing.T) {
	p, _ := newTestPipeline(
		Deps{
			Transcriber: &fakeTranscriber{chunks: sampleChunks()},
			Diarizer:    &fakeDiarizer{},
			Summarizer:  &fakeSummarizer{err: errors.New("ollama unreachable")},
		},
		Config{Mode: domain.AlignModeChunkLevel, Summarize: true},
	)

	job := meetingJob()
	out, err := p.Run(context.Background(), job)
	require.NoError(t, err)
	assert.Empty(t, out.Summary)
	assert.Equal(t, domain.JobStateCompleted, job.State)
}

func TestRunGroupedMode(t *testing.T) {
	p, _ := newTestPipeline(
		Deps{
			Transcriber: &fakeTranscriber{chunks: sampleChunks()},
			Diarizer:    &fakeDiarizer{turns: sampleTurns()},
		},
		Config{Mode: domain.AlignModeGrouped, ToggleDefaults: diarizeAllDefaults()},
	)

	out, err := p.Run(context.Background(), meetingJob())
	require.NoError(t, err)
	require.Len(t, out.Alignment.Chunks, 2)
	assert.Equal(t, "Hello there How are you", out.Alignment.Chunks[0].Text)
}

func TestRunGroupedModeWithoutSpeakersKeepsChunks(t *testing.T) {
	p, _ := newTestPipeline(
		Deps{Transcriber: &fakeTranscriber{chunks: sampleChunks()}, Diarizer: &fakeDiarizer{}},
		Config{Mode: domain.AlignModeGrouped},
	)

	job := meetingJob()
	out, err := p.Run(context.Background(), job)
	require.NoError(t, err)

	// Diarization was skipped by policy, so grouped mode must not collapse
	// the transcript: one entry per chunk, timings intact.
	require.Len(t, out.Alignment.Chunks, 3)
	for i, c := range sampleChunks() {
		assert.Equal(t, c.Start, out.Alignment.Chunks[i].Start)
		assert.Equal(t, c.End, out.Alignment.Chunks[i].End)
		assert.Equal(t, c.Text, out.Alignment.Chunks[i].Text)
		assert.Empty(t, out.Alignment.Chunks[i].SpeakerID)
	}
}

func TestRunOverrideDisablesDiarization(t *testing.T) {
	off := false
	di := &fakeDiarizer{turns: sampleTurns()}
	p, _ := newTestPipeline(
		Deps{Transcriber: &fakeTranscriber{chunks: sampleChunks()}, Diarizer: di},
		Config{Mode: domain.AlignModeChunkLevel, ToggleDefaults: diarizeAllDefaults()},
	)

	job := meetingJob()
	job.DiarizationOverride = &off
	_, err := p.Run(context.Background(), job)
	require.NoError(t, err)
	assert.False(t, job.Diarize)
	assert.Zero(t, di.calls)
}

func TestRunRejectsBusyManager(t *testing.T) {
	m := jobs.NewManager()
	require.NoError(t, m.Begin(&domain.Job{ID: "other", State: domain.JobStateQueued}))

	p, _ := newTestPipeline(
		Deps{Transcriber: &fakeTranscriber{}, Diarizer: &fakeDiarizer{}, Manager: m},
		Config{Mode: domain.AlignModeChunkLevel},
	)

	_, err := p.Run(context.Background(), meetingJob())
	require.ErrorIs(t, err, jobs.ErrJobAlreadyRunning)
}
