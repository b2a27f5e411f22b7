package domain

import "time"

// Word is one recognized token with its own timestamps, when the
// transcription engine provides word-level timing.
type Word struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Token string  `json:"token"`
}

// TranscriptChunk is a contiguous span of recognized speech produced by the
// transcription engine. Chunks arrive in non-decreasing start order and do
// not overlap each other; both are contracts of the engine, not enforced
// here. Times are seconds from the start of the recording.
type TranscriptChunk struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
	Words []Word  `json:"words,omitempty"`
}

// SpeakerTurn is a span the diarization engine attributes to one speaker.
// Turns may overlap (simultaneous speech) and may leave gaps.
type SpeakerTurn struct {
	Start     float64 `json:"start"`
	End       float64 `json:"end"`
	SpeakerID string  `json:"speakerId"`
}

// AlignedChunk is one entry of the aligned output. SpeakerID is empty when
// diarization was skipped or no turn could be matched.
type AlignedChunk struct {
	Start     float64 `json:"start"`
	End       float64 `json:"end"`
	Text      string  `json:"text"`
	SpeakerID string  `json:"speakerId,omitempty"`
}

// AlignMode selects the output grouping of an alignment run.
type AlignMode string

const (
	// AlignModeChunkLevel keeps one output entry per transcript chunk.
	AlignModeChunkLevel AlignMode = "chunk_level"
	// AlignModeGrouped merges consecutive same-speaker chunks into turns.
	AlignModeGrouped AlignMode = "grouped"
)

// SpeakerStats summarizes one speaker's share of the aligned sequence.
type SpeakerStats struct {
	TotalDuration float64 `json:"totalDuration"`
	TurnCount     int     `json:"turnCount"`
}

// AlignmentResult is the final product of one alignment run. It is built
// once from its two inputs and never mutated afterwards.
type AlignmentResult struct {
	Chunks       []AlignedChunk          `json:"chunks"`
	Mode         AlignMode               `json:"mode"`
	SpeakerStats map[string]SpeakerStats `json:"speakerStats"`
}

// HasSpeakers reports whether any chunk carries a speaker label.
func (r AlignmentResult) HasSpeakers() bool {
	for _, c := range r.Chunks {
		if c.SpeakerID != "" {
			return true
		}
	}
	return false
}

// ContentType classifies an ingested recording and drives stage defaults.
type ContentType string

const (
	ContentTypeMeeting   ContentType = "meeting"
	ContentTypeInterview ContentType = "interview"
	ContentTypeLecture   ContentType = "lecture"
	ContentTypeVoiceNote ContentType = "voice_note"
)

// JobState tracks each pipeline stage for one ingested recording.
type JobState string

const (
	JobStateQueued       JobState = "queued"
	JobStateExtracting   JobState = "extracting"
	JobStateTranscribing JobState = "transcribing"
	JobStateDiarizing    JobState = "diarizing"
	JobStateAligning     JobState = "aligning"
	JobStateAnonymizing  JobState = "anonymizing"
	JobStateSummarizing  JobState = "summarizing"
	JobStateCompleted    JobState = "completed"
	JobStateFailed       JobState = "failed"
)

// Terminal reports whether a state ends the job lifecycle. Failed is
// terminal unless the job is explicitly requeued.
func (s JobState) Terminal() bool {
	return s == JobStateCompleted || s == JobStateFailed
}

// Job is the unit of pipeline work. It is created when the ingest queue
// admits a stable file and mutated only by the pipeline as it advances
// State. Intermediate artifacts are owned by the pipeline run processing it.
type Job struct {
	ID                  string      `json:"id"`
	SourcePath          string      `json:"sourcePath"`
	Fingerprint         string      `json:"fingerprint"`
	ContentType         ContentType `json:"contentType"`
	Subcategory         string      `json:"subcategory,omitempty"`
	DiarizationOverride *bool       `json:"diarizationOverride,omitempty"`
	// Diarize caches the stage toggle decision at pipeline start so that a
	// configuration change cannot alter an in-flight job.
	Diarize    bool      `json:"diarize"`
	State      JobState  `json:"state"`
	RetryCount int       `json:"retryCount"`
	CreatedAt  time.Time `json:"createdAt"`
}

// JobResult bundles everything a completed job produced. Summary is empty
// when the stage was disabled or failed (degrading).
type JobResult struct {
	Job        Job             `json:"job"`
	Alignment  AlignmentResult `json:"alignment"`
	Summary    string          `json:"summary,omitempty"`
	Anonymized bool            `json:"anonymized"`
	OutputPath string          `json:"outputPath,omitempty"`
}
