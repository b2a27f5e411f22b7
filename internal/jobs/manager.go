package jobs

import (
	"errors"
	"fmt"
	"sync"

	"scribeflow/internal/domain"
)

// ErrJobAlreadyRunning is returned when starting a second active job.
var ErrJobAlreadyRunning = errors.New("job already running")

// ErrNoRunningJob is returned when a transition is requested while idle.
var ErrNoRunningJob = errors.New("no running job")

// Manager tracks the single in-flight job and validates its transitions.
// Jobs process one at a time; admission happens elsewhere, so the manager
// only ever owns the job the drain worker handed it.
type Manager struct {
	mu      sync.RWMutex
	current *domain.Job
}

// NewManager creates a manager in idle state.
func NewManager() *Manager {
	return &Manager{}
}

// Begin claims a queued job as the active one.
func (m *Manager) Begin(job *domain.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil && !m.current.State.Terminal() {
		return ErrJobAlreadyRunning
	}
	if job.State != domain.JobStateQueued {
		return fmt.Errorf("cannot begin job in state %s", job.State)
	}
	m.current = job
	return nil
}

// Transition validates and applies a state change on the active job.
func (m *Manager) Transition(state domain.JobState) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil {
		return ErrNoRunningJob
	}
	if state == m.current.State {
		return nil
	}
	if !ValidTransition(m.current.State, state) {
		return fmt.Errorf("invalid transition: %s -> %s", m.current.State, state)
	}

	m.current.State = state
	return nil
}

// Current returns a snapshot of the active job, or a zero job when idle.
func (m *Manager) Current() domain.Job {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return domain.Job{}
	}
	return *m.current
}

// Finish releases the active job once it reached a terminal state.
func (m *Manager) Finish() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil && m.current.State.Terminal() {
		m.current = nil
	}
}

// IsRunning reports whether a job is actively processing.
func (m *Manager) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current != nil && !m.current.State.Terminal()
}

// ValidTransition enforces the allowed job state machine edges. Transitions
// are monotonic through the stage sequence; Failed is reachable from every
// non-terminal state, and the only edge out of Failed is the requeue.
func ValidTransition(from, to domain.JobState) bool {
	if to == domain.JobStateFailed {
		return from != domain.JobStateCompleted && from != domain.JobStateFailed
	}

	switch from {
	case domain.JobStateQueued:
		// Extraction only runs when the input needs audio preprocessing.
		return to == domain.JobStateExtracting || to == domain.JobStateTranscribing
	case domain.JobStateExtracting:
		return to == domain.JobStateTranscribing
	case domain.JobStateTranscribing:
		// Aligning always follows transcription when diarization is off.
		return to == domain.JobStateDiarizing || to == domain.JobStateAligning
	case domain.JobStateDiarizing:
		return to == domain.JobStateAligning
	case domain.JobStateAligning:
		return to == domain.JobStateAnonymizing ||
			to == domain.JobStateSummarizing ||
			to == domain.JobStateCompleted
	case domain.JobStateAnonymizing:
		return to == domain.JobStateSummarizing || to == domain.JobStateCompleted
	case domain.JobStateSummarizing:
		return to == domain.JobStateCompleted
	case domain.JobStateFailed:
		return to == domain.JobStateQueued
	default:
		return false
	}
}
