package ingest

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/spf13/afero"

	"scribeflow/internal/domain"
	"scribeflow/internal/jobs"
	"scribeflow/internal/logging"
)

// Admission rejections. No retry state is created for any of them; the
// caller may resubmit once the condition clears.
var (
	ErrDuplicate        = errors.New("file already queued or in flight")
	ErrUnstable         = errors.New("file is still being written")
	ErrUnsupportedMedia = errors.New("not an audio or video file")
	ErrRetriesExhausted = errors.New("retry limit exceeded")
)

// sniffLen bounds how much of a file the media type check reads.
const sniffLen = 3072

// AdmitRequest describes one inbound file.
type AdmitRequest struct {
	Path                string
	ContentType         domain.ContentType
	Subcategory         string
	DiarizationOverride *bool
}

// Queue holds pending jobs in strict FIFO order, deduplicates by file
// identity, and runs a quiet-period stability check before admission. The
// pending list and dedup set are the only state shared between the admitter
// and the drain worker; both live under one mutex, and admission's blocking
// work (stat, sniff, quiet-period wait) happens outside it.
type Queue struct {
	fs         afero.Fs
	logger     *logging.Logger
	quiet      time.Duration
	maxRetries int
	sleep      func(time.Duration)

	mu      sync.Mutex
	pending []*domain.Job
	known   map[string]string

	notify chan struct{}
}

// NewQueue creates an empty queue. quiet is the interval between the two
// stability observations.
func NewQueue(fs afero.Fs, logger *logging.Logger, quiet time.Duration, maxRetries int) *Queue {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Queue{
		fs:         fs,
		logger:     logger,
		quiet:      quiet,
		maxRetries: maxRetries,
		sleep:      time.Sleep,
		known:      make(map[string]string),
		notify:     make(chan struct{}, 1),
	}
}

// Admit checks an inbound file and creates a queued Job for it, or rejects
// it as duplicate, unstable, or unsupported media.
func (q *Queue) Admit(req AdmitRequest) (*domain.Job, error) {
	info, err := q.fs.Stat(req.Path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", req.Path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s: %w", req.Path, ErrUnsupportedMedia)
	}

	if err := q.checkMediaType(req.Path); err != nil {
		return nil, err
	}

	// Two observations separated by the quiet period guard against a file
	// that is still being copied in.
	size, mtime := info.Size(), info.ModTime()
	q.sleep(q.quiet)
	again, err := q.fs.Stat(req.Path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", req.Path, err)
	}
	if again.Size() != size || !again.ModTime().Equal(mtime) {
		return nil, fmt.Errorf("%s: %w", req.Path, ErrUnstable)
	}

	fp := fingerprint(req.Path, again.Size(), again.ModTime())
	job := &domain.Job{
		ID:                  uuid.NewString(),
		SourcePath:          req.Path,
		Fingerprint:         fp,
		ContentType:         req.ContentType,
		Subcategory:         req.Subcategory,
		DiarizationOverride: req.DiarizationOverride,
		State:               domain.JobStateQueued,
		CreatedAt:           time.Now().UTC(),
	}

	q.mu.Lock()
	if id, ok := q.known[fp]; ok {
		q.mu.Unlock()
		q.logger.Debug("duplicate admission rejected", "path", req.Path, "job", id)
		return nil, fmt.Errorf("%s: %w", req.Path, ErrDuplicate)
	}
	q.known[fp] = job.ID
	q.pending = append(q.pending, job)
	q.mu.Unlock()

	q.logger.Info("job admitted", "job", job.ID, "path", req.Path, "type", req.ContentType)
	q.wake()
	return job, nil
}

// Next pops the head of the queue, or nil when empty. The job's fingerprint
// stays in the dedup set until Done, keeping the file suppressed while the
// job is in flight.
func (q *Queue) Next() *domain.Job {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.pending) == 0 {
		return nil
	}
	job := q.pending[0]
	q.pending = q.pending[1:]
	return job
}

// Done releases a terminal job from duplicate suppression.
func (q *Queue) Done(job *domain.Job) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.known, job.Fingerprint)
}

// Requeue puts a failed job back at the tail, bounded by the retry limit.
// Exceeding the limit leaves the job failed permanently.
func (q *Queue) Requeue(job *domain.Job) error {
	if !jobs.ValidTransition(job.State, domain.JobStateQueued) {
		return fmt.Errorf("cannot requeue job in state %s", job.State)
	}
	if job.RetryCount >= q.maxRetries {
		return fmt.Errorf("job %s: %w", job.ID, ErrRetriesExhausted)
	}

	job.RetryCount++
	job.State = domain.JobStateQueued

	q.mu.Lock()
	q.known[job.Fingerprint] = job.ID
	q.pending = append(q.pending, job)
	q.mu.Unlock()

	q.logger.Info("job requeued", "job", job.ID, "retry", job.RetryCount)
	q.wake()
	return nil
}

// Len reports the number of pending jobs.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Wait blocks until the queue is signaled or the channel fires first.
func (q *Queue) Wait() <-chan struct{} {
	return q.notify
}

// wake signals the drain worker without blocking the admitter.
func (q *Queue) wake() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// checkMediaType sniffs the file header and rejects non-media files.
func (q *Queue) checkMediaType(path string) error {
	f, err := q.fs.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	buf := make([]byte, sniffLen)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return fmt.Errorf("read %s: %w", path, err)
	}

	mt := mimetype.Detect(buf[:n])
	if !strings.HasPrefix(mt.String(), "audio/") && !strings.HasPrefix(mt.String(), "video/") {
		return fmt.Errorf("%s (%s): %w", path, mt.String(), ErrUnsupportedMedia)
	}
	return nil
}

// fingerprint identifies a file by path, size, and mtime. Hashing content
// would stall admission on multi-gigabyte recordings.
func fingerprint(path string, size int64, mtime time.Time) string {
	return fmt.Sprintf("%s|%d|%d", path, size, mtime.UnixNano())
}
