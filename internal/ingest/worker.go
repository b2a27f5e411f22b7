package ingest

import (
	"context"
	"errors"

	"scribeflow/internal/domain"
	"scribeflow/internal/logging"
)

// Runner executes the full stage sequence for one job.
type Runner interface {
	Run(ctx context.Context, job *domain.Job) (domain.JobResult, error)
}

// ResultSink persists a completed job's output and returns its path.
type ResultSink interface {
	Write(result domain.JobResult) (string, error)
}

// Worker drains the queue with a single goroutine, running one job to
// completion before starting the next. One worker is deliberate: the
// engines are heavy, memory-bound processes that parallelize badly, and
// FIFO order stays trivially preserved.
type Worker struct {
	queue  *Queue
	runner Runner
	sink   ResultSink
	logger *logging.Logger
}

// NewWorker wires a drain worker. sink may be nil when the caller consumes
// results elsewhere.
func NewWorker(queue *Queue, runner Runner, sink ResultSink, logger *logging.Logger) *Worker {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Worker{queue: queue, runner: runner, sink: sink, logger: logger}
}

// Drain processes jobs until ctx is cancelled.
func (w *Worker) Drain(ctx context.Context) {
	for {
		job := w.queue.Next()
		if job == nil {
			select {
			case <-ctx.Done():
				return
			case <-w.queue.Wait():
				continue
			}
		}

		w.process(ctx, job)

		if ctx.Err() != nil {
			return
		}
	}
}

// process runs one job and persists its result. Failures the pipeline
// classified as transient go back on the queue within the retry limit;
// everything else releases the job's dedup entry.
func (w *Worker) process(ctx context.Context, job *domain.Job) {
	result, err := w.runner.Run(ctx, job)
	if err != nil {
		var tr interface{ Transient() bool }
		if errors.As(err, &tr) && tr.Transient() {
			if rqErr := w.queue.Requeue(job); rqErr == nil {
				return
			}
			w.logger.Warn("not requeuing job", "job", job.ID, "err", err)
		}
		// Already classified and logged by the pipeline; the job stays
		// failed until an operator resubmits it.
		w.queue.Done(job)
		return
	}
	defer w.queue.Done(job)

	if w.sink == nil {
		return
	}
	path, err := w.sink.Write(result)
	if err != nil {
		w.logger.Error("persisting result failed", "job", job.ID, "err", err)
		return
	}
	w.logger.Info("result written", "job", job.ID, "path", path)
}
