// Package queue runs transfer jobs one at a time in arrival order.
//
// A Queue is an explicit, caller-owned object: construct one, enqueue
// jobs, and call Start to spawn the single background worker. The worker
// drains the list strictly first-in first-out, emits a completion event
// per job whether it succeeded or failed, and emits a one-time drained
// event before exiting once the list is empty. Jobs are never retried
// automatically; re-enqueueing is the caller's decision.
package queue

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/ferry"
)

// Runner executes the client send underlying one job. *ferry.Client
// satisfies Runner; tests substitute their own.
type Runner interface {
	SendFile(ctx context.Context, filePath string) error
	SendDirectory(ctx context.Context, dirPath string) error
	SendMultipleFiles(ctx context.Context, filePaths []string) error
}

// RunnerFactory builds the Runner for one job's parameters. The factory
// runs on the worker goroutine once per job.
type RunnerFactory func(params ferry.TransferParameters) (Runner, error)

func defaultRunnerFactory(params ferry.TransferParameters) (Runner, error) {
	return ferry.NewClient(params)
}

// Queue is a FIFO list of transfer jobs drained by a single worker.
// All methods are safe for concurrent use.
type Queue struct {
	mu            sync.Mutex
	jobs          []Job
	running       bool
	stopRequested bool

	runnerFor   RunnerFactory
	onCompleted func(job Job, err error)
	onDrained   func()
}

// NewQueue creates an empty queue that builds a ferry client for each
// job's parameters.
func NewQueue() *Queue {
	return NewQueueWithRunner(defaultRunnerFactory)
}

// NewQueueWithRunner creates an empty queue with a custom runner factory.
func NewQueueWithRunner(factory RunnerFactory) *Queue {
	return &Queue{runnerFor: factory}
}

// OnTransferCompleted registers a callback invoked once per executed job,
// on the worker goroutine, with a nil error on success. Cleared jobs
// never get a completion event.
func (q *Queue) OnTransferCompleted(callback func(job Job, err error)) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.onCompleted = callback
}

// OnAllCompleted registers a callback invoked once when the worker drains
// the queue and exits. Stopping with jobs still pending does not fire it.
func (q *Queue) OnAllCompleted(callback func()) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.onDrained = callback
}

// Enqueue appends a job to the tail of the list. Enqueueing does not
// start the worker; call Start.
func (q *Queue) Enqueue(job Job) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, job)

	logrus.WithFields(logrus.Fields{
		"function": "Enqueue",
		"job_id":   job.ID(),
		"job":      job.Describe(),
		"pending":  len(q.jobs),
	}).Debug("Job enqueued")
}

// Start spawns the background worker. It is a no-op while a worker is
// already running, except that it withdraws a pending Stop request so a
// Stop immediately followed by Start keeps the worker draining.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.stopRequested = false
	if q.running {
		return
	}
	q.running = true

	go q.work(ctx)
}

// Stop asks the worker to exit at the next job boundary. The job already
// in flight runs to completion; Stop does not wait for it.
func (q *Queue) Stop() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.running {
		return
	}
	q.stopRequested = true

	logrus.WithFields(logrus.Fields{
		"function": "Stop",
		"pending":  len(q.jobs),
	}).Info("Queue stop requested")
}

// Clear empties the pending list. A job already in flight is unaffected,
// and the cleared jobs emit no completion events.
func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()

	cleared := len(q.jobs)
	q.jobs = nil

	logrus.WithFields(logrus.Fields{
		"function": "Clear",
		"cleared":  cleared,
	}).Debug("Queue cleared")
}

// Count returns the number of jobs waiting to run. The job in flight, if
// any, is not counted.
func (q *Queue) Count() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

// IsProcessing reports whether the worker is running.
func (q *Queue) IsProcessing() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.running
}

// work drains the queue until it is empty, a stop is requested, or ctx
// is cancelled. Exactly one work goroutine exists at a time.
func (q *Queue) work(ctx context.Context) {
	for {
		q.mu.Lock()
		if q.stopRequested || ctx.Err() != nil {
			q.running = false
			pending := len(q.jobs)
			q.mu.Unlock()

			logrus.WithFields(logrus.Fields{
				"function": "work",
				"pending":  pending,
			}).Info("Queue worker stopped")
			return
		}
		if len(q.jobs) == 0 {
			q.running = false
			drained := q.onDrained
			q.mu.Unlock()

			logrus.WithFields(logrus.Fields{
				"function": "work",
			}).Info("Queue drained")

			if drained != nil {
				drained()
			}
			return
		}
		job := q.jobs[0]
		q.jobs = q.jobs[1:]
		completed := q.onCompleted
		q.mu.Unlock()

		err := q.execute(ctx, job)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "work",
				"job_id":   job.ID(),
				"job":      job.Describe(),
				"error":    err.Error(),
			}).Warn("Job failed")
		} else {
			logrus.WithFields(logrus.Fields{
				"function": "work",
				"job_id":   job.ID(),
				"job":      job.Describe(),
			}).Info("Job completed")
		}

		if completed != nil {
			completed(job, err)
		}
	}
}

// execute dispatches one job to its send operation.
func (q *Queue) execute(ctx context.Context, job Job) error {
	switch j := job.(type) {
	case *SingleFileJob:
		runner, err := q.runnerFor(j.Params)
		if err != nil {
			return err
		}
		return runner.SendFile(ctx, j.Path)
	case *DirectoryJob:
		runner, err := q.runnerFor(j.Params)
		if err != nil {
			return err
		}
		return runner.SendDirectory(ctx, j.Path)
	case *MultiFileJob:
		runner, err := q.runnerFor(j.Params)
		if err != nil {
			return err
		}
		return runner.SendMultipleFiles(ctx, j.Paths)
	default:
		return fmt.Errorf("unknown job type %T", job)
	}
}
