// Copyright (c) 2025 Open Swarm Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

package feedback

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/open-swarm/orchestrator-core/pkg/model"
)

// TaskKind classifies one unit of async feedback work.
type TaskKind string

const (
	// TaskRealTimeOverflow is the rest of the steps 1-7 work (everything
	// after step 1, which Record has already run) for a pattern that
	// missed the real-time budget, run here instead of blocking the caller
	// further.
	TaskRealTimeOverflow TaskKind = "realtime_overflow"
	// TaskAggregate marks a pattern whose PatternMemory record finished
	// after the real-time budget. Processing it does nothing: the rolling
	// aggregate is computed from the stored patterns, which Record has
	// already updated synchronously.
	TaskAggregate TaskKind = "aggregate"
	// TaskMemoryBridge is step 8: score the pattern and, if valuable,
	// persist it (anonymized per Scope) to the long-term knowledge store.
	TaskMemoryBridge TaskKind = "memory_bridge"
	// TaskAuditLog appends a structured record of the completed cycle.
	TaskAuditLog TaskKind = "audit_log"
)

// AsyncTask is one item on the queue.
type AsyncTask struct {
	Kind    TaskKind
	Pattern model.ExecutionPattern
	Scope   model.Scope
}

// queueCapacity bounds backpressure: a burst of completions never spawns
// unbounded goroutines.
const queueCapacity = 256

// maxWorkers is the async queue's worker pool size (§5: "bounded, at most
// a handful of concurrent workers").
const maxWorkers = 4

// retry backoff matches the teacher's Temporal activity RetryPolicy
// (workflow.go wires the same numbers into temporal.RetryPolicy): three
// attempts total, waiting 1s before the second and 2s before the third.
const (
	retryInitialInterval    = 1 * time.Second
	retryBackoffCoefficient = 2.0
	retryMaxAttempts        = 3
)

// AsyncQueue is the FeedbackLoop's bounded, retrying in-process worker
// pool. It is the fallback path used whenever the host hasn't wired a
// Temporal worker for FeedbackWorkflow (see workflow.go); both paths
// call the same process function so the retained semantics are identical.
type AsyncQueue struct {
	tasks   chan AsyncTask
	process func(context.Context, AsyncTask) error
	wg      sync.WaitGroup
	stopped chan struct{}
}

// NewAsyncQueue starts maxWorkers goroutines pulling from an internal
// channel and calling process for each task, retrying with the backoff
// above on error.
func NewAsyncQueue(process func(context.Context, AsyncTask) error) *AsyncQueue {
	q := &AsyncQueue{
		tasks:   make(chan AsyncTask, queueCapacity),
		process: process,
		stopped: make(chan struct{}),
	}
	for i := 0; i < maxWorkers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	return q
}

// Enqueue submits a task, dropping it (with a logged warning) if the
// queue is saturated rather than blocking the caller — Publish-style
// fire-and-forget semantics per §5.
func (q *AsyncQueue) Enqueue(t AsyncTask) {
	select {
	case q.tasks <- t:
	default:
		slog.Warn("feedback async queue saturated, dropping task",
			"kind", t.Kind, "pattern_id", t.Pattern.ID)
	}
}

// Stop closes the queue and waits for in-flight tasks to drain.
func (q *AsyncQueue) Stop() {
	close(q.stopped)
	close(q.tasks)
	q.wg.Wait()
}

func (q *AsyncQueue) worker() {
	defer q.wg.Done()
	for t := range q.tasks {
		q.runWithRetry(t)
	}
}

// runWithRetry implements the same 3-attempt, 1s-then-2s backoff the
// Temporal path declares via temporal.RetryPolicy, so behavior is
// identical whether or not a Temporal worker is attached.
func (q *AsyncQueue) runWithRetry(t AsyncTask) {
	interval := retryInitialInterval
	var lastErr error
	for attempt := 1; attempt <= retryMaxAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := q.process(ctx, t)
		cancel()
		if err == nil {
			return
		}
		lastErr = err
		if attempt < retryMaxAttempts {
			select {
			case <-time.After(interval):
			case <-q.stopped:
				return
			}
			interval = time.Duration(float64(interval) * retryBackoffCoefficient)
		}
	}
	slog.Error("feedback async task failed after retries",
		"kind", t.Kind, "pattern_id", t.Pattern.ID, "error", lastErr)
}
