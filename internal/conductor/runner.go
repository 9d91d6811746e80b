package conductor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cherryai/conductor/internal/agent"
	"github.com/cherryai/conductor/internal/events"
	"github.com/cherryai/conductor/internal/workflow"
)

var errCancelled = errors.New("workflow cancelled")

// run executes a workflow's waves to completion. Each wave dispatches its
// tasks concurrently through an errgroup and joins at a barrier before the
// next wave starts, so shared context reads never race with writes from an
// earlier wave. A checkpoint is taken at every barrier.
func (c *Conductor) run(ctx context.Context, wf *workflow.Workflow) {
	waves, err := wf.Plan()
	if err != nil {
		// Graphs are validated at creation; a failure here means the
		// workflow was corrupted after the fact.
		log.Printf("ERROR: planning workflow %s: %v", wf.ID, err)
		wf.SetStatus(workflow.StatusFailed)
		return
	}

	for waveIdx, wave := range waves {
		if ctx.Err() != nil {
			c.finishCancelled(wf)
			return
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(c.maxConcurrent)

		for _, taskID := range wave {
			task, ok := wf.Task(taskID)
			if !ok {
				continue
			}

			// Tasks whose upstream failed or was skipped don't run.
			if reason := c.blockedBy(wf, task); reason != nil {
				c.skipTask(wf, task, reason)
				continue
			}

			g.Go(func() error {
				c.executeTask(gctx, wf, task)
				return nil
			})
		}

		// Barrier: the wave finishes as a unit.
		_ = g.Wait()

		c.checkpoint(wf, waveIdx)
		c.publishProgress(wf)
	}

	if ctx.Err() != nil {
		c.finishCancelled(wf)
		return
	}

	wf.SetStatus(finalStatus(wf))
}

// blockedBy reports why a task cannot run, or nil if all dependencies are
// resolved. A failed dependency blocks unless its failure mode is soft or
// skip; a skipped dependency always blocks, so failures propagate through
// whole branches.
func (c *Conductor) blockedBy(wf *workflow.Workflow, task *workflow.Task) error {
	for _, depID := range task.DependsOn {
		dep, ok := wf.Task(depID)
		if !ok {
			return fmt.Errorf("dependency %q not found", depID)
		}

		switch dep.Status {
		case workflow.TaskCompleted:
			// resolved
		case workflow.TaskFailed:
			if dep.FailureMode == workflow.FailHard {
				return fmt.Errorf("dependency %q failed: %w", depID, dep.Error)
			}
		case workflow.TaskSkipped:
			return fmt.Errorf("dependency %q was skipped", depID)
		default:
			return fmt.Errorf("dependency %q is %s", depID, dep.Status)
		}
	}
	return nil
}

// executeTask runs one task through its agent with breaker and retry
// protection, then records the outcome on the workflow.
func (c *Conductor) executeTask(ctx context.Context, wf *workflow.Workflow, task *workflow.Task) {
	if ctx.Err() != nil {
		c.skipTask(wf, task, errCancelled)
		return
	}

	if err := wf.MarkRunning(task.ID); err != nil {
		log.Printf("ERROR: failed to mark task %q running: %v", task.ID, err)
		return
	}

	start := time.Now()
	c.publish(events.TopicTask, events.TaskStartedEvent{
		Workflow:  wf.ID,
		ID:        task.ID,
		Name:      task.Name,
		AgentType: task.AgentType,
		Timestamp: start,
	})

	impl, err := c.registry.Resolve(task.AgentType)
	if err != nil {
		// Resolution is checked at creation; only a concurrently closed
		// registry can get us here.
		c.failTask(wf, task, 0, err, start)
		return
	}

	inv := agent.Invocation{
		WorkflowID: wf.ID,
		TaskID:     task.ID,
		Operation:  task.Operation,
		Payload:    task.Payload,
		Context:    wf.Context(),
	}

	cb := c.breakers.Get(task.AgentType, task.Operation)

	onRetry := func(attempt int, attemptErr error) {
		c.publish(events.TopicTask, events.TaskRetriedEvent{
			Workflow:  wf.ID,
			ID:        task.ID,
			Attempt:   attempt,
			Err:       attemptErr,
			Timestamp: time.Now(),
		})
	}

	result, invocations, err := executeWithRetry(ctx, impl, inv, cb, c.retry, task.MaxRetries, onRetry)
	retries := invocations - 1
	if retries < 0 {
		retries = 0
	}

	if err != nil {
		if ctx.Err() != nil && !errors.Is(err, ErrBreakerOpen) {
			// Cancelled mid-flight: the task neither completed nor failed
			// on its own merits.
			c.skipTask(wf, task, errCancelled)
			return
		}
		c.failTask(wf, task, retries, err, start)
		return
	}

	if err := wf.MarkCompleted(task.ID, result.Output, retries, result.ContextUpdates); err != nil {
		log.Printf("ERROR: failed to mark task %q completed: %v", task.ID, err)
		return
	}
	c.persistTask(wf, task.ID)

	c.publish(events.TopicTask, events.TaskCompletedEvent{
		Workflow:  wf.ID,
		ID:        task.ID,
		Result:    result.Output,
		Retries:   retries,
		Duration:  time.Since(start),
		Timestamp: time.Now(),
	})
}

// failTask records a permanent task failure.
func (c *Conductor) failTask(wf *workflow.Workflow, task *workflow.Task, retries int, taskErr error, start time.Time) {
	if err := wf.MarkFailed(task.ID, retries, taskErr); err != nil {
		log.Printf("ERROR: failed to mark task %q failed: %v", task.ID, err)
		return
	}
	c.persistTask(wf, task.ID)

	c.publish(events.TopicTask, events.TaskFailedEvent{
		Workflow:  wf.ID,
		ID:        task.ID,
		Err:       taskErr,
		Duration:  time.Since(start),
		Timestamp: time.Now(),
	})
}

// skipTask records a task that will not run.
func (c *Conductor) skipTask(wf *workflow.Workflow, task *workflow.Task, reason error) {
	if err := wf.MarkSkipped(task.ID, reason); err != nil {
		log.Printf("ERROR: failed to mark task %q skipped: %v", task.ID, err)
		return
	}
	c.persistTask(wf, task.ID)

	c.publish(events.TopicTask, events.TaskSkippedEvent{
		Workflow:  wf.ID,
		ID:        task.ID,
		Reason:    reason.Error(),
		Timestamp: time.Now(),
	})
}

// checkpoint snapshots task states at a wave boundary and persists the
// snapshot when a store is configured.
func (c *Conductor) checkpoint(wf *workflow.Workflow, waveIdx int) {
	cp := wf.Checkpoint()

	if c.store != nil {
		if err := c.store.SaveCheckpoint(context.Background(), wf.ID, cp); err != nil {
			log.Printf("WARNING: failed to persist checkpoint for workflow %s: %v", wf.ID, err)
		}
	}

	c.publish(events.TopicWorkflow, events.CheckpointSavedEvent{
		Workflow:  wf.ID,
		Wave:      waveIdx,
		Timestamp: cp.TakenAt,
	})
}

// publishProgress emits a progress event from the current status report.
func (c *Conductor) publishProgress(wf *workflow.Workflow) {
	r := wf.Report()
	c.publish(events.TopicWorkflow, events.ProgressEvent{
		Workflow:  wf.ID,
		Total:     r.Total,
		Completed: r.Completed,
		Running:   r.Running,
		Failed:    r.Failed,
		Skipped:   r.Skipped,
		Pending:   r.Pending,
		Progress:  r.Progress,
		Timestamp: time.Now(),
	})
}

// finishCancelled skips everything that has not started and marks the
// workflow Cancelled. Completed and failed tasks keep their outcomes.
func (c *Conductor) finishCancelled(wf *workflow.Workflow) {
	c.skipPending(wf, errCancelled)
	wf.SetStatus(workflow.StatusCancelled)
	c.publishProgress(wf)
}

// skipPending marks all pending tasks skipped with the given reason.
func (c *Conductor) skipPending(wf *workflow.Workflow, reason error) {
	for _, task := range wf.Tasks() {
		if task.Status == workflow.TaskPending {
			c.skipTask(wf, task, reason)
		}
	}
}

// finalStatus derives the workflow's terminal status from task outcomes:
// any permanent failure or skip fails the workflow, otherwise it completed.
func finalStatus(wf *workflow.Workflow) workflow.Status {
	for _, task := range wf.Tasks() {
		if task.Status == workflow.TaskFailed || task.Status == workflow.TaskSkipped {
			return workflow.StatusFailed
		}
	}
	return workflow.StatusCompleted
}
