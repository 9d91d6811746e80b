// Package conductor executes workflows: dependency-validated task graphs run
// in parallel waves over pluggable agents, with per-(agent, operation) circuit
// breakers, bounded retries, and per-wave checkpoints.
package conductor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/cherryai/conductor/internal/agent"
	"github.com/cherryai/conductor/internal/events"
	"github.com/cherryai/conductor/internal/persistence"
	"github.com/cherryai/conductor/internal/workflow"
)

// ErrWorkflowNotFound is returned for operations on unknown workflow IDs.
var ErrWorkflowNotFound = errors.New("workflow not found")

// Options configures a Conductor. Registry is required; everything else has
// working defaults. Collaborators are injected here — there is no package
// singleton.
type Options struct {
	Registry      *agent.Registry   // Agent implementations by type (required)
	Store         persistence.Store // Optional durable store for workflows and checkpoints
	Bus           *events.Bus       // Optional event bus for observers (TUI, logs)
	MaxConcurrent int               // Concurrent tasks per wave (default 4)
	Retry         RetryConfig
	Breaker       BreakerConfig
}

// Conductor creates and executes workflows.
type Conductor struct {
	registry      *agent.Registry
	store         persistence.Store
	bus           *events.Bus
	maxConcurrent int
	retry         RetryConfig
	breakers      *BreakerRegistry

	mu        sync.Mutex
	workflows map[string]*workflow.Workflow
	cancels   map[string]context.CancelFunc
}

// New creates a Conductor from options.
func New(opts Options) (*Conductor, error) {
	if opts.Registry == nil {
		return nil, fmt.Errorf("conductor requires an agent registry")
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 4
	}
	if opts.Retry == (RetryConfig{}) {
		opts.Retry = DefaultRetryConfig()
	}

	return &Conductor{
		registry:      opts.Registry,
		store:         opts.Store,
		bus:           opts.Bus,
		maxConcurrent: opts.MaxConcurrent,
		retry:         opts.Retry,
		breakers:      NewBreakerRegistry(opts.Breaker),
		workflows:     make(map[string]*workflow.Workflow),
		cancels:       make(map[string]context.CancelFunc),
	}, nil
}

// CreateWorkflow builds a workflow from task specs. Cyclic dependency graphs
// are rejected here, and every task's agent type must resolve against the
// registry — dispatch never discovers a missing agent at run time.
func (c *Conductor) CreateWorkflow(ctx context.Context, name string, specs []workflow.TaskSpec) (*workflow.Workflow, error) {
	wf, err := workflow.New(name, specs)
	if err != nil {
		return nil, err
	}

	for _, task := range wf.Tasks() {
		if _, err := c.registry.Resolve(task.AgentType); err != nil {
			return nil, fmt.Errorf("task %q: %w", task.ID, err)
		}
	}

	if c.store != nil {
		if err := c.store.SaveWorkflow(ctx, wf); err != nil {
			return nil, fmt.Errorf("persisting workflow: %w", err)
		}
	}

	c.mu.Lock()
	c.workflows[wf.ID] = wf
	c.mu.Unlock()

	return wf, nil
}

// ExecuteWorkflow runs a pending workflow to a terminal status and returns
// the final status report. Task failures are recorded on their tasks; the
// returned error covers only conductor-level problems.
func (c *Conductor) ExecuteWorkflow(ctx context.Context, workflowID string) (workflow.StatusReport, error) {
	c.mu.Lock()
	wf, exists := c.workflows[workflowID]
	if !exists {
		c.mu.Unlock()
		return workflow.StatusReport{}, fmt.Errorf("%w: %s", ErrWorkflowNotFound, workflowID)
	}
	if wf.Status() != workflow.StatusPending {
		c.mu.Unlock()
		return wf.Report(), fmt.Errorf("workflow %s is %s, not pending", workflowID, wf.Status())
	}

	runCtx, cancel := context.WithCancel(ctx)
	c.cancels[workflowID] = cancel
	c.mu.Unlock()

	defer func() {
		cancel()
		c.mu.Lock()
		delete(c.cancels, workflowID)
		c.mu.Unlock()
	}()

	wf.SetStatus(workflow.StatusRunning)
	c.persistWorkflowStatus(wf)

	c.run(runCtx, wf)

	c.persistWorkflowStatus(wf)
	c.publish(events.TopicWorkflow, events.WorkflowFinishedEvent{
		Workflow:  wf.ID,
		Status:    wf.Status().String(),
		Timestamp: time.Now(),
	})

	return wf.Report(), nil
}

// WorkflowStatus returns a point-in-time status snapshot.
func (c *Conductor) WorkflowStatus(workflowID string) (workflow.StatusReport, error) {
	c.mu.Lock()
	wf, exists := c.workflows[workflowID]
	c.mu.Unlock()

	if !exists {
		return workflow.StatusReport{}, fmt.Errorf("%w: %s", ErrWorkflowNotFound, workflowID)
	}
	return wf.Report(), nil
}

// Workflow returns the workflow with the given ID.
func (c *Conductor) Workflow(workflowID string) (*workflow.Workflow, error) {
	c.mu.Lock()
	wf, exists := c.workflows[workflowID]
	c.mu.Unlock()

	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrWorkflowNotFound, workflowID)
	}
	return wf, nil
}

// CancelWorkflow cancels a workflow. In-flight tasks are cancelled via their
// context, not-yet-started tasks end Skipped, completed tasks are untouched.
// Cancelling a workflow that never started still marks it Cancelled.
func (c *Conductor) CancelWorkflow(workflowID string) error {
	c.mu.Lock()
	wf, exists := c.workflows[workflowID]
	cancel := c.cancels[workflowID]
	c.mu.Unlock()

	if !exists {
		return fmt.Errorf("%w: %s", ErrWorkflowNotFound, workflowID)
	}

	switch wf.Status() {
	case workflow.StatusCompleted, workflow.StatusFailed, workflow.StatusCancelled:
		return fmt.Errorf("workflow %s already finished (%s)", workflowID, wf.Status())
	case workflow.StatusRunning:
		// The runner observes the cancelled context and finalizes statuses.
		if cancel != nil {
			cancel()
		}
		return nil
	default:
		c.skipPending(wf, errCancelled)
		wf.SetStatus(workflow.StatusCancelled)
		c.persistWorkflowStatus(wf)
		return nil
	}
}

// persistWorkflowStatus saves the workflow status if a store is configured.
// Persistence failures are logged, not propagated: the in-memory state is
// authoritative during a run.
func (c *Conductor) persistWorkflowStatus(wf *workflow.Workflow) {
	if c.store == nil {
		return
	}
	if err := c.store.UpdateWorkflowStatus(context.Background(), wf.ID, wf.Status()); err != nil {
		log.Printf("WARNING: failed to persist workflow %s status: %v", wf.ID, err)
	}
}

// persistTask saves a task's current state if a store is configured.
func (c *Conductor) persistTask(wf *workflow.Workflow, taskID string) {
	if c.store == nil {
		return
	}
	task, ok := wf.Task(taskID)
	if !ok {
		return
	}
	if err := c.store.UpdateTaskStatus(context.Background(), wf.ID, task); err != nil {
		log.Printf("WARNING: failed to persist task %s/%s: %v", wf.ID, taskID, err)
	}
}

// publish sends an event if a bus is configured.
func (c *Conductor) publish(topic string, event events.Event) {
	if c.bus != nil {
		c.bus.Publish(topic, event)
	}
}
