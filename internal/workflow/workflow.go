package workflow

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status represents the lifecycle state of a workflow.
type Status int

const (
	StatusPending Status = iota
	StatusRunning
	StatusCompleted
	StatusFailed
	StatusCancelled
)

// String returns a human-readable status name.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusRunning:
		return "running"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Workflow is a named collection of interdependent tasks executed together.
// All task and context mutation goes through the workflow's lock, so completed
// tasks in the same wave can merge context updates without racing.
type Workflow struct {
	ID   string
	Name string

	mu          sync.RWMutex
	tasks       map[string]*Task
	status      Status
	context     map[string]any
	checkpoints []Checkpoint
	createdAt   time.Time
}

// New builds a workflow from task specs. Fails on duplicate or empty task IDs,
// unknown dependencies, and cyclic dependency graphs.
func New(name string, specs []TaskSpec) (*Workflow, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("workflow %q has no tasks", name)
	}

	tasks := make(map[string]*Task, len(specs))
	for _, spec := range specs {
		task, err := spec.toTask()
		if err != nil {
			return nil, err
		}
		if _, exists := tasks[task.ID]; exists {
			return nil, fmt.Errorf("duplicate task ID %q", task.ID)
		}
		tasks[task.ID] = task
	}

	if _, err := validateGraph(tasks); err != nil {
		return nil, err
	}

	return &Workflow{
		ID:        uuid.NewString(),
		Name:      name,
		tasks:     tasks,
		status:    StatusPending,
		context:   make(map[string]any),
		createdAt: time.Now(),
	}, nil
}

// Plan returns the execution waves for this workflow's task graph.
func (w *Workflow) Plan() ([][]string, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return Plan(w.tasks)
}

// Status returns the workflow's current lifecycle status.
func (w *Workflow) Status() Status {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.status
}

// SetStatus transitions the workflow's lifecycle status.
func (w *Workflow) SetStatus(s Status) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.status = s
}

// Task returns a copy of the task with the given ID.
func (w *Workflow) Task(taskID string) (*Task, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	task, exists := w.tasks[taskID]
	if !exists {
		return nil, false
	}
	return cloneTask(task), true
}

// Tasks returns copies of all tasks.
func (w *Workflow) Tasks() []*Task {
	w.mu.RLock()
	defer w.mu.RUnlock()

	tasks := make([]*Task, 0, len(w.tasks))
	for _, task := range w.tasks {
		tasks = append(tasks, cloneTask(task))
	}
	return tasks
}

// MarkRunning sets a task's status to TaskRunning and stamps its start time.
func (w *Workflow) MarkRunning(taskID string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	task, exists := w.tasks[taskID]
	if !exists {
		return fmt.Errorf("task %q not found", taskID)
	}

	task.Status = TaskRunning
	task.StartedAt = time.Now()
	return nil
}

// MarkCompleted records a successful task: status, result, retry count, and
// end timestamp, then merges the task's context updates into the shared
// context under the workflow lock.
func (w *Workflow) MarkCompleted(taskID, result string, retries int, updates map[string]any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	task, exists := w.tasks[taskID]
	if !exists {
		return fmt.Errorf("task %q not found", taskID)
	}

	task.Status = TaskCompleted
	task.Result = result
	task.RetryCount = retries
	task.CompletedAt = time.Now()

	for k, v := range updates {
		w.context[k] = v
	}
	return nil
}

// MarkFailed records a permanently failed task.
func (w *Workflow) MarkFailed(taskID string, retries int, taskErr error) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	task, exists := w.tasks[taskID]
	if !exists {
		return fmt.Errorf("task %q not found", taskID)
	}

	task.Status = TaskFailed
	task.RetryCount = retries
	task.Error = taskErr
	task.CompletedAt = time.Now()
	return nil
}

// MarkSkipped records a task that will not run, with the reason as its error.
func (w *Workflow) MarkSkipped(taskID string, reason error) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	task, exists := w.tasks[taskID]
	if !exists {
		return fmt.Errorf("task %q not found", taskID)
	}

	task.Status = TaskSkipped
	task.Error = reason
	return nil
}

// Context returns a copy of the shared context for read-only consumption.
func (w *Workflow) Context() map[string]any {
	w.mu.RLock()
	defer w.mu.RUnlock()

	cp := make(map[string]any, len(w.context))
	for k, v := range w.context {
		cp[k] = v
	}
	return cp
}

// StatusReport is a point-in-time summary of workflow progress.
type StatusReport struct {
	WorkflowID string
	Name       string
	Status     Status
	Total      int
	Pending    int
	Running    int
	Completed  int
	Failed     int
	Skipped    int
	Progress   int // Percent of tasks completed, 0-100
}

// Report builds a status snapshot with per-status counts and progress percent.
func (w *Workflow) Report() StatusReport {
	w.mu.RLock()
	defer w.mu.RUnlock()

	r := StatusReport{
		WorkflowID: w.ID,
		Name:       w.Name,
		Status:     w.status,
		Total:      len(w.tasks),
	}

	for _, task := range w.tasks {
		switch task.Status {
		case TaskPending:
			r.Pending++
		case TaskRunning:
			r.Running++
		case TaskCompleted:
			r.Completed++
		case TaskFailed:
			r.Failed++
		case TaskSkipped:
			r.Skipped++
		}
	}

	if r.Total > 0 {
		r.Progress = (r.Completed * 100) / r.Total
	}
	return r
}
