package events

import (
	"time"
)

// Event is the base interface for all events.
type Event interface {
	EventType() string
	WorkflowID() string
}

// Topic constants
const (
	TopicTask     = "task"
	TopicWorkflow = "workflow"
)

// Event type constants
const (
	EventTypeTaskStarted       = "task.started"
	EventTypeTaskRetried       = "task.retried"
	EventTypeTaskCompleted     = "task.completed"
	EventTypeTaskFailed        = "task.failed"
	EventTypeTaskSkipped       = "task.skipped"
	EventTypeCheckpointSaved   = "workflow.checkpoint"
	EventTypeProgress          = "workflow.progress"
	EventTypeWorkflowFinished  = "workflow.finished"
)

// TaskStartedEvent is published when a task begins execution.
type TaskStartedEvent struct {
	Workflow  string
	ID        string
	Name      string
	AgentType string
	Timestamp time.Time
}

func (e TaskStartedEvent) EventType() string  { return EventTypeTaskStarted }
func (e TaskStartedEvent) WorkflowID() string { return e.Workflow }

// TaskRetriedEvent is published when a failed attempt is about to be retried.
type TaskRetriedEvent struct {
	Workflow  string
	ID        string
	Attempt   int // Attempts made so far
	Err       error
	Timestamp time.Time
}

func (e TaskRetriedEvent) EventType() string  { return EventTypeTaskRetried }
func (e TaskRetriedEvent) WorkflowID() string { return e.Workflow }

// TaskCompletedEvent is published when a task completes successfully.
type TaskCompletedEvent struct {
	Workflow  string
	ID        string
	Result    string
	Retries   int
	Duration  time.Duration
	Timestamp time.Time
}

func (e TaskCompletedEvent) EventType() string  { return EventTypeTaskCompleted }
func (e TaskCompletedEvent) WorkflowID() string { return e.Workflow }

// TaskFailedEvent is published when a task fails permanently.
type TaskFailedEvent struct {
	Workflow  string
	ID        string
	Err       error
	Duration  time.Duration
	Timestamp time.Time
}

func (e TaskFailedEvent) EventType() string  { return EventTypeTaskFailed }
func (e TaskFailedEvent) WorkflowID() string { return e.Workflow }

// TaskSkippedEvent is published when a task is skipped due to a failed
// upstream dependency or workflow cancellation.
type TaskSkippedEvent struct {
	Workflow  string
	ID        string
	Reason    string
	Timestamp time.Time
}

func (e TaskSkippedEvent) EventType() string  { return EventTypeTaskSkipped }
func (e TaskSkippedEvent) WorkflowID() string { return e.Workflow }

// CheckpointSavedEvent is published after each wave's checkpoint is recorded.
type CheckpointSavedEvent struct {
	Workflow  string
	Wave      int // Zero-based index of the wave just finished
	Timestamp time.Time
}

func (e CheckpointSavedEvent) EventType() string  { return EventTypeCheckpointSaved }
func (e CheckpointSavedEvent) WorkflowID() string { return e.Workflow }

// ProgressEvent is published whenever workflow progress changes.
type ProgressEvent struct {
	Workflow  string
	Total     int
	Completed int
	Running   int
	Failed    int
	Skipped   int
	Pending   int
	Progress  int // Percent completed, 0-100
	Timestamp time.Time
}

func (e ProgressEvent) EventType() string  { return EventTypeProgress }
func (e ProgressEvent) WorkflowID() string { return e.Workflow }

// WorkflowFinishedEvent is published when a workflow reaches a terminal status.
type WorkflowFinishedEvent struct {
	Workflow  string
	Status    string
	Timestamp time.Time
}

func (e WorkflowFinishedEvent) EventType() string  { return EventTypeWorkflowFinished }
func (e WorkflowFinishedEvent) WorkflowID() string { return e.Workflow }
