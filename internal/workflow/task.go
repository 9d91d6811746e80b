package workflow

import "time"

// TaskStatus represents the current state of a task.
type TaskStatus int

const (
	TaskPending   TaskStatus = iota // Waiting for dependencies
	TaskRunning                     // Currently executing
	TaskCompleted                   // Finished successfully
	TaskFailed                      // Finished with error after exhausting retries
	TaskSkipped                     // Not run: cancelled, or an upstream dependency failed
)

// String returns a human-readable status name.
func (s TaskStatus) String() string {
	switch s {
	case TaskPending:
		return "pending"
	case TaskRunning:
		return "running"
	case TaskCompleted:
		return "completed"
	case TaskFailed:
		return "failed"
	case TaskSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// FailureMode determines how a task's failure affects its dependents.
type FailureMode int

const (
	FailHard FailureMode = iota // Dependents are skipped
	FailSoft                    // Dependents still run
	FailSkip                    // Treat as success for dependency purposes
)

// Task represents a unit of work in a workflow.
type Task struct {
	ID          string         // Unique within the workflow
	Name        string         // Human-readable name
	AgentType   string         // Key into the agent registry
	Operation   string         // Operation the agent performs; part of the breaker key
	Payload     map[string]any // Opaque payload passed to the agent
	DependsOn   []string       // Task IDs this task depends on
	MaxRetries  int            // Additional attempts after the first failure
	FailureMode FailureMode
	Status      TaskStatus
	RetryCount  int    // Retries actually consumed
	Result      string // Agent output (populated after completion)
	Error       error  // Error if failed or skipped
	StartedAt   time.Time
	CompletedAt time.Time
}

// cloneTask returns a deep-enough copy for handing out without aliasing
// mutable slices or the payload map.
func cloneTask(t *Task) *Task {
	if t == nil {
		return nil
	}

	cp := *t
	if t.DependsOn != nil {
		cp.DependsOn = append([]string(nil), t.DependsOn...)
	}
	if t.Payload != nil {
		cp.Payload = make(map[string]any, len(t.Payload))
		for k, v := range t.Payload {
			cp.Payload[k] = v
		}
	}
	return &cp
}
