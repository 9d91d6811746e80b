package agent

import "context"

// Invocation is a single request dispatched to an agent.
type Invocation struct {
	WorkflowID string         `json:"workflow_id"`
	TaskID     string         `json:"task_id"`
	Operation  string         `json:"operation"`
	Payload    map[string]any `json:"payload,omitempty"`
	Context    map[string]any `json:"context,omitempty"` // Read-only copy of the workflow's shared context
}

// Result is an agent's response to an invocation.
type Result struct {
	Output         string         `json:"output"`
	ContextUpdates map[string]any `json:"context_updates,omitempty"` // Merged into the shared context on completion
}

// Agent is a pluggable task executor. Implementations must be safe for
// concurrent Execute calls: the conductor dispatches whole waves at once.
type Agent interface {
	// Execute performs one operation and returns the result.
	Execute(ctx context.Context, inv Invocation) (Result, error)

	// Close releases any resources held by the agent.
	Close() error
}
