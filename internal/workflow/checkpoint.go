package workflow

import "time"

// TaskSnapshot captures the externally visible state of one task.
type TaskSnapshot struct {
	Status     TaskStatus `json:"status"`
	RetryCount int        `json:"retry_count"`
	Result     string     `json:"result,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// Checkpoint is a point-in-time snapshot of all task states, taken at wave
// boundaries so it never observes a half-finished wave.
type Checkpoint struct {
	TakenAt    time.Time               `json:"taken_at"`
	TaskStates map[string]TaskSnapshot `json:"task_states"`
}

// Checkpoint appends a snapshot of the current task states to the workflow's
// checkpoint history and returns it.
func (w *Workflow) Checkpoint() Checkpoint {
	w.mu.Lock()
	defer w.mu.Unlock()

	cp := Checkpoint{
		TakenAt:    time.Now(),
		TaskStates: make(map[string]TaskSnapshot, len(w.tasks)),
	}

	for id, task := range w.tasks {
		snap := TaskSnapshot{
			Status:     task.Status,
			RetryCount: task.RetryCount,
			Result:     task.Result,
		}
		if task.Error != nil {
			snap.Error = task.Error.Error()
		}
		cp.TaskStates[id] = snap
	}

	w.checkpoints = append(w.checkpoints, cp)
	return cp
}

// Checkpoints returns the ordered checkpoint history.
func (w *Workflow) Checkpoints() []Checkpoint {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return append([]Checkpoint(nil), w.checkpoints...)
}
