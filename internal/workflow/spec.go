package workflow

import (
	"encoding/json"
	"fmt"
	"os"
)

// TaskSpec describes one task in a workflow definition file or API call.
type TaskSpec struct {
	ID          string         `json:"id"`
	Name        string         `json:"name,omitempty"`
	AgentType   string         `json:"agent"`
	Operation   string         `json:"operation,omitempty"`
	Payload     map[string]any `json:"payload,omitempty"`
	DependsOn   []string       `json:"depends_on,omitempty"`
	MaxRetries  int            `json:"max_retries,omitempty"`
	FailureMode string         `json:"failure_mode,omitempty"` // "hard" (default), "soft", "skip"
}

// Spec is a workflow definition: a name plus its task list.
type Spec struct {
	Name  string     `json:"name"`
	Tasks []TaskSpec `json:"tasks"`
}

// LoadSpec reads a workflow definition from a JSON file.
func LoadSpec(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading workflow spec %s: %w", path, err)
	}

	var spec Spec
	if err := json.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("parsing workflow spec %s: %w", path, err)
	}

	if spec.Name == "" {
		return nil, fmt.Errorf("workflow spec %s has no name", path)
	}

	return &spec, nil
}

// toTask converts a spec entry to a runtime task, validating required fields.
func (s TaskSpec) toTask() (*Task, error) {
	if s.ID == "" {
		return nil, fmt.Errorf("task spec is missing an ID")
	}
	if s.AgentType == "" {
		return nil, fmt.Errorf("task %q has no agent type", s.ID)
	}
	if s.MaxRetries < 0 {
		return nil, fmt.Errorf("task %q has negative max_retries", s.ID)
	}

	mode, err := parseFailureMode(s.FailureMode)
	if err != nil {
		return nil, fmt.Errorf("task %q: %w", s.ID, err)
	}

	name := s.Name
	if name == "" {
		name = s.ID
	}

	operation := s.Operation
	if operation == "" {
		operation = "execute"
	}

	return &Task{
		ID:          s.ID,
		Name:        name,
		AgentType:   s.AgentType,
		Operation:   operation,
		Payload:     s.Payload,
		DependsOn:   append([]string(nil), s.DependsOn...),
		MaxRetries:  s.MaxRetries,
		FailureMode: mode,
		Status:      TaskPending,
	}, nil
}

func parseFailureMode(s string) (FailureMode, error) {
	switch s {
	case "", "hard":
		return FailHard, nil
	case "soft":
		return FailSoft, nil
	case "skip":
		return FailSkip, nil
	default:
		return FailHard, fmt.Errorf("unknown failure mode %q", s)
	}
}
