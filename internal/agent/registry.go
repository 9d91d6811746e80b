package agent

import (
	"fmt"
	"sort"
	"sync"
)

// Registry maps agent types to implementations. It is handed to the conductor
// explicitly; there is no package-level default instance. Agent types are
// resolved when a workflow is defined, not at dispatch time, so a workflow
// referencing an unregistered type fails fast at creation.
type Registry struct {
	mu     sync.RWMutex
	agents map[string]Agent
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		agents: make(map[string]Agent),
	}
}

// Register binds an agent type to an implementation.
// Returns an error if the type is already registered.
func (r *Registry) Register(agentType string, a Agent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.agents[agentType]; exists {
		return fmt.Errorf("agent type %q already registered", agentType)
	}
	r.agents[agentType] = a
	return nil
}

// Resolve returns the implementation for an agent type.
func (r *Registry) Resolve(agentType string) (Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, exists := r.agents[agentType]
	if !exists {
		return nil, fmt.Errorf("no agent registered for type %q", agentType)
	}
	return a, nil
}

// Types returns the registered agent types, sorted.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.agents))
	for t := range r.agents {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Close closes all registered agents, returning the first error encountered.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var firstErr error
	for agentType, a := range r.agents {
		if err := a.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing agent %q: %w", agentType, err)
		}
	}
	r.agents = make(map[string]Agent)
	return firstErr
}
