package workflow

import (
	"errors"
	"fmt"
	"sort"

	"github.com/gammazero/toposort"
)

// ErrCyclicDependency is returned when the task graph contains a cycle.
var ErrCyclicDependency = errors.New("cyclic dependency in task graph")

// validateGraph verifies the task graph: every dependency must reference an
// existing task and the graph must be acyclic. Cycle detection runs through
// gammazero/toposort. Returns a topological order of task IDs on success.
func validateGraph(tasks map[string]*Task) ([]string, error) {
	for taskID, task := range tasks {
		for _, depID := range task.DependsOn {
			if _, exists := tasks[depID]; !exists {
				return nil, fmt.Errorf("task %q depends on non-existent task %q", taskID, depID)
			}
		}
	}

	// Build edges for topological sort. Tasks without dependencies get an
	// edge from nil so they are still part of the result.
	var edges []toposort.Edge
	for taskID, task := range tasks {
		if len(task.DependsOn) == 0 {
			edges = append(edges, toposort.Edge{nil, taskID})
			continue
		}
		for _, depID := range task.DependsOn {
			edges = append(edges, toposort.Edge{depID, taskID})
		}
	}

	sorted, err := toposort.Toposort(edges)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCyclicDependency, err)
	}

	order := make([]string, 0, len(tasks))
	for _, id := range sorted {
		if id != nil {
			order = append(order, id.(string))
		}
	}

	if len(order) != len(tasks) {
		return nil, fmt.Errorf("topological sort lost %d tasks", len(tasks)-len(order))
	}

	return order, nil
}

// Plan partitions an acyclic task graph into execution waves: ordered batches
// where a task appears only after all of its dependencies' batches, and tasks
// within a batch share no dependency relationship. Kahn-style repeated removal
// of zero-indegree nodes; the current zero-indegree set forms the wave.
// IDs within a wave are sorted for deterministic output.
func Plan(tasks map[string]*Task) ([][]string, error) {
	if _, err := validateGraph(tasks); err != nil {
		return nil, err
	}

	indegree := make(map[string]int, len(tasks))
	dependents := make(map[string][]string, len(tasks))
	for id, task := range tasks {
		indegree[id] = len(task.DependsOn)
		for _, depID := range task.DependsOn {
			dependents[depID] = append(dependents[depID], id)
		}
	}

	var waves [][]string
	remaining := len(tasks)

	for remaining > 0 {
		var wave []string
		for id, deg := range indegree {
			if deg == 0 {
				wave = append(wave, id)
			}
		}
		// Cycles are rejected above, so an empty wave cannot happen.
		sort.Strings(wave)

		for _, id := range wave {
			delete(indegree, id)
			for _, childID := range dependents[id] {
				indegree[childID]--
			}
		}

		waves = append(waves, wave)
		remaining -= len(wave)
	}

	return waves, nil
}
