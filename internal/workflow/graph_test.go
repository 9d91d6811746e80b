package workflow

import (
	"errors"
	"reflect"
	"testing"
)

func taskMap(specs ...TaskSpec) map[string]*Task {
	tasks := make(map[string]*Task, len(specs))
	for _, s := range specs {
		if s.AgentType == "" {
			s.AgentType = "test"
		}
		task, err := s.toTask()
		if err != nil {
			panic(err)
		}
		tasks[task.ID] = task
	}
	return tasks
}

func TestValidateGraph(t *testing.T) {
	tests := []struct {
		name    string
		tasks   map[string]*Task
		wantErr error
	}{
		{
			name: "linear chain",
			tasks: taskMap(
				TaskSpec{ID: "A"},
				TaskSpec{ID: "B", DependsOn: []string{"A"}},
				TaskSpec{ID: "C", DependsOn: []string{"B"}},
			),
		},
		{
			name: "diamond",
			tasks: taskMap(
				TaskSpec{ID: "A"},
				TaskSpec{ID: "B", DependsOn: []string{"A"}},
				TaskSpec{ID: "C", DependsOn: []string{"A"}},
				TaskSpec{ID: "D", DependsOn: []string{"B", "C"}},
			),
		},
		{
			name: "direct cycle",
			tasks: taskMap(
				TaskSpec{ID: "A", DependsOn: []string{"B"}},
				TaskSpec{ID: "B", DependsOn: []string{"A"}},
			),
			wantErr: ErrCyclicDependency,
		},
		{
			name: "transitive cycle",
			tasks: taskMap(
				TaskSpec{ID: "A", DependsOn: []string{"C"}},
				TaskSpec{ID: "B", DependsOn: []string{"A"}},
				TaskSpec{ID: "C", DependsOn: []string{"B"}},
			),
			wantErr: ErrCyclicDependency,
		},
		{
			name: "self loop",
			tasks: taskMap(
				TaskSpec{ID: "A", DependsOn: []string{"A"}},
			),
			wantErr: ErrCyclicDependency,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order, err := validateGraph(tt.tasks)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(order) != len(tt.tasks) {
				t.Errorf("order has %d tasks, want %d", len(order), len(tt.tasks))
			}
		})
	}
}

func TestValidateGraph_UnknownDependency(t *testing.T) {
	tasks := taskMap(
		TaskSpec{ID: "A", DependsOn: []string{"ghost"}},
	)

	_, err := validateGraph(tasks)
	if err == nil {
		t.Fatal("expected error for dependency on non-existent task")
	}
}

func TestPlan_WaveContents(t *testing.T) {
	tests := []struct {
		name  string
		tasks map[string]*Task
		want  [][]string
	}{
		{
			name: "independent tasks share one wave",
			tasks: taskMap(
				TaskSpec{ID: "A"},
				TaskSpec{ID: "B"},
				TaskSpec{ID: "C"},
			),
			want: [][]string{{"A", "B", "C"}},
		},
		{
			name: "fan-in",
			tasks: taskMap(
				TaskSpec{ID: "A"},
				TaskSpec{ID: "B"},
				TaskSpec{ID: "C", DependsOn: []string{"A", "B"}},
			),
			want: [][]string{{"A", "B"}, {"C"}},
		},
		{
			name: "linear chain makes one wave per task",
			tasks: taskMap(
				TaskSpec{ID: "A"},
				TaskSpec{ID: "B", DependsOn: []string{"A"}},
				TaskSpec{ID: "C", DependsOn: []string{"B"}},
			),
			want: [][]string{{"A"}, {"B"}, {"C"}},
		},
		{
			name: "diamond",
			tasks: taskMap(
				TaskSpec{ID: "A"},
				TaskSpec{ID: "B", DependsOn: []string{"A"}},
				TaskSpec{ID: "C", DependsOn: []string{"A"}},
				TaskSpec{ID: "D", DependsOn: []string{"B", "C"}},
			),
			want: [][]string{{"A"}, {"B", "C"}, {"D"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			waves, err := Plan(tt.tasks)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(waves, tt.want) {
				t.Errorf("waves = %v, want %v", waves, tt.want)
			}
		})
	}
}

func TestPlan_DependenciesAlwaysInEarlierWaves(t *testing.T) {
	tasks := taskMap(
		TaskSpec{ID: "fetch"},
		TaskSpec{ID: "parse", DependsOn: []string{"fetch"}},
		TaskSpec{ID: "lint", DependsOn: []string{"fetch"}},
		TaskSpec{ID: "build", DependsOn: []string{"parse"}},
		TaskSpec{ID: "test", DependsOn: []string{"build", "lint"}},
		TaskSpec{ID: "package", DependsOn: []string{"test"}},
	)

	waves, err := Plan(tasks)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	waveOf := make(map[string]int)
	for i, wave := range waves {
		for _, id := range wave {
			waveOf[id] = i
		}
	}

	for id, task := range tasks {
		for _, depID := range task.DependsOn {
			if waveOf[depID] >= waveOf[id] {
				t.Errorf("task %q (wave %d) depends on %q (wave %d)", id, waveOf[id], depID, waveOf[depID])
			}
		}
	}
}

func TestPlan_RejectsCycle(t *testing.T) {
	tasks := taskMap(
		TaskSpec{ID: "A", DependsOn: []string{"B"}},
		TaskSpec{ID: "B", DependsOn: []string{"A"}},
	)

	if _, err := Plan(tasks); !errors.Is(err, ErrCyclicDependency) {
		t.Fatalf("error = %v, want ErrCyclicDependency", err)
	}
}
