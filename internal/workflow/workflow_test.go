package workflow

import (
	"errors"
	"testing"
)

func threeTaskSpecs() []TaskSpec {
	return []TaskSpec{
		{ID: "A", AgentType: "test"},
		{ID: "B", AgentType: "test"},
		{ID: "C", AgentType: "test", DependsOn: []string{"A", "B"}},
	}
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name    string
		specs   []TaskSpec
		wantErr bool
	}{
		{
			name:  "valid graph",
			specs: threeTaskSpecs(),
		},
		{
			name:    "no tasks",
			specs:   nil,
			wantErr: true,
		},
		{
			name: "duplicate IDs",
			specs: []TaskSpec{
				{ID: "A", AgentType: "test"},
				{ID: "A", AgentType: "test"},
			},
			wantErr: true,
		},
		{
			name: "cycle",
			specs: []TaskSpec{
				{ID: "A", AgentType: "test", DependsOn: []string{"B"}},
				{ID: "B", AgentType: "test", DependsOn: []string{"A"}},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wf, err := New("test-workflow", tt.specs)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if wf.ID == "" {
				t.Error("workflow has no ID")
			}
			if wf.Status() != StatusPending {
				t.Errorf("new workflow status = %v, want pending", wf.Status())
			}
		})
	}
}

func TestWorkflow_TaskReturnsCopy(t *testing.T) {
	wf, err := New("copy-test", threeTaskSpecs())
	if err != nil {
		t.Fatal(err)
	}

	task, ok := wf.Task("A")
	if !ok {
		t.Fatal("task A not found")
	}

	// Mutating the copy must not leak into the workflow
	task.Status = TaskFailed
	task.Result = "tampered"

	again, _ := wf.Task("A")
	if again.Status != TaskPending || again.Result != "" {
		t.Error("mutation of returned task leaked into workflow state")
	}
}

func TestWorkflow_MarkTransitions(t *testing.T) {
	wf, err := New("transitions", threeTaskSpecs())
	if err != nil {
		t.Fatal(err)
	}

	if err := wf.MarkRunning("A"); err != nil {
		t.Fatal(err)
	}
	a, _ := wf.Task("A")
	if a.Status != TaskRunning || a.StartedAt.IsZero() {
		t.Errorf("after MarkRunning: status = %v, startedAt zero = %v", a.Status, a.StartedAt.IsZero())
	}

	if err := wf.MarkCompleted("A", "done", 2, nil); err != nil {
		t.Fatal(err)
	}
	a, _ = wf.Task("A")
	if a.Status != TaskCompleted || a.Result != "done" || a.RetryCount != 2 || a.CompletedAt.IsZero() {
		t.Errorf("after MarkCompleted: %+v", a)
	}

	failure := errors.New("boom")
	if err := wf.MarkFailed("B", 1, failure); err != nil {
		t.Fatal(err)
	}
	b, _ := wf.Task("B")
	if b.Status != TaskFailed || !errors.Is(b.Error, failure) || b.RetryCount != 1 {
		t.Errorf("after MarkFailed: %+v", b)
	}

	reason := errors.New("dependency failed")
	if err := wf.MarkSkipped("C", reason); err != nil {
		t.Fatal(err)
	}
	c, _ := wf.Task("C")
	if c.Status != TaskSkipped || !errors.Is(c.Error, reason) {
		t.Errorf("after MarkSkipped: %+v", c)
	}

	if err := wf.MarkRunning("nope"); err == nil {
		t.Error("MarkRunning on unknown task should fail")
	}
}

func TestWorkflow_ContextMerge(t *testing.T) {
	wf, err := New("context", threeTaskSpecs())
	if err != nil {
		t.Fatal(err)
	}

	if err := wf.MarkCompleted("A", "ok", 0, map[string]any{"version": "1.0", "arch": "amd64"}); err != nil {
		t.Fatal(err)
	}
	if err := wf.MarkCompleted("B", "ok", 0, map[string]any{"version": "2.0"}); err != nil {
		t.Fatal(err)
	}

	ctx := wf.Context()
	if ctx["version"] != "2.0" {
		t.Errorf("context[version] = %v, want later write 2.0", ctx["version"])
	}
	if ctx["arch"] != "amd64" {
		t.Errorf("context[arch] = %v, want amd64", ctx["arch"])
	}

	// Context() must return a copy
	ctx["version"] = "tampered"
	if wf.Context()["version"] != "2.0" {
		t.Error("mutation of returned context leaked into workflow")
	}
}

func TestWorkflow_Report(t *testing.T) {
	specs := []TaskSpec{
		{ID: "A", AgentType: "test"},
		{ID: "B", AgentType: "test"},
		{ID: "C", AgentType: "test"},
		{ID: "D", AgentType: "test"},
	}
	wf, err := New("report", specs)
	if err != nil {
		t.Fatal(err)
	}

	if err := wf.MarkCompleted("A", "ok", 0, nil); err != nil {
		t.Fatal(err)
	}
	if err := wf.MarkCompleted("B", "ok", 0, nil); err != nil {
		t.Fatal(err)
	}
	if err := wf.MarkFailed("C", 0, errors.New("boom")); err != nil {
		t.Fatal(err)
	}

	r := wf.Report()
	if r.Total != 4 || r.Completed != 2 || r.Failed != 1 || r.Pending != 1 {
		t.Errorf("report counts = %+v", r)
	}
	if r.Progress != 50 {
		t.Errorf("progress = %d, want 50", r.Progress)
	}
}

func TestWorkflow_Checkpoint(t *testing.T) {
	wf, err := New("checkpoint", threeTaskSpecs())
	if err != nil {
		t.Fatal(err)
	}

	if err := wf.MarkCompleted("A", "result-a", 1, nil); err != nil {
		t.Fatal(err)
	}
	cp := wf.Checkpoint()

	snap, ok := cp.TaskStates["A"]
	if !ok {
		t.Fatal("checkpoint is missing task A")
	}
	if snap.Status != TaskCompleted || snap.Result != "result-a" || snap.RetryCount != 1 {
		t.Errorf("snapshot = %+v", snap)
	}
	if cp.TakenAt.IsZero() {
		t.Error("checkpoint has no timestamp")
	}

	if err := wf.MarkFailed("B", 0, errors.New("boom")); err != nil {
		t.Fatal(err)
	}
	wf.Checkpoint()

	cps := wf.Checkpoints()
	if len(cps) != 2 {
		t.Fatalf("got %d checkpoints, want 2", len(cps))
	}
	// Earlier checkpoint must not see the later failure
	if cps[0].TaskStates["B"].Status != TaskPending {
		t.Error("first checkpoint reflects state recorded after it was taken")
	}
}
