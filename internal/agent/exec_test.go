package agent

import (
	"context"
	"strings"
	"testing"
)

func TestParseResult(t *testing.T) {
	tests := []struct {
		name   string
		stdout string
		want   Result
	}{
		{
			name:   "plain text",
			stdout: "build succeeded\n",
			want:   Result{Output: "build succeeded"},
		},
		{
			name:   "structured result",
			stdout: `{"output": "deployed", "context_updates": {"url": "https://example.com"}}`,
			want:   Result{Output: "deployed", ContextUpdates: map[string]any{"url": "https://example.com"}},
		},
		{
			name:   "JSON without output field falls back to raw",
			stdout: `{"status": "ok"}`,
			want:   Result{Output: `{"status": "ok"}`},
		},
		{
			name:   "invalid JSON falls back to raw",
			stdout: "{broken",
			want:   Result{Output: "{broken"},
		},
		{
			name:   "empty output",
			stdout: "",
			want:   Result{Output: ""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseResult([]byte(tt.stdout))
			if got.Output != tt.want.Output {
				t.Errorf("output = %q, want %q", got.Output, tt.want.Output)
			}
			for k, v := range tt.want.ContextUpdates {
				if got.ContextUpdates[k] != v {
					t.Errorf("context_updates[%s] = %v, want %v", k, got.ContextUpdates[k], v)
				}
			}
		})
	}
}

func TestNewExecAgent_RequiresCommand(t *testing.T) {
	if _, err := NewExecAgent(ExecConfig{}, nil); err == nil {
		t.Error("expected error for empty command")
	}
}

func TestExecAgent_Execute(t *testing.T) {
	// cat echoes the invocation JSON back, which parseResult treats as raw
	// text since Invocation has no "output" field
	a, err := NewExecAgent(ExecConfig{Command: "cat"}, nil)
	if err != nil {
		t.Fatal(err)
	}

	inv := Invocation{
		WorkflowID: "wf1",
		TaskID:     "echo",
		Operation:  "execute",
		Payload:    map[string]any{"msg": "hello"},
	}

	result, err := a.Execute(context.Background(), inv)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(result.Output, `"task_id":"echo"`) {
		t.Errorf("output %q does not contain the invocation JSON", result.Output)
	}
	if !strings.Contains(result.Output, `"msg":"hello"`) {
		t.Errorf("output %q is missing the payload", result.Output)
	}
}

func TestExecAgent_ExecuteStructuredOutput(t *testing.T) {
	a, err := NewExecAgent(ExecConfig{
		Command: "sh",
		Args:    []string{"-c", `echo '{"output": "done", "context_updates": {"step": "one"}}'`},
	}, nil)
	if err != nil {
		t.Fatal(err)
	}

	result, err := a.Execute(context.Background(), Invocation{TaskID: "t"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Output != "done" {
		t.Errorf("output = %q, want %q", result.Output, "done")
	}
	if result.ContextUpdates["step"] != "one" {
		t.Errorf("context updates = %v", result.ContextUpdates)
	}
}

func TestExecAgent_ExecuteFailure(t *testing.T) {
	a, err := NewExecAgent(ExecConfig{
		Command: "sh",
		Args:    []string{"-c", "echo oops >&2; exit 3"},
	}, nil)
	if err != nil {
		t.Fatal(err)
	}

	_, err = a.Execute(context.Background(), Invocation{TaskID: "t"})
	if err == nil {
		t.Fatal("expected error from failing command")
	}
	if !strings.Contains(err.Error(), "oops") {
		t.Errorf("error %q does not surface stderr", err)
	}
}

func TestExecAgent_ExecuteRespectsContext(t *testing.T) {
	a, err := NewExecAgent(ExecConfig{
		Command: "sh",
		Args:    []string{"-c", "sleep 30"},
	}, nil)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := a.Execute(ctx, Invocation{TaskID: "t"}); err == nil {
		t.Error("expected error when context is already cancelled")
	}
}

func TestProcessManager_TrackAndUntrack(t *testing.T) {
	pm := NewProcessManager()

	cmd := newCommand(context.Background(), "sleep", "10")
	if err := cmd.Start(); err != nil {
		t.Fatal(err)
	}

	pm.Track(cmd)
	if pm.Count() != 1 {
		t.Errorf("count = %d after Track, want 1", pm.Count())
	}

	if err := pm.KillAll(); err != nil {
		t.Errorf("KillAll: %v", err)
	}
	cmd.Wait()

	pm.Untrack(cmd)
	if pm.Count() != 0 {
		t.Errorf("count = %d after Untrack, want 0", pm.Count())
	}
}
