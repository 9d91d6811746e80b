package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"testing"
	"time"

	"github.com/cherryai/conductor/internal/agent"
)

// TestShutdownKillsTrackedSubprocesses verifies the shutdown path: every
// subprocess the ProcessManager tracks is terminated by KillAll.
func TestShutdownKillsTrackedSubprocesses(t *testing.T) {
	pm := agent.NewProcessManager()

	a, err := agent.NewExecAgent(agent.ExecConfig{
		Command: "sh",
		Args:    []string{"-c", "sleep 60"},
	}, pm)
	if err != nil {
		t.Fatal(err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := a.Execute(context.Background(), agent.Invocation{TaskID: "long"})
		done <- err
	}()

	// Wait for the subprocess to start and be tracked
	deadline := time.After(2 * time.Second)
	for pm.Count() == 0 {
		select {
		case <-deadline:
			t.Fatal("subprocess never tracked")
		case <-time.After(10 * time.Millisecond):
		}
	}

	if err := pm.KillAll(); err != nil {
		t.Errorf("KillAll: %v", err)
	}

	select {
	case err := <-done:
		if err == nil {
			t.Error("expected error from killed subprocess")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("subprocess did not terminate after KillAll")
	}

	if pm.Count() != 0 {
		t.Errorf("tracked count = %d after execute returned, want 0", pm.Count())
	}
}

// TestSignalContextCancellation verifies signal.NotifyContext cancels on the
// signals main wires up.
func TestSignalContextCancellation(t *testing.T) {
	// SIGUSR1 is safe to send to ourselves in tests
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGUSR1)
	defer stop()

	if err := syscall.Kill(os.Getpid(), syscall.SIGUSR1); err != nil {
		t.Fatalf("sending SIGUSR1: %v", err)
	}

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context did not cancel after SIGUSR1")
	}

	if err := ctx.Err(); err != context.Canceled {
		t.Errorf("ctx.Err() = %v, want context.Canceled", err)
	}
}
