package agent

import (
	"context"
	"reflect"
	"testing"
)

// stubAgent records whether Close was called.
type stubAgent struct {
	closed bool
}

func (a *stubAgent) Execute(ctx context.Context, inv Invocation) (Result, error) {
	return Result{Output: "stub"}, nil
}

func (a *stubAgent) Close() error {
	a.closed = true
	return nil
}

func TestRegistry_RegisterAndResolve(t *testing.T) {
	r := NewRegistry()
	a := &stubAgent{}

	if err := r.Register("shell", a); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := r.Resolve("shell")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != Agent(a) {
		t.Error("Resolve returned a different agent")
	}

	if _, err := r.Resolve("missing"); err == nil {
		t.Error("expected error for unregistered type")
	}
}

func TestRegistry_DuplicateRegistration(t *testing.T) {
	r := NewRegistry()

	if err := r.Register("shell", &stubAgent{}); err != nil {
		t.Fatal(err)
	}
	if err := r.Register("shell", &stubAgent{}); err == nil {
		t.Error("expected error for duplicate registration")
	}
}

func TestRegistry_TypesSorted(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"zulu", "alpha", "mike"} {
		if err := r.Register(name, &stubAgent{}); err != nil {
			t.Fatal(err)
		}
	}

	want := []string{"alpha", "mike", "zulu"}
	if got := r.Types(); !reflect.DeepEqual(got, want) {
		t.Errorf("Types() = %v, want %v", got, want)
	}
}

func TestRegistry_CloseClosesAll(t *testing.T) {
	r := NewRegistry()
	a1 := &stubAgent{}
	a2 := &stubAgent{}

	if err := r.Register("a1", a1); err != nil {
		t.Fatal(err)
	}
	if err := r.Register("a2", a2); err != nil {
		t.Fatal(err)
	}

	if err := r.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !a1.closed || !a2.closed {
		t.Error("Close did not close all agents")
	}

	// Registry is empty after Close
	if _, err := r.Resolve("a1"); err == nil {
		t.Error("agents still resolvable after Close")
	}
}
