package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// ExecConfig defines the subprocess an ExecAgent drives.
type ExecConfig struct {
	Command string   // Binary to invoke
	Args    []string // Args appended to every invocation
	WorkDir string   // Working directory (empty = inherit)
	Env     []string // Extra environment entries, KEY=VALUE
}

// ExecAgent runs each invocation as a subprocess: the invocation is written
// to stdin as JSON, and stdout is the result. If stdout parses as a Result
// document the context updates are honored; otherwise the raw output becomes
// the result text. Agents stay vendor-agnostic — any executable that speaks
// this contract can serve a task.
type ExecAgent struct {
	cfg ExecConfig
	pm  *ProcessManager
}

// NewExecAgent creates an agent backed by the configured command.
func NewExecAgent(cfg ExecConfig, pm *ProcessManager) (*ExecAgent, error) {
	if cfg.Command == "" {
		return nil, fmt.Errorf("exec agent requires a command")
	}
	return &ExecAgent{cfg: cfg, pm: pm}, nil
}

// Execute runs the configured command for one invocation.
func (a *ExecAgent) Execute(ctx context.Context, inv Invocation) (Result, error) {
	input, err := json.Marshal(inv)
	if err != nil {
		return Result{}, fmt.Errorf("encoding invocation: %w", err)
	}

	cmd := newCommand(ctx, a.cfg.Command, a.cfg.Args...)
	cmd.Stdin = bytes.NewReader(input)
	if a.cfg.WorkDir != "" {
		cmd.Dir = a.cfg.WorkDir
	}
	if len(a.cfg.Env) > 0 {
		cmd.Env = append(os.Environ(), a.cfg.Env...)
	}

	stdout, _, err := runCommand(cmd, a.pm)
	if err != nil {
		return Result{}, err
	}

	return parseResult(stdout), nil
}

// Close is a no-op: ExecAgent holds no long-lived process.
func (a *ExecAgent) Close() error {
	return nil
}

// parseResult interprets subprocess stdout. A JSON object with an "output"
// field is treated as a structured Result; anything else is raw result text.
func parseResult(stdout []byte) Result {
	trimmed := bytes.TrimSpace(stdout)

	if len(trimmed) > 0 && trimmed[0] == '{' {
		var res Result
		if err := json.Unmarshal(trimmed, &res); err == nil && res.Output != "" {
			return res
		}
	}

	return Result{Output: strings.TrimSpace(string(stdout))}
}
