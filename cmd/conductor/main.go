package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/cherryai/conductor/internal/agent"
	"github.com/cherryai/conductor/internal/conductor"
	"github.com/cherryai/conductor/internal/config"
	"github.com/cherryai/conductor/internal/events"
	"github.com/cherryai/conductor/internal/persistence"
	"github.com/cherryai/conductor/internal/tui"
	"github.com/cherryai/conductor/internal/workflow"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: conductor <workflow.json>\n")
		os.Exit(1)
	}
	specPath := os.Args[1]

	// Signal-aware context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadDefault()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error getting home directory: %v\n", err)
		os.Exit(1)
	}
	globalPath := filepath.Join(homeDir, ".conductor", "config.json")
	projectPath := filepath.Join(".conductor", "config.json")

	spec, err := workflow.LoadSpec(specPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading workflow spec: %v\n", err)
		os.Exit(1)
	}

	// ProcessManager tracks agent subprocesses for shutdown cleanup
	pm := agent.NewProcessManager()

	registry := agent.NewRegistry()
	for agentType, agentCfg := range cfg.Agents {
		a, err := agent.NewExecAgent(agent.ExecConfig{
			Command: agentCfg.Command,
			Args:    agentCfg.Args,
			WorkDir: agentCfg.WorkDir,
			Env:     agentCfg.Env,
		}, pm)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating agent %q: %v\n", agentType, err)
			os.Exit(1)
		}
		if err := registry.Register(agentType, a); err != nil {
			fmt.Fprintf(os.Stderr, "Error registering agent %q: %v\n", agentType, err)
			os.Exit(1)
		}
	}
	defer registry.Close()

	var store persistence.Store
	if cfg.DatabasePath != "" {
		s, err := persistence.NewSQLiteStore(ctx, cfg.DatabasePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening store: %v\n", err)
			os.Exit(1)
		}
		defer s.Close()
		store = s
	}

	bus := events.NewBus()
	defer bus.Close()

	cond, err := conductor.New(conductor.Options{
		Registry:      registry,
		Store:         store,
		Bus:           bus,
		MaxConcurrent: cfg.MaxConcurrent,
		Retry: conductor.RetryConfig{
			InitialInterval:     time.Duration(cfg.Retry.InitialIntervalMS) * time.Millisecond,
			MaxInterval:         time.Duration(cfg.Retry.MaxIntervalMS) * time.Millisecond,
			Multiplier:          cfg.Retry.Multiplier,
			RandomizationFactor: cfg.Retry.RandomizationFactor,
		},
		Breaker: conductor.BreakerConfig{
			FailureThreshold: uint32(cfg.Breaker.FailureThreshold),
			Cooldown:         time.Duration(cfg.Breaker.CooldownSeconds) * time.Second,
		},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating conductor: %v\n", err)
		os.Exit(1)
	}

	wf, err := cond.CreateWorkflow(ctx, spec.Name, spec.Tasks)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating workflow: %v\n", err)
		os.Exit(1)
	}

	cancelWorkflow := func() {
		if err := cond.CancelWorkflow(wf.ID); err != nil {
			log.Printf("Cancel failed: %v", err)
		}
	}

	model := tui.New(bus, cfg, globalPath, projectPath, cancelWorkflow)
	p := tea.NewProgram(model, tea.WithAltScreen())

	// Execute the workflow while the TUI consumes bus events
	runDone := make(chan struct{})
	go func() {
		defer close(runDone)
		if _, err := cond.ExecuteWorkflow(ctx, wf.ID); err != nil {
			log.Printf("Workflow execution error: %v", err)
		}
	}()

	errChan := make(chan error, 1)
	go func() {
		_, err := p.Run()
		errChan <- err
	}()

	select {
	case err := <-errChan:
		// Normal TUI exit (user pressed 'q' or TUI finished)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

	case <-ctx.Done():
		// Ctrl+C or SIGTERM: restore default signal handling so a second
		// Ctrl+C force-exits
		stop()

		log.Println("Shutdown signal received, cleaning up...")

		cancelWorkflow()

		if err := pm.KillAll(); err != nil {
			log.Printf("Error killing agent subprocesses: %v", err)
		}

		p.Quit()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		select {
		case err := <-errChan:
			if err != nil {
				log.Printf("TUI exit error: %v", err)
			}
		case <-shutdownCtx.Done():
			log.Println("Shutdown timeout exceeded, forcing exit")
		}
	}

	<-runDone

	report, err := cond.WorkflowStatus(wf.ID)
	if err == nil {
		log.Printf("Workflow %s finished: %s (%d%% complete, %d failed, %d skipped)",
			report.Name, report.Status, report.Progress, report.Failed, report.Skipped)
	}
}
