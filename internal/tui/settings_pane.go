package tui

import (
	"fmt"
	"strconv"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/cherryai/conductor/internal/config"
)

// SettingsPaneModel manages the settings form overlay for conductor tuning.
type SettingsPaneModel struct {
	form        *huh.Form
	config      *config.ConductorConfig
	globalPath  string
	projectPath string
	width       int
	height      int
	visible     bool
	saved       bool
	err         error

	// Form field bindings (strings for Huh)
	saveTarget       string
	maxConcurrent    string
	failureThreshold string
	cooldownSeconds  string
	retryInitialMS   string
}

// NewSettingsPaneModel creates a new settings pane.
func NewSettingsPaneModel(cfg *config.ConductorConfig, globalPath, projectPath string) SettingsPaneModel {
	m := SettingsPaneModel{
		config:      cfg,
		globalPath:  globalPath,
		projectPath: projectPath,

		saveTarget:       "global",
		maxConcurrent:    strconv.Itoa(cfg.MaxConcurrent),
		failureThreshold: strconv.Itoa(cfg.Breaker.FailureThreshold),
		cooldownSeconds:  strconv.Itoa(cfg.Breaker.CooldownSeconds),
		retryInitialMS:   strconv.Itoa(cfg.Retry.InitialIntervalMS),
	}

	m.buildForm()
	return m
}

// validatePositiveInt rejects values that aren't positive integers.
func validatePositiveInt(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("must be a number")
	}
	if n <= 0 {
		return fmt.Errorf("must be positive")
	}
	return nil
}

// buildForm constructs the Huh form with all settings fields.
func (m *SettingsPaneModel) buildForm() {
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Key("saveTarget").
				Title("Save To").
				Options(
					huh.NewOption("Global (~/.conductor/config.json)", "global"),
					huh.NewOption("Project (.conductor/config.json)", "project"),
				).
				Value(&m.saveTarget),
		).Title("Save Target"),

		huh.NewGroup(
			huh.NewInput().
				Key("maxConcurrent").
				Title("Max Concurrent Tasks").
				Validate(validatePositiveInt).
				Value(&m.maxConcurrent).
				Placeholder("4"),

			huh.NewInput().
				Key("retryInitialMS").
				Title("Retry Initial Interval (ms)").
				Validate(validatePositiveInt).
				Value(&m.retryInitialMS).
				Placeholder("100"),
		).Title("Execution"),

		huh.NewGroup(
			huh.NewInput().
				Key("failureThreshold").
				Title("Breaker Failure Threshold").
				Validate(validatePositiveInt).
				Value(&m.failureThreshold).
				Placeholder("5"),

			huh.NewInput().
				Key("cooldownSeconds").
				Title("Breaker Cooldown (s)").
				Validate(validatePositiveInt).
				Value(&m.cooldownSeconds).
				Placeholder("30"),
		).Title("Circuit Breaker"),
	)
}

// Init initializes the settings pane.
func (m SettingsPaneModel) Init() tea.Cmd {
	return m.form.Init()
}

// Update handles messages for the settings pane.
func (m SettingsPaneModel) Update(msg tea.Msg) (SettingsPaneModel, tea.Cmd) {
	if !m.visible {
		return m, nil
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			// Cancel without saving
			m.visible = false
			m.saved = false
			return m, nil
		}
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		m.applyFormToConfig()

		targetPath := m.globalPath
		if m.saveTarget == "project" {
			targetPath = m.projectPath
		}

		if err := config.Save(m.config, targetPath); err != nil {
			m.err = err
			m.saved = false
		} else {
			m.saved = true
			m.err = nil
			m.visible = false
		}
	}

	return m, cmd
}

// applyFormToConfig copies validated form values back to the config struct.
func (m *SettingsPaneModel) applyFormToConfig() {
	if n, err := strconv.Atoi(m.maxConcurrent); err == nil && n > 0 {
		m.config.MaxConcurrent = n
	}
	if n, err := strconv.Atoi(m.retryInitialMS); err == nil && n > 0 {
		m.config.Retry.InitialIntervalMS = n
	}
	if n, err := strconv.Atoi(m.failureThreshold); err == nil && n > 0 {
		m.config.Breaker.FailureThreshold = n
	}
	if n, err := strconv.Atoi(m.cooldownSeconds); err == nil && n > 0 {
		m.config.Breaker.CooldownSeconds = n
	}
}

// View renders the settings pane.
func (m SettingsPaneModel) View() string {
	if !m.visible {
		return ""
	}

	var content string

	if m.saved && m.form.State == huh.StateCompleted {
		content = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10")).
			Bold(true).
			Render("✓ Settings saved successfully!")
	} else if m.err != nil {
		content = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true).
			Render(fmt.Sprintf("✗ Error saving: %v", m.err))
	} else {
		content = m.form.View()
	}

	style := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("62")).
		Padding(1, 2).
		Width(m.width - 4).
		Height(m.height - 4)

	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("62")).
		Render("⚙ Settings")

	return lipgloss.JoinVertical(lipgloss.Left, title, style.Render(content))
}

// SetSize updates the dimensions of the settings pane.
func (m *SettingsPaneModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	if m.form != nil {
		m.form.WithWidth(w - 8).WithHeight(h - 8)
	}
}

// SetVisible shows or hides the settings pane.
func (m *SettingsPaneModel) SetVisible(v bool) {
	m.visible = v
	m.saved = false
	m.err = nil

	// Rebuild to reset form state when showing
	if v && m.form != nil {
		m.buildForm()
	}
}

// IsVisible returns whether the settings pane is currently visible.
func (m SettingsPaneModel) IsVisible() bool {
	return m.visible
}
