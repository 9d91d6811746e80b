package config

// AgentConfig defines the subprocess serving one agent type.
type AgentConfig struct {
	Command string   `json:"command"`           // Binary invoked per task
	Args    []string `json:"args,omitempty"`    // Default args appended to every invocation
	WorkDir string   `json:"workdir,omitempty"` // Working directory (empty = inherit)
	Env     []string `json:"env,omitempty"`     // Extra environment entries, KEY=VALUE
}

// RetrySettings tunes exponential backoff between task attempts.
// Durations are milliseconds in the config file.
type RetrySettings struct {
	InitialIntervalMS   int     `json:"initial_interval_ms,omitempty"`
	MaxIntervalMS       int     `json:"max_interval_ms,omitempty"`
	Multiplier          float64 `json:"multiplier,omitempty"`
	RandomizationFactor float64 `json:"randomization_factor,omitempty"`
}

// BreakerSettings tunes the per-(agent, operation) circuit breakers.
type BreakerSettings struct {
	FailureThreshold int `json:"failure_threshold,omitempty"` // Consecutive failures before opening
	CooldownSeconds  int `json:"cooldown_seconds,omitempty"`  // Open duration before a trial call
}

// ConductorConfig is the top-level configuration.
type ConductorConfig struct {
	MaxConcurrent int                    `json:"max_concurrent,omitempty"` // Concurrent tasks per wave
	DatabasePath  string                 `json:"database_path,omitempty"`  // SQLite path; empty disables persistence
	Agents        map[string]AgentConfig `json:"agents"`
	Retry         RetrySettings          `json:"retry,omitempty"`
	Breaker       BreakerSettings        `json:"breaker,omitempty"`
}
