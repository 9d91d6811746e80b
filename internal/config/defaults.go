package config

// DefaultConfig returns the default configuration. The stock "shell" agent
// executes task payloads with sh, which is enough to run the example
// workflow specs without any external tooling.
func DefaultConfig() *ConductorConfig {
	return &ConductorConfig{
		MaxConcurrent: 4,
		DatabasePath:  ".conductor/conductor.db",
		Agents: map[string]AgentConfig{
			"shell": {
				Command: "sh",
				Args:    []string{"-s"},
			},
		},
		Retry: RetrySettings{
			InitialIntervalMS:   100,
			MaxIntervalMS:       10000,
			Multiplier:          2.0,
			RandomizationFactor: 0.5,
		},
		Breaker: BreakerSettings{
			FailureThreshold: 5,
			CooldownSeconds:  30,
		},
	}
}
