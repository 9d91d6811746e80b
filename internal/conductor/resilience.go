package conductor

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"

	"github.com/cherryai/conductor/internal/agent"
)

// ErrBreakerOpen marks a task failure caused by an open circuit breaker:
// the agent was never invoked and the failure is not retried.
var ErrBreakerOpen = errors.New("circuit breaker open")

// RetryConfig configures exponential backoff between task attempts.
// The number of attempts itself is bounded per task by its MaxRetries.
type RetryConfig struct {
	InitialInterval     time.Duration // Initial retry interval (default 100ms)
	MaxInterval         time.Duration // Maximum retry interval (default 10s)
	Multiplier          float64       // Backoff multiplier (default 2.0)
	RandomizationFactor float64       // Jitter factor (default 0.5)
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		InitialInterval:     100 * time.Millisecond,
		MaxInterval:         10 * time.Second,
		Multiplier:          2.0,
		RandomizationFactor: 0.5,
	}
}

// BreakerConfig configures circuit breaker behavior shared by all keys.
type BreakerConfig struct {
	FailureThreshold uint32        // Consecutive failures before the breaker opens (default 5)
	Cooldown         time.Duration // Open duration before a single trial call (default 30s)
}

// DefaultBreakerConfig returns the default breaker configuration.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 5,
		Cooldown:         30 * time.Second,
	}
}

// BreakerRegistry manages circuit breakers keyed by (agent type, operation),
// so a failing operation on one agent never short-circuits unrelated work.
type BreakerRegistry struct {
	mu       sync.Mutex
	cfg      BreakerConfig
	breakers map[string]*gobreaker.CircuitBreaker
}

// NewBreakerRegistry creates a registry producing breakers with the given config.
func NewBreakerRegistry(cfg BreakerConfig) *BreakerRegistry {
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = DefaultBreakerConfig().FailureThreshold
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultBreakerConfig().Cooldown
	}

	return &BreakerRegistry{
		cfg:      cfg,
		breakers: make(map[string]*gobreaker.CircuitBreaker),
	}
}

// Get returns the breaker for the given agent type and operation,
// creating it on first use.
func (r *BreakerRegistry) Get(agentType, operation string) *gobreaker.CircuitBreaker {
	key := agentType + ":" + operation

	r.mu.Lock()
	defer r.mu.Unlock()

	if cb, ok := r.breakers[key]; ok {
		return cb
	}

	threshold := r.cfg.FailureThreshold
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        key,
		MaxRequests: 1, // Single trial call in half-open state
		Interval:    0, // Never clear counts while closed
		Timeout:     r.cfg.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Printf("Circuit breaker %q: %s -> %s", name, from, to)
		},
		IsSuccessful: func(err error) bool {
			// User cancellation is not an agent failure
			if err == nil {
				return true
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return true
			}
			return false
		},
	})

	r.breakers[key] = cb
	return cb
}

// executeWithRetry runs one invocation through the circuit breaker, retrying
// transient failures with exponential backoff up to maxRetries additional
// attempts. Returns the result, the number of times the agent was actually
// invoked, and the final error. An open breaker aborts immediately with
// ErrBreakerOpen wrapped in the returned error.
func executeWithRetry(ctx context.Context, a agent.Agent, inv agent.Invocation, cb *gobreaker.CircuitBreaker, retryCfg RetryConfig, maxRetries int, onRetry func(attempt int, err error)) (agent.Result, int, error) {
	var result agent.Result
	invocations := 0

	operation := func() error {
		// Fail fast if already cancelled
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}

		res, err := cb.Execute(func() (interface{}, error) {
			invocations++
			return a.Execute(ctx, inv)
		})

		if err != nil {
			// Open breaker: short-circuit, never retry
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return backoff.Permanent(ErrBreakerOpen)
			}

			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}

			return err
		}

		result = res.(agent.Result)
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = retryCfg.InitialInterval
	policy.MaxInterval = retryCfg.MaxInterval
	policy.Multiplier = retryCfg.Multiplier
	policy.RandomizationFactor = retryCfg.RandomizationFactor
	policy.MaxElapsedTime = 0 // Attempt count, not wall clock, bounds retries

	bounded := backoff.WithMaxRetries(backoff.WithContext(policy, ctx), uint64(maxRetries))

	notify := func(err error, _ time.Duration) {
		if onRetry != nil {
			onRetry(invocations, err)
		}
	}

	err := backoff.RetryNotify(operation, bounded, notify)
	return result, invocations, err
}
