package resilience

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
)

// Default policy values
const (
	DefaultMaxAttempts       = 3
	DefaultBaseDelay         = 1 * time.Second
	DefaultMaxDelay          = 60 * time.Second
	DefaultMultiplier        = 2.0
	DefaultRateLimitFactor   = 4.0
	DefaultPerAttemptTimeout = 60 * time.Second

	DefaultFailureThreshold = 5
	DefaultCooldown         = 60 * time.Second
	DefaultBreakerWindow    = 1 * time.Minute
)

// ErrCircuitOpen is returned, wrapped as transient, when an operation's
// circuit rejects a call during cool-down.
var ErrCircuitOpen = errors.New("circuit breaker open")

// Policy controls retry behavior for one executor or one call.
type Policy struct {
	MaxAttempts       int
	BaseDelay         time.Duration
	MaxDelay          time.Duration
	Multiplier        float64
	RateLimitFactor   float64
	PerAttemptTimeout time.Duration
	Jitter            bool
}

// DefaultPolicy returns the stock exponential-backoff policy.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:       DefaultMaxAttempts,
		BaseDelay:         DefaultBaseDelay,
		MaxDelay:          DefaultMaxDelay,
		Multiplier:        DefaultMultiplier,
		RateLimitFactor:   DefaultRateLimitFactor,
		PerAttemptTimeout: DefaultPerAttemptTimeout,
		Jitter:            true,
	}
}

// BreakerConfig controls the per-operation-key circuit breakers.
type BreakerConfig struct {
	// FailureThreshold is the consecutive-failure count that opens the
	// circuit
	FailureThreshold int
	// Window resets failure counts while the circuit is closed
	Window time.Duration
	// Cooldown is how long the open circuit rejects calls before a
	// half-open probe
	Cooldown time.Duration
}

// Executor runs fallible operations under a classified retry policy with a
// per-operation-key circuit breaker. It never panics past its boundary and
// always returns a classified error on failure.
type Executor struct {
	policy   Policy
	classify Classifier
	breaker  BreakerConfig
	metrics  MetricsSink

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[struct{}]
}

// ExecutorConfig holds construction options for an Executor.
type ExecutorConfig struct {
	Policy   Policy
	Breaker  BreakerConfig
	Classify Classifier
	Metrics  MetricsSink
}

// NewExecutor creates an executor, filling unset config with defaults.
func NewExecutor(cfg ExecutorConfig) *Executor {
	if cfg.Policy.MaxAttempts == 0 {
		cfg.Policy = DefaultPolicy()
	}
	if cfg.Breaker.FailureThreshold == 0 {
		cfg.Breaker.FailureThreshold = DefaultFailureThreshold
	}
	if cfg.Breaker.Window == 0 {
		cfg.Breaker.Window = DefaultBreakerWindow
	}
	if cfg.Breaker.Cooldown == 0 {
		cfg.Breaker.Cooldown = DefaultCooldown
	}
	if cfg.Classify == nil {
		cfg.Classify = Classify
	}
	if cfg.Metrics == nil {
		cfg.Metrics = NopSink{}
	}

	return &Executor{
		policy:   cfg.Policy,
		classify: cfg.Classify,
		breaker:  cfg.Breaker,
		metrics:  cfg.Metrics,
		breakers: make(map[string]*gobreaker.CircuitBreaker[struct{}]),
	}
}

// Execute runs op under the executor's default policy.
func (e *Executor) Execute(ctx context.Context, opKey string, op func(context.Context) error) error {
	return e.ExecuteWith(ctx, opKey, e.policy, e.classify, op)
}

// ExecuteWith runs op with an explicit policy and classifier. Each attempt
// is bounded by the per-attempt timeout; exceeding it reclassifies the
// failure as timeout. Retries apply to every class except permanent, with
// exponential backoff scaled up for rate-limited errors. A breaker open on
// the operation key fails fast without invoking op.
func (e *Executor) ExecuteWith(ctx context.Context, opKey string, policy Policy, classify Classifier, op func(context.Context) error) (err error) {
	if classify == nil {
		classify = e.classify
	}

	start := time.Now()
	defer func() {
		e.metrics.RecordOutcome(opKey, err == nil, attemptCount(err), time.Since(start))
	}()

	cb := e.breakerFor(opKey)

	var lastErr error
	for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return &attemptsError{attempts: attempt, err: WithClass(ClassTransient, ctxErr)}
		}

		attemptErr := e.attempt(ctx, cb, policy, op)
		if attemptErr == nil {
			e.metrics.RecordAttempt(opKey, "")
			return nil
		}

		if errors.Is(attemptErr, gobreaker.ErrOpenState) || errors.Is(attemptErr, gobreaker.ErrTooManyRequests) {
			// Fail fast while the dependency cools down; the caller may
			// requeue, so surface as transient.
			rejected := WithClass(ClassTransient, fmt.Errorf("%s: %w", opKey, ErrCircuitOpen))
			e.metrics.RecordAttempt(opKey, ClassTransient)
			return &attemptsError{attempts: attempt, err: rejected}
		}

		class := classify(attemptErr)
		e.metrics.RecordAttempt(opKey, class)
		lastErr = WithClass(class, attemptErr)

		if !class.Retryable() {
			return &attemptsError{attempts: attempt + 1, err: lastErr}
		}

		if attempt+1 < policy.MaxAttempts {
			if waitErr := e.wait(ctx, policy, class, attempt); waitErr != nil {
				return &attemptsError{attempts: attempt + 1, err: lastErr}
			}
		}
	}

	return &attemptsError{attempts: policy.MaxAttempts, err: lastErr}
}

// attempt runs a single call through the breaker with its own timeout.
func (e *Executor) attempt(ctx context.Context, cb *gobreaker.CircuitBreaker[struct{}], policy Policy, op func(context.Context) error) error {
	_, err := cb.Execute(func() (struct{}, error) {
		attemptCtx := ctx
		cancel := context.CancelFunc(func() {})
		if policy.PerAttemptTimeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, policy.PerAttemptTimeout)
		}
		defer cancel()

		callErr := func() (callErr error) {
			defer func() {
				if r := recover(); r != nil {
					callErr = WithClass(ClassUnknown, fmt.Errorf("operation panic: %v", r))
				}
			}()
			return op(attemptCtx)
		}()

		if callErr != nil && attemptCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
			// The per-attempt deadline fired, not the caller's context.
			callErr = WithClass(ClassTimeout, callErr)
		}
		return struct{}{}, callErr
	})
	return err
}

// wait sleeps the class-scaled backoff, honoring cancellation.
func (e *Executor) wait(ctx context.Context, policy Policy, class ErrorClass, attempt int) error {
	delay := policy.BaseDelay
	for i := 0; i < attempt; i++ {
		delay = time.Duration(float64(delay) * policy.Multiplier)
	}
	if class == ClassRateLimited && policy.RateLimitFactor > 1 {
		delay = time.Duration(float64(delay) * policy.RateLimitFactor)
	}
	if policy.MaxDelay > 0 && delay > policy.MaxDelay {
		delay = policy.MaxDelay
	}
	if policy.Jitter {
		delay += time.Duration(rand.Float64() * 0.3 * float64(delay))
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (e *Executor) breakerFor(opKey string) *gobreaker.CircuitBreaker[struct{}] {
	e.mu.Lock()
	defer e.mu.Unlock()

	if cb, ok := e.breakers[opKey]; ok {
		return cb
	}

	threshold := uint32(e.breaker.FailureThreshold)
	cb := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        opKey,
		MaxRequests: 1,
		Interval:    e.breaker.Window,
		Timeout:     e.breaker.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			e.metrics.RecordBreakerTransition(name, from.String(), to.String())
		},
	})
	e.breakers[opKey] = cb
	return cb
}

// attemptsError records how many attempts a failed execution consumed.
type attemptsError struct {
	attempts int
	err      error
}

func (a *attemptsError) Error() string { return a.err.Error() }
func (a *attemptsError) Unwrap() error { return a.err }

// Attempts reports how many times the operation behind err was invoked,
// or 1 when err carries no attempt information.
func Attempts(err error) int {
	return attemptCount(err)
}

func attemptCount(err error) int {
	var ae *attemptsError
	if errors.As(err, &ae) {
		return ae.attempts
	}
	if err == nil {
		return 1
	}
	return 1
}
