package recommend

import (
	"log/slog"
	"sync"
	"time"
)

// BreakerState is the state of a CircuitBreaker.
type BreakerState int

// Breaker states. The numeric values are exported as a metric gauge.
const (
	BreakerClosed BreakerState = iota
	BreakerHalfOpen
	BreakerOpen
)

// String returns the state name.
func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerHalfOpen:
		return "half-open"
	case BreakerOpen:
		return "open"
	default:
		return "unknown"
	}
}

// CircuitBreaker stops calling a failing service for a cool-down period.
// After resetTimeout one trial call is let through; its outcome closes or
// reopens the circuit.
type CircuitBreaker struct {
	mu               sync.Mutex
	failureCount     int
	lastFailure      time.Time
	resetTimeout     time.Duration
	failureThreshold int
	serviceName      string
	state            BreakerState
	onChange         func(service string, state BreakerState)
	logger           *slog.Logger
	now              func() time.Time
}

// NewCircuitBreaker creates a closed breaker that opens after
// failureThreshold consecutive failures. onChange may be nil.
func NewCircuitBreaker(serviceName string, failureThreshold int, resetTimeout time.Duration, onChange func(string, BreakerState), logger *slog.Logger) *CircuitBreaker {
	if failureThreshold < 1 {
		failureThreshold = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	cb := &CircuitBreaker{
		serviceName:      serviceName,
		failureThreshold: failureThreshold,
		resetTimeout:     resetTimeout,
		state:            BreakerClosed,
		onChange:         onChange,
		logger:           logger,
		now:              time.Now,
	}
	cb.notify()
	return cb
}

// Execute runs fn unless the circuit is open.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	cb.mu.Lock()
	if cb.state == BreakerOpen {
		if cb.now().Sub(cb.lastFailure) <= cb.resetTimeout {
			cb.mu.Unlock()
			return ErrCircuitOpen
		}
		cb.setState(BreakerHalfOpen)
		cb.logger.Info("circuit half-open, allowing trial request", "service", cb.serviceName)
	}
	cb.mu.Unlock()

	err := fn()

	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err != nil {
		cb.failureCount++
		cb.lastFailure = cb.now()
		if cb.state == BreakerHalfOpen || cb.failureCount >= cb.failureThreshold {
			cb.setState(BreakerOpen)
			cb.logger.Warn("circuit opened",
				"service", cb.serviceName,
				"failures", cb.failureCount,
				"until", cb.lastFailure.Add(cb.resetTimeout),
			)
		}
		return err
	}

	cb.failureCount = 0
	if cb.state == BreakerHalfOpen {
		cb.setState(BreakerClosed)
		cb.logger.Info("circuit closed after successful trial", "service", cb.serviceName)
	}
	return nil
}

// State returns the current state.
func (cb *CircuitBreaker) State() BreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// setState must be called with mu held.
func (cb *CircuitBreaker) setState(state BreakerState) {
	cb.state = state
	cb.notify()
}

func (cb *CircuitBreaker) notify() {
	if cb.onChange != nil {
		cb.onChange(cb.serviceName, cb.state)
	}
}
