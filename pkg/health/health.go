package health

import (
	"context"
	"sync"
	"time"
)

// CheckType represents the type of health check
type CheckType string

const (
	CheckTypeHTTP    CheckType = "http"
	CheckTypeTCP     CheckType = "tcp"
	CheckTypeEthNode CheckType = "eth-node"
)

// Result represents the outcome of a health check
type Result struct {
	Healthy   bool
	Message   string
	CheckedAt time.Time
	Duration  time.Duration
}

// Checker is the interface that all health checkers must implement
type Checker interface {
	// Check performs the health check and returns the result
	Check(ctx context.Context) Result

	// Type returns the type of health check
	Type() CheckType
}

// Config contains common configuration for monitors
type Config struct {
	// Timeout is the maximum time to wait for a health check to complete
	Timeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() Config {
	return Config{
		Timeout: 5 * time.Second,
	}
}

// Status tracks the current health of a monitored target
type Status struct {
	LastHealthy          time.Time
	ConsecutiveFailures  int
	ConsecutiveSuccesses int
	LastCheck            time.Time
	LastResult           Result
	Healthy              bool
}

// NewStatus creates a new Status with default values
func NewStatus() *Status {
	return &Status{
		Healthy: true, // Assume healthy until proven otherwise
	}
}

// Update updates the status based on a new health check result
func (s *Status) Update(result Result) {
	s.LastCheck = result.CheckedAt
	s.LastResult = result

	if result.Healthy {
		s.LastHealthy = result.CheckedAt
		s.ConsecutiveSuccesses++
		s.ConsecutiveFailures = 0
		s.Healthy = true
	} else {
		s.ConsecutiveFailures++
		s.ConsecutiveSuccesses = 0
		s.Healthy = false
	}
}

// Monitor runs a Checker under a timeout and remembers its status.
// Monitor itself satisfies Checker.
type Monitor struct {
	checker Checker
	config  Config

	mu     sync.Mutex
	status *Status
}

// NewMonitor wraps checker
func NewMonitor(checker Checker, config Config) *Monitor {
	if config.Timeout <= 0 {
		config.Timeout = DefaultConfig().Timeout
	}
	return &Monitor{
		checker: checker,
		config:  config,
		status:  NewStatus(),
	}
}

// Check runs the wrapped checker and updates the status
func (m *Monitor) Check(ctx context.Context) Result {
	ctx, cancel := context.WithTimeout(ctx, m.config.Timeout)
	defer cancel()

	result := m.checker.Check(ctx)

	m.mu.Lock()
	m.status.Update(result)
	m.mu.Unlock()

	return result
}

// Type returns the wrapped checker's type
func (m *Monitor) Type() CheckType {
	return m.checker.Type()
}

// Status returns a copy of the current status
func (m *Monitor) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.status
}
