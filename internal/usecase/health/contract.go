package health

import "context"

// StorePinger is the chunk store. Losing it makes the service unhealthy.
type StorePinger interface {
	Ping(ctx context.Context) error
}

// Checker is a model dependency whose loss only degrades answers:
// the hash embedder and the rule-based answer stand in for it.
type Checker interface {
	HealthCheck(ctx context.Context) error
}

// BackendChecker is a generation backend, reported as "generation:<name>".
type BackendChecker interface {
	Checker
	Name() string
}
