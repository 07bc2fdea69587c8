// Package health aggregates liveness of the chunk store and model backends.
package health

import (
	"context"
	"sync"
	"time"
)

// Status is the aggregated health.
type Status string

const (
	Healthy Status = "ok"
	// Degraded: answers are still served, possibly by the hash embedder or the rule-based fallback.
	Degraded Status = "degraded"
	// Unhealthy: the chunk store is unreachable, so nothing can be retrieved.
	Unhealthy Status = "error"
)

// CheckResult is one component's outcome.
type CheckResult string

const (
	CheckOK    CheckResult = "ok"
	CheckError CheckResult = "error"
)

const (
	checkDatabase  = "database"
	checkEmbedding = "embedding"
	generationPref = "generation:"

	defaultCheckTimeout = 3 * time.Second
)

// Report aggregates health check results keyed by component.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

type probe struct {
	name string
	fn   func(context.Context) error
}

// Service runs all probes concurrently, each under its own timeout, so a
// /health call costs one timeout however many backends are configured.
type Service struct {
	probes  []probe
	timeout time.Duration
}

// New creates a Service. embedding may be nil.
func New(store StorePinger, embedding Checker, backends ...BackendChecker) *Service {
	probes := []probe{{name: checkDatabase, fn: store.Ping}}
	if embedding != nil {
		probes = append(probes, probe{name: checkEmbedding, fn: embedding.HealthCheck})
	}
	for _, b := range backends {
		probes = append(probes, probe{name: generationPref + b.Name(), fn: b.HealthCheck})
	}
	return &Service{probes: probes, timeout: defaultCheckTimeout}
}

// WithTimeout sets the per-probe timeout.
func (s *Service) WithTimeout(d time.Duration) *Service {
	if d > 0 {
		s.timeout = d
	}
	return s
}

// Check probes every component.
func (s *Service) Check(ctx context.Context) Report {
	results := make([]CheckResult, len(s.probes))

	var wg sync.WaitGroup
	for i, p := range s.probes {
		wg.Go(func() {
			results[i] = s.run(ctx, p.fn)
		})
	}
	wg.Wait()

	r := Report{Status: Healthy, Checks: make(map[string]CheckResult, len(s.probes))}
	for i, p := range s.probes {
		r.Checks[p.name] = results[i]
		if results[i] == CheckError {
			r.Status = Degraded
		}
	}
	if r.Checks[checkDatabase] == CheckError {
		r.Status = Unhealthy
	}
	return r
}

func (s *Service) run(ctx context.Context, check func(context.Context) error) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if check(ctx) != nil {
		return CheckError
	}
	return CheckOK
}
