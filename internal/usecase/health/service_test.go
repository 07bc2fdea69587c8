package health

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

type checker struct{ err error }

func (c checker) HealthCheck(context.Context) error { return c.err }

type backend struct {
	name string
	err  error
	hang bool
}

func (b backend) Name() string { return b.name }

func (b backend) HealthCheck(ctx context.Context) error {
	if b.hang {
		<-ctx.Done()
		return ctx.Err()
	}
	return b.err
}

var errDown = errors.New("down")

func TestCheck(t *testing.T) {
	tests := []struct {
		name      string
		store     error
		embedding Checker
		backends  []BackendChecker
		want      Status
		checks    map[string]CheckResult
	}{
		{
			name:      "all healthy",
			embedding: checker{},
			backends:  []BackendChecker{backend{name: "ollama"}},
			want:      Healthy,
			checks:    map[string]CheckResult{"database": CheckOK, "embedding": CheckOK, "generation:ollama": CheckOK},
		},
		{
			name:      "store down",
			store:     errDown,
			embedding: checker{},
			want:      Unhealthy,
			checks:    map[string]CheckResult{"database": CheckError, "embedding": CheckOK},
		},
		{
			name:      "embedding down serves hash vectors",
			embedding: checker{err: errDown},
			want:      Degraded,
			checks:    map[string]CheckResult{"database": CheckOK, "embedding": CheckError},
		},
		{
			name:      "store and embedding down",
			store:     errDown,
			embedding: checker{err: errDown},
			want:      Unhealthy,
			checks:    map[string]CheckResult{"database": CheckError, "embedding": CheckError},
		},
		{
			name:   "no embedding configured",
			want:   Healthy,
			checks: map[string]CheckResult{"database": CheckOK},
		},
		{
			name:      "one generation backend down",
			embedding: checker{},
			backends:  []BackendChecker{backend{name: "ollama", err: errDown}, backend{name: "gemini"}},
			want:      Degraded,
			checks: map[string]CheckResult{
				"database": CheckOK, "embedding": CheckOK,
				"generation:ollama": CheckError, "generation:gemini": CheckOK,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(pinger{err: tt.store}, tt.embedding, tt.backends...).Check(context.Background())
			if r.Status != tt.want {
				t.Errorf("Status = %q, want %q", r.Status, tt.want)
			}
			if len(r.Checks) != len(tt.checks) {
				t.Errorf("Checks = %v, want %v", r.Checks, tt.checks)
			}
			for k, v := range tt.checks {
				if r.Checks[k] != v {
					t.Errorf("Checks[%q] = %q, want %q", k, r.Checks[k], v)
				}
			}
		})
	}
}

func TestCheck_TimeoutPerProbe(t *testing.T) {
	svc := New(pinger{}, nil, backend{name: "slow", hang: true}).WithTimeout(10 * time.Millisecond)

	start := time.Now()
	r := svc.Check(context.Background())
	if time.Since(start) > time.Second {
		t.Fatal("probe timeout not applied")
	}
	if r.Checks["generation:slow"] != CheckError {
		t.Error("expected hanging backend to fail")
	}
}

func TestCheck_ProbesRunConcurrently(t *testing.T) {
	backends := make([]BackendChecker, 10)
	for i := range backends {
		backends[i] = backend{name: fmt.Sprintf("b%d", i), hang: true}
	}
	svc := New(pinger{}, nil, backends...).WithTimeout(100 * time.Millisecond)

	start := time.Now()
	r := svc.Check(context.Background())
	if elapsed := time.Since(start); elapsed > 600*time.Millisecond {
		t.Errorf("Check took %v; ten hanging probes should cost about one timeout", elapsed)
	}
	if r.Status != Degraded {
		t.Errorf("Status = %q, want degraded", r.Status)
	}
}

func TestWithTimeout_IgnoresNonPositive(t *testing.T) {
	svc := New(pinger{}, nil).WithTimeout(0)
	if svc.timeout != defaultCheckTimeout {
		t.Errorf("timeout = %v, want default", svc.timeout)
	}
}
