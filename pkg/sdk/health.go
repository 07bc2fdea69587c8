package faq

import (
	"context"
	"errors"
	"time"

	healthuc "github.com/Jhongjin/meta-faq-chatbot-sub001/internal/usecase/health"
)

// HealthStatus represents the aggregated system health.
type HealthStatus struct {
	Status string            // "ok", "degraded", "error"
	Checks map[string]string // component -> "ok"/"error"
}

// Healthy reports whether questions can still be answered.
func (h HealthStatus) Healthy() bool { return h.Status != string(healthuc.Unhealthy) }

// Health checks the chunk store, the embedding provider and every backend.
// A failing backend only degrades the status.
func (c *Client) Health(ctx context.Context) HealthStatus {
	start := time.Now()
	report := c.healthSvc.Check(ctx)

	var err error
	if report.Status == healthuc.Unhealthy {
		err = errUnhealthy
	}
	c.obs.observe("health", start, err)

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}
	return HealthStatus{
		Status: string(report.Status),
		Checks: checks,
	}
}

var errUnhealthy = errors.New("chunk store unreachable")

// healthUseCase is the internal interface for health checks.
type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}
