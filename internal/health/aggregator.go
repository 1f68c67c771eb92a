package health

import (
	"slices"
	"time"

	"github.com/telhawk-systems/logrelay/internal/models"
)

// StatusHealthy is the only status a report carries.
const StatusHealthy = "healthy"

// Report is the body served on GET /health.
type Report struct {
	Status      string    `json:"status" yaml:"status"`
	Timestamp   time.Time `json:"timestamp" yaml:"timestamp"`
	Service     string    `json:"service" yaml:"service"`
	Environment string    `json:"environment" yaml:"environment"`
	Databases   Databases `json:"databases" yaml:"databases"`
}

// Aggregator builds reports from a fixed backend list.
// It holds no mutable state and is safe for concurrent use.
type Aggregator struct {
	service     string
	environment string
	backends    []models.Backend
	now         func() time.Time
}

// NewAggregator copies backends so later changes by the caller are not seen.
func NewAggregator(service, environment string, backends []models.Backend) *Aggregator {
	return &Aggregator{
		service:     service,
		environment: environment,
		backends:    slices.Clone(backends),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Report returns the current snapshot stamped with the report time.
func (a *Aggregator) Report() Report {
	return Report{
		Status:      StatusHealthy,
		Timestamp:   a.now(),
		Service:     a.service,
		Environment: a.environment,
		Databases:   Snapshot(a.backends),
	}
}
