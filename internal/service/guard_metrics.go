package service

import (
	"context"
	"log/slog"

	domainauth "github.com/target/storefront-gate/internal/domain/auth"
	"github.com/target/storefront-gate/internal/domain/guard"
	"github.com/target/storefront-gate/internal/observability/metrics"
	"github.com/target/storefront-gate/internal/observability/statsd"
)

// GuardMetrics evaluates guards and records every decision to logs and StatsD.
// A nil *GuardMetrics still decides; it just records nothing.
type GuardMetrics struct {
	sink   statsd.Sink
	logger *slog.Logger
}

// NewGuardMetrics constructs a GuardMetrics. sink may be nil.
func NewGuardMetrics(sink statsd.Sink, logger *slog.Logger) *GuardMetrics {
	if logger == nil {
		logger = slog.Default()
	}
	return &GuardMetrics{sink: sink, logger: logger.With("component", "guard")}
}

// Decide runs g for state at location and records the outcome.
func (m *GuardMetrics) Decide(ctx context.Context, g guard.Guard, state domainauth.AuthState, location string) guard.Decision {
	d := g.Decide(state, location)
	if m == nil {
		return d
	}
	policy := g.Policy.Name
	if policy == "" {
		policy = guard.PolicyAuth
	}
	m.logger.DebugContext(ctx, "guard decision",
		"policy", policy,
		"outcome", d.Outcome.String(),
		"intent", d.Intent.String(),
		"path", location)
	metrics.EmitGuardDecision(m.sink, metrics.GuardMetric{
		Policy:  policy,
		Outcome: d.Outcome.String(),
		Intent:  d.Intent.Kind.String(),
	})
	return d
}
