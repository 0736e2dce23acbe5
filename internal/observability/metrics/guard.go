// Package metrics emits standardised StatsD metrics for guard decisions and auth state resolution.
package metrics

import (
	"time"

	obserrors "github.com/target/storefront-gate/internal/observability/errors"
	"github.com/target/storefront-gate/internal/observability/statsd"
)

// Result constants for metric tagging.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultTimeout = "timeout"
)

// GuardMetric captures a single guard evaluation.
type GuardMetric struct {
	Policy  string
	Outcome string
	Intent  string
}

// EmitGuardDecision counts a guard decision tagged by policy, outcome and intent kind.
func EmitGuardDecision(sink statsd.Sink, in GuardMetric) {
	if sink == nil {
		return
	}
	sink.Count("guard.decision", 1, map[string]string{
		"policy":  in.Policy,
		"outcome": in.Outcome,
		"intent":  in.Intent,
	})
}

// ResolveMetric captures one auth state resolution.
type ResolveMetric struct {
	Source   string // bearer, session or none
	State    string // loading, signed_out, signed_in
	Result   string
	Duration time.Duration
	Err      error
}

// EmitAuthResolve emits the resolution counter and, when measured, its duration.
func EmitAuthResolve(sink statsd.Sink, in ResolveMetric) {
	if sink == nil {
		return
	}

	tags := map[string]string{
		"source": in.Source,
		"state":  in.State,
		"result": in.Result,
	}
	if in.Err != nil && in.Result != ResultSuccess {
		if class := obserrors.Classify(in.Err); class != "" {
			tags["error_class"] = class
		}
	}

	sink.Count("auth.resolve", 1, tags)

	if in.Duration > 0 {
		sink.Timing("auth.resolve.duration", in.Duration, CloneTags(tags))
	}
}

// CloneTags creates a shallow copy of a tag map, filtering out empty keys.
func CloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		if k == "" {
			continue
		}
		out[k] = v
	}
	return out
}
