package bootstrap

import (
	"log/slog"

	"github.com/target/storefront-gate/config"
	"github.com/target/storefront-gate/internal/observability/statsd"
)

// BuildMetricsSink returns a StatsD client when metrics are enabled, or nil.
// A client that fails to initialise is logged and treated as disabled.
func BuildMetricsSink(cfg config.ObservabilityMetricsConfig, logger *slog.Logger) *statsd.Client {
	if logger == nil {
		logger = slog.Default()
	}
	if !cfg.IsEnabled() {
		return nil
	}
	client, err := statsd.NewClient(statsd.Config{
		Enabled: true,
		Address: cfg.StatsdAddress,
		Prefix:  cfg.Prefix,
		Logger:  logger,
	})
	if err != nil {
		logger.Error("failed to initialise statsd client", "error", err)
		return nil
	}
	return client
}
