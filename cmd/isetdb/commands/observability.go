package commands

import (
	"context"

	"github.com/Sumatoshi-tech/isetdb/internal/config"
	"github.com/Sumatoshi-tech/isetdb/internal/observability"
)

// initObservability builds telemetry providers from the loaded config.
func initObservability(ctx context.Context, cfg *config.Config, debug bool) (*observability.Providers, error) {
	return observability.Init(ctx, observability.Config{
		Enabled:  cfg.Observability.Enabled,
		Endpoint: cfg.Observability.Endpoint,
		Service:  cfg.Observability.Service,
		Env:      cfg.Observability.Env,
		Debug:    debug,
	})
}

// shutdownObservability flushes pending telemetry, logging on failure.
func shutdownObservability(providers *observability.Providers) {
	err := providers.Shutdown(context.Background())
	if err != nil {
		providers.Logger.Warn("observability shutdown failed", "error", err)
	}
}
