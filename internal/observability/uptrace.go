package observability

import (
	"context"
	"strings"

	"github.com/riskibarqy/forge/internal/config"
	"github.com/riskibarqy/forge/internal/platform/logging"
	"github.com/uptrace/uptrace-go/uptrace"
)

type ShutdownFunc func(context.Context) error

func noopShutdown(context.Context) error { return nil }

// InitUptrace configures the global OpenTelemetry tracer provider. Spans from
// usecases, repositories and outbound clients are exported once this runs.
func InitUptrace(cfg config.Config, logger *logging.Logger) (ShutdownFunc, error) {
	if logger == nil {
		logger = logging.Default()
	}

	if !cfg.UptraceEnabled {
		logger.Info("uptrace disabled", "reason", "UPTRACE_ENABLED=false")
		return noopShutdown, nil
	}
	if strings.TrimSpace(cfg.UptraceDSN) == "" {
		logger.Info("uptrace disabled", "reason", "UPTRACE_DSN empty")
		return noopShutdown, nil
	}

	uptrace.ConfigureOpentelemetry(
		uptrace.WithDSN(cfg.UptraceDSN),
		uptrace.WithServiceName(cfg.ServiceName),
		uptrace.WithServiceVersion(cfg.ServiceVersion),
		uptrace.WithDeploymentEnvironment(cfg.AppEnv),
		uptrace.WithResourceAttributes(communityAttribute(cfg.CommunityID)),
	)

	logger.Info("uptrace enabled",
		"service_name", cfg.ServiceName,
		"service_version", cfg.ServiceVersion,
		"environment", cfg.AppEnv,
		"community_id", cfg.CommunityID,
	)

	return uptrace.Shutdown, nil
}
