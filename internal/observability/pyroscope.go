package observability

import (
	"context"
	"fmt"

	"github.com/grafana/pyroscope-go"
	"github.com/riskibarqy/forge/internal/config"
	"github.com/riskibarqy/forge/internal/platform/logging"
)

var profileTypes = []pyroscope.ProfileType{
	pyroscope.ProfileCPU,
	pyroscope.ProfileAllocSpace,
	pyroscope.ProfileInuseSpace,
	pyroscope.ProfileGoroutines,
	pyroscope.ProfileMutexDuration,
	pyroscope.ProfileBlockDuration,
}

// InitPyroscope starts continuous profiling tagged with the community so
// profiles from several deployments can be told apart.
func InitPyroscope(cfg config.Config, logger *logging.Logger) (ShutdownFunc, error) {
	if logger == nil {
		logger = logging.Default()
	}
	if !cfg.PyroscopeEnabled {
		logger.Info("pyroscope disabled", "reason", "PYROSCOPE_ENABLED=false")
		return noopShutdown, nil
	}

	profiler, err := pyroscope.Start(pyroscope.Config{
		ApplicationName:   cfg.PyroscopeAppName,
		ServerAddress:     cfg.PyroscopeServerAddress,
		AuthToken:         cfg.PyroscopeAuthToken,
		BasicAuthUser:     cfg.PyroscopeBasicAuthUser,
		BasicAuthPassword: cfg.PyroscopeBasicAuthPassword,
		UploadRate:        cfg.PyroscopeUploadRate,
		Logger:            pyroscopeLogger{logger.Named("pyroscope")},
		Tags:              profileTags(cfg),
		ProfileTypes:      profileTypes,
	})
	if err != nil {
		return nil, fmt.Errorf("start pyroscope: %w", err)
	}

	logger.Info("pyroscope enabled", "server_address", cfg.PyroscopeServerAddress, "application", cfg.PyroscopeAppName)
	return func(context.Context) error { return profiler.Stop() }, nil
}

func profileTags(cfg config.Config) map[string]string {
	return map[string]string{
		"env":       cfg.AppEnv,
		"service":   cfg.ServiceName,
		"version":   cfg.ServiceVersion,
		"community": cfg.CommunityID,
	}
}

// pyroscopeLogger routes the profiler's printf-style logs into zap.
type pyroscopeLogger struct {
	l *logging.Logger
}

func (p pyroscopeLogger) Infof(format string, args ...any)  { p.l.Info(fmt.Sprintf(format, args...)) }
func (p pyroscopeLogger) Debugf(format string, args ...any) { p.l.Debug(fmt.Sprintf(format, args...)) }
func (p pyroscopeLogger) Errorf(format string, args ...any) { p.l.Error(fmt.Sprintf(format, args...)) }
