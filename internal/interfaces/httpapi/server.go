package httpapi

import (
	"net/http"

	"github.com/riskibarqy/forge/internal/platform/logging"
)

type RouterConfig struct {
	CORSAllowedOrigins []string
	InternalJobToken   string
	// Metrics is mounted on GET /metrics when set.
	Metrics http.Handler
}

func NewRouter(handler *Handler, cfg RouterConfig, logger *logging.Logger) http.Handler {
	if logger == nil {
		logger = logging.Default()
	}

	mux := http.NewServeMux()
	registerSystemRoutes(mux, handler, cfg.Metrics)
	registerMemberRoutes(mux, handler)
	registerCommunityRoutes(mux, handler)
	registerWebhookRoutes(mux, handler)
	registerInternalJobRoutes(mux, handler, cfg.InternalJobToken)

	return RequestTracing(RequestLogging(logger, CORS(cfg.CORSAllowedOrigins, recoverPanic(logger, mux))))
}

func recoverPanic(logger *logging.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		defer func() {
			if rec := recover(); rec != nil {
				logger.ErrorContext(ctx, "panic recovered", "panic", rec, "path", r.URL.Path)
				writeInternalError(ctx, w)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
