package httpapi

import (
	"fmt"
	"net/http"

	"github.com/riskibarqy/forge/internal/usecase"
)

func (h *Handler) RunLifecycleTickJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunLifecycleTickJob")
	defer span.End()

	if h.jobOrchestrator == nil {
		writeError(ctx, w, fmt.Errorf("%w: lifecycle orchestrator is not configured", usecase.ErrDependencyUnavailable))
		return
	}

	result, err := h.jobOrchestrator.RunTick(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "run lifecycle tick job failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, tickToDTO(result))
}

func (h *Handler) RunEndAndOpenJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunEndAndOpenJob")
	defer span.End()

	if h.jobOrchestrator == nil {
		writeError(ctx, w, fmt.Errorf("%w: lifecycle orchestrator is not configured", usecase.ErrDependencyUnavailable))
		return
	}

	result, err := h.jobOrchestrator.RunEndAndOpen(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "run end-and-open job failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, endAndOpenToDTO(result))
}

func (h *Handler) RunCloseCommitmentsJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunCloseCommitmentsJob")
	defer span.End()

	if h.jobOrchestrator == nil {
		writeError(ctx, w, fmt.Errorf("%w: lifecycle orchestrator is not configured", usecase.ErrDependencyUnavailable))
		return
	}

	result, err := h.jobOrchestrator.RunCloseCommitments(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "run close-commitments job failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, closeCommitmentsToDTO(result))
}

// RunInboxProcessJob is the push path of the inbox consumer. QStash retries the
// call while the event is still being retried.
func (h *Handler) RunInboxProcessJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunInboxProcessJob")
	defer span.End()

	var req processInboxRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	result, err := h.inboxService.ProcessEvent(ctx, req.EventID)
	if err != nil {
		h.logFailure(ctx, "run inbox process job failed", err, "event_id", req.EventID)
		writeError(ctx, w, err)
		return
	}
	if result.Status == usecase.ProcessRetry {
		writeError(ctx, w, fmt.Errorf("%w: inbox event %s will be retried: %s", usecase.ErrDependencyUnavailable, result.EventID, result.Message))
		return
	}

	writeSuccess(ctx, w, http.StatusOK, result)
}
