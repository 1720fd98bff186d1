package httpapi

import (
	"net/http"
	"strings"

	"github.com/riskibarqy/forge/internal/usecase"
)

// ReceiveWebhook stores a provider delivery in the inbox. The source event id
// is taken from X-Source-Event-Id when present, otherwise from the payload.
func (h *Handler) ReceiveWebhook(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ReceiveWebhook")
	defer span.End()

	source := r.PathValue("source")
	payload, err := readBody(r)
	if err != nil {
		h.logFailure(ctx, "read webhook body failed", err, "source", source)
		writeError(ctx, w, err)
		return
	}

	result, err := h.inboxService.ReceiveExternalEvent(ctx, usecase.ReceiveEventInput{
		Source:        source,
		SourceEventID: strings.TrimSpace(r.Header.Get("X-Source-Event-Id")),
		Payload:       payload,
	})
	if err != nil {
		h.logFailure(ctx, "receive webhook failed", err, "source", source)
		writeError(ctx, w, err)
		return
	}

	status := http.StatusAccepted
	if !result.Created {
		status = http.StatusOK
	}
	writeSuccess(ctx, w, status, result)
}
