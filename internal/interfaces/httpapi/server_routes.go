package httpapi

import "net/http"

func registerSystemRoutes(mux *http.ServeMux, handler *Handler, metrics http.Handler) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
	if metrics != nil {
		mux.Handle("GET /metrics", metrics)
	}
}

func registerMemberRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("POST /v1/members/join", handler.JoinMember)
	mux.HandleFunc("POST /v1/members/leave", handler.LeaveMember)
	mux.HandleFunc("GET /v1/members/{externalID}/status", handler.GetMemberStatus)
	mux.HandleFunc("POST /v1/workouts/manual", handler.LogManualWorkout)
	mux.HandleFunc("GET /v1/weeks/current", handler.GetCurrentWeek)
	mux.HandleFunc("PUT /v1/weeks/{weekID}/commitments", handler.SetCommitment)
	mux.HandleFunc("PUT /v1/weeks/{weekID}/message-refs", handler.UpdateWeekMessageRefs)
}

func registerCommunityRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /v1/communities/{communityID}/config", handler.GetCommunityConfig)
	mux.HandleFunc("PUT /v1/communities/{communityID}/config", handler.UpdateCommunityConfig)
}

func registerWebhookRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("POST /v1/webhooks/{source}", handler.ReceiveWebhook)
}

func registerInternalJobRoutes(mux *http.ServeMux, handler *Handler, internalJobToken string) {
	mux.Handle("POST /v1/internal/jobs/lifecycle/tick", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RunLifecycleTickJob)))
	mux.Handle("POST /v1/internal/jobs/lifecycle/end-and-open", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RunEndAndOpenJob)))
	mux.Handle("POST /v1/internal/jobs/lifecycle/close-commitments", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RunCloseCommitmentsJob)))
	mux.Handle("POST /v1/internal/jobs/inbox/process", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RunInboxProcessJob)))
}
