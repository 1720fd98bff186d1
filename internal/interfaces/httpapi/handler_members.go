package httpapi

import (
	"net/http"

	"github.com/riskibarqy/forge/internal/domain/week"
	"github.com/riskibarqy/forge/internal/usecase"
)

func (h *Handler) JoinMember(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.JoinMember")
	defer span.End()

	var req memberRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	member, err := h.memberService.JoinUser(ctx, req.ExternalID)
	if err != nil {
		h.logFailure(ctx, "join member failed", err, "external_id", req.ExternalID)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, userToDTO(member))
}

func (h *Handler) LeaveMember(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.LeaveMember")
	defer span.End()

	var req memberRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	member, err := h.memberService.LeaveUser(ctx, req.ExternalID)
	if err != nil {
		h.logFailure(ctx, "leave member failed", err, "external_id", req.ExternalID)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, userToDTO(member))
}

func (h *Handler) SetCommitment(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.SetCommitment")
	defer span.End()

	weekID := r.PathValue("weekID")
	var req setCommitmentRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	item, err := h.memberService.SetCommitment(ctx, usecase.SetCommitmentInput{
		ExternalID:        req.ExternalID,
		WeekID:            weekID,
		CommittedWorkouts: *req.CommittedWorkouts,
	})
	if err != nil {
		h.logFailure(ctx, "set commitment failed", err, "external_id", req.ExternalID, "week_id", weekID)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, commitmentToDTO(item))
}

func (h *Handler) LogManualWorkout(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.LogManualWorkout")
	defer span.End()

	var req logManualWorkoutRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	result, err := h.memberService.LogManualWorkout(ctx, usecase.LogManualWorkoutInput{
		ExternalID: req.ExternalID,
		OccurredAt: req.OccurredAt,
	})
	if err != nil {
		h.logFailure(ctx, "log manual workout failed", err, "external_id", req.ExternalID)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusCreated, loggedWorkoutDTO{
		Workout: workoutToDTO(result.Workout),
		Week:    weekToDTO(result.Week),
	})
}

func (h *Handler) GetMemberStatus(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetMemberStatus")
	defer span.End()

	externalID := r.PathValue("externalID")
	status, err := h.memberService.GetStatus(ctx, externalID)
	if err != nil {
		h.logFailure(ctx, "get member status failed", err, "external_id", externalID)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, memberStatusToDTO(status))
}

func (h *Handler) GetCurrentWeek(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetCurrentWeek")
	defer span.End()

	view, err := h.memberService.CurrentWeek(ctx)
	if err != nil {
		h.logFailure(ctx, "get current week failed", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, currentWeekToDTO(view))
}

func (h *Handler) UpdateWeekMessageRefs(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.UpdateWeekMessageRefs")
	defer span.End()

	weekID := r.PathValue("weekID")
	var req messageRefsRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(ctx, w, err)
		return
	}

	item, err := h.memberService.UpdateMessageRefs(ctx, weekID, week.MessageRefsUpdate{
		ProgressMessageChannelID:   req.ProgressMessageChannelID,
		ProgressMessageID:          req.ProgressMessageID,
		CommitmentMessageChannelID: req.CommitmentMessageChannelID,
		CommitmentMessageID:        req.CommitmentMessageID,
	})
	if err != nil {
		h.logFailure(ctx, "update week message refs failed", err, "week_id", weekID)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, weekToDTO(item))
}
