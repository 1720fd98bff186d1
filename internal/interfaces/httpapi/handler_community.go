package httpapi

import (
	"fmt"
	"net/http"

	"github.com/riskibarqy/forge/internal/domain/community"
	"github.com/riskibarqy/forge/internal/usecase"
)

func (h *Handler) GetCommunityConfig(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetCommunityConfig")
	defer span.End()

	communityID := r.PathValue("communityID")
	cfg, err := h.configService.Get(ctx, communityID)
	if err != nil {
		h.logFailure(ctx, "get community config failed", err, "community_id", communityID)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, communityConfigToDTO(cfg))
}

func (h *Handler) UpdateCommunityConfig(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.UpdateCommunityConfig")
	defer span.End()

	communityID := r.PathValue("communityID")
	var req communityConfigRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}
	update, err := req.toUpdate()
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	cfg, err := h.configService.Update(ctx, communityID, update)
	if err != nil {
		h.logFailure(ctx, "update community config failed", err, "community_id", communityID)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, communityConfigToDTO(cfg))
}

func (req communityConfigRequest) toUpdate() (community.Update, error) {
	update := community.Update{
		Timezone:            req.Timezone,
		PointsPerWorkout:    req.PointsPerWorkout,
		CommitmentChannelID: req.CommitmentChannelID,
		ProgressChannelID:   req.ProgressChannelID,
		ParticipantRoleID:   req.ParticipantRoleID,
	}
	if req.WeekStartDay != nil {
		day, err := community.ParseWeekday(*req.WeekStartDay)
		if err != nil {
			return community.Update{}, fmt.Errorf("%w: %v", usecase.ErrInvalidInput, err)
		}
		update.WeekStartDay = &day
	}
	if req.CommitmentsOpenAt != nil {
		at, err := community.ParseClockTime(*req.CommitmentsOpenAt)
		if err != nil {
			return community.Update{}, fmt.Errorf("%w: commitments_open_at: %v", usecase.ErrInvalidInput, err)
		}
		update.CommitmentsOpenAt = &at
	}
	if req.CommitmentsCloseAt != nil {
		at, err := community.ParseClockTime(*req.CommitmentsCloseAt)
		if err != nil {
			return community.Update{}, fmt.Errorf("%w: commitments_close_at: %v", usecase.ErrInvalidInput, err)
		}
		update.CommitmentsCloseAt = &at
	}
	return update, nil
}
