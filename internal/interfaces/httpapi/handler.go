package httpapi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"
	jsoniter "github.com/json-iterator/go"
	"github.com/riskibarqy/forge/internal/platform/logging"
	"github.com/riskibarqy/forge/internal/usecase"
)

const maxRequestBodyBytes = 1 << 20

type Handler struct {
	memberService   *usecase.MemberService
	inboxService    *usecase.InboxService
	configService   *usecase.CommunityConfigService
	jobOrchestrator *usecase.LifecycleOrchestrator
	logger          *logging.Logger
	validator       *validator.Validate
}

func NewHandler(
	memberService *usecase.MemberService,
	inboxService *usecase.InboxService,
	configService *usecase.CommunityConfigService,
	jobOrchestrator *usecase.LifecycleOrchestrator,
	logger *logging.Logger,
) *Handler {
	if logger == nil {
		logger = logging.Default()
	}

	return &Handler{
		memberService:   memberService,
		inboxService:    inboxService,
		configService:   configService,
		jobOrchestrator: jobOrchestrator,
		logger:          logger,
		validator:       validator.New(),
	}
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Healthz")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) validateRequest(ctx context.Context, payload any) error {
	if err := h.validator.StructCtx(ctx, payload); err != nil {
		return fmt.Errorf("%w: validation failed: %v", usecase.ErrInvalidInput, err)
	}
	return nil
}

// decodeJSON reads a strict JSON body. An empty body is accepted when
// allowEmpty is set and leaves dst untouched.
func decodeJSON(r *http.Request, dst any, allowEmpty bool) error {
	body, err := readBody(r)
	if err != nil {
		return err
	}
	decoder := jsoniter.NewDecoder(bytes.NewReader(body))
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		if allowEmpty && errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err)
	}
	return nil
}

// readBody reads at most maxRequestBodyBytes and rejects anything longer.
func readBody(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read request body: %v", usecase.ErrInvalidInput, err)
	}
	if len(body) > maxRequestBodyBytes {
		return nil, fmt.Errorf("%w: payload too large: limit is %d bytes", usecase.ErrInvalidInput, maxRequestBodyBytes)
	}
	return body, nil
}

// logFailure keeps expected outcomes such as conflicts out of the error log.
func (h *Handler) logFailure(ctx context.Context, msg string, err error, args ...any) {
	args = append(args, "error", err)
	if id := requestIDFrom(ctx); id != "" {
		args = append(args, "request_id", id)
	}
	if usecase.IsExpectedOutcome(err) {
		h.logger.InfoContext(ctx, msg, args...)
		return
	}
	h.logger.ErrorContext(ctx, msg, args...)
}
