package httpapi

import (
	"context"
	"errors"
	"net/http"

	sonic "github.com/bytedance/sonic"
	"github.com/riskibarqy/forge/internal/usecase"
)

const (
	googleAPIVersion = "2.0"
	errorDomain      = "forge"
)

// Responses follow the Google JSON style guide envelope.
type envelope struct {
	APIVersion string     `json:"apiVersion"`
	Data       any        `json:"data,omitempty"`
	Error      *errorBody `json:"error,omitempty"`
}

type errorBody struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Status  string      `json:"status"`
	Errors  []errorItem `json:"errors,omitempty"`
}

type errorItem struct {
	Domain  string `json:"domain"`
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

type mappedError struct {
	HTTPStatus int
	Reason     string
	Status     string
}

// errorMappings is checked in order; the first sentinel matched wins.
var errorMappings = []struct {
	target error
	mapped mappedError
}{
	{usecase.ErrInvalidInput, mappedError{http.StatusBadRequest, "invalidInput", "INVALID_ARGUMENT"}},
	{usecase.ErrNotFound, mappedError{http.StatusNotFound, "notFound", "NOT_FOUND"}},
	{usecase.ErrConflict, mappedError{http.StatusConflict, "conflict", "FAILED_PRECONDITION"}},
	{usecase.ErrUnauthorized, mappedError{http.StatusUnauthorized, "unauthorized", "UNAUTHENTICATED"}},
	{usecase.ErrTransaction, mappedError{http.StatusServiceUnavailable, "transactionAborted", "ABORTED"}},
	{usecase.ErrDependencyUnavailable, mappedError{http.StatusServiceUnavailable, "dependencyUnavailable", "UNAVAILABLE"}},
	{usecase.ErrSchedulerTransition, mappedError{http.StatusInternalServerError, "schedulerTransition", "INTERNAL"}},
}

var internalError = mappedError{http.StatusInternalServerError, "internalError", "INTERNAL"}

func writeJSON(_ context.Context, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = sonic.ConfigDefault.NewEncoder(w).Encode(payload)
}

func writeSuccess(ctx context.Context, w http.ResponseWriter, status int, data any) {
	writeJSON(ctx, w, status, envelope{APIVersion: googleAPIVersion, Data: data})
}

// writeError maps err onto a status. Unclassified errors are reported with a
// generic message so internals do not leak to clients.
func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	mapped := mapError(ctx, err)
	message := err.Error()
	if mapped == internalError {
		message = "internal server error"
	}
	writeErrorBody(ctx, w, mapped, message)
}

func writeInternalError(ctx context.Context, w http.ResponseWriter) {
	writeErrorBody(ctx, w, internalError, "internal server error")
}

func writeErrorBody(ctx context.Context, w http.ResponseWriter, mapped mappedError, message string) {
	writeJSON(ctx, w, mapped.HTTPStatus, envelope{
		APIVersion: googleAPIVersion,
		Error: &errorBody{
			Code:    mapped.HTTPStatus,
			Message: message,
			Status:  mapped.Status,
			Errors:  []errorItem{{Domain: errorDomain, Reason: mapped.Reason, Message: message}},
		},
	})
}

func mapError(_ context.Context, err error) mappedError {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			return m.mapped
		}
	}
	return internalError
}
