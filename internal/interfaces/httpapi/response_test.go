package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	sonic "github.com/bytedance/sonic"
	"github.com/riskibarqy/forge/internal/usecase"
)

func TestWriteSuccess_GoogleEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	writeSuccess(context.Background(), rec, http.StatusOK, map[string]string{"status": "ok"})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var body map[string]any
	if err := sonic.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response body: %v", err)
	}

	if got, _ := body["apiVersion"].(string); got != "2.0" {
		t.Fatalf("expected apiVersion=2.0, got %v", body["apiVersion"])
	}
	if _, ok := body["data"]; !ok {
		t.Fatalf("expected data key in success response")
	}
	if _, ok := body["error"]; ok {
		t.Fatalf("did not expect error key in success response")
	}
}

func TestWriteError_GoogleEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(context.Background(), rec, fmt.Errorf("%w: bad payload", usecase.ErrInvalidInput))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}

	var body map[string]any
	if err := sonic.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response body: %v", err)
	}

	if got, _ := body["apiVersion"].(string); got != "2.0" {
		t.Fatalf("expected apiVersion=2.0, got %v", body["apiVersion"])
	}
	errorObj, ok := body["error"].(map[string]any)
	if !ok {
		t.Fatalf("expected error object in response")
	}
	if got, _ := errorObj["status"].(string); got != "INVALID_ARGUMENT" {
		t.Fatalf("expected error status INVALID_ARGUMENT, got %v", errorObj["status"])
	}
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		reason string
	}{
		{name: "validation", err: fmt.Errorf("%w: bad", usecase.ErrInvalidInput), status: http.StatusBadRequest, reason: "invalidInput"},
		{name: "not found", err: fmt.Errorf("%w: week", usecase.ErrNotFound), status: http.StatusNotFound, reason: "notFound"},
		{name: "conflict", err: fmt.Errorf("%w: closed", usecase.ErrConflict), status: http.StatusConflict, reason: "conflict"},
		{name: "transaction", err: fmt.Errorf("%w: after 3 attempts", usecase.ErrTransaction), status: http.StatusServiceUnavailable, reason: "transactionAborted"},
		{name: "unauthorized", err: usecase.ErrUnauthorized, status: http.StatusUnauthorized, reason: "unauthorized"},
		{name: "dependency", err: usecase.ErrDependencyUnavailable, status: http.StatusServiceUnavailable, reason: "dependencyUnavailable"},
		{name: "scheduler", err: fmt.Errorf("%w: end week", usecase.ErrSchedulerTransition), status: http.StatusInternalServerError, reason: "schedulerTransition"},
		{name: "unknown", err: fmt.Errorf("boom"), status: http.StatusInternalServerError, reason: "internalError"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := mapError(context.Background(), tc.err)
			if got.HTTPStatus != tc.status || got.Reason != tc.reason {
				t.Fatalf("mapError(%v)=%+v want status=%d reason=%s", tc.err, got, tc.status, tc.reason)
			}
		})
	}
}

func TestWriteError_HidesUnclassifiedMessages(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(context.Background(), rec, fmt.Errorf("pq: relation \"weeks\" does not exist"))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", rec.Code)
	}
	var body envelope
	if err := sonic.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response body: %v", err)
	}
	if body.Error == nil || body.Error.Message != "internal server error" {
		t.Fatalf("expected generic message, got %+v", body.Error)
	}
}
