package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/riskibarqy/forge/internal/domain/storage"
)

func TestClassifyTxError(t *testing.T) {
	t.Run("serialization failure is retryable", func(t *testing.T) {
		err := classifyTxError(fmt.Errorf("commit: %w", &pq.Error{Code: pqSerializationFailure}))
		if !errors.Is(err, storage.ErrTxConflict) {
			t.Fatalf("expected ErrTxConflict, got %v", err)
		}
	})

	t.Run("deadlock is retryable", func(t *testing.T) {
		err := classifyTxError(&pq.Error{Code: pqDeadlockDetected})
		if !errors.Is(err, storage.ErrTxConflict) {
			t.Fatalf("expected ErrTxConflict, got %v", err)
		}
	})

	t.Run("unique violation is not retryable", func(t *testing.T) {
		err := classifyTxError(&pq.Error{Code: pqUniqueViolation})
		if errors.Is(err, storage.ErrTxConflict) {
			t.Fatalf("unexpected ErrTxConflict for unique violation")
		}
		if !isUniqueViolation(err) {
			t.Fatalf("expected unique violation to be detected")
		}
	})

	t.Run("nil stays nil", func(t *testing.T) {
		if err := classifyTxError(nil); err != nil {
			t.Fatalf("expected nil, got %v", err)
		}
	})
}

func TestIsNotFound(t *testing.T) {
	if !isNotFound(fmt.Errorf("get week: %w", sql.ErrNoRows)) {
		t.Fatalf("expected wrapped sql.ErrNoRows to be not found")
	}
	if isNotFound(errors.New("boom")) {
		t.Fatalf("unexpected not found for unrelated error")
	}
}

func TestOptionalString(t *testing.T) {
	if got := optionalString("   "); got != nil {
		t.Fatalf("expected nil for blank value, got %q", *got)
	}
	got := optionalString(" chan-1 ")
	if got == nil || *got != "chan-1" {
		t.Fatalf("expected trimmed value, got %v", got)
	}
}
