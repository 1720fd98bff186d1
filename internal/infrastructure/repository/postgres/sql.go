package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/riskibarqy/forge/internal/domain/storage"
)

// queryer is satisfied by both *sqlx.DB and *sqlx.Tx so repositories run
// unchanged inside and outside a transaction.
type queryer interface {
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

var (
	_ queryer = (*sqlx.DB)(nil)
	_ queryer = (*sqlx.Tx)(nil)
)

const (
	pqSerializationFailure = "40001"
	pqDeadlockDetected     = "40P01"
	pqUniqueViolation      = "23505"
)

func isNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

func pqCode(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

func isContention(err error) bool {
	switch pqCode(err) {
	case pqSerializationFailure, pqDeadlockDetected:
		return true
	default:
		return false
	}
}

func isUniqueViolation(err error) bool {
	return pqCode(err) == pqUniqueViolation
}

// classifyTxError tags contention aborts so callers can retry them.
func classifyTxError(err error) error {
	if err == nil {
		return nil
	}
	if isContention(err) && !errors.Is(err, storage.ErrTxConflict) {
		return fmt.Errorf("%w: %w", storage.ErrTxConflict, err)
	}
	return err
}

func optionalString(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}

func stringValue(value sql.NullString) string {
	if !value.Valid {
		return ""
	}
	return value.String
}
