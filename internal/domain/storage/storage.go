// Package storage declares the transactional unit shared by the repositories.
package storage

import (
	"context"
	"errors"

	"github.com/riskibarqy/forge/internal/domain/commitment"
	"github.com/riskibarqy/forge/internal/domain/inbox"
	"github.com/riskibarqy/forge/internal/domain/ledger"
	"github.com/riskibarqy/forge/internal/domain/user"
	"github.com/riskibarqy/forge/internal/domain/week"
	"github.com/riskibarqy/forge/internal/domain/workout"
)

// ErrTxConflict marks a transaction aborted by contention; the caller may retry.
var ErrTxConflict = errors.New("transaction conflict")

// Repositories is a set of repositories bound to one transaction or to the
// plain connection.
type Repositories struct {
	Users       user.Repository
	Weeks       week.Repository
	Commitments commitment.Repository
	Workouts    workout.Repository
	Ledger      ledger.Repository
	Inbox       inbox.Repository
}

type TxRunner interface {
	// RunInTx commits when fn returns nil and rolls back otherwise.
	RunInTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}

// Store is a backend that hands out plain repositories and runs transactions.
type Store interface {
	TxRunner
	Repositories() Repositories
}
